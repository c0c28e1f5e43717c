package vehicles

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// LoadDefinitions loads and validates a vehicle-type definitions file.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vehicle definitions: %w", err)
	}

	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing vehicle definitions: %w", err)
	}

	v := validator.New()
	if err := v.Struct(defs); err != nil {
		return nil, fmt.Errorf("invalid vehicle definitions: %w", err)
	}
	for name, t := range defs.VehicleTypes {
		if err := v.Struct(t); err != nil {
			return nil, fmt.Errorf("invalid vehicle type %q: %w", name, err)
		}
	}

	return &defs, nil
}
