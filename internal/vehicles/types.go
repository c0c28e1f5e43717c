// Package vehicles holds vehicle-type definitions: the physical and
// capacity specs simulation vehicles are generated against.
package vehicles

// Capacity is the passenger capacity of a vehicle type.
type Capacity struct {
	Seats        int `yaml:"seats" validate:"gte=0"`
	StandingRoom int `yaml:"standingRoom" validate:"gte=0"`
}

// Type is the physical/capacity spec of one vehicle type.
type Type struct {
	Capacity                Capacity `yaml:"capacity"`
	Length                  float64  `yaml:"length" validate:"gt=0"`
	Width                   float64  `yaml:"width" validate:"gte=0"`
	PassengerCarEquivalents float64  `yaml:"passengerCarEquivalents" validate:"gte=0"`
	DoorOperation           string   `yaml:"doorOperation"`
}

// Definitions maps vehicle-type names to their specs.
type Definitions struct {
	VehicleTypes map[string]Type `yaml:"vehicle_types" validate:"required"`
}

// Has reports whether a type name is defined.
func (d *Definitions) Has(typeName string) bool {
	if d == nil {
		return false
	}
	_, ok := d.VehicleTypes[typeName]
	return ok
}

// Defaults returns built-in specs for the common transit modes, used
// when no definitions file is supplied.
func Defaults() *Definitions {
	return &Definitions{VehicleTypes: map[string]Type{
		"bus": {
			Capacity:                Capacity{Seats: 70, StandingRoom: 0},
			Length:                  18,
			Width:                   2.5,
			PassengerCarEquivalents: 2.8,
			DoorOperation:           "serial",
		},
		"tram": {
			Capacity:                Capacity{Seats: 180, StandingRoom: 0},
			Length:                  36,
			Width:                   2.4,
			PassengerCarEquivalents: 5.2,
			DoorOperation:           "serial",
		},
		"subway": {
			Capacity:                Capacity{Seats: 1000, StandingRoom: 0},
			Length:                  130,
			Width:                   2.45,
			PassengerCarEquivalents: 4.4,
			DoorOperation:           "serial",
		},
		"rail": {
			Capacity:                Capacity{Seats: 1500, StandingRoom: 0},
			Length:                  200,
			Width:                   2.8,
			PassengerCarEquivalents: 27,
			DoorOperation:           "serial",
		},
		"ferry": {
			Capacity:                Capacity{Seats: 250, StandingRoom: 0},
			Length:                  50,
			Width:                   6,
			PassengerCarEquivalents: 7,
			DoorOperation:           "serial",
		},
	}}
}
