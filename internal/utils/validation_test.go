package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	testCases := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "simple ID", id: "stop_1", wantErr: false},
		{name: "ID with dots and hyphens", id: "node-1.platform", wantErr: false},
		{name: "ID with colon", id: "agency:route:1", wantErr: false},
		{name: "empty ID", id: "", wantErr: true},
		{name: "too long", id: strings.Repeat("a", 101), wantErr: true},
		{name: "script injection", id: "<script>alert(1)</script>", wantErr: true},
		{name: "whitespace", id: "stop 1", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateID(tc.id)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  <b>hello</b>  "))
	assert.Equal(t, "plain", SanitizeInput("plain"))
	assert.Equal(t, "alert(1)", SanitizeInput("<script>alert(1)</script>"))
}
