package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	seconds, err := ParseOffset("07:20:30")
	require.NoError(t, err)
	assert.Equal(t, 7*3600+20*60+30, seconds)
}

func TestParseOffsetSupportsHoursPastMidnight(t *testing.T) {
	seconds, err := ParseOffset("25:00:00")
	require.NoError(t, err)
	assert.Equal(t, 25*3600, seconds)
}

func TestParseOffsetRejectsMalformedStrings(t *testing.T) {
	badInputs := []string{"", "07:00", "7h", "07:61:00", "07:00:-1", "aa:bb:cc"}
	for _, input := range badInputs {
		_, err := ParseOffset(input)
		assert.Error(t, err, "expected %q to be rejected", input)
	}
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "07:20:00", FormatOffset(7*3600+20*60))
	assert.Equal(t, "00:00:00", FormatOffset(0))
	assert.Equal(t, "26:05:09", FormatOffset(26*3600+5*60+9))
}

func TestFormatOffsetRoundTripsParseOffset(t *testing.T) {
	seconds, err := ParseOffset("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", FormatOffset(seconds))
}
