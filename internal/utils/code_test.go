package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCode(t *testing.T) {
	code, err := ParseCode("1000001")
	assert.NoError(t, err)
	assert.Equal(t, CodeMin, code)

	code, err = ParseCode("9999999")
	assert.NoError(t, err)
	assert.Equal(t, CodeMax, code)
}

func TestParseCode_Invalid(t *testing.T) {
	cases := []string{"", "abc", "12.5", "-1000001"}
	for _, input := range cases {
		_, err := ParseCode(input)
		assert.Error(t, err, "input %q should not parse", input)
	}
}

func TestParseCode_OutOfRange(t *testing.T) {
	// 6 digits is below the space, 8 digits is above it.
	for _, input := range []string{"999999", "1000000", "10000000", "0"} {
		_, err := ParseCode(input)
		assert.Error(t, err, "input %q should be out of range", input)
	}
}

func TestCode_Valid(t *testing.T) {
	assert.True(t, Code(1000001).Valid())
	assert.True(t, Code(5551234).Valid())
	assert.False(t, Code(1000000).Valid())
	assert.False(t, Code(0).Valid())
	assert.False(t, Code(10000000).Valid())
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "1000001", Code(1000001).String())
	assert.True(t, Code(0).IsZero())
	assert.False(t, Code(1000001).IsZero())
}
