package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVNI(t *testing.T) {
	v, err := parseVNI("42")
	assert.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	v, err = parseVNI("16777215")
	assert.NoError(t, err)
	assert.Equal(t, uint32(1<<24-1), v)

	for _, bad := range []string{"", "x", "-1", "16777216"} {
		_, err := parseVNI(bad)
		assert.Error(t, err, "vni %q should be rejected", bad)
	}
}

func TestAddVLANTagValidation(t *testing.T) {
	for _, bad := range []string{"0", "4095", "x", ""} {
		err := RunAddVLAN("/nonexistent.sock", "eth0.1", "eth0", bad)
		assert.ErrorContains(t, err, "invalid vlan tag")
	}
}
