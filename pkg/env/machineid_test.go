package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineID(t *testing.T) {
	id := MachineID()
	require.NotEmpty(t, id)
	// stable across calls
	require.Equal(t, id, MachineID())
}
