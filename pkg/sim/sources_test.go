package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSources(t *testing.T) {
	src, err := NewSource(SourceConfig{})
	require.NoError(t, err)
	require.Equal(t, Midscale, src.Sample())
	require.Equal(t, Midscale, src.Sample())

	src, err = NewSource(SourceConfig{Pattern: "constant", Value: 42})
	require.NoError(t, err)
	require.Equal(t, uint16(42), src.Sample())
	require.Equal(t, uint16(42), src.Sample())

	src, err = NewSource(SourceConfig{Pattern: "ramp", Value: 100, Step: 3})
	require.NoError(t, err)
	require.Equal(t, uint16(100), src.Sample())
	require.Equal(t, uint16(103), src.Sample())
	require.Equal(t, uint16(106), src.Sample())

	src, err = NewSource(SourceConfig{Pattern: "ramp", Value: 0xffff})
	require.NoError(t, err)
	require.Equal(t, uint16(0xffff), src.Sample())
	require.Equal(t, uint16(0), src.Sample())

	_, err = NewSource(SourceConfig{Pattern: "noise"})
	require.Error(t, err)
}

func TestConverter(t *testing.T) {
	conv, err := newConverter(ADCConfig{Channels: []SourceConfig{
		{Pattern: "constant", Value: 7},
		{Pattern: "ramp"},
	}})
	require.NoError(t, err)
	require.False(t, conv.Busy())

	conv.Start(0)
	require.Equal(t, uint16(7), conv.Result())
	conv.Start(1)
	require.Equal(t, uint16(0), conv.Result())
	conv.Start(1)
	require.Equal(t, uint16(1), conv.Result())
	// channels beyond the configured list read midscale
	conv.Start(5)
	require.Equal(t, Midscale, conv.Result())
}
