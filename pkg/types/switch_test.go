package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchStateString(t *testing.T) {
	s := NewSwitchState(Bool(true), nil, Bool(false))
	assert.Equal(t, "on,unchanged,off", s.String())
}

func TestParseSwitchChannel(t *testing.T) {
	on, err := ParseSwitchChannel("on")
	require.NoError(t, err)
	require.NotNil(t, on)
	assert.True(t, *on)

	off, err := ParseSwitchChannel("OFF")
	require.NoError(t, err)
	require.NotNil(t, off)
	assert.False(t, *off)

	keep, err := ParseSwitchChannel("keep")
	require.NoError(t, err)
	assert.Nil(t, keep)

	_, err = ParseSwitchChannel("maybe")
	require.Error(t, err)
}
