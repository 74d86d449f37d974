package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeConstructors(t *testing.T) {
	assert.Equal(t, 20.0, TimeOfUse(SOCDefault).SOC, "TOU default SOC")
	assert.Equal(t, 20.0, SelfConsumption(SOCDefault).SOC, "self-consumption default SOC")
	assert.Equal(t, 100.0, EmergencyBackup(SOCDefault).SOC, "backup default SOC")

	m := TimeOfUse(35)
	assert.Equal(t, WorkModeTimeOfUse, m.WorkMode)
	assert.Equal(t, 35.0, m.SOC)
	assert.Equal(t, "Time Of Use (TOU)", m.Name)
}

func TestParseWorkMode(t *testing.T) {
	for in, want := range map[string]WorkMode{
		"time_of_use":      WorkModeTimeOfUse,
		"tou":              WorkModeTimeOfUse,
		"self_consumption": WorkModeSelfConsumption,
		"emergency_backup": WorkModeEmergencyBackup,
		"backup":           WorkModeEmergencyBackup,
		"vpp":              WorkModeVPP,
	} {
		got, err := ParseWorkMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseWorkMode("turbo")
	require.Error(t, err)
}
