package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRobotConfigKnownModels(t *testing.T) {
	for _, model := range []string{"X5", "L5"} {
		rc, err := GetRobotConfig(model)
		require.NoError(t, err)
		assert.Equal(t, model, rc.Model)
		assert.Equal(t, 6, rc.JointDoF)
		assert.Equal(t, MotorDMJ4310, rc.GripperMotorType)
	}
}

func TestGetRobotConfigUnknownModel(t *testing.T) {
	_, err := GetRobotConfig("X9")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRobotModel)
}

func TestRobotConfigsAreIndependentCopies(t *testing.T) {
	rc1, err := GetRobotConfig("X5")
	require.NoError(t, err)
	rc1.JointPosMax[0] = 999

	rc2, err := GetRobotConfig("X5")
	require.NoError(t, err)
	assert.NotEqual(t, float64(999), rc2.JointPosMax[0])
}

func TestMotorTypeString(t *testing.T) {
	assert.Equal(t, "EC_A4310", MotorECA4310.String())
	assert.Equal(t, "DM_J4310", MotorDMJ4310.String())
	assert.Equal(t, "DM_J4340", MotorDMJ4340.String())
	assert.Equal(t, "None", MotorNone.String())
}
