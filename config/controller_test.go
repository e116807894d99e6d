package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetControllerConfigKnownTypes(t *testing.T) {
	joint, err := GetControllerConfig("joint_controller")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Millisecond, joint.ControllerDt)

	cartesian, err := GetControllerConfig("cartesian_controller")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cartesian.ControllerDt)

	assert.NotEqual(t, joint.DefaultKp, cartesian.DefaultKp)
}

func TestGetControllerConfigUnknownType(t *testing.T) {
	_, err := GetControllerConfig("bogus_controller")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownControllerType)
}
