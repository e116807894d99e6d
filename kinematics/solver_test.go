package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestSolver(t *testing.T) *Solver {
	t.Helper()
	model, err := LoadModel("arx5-test")
	require.NoError(t, err)
	return NewSolver(model, [3]float64{0, 0, -9.807}, DefaultLinkMass())
}

func TestForwardKinematicsAtZeroIsDeterministic(t *testing.T) {
	s := loadTestSolver(t)
	p1, err := s.ForwardKinematics([6]float64{})
	require.NoError(t, err)
	p2, err := s.ForwardKinematics([6]float64{})
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestForwardKinematicsChangesWithJointAngle(t *testing.T) {
	s := loadTestSolver(t)
	home, err := s.ForwardKinematics([6]float64{})
	require.NoError(t, err)
	moved, err := s.ForwardKinematics([6]float64{0, 0.3, 0, 0, 0, 0})
	require.NoError(t, err)
	assert.NotEqual(t, home.Position, moved.Position)
}

func TestInverseKinematicsConvergesOnReachablePose(t *testing.T) {
	s := loadTestSolver(t)
	seedPos := [6]float64{0.1, 0.2, -0.1, 0.05, 0.1, 0}
	target, err := s.ForwardKinematics(seedPos)
	require.NoError(t, err)

	ok, solved := s.InverseKinematics(target, [6]float64{})
	require.True(t, ok)

	got, err := s.ForwardKinematics(solved)
	require.NoError(t, err)
	assert.InDelta(t, target.Position.X, got.Position.X, 1e-3)
	assert.InDelta(t, target.Position.Y, got.Position.Y, 1e-3)
	assert.InDelta(t, target.Position.Z, got.Position.Z, 1e-3)
}

func TestInverseDynamicsZeroWithoutLinkMass(t *testing.T) {
	model, err := LoadModel("arx5-test")
	require.NoError(t, err)
	s := NewSolver(model, [3]float64{0, 0, -9.807}, nil)
	tau := s.InverseDynamics([6]float64{0.1, 0.2, 0.3, 0, 0, 0}, [6]float64{}, [6]float64{})
	assert.Equal(t, [6]float64{}, tau)
}

func TestInverseDynamicsNonZeroWithLinkMass(t *testing.T) {
	s := loadTestSolver(t)
	tau := s.InverseDynamics([6]float64{0, 0.4, -0.2, 0, 0, 0}, [6]float64{}, [6]float64{})
	nonZero := false
	for _, v := range tau {
		if v != 0 {
			nonZero = true
		}
	}
	assert.True(t, nonZero, "gravity compensation torque should be nonzero away from the singular home pose")
}
