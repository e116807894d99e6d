package armmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func TestJointStateAddScale(t *testing.T) {
	a := JointState{Pos: [6]float64{1, 2, 3, 4, 5, 6}, GripperPos: 0.1}
	b := JointState{Pos: [6]float64{1, 1, 1, 1, 1, 1}, GripperPos: 0.2}

	sum := a.Add(b)
	assert.Equal(t, [6]float64{2, 3, 4, 5, 6, 7}, sum.Pos)
	assert.InDelta(t, 0.3, sum.GripperPos, 1e-9)

	scaled := a.Scale(2)
	assert.Equal(t, [6]float64{2, 4, 6, 8, 10, 12}, scaled.Pos)
	assert.InDelta(t, 0.2, scaled.GripperPos, 1e-9)
}

func TestJointStateLerp(t *testing.T) {
	a := JointState{Pos: [6]float64{0, 0, 0, 0, 0, 0}}
	b := JointState{Pos: [6]float64{10, 10, 10, 10, 10, 10}}

	mid := a.Lerp(b, 0.5)
	for _, v := range mid.Pos {
		assert.InDelta(t, 5.0, v, 1e-9)
	}

	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
}

func TestJointStateIsZero(t *testing.T) {
	assert.True(t, JointState{}.IsZero())
	assert.False(t, JointState{Pos: [6]float64{0, 0, 0.001, 0, 0, 0}}.IsZero())
}

func TestGainKpIsZero(t *testing.T) {
	assert.True(t, Gain{}.KpIsZero())
	assert.False(t, Gain{Kp: [6]float64{0, 0, 1, 0, 0, 0}}.KpIsZero())
}

func TestGainLerp(t *testing.T) {
	a := Gain{Kp: [6]float64{0, 0, 0, 0, 0, 0}, GripperKp: 0}
	b := Gain{Kp: [6]float64{100, 100, 100, 100, 100, 100}, GripperKp: 30}

	quarter := a.Lerp(b, 0.25)
	for _, v := range quarter.Kp {
		assert.InDelta(t, 25.0, v, 1e-9)
	}
	assert.InDelta(t, 7.5, quarter.GripperKp, 1e-9)
}

func TestPose6DArrayRoundTrip(t *testing.T) {
	p := Pose6D{Position: r3.Vector{X: 1, Y: 2, Z: 3}, Roll: 0.1, Pitch: 0.2, Yaw: 0.3}
	back := PoseFromArray(p.Array())
	assert.Equal(t, p, back)
}

func TestPose6DNorm(t *testing.T) {
	assert.InDelta(t, 0.0, Pose6D{}.Norm(), 1e-9)
	p := Pose6D{Position: r3.Vector{X: 3, Y: 4, Z: 0}}
	assert.InDelta(t, 5.0, p.Norm(), 1e-9)
}

func TestEEFStateLerpKeepsTargetTimestamp(t *testing.T) {
	a := EEFState{Timestamp: 1.0, Pose6D: Pose6D{Position: r3.Vector{X: 0}}}
	b := EEFState{Timestamp: 2.0, Pose6D: Pose6D{Position: r3.Vector{X: 10}}}

	mid := a.Lerp(b, 0.5)
	assert.InDelta(t, 2.0, mid.Timestamp, 1e-9)
	assert.InDelta(t, 5.0, mid.Pose6D.Position.X, 1e-9)
}
