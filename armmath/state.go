// Package armmath provides the value-struct algebra shared by every
// controller layer: joint- and Cartesian-space state, and PD gains. The
// Add/Scale operations exist solely to support linear interpolation
// (gain transitions, homing, EEF interpolation), mirroring the operator+ /
// operator* overloads on common.h's JointState/Gain/EEFState.
package armmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// JointState is the position/velocity/torque of all six joints plus the
// gripper, at one instant.
type JointState struct {
	Pos [6]float64
	Vel [6]float64
	Torque [6]float64

	GripperPos    float64
	GripperVel    float64
	GripperTorque float64
}

// Add returns the elementwise sum of two joint states.
func (j JointState) Add(o JointState) JointState {
	var out JointState
	for i := range j.Pos {
		out.Pos[i] = j.Pos[i] + o.Pos[i]
		out.Vel[i] = j.Vel[i] + o.Vel[i]
		out.Torque[i] = j.Torque[i] + o.Torque[i]
	}
	out.GripperPos = j.GripperPos + o.GripperPos
	out.GripperVel = j.GripperVel + o.GripperVel
	out.GripperTorque = j.GripperTorque + o.GripperTorque
	return out
}

// Scale returns every field multiplied by a scalar.
func (j JointState) Scale(s float64) JointState {
	var out JointState
	for i := range j.Pos {
		out.Pos[i] = j.Pos[i] * s
		out.Vel[i] = j.Vel[i] * s
		out.Torque[i] = j.Torque[i] * s
	}
	out.GripperPos = j.GripperPos * s
	out.GripperVel = j.GripperVel * s
	out.GripperTorque = j.GripperTorque * s
	return out
}

// Lerp linearly interpolates between j (alpha=0) and o (alpha=1).
func (j JointState) Lerp(o JointState, alpha float64) JointState {
	return j.Scale(1 - alpha).Add(o.Scale(alpha))
}

// IsZero reports whether every joint position is exactly zero, the ARX5
// SDK's proxy for "no telemetry has ever been received". Velocity, torque
// and gripper fields are not checked.
func (j JointState) IsZero() bool {
	for i := range j.Pos {
		if j.Pos[i] != 0 {
			return false
		}
	}
	return true
}

// Gain is the PD (+ feed-forward) gain set applied to joints and gripper.
type Gain struct {
	Kp [6]float64
	Kd [6]float64

	GripperKp float64
	GripperKd float64
}

// Add returns the elementwise sum of two gain sets.
func (g Gain) Add(o Gain) Gain {
	var out Gain
	for i := range g.Kp {
		out.Kp[i] = g.Kp[i] + o.Kp[i]
		out.Kd[i] = g.Kd[i] + o.Kd[i]
	}
	out.GripperKp = g.GripperKp + o.GripperKp
	out.GripperKd = g.GripperKd + o.GripperKd
	return out
}

// Scale returns every field multiplied by a scalar.
func (g Gain) Scale(s float64) Gain {
	var out Gain
	for i := range g.Kp {
		out.Kp[i] = g.Kp[i] * s
		out.Kd[i] = g.Kd[i] * s
	}
	out.GripperKp = g.GripperKp * s
	out.GripperKd = g.GripperKd * s
	return out
}

// Lerp linearly interpolates between g (alpha=0) and o (alpha=1).
func (g Gain) Lerp(o Gain, alpha float64) Gain {
	return g.Scale(1 - alpha).Add(o.Scale(alpha))
}

// KpIsZero reports whether every joint Kp is zero, the precondition the
// servo core checks before allowing a 0->nonzero gain transition.
func (g Gain) KpIsZero() bool {
	for _, kp := range g.Kp {
		if kp != 0 {
			return false
		}
	}
	return true
}

// Pose6D is a Cartesian end-effector pose: a 3D position plus roll/pitch/yaw.
type Pose6D struct {
	Position r3.Vector
	Roll     float64
	Pitch    float64
	Yaw      float64
}

// Array returns the pose as the (x,y,z,roll,pitch,yaw) vector used by the
// interpolation and clipping math.
func (p Pose6D) Array() [6]float64 {
	return [6]float64{p.Position.X, p.Position.Y, p.Position.Z, p.Roll, p.Pitch, p.Yaw}
}

// PoseFromArray is the inverse of Array.
func PoseFromArray(a [6]float64) Pose6D {
	return Pose6D{
		Position: r3.Vector{X: a[0], Y: a[1], Z: a[2]},
		Roll:     a[3],
		Pitch:    a[4],
		Yaw:      a[5],
	}
}

// Norm returns the Euclidean norm of the pose treated as a 6-vector, used
// by the Cartesian controller's degenerate-pose emergency check.
func (p Pose6D) Norm() float64 {
	a := p.Array()
	sum := 0.0
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// EEFState is the timestamped Cartesian analogue of JointState: an
// end-effector pose plus gripper position/velocity/torque, used as the
// command and telemetry type for the Cartesian and high-level controllers.
type EEFState struct {
	Timestamp float64
	Pose6D    Pose6D

	GripperPos    float64
	GripperVel    float64
	GripperTorque float64
}

// Add returns the elementwise sum of two EEF states. Timestamp is not
// summed; the receiver's timestamp is kept, matching how the ARX5 SDK's
// operator+ leaves the scalar timestamp field out of the interpolation.
func (e EEFState) Add(o EEFState) EEFState {
	pa := e.Pose6D.Array()
	oa := o.Pose6D.Array()
	var sum [6]float64
	for i := range pa {
		sum[i] = pa[i] + oa[i]
	}
	return EEFState{
		Timestamp:     e.Timestamp,
		Pose6D:        PoseFromArray(sum),
		GripperPos:    e.GripperPos + o.GripperPos,
		GripperVel:    e.GripperVel + o.GripperVel,
		GripperTorque: e.GripperTorque + o.GripperTorque,
	}
}

// Scale multiplies the pose and gripper fields by a scalar.
func (e EEFState) Scale(s float64) EEFState {
	a := e.Pose6D.Array()
	var scaled [6]float64
	for i := range a {
		scaled[i] = a[i] * s
	}
	return EEFState{
		Timestamp:     e.Timestamp,
		Pose6D:        PoseFromArray(scaled),
		GripperPos:    e.GripperPos * s,
		GripperVel:    e.GripperVel * s,
		GripperTorque: e.GripperTorque * s,
	}
}

// Lerp linearly interpolates between e (alpha=0) and o (alpha=1), keeping
// o's timestamp — used by the Cartesian controller's per-tick command
// interpolation towards the input command's timestamp.
func (e EEFState) Lerp(o EEFState, alpha float64) EEFState {
	out := e.Scale(1 - alpha).Add(o.Scale(alpha))
	out.Timestamp = o.Timestamp
	return out
}
