// Package kinematics implements the forward/inverse kinematics and
// gravity-compensation primitives the servo controllers need. The
// kinematic chain itself is treated as an external collaborator — it is
// loaded the same way the teacher module loads its arm's kinematic model,
// through go.viam.com/rdk/referenceframe's JSON model format — and this
// package only adds the numerical solvers (damped least squares IK,
// potential-energy-gradient gravity compensation) on top of it.
package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/mat"

	"github.com/paladin1013/arx5-sdk/armmath"
)

// Solver-tuning constants, taken from the ARX5 SDK's Arx5Solver (_EPS,
// _MAXITER): the damped least squares loop stops once the pose error norm
// drops below eps, or after maxIter iterations.
const (
	defaultEPS       = 1e-5
	defaultMaxIter   = 500
	defaultDampingSq = 1e-4 // lambda^2 in the DLS normal equations
	finiteDiffStep   = 1e-6
)

// Solver computes FK/IK/gravity-compensation for one kinematic chain.
type Solver struct {
	model  referenceframe.Model
	dof    int
	linkMass []float64 // approximate per-joint downstream point mass, kg
	gravity  [3]float64
}

// NewSolver builds a Solver around an already-loaded kinematic model.
// linkMass approximates each joint's downstream mass for the gravity
// potential-energy gradient; a nil slice disables gravity compensation
// (InverseDynamics then always returns zero torque).
func NewSolver(model referenceframe.Model, gravity [3]float64, linkMass []float64) *Solver {
	return &Solver{
		model:    model,
		dof:      len(model.DoF()),
		linkMass: linkMass,
		gravity:  gravity,
	}
}

func inputsFromArray(pos [6]float64, dof int) []referenceframe.Input {
	in := make([]referenceframe.Input, dof)
	for i := 0; i < dof && i < 6; i++ {
		in[i] = referenceframe.Input{Value: pos[i]}
	}
	return in
}

func poseToPose6D(p spatialmath.Pose) armmath.Pose6D {
	pt := p.Point()
	ea := p.Orientation().EulerAngles()
	return armmath.Pose6D{
		Position: pt,
		Roll:     ea.Roll,
		Pitch:    ea.Pitch,
		Yaw:      ea.Yaw,
	}
}

// ForwardKinematics computes the end-effector pose for a joint position
// vector.
func (s *Solver) ForwardKinematics(pos [6]float64) (armmath.Pose6D, error) {
	pose, err := s.model.Transform(inputsFromArray(pos, s.dof))
	if err != nil {
		return armmath.Pose6D{}, errors.Wrap(err, "forward kinematics")
	}
	return poseToPose6D(pose), nil
}

// numericJacobian returns the 6xN Jacobian of the pose-as-6-vector map at
// pos, computed by forward finite differences. The kinematic chain is
// treated as a black box; this avoids depending on any analytic-Jacobian
// method the loaded model may or may not expose.
func (s *Solver) numericJacobian(pos [6]float64) (*mat.Dense, error) {
	base, err := s.ForwardKinematics(pos)
	if err != nil {
		return nil, err
	}
	baseArr := base.Array()

	j := mat.NewDense(6, s.dof, nil)
	for col := 0; col < s.dof; col++ {
		perturbed := pos
		perturbed[col] += finiteDiffStep
		p, err := s.ForwardKinematics(perturbed)
		if err != nil {
			return nil, err
		}
		pArr := p.Array()
		for row := 0; row < 6; row++ {
			j.Set(row, col, (pArr[row]-baseArr[row])/finiteDiffStep)
		}
	}
	return j, nil
}

// InverseKinematics solves for a joint position vector reaching target,
// seeded from currentJointPos, using damped least squares (the numerical
// family the ARX5 SDK's KDL::ChainIkSolverPos_LMA belongs to). It reports
// false if the iteration limit is reached without converging.
func (s *Solver) InverseKinematics(target armmath.Pose6D, currentJointPos [6]float64) (bool, [6]float64) {
	pos := currentJointPos
	targetArr := target.Array()

	for iter := 0; iter < defaultMaxIter; iter++ {
		cur, err := s.ForwardKinematics(pos)
		if err != nil {
			return false, pos
		}
		curArr := cur.Array()

		errVec := mat.NewVecDense(6, nil)
		var errNormSq float64
		for i := 0; i < 6; i++ {
			d := targetArr[i] - curArr[i]
			errVec.SetVec(i, d)
			errNormSq += d * d
		}
		if math.Sqrt(errNormSq) < defaultEPS {
			return true, pos
		}

		jac, err := s.numericJacobian(pos)
		if err != nil {
			return false, pos
		}

		// Damped least squares: dq = J^T (J J^T + lambda^2 I)^-1 * e
		var jjt mat.Dense
		jjt.Mul(jac, jac.T())
		for i := 0; i < 6; i++ {
			jjt.Set(i, i, jjt.At(i, i)+defaultDampingSq)
		}

		var jjtInv mat.Dense
		if err := jjtInv.Inverse(&jjt); err != nil {
			return false, pos
		}

		var tmp mat.VecDense
		tmp.MulVec(&jjtInv, errVec)

		var dq mat.VecDense
		dq.MulVec(jac.T(), &tmp)

		for i := 0; i < s.dof && i < 6; i++ {
			pos[i] += dq.AtVec(i)
		}
	}
	return false, pos
}

// InverseDynamics returns the joint torque needed to counteract gravity
// (and, in principle, the inertial/coriolis terms) at the given joint
// state. This implementation covers gravity compensation, the servo
// core's only consumer, via the gradient of gravitational potential
// energy with respect to joint position: tau_i = -dU/dq_i, U = sum_link
// mass_link * g . position_link(q). vel and acc are accepted for
// interface parity with the SDK's inverse_dynamics(pos, vel, acc) but do
// not currently affect the result.
func (s *Solver) InverseDynamics(pos, vel, acc [6]float64) [6]float64 {
	var tau [6]float64
	if len(s.linkMass) == 0 {
		return tau
	}

	potential := func(p [6]float64) float64 {
		u := 0.0
		perturbed := p
		for link, mass := range s.linkMass {
			if link >= s.dof {
				break
			}
			// Every link's mass is placed at the end-effector position given
			// by the full chain's FK, as a proxy for that link's center of
			// mass in the absence of a per-link transform accessor on the
			// loaded model.
			pose, err := s.ForwardKinematics(perturbed)
			if err != nil {
				continue
			}
			u += mass * (s.gravity[0]*pose.Position.X + s.gravity[1]*pose.Position.Y + s.gravity[2]*pose.Position.Z)
		}
		return u
	}

	for i := 0; i < s.dof && i < 6; i++ {
		plus := pos
		minus := pos
		plus[i] += finiteDiffStep
		minus[i] -= finiteDiffStep
		dU := (potential(plus) - potential(minus)) / (2 * finiteDiffStep)
		tau[i] = -dU
	}
	return tau
}
