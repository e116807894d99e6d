// Package highlevel implements the teleoperation shim over a
// cartesian.Controller: it rewrites incoming command timestamps onto a
// fixed look-ahead horizon before handing the command down, matching the
// ARX5 SDK's Arx5HighLevel command-side behavior. The IK-output
// smoothing Arx5HighLevel's background task also performed is instead
// owned by cartesian.Controller, which is where IK output is produced in
// this composition (see SPEC_FULL.md's cartesian/joint wiring).
package highlevel

import (
	"context"
	"time"

	"go.viam.com/rdk/logging"

	"github.com/paladin1013/arx5-sdk/armmath"
	"github.com/paladin1013/arx5-sdk/cartesian"
	"github.com/paladin1013/arx5-sdk/kinematics"
)

// LookAheadTime is added to "now" when rewriting a command's timestamp.
const LookAheadTime = 100 * time.Millisecond

// Controller wraps a *cartesian.Controller, adding look-ahead timestamp
// rewriting for teleoperation-style command streams.
type Controller struct {
	cartesian *cartesian.Controller
	solver    *kinematics.Solver
	logger    logging.Logger
}

// New wraps an already-constructed cartesian.Controller.
func New(cc *cartesian.Controller, solver *kinematics.Solver, logger logging.Logger) *Controller {
	return &Controller{
		cartesian: cc,
		solver:    solver,
		logger:    logger,
	}
}

// GetTimestamp delegates to the underlying Cartesian controller's clock.
func (c *Controller) GetTimestamp() float64 { return c.cartesian.GetTimestamp() }

// SetGain forwards to the Cartesian controller.
func (c *Controller) SetGain(g armmath.Gain) error { return c.cartesian.SetGain(g) }

// GetGain forwards to the Cartesian controller.
func (c *Controller) GetGain() armmath.Gain { return c.cartesian.GetGain() }

// CalibrateGripper forwards to the Cartesian controller.
func (c *Controller) CalibrateGripper() error { return c.cartesian.CalibrateGripper() }

// CalibrateJoint forwards to the Cartesian controller.
func (c *Controller) CalibrateJoint(jointIdx int) error { return c.cartesian.CalibrateJoint(jointIdx) }

// EnableGravityCompensation forwards to the Cartesian controller.
func (c *Controller) EnableGravityCompensation() { c.cartesian.EnableGravityCompensation(c.solver) }

// DisableGravityCompensation forwards to the Cartesian controller.
func (c *Controller) DisableGravityCompensation() { c.cartesian.DisableGravityCompensation() }

// GetJointState forwards to the Cartesian controller.
func (c *Controller) GetJointState() armmath.JointState { return c.cartesian.GetJointState() }

// ForwardKinematics forwards to the Cartesian controller's solver.
func (c *Controller) ForwardKinematics(pos [6]float64) (armmath.Pose6D, error) {
	return c.cartesian.ForwardKinematics(pos)
}

// GetJointCmd forwards to the Cartesian controller.
func (c *Controller) GetJointCmd() (input, output armmath.JointState) {
	return c.cartesian.GetJointCmd()
}

// GetHighState returns the current end-effector state, the high-level
// analogue of GetEEFState.
func (c *Controller) GetHighState() (armmath.EEFState, error) {
	return c.cartesian.GetEEFState()
}

// SetHighCmd sets the pending high-level command. Any timestamp on the
// incoming command — zero or otherwise — is unconditionally rewritten to
// now + LookAheadTime; a nonzero timestamp additionally logs a warning
// that the caller's requested timing is not honored, matching
// high_level.cpp's set_high_cmd.
func (c *Controller) SetHighCmd(cmd armmath.EEFState) error {
	now := c.GetTimestamp()
	if cmd.Timestamp != 0 {
		c.logger.Warnw("highlevel: requested timestamp is not supported yet, overriding with look-ahead", "requested", cmd.Timestamp)
	}
	cmd.Timestamp = now + LookAheadTime.Seconds()
	return c.cartesian.SetEEFCmd(cmd)
}

// GetHighCmd returns the current (input, output) high-level command pair.
func (c *Controller) GetHighCmd() (input, output armmath.EEFState) {
	return c.cartesian.GetEEFCmd()
}

// ResetToHome forwards to the Cartesian controller.
func (c *Controller) ResetToHome(ctx context.Context) error { return c.cartesian.ResetToHome(ctx) }

// SetToDamping forwards to the Cartesian controller.
func (c *Controller) SetToDamping(ctx context.Context) error { return c.cartesian.SetToDamping(ctx) }

// SetLogLevel forwards to the Cartesian controller's logger.
func (c *Controller) SetLogLevel(level logging.Level) { c.cartesian.SetLogLevel(level) }

// Close forwards to the Cartesian controller, which drains and stops its
// underlying joint controller.
func (c *Controller) Close(ctx context.Context) error { return c.cartesian.Close(ctx) }
