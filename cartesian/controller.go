// Package cartesian implements the Cartesian-space controller: it owns a
// joint.Controller and drives it through IK, adding end-effector command
// interpolation and EE-velocity clipping on top of the joint controller's
// servo skeleton, per SPEC_FULL.md's resolution of the wraps-not-duplicates
// architecture.
package cartesian

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	viamutils "go.viam.com/utils"

	"github.com/paladin1013/arx5-sdk/armmath"
	"github.com/paladin1013/arx5-sdk/config"
	"github.com/paladin1013/arx5-sdk/filter"
	"github.com/paladin1013/arx5-sdk/joint"
	"github.com/paladin1013/arx5-sdk/kinematics"
	"github.com/paladin1013/arx5-sdk/motorcan"
)

// jointPosFilterWindow is the moving-average window applied to the IK
// output before it reaches the joint controller; 1 disables filtering,
// matching high_level.h's default `_moving_window_size = 1`.
const jointPosFilterWindow = 1

// ErrDegeneratePose is raised (as an emergency trigger) when the
// interpolated output pose is at or near the origin, the same guard
// cartesian_controller.cpp uses before calling inverse_kinematics.
var ErrDegeneratePose = errors.New("cartesian: output pose degenerate (near zero norm)")

const degeneratePoseNormMin = 0.01

// Controller wraps a *joint.Controller with a Cartesian command interface.
type Controller struct {
	joint  *joint.Controller
	solver *kinematics.Solver
	logger logging.Logger

	robotConfig config.RobotConfig
	ctrlConfig  config.ControllerConfig

	// EnableEEVelClipping gates the per-axis end-effector velocity clamp
	// applied upstream of IK, grafted from high_level.cpp's
	// _update_output_cmd (the only place in the original source this
	// logic appears, though SPEC_FULL.md places it in this layer).
	EnableEEVelClipping bool

	cmdMu          sync.Mutex
	inputCmd       armmath.EEFState
	outputCmd      armmath.EEFState
	interpStartCmd armmath.EEFState

	posFilter *filter.MovingAverage6D

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// New constructs a cartesian.Controller by first constructing and
// initializing its own joint.Controller.
func New(model string, gateway *motorcan.Gateway, solver *kinematics.Solver, logger logging.Logger) (*Controller, error) {
	jc, err := joint.New(model, "cartesian_controller", gateway, logger)
	if err != nil {
		return nil, err
	}
	robotConfig, err := config.GetRobotConfig(model)
	if err != nil {
		return nil, err
	}
	ctrlConfig, err := config.GetControllerConfig("cartesian_controller")
	if err != nil {
		return nil, err
	}

	c := &Controller{
		joint:       jc,
		solver:      solver,
		logger:      logger,
		robotConfig:         robotConfig,
		ctrlConfig:          ctrlConfig,
		EnableEEVelClipping: true,
		posFilter:           filter.NewMovingAverage6D(jointPosFilterWindow),
	}

	state := jc.GetState()
	pose, err := solver.ForwardKinematics(state.Pos)
	if err != nil {
		return nil, errors.Wrap(err, "initializing cartesian controller pose")
	}
	init := armmath.EEFState{Pose6D: pose, GripperPos: state.GripperPos}
	c.inputCmd = init
	c.outputCmd = init
	c.interpStartCmd = init
	c.posFilter.Prefill(state.Pos)

	jc.EnableBackgroundSendRecv()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.workers.Add(1)
	viamutils.ManagedGo(func() {
		c.backgroundLoop(ctx)
	}, c.workers.Done)

	return c, nil
}

// GetTimestamp delegates to the underlying joint controller's clock.
func (c *Controller) GetTimestamp() float64 { return c.joint.GetTimestamp() }

// GetRobotConfig returns the robot parameter table.
func (c *Controller) GetRobotConfig() config.RobotConfig { return c.robotConfig }

// GetJointState delegates to the underlying joint controller.
func (c *Controller) GetJointState() armmath.JointState { return c.joint.GetState() }

// GetJointCmd delegates to the underlying joint controller.
func (c *Controller) GetJointCmd() (input, output armmath.JointState) { return c.joint.GetJointCmd() }

// SetGain forwards to the joint controller, preserving its 0->nonzero
// safety precondition.
func (c *Controller) SetGain(g armmath.Gain) error { return c.joint.SetGain(g) }

// GetGain forwards to the joint controller.
func (c *Controller) GetGain() armmath.Gain { return c.joint.GetGain() }

// CalibrateGripper forwards to the joint controller.
func (c *Controller) CalibrateGripper() error { return c.joint.CalibrateGripper() }

// CalibrateJoint forwards to the joint controller.
func (c *Controller) CalibrateJoint(jointIdx int) error { return c.joint.CalibrateJoint(jointIdx) }

// EnableGravityCompensation forwards to the joint controller.
func (c *Controller) EnableGravityCompensation(solver *kinematics.Solver) {
	c.joint.EnableGravityCompensation(solver)
}

// DisableGravityCompensation forwards to the joint controller.
func (c *Controller) DisableGravityCompensation() { c.joint.DisableGravityCompensation() }

// ForwardKinematics computes the end-effector pose for a joint position vector.
func (c *Controller) ForwardKinematics(pos [6]float64) (armmath.Pose6D, error) {
	return c.solver.ForwardKinematics(pos)
}

// GetHomePose returns the end-effector pose at the zero joint configuration.
func (c *Controller) GetHomePose() (armmath.Pose6D, error) {
	return c.solver.ForwardKinematics([6]float64{})
}

// SetEEFCmd sets the pending end-effector command. A command whose
// timestamp is set and already in the past is rejected (stale command).
// Otherwise the interpolation origin is captured as the current output at
// the moment the command is accepted, not at tick time.
func (c *Controller) SetEEFCmd(cmd armmath.EEFState) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if cmd.GripperVel != 0 || cmd.GripperTorque != 0 {
		c.logger.Warn("cartesian: gripper velocity/torque command ignored")
		cmd.GripperVel = 0
		cmd.GripperTorque = 0
	}

	if cmd.Timestamp != 0 && cmd.Timestamp < c.joint.GetTimestamp() {
		c.logger.Warnw("cartesian: rejecting stale eef command", "timestamp", cmd.Timestamp, "now", c.joint.GetTimestamp())
		return nil
	}

	c.inputCmd = cmd
	c.interpStartCmd = c.outputCmd
	return nil
}

// GetEEFCmd returns the current (input, output) EEF command pair.
func (c *Controller) GetEEFCmd() (input, output armmath.EEFState) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.inputCmd, c.outputCmd
}

// GetEEFState returns the current end-effector pose and gripper state
// derived from forward kinematics on the joint controller's telemetry.
func (c *Controller) GetEEFState() (armmath.EEFState, error) {
	state := c.joint.GetState()
	pose, err := c.solver.ForwardKinematics(state.Pos)
	if err != nil {
		return armmath.EEFState{}, err
	}
	return armmath.EEFState{
		Timestamp:     c.joint.GetTimestamp(),
		Pose6D:        pose,
		GripperPos:    state.GripperPos,
		GripperVel:    state.GripperVel,
		GripperTorque: state.GripperTorque,
	}, nil
}

// Tick interpolates the pending EEF command, clips its velocity, solves
// IK, and hands the resulting joint position to the underlying joint
// controller. It runs on its own background pacing loop, started in New
// and stopped in Close, independent of the joint controller's own
// background send/recv tick.
func (c *Controller) Tick() error {
	c.cmdMu.Lock()
	now := c.joint.GetTimestamp()
	input := c.inputCmd
	interpStart := c.interpStartCmd
	prevOutput := c.outputCmd

	var output armmath.EEFState
	switch {
	case input.Timestamp == 0:
		output = input
	case now > input.Timestamp:
		output = input
	default:
		alpha := (now - interpStart.Timestamp) / (input.Timestamp - interpStart.Timestamp)
		output = interpStart.Lerp(input, alpha)
	}
	output.Timestamp = now

	gain := c.joint.GetGain()
	if c.EnableEEVelClipping {
		dt := c.ctrlConfig.ControllerDt.Seconds()
		prevArr := prevOutput.Pose6D.Array()
		outArr := output.Pose6D.Array()
		var currentArr [6]float64
		if currentPose, err := c.solver.ForwardKinematics(c.joint.GetState().Pos); err == nil {
			currentArr = currentPose.Array()
		} else {
			currentArr = prevArr
		}
		var clipped [6]float64
		for i := 0; i < 6; i++ {
			if gain.Kp[i] > 0 {
				maxStep := c.robotConfig.EEVelMax[i] * dt
				d := outArr[i] - prevArr[i]
				if d > maxStep {
					clipped[i] = prevArr[i] + maxStep
				} else if d < -maxStep {
					clipped[i] = prevArr[i] - maxStep
				} else {
					clipped[i] = outArr[i]
				}
			} else {
				clipped[i] = currentArr[i]
			}
		}
		output.Pose6D = armmath.PoseFromArray(clipped)
	}

	c.outputCmd = output
	c.cmdMu.Unlock()

	if output.Pose6D.Norm() < degeneratePoseNormMin {
		return ErrDegeneratePose
	}

	jointState := c.joint.GetState()
	ok, jointPos := c.solver.InverseKinematics(output.Pose6D, jointState.Pos)

	for i := range jointPos {
		if jointPos[i] < c.robotConfig.JointPosMin[i] {
			jointPos[i] = c.robotConfig.JointPosMin[i]
		} else if jointPos[i] > c.robotConfig.JointPosMax[i] {
			jointPos[i] = c.robotConfig.JointPosMax[i]
		}
	}

	if ok {
		filtered := c.posFilter.Filter(jointPos)
		c.joint.SetJointCmd(armmath.JointState{Pos: filtered, GripperPos: output.GripperPos})
	} else {
		c.logger.Debug("cartesian: inverse kinematics failed to converge this tick")
	}
	return nil
}

// backgroundLoop calls Tick at the controller's rate until ctx is done,
// driving the IK pre-step that the underlying joint.Controller's own
// background loop does not perform. Its lifetime is owned by this
// Controller (started from New, stopped from Close), not by whatever
// context a caller happens to pass into a resource constructor.
func (c *Controller) backgroundLoop(ctx context.Context) {
	dt := c.ctrlConfig.ControllerDt
	for {
		start := time.Now()
		if err := c.Tick(); err != nil {
			if errors.Is(err, ErrDegeneratePose) {
				c.logger.Error("cartesian: degenerate output pose, entering emergency state; check get_home_pose()")
				c.joint.EnterEmergencyState(ctx)
				return
			}
		}
		if remaining := dt - time.Since(start); remaining > 0 {
			viamutils.SelectContextOrWait(ctx, remaining)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// ResetToHome drives the arm to its home pose with the gripper fully open.
// It runs its own ramp in EEF space, interpolating the gain and the EEF
// command together and issuing each step through SetEEFCmd, following
// cartesian_controller.cpp's reset_to_home; the joint controller's
// ResetToHome is not used.
func (c *Controller) ResetToHome(ctx context.Context) error {
	homePose, err := c.GetHomePose()
	if err != nil {
		return err
	}
	initState := c.joint.GetState()
	if initState.IsZero() {
		return errors.New("cartesian: cannot reset to home, controller not initialized")
	}
	initGain := c.GetGain()
	targetGain := initGain
	if initGain.KpIsZero() {
		targetGain = armmath.Gain{Kp: c.ctrlConfig.DefaultKp, Kd: c.ctrlConfig.DefaultKd,
			GripperKp: c.ctrlConfig.DefaultGripperKp, GripperKd: c.ctrlConfig.DefaultGripperKd}
	}

	targetGripperPos := c.robotConfig.GripperWidth

	maxPosError := 0.0
	for _, p := range initState.Pos {
		if a := math.Abs(p); a > maxPosError {
			maxPosError = a
		}
	}
	if g := math.Abs(initState.GripperPos-targetGripperPos) * 2 / c.robotConfig.GripperWidth; g > maxPosError {
		maxPosError = g
	}
	steps := int(math.Max(2*maxPosError, 0.5) / c.ctrlConfig.ControllerDt.Seconds())
	if steps < 1 {
		steps = 1
	}

	initPose, err := c.solver.ForwardKinematics(initState.Pos)
	if err != nil {
		return err
	}
	initCmd := armmath.EEFState{Pose6D: initPose, GripperPos: initState.GripperPos}
	targetCmd := armmath.EEFState{Pose6D: homePose, GripperPos: targetGripperPos}

	for i := 0; i <= steps; i++ {
		alpha := float64(i) / float64(steps)
		if err := c.SetGain(initGain.Lerp(targetGain, alpha)); err != nil {
			return err
		}
		cmd := initCmd.Lerp(targetCmd, alpha)
		cmd.Timestamp = 0
		if err := c.SetEEFCmd(cmd); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	time.Sleep(500 * time.Millisecond)
	return nil
}

// SetToDamping computes the current pose, sets a damping gain (zero Kp,
// default Kd) and issues a single EEF command at that pose, then holds; the Cartesian
// controller's set_to_damping is single-shot rather than the joint
// controller's interpolated ramp, matching cartesian_controller.cpp.
func (c *Controller) SetToDamping(ctx context.Context) error {
	state, err := c.GetEEFState()
	if err != nil {
		return err
	}
	targetGain := armmath.Gain{Kd: c.ctrlConfig.DefaultKd, GripperKd: c.ctrlConfig.DefaultGripperKd}
	if err := c.SetGain(targetGain); err != nil {
		return err
	}
	state.Timestamp = 0
	if err := c.SetEEFCmd(state); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	return nil
}

// SetLogLevel forwards to the underlying joint controller's logger.
func (c *Controller) SetLogLevel(level logging.Level) { c.joint.SetLogLevel(level) }

// Close stops this controller's own background Tick loop, then closes
// the underlying joint controller, which performs the damping
// drain-and-exit sequence.
func (c *Controller) Close(ctx context.Context) error {
	c.cancel()
	c.workers.Wait()
	return c.joint.Close(ctx)
}
