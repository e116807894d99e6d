// Package joint implements the joint-space servo controller: a two-mutex,
// fixed-rate background control loop over a CAN motor gateway, with the
// safety clipping, gain-transition guard and emergency-state handling
// carried over from the ARX5 SDK's Arx5JointController.
package joint

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"
	viamutils "go.viam.com/utils"

	"github.com/paladin1013/arx5-sdk/armmath"
	"github.com/paladin1013/arx5-sdk/config"
	"github.com/paladin1013/arx5-sdk/kinematics"
	"github.com/paladin1013/arx5-sdk/motorcan"
)

var (
	// ErrNoMotorsResponding is returned by Init when telemetry is still
	// all-zero after the warm-up sequence.
	ErrNoMotorsResponding = errors.New("joint: none of the motors are initialized, please check the connection")
	// ErrUnsafeGainTransition is returned by SetGain when enabling a
	// zeroed Kp would produce too large a step given the current position
	// error.
	ErrUnsafeGainTransition = errors.New("joint: unsafe gain transition, position error too large")
)

const (
	warmupTicks           = 10
	warmupTickInterval    = 5 * time.Millisecond
	overrunLogThreshold   = 500 * time.Microsecond
	communicateSleep      = 150 * time.Microsecond
	unsafeGainMaxPosError = 0.2 // rad
	dampingExitDrain      = 2 * time.Second
	resetHomeStepInterval = 5 * time.Millisecond
	resetHomeSettle       = 500 * time.Millisecond
	dampingStepCount      = 20
	dampingStepInterval   = 5 * time.Millisecond
)

// Controller is a joint-space servo core owning exclusive access to one
// motorcan.Gateway.
type Controller struct {
	robotConfig config.RobotConfig
	ctrlConfig  config.ControllerConfig
	gateway     *motorcan.Gateway
	logger      logging.Logger

	solverMu sync.RWMutex
	solver   *kinematics.Solver

	cmdMu         sync.Mutex
	inputCmd      armmath.JointState
	outputCmd     armmath.JointState
	prevOutputCmd armmath.JointState
	gain          armmath.Gain

	stateMu    sync.RWMutex
	jointState armmath.JointState

	overCurrentCnt int32

	startTime time.Time

	backgroundRunning   atomic.Bool
	destroyBackground   atomic.Bool
	gravityCompensation atomic.Bool

	// replyIDs are the CAN ids telemetry for joints [0..DoF) and, at the
	// last index, the gripper actually arrive on. Computed once from
	// motorcan.ReplyIDs so this lookup and the receive-socket filter
	// built from the same function can never drift apart.
	replyIDs []uint32

	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// New constructs a Controller for the given model/controller-type pair,
// taking ownership of gateway. It performs the DM-motor enable handshake
// and a blocking warm-up sequence before returning, matching
// joint_controller.cpp's constructor + _init_robot.
func New(model, controllerType string, gateway *motorcan.Gateway, logger logging.Logger) (*Controller, error) {
	robotConfig, err := config.GetRobotConfig(model)
	if err != nil {
		return nil, err
	}
	ctrlConfig, err := config.GetControllerConfig(controllerType)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		robotConfig: robotConfig,
		ctrlConfig:  ctrlConfig,
		gateway:     gateway,
		replyIDs:    motorcan.ReplyIDs(robotConfig),
		logger:      logger,
		startTime:   time.Now(),
	}
	c.gain = armmath.Gain{
		Kd:        ctrlConfig.DefaultKd,
		GripperKd: ctrlConfig.DefaultGripperKd,
	}

	if err := c.initRobot(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.workers.Add(1)
	viamutils.ManagedGo(func() {
		c.backgroundLoop(ctx)
	}, c.workers.Done)

	return c, nil
}

func (c *Controller) initRobot() error {
	for i, mt := range c.robotConfig.MotorType {
		if mt == config.MotorDMJ4310 || mt == config.MotorDMJ4340 {
			if err := c.gateway.EnableDMMotor(uint32(c.robotConfig.MotorID[i])); err != nil {
				return errors.Wrapf(err, "enabling joint %d motor", i)
			}
		}
	}
	if c.robotConfig.GripperMotorType == config.MotorDMJ4310 || c.robotConfig.GripperMotorType == config.MotorDMJ4340 {
		if err := c.gateway.EnableDMMotor(uint32(c.robotConfig.GripperMotorID)); err != nil {
			return errors.Wrap(err, "enabling gripper motor")
		}
	}

	c.setJointCmdLocked(armmath.JointState{})

	for i := 0; i < warmupTicks; i++ {
		if err := c.SendRecvOnce(); err != nil {
			return errors.Wrap(err, "warm-up tick")
		}
		time.Sleep(warmupTickInterval)
	}

	c.stateMu.RLock()
	zero := c.jointState.IsZero()
	c.stateMu.RUnlock()
	if zero {
		return ErrNoMotorsResponding
	}
	return nil
}

// GetTimestamp returns seconds elapsed since the controller was created.
func (c *Controller) GetTimestamp() float64 {
	return time.Since(c.startTime).Seconds()
}

// EnableBackgroundSendRecv turns the background servo loop on.
func (c *Controller) EnableBackgroundSendRecv() {
	c.backgroundRunning.Store(true)
	c.logger.Info("joint: background send/recv enabled")
}

// DisableBackgroundSendRecv turns the background servo loop off; SendRecvOnce
// can still be called directly while disabled.
func (c *Controller) DisableBackgroundSendRecv() {
	c.backgroundRunning.Store(false)
	c.logger.Info("joint: background send/recv disabled")
}

// EnableGravityCompensation attaches a kinematics.Solver whose inverse
// dynamics output is added to the commanded torque every tick.
func (c *Controller) EnableGravityCompensation(solver *kinematics.Solver) {
	c.solverMu.Lock()
	c.solver = solver
	c.solverMu.Unlock()
	c.gravityCompensation.Store(true)
}

// DisableGravityCompensation stops adding gravity-compensation torque.
func (c *Controller) DisableGravityCompensation() {
	c.gravityCompensation.Store(false)
}

// SetLogLevel changes the controller's logger verbosity.
func (c *Controller) SetLogLevel(level logging.Level) {
	c.logger.SetLevel(level)
}

// GetRobotConfig returns the robot parameter table this controller was built with.
func (c *Controller) GetRobotConfig() config.RobotConfig { return c.robotConfig }

// GetControllerConfig returns the controller-timing table this controller was built with.
func (c *Controller) GetControllerConfig() config.ControllerConfig { return c.ctrlConfig }

// SetJointCmd sets the pending joint command. Nonzero gripper velocity or
// torque are rejected (zeroed, with a warning) since the gripper is
// position-controlled only, matching the SDK's set_joint_cmd.
func (c *Controller) SetJointCmd(cmd armmath.JointState) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	c.setJointCmdLocked(cmd)
}

func (c *Controller) setJointCmdLocked(cmd armmath.JointState) {
	if cmd.GripperVel != 0 || cmd.GripperTorque != 0 {
		c.logger.Warn("joint: gripper velocity/torque command ignored, gripper is position-controlled")
		cmd.GripperVel = 0
		cmd.GripperTorque = 0
	}
	c.inputCmd = cmd
}

// GetJointCmd returns the current (input, output) command pair.
func (c *Controller) GetJointCmd() (input, output armmath.JointState) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.inputCmd, c.outputCmd
}

// GetState returns the most recently decoded telemetry.
func (c *Controller) GetState() armmath.JointState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.jointState
}

// GetToolPose runs forward kinematics on the current joint state through
// the solver attached by EnableGravityCompensation; it fails if no solver
// has been attached.
func (c *Controller) GetToolPose() (armmath.Pose6D, error) {
	c.solverMu.RLock()
	solver := c.solver
	c.solverMu.RUnlock()
	if solver == nil {
		return armmath.Pose6D{}, errors.New("joint: no solver attached")
	}
	return solver.ForwardKinematics(c.GetState().Pos)
}

// SetGain sets the controller's PD gains. Enabling a previously-zeroed Kp
// is only allowed when the current position error is small, preventing a
// large torque step; see unsafeGainMaxPosError.
func (c *Controller) SetGain(newGain armmath.Gain) error {
	state := c.GetState()

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if c.gain.KpIsZero() && !newGain.KpIsZero() {
		maxErr := 0.0
		for i := range state.Pos {
			d := math.Abs(state.Pos[i] - c.outputCmd.Pos[i])
			if d > maxErr {
				maxErr = d
			}
		}
		if maxErr > unsafeGainMaxPosError {
			c.backgroundRunning.Store(false)
			return errors.Wrapf(ErrUnsafeGainTransition, "max position error %.4f rad", maxErr)
		}
	}
	c.gain = newGain
	return nil
}

// GetGain returns the controller's current PD gains.
func (c *Controller) GetGain() armmath.Gain {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.gain
}

// CalibrateGripper zeroes the gripper motor's recorded home offset.
func (c *Controller) CalibrateGripper() error {
	return c.gateway.ZeroMotorOffset(uint32(c.robotConfig.GripperMotorID))
}

// CalibrateJoint zeroes joint jointIdx's (0-based) motor home offset.
func (c *Controller) CalibrateJoint(jointIdx int) error {
	if jointIdx < 0 || jointIdx >= c.robotConfig.JointDoF {
		return errors.Errorf("joint: index %d out of range", jointIdx)
	}
	return c.gateway.ZeroMotorOffset(uint32(c.robotConfig.MotorID[jointIdx]))
}

// backgroundLoop is the fixed-rate servo tick. It never checks
// destroyBackground while an emergency is in progress; enterEmergencyState
// is a deliberately terminal state.
func (c *Controller) backgroundLoop(ctx context.Context) {
	dt := c.ctrlConfig.ControllerDt
	for !c.destroyBackground.Load() {
		tickStart := time.Now()
		if c.backgroundRunning.Load() {
			c.overCurrentProtection()
			if c.checkJointStateSanity() {
				c.enterEmergencyState(ctx)
				return
			}
			if err := c.SendRecvOnce(); err != nil {
				c.logger.Debugw("joint: send/recv error", "error", err)
			}
		}
		elapsed := time.Since(tickStart)
		if remaining := dt - elapsed; remaining > 0 {
			viamutils.SelectContextOrWait(ctx, remaining)
		} else if elapsed-dt > overrunLogThreshold {
			c.logger.Debugw("joint: tick overrun", "overrun", elapsed-dt)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// SendRecvOnce runs one full tick: recompute the output command, transmit
// it to every motor, and decode the resulting telemetry into JointState.
func (c *Controller) SendRecvOnce() error {
	c.updateOutputCmd()

	c.cmdMu.Lock()
	out := c.outputCmd
	gain := c.gain
	c.cmdMu.Unlock()

	for i := 0; i < c.robotConfig.JointDoF; i++ {
		sendStart := time.Now()
		motorID := uint32(c.robotConfig.MotorID[i])
		motorType := c.robotConfig.MotorType[i]
		var err error
		if motorType == config.MotorECA4310 {
			err = c.gateway.SendECMotorCmd(motorID, out.Pos[i], out.Vel[i], gain.Kp[i], gain.Kd[i], out.Torque[i])
		} else {
			err = c.gateway.SendDMMotorCmd(motorID, motorType, out.Pos[i], out.Vel[i], gain.Kp[i], gain.Kd[i], out.Torque[i])
		}
		if err != nil {
			return err
		}
		if remaining := communicateSleep - time.Since(sendStart); remaining > 0 {
			time.Sleep(remaining)
		}
	}

	if c.robotConfig.GripperMotorType == config.MotorDMJ4310 || c.robotConfig.GripperMotorType == config.MotorDMJ4340 {
		sendStart := time.Now()
		gripperMotorPos := out.GripperPos / c.robotConfig.GripperWidth * c.robotConfig.GripperOpenReadout
		if err := c.gateway.SendDMMotorCmd(uint32(c.robotConfig.GripperMotorID), c.robotConfig.GripperMotorType,
			gripperMotorPos, 0, gain.GripperKp, gain.GripperKd, out.GripperTorque); err != nil {
			return err
		}
		if remaining := communicateSleep - time.Since(sendStart); remaining > 0 {
			time.Sleep(remaining)
		}
	}

	c.decodeTelemetry()
	return nil
}

func (c *Controller) decodeTelemetry() {
	var next armmath.JointState
	for i := 0; i < c.robotConfig.JointDoF; i++ {
		msg, ok := c.gateway.GetMotorMsg(c.replyIDs[i])
		if !ok {
			continue
		}
		next.Pos[i] = msg.AngleActualRad
		next.Vel[i] = msg.SpeedActualRad
		next.Torque[i] = c.decodeTorque(c.robotConfig.MotorType[i], msg.CurrentActualFloat)
	}
	gripperReplyID := c.replyIDs[c.robotConfig.JointDoF]
	if msg, ok := c.gateway.GetMotorMsg(gripperReplyID); ok {
		next.GripperPos = msg.AngleActualRad / c.robotConfig.GripperOpenReadout * c.robotConfig.GripperWidth
		next.GripperVel = msg.SpeedActualRad
		next.GripperTorque = c.decodeTorque(c.robotConfig.GripperMotorType, msg.CurrentActualFloat)
	}

	c.stateMu.Lock()
	c.jointState = next
	c.stateMu.Unlock()
}

func (c *Controller) decodeTorque(motorType config.MotorType, current float64) float64 {
	switch motorType {
	case config.MotorECA4310:
		// Empirical correction: the torque constant is applied twice for
		// this motor family's telemetry, not once.
		return current * ecA4310TorqueConstantSquaredCorrection()
	case config.MotorDMJ4310:
		return current * 0.424
	case config.MotorDMJ4340:
		return current * 1.0
	default:
		return current
	}
}

func ecA4310TorqueConstantSquaredCorrection() float64 {
	const k = 1.4
	return k * k
}

// updateOutputCmd applies the shared pipeline (gravity compensation,
// joint and gripper velocity clipping, joint and gripper position
// clipping, gripper stall suppression, torque clipping) to move inputCmd
// into outputCmd.
func (c *Controller) updateOutputCmd() {
	state := c.GetState()

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	c.prevOutputCmd = c.outputCmd
	out := c.inputCmd
	gain := c.gain
	dt := c.ctrlConfig.ControllerDt.Seconds()

	if c.gravityCompensation.Load() {
		c.solverMu.RLock()
		solver := c.solver
		c.solverMu.RUnlock()
		if solver != nil {
			grav := solver.InverseDynamics(state.Pos, [6]float64{}, [6]float64{})
			for i := range out.Torque {
				out.Torque[i] += grav[i]
			}
		}
	}

	for i := 0; i < c.robotConfig.JointDoF; i++ {
		if gain.Kp[i] > 0 {
			maxStep := c.robotConfig.JointVelMax[i] * dt
			delta := out.Pos[i] - c.prevOutputCmd.Pos[i]
			if delta > maxStep {
				out.Pos[i] = c.prevOutputCmd.Pos[i] + maxStep
			} else if delta < -maxStep {
				out.Pos[i] = c.prevOutputCmd.Pos[i] - maxStep
			}
		} else {
			out.Pos[i] = state.Pos[i]
		}
	}

	if gain.GripperKp > 0 {
		maxStep := c.robotConfig.GripperVelMax * dt
		delta := out.GripperPos - c.prevOutputCmd.GripperPos
		if delta > maxStep {
			out.GripperPos = c.prevOutputCmd.GripperPos + maxStep
		} else if delta < -maxStep {
			out.GripperPos = c.prevOutputCmd.GripperPos - maxStep
		}
	} else {
		out.GripperPos = state.GripperPos
	}

	for i := 0; i < c.robotConfig.JointDoF; i++ {
		lo, hi := c.robotConfig.JointPosMin[i], c.robotConfig.JointPosMax[i]
		if out.Pos[i] < lo {
			c.logger.Debugw("joint: clipping position to min", "joint", i)
			out.Pos[i] = lo
		} else if out.Pos[i] > hi {
			c.logger.Debugw("joint: clipping position to max", "joint", i)
			out.Pos[i] = hi
		}
	}

	const gripperTol = 0.005
	if out.GripperPos < -gripperTol {
		c.logger.Debug("joint: clipping gripper position to 0")
	}
	if out.GripperPos < 0 {
		out.GripperPos = 0
	} else if out.GripperPos > c.robotConfig.GripperWidth {
		out.GripperPos = c.robotConfig.GripperWidth
	}

	if math.Abs(state.GripperTorque) > c.robotConfig.GripperTorqueMax/2 {
		delta := out.GripperPos - c.prevOutputCmd.GripperPos
		sign := 1.0
		if state.GripperTorque < 0 {
			sign = -1.0
		}
		if delta*sign > 0 {
			c.logger.Debug("joint: gripper stall suppression, holding position")
			out.GripperPos = c.prevOutputCmd.GripperPos
		}
	}

	for i := 0; i < c.robotConfig.JointDoF; i++ {
		max := c.robotConfig.JointTorqueMax[i]
		if out.Torque[i] > max {
			out.Torque[i] = max
		} else if out.Torque[i] < -max {
			out.Torque[i] = -max
		}
	}

	c.outputCmd = out
}

func (c *Controller) overCurrentProtection() {
	state := c.GetState()
	violated := false
	for i := 0; i < c.robotConfig.JointDoF; i++ {
		if math.Abs(state.Torque[i]) > c.robotConfig.JointTorqueMax[i] {
			violated = true
			break
		}
	}
	if !violated && math.Abs(state.GripperTorque) > c.robotConfig.GripperTorqueMax {
		violated = true
	}
	if violated {
		atomic.AddInt32(&c.overCurrentCnt, 1)
	} else {
		atomic.StoreInt32(&c.overCurrentCnt, 0)
	}
}

func (c *Controller) checkJointStateSanity() bool {
	state := c.GetState()
	c.cmdMu.Lock()
	input := c.inputCmd
	c.cmdMu.Unlock()

	for i := 0; i < c.robotConfig.JointDoF; i++ {
		lo, hi := c.robotConfig.JointPosMin[i], c.robotConfig.JointPosMax[i]
		if state.Pos[i] > hi+math.Pi || state.Pos[i] < lo-math.Pi {
			c.logger.Errorw("joint: sanity check failed, joint state position out of range", "joint", i)
			return true
		}
		if input.Pos[i] > hi+math.Pi || input.Pos[i] < lo-math.Pi {
			c.logger.Errorw("joint: sanity check failed, joint command position out of range", "joint", i)
			return true
		}
		if math.Abs(state.Torque[i]) > 100*c.robotConfig.JointTorqueMax[i] {
			c.logger.Errorw("joint: sanity check failed, torque far exceeds max", "joint", i)
			return true
		}
	}
	if state.GripperPos < -0.005 || state.GripperPos > c.robotConfig.GripperWidth+0.005 {
		c.logger.Error("joint: sanity check failed, gripper position out of range")
		return true
	}
	if atomic.LoadInt32(&c.overCurrentCnt) > int32(c.ctrlConfig.OverCurrentCntMax) {
		c.logger.Error("joint: sanity check failed, over-current count exceeded")
		return true
	}
	return false
}

// EnterEmergencyState installs an aggressive damping profile and loops
// forever re-applying it, never returning. Exported so that a Cartesian
// controller layered on top of this one (which detects its own
// degenerate-pose condition upstream of IK) can trigger the same
// terminal emergency state this controller enters on failed sanity
// checks; callers should invoke this from their own background
// goroutine, since it blocks forever by design.
func (c *Controller) EnterEmergencyState(ctx context.Context) {
	c.enterEmergencyState(ctx)
}

// enterEmergencyState installs an aggressive damping profile and loops
// forever re-applying it. This is a deliberately terminal state: it does
// not check destroyBackground and the only way out is process restart,
// mirroring the ARX5 SDK's _enter_emergency_state.
func (c *Controller) enterEmergencyState(ctx context.Context) {
	c.logger.Error("joint: entering emergency state")
	dampingGain := armmath.Gain{Kd: c.ctrlConfig.DefaultKd, GripperKd: c.ctrlConfig.DefaultGripperKd}
	dampingGain.Kd[1] *= 3
	dampingGain.Kd[2] *= 3
	dampingGain.Kd[3] *= 1.5

	c.cmdMu.Lock()
	c.gain = dampingGain
	c.inputCmd.Vel = [6]float64{}
	c.inputCmd.Torque = [6]float64{}
	c.cmdMu.Unlock()

	for {
		if err := c.SendRecvOnce(); err != nil {
			c.logger.Debugw("joint: emergency tick error", "error", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ResetToHome drives the arm from its current state back to the zero
// position over an interpolated ramp, then settles, matching the SDK's
// reset_to_home.
func (c *Controller) ResetToHome(ctx context.Context) error {
	initState := c.GetState()
	if initState.IsZero() {
		return errors.New("joint: cannot reset to home, controller not initialized")
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

	wasRunning := c.backgroundRunning.Load()
	c.backgroundRunning.Store(true)
	defer c.backgroundRunning.Store(wasRunning)

	initCmd := armmath.JointState{Pos: initState.Pos, GripperPos: initState.GripperPos}
	targetCmd := armmath.JointState{GripperPos: targetGripperPos}

	for i := 0; i <= steps; i++ {
		alpha := float64(i) / float64(steps)
		c.SetJointCmd(initCmd.Lerp(targetCmd, alpha))
		time.Sleep(resetHomeStepInterval)
		if err := c.SetGain(initGain.Lerp(targetGain, alpha)); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	time.Sleep(resetHomeSettle)
	return nil
}

// SetToDamping drives Kp to zero and Kd to the default damping profile
// over a short interpolated ramp, then holds, matching the SDK's
// set_to_damping.
func (c *Controller) SetToDamping(ctx context.Context) error {
	initGain := c.GetGain()
	targetGain := armmath.Gain{Kd: c.ctrlConfig.DefaultKd, GripperKd: c.ctrlConfig.DefaultGripperKd}

	wasRunning := c.backgroundRunning.Load()
	c.backgroundRunning.Store(true)
	defer c.backgroundRunning.Store(wasRunning)

	for i := 0; i <= dampingStepCount; i++ {
		alpha := float64(i) / float64(dampingStepCount)
		state := c.GetState()
		cmd := armmath.JointState{Pos: state.Pos, GripperPos: state.GripperPos}
		c.SetJointCmd(cmd)
		if err := c.SetGain(initGain.Lerp(targetGain, alpha)); err != nil {
			return err
		}
		time.Sleep(dampingStepInterval)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	time.Sleep(resetHomeSettle)
	return nil
}

// Close performs the graceful drain-and-exit sequence: a high-damping
// gain, a zero setpoint, a 2-second forced-running drain window, then
// stops the background loop for good. Grounded on
// joint_controller.cpp's destructor.
func (c *Controller) Close(ctx context.Context) error {
	dampingGain := armmath.Gain{Kd: c.ctrlConfig.DefaultKd, GripperKd: c.ctrlConfig.DefaultGripperKd}
	dampingGain.Kd[0] *= 3
	dampingGain.Kd[1] *= 3
	dampingGain.Kd[2] *= 3
	dampingGain.Kd[3] *= 1.5

	if err := c.SetGain(dampingGain); err != nil {
		c.logger.Debugw("joint: close-time gain transition rejected", "error", err)
	}
	c.SetJointCmd(armmath.JointState{})
	c.DisableGravityCompensation()

	c.backgroundRunning.Store(true)
	time.Sleep(dampingExitDrain)

	c.destroyBackground.Store(true)
	c.cancel()
	c.workers.Wait()
	return nil
}
