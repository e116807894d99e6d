// Package arm provides the Viam arm component for the ARX5 6-DoF arm,
// wrapping a highlevel.Controller the way the teacher's viperX300s wraps a
// dynamixel.Driver.
package arm

import (
	"context"

	"github.com/pkg/errors"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"

	"github.com/paladin1013/arx5-sdk/armmath"
	"github.com/paladin1013/arx5-sdk/cartesian"
	"github.com/paladin1013/arx5-sdk/config"
	"github.com/paladin1013/arx5-sdk/highlevel"
	"github.com/paladin1013/arx5-sdk/kinematics"
	"github.com/paladin1013/arx5-sdk/motorcan"
)

// Model is the Viam model for the ARX5 arm.
var Model = resource.NewModel("paladin1013", "arx5", "arm")

// SharedCore is implemented by arx5Arm so that a companion gripper
// component can share the same servo core and CAN gateway instead of
// opening a second one on the same bus.
type SharedCore interface {
	Controller() *highlevel.Controller
	RobotConfig() config.RobotConfig
}

// Controller returns the underlying high-level controller for a companion
// gripper component to share.
func (a *arx5Arm) Controller() *highlevel.Controller { return a.high }

// RobotConfig returns the robot parameter table this arm was configured with.
func (a *arx5Arm) RobotConfig() config.RobotConfig { return a.robotConfig }

func init() {
	resource.RegisterComponent(arm.API, Model, resource.Registration[arm.Arm, *Config]{
		Constructor: NewArx5Arm,
	})
}

// Config is the configuration for the ARX5 arm.
type Config struct {
	CANInterface        string `json:"can_interface"`
	RobotModel          string `json:"robot_model"` // "X5" or "L5"
	EnableGravityComp   bool   `json:"enable_gravity_compensation,omitempty"`
}

// Validate validates the config.
func (c *Config) Validate(path string) ([]string, []string, error) {
	if c.CANInterface == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "can_interface")
	}
	if c.RobotModel == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "robot_model")
	}
	if _, err := config.GetRobotConfig(c.RobotModel); err != nil {
		return nil, nil, errors.Wrapf(err, "invalid robot_model %q", c.RobotModel)
	}
	return nil, nil, nil
}

// arx5Arm implements the arm.Arm interface for the ARX5.
type arx5Arm struct {
	resource.Named
	resource.AlwaysRebuild

	high        *highlevel.Controller
	model       referenceframe.Model
	robotConfig config.RobotConfig
	logger      logging.Logger

	canInterface string
}

// NewArx5Arm creates a new ARX5 arm component.
func NewArx5Arm(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (arm.Arm, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	a := &arx5Arm{
		Named:        conf.ResourceName().AsNamed(),
		logger:       logger,
		canInterface: cfg.CANInterface,
	}

	robotConfig, err := config.GetRobotConfig(cfg.RobotModel)
	if err != nil {
		return nil, err
	}
	a.robotConfig = robotConfig

	model, err := kinematics.LoadModel(a.Name().ShortName())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load kinematics")
	}
	a.model = model

	logger.Info("Getting CAN gateway...")
	gateway, err := motorcan.GetShared(cfg.CANInterface, motorcan.ReplyIDs(robotConfig), logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CAN gateway")
	}
	logger.Info("CAN gateway acquired")

	solver := kinematics.NewSolver(model, robotConfig.GravityVector, kinematics.DefaultLinkMass())

	cc, err := cartesian.New(cfg.RobotModel, gateway, solver, logger)
	if err != nil {
		_ = motorcan.ReleaseShared(cfg.CANInterface)
		return nil, errors.Wrap(err, "failed to start cartesian controller")
	}
	if cfg.EnableGravityComp {
		cc.EnableGravityCompensation(solver)
	}

	a.high = highlevel.New(cc, solver, logger)

	logger.Infof("ARX5 %s arm initialized on %s", cfg.RobotModel, cfg.CANInterface)
	return a, nil
}

// EndPosition returns the current end-effector pose via forward kinematics.
func (a *arx5Arm) EndPosition(ctx context.Context, extra map[string]interface{}) (spatialmath.Pose, error) {
	state, err := a.high.GetHighState()
	if err != nil {
		return nil, err
	}
	return spatialmath.NewPose(state.Pose6D.Position, &spatialmath.EulerAngles{
		Roll: state.Pose6D.Roll, Pitch: state.Pose6D.Pitch, Yaw: state.Pose6D.Yaw,
	}), nil
}

// MoveToPosition sets an end-effector command through the high-level
// look-ahead shim; the servo core's own IK loop drives the arm there.
func (a *arx5Arm) MoveToPosition(ctx context.Context, pose spatialmath.Pose, extra map[string]interface{}) error {
	pt := pose.Point()
	ea := pose.Orientation().EulerAngles()
	cmd := armmath.EEFState{
		Pose6D: armmath.Pose6D{Position: pt, Roll: ea.Roll, Pitch: ea.Pitch, Yaw: ea.Yaw},
	}
	return a.high.SetHighCmd(cmd)
}

// MoveToJointPositions sets a joint-space command. Because the servo core
// wraps joint control inside the Cartesian/IK loop (SPEC_FULL.md's
// composition architecture), a joint-space target is realized by
// commanding the equivalent end-effector pose via forward kinematics; the
// Cartesian controller's own IK will converge back onto (a solution for)
// the requested joint configuration.
func (a *arx5Arm) MoveToJointPositions(ctx context.Context, positions []referenceframe.Input, extra map[string]interface{}) error {
	if len(positions) != a.robotConfig.JointDoF {
		return errors.Errorf("expected %d joint positions, got %d", a.robotConfig.JointDoF, len(positions))
	}
	var pos [6]float64
	for i, p := range positions {
		if float64(p) < a.robotConfig.JointPosMin[i] || float64(p) > a.robotConfig.JointPosMax[i] {
			return errors.Errorf("joint %d position %.4f rad out of range [%.4f, %.4f]", i, float64(p), a.robotConfig.JointPosMin[i], a.robotConfig.JointPosMax[i])
		}
		pos[i] = float64(p)
	}

	pose, err := a.high.ForwardKinematics(pos)
	if err != nil {
		return errors.Wrap(err, "computing target pose for joint command")
	}
	gripperPos := a.high.GetJointState().GripperPos
	return a.high.SetHighCmd(armmath.EEFState{Pose6D: pose, GripperPos: gripperPos})
}

// MoveThroughJointPositions moves the arm through a series of waypoints.
func (a *arx5Arm) MoveThroughJointPositions(ctx context.Context, positions [][]referenceframe.Input, options *arm.MoveOptions, extra map[string]any) error {
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.MoveToJointPositions(ctx, pos, extra); err != nil {
			return err
		}
	}
	return nil
}

// JointPositions returns the current joint positions.
func (a *arx5Arm) JointPositions(ctx context.Context, extra map[string]interface{}) ([]referenceframe.Input, error) {
	state := a.high.GetJointState()
	inputs := make([]referenceframe.Input, a.robotConfig.JointDoF)
	for i := 0; i < a.robotConfig.JointDoF; i++ {
		inputs[i] = referenceframe.Input(state.Pos[i])
	}
	return inputs, nil
}

// Stop switches the servo core to damping mode (zero Kp, default Kd) at its
// current pose.
func (a *arx5Arm) Stop(ctx context.Context, extra map[string]interface{}) error {
	return a.high.SetToDamping(ctx)
}

// IsMoving reports whether the joint controller's output position command
// still differs from its input command.
func (a *arx5Arm) IsMoving(ctx context.Context) (bool, error) {
	input, output := a.high.GetJointCmd()
	for i := range input.Pos {
		if input.Pos[i] != output.Pos[i] {
			return true, nil
		}
	}
	return false, nil
}

// ModelFrame returns the kinematics model.
func (a *arx5Arm) ModelFrame() referenceframe.Model { return a.model }

// Kinematics returns the kinematics model.
func (a *arx5Arm) Kinematics(ctx context.Context) (referenceframe.Model, error) { return a.model, nil }

// CurrentInputs returns the current joint positions as referenceframe inputs.
func (a *arx5Arm) CurrentInputs(ctx context.Context) ([]referenceframe.Input, error) {
	return a.JointPositions(ctx, nil)
}

// GoToInputs moves the arm through the specified joint waypoints.
func (a *arx5Arm) GoToInputs(ctx context.Context, inputSteps ...[]referenceframe.Input) error {
	for _, step := range inputSteps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.MoveToJointPositions(ctx, step, nil); err != nil {
			return err
		}
	}
	return nil
}

// Geometries returns the geometries of the arm in its current configuration.
func (a *arx5Arm) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	inputs, err := a.CurrentInputs(ctx)
	if err != nil {
		return nil, err
	}
	gifs, err := a.model.Geometries(inputs)
	if err != nil {
		return nil, err
	}
	return gifs.Geometries(), nil
}

// DoCommand handles custom commands: reset_to_home, set_to_damping,
// enable_gravity_compensation, disable_gravity_compensation,
// calibrate_joint (integer joint index), calibrate_gripper.
func (a *arx5Arm) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	result := map[string]interface{}{}

	if _, ok := cmd["reset_to_home"]; ok {
		if err := a.high.ResetToHome(ctx); err != nil {
			return nil, err
		}
		result["reset_to_home"] = "done"
	}

	if _, ok := cmd["set_to_damping"]; ok {
		if err := a.high.SetToDamping(ctx); err != nil {
			return nil, err
		}
		result["set_to_damping"] = "done"
	}

	if _, ok := cmd["enable_gravity_compensation"]; ok {
		a.high.EnableGravityCompensation()
		result["enable_gravity_compensation"] = "done"
	}

	if _, ok := cmd["disable_gravity_compensation"]; ok {
		a.high.DisableGravityCompensation()
		result["disable_gravity_compensation"] = "done"
	}

	if _, ok := cmd["calibrate_gripper"]; ok {
		if err := a.high.CalibrateGripper(); err != nil {
			return nil, err
		}
		result["calibrate_gripper"] = "done"
	}

	if val, ok := cmd["calibrate_joint"]; ok {
		idx, ok := val.(float64)
		if !ok {
			return nil, errors.New("calibrate_joint must be a joint index")
		}
		if err := a.high.CalibrateJoint(int(idx)); err != nil {
			return nil, err
		}
		result["calibrate_joint"] = idx
	}

	return result, nil
}

// Close performs the graceful damping drain and releases the shared CAN gateway.
func (a *arx5Arm) Close(ctx context.Context) error {
	if err := a.high.Close(ctx); err != nil {
		a.logger.Warnw("arm: error during controller close", "error", err)
	}
	if err := motorcan.ReleaseShared(a.canInterface); err != nil {
		a.logger.Warnw("arm: error releasing CAN gateway", "error", err)
	}
	a.logger.Info("ARX5 arm closed")
	return nil
}
