// Package gripper provides the Viam gripper component for the ARX5's
// 1-DoF parallel gripper. Unlike the teacher's ViperX-300s gripper, which
// owns its own Dynamixel driver, the ARX5 gripper motor rides the same CAN
// bus and servo loop as the arm: this component takes the sibling arm
// component as a dependency and drives the gripper channel of its shared
// highlevel.Controller instead of opening a second connection.
package gripper

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/components/arm"
	"go.viam.com/rdk/components/gripper"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/referenceframe"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"

	"github.com/paladin1013/arx5-sdk/armmath"
	arx5arm "github.com/paladin1013/arx5-sdk/arm"
	"github.com/paladin1013/arx5-sdk/config"
	"github.com/paladin1013/arx5-sdk/highlevel"
)

// Model is the Viam model for the ARX5 gripper.
var Model = resource.NewModel("paladin1013", "arx5", "gripper")

func init() {
	resource.RegisterComponent(gripper.API, Model, resource.Registration[gripper.Gripper, *Config]{
		Constructor: NewArx5Gripper,
	})
}

// stallHoldFraction is the fraction of a fully-closed travel below which a
// Grab that stalled against an object (rather than closing all the way) is
// reported as holding something.
const stallHoldFraction = 0.9

// Config is the configuration for the ARX5 gripper.
type Config struct {
	ArmName string `json:"arm_name"`
}

// Validate validates the config and declares the sibling arm as an
// implicit dependency.
func (c *Config) Validate(path string) ([]string, []string, error) {
	if c.ArmName == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "arm_name")
	}
	return []string{c.ArmName}, nil, nil
}

// arx5Gripper implements the gripper.Gripper interface over an arm's
// shared servo core.
type arx5Gripper struct {
	resource.Named
	resource.AlwaysRebuild

	high        *highlevel.Controller
	robotConfig config.RobotConfig
	logger      logging.Logger
}

// NewArx5Gripper creates a new ARX5 gripper component sharing its sibling
// arm's servo core.
func NewArx5Gripper(ctx context.Context, deps resource.Dependencies, conf resource.Config, logger logging.Logger) (gripper.Gripper, error) {
	cfg, err := resource.NativeConfig[*Config](conf)
	if err != nil {
		return nil, err
	}

	armRes, ok := deps[resource.NewName(arm.API, cfg.ArmName)]
	if !ok {
		return nil, errors.Errorf("arm dependency %q not found", cfg.ArmName)
	}
	shared, ok := armRes.(arx5arm.SharedCore)
	if !ok {
		return nil, errors.Errorf("resource %q is not an arx5 arm", cfg.ArmName)
	}

	g := &arx5Gripper{
		Named:       conf.ResourceName().AsNamed(),
		logger:      logger,
		high:        shared.Controller(),
		robotConfig: shared.RobotConfig(),
	}

	logger.Infof("ARX5 gripper initialized, sharing arm %q's servo core", cfg.ArmName)
	return g, nil
}

// holdCurrentPose returns an EEFState command that keeps the current
// end-effector pose but carries a new gripper target, so that gripper
// commands never perturb the arm's Cartesian position.
func (g *arx5Gripper) holdCurrentPose(gripperPos float64) (armmath.EEFState, error) {
	state, err := g.high.GetHighState()
	if err != nil {
		return armmath.EEFState{}, err
	}
	state.GripperPos = gripperPos
	return state, nil
}

// Open fully opens the gripper.
func (g *arx5Gripper) Open(ctx context.Context, extra map[string]interface{}) error {
	cmd, err := g.holdCurrentPose(g.robotConfig.GripperWidth)
	if err != nil {
		return errors.Wrap(err, "gripper open")
	}
	return g.high.SetHighCmd(cmd)
}

// Grab closes the gripper and reports whether it stalled against an
// object before reaching the fully-closed position.
func (g *arx5Gripper) Grab(ctx context.Context, extra map[string]interface{}) (bool, error) {
	cmd, err := g.holdCurrentPose(0)
	if err != nil {
		return false, errors.Wrap(err, "gripper grab")
	}
	if err := g.high.SetHighCmd(cmd); err != nil {
		return false, err
	}
	state := g.high.GetJointState()
	holding := state.GripperPos > g.robotConfig.GripperWidth*(1-stallHoldFraction)
	return holding, nil
}

// IsHoldingSomething reports whether the gripper stalled open of a fully
// closed position, the servo core's proxy for holding an object.
func (g *arx5Gripper) IsHoldingSomething(ctx context.Context, extra map[string]interface{}) (gripper.HoldingStatus, error) {
	state := g.high.GetJointState()
	holding := state.GripperPos > g.robotConfig.GripperWidth*(1-stallHoldFraction)
	return gripper.HoldingStatus{IsHoldingSomething: holding}, nil
}

// Stop holds the gripper at its current position.
func (g *arx5Gripper) Stop(ctx context.Context, extra map[string]interface{}) error {
	state := g.high.GetJointState()
	cmd, err := g.holdCurrentPose(state.GripperPos)
	if err != nil {
		return errors.Wrap(err, "gripper stop")
	}
	return g.high.SetHighCmd(cmd)
}

// IsMoving reports whether the gripper's output position command still
// differs from its input command.
func (g *arx5Gripper) IsMoving(ctx context.Context) (bool, error) {
	input, output := g.high.GetJointCmd()
	return input.GripperPos != output.GripperPos, nil
}

// Geometries returns an approximate bounding box for the gripper.
func (g *arx5Gripper) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	box, err := spatialmath.NewBox(spatialmath.NewZeroPose(), r3.Vector{X: 100, Y: 70, Z: 50}, g.Name().ShortName())
	if err != nil {
		return nil, err
	}
	return []spatialmath.Geometry{box}, nil
}

// ModelFrame returns nil; the gripper has no kinematic model of its own.
func (g *arx5Gripper) ModelFrame() referenceframe.Model { return nil }

// Kinematics returns nil; the gripper has no kinematic model of its own.
func (g *arx5Gripper) Kinematics(ctx context.Context) (referenceframe.Model, error) { return nil, nil }

// CurrentInputs returns the current gripper opening as a single input.
func (g *arx5Gripper) CurrentInputs(ctx context.Context) ([]referenceframe.Input, error) {
	state := g.high.GetJointState()
	return []referenceframe.Input{referenceframe.Input(state.GripperPos)}, nil
}

// GoToInputs moves the gripper to the specified opening.
func (g *arx5Gripper) GoToInputs(ctx context.Context, inputSteps ...[]referenceframe.Input) error {
	for _, step := range inputSteps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(step) == 0 {
			continue
		}
		cmd, err := g.holdCurrentPose(float64(step[0]))
		if err != nil {
			return err
		}
		if err := g.high.SetHighCmd(cmd); err != nil {
			return err
		}
	}
	return nil
}

// DoCommand handles custom commands: get_position, set_position.
func (g *arx5Gripper) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	result := map[string]interface{}{}

	if _, ok := cmd["get_position"]; ok {
		result["position"] = g.high.GetJointState().GripperPos
	}

	if val, ok := cmd["set_position"]; ok {
		pos, ok := val.(float64)
		if !ok {
			return nil, errors.New("set_position must be a number (meters)")
		}
		out, err := g.holdCurrentPose(pos)
		if err != nil {
			return nil, err
		}
		if err := g.high.SetHighCmd(out); err != nil {
			return nil, err
		}
		result["set_position"] = pos
	}

	return result, nil
}

// Close is a no-op: the shared controller belongs to the sibling arm
// component and is torn down when that component closes.
func (g *arx5Gripper) Close(ctx context.Context) error {
	g.logger.Info("ARX5 gripper closed")
	return nil
}
