// Package config holds the immutable, process-lifetime parameter tables for
// every supported robot model and controller type. It is the Go analogue of
// the ARX5 SDK's RobotConfigFactory / ControllerConfigFactory singletons,
// expressed as package-level lookups instead of a Meyer's-singleton class.
package config

import (
	"sync"

	"github.com/pkg/errors"
)

// MotorType identifies the CAN motor family driving one joint or the
// gripper. The two families use different set-point encodings and torque
// constants; see the motorcan package.
type MotorType int

const (
	MotorNone MotorType = iota
	MotorECA4310
	MotorDMJ4310
	MotorDMJ4340
)

func (m MotorType) String() string {
	switch m {
	case MotorECA4310:
		return "EC_A4310"
	case MotorDMJ4310:
		return "DM_J4310"
	case MotorDMJ4340:
		return "DM_J4340"
	default:
		return "None"
	}
}

// RobotConfig describes the physical limits, motor wiring and link naming
// of one arm model. All fields are read-only after construction.
type RobotConfig struct {
	Model string

	JointDoF int

	JointPosMin    [6]float64
	JointPosMax    [6]float64
	JointVelMax    [6]float64
	JointTorqueMax [6]float64
	EEVelMax       [6]float64

	GripperVelMax     float64
	GripperTorqueMax  float64
	GripperWidth      float64
	GripperOpenReadout float64

	MotorID         [6]int
	MotorType       [6]MotorType
	GripperMotorID  int
	GripperMotorType MotorType

	GravityVector [3]float64

	BaseLinkName string
	EEFLinkName  string
}

var (
	// ErrUnknownRobotModel is returned by GetRobotConfig for a model name
	// not present in the registry.
	ErrUnknownRobotModel = errors.New("unknown robot model")
)

var (
	robotConfigsOnce sync.Once
	robotConfigs     map[string]RobotConfig
)

func buildRobotConfigs() map[string]RobotConfig {
	common := RobotConfig{
		JointDoF:           6,
		JointPosMin:        [6]float64{-3.14, -0.05, -0.1, -1.6, -1.57, -2},
		JointPosMax:        [6]float64{2.618, 3.14, 3.24, 1.55, 1.57, 2},
		JointVelMax:        [6]float64{3.0, 2.0, 2.0, 2.0, 3.0, 3.0},
		JointTorqueMax:     [6]float64{30.0, 40.0, 30.0, 15.0, 10.0, 10.0},
		EEVelMax:           [6]float64{0.6, 0.6, 0.6, 1.8, 1.8, 1.8},
		GripperVelMax:      0.1,
		GripperTorqueMax:   1.5,
		GripperWidth:       0.085,
		GripperOpenReadout: 4.8,
		MotorID:            [6]int{1, 2, 4, 5, 6, 7},
		GripperMotorID:     8,
		GripperMotorType:   MotorDMJ4310,
		GravityVector:      [3]float64{0, 0, -9.807},
		BaseLinkName:       "base_link",
		EEFLinkName:        "eef_link",
	}

	x5 := common
	x5.Model = "X5"
	x5.MotorType = [6]MotorType{MotorECA4310, MotorECA4310, MotorECA4310, MotorDMJ4310, MotorDMJ4310, MotorDMJ4310}

	l5 := common
	l5.Model = "L5"
	l5.MotorType = [6]MotorType{MotorDMJ4340, MotorDMJ4340, MotorDMJ4340, MotorDMJ4310, MotorDMJ4310, MotorDMJ4310}

	return map[string]RobotConfig{
		"X5": x5,
		"L5": l5,
	}
}

// GetRobotConfig returns the parameter table for the named model ("X5" or
// "L5"). The returned value is a copy; callers may not mutate the registry.
func GetRobotConfig(model string) (RobotConfig, error) {
	robotConfigsOnce.Do(func() {
		robotConfigs = buildRobotConfigs()
	})
	cfg, ok := robotConfigs[model]
	if !ok {
		return RobotConfig{}, errors.Wrapf(ErrUnknownRobotModel, "%q", model)
	}
	return cfg, nil
}
