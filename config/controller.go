package config

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ControllerConfig holds the default gains and timing for one controller
// type ("joint_controller" or "cartesian_controller").
type ControllerConfig struct {
	ControllerType string

	DefaultKp [6]float64
	DefaultKd [6]float64

	DefaultGripperKp float64
	DefaultGripperKd float64

	OverCurrentCntMax int
	ControllerDt      time.Duration
}

// ErrUnknownControllerType is returned by GetControllerConfig for a type
// name not present in the registry.
var ErrUnknownControllerType = errors.New("unknown controller type")

var (
	controllerConfigsOnce sync.Once
	controllerConfigs     map[string]ControllerConfig
)

func buildControllerConfigs() map[string]ControllerConfig {
	joint := ControllerConfig{
		ControllerType:    "joint_controller",
		DefaultKp:         [6]float64{70.0, 70.0, 70.0, 30.0, 30.0, 20.0},
		DefaultKd:         [6]float64{2.0, 2.0, 2.0, 1.0, 1.0, 1.0},
		DefaultGripperKp:  30.0,
		DefaultGripperKd:  0.2,
		OverCurrentCntMax: 20,
		ControllerDt:      2 * time.Millisecond,
	}

	cartesian := ControllerConfig{
		ControllerType:    "cartesian_controller",
		DefaultKp:         [6]float64{150.0, 150.0, 200.0, 60.0, 30.0, 30.0},
		DefaultKd:         [6]float64{5.0, 5.0, 5.0, 1.0, 1.0, 1.0},
		DefaultGripperKp:  30.0,
		DefaultGripperKd:  0.2,
		OverCurrentCntMax: 20,
		ControllerDt:      5 * time.Millisecond,
	}

	return map[string]ControllerConfig{
		"joint_controller":     joint,
		"cartesian_controller": cartesian,
	}
}

// GetControllerConfig returns the default gain/timing table for the named
// controller type.
func GetControllerConfig(controllerType string) (ControllerConfig, error) {
	controllerConfigsOnce.Do(func() {
		controllerConfigs = buildControllerConfigs()
	})
	cfg, ok := controllerConfigs[controllerType]
	if !ok {
		return ControllerConfig{}, errors.Wrapf(ErrUnknownControllerType, "%q", controllerType)
	}
	return cfg, nil
}
