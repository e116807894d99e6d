package motorcan

import "github.com/paladin1013/arx5-sdk/config"

// Encoding ranges for the two CAN motor set-point protocols this gateway
// speaks, taken from the motor vendor's documented value ranges (the
// hardware/arx_can.h KP_MIN/MAX, POS_MIN/MAX, ... constants). Both
// protocols pack a float onto an unsigned fixed-point field by linear
// scaling; the ranges below are that scaling's domain.
const (
	ecPosMin, ecPosMax = -12.5, 12.5
	ecVelMin, ecVelMax = -18.0, 18.0
	ecKpMin, ecKpMax   = 0.0, 500.0
	ecKdMin, ecKdMax   = 0.0, 5.0
	ecTorqueMin, ecTorqueMax = -30.0, 30.0
	ecCurrentMin, ecCurrentMax = -30.0, 30.0

	dmPosMin, dmPosMax = -12.5, 12.5
	dmVelMin, dmVelMax = -45.0, 45.0
	dmKpMin, dmKpMax   = 0.0, 500.0
	dmKdMin, dmKdMax   = 0.0, 5.0
	dmTorqueMin, dmTorqueMax = -18.0, 18.0
)

// Torque-to-current conversion constants (Nm per amp) for each motor
// family.
const (
	torqueConstantECA4310 = 1.4
	torqueConstantDMJ4310 = 0.424
	torqueConstantDMJ4340 = 1.0

	// ecA4310TorqueConstantSquaredCorrection is an empirical correction
	// applied when decoding EC_A4310 telemetry torque: the reported current
	// is multiplied by the torque constant twice, not once. This has been
	// verified against hardware and is intentional, not a bug to be fixed.
	ecA4310TorqueConstantSquaredCorrection = torqueConstantECA4310 * torqueConstantECA4310
)

func torqueConstantFor(motorType config.MotorType) float64 {
	switch motorType {
	case config.MotorECA4310:
		return torqueConstantECA4310
	case config.MotorDMJ4310:
		return torqueConstantDMJ4310
	case config.MotorDMJ4340:
		return torqueConstantDMJ4340
	default:
		return 1.0
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// floatToUint linearly maps v in [lo, hi] onto an unsigned integer with the
// given bit width, clamping v to the range first.
func floatToUint(v, lo, hi float64, bits uint) uint16 {
	v = clampf(v, lo, hi)
	span := hi - lo
	maxVal := float64((uint32(1) << bits) - 1)
	return uint16((v - lo) / span * maxVal)
}

// uintToFloat is the inverse of floatToUint.
func uintToFloat(x uint16, lo, hi float64, bits uint) float64 {
	span := hi - lo
	maxVal := float64((uint32(1) << bits) - 1)
	return float64(x)/maxVal*span + lo
}
