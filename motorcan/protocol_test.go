package motorcan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paladin1013/arx5-sdk/config"
)

func TestClampf(t *testing.T) {
	assert.Equal(t, 0.0, clampf(-5, 0, 10))
	assert.Equal(t, 10.0, clampf(15, 0, 10))
	assert.Equal(t, 5.0, clampf(5, 0, 10))
}

func TestFloatToUintRoundTrip(t *testing.T) {
	for _, v := range []float64{-12.5, -6.25, 0, 6.25, 12.4} {
		enc := floatToUint(v, ecPosMin, ecPosMax, 16)
		dec := uintToFloat(enc, ecPosMin, ecPosMax, 16)
		assert.InDelta(t, v, dec, 1e-3)
	}
}

func TestFloatToUintClampsOutOfRange(t *testing.T) {
	assert.Equal(t, floatToUint(ecPosMax, ecPosMin, ecPosMax, 16), floatToUint(ecPosMax+100, ecPosMin, ecPosMax, 16))
	assert.Equal(t, floatToUint(ecPosMin, ecPosMin, ecPosMax, 16), floatToUint(ecPosMin-100, ecPosMin, ecPosMax, 16))
}

func TestTorqueConstantFor(t *testing.T) {
	assert.Equal(t, torqueConstantECA4310, torqueConstantFor(config.MotorECA4310))
	assert.Equal(t, torqueConstantDMJ4310, torqueConstantFor(config.MotorDMJ4310))
	assert.Equal(t, torqueConstantDMJ4340, torqueConstantFor(config.MotorDMJ4340))
	assert.Equal(t, 1.0, torqueConstantFor(config.MotorNone))
}

func TestECA4310SquaredCorrectionIsSquareOfConstant(t *testing.T) {
	assert.InDelta(t, torqueConstantECA4310*torqueConstantECA4310, ecA4310TorqueConstantSquaredCorrection, 1e-12)
}
