package motorcan

import (
	"testing"

	"github.com/go-daq/canbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetpointEncoderEncodesFixedWidthPayload(t *testing.T) {
	payload := dmEncoder.encode(1.0, 2.0, 50, 1, 0.5)
	assert.Len(t, payload, 8)
}

func TestNewSetpointFrameShape(t *testing.T) {
	payload := ecEncoder.encode(0, 0, 0, 0, 0)
	frame := newSetpointFrame(7, payload)
	assert.Equal(t, uint32(7), frame.ID)
	assert.Equal(t, canbus.SFF, frame.Kind)
	assert.Equal(t, payload[:], frame.Data)
}

func TestEnableAndZeroOffsetFramesDiffer(t *testing.T) {
	enable := enableFrame(3)
	zero := zeroOffsetFrame(3)
	require.NotEqual(t, enable.Data, zero.Data)
	assert.Equal(t, byte(0xFC), enable.Data[7])
	assert.Equal(t, byte(0xFE), zero.Data[7])
	for i := 0; i < 7; i++ {
		assert.Equal(t, byte(0xFF), enable.Data[i])
		assert.Equal(t, byte(0xFF), zero.Data[i])
	}
}

func TestDecodeMotorMsgShortFrameReturnsZeroValue(t *testing.T) {
	msg := decodeMotorMsg(canbus.Frame{ID: 5, Data: []byte{1, 2, 3}})
	assert.Equal(t, uint32(5), msg.MotorID)
	assert.Equal(t, 0.0, msg.AngleActualRad)
}

func TestDecodeMotorMsgFullFrame(t *testing.T) {
	// Build a telemetry frame with angle raw = mid-scale (should decode to ~0 rad).
	data := make([]byte, 8)
	mid := uint16(1 << 15)
	data[0] = byte(mid >> 8)
	data[1] = byte(mid)
	data[4] = 42  // temperature
	data[5] = 0x3 // error bits

	msg := decodeMotorMsg(canbus.Frame{ID: 9, Data: data})
	assert.Equal(t, uint32(9), msg.MotorID)
	assert.InDelta(t, 0.0, msg.AngleActualRad, 1e-2)
	assert.Equal(t, byte(42), msg.Temperature)
	assert.Equal(t, byte(0x3), msg.Error)
}
