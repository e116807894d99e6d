package motorcan

import (
	"encoding/binary"

	"github.com/go-daq/canbus"
)

// setpointEncoder packs a position+velocity+Kp+Kd+feed-forward-current
// set-point into the CAN payload, the wire format both EC and DM motor
// families use for closed-loop commands. Its fields hold each value's
// motor-family-specific fixed-point range.
type setpointEncoder struct {
	posMin, posMax float64
	velMin, velMax float64
	kpMin, kpMax   float64
	kdMin, kdMax   float64
	curMin, curMax float64
}

var ecEncoder = setpointEncoder{ecPosMin, ecPosMax, ecVelMin, ecVelMax, ecKpMin, ecKpMax, ecKdMin, ecKdMax, ecCurrentMin, ecCurrentMax}
var dmEncoder = setpointEncoder{dmPosMin, dmPosMax, dmVelMin, dmVelMax, dmKpMin, dmKpMax, dmKdMin, dmKdMax, dmTorqueMin, dmTorqueMax}

// encode packs pos/vel/kp/kd/current into an 8-byte CAN payload: 16 bits
// for position, and 12 bits each for velocity, kp, kd and the feed-forward
// current/torque term.
func (e setpointEncoder) encode(pos, vel, kp, kd, current float64) [8]byte {
	var payload [8]byte
	p := floatToUint(pos, e.posMin, e.posMax, 16)
	v := floatToUint(vel, e.velMin, e.velMax, 12)
	kpEnc := floatToUint(kp, e.kpMin, e.kpMax, 12)
	kdEnc := floatToUint(kd, e.kdMin, e.kdMax, 12)
	c := floatToUint(current, e.curMin, e.curMax, 12)

	binary.BigEndian.PutUint16(payload[0:2], p)
	payload[2] = byte(v >> 4)
	payload[3] = byte((v&0xF)<<4) | byte(kpEnc>>8)
	payload[4] = byte(kpEnc & 0xFF)
	payload[5] = byte(kdEnc >> 4)
	payload[6] = byte((kdEnc&0xF)<<4) | byte(c>>8)
	payload[7] = byte(c & 0xFF)
	return payload
}

// newSetpointFrame builds the outgoing canbus.Frame for one motor id.
func newSetpointFrame(motorID uint32, payload [8]byte) canbus.Frame {
	return canbus.Frame{
		ID:   motorID,
		Data: payload[:],
		Kind: canbus.SFF,
	}
}

// enableFrame is the DM-family "enable motor" handshake frame: the
// set-point payload with every byte at 0xFF except the last, per the DM
// motor protocol's reserved enable command.
func enableFrame(motorID uint32) canbus.Frame {
	data := [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFC}
	return canbus.Frame{ID: motorID, Data: data[:], Kind: canbus.SFF}
}

// zeroOffsetFrame is the DM-family "set current position as zero" command,
// used by ZeroMotorOffset.
func zeroOffsetFrame(motorID uint32) canbus.Frame {
	data := [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE}
	return canbus.Frame{ID: motorID, Data: data[:], Kind: canbus.SFF}
}

// decodeMotorMsg parses one telemetry frame into a MotorMsg. The wire
// layout mirrors the vendor's OD_Motor_Msg struct: motor id, actual
// angle and speed as signed fixed-point fields, and actual current.
func decodeMotorMsg(frame canbus.Frame) MotorMsg {
	if len(frame.Data) < 8 {
		return MotorMsg{MotorID: frame.ID}
	}
	angleRaw := binary.BigEndian.Uint16(frame.Data[0:2])
	velRaw := uint16(frame.Data[2])<<4 | uint16(frame.Data[3])>>4
	currentRaw := uint16(frame.Data[6]&0xF)<<8 | uint16(frame.Data[7])

	return MotorMsg{
		MotorID:            frame.ID,
		AngleActualRad:     uintToFloat(angleRaw, dmPosMin, dmPosMax, 16),
		SpeedActualRad:     uintToFloat(velRaw, dmVelMin, dmVelMax, 12),
		CurrentActualFloat: uintToFloat(currentRaw, dmTorqueMin, dmTorqueMax, 12),
		Temperature:        frame.Data[4],
		Error:              frame.Data[5] & 0x0F,
	}
}
