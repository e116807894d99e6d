package motorcan

import "github.com/paladin1013/arx5-sdk/config"

// MotorIDs returns the command CAN id of every motor a robot config talks
// to: its joint motors plus the gripper, in the order commands are sent to
// SendECMotorCmd/SendDMMotorCmd.
func MotorIDs(rc config.RobotConfig) []uint32 {
	ids := make([]uint32, 0, rc.JointDoF+1)
	for i := 0; i < rc.JointDoF; i++ {
		ids = append(ids, uint32(rc.MotorID[i]))
	}
	ids = append(ids, uint32(rc.GripperMotorID))
	return ids
}

// ReplyIDs returns the CAN id each motor's telemetry frame actually
// arrives on: one less than its command id, the DM/EC firmware's master-id
// convention (a motor commanded on id N replies on id N-1). This is the id
// space GetMotorMsg is keyed by, so it is what the receive-socket filter
// must be built from — not MotorIDs' command ids — and what any caller
// decoding telemetry by motor index must derive its lookup keys from, so
// the filter and the decode side can never drift apart.
func ReplyIDs(rc config.RobotConfig) []uint32 {
	ids := MotorIDs(rc)
	for i, id := range ids {
		ids[i] = id - 1
	}
	return ids
}
