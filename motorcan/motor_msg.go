package motorcan

// MotorMsg is one motor's decoded telemetry sample, the Go analogue of the
// vendor SDK's OD_Motor_Msg. CurrentActualFloat is the decoded current;
// callers convert it to torque with the motor family's constant.
type MotorMsg struct {
	MotorID            uint32
	AngleActualRad     float64
	SpeedActualRad     float64
	CurrentActualFloat float64
	Temperature        byte
	Error              byte
}
