package motorcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paladin1013/arx5-sdk/config"
)

func TestReplyIDsIsOneLessThanMotorIDs(t *testing.T) {
	rc, err := config.GetRobotConfig("X5")
	require.NoError(t, err)

	cmdIDs := MotorIDs(rc)
	replyIDs := ReplyIDs(rc)
	require.Equal(t, len(cmdIDs), len(replyIDs))

	for i := range cmdIDs {
		assert.Equal(t, cmdIDs[i]-1, replyIDs[i], "reply id must trail its motor's command id by one")
	}
}

func TestReplyIDsMatchTelemetrySlots(t *testing.T) {
	rc, err := config.GetRobotConfig("X5")
	require.NoError(t, err)

	// Joints reply on slots 0,1,3,4,5,6 and the gripper on slot 7.
	assert.Equal(t, []uint32{0, 1, 3, 4, 5, 6, 7}, ReplyIDs(rc))
}
