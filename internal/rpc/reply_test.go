package rpc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeProgMismatchReply(t *testing.T) {
	t.Run("GeneratesValidReply", func(t *testing.T) {
		xid := uint32(0x12345678)
		low := uint32(3)
		high := uint32(3)

		reply, err := MakeProgMismatchReply(xid, low, high)
		require.NoError(t, err)
		require.NotNil(t, reply)

		// fragment header (4) + reply header (24) + mismatch info (8) = 36
		assert.GreaterOrEqual(t, len(reply), 36)

		fragHeader := binary.BigEndian.Uint32(reply[0:4])
		assert.True(t, fragHeader&0x80000000 != 0, "last fragment bit should be set")
		fragLen := fragHeader &^ 0x80000000
		assert.Equal(t, uint32(len(reply)-4), fragLen)

		replyXID := binary.BigEndian.Uint32(reply[4:8])
		assert.Equal(t, xid, replyXID)

		msgType := binary.BigEndian.Uint32(reply[8:12])
		assert.Equal(t, Reply, msgType)

		replyState := binary.BigEndian.Uint32(reply[12:16])
		assert.Equal(t, MsgAccepted, replyState)
	})

	t.Run("EncodesVersionRange", func(t *testing.T) {
		xid := uint32(0xABCD1234)
		low := uint32(2)
		high := uint32(4)

		reply, err := MakeProgMismatchReply(xid, low, high)
		require.NoError(t, err)

		replyLen := len(reply)
		lowVersion := binary.BigEndian.Uint32(reply[replyLen-8 : replyLen-4])
		highVersion := binary.BigEndian.Uint32(reply[replyLen-4 : replyLen])

		assert.Equal(t, low, lowVersion)
		assert.Equal(t, high, highVersion)
	})

	t.Run("HandlesSameVersionForLowAndHigh", func(t *testing.T) {
		xid := uint32(0x11111111)
		version := uint32(3)

		reply, err := MakeProgMismatchReply(xid, version, version)
		require.NoError(t, err)
		require.NotNil(t, reply)

		replyLen := len(reply)
		lowVersion := binary.BigEndian.Uint32(reply[replyLen-8 : replyLen-4])
		highVersion := binary.BigEndian.Uint32(reply[replyLen-4 : replyLen])

		assert.Equal(t, version, lowVersion)
		assert.Equal(t, version, highVersion)
	})

	t.Run("RejectsInvalidVersionRange", func(t *testing.T) {
		xid := uint32(0x12345678)
		low := uint32(5)
		high := uint32(3)

		reply, err := MakeProgMismatchReply(xid, low, high)
		require.Error(t, err)
		assert.Nil(t, reply)
		assert.Contains(t, err.Error(), "invalid version range")
		assert.Contains(t, err.Error(), "low (5) > high (3)")
	})

	t.Run("HandlesZeroXID", func(t *testing.T) {
		reply, err := MakeProgMismatchReply(0, 3, 3)
		require.NoError(t, err)
		require.NotNil(t, reply)

		replyXID := binary.BigEndian.Uint32(reply[4:8])
		assert.Equal(t, uint32(0), replyXID)
	})

	t.Run("HandlesMaxXID", func(t *testing.T) {
		maxXID := uint32(0xFFFFFFFF)
		reply, err := MakeProgMismatchReply(maxXID, 3, 3)
		require.NoError(t, err)
		require.NotNil(t, reply)

		replyXID := binary.BigEndian.Uint32(reply[4:8])
		assert.Equal(t, maxXID, replyXID)
	})

	t.Run("ContainsProgMismatchStatus", func(t *testing.T) {
		reply, err := MakeProgMismatchReply(0x1234, 3, 3)
		require.NoError(t, err)

		// fragment header (4) + xid (4) + msg_type (4) + reply_stat (4) + verf (8) = 24
		acceptStat := binary.BigEndian.Uint32(reply[24:28])
		assert.Equal(t, ProgMismatch, acceptStat)
	})
}

func TestMakeSuccessReply(t *testing.T) {
	body := []byte{0x00, 0x00, 0x00, 0x2a}
	reply, err := MakeSuccessReply(0x42, body)
	require.NoError(t, err)

	fragHeader := binary.BigEndian.Uint32(reply[0:4])
	assert.True(t, fragHeader&0x80000000 != 0)

	acceptStat := binary.BigEndian.Uint32(reply[24:28])
	assert.Equal(t, Success, acceptStat)
	assert.Equal(t, body, reply[28:])
}

func TestMakeProcUnavailReply(t *testing.T) {
	reply, err := MakeProcUnavailReply(7)
	require.NoError(t, err)

	acceptStat := binary.BigEndian.Uint32(reply[24:28])
	assert.Equal(t, ProcUnavail, acceptStat)
}

func TestMakeProgUnavailReply(t *testing.T) {
	reply, err := MakeProgUnavailReply(7)
	require.NoError(t, err)

	acceptStat := binary.BigEndian.Uint32(reply[24:28])
	assert.Equal(t, ProgUnavail, acceptStat)
}

func TestMakeGarbageArgsReply(t *testing.T) {
	reply, err := MakeGarbageArgsReply(7)
	require.NoError(t, err)

	acceptStat := binary.BigEndian.Uint32(reply[24:28])
	assert.Equal(t, GarbageArgs, acceptStat)
}

func TestMakeRPCMismatchReply(t *testing.T) {
	reply, err := MakeRPCMismatchReply(99)
	require.NoError(t, err)

	msgType := binary.BigEndian.Uint32(reply[8:12])
	assert.Equal(t, Reply, msgType)
	replyStat := binary.BigEndian.Uint32(reply[12:16])
	assert.Equal(t, MsgDenied, replyStat)
	rejectStat := binary.BigEndian.Uint32(reply[16:20])
	assert.Equal(t, RPCMismatch, rejectStat)
}
