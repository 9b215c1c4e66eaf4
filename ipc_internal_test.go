package sofctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	volumes := shape{stride: VolumeConfigSize, items: 2}

	build := func(status, size uint32, payload []byte, capacity int) ([]byte, int) {
		hdr, err := ReplyHeader{Status: status, DataOffSize: size}.MarshalBinary()
		require.NoError(t, err)

		buf := make([]byte, ReplyHeaderSize+capacity)
		n := copy(buf, append(hdr, payload...))

		return buf, n
	}

	t.Run("Valid", func(t *testing.T) {
		buf, n := build(IPC4_SUCCESS, 32, make([]byte, 32), 32)

		payload, err := parseReply(buf, n, volumes)
		require.NoError(t, err)
		assert.Len(t, payload, 32)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		buf, _ := build(IPC4_SUCCESS, 0, nil, 0)

		_, err := parseReply(buf, 4, shape{})
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("StatusFirst", func(t *testing.T) {
		buf, n := build(3, 1000, nil, 32)

		_, err := parseReply(buf, n, volumes)
		require.ErrorIs(t, err, ErrProtocolStatus)

		var status *StatusError
		require.ErrorAs(t, err, &status)
		assert.Equal(t, uint32(3), status.Code)
	})

	t.Run("ChannelCountMismatch", func(t *testing.T) {
		buf, n := build(IPC4_SUCCESS, 48, make([]byte, 32), 32)

		_, err := parseReply(buf, n, volumes)
		assert.ErrorIs(t, err, ErrChannelCountMismatch, "channel count is checked before capacity")

		buf, n = build(IPC4_SUCCESS, 4, make([]byte, 4), 24)
		_, err = parseReply(buf, n, shape{fixed: enumHeaderSize, stride: enumValueSize, items: 2})
		assert.ErrorIs(t, err, ErrChannelCountMismatch)
	})

	t.Run("SizeExceedsCapacity", func(t *testing.T) {
		buf, n := build(IPC4_SUCCESS, 100, make([]byte, 64), 64)

		_, err := parseReply(buf, n, shape{})
		assert.ErrorIs(t, err, ErrSizeExceedsCapacity)
	})

	t.Run("Truncated", func(t *testing.T) {
		buf, n := build(IPC4_SUCCESS, 32, make([]byte, 16), 32)

		_, err := parseReply(buf, n, volumes)
		assert.ErrorIs(t, err, ErrTruncated)
	})
}
