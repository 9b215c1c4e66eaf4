package sofctl_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/sofctl"
)

// pipeDSP answers every request on conn with the reply built by handle. A nil reply closes the connection.
func pipeDSP(conn net.Conn, handle func(req []byte) []byte) {
	defer conn.Close()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}

		out := handle(buf[:n])
		if out == nil {
			return
		}

		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func TestTransportExchange(t *testing.T) {
	client, server := net.Pipe()

	want := []byte{0, 0, 0, 0x60, 2, 0, 0, 0, 0xaa, 0xbb}
	var got []byte

	done := make(chan struct{})
	go func() {
		defer close(done)
		pipeDSP(server, func(req []byte) []byte {
			got = append([]byte(nil), req...)

			return want
		})
	}()

	tr := sofctl.NewTransport(client, time.Second)

	reply := make([]byte, 64)
	n, err := tr.Exchange([]byte{1, 2, 3, 4, 5, 6, 7, 8}, reply)
	require.NoError(t, err)
	assert.Equal(t, want, reply[:n])

	require.NoError(t, tr.Close())
	<-done

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)

	_, err = tr.Exchange([]byte{1}, reply)
	assert.ErrorIs(t, err, sofctl.ErrClosed)
	assert.NoError(t, tr.Close())
}

func TestTransportConnectionLost(t *testing.T) {
	t.Run("PeerClosesAfterRequest", func(t *testing.T) {
		client, server := net.Pipe()
		go pipeDSP(server, func(req []byte) []byte { return nil })

		tr := sofctl.NewTransport(client, time.Second)
		defer tr.Close()

		_, err := tr.Exchange([]byte{1, 2, 3, 4}, make([]byte, 16))
		assert.ErrorIs(t, err, sofctl.ErrConnectionLost)
	})

	t.Run("PeerGone", func(t *testing.T) {
		client, server := net.Pipe()
		require.NoError(t, server.Close())

		tr := sofctl.NewTransport(client, time.Second)
		defer tr.Close()

		_, err := tr.Exchange([]byte{1, 2, 3, 4}, make([]byte, 16))
		assert.ErrorIs(t, err, sofctl.ErrConnectionLost)
		assert.Equal(t, -32, sofctl.Errno(err), "connection loss maps to EPIPE")
	})
}

func TestTransportTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	// Read the request but never reply.
	go func() {
		buf := make([]byte, 64)
		_, _ = server.Read(buf)
	}()

	tr := sofctl.NewTransport(client, 50*time.Millisecond)
	defer tr.Close()

	start := time.Now()
	_, err := tr.Exchange([]byte{1, 2, 3, 4}, make([]byte, 16))
	assert.ErrorIs(t, err, sofctl.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = tr.Exchange([]byte{1, 2, 3, 4}, make([]byte, 16))
	assert.ErrorIs(t, err, sofctl.ErrClosed, "a timed out connection is not reused")
}

// TestTransportLateReply checks that a reply arriving after the timeout is never
// returned as the answer to the next request.
func TestTransportLateReply(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ipc.sock")

	ln, err := net.Listen("unixpacket", sock)
	if err != nil {
		t.Skipf("packet sockets not available: %v", err)
	}
	defer ln.Close()

	late, err := sofctl.EncodeReply(sofctl.IPC4_SUCCESS, volumePayload(t, 100, 100))
	require.NoError(t, err)

	current, err := sofctl.EncodeReply(sofctl.IPC4_SUCCESS, volumePayload(t, 900, 900))
	require.NoError(t, err)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		first := true
		pipeDSP(conn, func(req []byte) []byte {
			if first {
				first = false
				time.Sleep(150 * time.Millisecond)

				return late
			}

			return current
		})
	}()

	tr, err := sofctl.Dial("unixpacket", sock, 50*time.Millisecond)
	require.NoError(t, err)

	ctl, err := sofctl.New(testTable(t), tr)
	require.NoError(t, err)
	defer ctl.Close()

	_, err = ctl.ReadInteger(keyVolume)
	require.ErrorIs(t, err, sofctl.ErrTimeout)

	// Give the late reply time to arrive.
	time.Sleep(200 * time.Millisecond)

	values, err := ctl.ReadInteger(keyVolume)
	assert.ErrorIs(t, err, sofctl.ErrClosed)
	assert.Nil(t, values)
}

// TestTransportStream reads replies from a stream socket that arrive in pieces or
// carry more data than the caller asked for.
func TestTransportStream(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ipc.sock")

	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	defer ln.Close()

	split := reply(t, volumePayload(t, 900, 900))
	oversized := reply(t, volumePayload(t, 1, 2, 3))
	next := reply(t, volumePayload(t, 300, 300))

	writes := [][][]byte{
		{split[:3], split[3:20], split[20:]},
		{oversized},
		{next},
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		buf := make([]byte, 4096)
		for _, chunks := range writes {
			if _, err := conn.Read(buf); err != nil {
				return
			}

			for _, chunk := range chunks {
				if _, err := conn.Write(chunk); err != nil {
					return
				}
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	tr, err := sofctl.Dial("unix", sock, time.Second)
	require.NoError(t, err)

	ctl, err := sofctl.New(testTable(t), tr)
	require.NoError(t, err)
	defer ctl.Close()

	values, err := ctl.ReadInteger(keyVolume)
	require.NoError(t, err, "a reply split over several writes is reassembled")
	assert.Equal(t, []int64{90, 90}, values)

	_, err = ctl.ReadInteger(keyVolume)
	assert.ErrorIs(t, err, sofctl.ErrChannelCountMismatch)

	values, err = ctl.ReadInteger(keyVolume)
	require.NoError(t, err, "the excess of the previous reply was drained")
	assert.Equal(t, []int64{30, 30}, values)
}

func TestTransportNil(t *testing.T) {
	var tr *sofctl.Transport

	_, err := tr.Exchange(nil, nil)
	assert.ErrorIs(t, err, sofctl.ErrClosed)
	assert.NoError(t, tr.Close())
}

func TestDial(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "ipc.sock")

	_, err := sofctl.Dial("unixpacket", sock, 0)
	assert.Error(t, err, "nobody listens yet")

	ln, err := net.Listen("unixpacket", sock)
	if err != nil {
		t.Skipf("packet sockets not available: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		pipeDSP(conn, func(req []byte) []byte {
			out, _ := sofctl.EncodeReply(sofctl.IPC4_SUCCESS, req)

			return out
		})
	}()

	tr, err := sofctl.Dial("unixpacket", sock, time.Second)
	require.NoError(t, err)
	defer tr.Close()

	reply := make([]byte, 64)
	for _, msg := range [][]byte{{1, 2, 3}, {4, 5}} {
		n, err := tr.Exchange(msg, reply)
		require.NoError(t, err)
		assert.Equal(t, sofctl.ReplyHeaderSize+len(msg), n, "one read returns one message")
		assert.Equal(t, msg, reply[sofctl.ReplyHeaderSize:n])
	}
}
