package sofctl

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Exchanger sends one request and waits for its reply.
// The reply is read into reply and the number of received bytes is returned.
type Exchanger interface {
	Exchange(req, reply []byte) (int, error)
}

// Transport is a synchronous request/reply channel to the DSP process.
// At most one exchange is in flight at any time. A failed exchange closes the
// connection, so a late reply can never be taken as the answer to a later request.
type Transport struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
	stream  bool
}

// Dial connects to the DSP IPC socket.
// The network is usually "unixpacket", so that every read returns exactly one reply message.
// On "unix" stream sockets replies are reassembled from the size in their header.
// A zero timeout waits for replies forever.
func Dial(network, path string, timeout time.Duration) (*Transport, error) {
	conn, err := net.Dial(network, path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DSP IPC socket %s: %w", path, err)
	}

	return NewTransport(conn, timeout), nil
}

// NewTransport wraps an established connection.
// Connections that are not packet sockets are read as byte streams.
func NewTransport(conn net.Conn, timeout time.Duration) *Transport {
	return &Transport{conn: conn, timeout: timeout, stream: isStream(conn)}
}

// Exchange writes the whole request in one write and blocks until one reply is read into reply.
// On a stream the payload beyond the capacity of reply is read and dropped; the returned
// count covers what was stored, so the reply header still tells the declared size.
func (t *Transport) Exchange(req, reply []byte) (int, error) {
	if t == nil {
		return 0, ErrClosed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return 0, ErrClosed
	}

	n, err := t.exchange(req, reply)
	if err != nil {
		// The peer may still answer, which would pair the reply with the next request.
		_ = t.conn.Close()
		t.conn = nil

		return n, err
	}

	return n, nil
}

func (t *Transport) exchange(req, reply []byte) (int, error) {
	if t.timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(t.timeout)); err != nil {
			return 0, fmt.Errorf("set deadline: %w: %w", ErrTransport, err)
		}
	}

	n, err := t.conn.Write(req)
	if err != nil {
		return 0, transportError("write", err)
	}

	if n != len(req) {
		return 0, fmt.Errorf("short write: wrote %d bytes, want %d: %w", n, len(req), ErrTransport)
	}

	if t.stream {
		return t.readStream(reply)
	}

	n, err = t.conn.Read(reply)
	if err != nil {
		return n, transportError("read", err)
	}

	if n == 0 {
		return 0, fmt.Errorf("read: empty reply: %w", ErrConnectionLost)
	}

	return n, nil
}

// readStream reads the reply header, then the declared payload.
// Payload bytes that do not fit reply are drained so the stream stays on a message boundary.
func (t *Transport) readStream(reply []byte) (int, error) {
	if len(reply) < ReplyHeaderSize {
		return 0, fmt.Errorf("reply buffer of %d bytes cannot hold a header: %w", len(reply), ErrOutOfRange)
	}

	if _, err := io.ReadFull(t.conn, reply[:ReplyHeaderSize]); err != nil {
		return 0, transportError("read header", err)
	}

	hdr, err := decodeReplyHeader(reply)
	if err != nil {
		return 0, err
	}

	size := int(hdr.DataOffSize)
	stored := min(size, len(reply)-ReplyHeaderSize)

	if _, err := io.ReadFull(t.conn, reply[ReplyHeaderSize:ReplyHeaderSize+stored]); err != nil {
		return ReplyHeaderSize, transportError("read payload", err)
	}

	if excess := size - stored; excess > 0 {
		if _, err := io.CopyN(io.Discard, t.conn, int64(excess)); err != nil {
			return ReplyHeaderSize + stored, transportError("drain payload", err)
		}
	}

	return ReplyHeaderSize + stored, nil
}

// Close closes the connection. Pending and later exchanges fail with ErrClosed.
func (t *Transport) Close() error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}

	err := t.conn.Close()
	t.conn = nil

	return err
}

// transportError classifies a socket error.
func transportError(op string, err error) error {
	var netErr net.Error

	switch {
	case errors.Is(err, os.ErrDeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return fmt.Errorf("%s: %w: %w", op, ErrConnectionLost, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
	}
}

// isStream reports whether conn is read as a byte stream rather than one message per read.
// Only SOCK_SEQPACKET and SOCK_DGRAM sockets keep message boundaries.
func isStream(conn net.Conn) bool {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return true
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return true
	}

	typ := unix.SOCK_STREAM
	_ = raw.Control(func(fd uintptr) {
		if v, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TYPE); err == nil {
			typ = v
		}
	})

	return typ != unix.SOCK_SEQPACKET && typ != unix.SOCK_DGRAM
}
