package sofctl

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	ErrOutOfRange           = errors.New("sofctl: index out of range")
	ErrInvalidKind          = errors.New("sofctl: operation not supported by control type")
	ErrInvalidTable         = errors.New("sofctl: invalid control table")
	ErrTransport            = errors.New("sofctl: transport error")
	ErrConnectionLost       = errors.New("sofctl: connection lost")
	ErrTimeout              = errors.New("sofctl: timed out waiting for reply")
	ErrClosed               = errors.New("sofctl: control handle closed")
	ErrProtocolStatus       = errors.New("sofctl: DSP reported failure")
	ErrChannelCountMismatch = errors.New("sofctl: reply channel count mismatch")
	ErrSizeExceedsCapacity  = errors.New("sofctl: reply size exceeds capacity")
	ErrTruncated            = errors.New("sofctl: truncated reply")
	ErrNotReady             = errors.New("sofctl: no pending event")
)

// StatusError is returned when the DSP replies with a non-success status.
// It matches ErrProtocolStatus with errors.Is.
type StatusError struct {
	Code uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sofctl: DSP reported failure with status %d", e.Code)
}

// Is reports whether target is ErrProtocolStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrProtocolStatus
}

// Errno maps an error returned by this package to the negative errno a control plugin host expects.
// A nil error maps to 0.
func Errno(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotReady):
		return -int(unix.EAGAIN)
	case errors.Is(err, ErrTimeout):
		return -int(unix.ETIMEDOUT)
	case errors.Is(err, ErrConnectionLost):
		return -int(unix.EPIPE)
	case errors.Is(err, ErrClosed):
		return -int(unix.EBADF)
	case errors.Is(err, ErrTransport):
		return -int(unix.EIO)
	case errors.Is(err, ErrInvalidTable):
		return -int(unix.ENODATA)
	}

	var errno unix.Errno
	if errors.As(err, &errno) {
		return -int(errno)
	}

	// Protocol status, reply shape and argument errors are all reported as invalid argument.
	return -int(unix.EINVAL)
}
