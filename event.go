package sofctl

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SubscribeEvents enables or disables value change events for this handle.
// Only SNDRV_CTL_EVENT_MASK_VALUE is reported, so any other mask unsubscribes.
func (c *Ctl) SubscribeEvents(mask EventMask) {
	if c == nil {
		return
	}

	c.subscribed = mask&SNDRV_CTL_EVENT_MASK_VALUE != 0
}

// Subscribed reports whether value change events are enabled.
func (c *Ctl) Subscribed() bool {
	return c != nil && c.subscribed
}

// MarkUpdated flags a control as changed by the DSP.
// Flags are never cleared: once set, the control is reported by PollRevents and ReadEvent for the life of the handle.
func (c *Ctl) MarkUpdated(key uint32) error {
	if c == nil {
		return ErrClosed
	}

	if key >= uint32(len(c.updated)) {
		return fmt.Errorf("key %d is out of bounds (number of controls: %d): %w", key, len(c.updated), ErrOutOfRange)
	}

	c.updated[key] = true

	return nil
}

// ReadEvent returns the pending event of a control.
// It fails with ErrNotReady if the control has no update or events are not subscribed.
func (c *Ctl) ReadEvent(id ElemID) (EventMask, error) {
	if c == nil {
		return 0, ErrClosed
	}

	if id.Numid == 0 || id.Numid > uint32(len(c.updated)) {
		return 0, fmt.Errorf("numid %d is out of bounds (number of controls: %d): %w", id.Numid, len(c.updated), ErrOutOfRange)
	}

	if !c.updated[id.Numid-1] || !c.subscribed {
		return 0, ErrNotReady
	}

	return SNDRV_CTL_EVENT_MASK_VALUE, nil
}

// PollRevents returns POLLIN when any control has a pending update, 0 otherwise.
func (c *Ctl) PollRevents() int16 {
	if c == nil {
		return 0
	}

	for _, updated := range c.updated {
		if updated {
			return unix.POLLIN
		}
	}

	return 0
}
