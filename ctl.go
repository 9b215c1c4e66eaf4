package sofctl

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ElemID identifies a control element as seen by the host.
// Numid is the 1-based position of the control in the table.
type ElemID struct {
	Numid uint32
	Iface ElemIface
	Name  string
}

// ElemValue holds the value of one control element. Only the field matching the element type is used.
type ElemValue struct {
	Integer    []int64
	Enumerated []uint32
	Bytes      []byte
}

// Control is the capability set shared by every control kind.
type Control interface {
	// Desc returns the topology descriptor of the control. It must not be modified.
	Desc() *Descriptor
	// Attribute returns the element type, the access flags and the number of values.
	Attribute() (ElemType, CtlAccessFlag, uint32)
	// Read fetches the current value from the DSP.
	Read(v *ElemValue) error
	// Write sends a new value to the DSP.
	Write(v *ElemValue) error
}

// Ctl is the control handle of one plugin instance.
// It owns its connection to the DSP and reads a control table owned by someone else.
// Calls must not be issued concurrently; every call completes its exchange before returning.
type Ctl struct {
	table  *Table
	ipc    Exchanger
	log    zerolog.Logger
	card   CardInfo
	Ctls   []Control
	ctlMap map[string]Control

	subscribed bool
	updated    []bool
}

// Option configures a Ctl.
type Option func(*Ctl)

// WithLogger sets the logger used to report failed operations.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Ctl) {
		c.log = log
	}
}

// WithCardInfo sets the names reported for the control device.
func WithCardInfo(card CardInfo) Option {
	return func(c *Ctl) {
		c.card = card
	}
}

// Open maps the control table, connects to the DSP IPC socket and returns a control handle.
func Open(cfg Config) (*Ctl, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	table, err := MapTable(cfg.Shm)
	if err != nil {
		return nil, err
	}

	ipc, err := Dial(cfg.Network, cfg.Socket, cfg.Timeout.Duration)
	if err != nil {
		return nil, err
	}

	ctl, err := New(table, ipc, WithLogger(NewLogger(os.Stderr, cfg.LogLevel)), WithCardInfo(cfg.Card))
	if err != nil {
		_ = ipc.Close()

		return nil, err
	}

	return ctl, nil
}

// New returns a control handle for table that exchanges messages over ipc.
// If ipc is an io.Closer, Close closes it.
func New(table *Table, ipc Exchanger, opts ...Option) (*Ctl, error) {
	if table == nil {
		return nil, fmt.Errorf("control table is nil: %w", ErrInvalidTable)
	}

	if ipc == nil {
		return nil, fmt.Errorf("no transport: %w", ErrClosed)
	}

	c := &Ctl{
		table:   table,
		ipc:     ipc,
		log:     zerolog.Nop(),
		card:    DefaultConfig().Card,
		ctlMap:  make(map[string]Control),
		updated: make([]bool, table.NumCtls()),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Ctls = make([]Control, 0, table.NumCtls())
	for key := 0; key < table.NumCtls(); key++ {
		desc := &table.ctls[key]

		var ctl Control
		switch {
		case desc.Kind.IsMixer():
			ctl = &mixerCtl{ctl: c, desc: desc}
		case desc.Kind.IsEnum():
			ctl = &enumCtl{ctl: c, desc: desc}
		case desc.Kind.IsBytes():
			ctl = &bytesCtl{ctl: c, desc: desc}
		default:
			ctl = &unsupportedCtl{desc: desc}
		}

		c.Ctls = append(c.Ctls, ctl)
		if _, ok := c.ctlMap[desc.Name]; !ok {
			c.ctlMap[desc.Name] = ctl
		}
	}

	return c, nil
}

// Close releases the connection to the DSP. The control table is left to its owner.
func (c *Ctl) Close() error {
	if c == nil || c.ipc == nil {
		return nil
	}

	var err error
	if closer, ok := c.ipc.(io.Closer); ok {
		err = closer.Close()
	}

	c.ipc = nil

	return err
}

// Name returns the name of the control device.
func (c *Ctl) Name() string {
	if c == nil {
		return ""
	}

	return c.card.Name
}

// Card returns the names reported for the control device.
func (c *Ctl) Card() CardInfo {
	if c == nil {
		return CardInfo{}
	}

	return c.card
}

// ElemCount returns the number of controls.
func (c *Ctl) ElemCount() int {
	if c == nil {
		return 0
	}

	return len(c.Ctls)
}

// ElemList returns the ID of the control at the given offset.
func (c *Ctl) ElemList(offset uint32) (ElemID, error) {
	ctl, err := c.Control(offset)
	if err != nil {
		return ElemID{}, err
	}

	return ElemID{Numid: offset + 1, Iface: SNDRV_CTL_ELEM_IFACE_MIXER, Name: ctl.Desc().Name}, nil
}

// FindElem returns the key of the control with the given ID.
// The numid is used when set, otherwise the control is looked up by name.
func (c *Ctl) FindElem(id ElemID) (uint32, error) {
	if c == nil {
		return 0, ErrClosed
	}

	if id.Numid == 0 {
		for key, ctl := range c.Ctls {
			if ctl.Desc().Name == id.Name {
				return uint32(key), nil
			}
		}

		return 0, fmt.Errorf("control not found: %s: %w", id.Name, ErrOutOfRange)
	}

	if id.Numid > uint32(len(c.Ctls)) {
		return 0, fmt.Errorf("numid %d is out of bounds (number of controls: %d): %w", id.Numid, len(c.Ctls), ErrOutOfRange)
	}

	return id.Numid - 1, nil
}

// Control returns the control with the given key.
func (c *Ctl) Control(key uint32) (Control, error) {
	if c == nil {
		return nil, ErrClosed
	}

	if key >= uint32(len(c.Ctls)) {
		return nil, fmt.Errorf("key %d is out of bounds (number of controls: %d): %w", key, len(c.Ctls), ErrOutOfRange)
	}

	return c.Ctls[key], nil
}

// CtlByName returns the first control with the given name.
func (c *Ctl) CtlByName(name string) (Control, error) {
	if c == nil {
		return nil, ErrClosed
	}

	ctl, ok := c.ctlMap[name]
	if !ok {
		return nil, fmt.Errorf("control not found: %s: %w", name, ErrOutOfRange)
	}

	return ctl, nil
}

// Attribute returns the element type, the access flags and the number of values of a control.
func (c *Ctl) Attribute(key uint32) (ElemType, CtlAccessFlag, uint32, error) {
	ctl, err := c.Control(key)
	if err != nil {
		return SNDRV_CTL_ELEM_TYPE_NONE, 0, 0, err
	}

	typ, access, count := ctl.Attribute()

	return typ, access, count, nil
}

// IntegerInfo returns the range and the step of a mixer control.
func (c *Ctl) IntegerInfo(key uint32) (min, max, step int64, err error) {
	m, err := c.mixer(key)
	if err != nil {
		return 0, 0, 0, err
	}

	min, max, step = m.info()

	return min, max, step, nil
}

// ReadInteger returns the mixer value of every channel.
func (c *Ctl) ReadInteger(key uint32) ([]int64, error) {
	m, err := c.mixer(key)
	if err != nil {
		return nil, err
	}

	return m.read()
}

// WriteInteger sets the mixer value of every channel.
// A write that fails part way leaves the channels written so far at their new value.
func (c *Ctl) WriteInteger(key uint32, values []int64) error {
	m, err := c.mixer(key)
	if err != nil {
		return err
	}

	return m.write(values)
}

// EnumeratedInfo returns the number of items of an enumerated control.
func (c *Ctl) EnumeratedInfo(key uint32) (uint32, error) {
	e, err := c.enum(key)
	if err != nil {
		return 0, err
	}

	return uint32(len(e.desc.Enum.Texts)), nil
}

// EnumeratedName returns the text of an item of an enumerated control.
func (c *Ctl) EnumeratedName(key, item uint32) (string, error) {
	e, err := c.enum(key)
	if err != nil {
		return "", err
	}

	return e.name(item)
}

// ReadEnumerated returns the selected item of every channel.
func (c *Ctl) ReadEnumerated(key uint32) ([]uint32, error) {
	e, err := c.enum(key)
	if err != nil {
		return nil, err
	}

	return e.read()
}

// WriteEnumerated selects an item on every channel.
func (c *Ctl) WriteEnumerated(key uint32, items []uint32) error {
	e, err := c.enum(key)
	if err != nil {
		return err
	}

	return e.write(items)
}

// ReadBytes reads the data of a byte control into buf, framed by its type tag and size.
// It returns the size reported by the DSP, which may exceed what fit into buf.
func (c *Ctl) ReadBytes(key uint32, buf []byte) (int, error) {
	b, err := c.bytes(key)
	if err != nil {
		return 0, err
	}

	return b.read(buf)
}

// WriteBytes sends framed data to a byte control.
func (c *Ctl) WriteBytes(key uint32, data []byte) error {
	b, err := c.bytes(key)
	if err != nil {
		return err
	}

	return b.write(data)
}

func (c *Ctl) mixer(key uint32) (*mixerCtl, error) {
	ctl, err := c.Control(key)
	if err != nil {
		return nil, err
	}

	m, ok := ctl.(*mixerCtl)
	if !ok {
		c.log.Error().Uint32("key", key).Str("ctl", ctl.Desc().Name).Msg("invalid ctl type for integer")

		return nil, fmt.Errorf("control %s is not an integer control: %w", ctl.Desc().Name, ErrInvalidKind)
	}

	return m, nil
}

func (c *Ctl) enum(key uint32) (*enumCtl, error) {
	ctl, err := c.Control(key)
	if err != nil {
		return nil, err
	}

	e, ok := ctl.(*enumCtl)
	if !ok {
		c.log.Error().Uint32("key", key).Str("ctl", ctl.Desc().Name).Msg("invalid ctl type for enum")

		return nil, fmt.Errorf("control %s is not an enumerated control: %w", ctl.Desc().Name, ErrInvalidKind)
	}

	return e, nil
}

func (c *Ctl) bytes(key uint32) (*bytesCtl, error) {
	ctl, err := c.Control(key)
	if err != nil {
		return nil, err
	}

	b, ok := ctl.(*bytesCtl)
	if !ok {
		c.log.Error().Uint32("key", key).Str("ctl", ctl.Desc().Name).Msg("invalid ctl type for bytes")

		return nil, fmt.Errorf("control %s is not a byte control: %w", ctl.Desc().Name, ErrInvalidKind)
	}

	return b, nil
}

// exchange sends req and returns a reply buffer with room for replySize payload bytes,
// along with the number of bytes received into it.
func (c *Ctl) exchange(req *Request, replySize int) ([]byte, int, error) {
	if c.ipc == nil {
		return nil, 0, ErrClosed
	}

	msg, err := req.MarshalBinary()
	if err != nil {
		return nil, 0, err
	}

	reply := make([]byte, ReplyHeaderSize+replySize)

	n, err := c.ipc.Exchange(msg, reply)
	if err != nil {
		return nil, 0, err
	}

	return reply, n, nil
}

// logFailure reports a failed operation on a control, including the DSP status when there is one.
func (c *Ctl) logFailure(desc *Descriptor, what string, err error) {
	ev := c.log.Error().Str("ctl", desc.Name).Str("op", what).Err(err)

	var status *StatusError
	if errors.As(err, &status) {
		ev = ev.Uint32("status", status.Code)
	}

	ev.Msg("control operation failed")
}

// attribute returns the access flags the host sees for a control.
func attribute(desc *Descriptor) CtlAccessFlag {
	access := desc.Access

	// TLV requests need the callback to decode the data.
	if desc.HasTLV() {
		access |= SND_CTL_EXT_ACCESS_TLV_CALLBACK
	}

	return access
}

// unsupportedCtl stands for range and strobe controls, which are listed but cannot be accessed.
type unsupportedCtl struct {
	desc *Descriptor
}

func (u *unsupportedCtl) Desc() *Descriptor {
	return u.desc
}

func (u *unsupportedCtl) Attribute() (ElemType, CtlAccessFlag, uint32) {
	return SNDRV_CTL_ELEM_TYPE_NONE, attribute(u.desc), 0
}

func (u *unsupportedCtl) Read(*ElemValue) error {
	return fmt.Errorf("control %s of kind %s: %w", u.desc.Name, u.desc.Kind, ErrInvalidKind)
}

func (u *unsupportedCtl) Write(*ElemValue) error {
	return fmt.Errorf("control %s of kind %s: %w", u.desc.Name, u.desc.Kind, ErrInvalidKind)
}
