package sofctl

import (
	"encoding/binary"
	"fmt"
)

// IPC4 message types and targets.
const (
	SOF_IPC4_MOD_LARGE_CONFIG_GET = 3
	SOF_IPC4_MOD_LARGE_CONFIG_SET = 4

	SOF_IPC4_MESSAGE_DIR_MSG_REQUEST = 0
	SOF_IPC4_MODULE_MSG              = 1

	IPC4_SUCCESS = 0
)

// IPC4 large config parameter IDs.
const (
	IPC4_VOLUME                      = 0
	SOF_IPC4_SWITCH_CONTROL_PARAM_ID = 200
	SOF_IPC4_ENUM_CONTROL_PARAM_ID   = 201
)

// Peak volume settings.
const (
	// IPC4_ALL_CHANNELS_MASK addresses every channel of a volume module at once.
	IPC4_ALL_CHANNELS_MASK = 0xffffffff
	// IPC4_AUDIO_CURVE_TYPE_WINDOWS_FADE is the ramp used for every volume change.
	IPC4_AUDIO_CURVE_TYPE_WINDOWS_FADE = 1
	// IPC4_AUDIO_CURVE_DURATION is the ramp duration in 100ns units.
	IPC4_AUDIO_CURVE_DURATION = 200000
)

const (
	// RequestHeaderSize is the size of the primary and extension words of a request.
	RequestHeaderSize = 8
	// ReplyHeaderSize is the size of the primary and extension words of a reply.
	ReplyHeaderSize = 8
	// VolumeConfigSize is the size of one per-channel volume payload.
	VolumeConfigSize = 16
	// BlobHeaderSize is the size of the type and size words in front of byte control data.
	BlobHeaderSize = 8

	enumHeaderSize = 8
	enumValueSize  = 8
)

// Bit layout of the primary and extension words.
const (
	ipc4ModuleIDMask    = 0xffff
	ipc4InstanceIDShift = 16
	ipc4InstanceIDMask  = 0xff
	ipc4TypeShift       = 24
	ipc4TypeMask        = 0x1f
	ipc4RspShift        = 29
	ipc4MsgTgtShift     = 30

	ipc4DataOffSizeMask = 0xfffff
	ipc4ParamIDShift    = 20
	ipc4ParamIDMask     = 0xff
	ipc4FinalBlockShift = 28
	ipc4InitBlockShift  = 29

	ipc4StatusMask           = 0xffffff
	ipc4ReplyDataOffSizeMask = 0x3fffffff
)

// Op selects the large config operation of a request.
type Op uint32

const (
	OpGet Op = SOF_IPC4_MOD_LARGE_CONFIG_GET
	OpSet Op = SOF_IPC4_MOD_LARGE_CONFIG_SET
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "LARGE_CONFIG_GET"
	case OpSet:
		return "LARGE_CONFIG_SET"
	default:
		return fmt.Sprintf("Op(%d)", uint32(o))
	}
}

// Request is a large config get/set message addressed to a module instance.
// Requests are never segmented, so init_block and final_block are always set.
type Request struct {
	ModuleID   uint16
	InstanceID uint16
	ParamID    uint32
	Op         Op
	Payload    []byte
}

// MarshalBinary encodes the request header followed by the payload.
func (r *Request) MarshalBinary() ([]byte, error) {
	if r.InstanceID > ipc4InstanceIDMask {
		return nil, fmt.Errorf("instance id %d does not fit the message header: %w", r.InstanceID, ErrOutOfRange)
	}

	if r.ParamID > ipc4ParamIDMask {
		return nil, fmt.Errorf("param id %d does not fit the message header: %w", r.ParamID, ErrOutOfRange)
	}

	if len(r.Payload) > ipc4DataOffSizeMask {
		return nil, fmt.Errorf("payload of %d bytes needs a segmented transfer: %w", len(r.Payload), ErrOutOfRange)
	}

	primary := uint32(r.ModuleID) |
		uint32(r.InstanceID)<<ipc4InstanceIDShift |
		(uint32(r.Op)&ipc4TypeMask)<<ipc4TypeShift |
		SOF_IPC4_MESSAGE_DIR_MSG_REQUEST<<ipc4RspShift |
		SOF_IPC4_MODULE_MSG<<ipc4MsgTgtShift

	extension := uint32(len(r.Payload)) |
		r.ParamID<<ipc4ParamIDShift |
		1<<ipc4FinalBlockShift |
		1<<ipc4InitBlockShift

	buf := make([]byte, RequestHeaderSize, RequestHeaderSize+len(r.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], primary)
	binary.LittleEndian.PutUint32(buf[4:8], extension)

	return append(buf, r.Payload...), nil
}

// UnmarshalBinary decodes a request. The declared payload size must match the data that follows the header.
func (r *Request) UnmarshalBinary(b []byte) error {
	if len(b) < RequestHeaderSize {
		return fmt.Errorf("request of %d bytes is shorter than its header: %w", len(b), ErrTruncated)
	}

	primary := binary.LittleEndian.Uint32(b[0:4])
	extension := binary.LittleEndian.Uint32(b[4:8])

	if (primary>>ipc4MsgTgtShift)&1 != SOF_IPC4_MODULE_MSG {
		return fmt.Errorf("request is not a module message: %w", ErrOutOfRange)
	}

	if (extension>>ipc4InitBlockShift)&1 == 0 || (extension>>ipc4FinalBlockShift)&1 == 0 {
		return fmt.Errorf("segmented requests are not supported: %w", ErrOutOfRange)
	}

	size := int(extension & ipc4DataOffSizeMask)
	if size != len(b)-RequestHeaderSize {
		return fmt.Errorf("request declares %d payload bytes, got %d: %w", size, len(b)-RequestHeaderSize, ErrTruncated)
	}

	r.ModuleID = uint16(primary & ipc4ModuleIDMask)
	r.InstanceID = uint16((primary >> ipc4InstanceIDShift) & ipc4InstanceIDMask)
	r.Op = Op((primary >> ipc4TypeShift) & ipc4TypeMask)
	r.ParamID = (extension >> ipc4ParamIDShift) & ipc4ParamIDMask
	r.Payload = append([]byte(nil), b[RequestHeaderSize:]...)

	return nil
}

// ReplyHeader is the fixed part of a reply.
type ReplyHeader struct {
	Status      uint32
	DataOffSize uint32
}

// MarshalBinary encodes the reply header.
func (h ReplyHeader) MarshalBinary() ([]byte, error) {
	if h.Status > ipc4StatusMask {
		return nil, fmt.Errorf("status %d does not fit the reply header: %w", h.Status, ErrOutOfRange)
	}

	if h.DataOffSize > ipc4ReplyDataOffSizeMask {
		return nil, fmt.Errorf("data size %d does not fit the reply header: %w", h.DataOffSize, ErrOutOfRange)
	}

	primary := h.Status |
		uint32(1)<<ipc4RspShift |
		SOF_IPC4_MODULE_MSG<<ipc4MsgTgtShift

	buf := make([]byte, ReplyHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], primary)
	binary.LittleEndian.PutUint32(buf[4:8], h.DataOffSize)

	return buf, nil
}

// EncodeReply builds a reply carrying the given status and payload.
func EncodeReply(status uint32, payload []byte) ([]byte, error) {
	hdr, err := ReplyHeader{Status: status, DataOffSize: uint32(len(payload))}.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return append(hdr, payload...), nil
}

// decodeReplyHeader extracts the status and the declared data size.
func decodeReplyHeader(b []byte) (ReplyHeader, error) {
	if len(b) < ReplyHeaderSize {
		return ReplyHeader{}, fmt.Errorf("reply of %d bytes is shorter than its header: %w", len(b), ErrTruncated)
	}

	return ReplyHeader{
		Status:      binary.LittleEndian.Uint32(b[0:4]) & ipc4StatusMask,
		DataOffSize: binary.LittleEndian.Uint32(b[4:8]) & ipc4ReplyDataOffSizeMask,
	}, nil
}

// shape describes the payload expected in a reply: fixed bytes followed by items entries of stride bytes.
// A zero stride accepts any payload that fits the capacity.
type shape struct {
	fixed  int
	stride int
	items  int
}

// parseReply validates the n bytes received into buf and returns the payload.
// The payload capacity is len(buf) minus the header, as allocated by the caller before the exchange.
// The payload is never looked at when the DSP reports a failure.
func parseReply(buf []byte, n int, want shape) ([]byte, error) {
	if n > len(buf) {
		n = len(buf)
	}

	hdr, err := decodeReplyHeader(buf[:n])
	if err != nil {
		return nil, err
	}

	if hdr.Status != IPC4_SUCCESS {
		return nil, &StatusError{Code: hdr.Status}
	}

	size := int(hdr.DataOffSize)

	if want.stride > 0 {
		if size < want.fixed {
			return nil, fmt.Errorf("reply of %d bytes is shorter than its %d byte header: %w", size, want.fixed, ErrChannelCountMismatch)
		}

		if got := (size - want.fixed) / want.stride; got != want.items {
			return nil, fmt.Errorf("got %d items, want %d: %w", got, want.items, ErrChannelCountMismatch)
		}
	}

	if size > len(buf)-ReplyHeaderSize {
		return nil, fmt.Errorf("reply declares %d bytes, capacity is %d: %w", size, len(buf)-ReplyHeaderSize, ErrSizeExceedsCapacity)
	}

	if size > n-ReplyHeaderSize {
		return nil, fmt.Errorf("reply declares %d bytes, received %d: %w", size, n-ReplyHeaderSize, ErrTruncated)
	}

	return buf[ReplyHeaderSize : ReplyHeaderSize+size], nil
}

// VolumeConfig is the per-channel payload of the peak volume module.
type VolumeConfig struct {
	ChannelID     uint32
	TargetVolume  uint32
	CurveType     uint32
	CurveDuration uint32
}

// MarshalBinary encodes the volume configuration.
func (v VolumeConfig) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, VolumeConfigSize)
	buf = binary.LittleEndian.AppendUint32(buf, v.ChannelID)
	buf = binary.LittleEndian.AppendUint32(buf, v.TargetVolume)
	buf = binary.LittleEndian.AppendUint32(buf, v.CurveType)
	buf = binary.LittleEndian.AppendUint32(buf, v.CurveDuration)

	return buf, nil
}

// DecodeVolumeConfigs decodes consecutive volume configurations. Trailing bytes are ignored.
func DecodeVolumeConfigs(b []byte) []VolumeConfig {
	out := make([]VolumeConfig, 0, len(b)/VolumeConfigSize)
	for off := 0; off+VolumeConfigSize <= len(b); off += VolumeConfigSize {
		out = append(out, VolumeConfig{
			ChannelID:     binary.LittleEndian.Uint32(b[off:]),
			TargetVolume:  binary.LittleEndian.Uint32(b[off+4:]),
			CurveType:     binary.LittleEndian.Uint32(b[off+8:]),
			CurveDuration: binary.LittleEndian.Uint32(b[off+12:]),
		})
	}

	return out
}

// EnumChannelValue is the item selected on one channel.
type EnumChannelValue struct {
	Channel uint32
	Value   uint32
}

// EnumPayload is the payload of enumerated control get/set messages.
type EnumPayload struct {
	ID     uint32
	Values []EnumChannelValue
}

// MarshalBinary encodes the enumerated payload.
func (p *EnumPayload) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, enumHeaderSize+len(p.Values)*enumValueSize)
	buf = binary.LittleEndian.AppendUint32(buf, p.ID)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Values)))

	for _, v := range p.Values {
		buf = binary.LittleEndian.AppendUint32(buf, v.Channel)
		buf = binary.LittleEndian.AppendUint32(buf, v.Value)
	}

	return buf, nil
}

// UnmarshalBinary decodes the enumerated payload.
func (p *EnumPayload) UnmarshalBinary(b []byte) error {
	if len(b) < enumHeaderSize {
		return fmt.Errorf("enum payload of %d bytes is shorter than its header: %w", len(b), ErrTruncated)
	}

	num := binary.LittleEndian.Uint32(b[4:8])
	if uint64(num)*enumValueSize > uint64(len(b)-enumHeaderSize) {
		return fmt.Errorf("enum payload declares %d values in %d bytes: %w", num, len(b)-enumHeaderSize, ErrTruncated)
	}

	p.ID = binary.LittleEndian.Uint32(b[0:4])
	p.Values = make([]EnumChannelValue, num)

	for i := range p.Values {
		off := enumHeaderSize + i*enumValueSize
		p.Values[i] = EnumChannelValue{
			Channel: binary.LittleEndian.Uint32(b[off:]),
			Value:   binary.LittleEndian.Uint32(b[off+4:]),
		}
	}

	return nil
}

// Blob is the data of a byte control, framed by its type tag and size.
type Blob struct {
	Type uint32
	Data []byte
}

// MarshalBinary encodes the blob header followed by the data.
func (b *Blob) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, BlobHeaderSize+len(b.Data))
	buf = binary.LittleEndian.AppendUint32(buf, b.Type)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b.Data)))

	return append(buf, b.Data...), nil
}

// UnmarshalBinary decodes a framed blob. The declared size must fit the buffer.
func (b *Blob) UnmarshalBinary(data []byte) error {
	if len(data) < BlobHeaderSize {
		return fmt.Errorf("blob of %d bytes is shorter than its header: %w", len(data), ErrTruncated)
	}

	size := binary.LittleEndian.Uint32(data[4:8])
	if uint64(size) > uint64(len(data)-BlobHeaderSize) {
		return fmt.Errorf("blob declares %d bytes, buffer holds %d: %w", size, len(data)-BlobHeaderSize, ErrTruncated)
	}

	b.Type = binary.LittleEndian.Uint32(data[0:4])
	b.Data = data[BlobHeaderSize : BlobHeaderSize+int(size)]

	return nil
}
