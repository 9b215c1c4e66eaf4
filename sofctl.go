// Package sofctl provides the control interface of a Sound Open Firmware (SOF) pipeline host, modeled after the ALSA sof external control plugin.
//
// Controls are described by a read-only table that the pipeline host publishes in shared memory.
// Reading or writing a control value is translated into IPC4 large config get/set messages
// that are exchanged with the DSP process over a local socket.
package sofctl

// ElemType defines the value type of a control element.
// These values correspond to the SNDRV_CTL_ELEM_TYPE_* constants in the ALSA kernel headers.
type ElemType int32

const (
	SNDRV_CTL_ELEM_TYPE_NONE       ElemType = 0
	SNDRV_CTL_ELEM_TYPE_BOOLEAN    ElemType = 1
	SNDRV_CTL_ELEM_TYPE_INTEGER    ElemType = 2
	SNDRV_CTL_ELEM_TYPE_ENUMERATED ElemType = 3
	SNDRV_CTL_ELEM_TYPE_BYTES      ElemType = 4
	SNDRV_CTL_ELEM_TYPE_IEC958     ElemType = 5
	SNDRV_CTL_ELEM_TYPE_INTEGER64  ElemType = 6
)

// ElemTypeNames provides human-readable names for element types.
var ElemTypeNames = map[ElemType]string{
	SNDRV_CTL_ELEM_TYPE_NONE:       "NONE",
	SNDRV_CTL_ELEM_TYPE_BOOLEAN:    "BOOL",
	SNDRV_CTL_ELEM_TYPE_INTEGER:    "INT",
	SNDRV_CTL_ELEM_TYPE_ENUMERATED: "ENUM",
	SNDRV_CTL_ELEM_TYPE_BYTES:      "BYTE",
	SNDRV_CTL_ELEM_TYPE_IEC958:     "IEC958",
	SNDRV_CTL_ELEM_TYPE_INTEGER64:  "INT64",
}

// ElemIface defines the interface a control element belongs to.
type ElemIface int32

const (
	SNDRV_CTL_ELEM_IFACE_CARD  ElemIface = 0
	SNDRV_CTL_ELEM_IFACE_HWDEP ElemIface = 1
	SNDRV_CTL_ELEM_IFACE_MIXER ElemIface = 2
	SNDRV_CTL_ELEM_IFACE_PCM   ElemIface = 3
)

// CtlAccessFlag defines the access permissions for a control element.
type CtlAccessFlag uint32

const (
	// If set, the control is readable.
	SNDRV_CTL_ELEM_ACCESS_READ CtlAccessFlag = 1 << 0
	// If set, the control is writable.
	SNDRV_CTL_ELEM_ACCESS_WRITE CtlAccessFlag = 1 << 1
	// If set, the control value may change without a notification.
	SNDRV_CTL_ELEM_ACCESS_VOLATILE CtlAccessFlag = 1 << 2
	// If set, TLV data can be read from the control.
	SNDRV_CTL_ELEM_ACCESS_TLV_READ CtlAccessFlag = 1 << 4
	// If set, TLV data can be written to the control.
	SNDRV_CTL_ELEM_ACCESS_TLV_WRITE CtlAccessFlag = 1 << 5
	// If set, the control is inactive.
	SNDRV_CTL_ELEM_ACCESS_INACTIVE CtlAccessFlag = 1 << 8
	// If set, TLV requests are routed to the plugin TLV callback.
	SND_CTL_EXT_ACCESS_TLV_CALLBACK CtlAccessFlag = 1 << 28

	SNDRV_CTL_ELEM_ACCESS_READWRITE     = SNDRV_CTL_ELEM_ACCESS_READ | SNDRV_CTL_ELEM_ACCESS_WRITE
	SNDRV_CTL_ELEM_ACCESS_TLV_READWRITE = SNDRV_CTL_ELEM_ACCESS_TLV_READ | SNDRV_CTL_ELEM_ACCESS_TLV_WRITE
)

// EventMask defines the type of event generated for a control element.
type EventMask uint32

const (
	// Indicates that a control element's value has changed.
	SNDRV_CTL_EVENT_MASK_VALUE EventMask = 1 << 0
	// Indicates that a control element's metadata (e.g., range) has changed.
	SNDRV_CTL_EVENT_MASK_INFO EventMask = 1 << 1
	// Indicates that a control element has been added.
	SNDRV_CTL_EVENT_MASK_ADD EventMask = 1 << 2
	// Indicates a control element has been removed.
	SNDRV_CTL_EVENT_MASK_REMOVE EventMask = 1 << 3
)

// TLV types.
const (
	SNDRV_CTL_TLVT_CONTAINER = 0
	SNDRV_CTL_TLVT_DB_SCALE  = 1
)

// TLV_DB_SCALE_MUTE is set in the step word of a dB scale when the minimum value mutes.
const TLV_DB_SCALE_MUTE = 0x10000

// Kind identifies the topology control type, i.e. the value of ops.info in the topology control header.
// These values correspond to the SND_SOC_TPLG_CTL_* constants.
type Kind uint32

const (
	SND_SOC_TPLG_CTL_VOLSW       Kind = 1
	SND_SOC_TPLG_CTL_VOLSW_SX    Kind = 2
	SND_SOC_TPLG_CTL_VOLSW_XR_SX Kind = 3
	SND_SOC_TPLG_CTL_ENUM        Kind = 4
	SND_SOC_TPLG_CTL_BYTES       Kind = 5
	SND_SOC_TPLG_CTL_ENUM_VALUE  Kind = 6
	SND_SOC_TPLG_CTL_RANGE       Kind = 7
	SND_SOC_TPLG_CTL_STROBE      Kind = 8
)

// IsMixer reports whether the kind is a volume/switch mixer control.
func (k Kind) IsMixer() bool {
	return k == SND_SOC_TPLG_CTL_VOLSW || k == SND_SOC_TPLG_CTL_VOLSW_SX || k == SND_SOC_TPLG_CTL_VOLSW_XR_SX
}

// IsEnum reports whether the kind is an enumerated control.
func (k Kind) IsEnum() bool {
	return k == SND_SOC_TPLG_CTL_ENUM || k == SND_SOC_TPLG_CTL_ENUM_VALUE
}

// IsBytes reports whether the kind is a byte-blob control.
func (k Kind) IsBytes() bool {
	return k == SND_SOC_TPLG_CTL_BYTES
}

// String returns the topology name of the kind.
func (k Kind) String() string {
	switch k {
	case SND_SOC_TPLG_CTL_VOLSW:
		return "volsw"
	case SND_SOC_TPLG_CTL_VOLSW_SX:
		return "volsw_sx"
	case SND_SOC_TPLG_CTL_VOLSW_XR_SX:
		return "volsw_xr_sx"
	case SND_SOC_TPLG_CTL_ENUM:
		return "enum"
	case SND_SOC_TPLG_CTL_BYTES:
		return "bytes"
	case SND_SOC_TPLG_CTL_ENUM_VALUE:
		return "enum_value"
	case SND_SOC_TPLG_CTL_RANGE:
		return "range"
	case SND_SOC_TPLG_CTL_STROBE:
		return "strobe"
	default:
		return "unknown"
	}
}

// Limits of the shared control table.
const (
	// MaxCtls is the number of control records in the shared table.
	MaxCtls = 256
	// MaxVolumeSize is the maximum number of volume table entries, i.e. max+1 of a mixer.
	MaxVolumeSize = 120
	// MaxEnumItems is the maximum number of texts of an enumerated control.
	MaxEnumItems = 16
	// MaxChannels is the maximum number of channels of a mixer or enumerated control.
	MaxChannels = 8
	// CtlNameMaxLen is the size of a control name including the terminating zero (SNDRV_CTL_ELEM_ID_NAME_MAXLEN).
	CtlNameMaxLen = 44
)
