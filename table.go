package sofctl

import (
	"fmt"
	"strings"
)

// DBScale describes the dB range of a volume control.
// Min is in 0.01 dB units and Step is the dB change of one mixer step in 0.01 dB units.
type DBScale struct {
	Min  int32
	Step uint32
	Mute bool
}

// MixerInfo holds the topology data of a volume or switch control.
type MixerInfo struct {
	Min         int32
	Max         int32
	NumChannels uint32
	// VolumeTable maps mixer values 0..Max to DSP volumes. It has Max+1 non-decreasing entries.
	VolumeTable []uint32
	Scale       *DBScale
}

// EnumInfo holds the topology data of an enumerated control.
type EnumInfo struct {
	ParamID     uint32
	NumChannels uint32
	Texts       []string
}

// BytesInfo holds the topology data of a byte control.
type BytesInfo struct {
	MaxSize uint32
	ABIType uint32
}

// Descriptor describes one control of the topology.
// ModuleID and InstanceID address the DSP module instance that owns the control state.
type Descriptor struct {
	Name       string
	Kind       Kind
	Access     CtlAccessFlag
	ModuleID   uint16
	InstanceID uint16

	Mixer MixerInfo
	Enum  EnumInfo
	Bytes BytesInfo
}

// HasTLV reports whether the control exposes TLV data.
func (d *Descriptor) HasTLV() bool {
	return d.Access&SNDRV_CTL_ELEM_ACCESS_TLV_READWRITE != 0
}

// validate checks the invariants the control handlers depend on.
func (d *Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("control has no name")
	}

	if len(d.Name) >= CtlNameMaxLen {
		return fmt.Errorf("control name %q is longer than %d bytes", d.Name, CtlNameMaxLen-1)
	}

	switch {
	case d.Kind.IsMixer():
		m := &d.Mixer
		if m.Max < 0 || m.Min > m.Max {
			return fmt.Errorf("control %s has invalid range %d..%d", d.Name, m.Min, m.Max)
		}

		if m.NumChannels == 0 || m.NumChannels > MaxChannels {
			return fmt.Errorf("control %s has %d channels", d.Name, m.NumChannels)
		}

		if len(m.VolumeTable) != int(m.Max)+1 {
			return fmt.Errorf("control %s has %d volume table entries, want %d", d.Name, len(m.VolumeTable), m.Max+1)
		}

		for i := 1; i < len(m.VolumeTable); i++ {
			if m.VolumeTable[i] < m.VolumeTable[i-1] {
				return fmt.Errorf("control %s volume table decreases at index %d", d.Name, i)
			}
		}
	case d.Kind.IsEnum():
		e := &d.Enum
		if len(e.Texts) == 0 || len(e.Texts) > MaxEnumItems {
			return fmt.Errorf("control %s has %d items", d.Name, len(e.Texts))
		}

		if e.NumChannels == 0 || e.NumChannels > MaxChannels {
			return fmt.Errorf("control %s has %d channels", d.Name, e.NumChannels)
		}
	case d.Kind.IsBytes():
		if d.Bytes.MaxSize == 0 {
			return fmt.Errorf("control %s has no data size", d.Name)
		}
	default:
		// Range and strobe controls are listed but have no handlers.
	}

	return nil
}

// Table is a read-only snapshot of the controls defined by the topology.
// Keys are dense 0-based indices that stay valid for the lifetime of the table.
type Table struct {
	ctls []Descriptor
}

// NewTable validates the descriptors and returns a table that owns a copy of them.
func NewTable(descs []Descriptor) (*Table, error) {
	if len(descs) > MaxCtls {
		return nil, fmt.Errorf("%d controls exceed the limit of %d: %w", len(descs), MaxCtls, ErrInvalidTable)
	}

	t := &Table{ctls: make([]Descriptor, len(descs))}

	for i := range descs {
		d := descs[i]
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("control %d: %w: %w", i, ErrInvalidTable, err)
		}

		d.Mixer.VolumeTable = append([]uint32(nil), d.Mixer.VolumeTable...)
		d.Enum.Texts = append([]string(nil), d.Enum.Texts...)
		if d.Mixer.Scale != nil {
			scale := *d.Mixer.Scale
			d.Mixer.Scale = &scale
		}

		t.ctls[i] = d
	}

	return t, nil
}

// NumCtls returns the number of controls in the table.
func (t *Table) NumCtls() int {
	if t == nil {
		return 0
	}

	return len(t.ctls)
}

// Descriptor returns the control with the given key.
func (t *Table) Descriptor(key uint32) (*Descriptor, error) {
	if t == nil {
		return nil, fmt.Errorf("table is nil: %w", ErrInvalidTable)
	}

	if key >= uint32(len(t.ctls)) {
		return nil, fmt.Errorf("key %d is out of bounds (number of controls: %d): %w", key, len(t.ctls), ErrOutOfRange)
	}

	return &t.ctls[key], nil
}
