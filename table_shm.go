package sofctl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// shmMagic is "SOFG" in little-endian byte order.
	shmMagic   = 0x47464f53
	shmVersion = 1
)

// shmGlbHeader is the start of the global context segment published by the pipeline host.
type shmGlbHeader struct {
	Magic    uint32
	Version  uint32
	NumCtls  uint32
	Reserved [5]uint32
}

// shmCtl is one control record of the global context segment.
// Mixer, enumerated and byte fields are all present; Kind tells which of them are valid.
type shmCtl struct {
	Name        [CtlNameMaxLen]byte
	Kind        uint32 // snd_soc_tplg_ctl_hdr.ops.info
	Access      uint32
	ModuleID    uint32
	InstanceID  uint32
	Index       uint32 // Control ID sent in enumerated payloads.
	NumChannels uint32

	Min         int32
	Max         int32
	ScaleMin    int32
	ScaleStep   uint32
	ScaleMute   uint32
	ScaleValid  uint32
	VolumeTable [MaxVolumeSize]uint32

	Items uint32
	Texts [MaxEnumItems][CtlNameMaxLen]byte

	MaxBytes uint32
	ABIType  uint32

	Reserved [8]uint32
}

var (
	shmGlbHeaderSize = binary.Size(shmGlbHeader{})
	shmCtlSize       = binary.Size(shmCtl{})
)

// MapTable maps the global context segment at path read-only, decodes the control table and unmaps it again.
// The returned table is an owned snapshot, so it stays valid after the segment owner goes away.
// The segment must be fully populated by the pipeline host before MapTable is called.
func MapTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open control table %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s failed: %w", path, err)
	}

	size := int(info.Size())
	if size < shmGlbHeaderSize {
		return nil, fmt.Errorf("control table %s is %d bytes: %w", path, size, ErrInvalidTable)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s failed: %w", path, err)
	}
	defer func() {
		_ = unix.Munmap(data)
	}()

	return DecodeTable(data)
}

// DecodeTable decodes a global context image.
func DecodeTable(data []byte) (*Table, error) {
	var hdr shmGlbHeader

	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w: %w", ErrInvalidTable, err)
	}

	if hdr.Magic != shmMagic {
		return nil, fmt.Errorf("bad magic 0x%08x: %w", hdr.Magic, ErrInvalidTable)
	}

	if hdr.Version != shmVersion {
		return nil, fmt.Errorf("unsupported version %d: %w", hdr.Version, ErrInvalidTable)
	}

	if hdr.NumCtls > MaxCtls {
		return nil, fmt.Errorf("%d controls exceed the limit of %d: %w", hdr.NumCtls, MaxCtls, ErrInvalidTable)
	}

	if want := shmGlbHeaderSize + int(hdr.NumCtls)*shmCtlSize; len(data) < want {
		return nil, fmt.Errorf("image of %d bytes is too short for %d controls (%d bytes): %w", len(data), hdr.NumCtls, want, ErrInvalidTable)
	}

	descs := make([]Descriptor, 0, hdr.NumCtls)
	for i := uint32(0); i < hdr.NumCtls; i++ {
		var rec shmCtl
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("read control %d: %w: %w", i, ErrInvalidTable, err)
		}

		d, err := rec.descriptor()
		if err != nil {
			return nil, fmt.Errorf("control %d: %w: %w", i, ErrInvalidTable, err)
		}

		descs = append(descs, d)
	}

	return NewTable(descs)
}

// EncodeTable produces the global context image of a table, as the pipeline host lays it out.
func EncodeTable(t *Table) ([]byte, error) {
	var buf bytes.Buffer

	hdr := shmGlbHeader{
		Magic:   shmMagic,
		Version: shmVersion,
		NumCtls: uint32(t.NumCtls()),
	}

	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	for i := 0; i < t.NumCtls(); i++ {
		rec, err := newShmCtl(&t.ctls[i])
		if err != nil {
			return nil, fmt.Errorf("control %d: %w", i, err)
		}

		if err := binary.Write(&buf, binary.LittleEndian, rec); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// descriptor converts the record to a Descriptor.
func (c *shmCtl) descriptor() (Descriptor, error) {
	if c.ModuleID > 0xffff || c.InstanceID > 0xffff {
		return Descriptor{}, fmt.Errorf("module %d instance %d out of range", c.ModuleID, c.InstanceID)
	}

	d := Descriptor{
		Name:       cString(c.Name[:]),
		Kind:       Kind(c.Kind),
		Access:     CtlAccessFlag(c.Access),
		ModuleID:   uint16(c.ModuleID),
		InstanceID: uint16(c.InstanceID),
	}

	switch {
	case d.Kind.IsMixer():
		if c.Max < 0 || c.Max >= MaxVolumeSize {
			return Descriptor{}, fmt.Errorf("max %d does not fit a volume table of %d entries", c.Max, MaxVolumeSize)
		}

		d.Mixer = MixerInfo{
			Min:         c.Min,
			Max:         c.Max,
			NumChannels: c.NumChannels,
			VolumeTable: append([]uint32(nil), c.VolumeTable[:c.Max+1]...),
		}

		if c.ScaleValid != 0 {
			d.Mixer.Scale = &DBScale{Min: c.ScaleMin, Step: c.ScaleStep, Mute: c.ScaleMute != 0}
		}
	case d.Kind.IsEnum():
		if c.Items > MaxEnumItems {
			return Descriptor{}, fmt.Errorf("%d items exceed the limit of %d", c.Items, MaxEnumItems)
		}

		d.Enum = EnumInfo{
			ParamID:     c.Index,
			NumChannels: c.NumChannels,
			Texts:       make([]string, c.Items),
		}

		for i := range d.Enum.Texts {
			d.Enum.Texts[i] = cString(c.Texts[i][:])
		}
	case d.Kind.IsBytes():
		d.Bytes = BytesInfo{MaxSize: c.MaxBytes, ABIType: c.ABIType}
	}

	return d, nil
}

// newShmCtl converts a Descriptor to its record.
func newShmCtl(d *Descriptor) (*shmCtl, error) {
	c := &shmCtl{
		Kind:       uint32(d.Kind),
		Access:     uint32(d.Access),
		ModuleID:   uint32(d.ModuleID),
		InstanceID: uint32(d.InstanceID),
	}

	copy(c.Name[:CtlNameMaxLen-1], d.Name)

	switch {
	case d.Kind.IsMixer():
		if len(d.Mixer.VolumeTable) > MaxVolumeSize {
			return nil, fmt.Errorf("volume table of %d entries exceeds %d", len(d.Mixer.VolumeTable), MaxVolumeSize)
		}

		c.Min = d.Mixer.Min
		c.Max = d.Mixer.Max
		c.NumChannels = d.Mixer.NumChannels
		copy(c.VolumeTable[:], d.Mixer.VolumeTable)

		if s := d.Mixer.Scale; s != nil {
			c.ScaleValid = 1
			c.ScaleMin = s.Min
			c.ScaleStep = s.Step
			if s.Mute {
				c.ScaleMute = 1
			}
		}
	case d.Kind.IsEnum():
		c.Index = d.Enum.ParamID
		c.NumChannels = d.Enum.NumChannels
		c.Items = uint32(len(d.Enum.Texts))

		for i, text := range d.Enum.Texts {
			copy(c.Texts[i][:CtlNameMaxLen-1], text)
		}
	case d.Kind.IsBytes():
		c.MaxBytes = d.Bytes.MaxSize
		c.ABIType = d.Bytes.ABIType
	}

	return c, nil
}

// cString converts a C-style null-terminated byte array to a Go string.
func cString(b []byte) string {
	i := bytes.IndexByte(b, 0)
	if i == -1 {
		return string(b)
	}

	return string(b[:i])
}
