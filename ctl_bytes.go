package sofctl

import (
	"encoding/binary"
	"fmt"
)

// bytesCtl handles byte controls, whose data is an opaque blob owned by the module.
type bytesCtl struct {
	ctl  *Ctl
	desc *Descriptor
}

func (b *bytesCtl) Desc() *Descriptor {
	return b.desc
}

func (b *bytesCtl) Attribute() (ElemType, CtlAccessFlag, uint32) {
	return SNDRV_CTL_ELEM_TYPE_BYTES, attribute(b.desc), b.desc.Bytes.MaxSize
}

// Read fills v.Bytes with the framed blob, sized like the host's value buffer.
func (b *bytesCtl) Read(v *ElemValue) error {
	buf := make([]byte, b.desc.Bytes.MaxSize)

	size, err := b.read(buf)
	if err != nil {
		return err
	}

	used := BlobHeaderSize + min(size, len(buf)-BlobHeaderSize)
	v.Bytes = buf[:used]

	return nil
}

func (b *bytesCtl) Write(v *ElemValue) error {
	return b.write(v.Bytes)
}

// read fetches the blob into buf, which receives the type tag and size followed by the data.
// Data that does not fit buf is dropped; the returned size is the one reported by the DSP.
func (b *bytesCtl) read(buf []byte) (int, error) {
	if len(buf) < BlobHeaderSize {
		return 0, fmt.Errorf("buffer of %d bytes cannot hold a blob header: %w", len(buf), ErrOutOfRange)
	}

	data, err := b.get()
	if err != nil {
		return 0, err
	}

	binary.LittleEndian.PutUint32(buf[0:4], b.desc.Bytes.ABIType)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(data)))
	copy(buf[BlobHeaderSize:], data)

	return len(data), nil
}

// get issues a GET sized for the largest blob the control can hold.
func (b *bytesCtl) get() ([]byte, error) {
	req := &Request{
		ModuleID:   b.desc.ModuleID,
		InstanceID: b.desc.InstanceID,
		ParamID:    b.desc.Bytes.ABIType,
		Op:         OpGet,
	}

	reply, n, err := b.ctl.exchange(req, int(b.desc.Bytes.MaxSize))
	if err != nil {
		b.ctl.logFailure(b.desc, "bytes get", err)

		return nil, err
	}

	// The capacity equals the control's max size, so a larger blob is rejected here.
	data, err := parseReply(reply, n, shape{})
	if err != nil {
		b.ctl.logFailure(b.desc, "bytes get", err)

		return nil, err
	}

	return data, nil
}

// write sends a framed blob in a single message. The type tag selects the module parameter.
func (b *bytesCtl) write(framed []byte) error {
	var blob Blob
	if err := blob.UnmarshalBinary(framed); err != nil {
		return fmt.Errorf("control %s: %w", b.desc.Name, err)
	}

	if len(blob.Data) > int(b.desc.Bytes.MaxSize) {
		return fmt.Errorf("blob of %d bytes exceeds the %d bytes of control %s: %w", len(blob.Data), b.desc.Bytes.MaxSize, b.desc.Name, ErrSizeExceedsCapacity)
	}

	req := &Request{
		ModuleID:   b.desc.ModuleID,
		InstanceID: b.desc.InstanceID,
		ParamID:    blob.Type,
		Op:         OpSet,
		Payload:    blob.Data,
	}

	reply, n, err := b.ctl.exchange(req, 0)
	if err != nil {
		b.ctl.logFailure(b.desc, "bytes set", err)

		return err
	}

	if _, err := parseReply(reply, n, shape{}); err != nil {
		b.ctl.logFailure(b.desc, "bytes set", err)

		return err
	}

	return nil
}
