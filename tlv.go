package sofctl

import (
	"encoding/binary"
	"fmt"
)

// tlvHeaderSize is the size of the numid/type and length words in front of TLV data.
const tlvHeaderSize = 8

// TLV serves the TLV callback of a control.
//
// For mixer controls tlv receives the dB scale built from the topology; write is ignored and no message is sent.
// For byte controls a write sends the blob that follows the TLV header, and a read fetches the blob
// into the same place and sets the header to numid and the framed blob length.
func (c *Ctl) TLV(key uint32, write bool, numid uint32, tlv []byte) error {
	ctl, err := c.Control(key)
	if err != nil {
		return err
	}

	switch ctl := ctl.(type) {
	case *mixerCtl:
		return ctl.dbScale(tlv)
	case *bytesCtl:
		if len(tlv) < tlvHeaderSize+BlobHeaderSize {
			return fmt.Errorf("TLV buffer of %d bytes cannot hold a blob header: %w", len(tlv), ErrOutOfRange)
		}

		if write {
			return ctl.write(tlv[tlvHeaderSize:])
		}

		size, err := ctl.read(tlv[tlvHeaderSize:])
		if err != nil {
			return err
		}

		putUint32s(tlv, numid, uint32(size+BlobHeaderSize))

		return nil
	default:
		return fmt.Errorf("control %s has no TLV callback: %w", ctl.Desc().Name, ErrInvalidKind)
	}
}

// putUint32s stores words at the start of b in little-endian order.
func putUint32s(b []byte, words ...uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
}
