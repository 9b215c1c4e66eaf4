package sofctl_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gen2brain/sofctl"
)

// Keys of the controls in testTable.
const (
	keyVolume uint32 = iota
	keyMode
	keyEQ
	keySwitch
	keyStrobe
)

// fakeDSP records every request and answers it with the reply returned by handle.
type fakeDSP struct {
	requests []sofctl.Request
	handle   func(req sofctl.Request) []byte
	err      error
	closed   bool
}

func (f *fakeDSP) Exchange(req, reply []byte) (int, error) {
	var r sofctl.Request
	if err := r.UnmarshalBinary(req); err != nil {
		return 0, err
	}

	f.requests = append(f.requests, r)

	if f.err != nil {
		return 0, f.err
	}

	out := []byte{0, 0, 0, 0, 0, 0, 0, 0}
	if f.handle != nil {
		out = f.handle(r)
	}

	return copy(reply, out), nil
}

func (f *fakeDSP) Close() error {
	f.closed = true

	return nil
}

// linearTable returns max+1 entries of step increments.
func linearTable(max int, step uint32) []uint32 {
	table := make([]uint32, max+1)
	for i := range table {
		table[i] = uint32(i) * step
	}

	return table
}

func testDescriptors() []sofctl.Descriptor {
	return []sofctl.Descriptor{
		{
			Name:       "Master Playback Volume",
			Kind:       sofctl.SND_SOC_TPLG_CTL_VOLSW,
			Access:     sofctl.SNDRV_CTL_ELEM_ACCESS_READWRITE | sofctl.SNDRV_CTL_ELEM_ACCESS_TLV_READ,
			ModuleID:   0x20,
			InstanceID: 1,
			Mixer: sofctl.MixerInfo{
				Min:         0,
				Max:         100,
				NumChannels: 2,
				VolumeTable: linearTable(100, 10),
				Scale:       &sofctl.DBScale{Min: -9000, Step: 90, Mute: true},
			},
		},
		{
			Name:       "Mode",
			Kind:       sofctl.SND_SOC_TPLG_CTL_ENUM,
			Access:     sofctl.SNDRV_CTL_ELEM_ACCESS_READWRITE,
			ModuleID:   0x21,
			InstanceID: 2,
			Enum: sofctl.EnumInfo{
				ParamID:     3,
				NumChannels: 2,
				Texts:       []string{"off", "low", "high"},
			},
		},
		{
			Name:       "EQ Coefficients",
			Kind:       sofctl.SND_SOC_TPLG_CTL_BYTES,
			Access:     sofctl.SNDRV_CTL_ELEM_ACCESS_READWRITE | sofctl.SNDRV_CTL_ELEM_ACCESS_TLV_READWRITE,
			ModuleID:   0x22,
			InstanceID: 0,
			Bytes:      sofctl.BytesInfo{MaxSize: 64, ABIType: 5},
		},
		{
			Name:       "Mute Switch",
			Kind:       sofctl.SND_SOC_TPLG_CTL_VOLSW,
			Access:     sofctl.SNDRV_CTL_ELEM_ACCESS_READWRITE,
			ModuleID:   0x20,
			InstanceID: 3,
			Mixer: sofctl.MixerInfo{
				Min:         0,
				Max:         1,
				NumChannels: 1,
				VolumeTable: []uint32{0, 0x7fffffff},
			},
		},
		{
			Name:   "Strobe",
			Kind:   sofctl.SND_SOC_TPLG_CTL_STROBE,
			Access: sofctl.SNDRV_CTL_ELEM_ACCESS_READ,
		},
	}
}

func testTable(t *testing.T) *sofctl.Table {
	t.Helper()

	table, err := sofctl.NewTable(testDescriptors())
	require.NoError(t, err)

	return table
}

func newTestCtl(t *testing.T, dsp *fakeDSP) *sofctl.Ctl {
	t.Helper()

	ctl, err := sofctl.New(testTable(t), dsp)
	require.NoError(t, err)

	return ctl
}

// reply encodes a successful reply.
func reply(t *testing.T, payload []byte) []byte {
	t.Helper()

	out, err := sofctl.EncodeReply(sofctl.IPC4_SUCCESS, payload)
	require.NoError(t, err)

	return out
}

// rawReply encodes a reply whose declared size does not have to match the payload.
func rawReply(t *testing.T, status, size uint32, payload []byte) []byte {
	t.Helper()

	hdr, err := sofctl.ReplyHeader{Status: status, DataOffSize: size}.MarshalBinary()
	require.NoError(t, err)

	return append(hdr, payload...)
}

func volumePayload(t *testing.T, volumes ...uint32) []byte {
	t.Helper()

	var out []byte
	for ch, v := range volumes {
		b, err := sofctl.VolumeConfig{ChannelID: uint32(ch), TargetVolume: v}.MarshalBinary()
		require.NoError(t, err)
		out = append(out, b...)
	}

	return out
}

func enumPayload(t *testing.T, id uint32, items ...uint32) []byte {
	t.Helper()

	p := &sofctl.EnumPayload{ID: id}
	for ch, v := range items {
		p.Values = append(p.Values, sofctl.EnumChannelValue{Channel: uint32(ch), Value: v})
	}

	out, err := p.MarshalBinary()
	require.NoError(t, err)

	return out
}
