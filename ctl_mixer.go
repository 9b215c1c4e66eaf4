package sofctl

import (
	"fmt"
)

// mixerCtl handles volume and switch controls backed by a peak volume module.
type mixerCtl struct {
	ctl  *Ctl
	desc *Descriptor
}

func (m *mixerCtl) Desc() *Descriptor {
	return m.desc
}

func (m *mixerCtl) Attribute() (ElemType, CtlAccessFlag, uint32) {
	typ := SNDRV_CTL_ELEM_TYPE_INTEGER

	// Boolean controls only take binary values.
	if m.desc.Mixer.Min == 0 && m.desc.Mixer.Max == 1 {
		typ = SNDRV_CTL_ELEM_TYPE_BOOLEAN
	}

	return typ, attribute(m.desc), m.desc.Mixer.NumChannels
}

func (m *mixerCtl) Read(v *ElemValue) error {
	values, err := m.read()
	if err != nil {
		return err
	}

	v.Integer = values

	return nil
}

func (m *mixerCtl) Write(v *ElemValue) error {
	return m.write(v.Integer)
}

// info returns the range and step. TLV controls report the dB scale minimum and step instead.
func (m *mixerCtl) info() (min, max, step int64) {
	mixer := &m.desc.Mixer

	if m.desc.HasTLV() && mixer.Scale != nil {
		return int64(mixer.Scale.Min), int64(mixer.Max), int64(mixer.Scale.Step)
	}

	return int64(mixer.Min), int64(mixer.Max), 1
}

func (m *mixerCtl) read() ([]int64, error) {
	mixer := &m.desc.Mixer
	channels := int(mixer.NumChannels)

	req := &Request{
		ModuleID:   m.desc.ModuleID,
		InstanceID: m.desc.InstanceID,
		ParamID:    IPC4_VOLUME,
		Op:         OpGet,
	}

	// The reply carries one volume configuration per channel.
	reply, n, err := m.ctl.exchange(req, channels*VolumeConfigSize)
	if err != nil {
		m.ctl.logFailure(m.desc, "volume get", err)

		return nil, err
	}

	payload, err := parseReply(reply, n, shape{stride: VolumeConfigSize, items: channels})
	if err != nil {
		m.ctl.logFailure(m.desc, "volume get", err)

		return nil, err
	}

	configs := DecodeVolumeConfigs(payload)

	values := make([]int64, channels)
	for i := range values {
		values[i] = IPCToMixer(configs[i].TargetVolume, mixer.VolumeTable)
	}

	return values, nil
}

// write sends a single message addressed to all channels when every value is equal,
// otherwise one message per channel. The first failure aborts the write without undoing earlier channels.
func (m *mixerCtl) write(values []int64) error {
	mixer := &m.desc.Mixer
	channels := int(mixer.NumChannels)

	if len(values) < channels {
		return fmt.Errorf("control %s needs %d values, got %d: %w", m.desc.Name, channels, len(values), ErrOutOfRange)
	}

	allEqual := true
	for i := 1; i < channels; i++ {
		if values[i] != values[0] {
			allEqual = false

			break
		}
	}

	for i := 0; i < channels; i++ {
		volume := VolumeConfig{
			ChannelID:     uint32(i),
			TargetVolume:  MixerToIPC(values[i], mixer.VolumeTable),
			CurveType:     IPC4_AUDIO_CURVE_TYPE_WINDOWS_FADE,
			CurveDuration: IPC4_AUDIO_CURVE_DURATION,
		}

		if allEqual {
			volume.ChannelID = IPC4_ALL_CHANNELS_MASK
		}

		if err := m.set(volume); err != nil {
			return err
		}

		if allEqual {
			break
		}
	}

	return nil
}

func (m *mixerCtl) set(volume VolumeConfig) error {
	payload, err := volume.MarshalBinary()
	if err != nil {
		return err
	}

	req := &Request{
		ModuleID:   m.desc.ModuleID,
		InstanceID: m.desc.InstanceID,
		ParamID:    IPC4_VOLUME,
		Op:         OpSet,
		Payload:    payload,
	}

	reply, n, err := m.ctl.exchange(req, 0)
	if err != nil {
		m.ctl.logFailure(m.desc, "volume set", err)

		return err
	}

	if _, err := parseReply(reply, n, shape{}); err != nil {
		m.ctl.logFailure(m.desc, "volume set", err)

		return err
	}

	return nil
}

// dbScale fills tlv with the dB scale of the control: type, length, minimum and step with the mute flag.
func (m *mixerCtl) dbScale(tlv []byte) error {
	scale := m.desc.Mixer.Scale
	if scale == nil {
		return fmt.Errorf("control %s has no dB scale: %w", m.desc.Name, ErrInvalidKind)
	}

	if len(tlv) < 4*4 {
		return fmt.Errorf("TLV buffer of %d bytes cannot hold a dB scale: %w", len(tlv), ErrOutOfRange)
	}

	step := scale.Step & 0xffff
	if scale.Mute {
		step |= TLV_DB_SCALE_MUTE
	}

	putUint32s(tlv, SNDRV_CTL_TLVT_DB_SCALE, 2*4, uint32(scale.Min), step)

	return nil
}
