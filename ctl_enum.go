package sofctl

import (
	"fmt"
)

// enumCtl handles enumerated controls.
type enumCtl struct {
	ctl  *Ctl
	desc *Descriptor
}

func (e *enumCtl) Desc() *Descriptor {
	return e.desc
}

func (e *enumCtl) Attribute() (ElemType, CtlAccessFlag, uint32) {
	return SNDRV_CTL_ELEM_TYPE_ENUMERATED, attribute(e.desc), e.desc.Enum.NumChannels
}

func (e *enumCtl) Read(v *ElemValue) error {
	items, err := e.read()
	if err != nil {
		return err
	}

	v.Enumerated = items

	return nil
}

func (e *enumCtl) Write(v *ElemValue) error {
	return e.write(v.Enumerated)
}

func (e *enumCtl) name(item uint32) (string, error) {
	texts := e.desc.Enum.Texts
	if item >= uint32(len(texts)) {
		e.ctl.log.Error().Str("ctl", e.desc.Name).Uint32("item", item).Msg("invalid item for enum")

		return "", fmt.Errorf("item %d is out of bounds (number of items: %d): %w", item, len(texts), ErrOutOfRange)
	}

	return texts[item], nil
}

func (e *enumCtl) read() ([]uint32, error) {
	channels := int(e.desc.Enum.NumChannels)

	req := &Request{
		ModuleID:   e.desc.ModuleID,
		InstanceID: e.desc.InstanceID,
		ParamID:    SOF_IPC4_ENUM_CONTROL_PARAM_ID,
		Op:         OpGet,
	}

	reply, n, err := e.ctl.exchange(req, enumHeaderSize+channels*enumValueSize)
	if err != nil {
		e.ctl.logFailure(e.desc, "enum get", err)

		return nil, err
	}

	payload, err := parseReply(reply, n, shape{fixed: enumHeaderSize, stride: enumValueSize, items: channels})
	if err != nil {
		e.ctl.logFailure(e.desc, "enum get", err)

		return nil, err
	}

	var data EnumPayload
	if err := data.UnmarshalBinary(payload); err != nil {
		e.ctl.logFailure(e.desc, "enum get", err)

		return nil, err
	}

	if len(data.Values) != channels {
		err := fmt.Errorf("got %d channels, want %d: %w", len(data.Values), channels, ErrChannelCountMismatch)
		e.ctl.logFailure(e.desc, "enum get", err)

		return nil, err
	}

	items := make([]uint32, channels)
	for i, v := range data.Values {
		items[i] = v.Value
	}

	if err := checkEnumItems(items, len(e.desc.Enum.Texts)); err != nil {
		e.ctl.logFailure(e.desc, "enum get", err)

		return nil, err
	}

	return items, nil
}

// write sends every channel in one message; enumerated controls have few enough items that no split is needed.
func (e *enumCtl) write(items []uint32) error {
	channels := int(e.desc.Enum.NumChannels)

	if len(items) < channels {
		return fmt.Errorf("control %s needs %d values, got %d: %w", e.desc.Name, channels, len(items), ErrOutOfRange)
	}

	if err := checkEnumItems(items[:channels], len(e.desc.Enum.Texts)); err != nil {
		return err
	}

	data := &EnumPayload{
		ID:     e.desc.Enum.ParamID,
		Values: make([]EnumChannelValue, channels),
	}

	for i := range data.Values {
		data.Values[i] = EnumChannelValue{Channel: uint32(i), Value: items[i]}
	}

	payload, err := data.MarshalBinary()
	if err != nil {
		return err
	}

	req := &Request{
		ModuleID:   e.desc.ModuleID,
		InstanceID: e.desc.InstanceID,
		ParamID:    SOF_IPC4_ENUM_CONTROL_PARAM_ID,
		Op:         OpSet,
		Payload:    payload,
	}

	reply, n, err := e.ctl.exchange(req, 0)
	if err != nil {
		e.ctl.logFailure(e.desc, "enum set", err)

		return err
	}

	if _, err := parseReply(reply, n, shape{}); err != nil {
		e.ctl.logFailure(e.desc, "enum set", err)

		return err
	}

	return nil
}
