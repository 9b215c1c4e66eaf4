package sofctl

import "fmt"

// MixerToIPC converts a mixer value to the DSP volume by indexing the volume table.
// Values past the end of the table are clamped to the last entry and negative values to the first.
func MixerToIPC(value int64, table []uint32) uint32 {
	if len(table) == 0 {
		return 0
	}

	if value < 0 {
		return table[0]
	}

	if value >= int64(len(table)) {
		return table[len(table)-1]
	}

	return table[value]
}

// IPCToMixer converts a DSP volume to a mixer value.
// It returns the index of the first table entry that is not smaller than the volume,
// or the last index if the volume is above every entry.
//
// This is not an exact inverse of MixerToIPC when the table has repeated steps,
// but IPCToMixer(MixerToIPC(IPCToMixer(v))) == IPCToMixer(v) for any non-decreasing table.
func IPCToMixer(volume uint32, table []uint32) int64 {
	for i, v := range table {
		if v >= volume {
			return int64(i)
		}
	}

	if len(table) == 0 {
		return 0
	}

	return int64(len(table) - 1)
}

// checkEnumItems verifies that every value selects an existing item.
func checkEnumItems(values []uint32, items int) error {
	for ch, v := range values {
		if v >= uint32(items) {
			return fmt.Errorf("item %d on channel %d is out of bounds (number of items: %d): %w", v, ch, items, ErrOutOfRange)
		}
	}

	return nil
}
