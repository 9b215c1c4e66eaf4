package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/gen2brain/sofctl"
)

func main() {
	var (
		config  string
		socket  string
		shm     string
		timeout string
		list    bool
	)

	def := sofctl.DefaultConfig()

	flag.StringVarP(&config, "config", "c", "", "TOML configuration file.")
	flag.StringVarP(&socket, "socket", "s", def.Socket, "Path of the DSP IPC socket.")
	flag.StringVar(&shm, "shm", def.Shm, "Path of the shared control table.")
	flag.StringVar(&timeout, "timeout", def.Timeout.String(), "Reply timeout, 0 waits forever.")
	flag.BoolVarP(&list, "list", "l", false, "List all controls.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [control] [value...]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nTo set a control, provide the control name or numid and the desired value(s).")
		fmt.Fprintln(os.Stderr, "Byte controls take a single @file argument holding the framed blob.")
		fmt.Fprintln(os.Stderr, "If no control is specified, all controls and their values are listed.")
	}

	flag.Parse()

	cfg := def
	if config != "" {
		var err error

		cfg, err = sofctl.LoadConfig(config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if flag.CommandLine.Changed("socket") {
		cfg.Socket = socket
	}

	if flag.CommandLine.Changed("shm") {
		cfg.Shm = shm
	}

	if flag.CommandLine.Changed("timeout") {
		if err := cfg.Timeout.UnmarshalText([]byte(timeout)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid timeout '%s': %v\n", timeout, err)
			os.Exit(1)
		}
	}

	ctl, err := sofctl.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening controls: %v\n", err)
		os.Exit(1)
	}
	defer ctl.Close()

	args := flag.Args()

	if list {
		printAllControls(ctl, true)

		return
	}

	if len(args) == 0 {
		printAllControls(ctl, false)

		return
	}

	// The first argument can be a control name or numid
	id := sofctl.ElemID{Name: args[0]}
	if numid, err := strconv.ParseUint(args[0], 10, 32); err == nil {
		id = sofctl.ElemID{Numid: uint32(numid)}
	}

	key, err := ctl.FindElem(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot find control '%s': %v\n", args[0], err)
		os.Exit(1)
	}

	values := args[1:]
	if len(values) == 0 {
		printControl(ctl, key, false)

		return
	}

	if err := setControlValue(ctl, key, values); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting value for control '%s': %v\n", args[0], err)
		os.Exit(1)
	}

	fmt.Printf("Set control '%s' successfully.\n", args[0])
}

// printAllControls lists all controls and optionally their values.
func printAllControls(ctl *sofctl.Ctl, listOnly bool) {
	numCtls := ctl.ElemCount()

	fmt.Printf("Card '%s' has %d controls.\n", ctl.Name(), numCtls)
	fmt.Println("---------------------------------------")

	for key := 0; key < numCtls; key++ {
		printControl(ctl, uint32(key), listOnly)
	}
}

// printControl prints detailed information about a single control.
func printControl(ctl *sofctl.Ctl, key uint32, listOnly bool) {
	id, err := ctl.ElemList(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not get control %d: %v\n", key, err)

		return
	}

	if listOnly {
		fmt.Printf("%d: %s\n", id.Numid, id.Name)

		return
	}

	typ, _, count, _ := ctl.Attribute(key)
	fmt.Printf("%d: %s (%s, %d values)\n", id.Numid, id.Name, sofctl.ElemTypeNames[typ], count)

	switch typ {
	case sofctl.SNDRV_CTL_ELEM_TYPE_INTEGER:
		printIntegerControl(ctl, key)
	case sofctl.SNDRV_CTL_ELEM_TYPE_BOOLEAN:
		printBooleanControl(ctl, key)
	case sofctl.SNDRV_CTL_ELEM_TYPE_ENUMERATED:
		printEnumControl(ctl, key)
	case sofctl.SNDRV_CTL_ELEM_TYPE_BYTES:
		printByteControl(ctl, key, count)
	default:
		fmt.Println("  Value: <unsupported type>")
	}

	fmt.Println()
}

// printIntegerControl prints details for an integer control.
func printIntegerControl(ctl *sofctl.Ctl, key uint32) {
	if min, max, step, err := ctl.IntegerInfo(key); err == nil {
		fmt.Printf("  Range: %d - %d (step %d)\n", min, max, step)
	}

	values, err := ctl.ReadInteger(key)
	if err != nil {
		fmt.Printf("  Value: <error: %v>\n", err)

		return
	}

	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = strconv.FormatInt(v, 10)
	}

	fmt.Printf("  Value: %s\n", strings.Join(strs, ", "))
}

// printBooleanControl prints details for a boolean control.
func printBooleanControl(ctl *sofctl.Ctl, key uint32) {
	values, err := ctl.ReadInteger(key)
	if err != nil {
		fmt.Printf("  Value: <error: %v>\n", err)

		return
	}

	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = "Off"
		if v > 0 {
			strs[i] = "On"
		}
	}

	fmt.Printf("  Value: %s\n", strings.Join(strs, ", "))
}

// printEnumControl prints details for an enumerated control.
func printEnumControl(ctl *sofctl.Ctl, key uint32) {
	items, _ := ctl.EnumeratedInfo(key)

	names := make([]string, 0, items)
	for i := uint32(0); i < items; i++ {
		name, err := ctl.EnumeratedName(key, i)
		if err != nil {
			name = "<error>"
		}
		names = append(names, name)
	}

	fmt.Printf("  Enums: %s\n", strings.Join(names, ", "))

	values, err := ctl.ReadEnumerated(key)
	if err != nil {
		fmt.Printf("  Value: <error: %v>\n", err)

		return
	}

	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = names[v]
	}

	fmt.Printf("  Value: %s\n", strings.Join(strs, ", "))
}

// printByteControl prints the type tag, size and first bytes of a byte control.
func printByteControl(ctl *sofctl.Ctl, key, maxSize uint32) {
	buf := make([]byte, sofctl.BlobHeaderSize+int(maxSize))

	size, err := ctl.ReadBytes(key, buf)
	if err != nil {
		fmt.Printf("  Value: <error reading bytes: %v>\n", err)

		return
	}

	var blob sofctl.Blob
	if err := blob.UnmarshalBinary(buf); err != nil {
		fmt.Printf("  Value: <error reading bytes: %v>\n", err)

		return
	}

	fmt.Printf("  Type: %d, Size: %d\n", blob.Type, size)

	// For brevity, only show the first few bytes if it's long
	limit := 16
	if len(blob.Data) > limit {
		fmt.Printf("  Value (first %d bytes): %v...\n", limit, blob.Data[:limit])
	} else {
		fmt.Printf("  Value: %v\n", blob.Data)
	}
}

// setControlValue parses string arguments and writes them to the control.
// A single value is applied to every channel.
func setControlValue(ctl *sofctl.Ctl, key uint32, values []string) error {
	typ, _, count, err := ctl.Attribute(key)
	if err != nil {
		return err
	}

	if typ == sofctl.SNDRV_CTL_ELEM_TYPE_BYTES {
		if len(values) != 1 || !strings.HasPrefix(values[0], "@") {
			return fmt.Errorf("byte controls take a single @file argument")
		}

		data, err := os.ReadFile(strings.TrimPrefix(values[0], "@"))
		if err != nil {
			return err
		}

		return ctl.WriteBytes(key, data)
	}

	if len(values) == 1 {
		for len(values) < int(count) {
			values = append(values, values[0])
		}
	}

	if len(values) != int(count) {
		return fmt.Errorf("provided %d values, but control has %d values", len(values), count)
	}

	switch typ {
	case sofctl.SNDRV_CTL_ELEM_TYPE_INTEGER, sofctl.SNDRV_CTL_ELEM_TYPE_BOOLEAN:
		ints := make([]int64, len(values))
		for i, s := range values {
			v, err := parseInteger(typ, s)
			if err != nil {
				return err
			}
			ints[i] = v
		}

		return ctl.WriteInteger(key, ints)

	case sofctl.SNDRV_CTL_ELEM_TYPE_ENUMERATED:
		items := make([]uint32, len(values))
		for i, s := range values {
			item, err := parseEnum(ctl, key, s)
			if err != nil {
				return err
			}
			items[i] = item
		}

		return ctl.WriteEnumerated(key, items)

	default:
		return fmt.Errorf("cannot set value for unsupported control type %s", sofctl.ElemTypeNames[typ])
	}
}

// parseInteger accepts plain integers and, for boolean controls, on/off words.
func parseInteger(typ sofctl.ElemType, s string) (int64, error) {
	if typ == sofctl.SNDRV_CTL_ELEM_TYPE_BOOLEAN {
		switch strings.ToLower(s) {
		case "1", "on", "true", "yes":
			return 1, nil
		case "0", "off", "false", "no":
			return 0, nil
		}

		return 0, fmt.Errorf("invalid boolean value '%s'", s)
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s'", s)
	}

	return v, nil
}

// parseEnum accepts an item name or index.
func parseEnum(ctl *sofctl.Ctl, key uint32, s string) (uint32, error) {
	items, err := ctl.EnumeratedInfo(key)
	if err != nil {
		return 0, err
	}

	for i := uint32(0); i < items; i++ {
		if name, err := ctl.EnumeratedName(key, i); err == nil && strings.EqualFold(name, s) {
			return i, nil
		}
	}

	if idx, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(idx), nil
	}

	return 0, fmt.Errorf("invalid enum value '%s'", s)
}
