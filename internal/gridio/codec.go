// Package gridio reads, writes and generates heat worlds.
package gridio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"heatsim/internal/heat"
)

const (
	magic   = "HPCEHeatWorld"
	version = "v0"
)

// Format selects how cell data is encoded after the header.
type Format int

const (
	Text Format = iota
	Binary
	Half
)

func (f Format) String() string {
	switch f {
	case Text:
		return "Text"
	case Binary:
		return "Binary"
	case Half:
		return "Half"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "text", "":
		return Text, nil
	case "binary":
		return Binary, nil
	case "half":
		return Half, nil
	}
	return Text, fmt.Errorf("unknown world format %q", name)
}

// Load decodes a world and validates its shape.
func Load(r io.Reader) (*heat.World, error) {
	br := bufio.NewReader(r)
	var gotMagic, gotVersion string
	if _, err := fmt.Fscan(br, &gotMagic, &gotVersion); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("input did not start with %s", magic)
	}
	if gotVersion != version {
		return nil, fmt.Errorf("unsupported world version %q", gotVersion)
	}
	var w, h int
	var alpha, t float32
	var formatName string
	if _, err := fmt.Fscan(br, &w, &h, &alpha, &t, &formatName); err != nil {
		return nil, fmt.Errorf("reading dimensions: %w", err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: world size %dx%d", heat.ErrConfiguration, w, h)
	}
	format, err := ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	// Skip the rest of the format line.
	if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	world := heat.NewWorld(w, h, alpha)
	world.T = t
	switch format {
	case Text:
		err = readText(br, world)
	case Binary:
		err = readBinary(br, world, false)
	case Half:
		err = readBinary(br, world, true)
	}
	if err != nil {
		return nil, err
	}
	if err := world.Validate(); err != nil {
		return nil, err
	}
	return world, nil
}

func readText(r io.Reader, world *heat.World) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	next := func(what string, i int) (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("reading %s %d: %w", what, i, err)
			}
			return "", fmt.Errorf("reading %s %d: %w", what, i, io.ErrUnexpectedEOF)
		}
		return sc.Text(), nil
	}
	for i := range world.State {
		tok, err := next("state", i)
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return fmt.Errorf("parsing state %d: %w", i, err)
		}
		world.State[i] = float32(v)
	}
	for i := range world.Properties {
		tok, err := next("property", i)
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(tok, 0, 32)
		if err != nil {
			return fmt.Errorf("parsing property %d: %w", i, err)
		}
		world.Properties[i] = uint32(v)
	}
	return nil
}

func readBinary(r io.Reader, world *heat.World, half bool) error {
	if half {
		bits := make([]uint16, len(world.State))
		if err := binary.Read(r, binary.LittleEndian, bits); err != nil {
			return fmt.Errorf("reading half state: %w", err)
		}
		halfToFloat32(world.State, bits)
	} else if err := binary.Read(r, binary.LittleEndian, world.State); err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, world.Properties); err != nil {
		return fmt.Errorf("reading properties: %w", err)
	}
	return nil
}

// Save encodes world in the given format.
func Save(w io.Writer, world *heat.World, format Format) error {
	if err := world.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s %s\n", magic, version)
	fmt.Fprintf(bw, "%d %d %s %s\n", world.Width, world.Height, formatFloat(world.Alpha), formatFloat(world.T))
	fmt.Fprintf(bw, "%s\n", format)
	var err error
	switch format {
	case Text:
		err = writeText(bw, world)
	case Binary:
		if err = binary.Write(bw, binary.LittleEndian, world.State); err == nil {
			err = binary.Write(bw, binary.LittleEndian, world.Properties)
		}
	case Half:
		bits := make([]uint16, len(world.State))
		float32ToHalf(bits, world.State)
		if err = binary.Write(bw, binary.LittleEndian, bits); err == nil {
			err = binary.Write(bw, binary.LittleEndian, world.Properties)
		}
	default:
		err = fmt.Errorf("unknown world format %v", format)
	}
	if err != nil {
		return fmt.Errorf("writing world: %w", err)
	}
	return bw.Flush()
}

func writeText(bw *bufio.Writer, world *heat.World) error {
	for y := 0; y < world.Height; y++ {
		row := world.State[y*world.Width : (y+1)*world.Width]
		for x, v := range row {
			if x > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(formatFloat(v))
		}
		bw.WriteByte('\n')
	}
	for y := 0; y < world.Height; y++ {
		row := world.Properties[y*world.Width : (y+1)*world.Width]
		for x, p := range row {
			if x > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatUint(uint64(p), 10))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// formatFloat prints the shortest text that reads back to the same float32.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
