package gridio

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"heatsim/internal/heat"
)

func sampleWorld() *heat.World {
	w := heat.NewWorld(3, 2, 0.25)
	w.T = 1.5
	copy(w.State, []float32{0, 0.125, 1, 0.5, 0.333, 0.75})
	copy(w.Properties, []uint32{heat.CellInsulator, 0, heat.CellFixed, 0, 0, heat.CellInsulator})
	return w
}

func TestSaveLoadFormats(t *testing.T) {
	for _, format := range []Format{Text, Binary, Half} {
		t.Run(format.String(), func(t *testing.T) {
			src := sampleWorld()
			var buf bytes.Buffer
			if err := Save(&buf, src, format); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(&buf)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Width != 3 || got.Height != 2 || got.Alpha != 0.25 || got.T != 1.5 {
				t.Fatalf("header = %dx%d alpha=%v t=%v", got.Width, got.Height, got.Alpha, got.T)
			}
			tol := 0.0
			if format == Half {
				tol = 1e-3
			}
			for i := range src.State {
				if d := math.Abs(float64(got.State[i] - src.State[i])); d > tol {
					t.Errorf("state[%d] = %v, want %v", i, got.State[i], src.State[i])
				}
				if got.Properties[i] != src.Properties[i] {
					t.Errorf("properties[%d] = %d, want %d", i, got.Properties[i], src.Properties[i])
				}
			}
		})
	}
}

func TestLoadTextLayout(t *testing.T) {
	in := "HPCEHeatWorld v0\n2 2 0.5 0\nText\n0 1\n0.5 0.25\n2 0\n1 0\n"
	w, err := Load(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.State[1] != 1 || w.State[3] != 0.25 {
		t.Errorf("state = %v", w.State)
	}
	if w.Properties[0] != heat.CellInsulator || w.Properties[2] != heat.CellFixed {
		t.Errorf("properties = %v", w.Properties)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"magic":     "NotAWorld v0\n1 1 0 0\nText\n0\n0\n",
		"version":   "HPCEHeatWorld v9\n1 1 0 0\nText\n0\n0\n",
		"format":    "HPCEHeatWorld v0\n1 1 0 0\nZip\n0\n0\n",
		"truncated": "HPCEHeatWorld v0\n2 2 0 0\nText\n0 0\n",
		"state":     "HPCEHeatWorld v0\n1 1 0 0\nText\nhot\n0\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(strings.NewReader(in)); err == nil {
				t.Fatal("Load succeeded, want error")
			}
		})
	}
}

func TestLoadRejectsReservedBits(t *testing.T) {
	in := "HPCEHeatWorld v0\n1 1 0 0\nText\n0\n4\n"
	_, err := Load(strings.NewReader(in))
	if !errors.Is(err, heat.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"text": Text, "Binary": Binary, "HALF": Half, "": Text} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseFormat("png"); err == nil {
		t.Error("ParseFormat(png) succeeded")
	}
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"world.txt", "world.bin.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			src := sampleWorld()
			if err := SaveFile(path, src, Binary); err != nil {
				t.Fatalf("SaveFile: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			for i := range src.State {
				if got.State[i] != src.State[i] {
					t.Fatalf("state[%d] = %v, want %v", i, got.State[i], src.State[i])
				}
			}
		})
	}
}
