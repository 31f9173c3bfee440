package heat

import (
	"errors"
	"testing"
)

func TestWorldValidate(t *testing.T) {
	tests := []struct {
		name  string
		world *World
	}{
		{"zero width", &World{Width: 0, Height: 3}},
		{"short state", &World{Width: 2, Height: 2, State: make([]float32, 3), Properties: make([]uint32, 4)}},
		{"short properties", &World{Width: 2, Height: 2, State: make([]float32, 4), Properties: make([]uint32, 2)}},
		{"descriptor bits", func() *World {
			w := NewWorld(3, 3, 1)
			w.Properties[4] = ActiveLeft
			return w
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.world.Validate()
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Validate() = %v, want ErrConfiguration", err)
			}
		})
	}

	if err := NewWorld(4, 3, 1).Validate(); err != nil {
		t.Fatalf("valid world rejected: %v", err)
	}
}

func TestWorldClone(t *testing.T) {
	w := borderedWorld(4, 4, 0, 1)
	c := w.Clone()
	c.State[5] = 0.25
	c.Properties[5] = CellFixed
	if w.State[5] != 1 || w.Properties[5] != 0 {
		t.Fatal("clone shares storage with original")
	}
	if c.Width != w.Width || c.Height != w.Height || c.Alpha != w.Alpha {
		t.Fatal("clone lost scalar fields")
	}
}
