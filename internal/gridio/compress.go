package gridio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"heatsim/internal/heat"
)

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// LoadFile reads a world from path, decompressing *.zst files.
func LoadFile(path string) (*heat.World, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	world, err := Load(r)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return world, nil
}

// SaveFile writes world to path through a temp file and rename, compressing
// *.zst files.
func SaveFile(path string, world *heat.World, format Format) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if compressed(path) {
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if err := Save(zw, world, format); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
	} else if err := Save(f, world, format); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
