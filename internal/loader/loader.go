// Package loader handles ROM file loading operations.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/arch"
	"github.com/retroenv/retrogolib/log"
)

// ErrEmptyROM is returned for ROM files that contain no data.
var ErrEmptyROM = errors.New("empty ROM file")

// Loader handles loading ROM files from disk.
type Loader struct {
	logger *log.Logger
}

// New creates a new ROM loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// Load reads a program image from the given file. Files larger than the
// program area of the machine are rejected without reading them completely.
func (l *Loader) Load(filename string) ([]byte, error) {
	if system := Detect(filename); system != arch.CHIP8System {
		l.logger.Warn("Unexpected file extension for a CHIP-8 ROM",
			log.String("file", filename),
			log.String("extension", filepath.Ext(filename)))
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, vm.MaxProgramSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filename, err)
	}

	switch {
	case len(data) == 0:
		return nil, fmt.Errorf("%w: %s", ErrEmptyROM, filename)
	case len(data) > vm.MaxProgramSize:
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", vm.ErrProgramTooLarge, filename, vm.MaxProgramSize)
	}

	l.logger.Debug("ROM loaded",
		log.String("file", filename),
		log.Int("size", len(data)))
	return data, nil
}

// Detect determines the system type based on the file extension. An empty
// system is returned for unknown extensions.
func Detect(filename string) arch.System {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".ch8", ".c8", ".rom":
		return arch.CHIP8System
	default:
		return ""
	}
}
