package chip8

import (
	"fmt"
	"io"
	"os"
)

// Load reads a program image from r and copies it into memory at
// ProgramStart. The image is read in full before any memory is touched, so a
// failed load leaves the machine unchanged. Images longer than MaxImageSize
// fail with ErrImageTooLarge.
func (m *Machine) Load(r io.Reader) error {
	image, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading program image: %w", err)
	}
	if len(image) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrImageTooLarge, len(image), MaxImageSize)
	}

	copy(m.Memory[ProgramStart:], image)
	m.ImageSize = len(image)
	return nil
}

// LoadFile loads the program image at path. A missing file surfaces as a
// wrapped fs.ErrNotExist.
func (m *Machine) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening program image: %w", err)
	}
	defer f.Close()

	return m.Load(f)
}
