package chip8

import (
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"gochip8/pkg/grid"
)

// Pixel reports the framebuffer pixel at (x, y).
func (m *Machine) Pixel(x, y int) bool {
	return m.Gfx[grid.Index(x, y, DisplayWidth)]
}

// FramebufferRGBA widens the monochrome framebuffer into a 64x32 RGBA8888
// byte slice (white on black), the pixel format renderers blit directly.
func (m *Machine) FramebufferRGBA() []byte {
	pixels := make([]byte, DisplayWidth*DisplayHeight*4)
	for i := range m.Gfx {
		c := byte(0)
		if m.Gfx[i] {
			c = 0xFF
		}
		pixels[i*4+0] = c
		pixels[i*4+1] = c
		pixels[i*4+2] = c
		pixels[i*4+3] = 0xFF
	}
	return pixels
}

// FramebufferImage returns the framebuffer as an *image.RGBA.
func (m *Machine) FramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    m.FramebufferRGBA(),
		Stride: DisplayWidth * 4,
		Rect:   image.Rect(0, 0, DisplayWidth, DisplayHeight),
	}
}

// SaveScreenshot writes the framebuffer to filename as a PNG, upscaled by the
// given integer factor with nearest-neighbour sampling to keep pixels crisp.
func (m *Machine) SaveScreenshot(filename string, scale int) error {
	if scale < 1 {
		scale = 1
	}
	src := m.FramebufferImage()
	dst := image.NewRGBA(image.Rect(0, 0, DisplayWidth*scale, DisplayHeight*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, dst)
}
