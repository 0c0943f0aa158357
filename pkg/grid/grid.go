// Package grid converts between linear cell indices and x/y coordinates of a
// fixed-width grid, such as the 64x32 framebuffer.
package grid

// GetGridCoords converts a linear cell index into x/y coordinates for a grid
// with the given number of columns.
func GetGridCoords(index, cols int) (int, int) {
	return index % cols, index / cols
}

// Index converts x/y coordinates into a linear cell index.
func Index(x, y, cols int) int {
	return y*cols + x
}
