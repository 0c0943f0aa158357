package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func readSamples(t *testing.T, w *squareWave, n int) []float32 {
	t.Helper()
	buf := make([]byte, n*4)
	read, err := w.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), read)

	samples := make([]float32, n)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return samples
}

func TestSquareWaveSilentByDefault(t *testing.T) {
	w := &squareWave{}
	for _, s := range readSamples(t, w, 256) {
		assert.Equal(t, float32(0), s)
	}
}

func TestSquareWaveArmedProducesTone(t *testing.T) {
	w := &squareWave{}
	w.arm()

	samples := readSamples(t, w, 2*samplesPerHalfWave)
	for i := 0; i < samplesPerHalfWave; i++ {
		assert.Equal(t, float32(amplitude), samples[i])
	}
	for i := samplesPerHalfWave; i < 2*samplesPerHalfWave; i++ {
		assert.Equal(t, float32(-amplitude), samples[i])
	}
}

func TestSquareWaveDecaysToSilence(t *testing.T) {
	w := &squareWave{}
	w.arm()

	total := sampleRate * beepMillis / 1000
	readSamples(t, w, total)

	for _, s := range readSamples(t, w, 64) {
		assert.Equal(t, float32(0), s)
	}
	assert.Equal(t, int64(0), w.remaining.Load())
}

func TestSquareWaveRearmExtends(t *testing.T) {
	w := &squareWave{}
	w.arm()
	readSamples(t, w, 100)
	w.arm()

	assert.Equal(t, int64(sampleRate*beepMillis/1000), w.remaining.Load())
}
