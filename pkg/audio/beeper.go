// Package audio emits the machine's beep side effect through an oto output
// device.
package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate = 44100
	beepHz     = 880
	beepMillis = 120
	amplitude  = 0.25

	samplesPerHalfWave = sampleRate / beepHz / 2
)

// Beeper plays a fixed-length square wave for every Beep call. The oto player
// pulls samples continuously from the tone generator, so Beep only arms a
// counter and never blocks the emulation loop. Implements chip8.Beeper.
type Beeper struct {
	ctx    *oto.Context
	player *oto.Player
	tone   *squareWave
}

// NewBeeper opens the audio device and starts the streaming player.
func NewBeeper() (*Beeper, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	b := &Beeper{ctx: ctx, tone: &squareWave{}}
	b.player = ctx.NewPlayer(b.tone)
	b.player.Play()
	return b, nil
}

// Beep arms the tone generator for one beep duration.
func (b *Beeper) Beep() {
	b.tone.arm()
}

// Close stops playback and releases the output device.
func (b *Beeper) Close() error {
	if b.player != nil {
		return b.player.Close()
	}
	return nil
}

// squareWave is an io.Reader producing a mono float32 square wave while armed
// and silence otherwise. remaining is atomic: arm is called from the
// emulation goroutine while oto drains Read on the audio goroutine.
type squareWave struct {
	remaining atomic.Int64
	phase     int // touched only by the audio goroutine
}

func (w *squareWave) arm() {
	w.remaining.Store(sampleRate * beepMillis / 1000)
}

func (w *squareWave) Read(p []byte) (int, error) {
	n := len(p) / 4
	for i := 0; i < n; i++ {
		var s float32
		if w.remaining.Load() > 0 {
			w.remaining.Add(-1)
			if (w.phase/samplesPerHalfWave)%2 == 0 {
				s = amplitude
			} else {
				s = -amplitude
			}
			w.phase++
		} else {
			w.phase = 0
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}
