package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/retroenv/retrogolib/log"

	"gochip8/pkg/audio"
	"gochip8/pkg/chip8"
)

// keypad maps the CHIP-8 hex pad to the classic 1234/QWER/ASDF/ZXCV legend.
var keypad = [chip8.NumKeys]ebiten.Key{
	0x0: ebiten.KeyX,
	0x1: ebiten.Key1,
	0x2: ebiten.Key2,
	0x3: ebiten.Key3,
	0x4: ebiten.KeyQ,
	0x5: ebiten.KeyW,
	0x6: ebiten.KeyE,
	0x7: ebiten.KeyA,
	0x8: ebiten.KeyS,
	0x9: ebiten.KeyD,
	0xA: ebiten.KeyZ,
	0xB: ebiten.KeyC,
	0xC: ebiten.Key4,
	0xD: ebiten.KeyR,
	0xE: ebiten.KeyF,
	0xF: ebiten.KeyV,
}

type Game struct {
	vm     *chip8.Machine
	logger *log.Logger
	canvas *ebiten.Image // reused 64x32 bitmap, updated only on DrawFlag

	cyclesPerFrame int
}

func (g *Game) Update() error {
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	for key, k := range keypad {
		g.vm.SetKey(uint8(key), ebiten.IsKeyPressed(k))
	}

	for i := 0; i < g.cyclesPerFrame; i++ {
		res, err := g.vm.Cycle()

		var unknown *chip8.UnknownInstructionError
		switch {
		case errors.As(err, &unknown):
			g.logger.Debug("skipping unknown instruction",
				log.String("opcode", fmt.Sprintf("0x%04X", unknown.Opcode)),
				log.String("pc", fmt.Sprintf("0x%03X", unknown.PC)))
		case err != nil:
			return err
		}

		if res == chip8.CycleWaiting {
			// parked on wait-for-key; repoll input next frame
			break
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.canvas == nil {
		g.canvas = ebiten.NewImage(chip8.DisplayWidth, chip8.DisplayHeight)
	}
	if g.vm.DrawFlag {
		g.canvas.WritePixels(g.vm.FramebufferRGBA())
		g.vm.DrawFlag = false
	}
	screen.DrawImage(g.canvas, nil)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return chip8.DisplayWidth, chip8.DisplayHeight
}

func main() {
	scale := flag.Int("scale", 10, "window scale factor")
	cycles := flag.Int("cycles", 8, "machine cycles per 60 Hz frame")
	mute := flag.Bool("mute", false, "disable the beeper")
	debug := flag.Bool("debug", false, "log skipped unknown instructions")
	flag.Parse()

	cfg := log.DefaultConfig()
	if *debug {
		cfg.Level = log.DebugLevel
	}
	logger := log.NewWithConfig(cfg)

	if flag.NArg() != 1 {
		logger.Fatal("usage: desktop [flags] <rom>")
	}

	vm := chip8.New()
	if err := vm.LoadFile(flag.Arg(0)); err != nil {
		logger.Fatal("loading program image failed", log.Err(err))
	}
	logger.Info("program image loaded",
		log.String("file", flag.Arg(0)),
		log.Int("bytes", vm.ImageSize))

	if !*mute {
		beeper, err := audio.NewBeeper()
		if err != nil {
			logger.Error("audio unavailable, continuing muted", log.Err(err))
		} else {
			defer beeper.Close()
			vm.Beeper = beeper
		}
	}

	ebiten.SetWindowSize(chip8.DisplayWidth**scale, chip8.DisplayHeight**scale)
	ebiten.SetWindowTitle("chip8")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game := &Game{vm: vm, logger: logger, cyclesPerFrame: *cycles}
	if err := ebiten.RunGame(game); err != nil {
		logger.Fatal("emulation stopped", log.Err(err))
	}
}
