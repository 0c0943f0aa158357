package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"

	"gochip8/pkg/chip8"
	"gochip8/pkg/grid"
)

// keyHold is how long a keypress counts as held. Raw terminals deliver no
// key-up events, so a key decays shortly after its byte arrives.
const keyHold = 90 * time.Millisecond

// keypad maps terminal bytes to the CHIP-8 hex pad, same legend as the
// desktop front-end.
var keypad = map[byte]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// keyboard collects raw stdin bytes on its own goroutine. The host loop calls
// apply between cycles, so the machine only ever sees serialized key writes.
type keyboard struct {
	mu     sync.Mutex
	expiry [chip8.NumKeys]time.Time

	quit chan struct{}
}

func newKeyboard() *keyboard {
	return &keyboard{quit: make(chan struct{})}
}

// listen consumes r byte-wise until EOF, ESC or Ctrl-C.
func (kb *keyboard) listen(r io.Reader) {
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			close(kb.quit)
			return
		}
		switch b := buf[0]; b {
		case 0x1B, 0x03: // ESC, Ctrl-C
			close(kb.quit)
			return
		default:
			if key, ok := keypad[b]; ok {
				kb.mu.Lock()
				kb.expiry[key] = time.Now().Add(keyHold)
				kb.mu.Unlock()
			}
		}
	}
}

// apply copies the decayed key state into the machine.
func (kb *keyboard) apply(vm *chip8.Machine) {
	now := time.Now()
	kb.mu.Lock()
	for key := range kb.expiry {
		vm.SetKey(uint8(key), kb.expiry[key].After(now))
	}
	kb.mu.Unlock()
}

// render homes the cursor and repaints the full frame. Raw mode needs
// explicit carriage returns.
func render(w io.Writer, vm *chip8.Machine) {
	var b strings.Builder
	b.WriteString("\x1b[H")
	for i := range vm.Gfx {
		if vm.Gfx[i] {
			b.WriteRune('█')
		} else {
			b.WriteByte(' ')
		}
		if x, _ := grid.GetGridCoords(i, chip8.DisplayWidth); x == chip8.DisplayWidth-1 {
			b.WriteString("\r\n")
		}
	}
	fmt.Fprint(w, b.String())
}

func main() {
	delay := flag.Duration("delay", 2*time.Millisecond, "per-cycle delay")
	trace := flag.Bool("trace", false, "log every executed instruction")
	screenshot := flag.String("screenshot", "", "write a PNG of the final frame on exit")
	flag.Parse()

	cfg := log.DefaultConfig()
	if *trace {
		cfg.Level = log.DebugLevel
	}
	logger := log.NewWithConfig(cfg)

	if flag.NArg() != 1 {
		logger.Fatal("usage: console [flags] <rom>")
	}

	vm := chip8.New()
	if err := vm.LoadFile(flag.Arg(0)); err != nil {
		logger.Fatal("loading program image failed", log.Err(err))
	}

	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		logger.Fatal("entering raw terminal mode failed", log.Err(err))
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)

	kb := newKeyboard()
	go kb.listen(os.Stdin)

	ctx := app.Context()
	os.Stdout.WriteString("\x1b[2J") // clear once; render homes the cursor

	ticker := time.NewTicker(*delay)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-kb.quit:
			break loop
		case <-ticker.C:
		}

		kb.apply(vm)

		pc := vm.PC
		res, err := vm.Cycle()

		var unknown *chip8.UnknownInstructionError
		switch {
		case errors.As(err, &unknown):
			logger.Debug("skipping unknown instruction",
				log.String("opcode", fmt.Sprintf("0x%04X", unknown.Opcode)))
		case err != nil:
			logger.Error("machine fault", log.Err(err))
			break loop
		}

		if *trace && res == chip8.CycleAdvanced && err == nil {
			op := uint16(vm.Memory[pc&chip8.AddressMask])<<8 |
				uint16(vm.Memory[(pc+1)&chip8.AddressMask])
			logger.Debug(chip8.Disassemble(op),
				log.String("pc", fmt.Sprintf("0x%03X", pc)))
		}

		if vm.DrawFlag {
			render(os.Stdout, vm)
			vm.DrawFlag = false
		}
	}

	if *screenshot != "" {
		if err := vm.SaveScreenshot(*screenshot, 4); err != nil {
			logger.Error("writing screenshot failed", log.Err(err))
		}
	}
}
