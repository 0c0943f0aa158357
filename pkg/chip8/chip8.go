// Package chip8 implements the CHIP-8 virtual machine: 4KB of memory, 16
// 8-bit registers, a 16-level call stack, a 64x32 monochrome framebuffer, a
// 16-key pad and two countdown timers. The machine is purely cycle-counted;
// pacing, rendering, input and audio belong to the host loop.
package chip8

import (
	"math/rand/v2"

	"gochip8/pkg/grid"
)

const (
	// MemorySize is the full addressable memory, 4KB.
	MemorySize = 4096
	// ProgramStart is where program images load and the PC starts.
	// Everything below it is interpreter area.
	ProgramStart = 0x200
	// AddressMask truncates addresses to the 12 bits the instruction
	// format can express.
	AddressMask = 0x0FFF
	// MaxImageSize is the largest loadable program image in bytes.
	MaxImageSize = AddressMask - ProgramStart

	// FontBase is the fixed memory offset of the built-in glyph table.
	FontBase = 0x50
	// GlyphHeight is the height in bytes (rows) of one font glyph.
	GlyphHeight = 5

	// DisplayWidth and DisplayHeight are the logical framebuffer size.
	DisplayWidth  = 64
	DisplayHeight = 32

	// StackDepth is the number of call frames the machine supports.
	StackDepth = 16
	// NumKeys is the size of the hex keypad.
	NumKeys = 16

	spriteWidth = 8
)

// CycleResult reports whether a call to Cycle made progress.
type CycleResult int

const (
	// CycleAdvanced means one instruction executed and the timers ticked.
	CycleAdvanced CycleResult = iota
	// CycleWaiting means the machine is parked on a wait-for-key
	// instruction and no state changed. The host loop should poll input
	// and call Cycle again; the same instruction is re-fetched.
	CycleWaiting
)

// Beeper receives the one-shot sound notification fired when the sound timer
// transitions from 1 to 0. Front-ends mount an implementation on the machine;
// a nil beeper drops the notification.
type Beeper interface {
	Beep()
}

// Machine is the complete CHIP-8 machine state. It is constructed once with
// New, mutated exclusively by Cycle, and shared with front-ends through the
// exported framebuffer and key fields. Key writes and framebuffer reads must
// be serialized with Cycle by the host loop.
type Machine struct {
	// Memory layout:
	//   [0x000, 0x200) interpreter area, font table at FontBase
	//   [0x200, 0xFFF] program image and work RAM
	Memory [MemorySize]byte

	// V are the general-purpose registers V0-VF. VF doubles as the
	// carry/borrow/collision flag and is clobbered as a side effect by
	// several instructions.
	V [16]byte
	// I is the index register used by sprite, BCD and bulk transfers.
	I uint16
	// PC is the program counter.
	PC uint16

	Stack [StackDepth]uint16
	SP    byte

	// Gfx holds one boolean per pixel, row-major. DrawFlag is set whenever
	// Gfx mutates and must be cleared by the consumer after it copies the
	// buffer out.
	Gfx      [DisplayWidth * DisplayHeight]bool
	DrawFlag bool

	// Delay and Sound each decrement once per executed cycle, floored at 0.
	Delay byte
	Sound byte

	// Keys is the pad state, written by the input adapter between cycles.
	Keys [NumKeys]bool

	// ImageSize is the length of the loaded program image in bytes.
	ImageSize int

	// Halted is set when the machine faults (stack overflow or underflow).
	Halted bool

	// Rand supplies the byte for the random-and instruction. New installs
	// a PRNG; tests swap in a fixed source for determinism.
	Rand func() byte

	// Beeper, if mounted, gets one Beep per sound timer 1->0 transition.
	Beeper Beeper
}

// New returns a machine with zeroed state, the font table copied in and the
// program counter at ProgramStart.
func New() *Machine {
	m := &Machine{
		PC:   ProgramStart,
		Rand: func() byte { return byte(rand.UintN(256)) },
	}
	copy(m.Memory[FontBase:], fontSet[:])
	return m
}

// SetKey records the pad key with the given index as held or released.
// Out-of-range indices are ignored.
func (m *Machine) SetKey(key uint8, down bool) {
	if key < NumKeys {
		m.Keys[key] = down
	}
}

// PressKey marks a pad key as held.
func (m *Machine) PressKey(key uint8) { m.SetKey(key, true) }

// ReleaseKey marks a pad key as released.
func (m *Machine) ReleaseKey(key uint8) { m.SetKey(key, false) }

// Cycle runs one fetch-decode-execute-tick unit.
//
// On CycleWaiting the machine is spinning on wait-for-key and nothing was
// mutated, not even the timers; re-invoke once input may have changed. An
// *UnknownInstructionError is non-fatal: the instruction acted as a 2-byte
// no-op and execution can continue. ErrStackOverflow and ErrStackUnderflow
// halt the machine.
func (m *Machine) Cycle() (CycleResult, error) {
	op := uint16(m.Memory[m.PC&AddressMask])<<8 | uint16(m.Memory[(m.PC+1)&AddressMask])

	x := (op & 0x0F00) >> 8
	y := (op & 0x00F0) >> 4
	n := byte(op & 0x000F)
	nn := byte(op & 0x00FF)
	nnn := op & 0x0FFF

	var unknown error

	switch op & 0xF000 {
	case 0x0000:
		switch nn {
		case 0xE0: // CLS
			m.Gfx = [DisplayWidth * DisplayHeight]bool{}
			m.DrawFlag = true
			m.PC += 2
		case 0xEE: // RET
			if m.SP == 0 {
				m.Halted = true
				return CycleAdvanced, ErrStackUnderflow
			}
			m.SP--
			m.PC = m.Stack[m.SP] + 2
		default:
			unknown = &UnknownInstructionError{Opcode: op, PC: m.PC}
			m.PC += 2
		}

	case 0x1000: // JP nnn
		m.PC = nnn

	case 0x2000: // CALL nnn
		if m.SP >= StackDepth {
			m.Halted = true
			return CycleAdvanced, ErrStackOverflow
		}
		m.Stack[m.SP] = m.PC
		m.SP++
		m.PC = nnn

	case 0x3000: // SE Vx, nn
		if m.V[x] == nn {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0x4000: // SNE Vx, nn
		if m.V[x] != nn {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0x5000: // SE Vx, Vy
		if m.V[x] == m.V[y] {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0x6000: // LD Vx, nn
		m.V[x] = nn
		m.PC += 2

	case 0x7000: // ADD Vx, nn; wraps mod 256 and never touches VF
		m.V[x] += nn
		m.PC += 2

	case 0x8000:
		unknown = m.execALU(op, x, y, n)
		m.PC += 2

	case 0x9000: // SNE Vx, Vy
		if m.V[x] != m.V[y] {
			m.PC += 4
		} else {
			m.PC += 2
		}

	case 0xA000: // LD I, nnn
		m.I = nnn
		m.PC += 2

	case 0xB000: // JP V0, nnn
		m.PC = nnn + uint16(m.V[0])

	case 0xC000: // RND Vx, nn
		m.V[x] = m.Rand() & nn
		m.PC += 2

	case 0xD000: // DRW Vx, Vy, n
		m.drawSprite(int(m.V[x]), int(m.V[y]), int(n))
		m.PC += 2

	case 0xE000:
		switch nn {
		case 0x9E: // SKP Vx
			if m.Keys[m.V[x]&0x0F] {
				m.PC += 4
			} else {
				m.PC += 2
			}
		case 0xA1: // SKNP Vx
			if !m.Keys[m.V[x]&0x0F] {
				m.PC += 4
			} else {
				m.PC += 2
			}
		default:
			unknown = &UnknownInstructionError{Opcode: op, PC: m.PC}
			m.PC += 2
		}

	case 0xF000:
		switch nn {
		case 0x07: // LD Vx, DT
			m.V[x] = m.Delay
			m.PC += 2

		case 0x0A: // LD Vx, K
			// Cooperative spin: with no key held the whole cycle is
			// considered not to have happened. The highest-indexed
			// held key wins when several are down at once.
			key := -1
			for i := 0; i < NumKeys; i++ {
				if m.Keys[i] {
					key = i
				}
			}
			if key < 0 {
				return CycleWaiting, nil
			}
			m.V[x] = byte(key)
			m.PC += 2

		case 0x15: // LD DT, Vx
			m.Delay = m.V[x]
			m.PC += 2

		case 0x18: // LD ST, Vx
			m.Sound = m.V[x]
			m.PC += 2

		case 0x1E: // ADD I, Vx; VF flags 12-bit overflow, I is not masked
			if int(m.I)+int(m.V[x]) > AddressMask {
				m.V[0xF] = 1
			} else {
				m.V[0xF] = 0
			}
			m.I += uint16(m.V[x])
			m.PC += 2

		case 0x29: // LD F, Vx
			m.I = FontBase + uint16(m.V[x])*GlyphHeight
			m.PC += 2

		case 0x33: // LD B, Vx
			vx := m.V[x]
			m.Memory[m.I&AddressMask] = vx / 100
			m.Memory[(m.I+1)&AddressMask] = (vx / 10) % 10
			m.Memory[(m.I+2)&AddressMask] = vx % 10
			m.PC += 2

		case 0x55: // LD [I], Vx; I itself is left unmodified
			for i := uint16(0); i <= x; i++ {
				m.Memory[(m.I+i)&AddressMask] = m.V[i]
			}
			m.PC += 2

		case 0x65: // LD Vx, [I]; I itself is left unmodified
			for i := uint16(0); i <= x; i++ {
				m.V[i] = m.Memory[(m.I+i)&AddressMask]
			}
			m.PC += 2

		default:
			unknown = &UnknownInstructionError{Opcode: op, PC: m.PC}
			m.PC += 2
		}
	}

	m.tickTimers()
	return CycleAdvanced, unknown
}

// execALU handles the register-to-register operations of class 0x8. The flag
// register is written from the operand values read before the arithmetic, so
// an operation targeting VF itself overwrites the flag with its result.
func (m *Machine) execALU(op, x, y uint16, n byte) error {
	vx, vy := m.V[x], m.V[y]

	switch n {
	case 0x0:
		m.V[x] = vy
	case 0x1:
		m.V[x] = vx | vy
	case 0x2:
		m.V[x] = vx & vy
	case 0x3:
		m.V[x] = vx ^ vy
	case 0x4: // VF = carry out of 8 bits
		if int(vx)+int(vy) > 0xFF {
			m.V[0xF] = 1
		} else {
			m.V[0xF] = 0
		}
		m.V[x] = vx + vy
	case 0x5: // VF = 0 on borrow, 1 otherwise
		if vy > vx {
			m.V[0xF] = 0
		} else {
			m.V[0xF] = 1
		}
		m.V[x] = vx - vy
	case 0x6: // VF = bit shifted out
		m.V[0xF] = vx & 0x01
		m.V[x] = vx >> 1
	case 0x7: // VF = 0 on borrow, 1 otherwise
		if vx > vy {
			m.V[0xF] = 0
		} else {
			m.V[0xF] = 1
		}
		m.V[x] = vy - vx
	case 0xE: // VF = bit shifted out
		m.V[0xF] = vx >> 7
		m.V[x] = vx << 1
	default:
		return &UnknownInstructionError{Opcode: op, PC: m.PC}
	}
	return nil
}

// drawSprite XOR-draws an 8-pixel-wide, h-row sprite read from memory at I.
// The start coordinates wrap modulo the display size; pixel coordinates that
// run past the edge during the draw clamp to the last in-bounds column/row
// instead of wrapping. VF reports whether any set pixel was toggled off.
func (m *Machine) drawSprite(vx, vy, h int) {
	xStart := vx % DisplayWidth
	yStart := vy % DisplayHeight

	m.V[0xF] = 0
	for row := 0; row < h; row++ {
		bits := m.Memory[(m.I+uint16(row))&AddressMask]
		for col := 0; col < spriteWidth; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}
			px := xStart + col
			if px >= DisplayWidth {
				px = DisplayWidth - 1
			}
			py := yStart + row
			if py >= DisplayHeight {
				py = DisplayHeight - 1
			}
			idx := grid.Index(px, py, DisplayWidth)
			if m.Gfx[idx] {
				m.V[0xF] = 1
			}
			m.Gfx[idx] = !m.Gfx[idx]
		}
	}
	m.DrawFlag = true
}

// tickTimers runs once per completed cycle, after the instruction. The beep
// fires when the sound timer is exactly 1 before decrementing.
func (m *Machine) tickTimers() {
	if m.Delay > 0 {
		m.Delay--
	}
	if m.Sound > 0 {
		if m.Sound == 1 && m.Beeper != nil {
			m.Beeper.Beep()
		}
		m.Sound--
	}
}
