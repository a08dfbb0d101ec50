package vm

import (
	"encoding/binary"

	"github.com/gostack-vm/ivm/pkg/arena"
	"github.com/gostack-vm/ivm/pkg/symbol"
)

// Frame is one activation record: a return address, a function's
// locals (parameters occupy the first NumParams slots), and an operand
// stack private to this call.
//
// spec.md §4.3 describes the frame as four contiguous byte-addressable
// regions inside one arena slab: a one-word frame header (the return
// instruction index), the locals array, a one-word operand-stack
// header (the top-of-stack index), and the operand-stack backing
// array. Go cannot hold a live, GC-tracked pointer (Prev, below) inside
// an untyped byte slab without unsafe, so only those four numeric
// regions live in arena-allocated (or, in non-arena mode, plain
// heap-allocated) storage; Prev and Fn are ordinary struct fields
// alongside it. spec.md itself describes Prev as "a relation, not an
// ownership link," which is exactly what a Go pointer field expresses.
type Frame struct {
	Fn   *symbol.Function
	Prev *Frame
	ip   int // instruction pointer into Fn.ByteCode

	header   []byte // WordSize bytes: return instruction index
	locals   []byte // WordSize*NumLocals bytes
	opHeader []byte // WordSize bytes: operand-stack top index
	opStack  []byte // WordSize*OpStackSize bytes
}

// CreateFrame builds one activation record for a call to fn, linked to
// the calling frame prev (nil for the outermost call). When a is
// non-nil the frame's four regions are carved out of one arena
// allocation (arena mode); when a is nil they are four independent
// heap allocations (non-arena mode), per spec.md §4.3's "Allocation
// strategy".
func CreateFrame(a *arena.Arena, fn *symbol.Function, prev *Frame) *Frame {
	numLocals := fn.NumLocals()
	localsSize := symbol.WordSize * numLocals
	opStackSize := symbol.WordSize * fn.OpStackSize

	var f *Frame
	if a != nil {
		// A reused arena block's region may carry stale bytes from a
		// frame that occupied it earlier in a deeper, since-unwound call
		// chain (spec.md §4.2's "blocks... may be reused"). Every field
		// below is therefore explicitly initialized rather than relied
		// upon to already be zero.
		region := a.Allocate(fn.FrameSize)
		off := 0
		header := region[off : off+symbol.WordSize]
		off += symbol.WordSize
		locals := region[off : off+localsSize]
		off += localsSize
		opHeader := region[off : off+symbol.WordSize]
		off += symbol.WordSize
		opStack := region[off : off+opStackSize]
		f = &Frame{Fn: fn, Prev: prev, header: header, locals: locals, opHeader: opHeader, opStack: opStack}
	} else {
		f = &Frame{
			Fn:       fn,
			Prev:     prev,
			header:   make([]byte, symbol.WordSize),
			locals:   make([]byte, localsSize),
			opHeader: make([]byte, symbol.WordSize),
			opStack:  make([]byte, opStackSize),
		}
	}

	f.SetReturnIndex(0)
	f.setTop(0)
	for i := 0; i < numLocals; i++ {
		f.SetLocal(i, 0)
	}
	return f
}

// DestroyFrame unwinds one activation record. In arena mode this
// returns the frame's slab to the arena in the LIFO order the engine's
// call/return protocol guarantees; in non-arena mode there is nothing
// to do, the Go garbage collector reclaims the four slices once Frame
// is unreachable.
func DestroyFrame(a *arena.Arena, f *Frame) {
	if a != nil {
		a.Return()
	}
}

// ReturnIndex is the bytecode index execution resumes at in Prev once
// this frame returns.
func (f *Frame) ReturnIndex() int32 {
	return int32(binary.LittleEndian.Uint32(f.header))
}

// SetReturnIndex records the resume point for this frame's caller.
func (f *Frame) SetReturnIndex(v int32) {
	binary.LittleEndian.PutUint32(f.header, uint32(v))
}

// Local reads local slot i (parameters occupy slots [0, NumParams)).
func (f *Frame) Local(i int) int32 {
	off := i * symbol.WordSize
	return int32(binary.LittleEndian.Uint32(f.locals[off : off+symbol.WordSize]))
}

// SetLocal writes local slot i.
func (f *Frame) SetLocal(i int, v int32) {
	off := i * symbol.WordSize
	binary.LittleEndian.PutUint32(f.locals[off:off+symbol.WordSize], uint32(v))
}

// top is the current operand-stack depth (number of live values).
func (f *Frame) top() int32 {
	return int32(binary.LittleEndian.Uint32(f.opHeader))
}

func (f *Frame) setTop(v int32) {
	binary.LittleEndian.PutUint32(f.opHeader, uint32(v))
}

// Push places a value on this frame's operand stack, returning a
// RuntimeError if doing so would exceed the function's fixed operand
// stack capacity (spec.md §7 "Operand stack overflow").
func (f *Frame) Push(v int32) error {
	top := f.top()
	if int(top) >= f.Fn.OpStackSize {
		return &RuntimeError{Reason: "operand stack overflow"}
	}
	off := int(top) * symbol.WordSize
	binary.LittleEndian.PutUint32(f.opStack[off:off+symbol.WordSize], uint32(v))
	f.setTop(top + 1)
	return nil
}

// Pop removes and returns the top value of this frame's operand stack,
// returning a RuntimeError on underflow (spec.md §7 "Operand stack
// underflow").
func (f *Frame) Pop() (int32, error) {
	top := f.top()
	if top == 0 {
		return 0, &RuntimeError{Reason: "operand stack underflow"}
	}
	top--
	off := int(top) * symbol.WordSize
	v := int32(binary.LittleEndian.Uint32(f.opStack[off : off+symbol.WordSize]))
	f.setTop(top)
	return v, nil
}
