package vm

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gostack-vm/ivm/pkg/arena"
	"github.com/gostack-vm/ivm/pkg/bytecode"
	"github.com/sirupsen/logrus"
)

// ExitCode classifies a fatal engine failure the way the CLI driver
// needs to report it (spec.md §6 "CLI"): -1 for a missing main or a
// non-built-in call to a function with no bytecode body, -2 for an
// unknown opcode. Runtime errors with no more specific classification
// report ExitCode 0, which the CLI treats as a generic non-zero exit.
type ExitCode int

const (
	ExitUnspecified   ExitCode = 0
	ExitMissingBody   ExitCode = -1
	ExitUnknownOpcode ExitCode = -2
)

// Engine executes one loaded Module to completion.
//
// Its entire live state, per spec.md §4.4, is the current frame chain,
// a reference to the frame presently executing, and that frame's
// instruction pointer - nothing else persists across instructions. The
// arena (when in arena mode) is the only other piece of state touched
// during execution, and only through CreateFrame/DestroyFrame at
// call/return boundaries.
type Engine struct {
	Module *bytecode.Module

	// Arena is nil in non-arena mode (spec.md §4.3's "four separate heap
	// allocations" path); non-nil in arena mode.
	Arena *arena.Arena

	// Stdout is where the println built-in writes. Defaults to os.Stdout.
	Stdout io.Writer

	Log *logrus.Logger

	start time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithArena puts the engine in arena mode, using blockSize-byte arena
// blocks. Pass arena.BlockSize for the spec's documented default.
func WithArena(blockSize int) Option {
	return func(e *Engine) { e.Arena = arena.New(blockSize) }
}

// WithStdout redirects println output away from os.Stdout, primarily
// for tests.
func WithStdout(w io.Writer) Option {
	return func(e *Engine) { e.Stdout = w }
}

// WithLogger attaches a logrus.Logger for diagnostic output. Defaults
// to logrus.StandardLogger().
func WithLogger(log *logrus.Logger) Option {
	return func(e *Engine) { e.Log = log }
}

// New builds an Engine for mod. Non-arena mode is the default; pass
// WithArena to opt into arena-backed frames.
func New(mod *bytecode.Module, opts ...Option) *Engine {
	e := &Engine{
		Module: mod,
		Stdout: os.Stdout,
		Log:    logrus.StandardLogger(),
		start:  clockStart(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// clock returns elapsed time since the engine was constructed, backing
// the tick() built-in.
func (e *Engine) clock() time.Duration {
	return clockStart().Sub(e.start)
}

// clockStart is the one place New and clock read wall-clock time, isolated
// so tests can substitute a fixed reference if ever needed.
func clockStart() time.Time {
	return time.Now()
}

// Run executes the module's main function to completion. It returns
// nil on normal termination (the outermost frame reaching _return or
// ireturn), or an error - a *RuntimeError for an execution fault, with
// Code holding one of the ExitCode constants when the fault has a
// specific CLI exit code.
func (e *Engine) Run() error {
	main := e.Module.Main
	if main.IsBuiltin() {
		return &RuntimeError{Reason: "main has no bytecode body", Code: ExitMissingBody}
	}

	frame := CreateFrame(e.Arena, main, nil)
	e.Log.WithField("function", main.Name).Debug("vm: entering main")

	for {
		result, err := e.step(frame)
		if err != nil {
			trace := traceFrom(frame)
			return withTrace(err, trace)
		}
		switch result.kind {
		case stepContinue:
			// fall through to next iteration
		case stepCall:
			frame = result.next
		case stepReturn:
			if result.caller == nil {
				e.Log.Debug("vm: main returned, halting")
				return nil
			}
			frame = result.caller
		}
	}
}

func traceFrom(f *Frame) []StackFrame {
	var trace []StackFrame
	for cur := f; cur != nil; cur = cur.Prev {
		trace = append(trace, StackFrame{Function: cur.Fn.Name, IP: cur.ip})
	}
	return trace
}

// stepResultKind discriminates what the dispatch loop should do after
// one step() call.
type stepResultKind int

const (
	stepContinue stepResultKind = iota
	stepCall
	stepReturn
)

type stepResult struct {
	kind   stepResultKind
	next   *Frame // valid when kind == stepCall: the newly created callee frame
	caller *Frame // valid when kind == stepReturn: the frame to resume (nil at program exit)
}

// readU16BE reads a two-byte big-endian operand (spec.md §6
// "Endianness... all multi-byte VM operands and pool indices are
// big-endian").
func readU16BE(code []byte, at int) uint16 {
	return binary.BigEndian.Uint16(code[at : at+2])
}

// step decodes and executes exactly one instruction in frame, advancing
// its instruction pointer. It is the engine's entire dispatch loop body
// (spec.md §4.4 "A single large dispatch loop over opcode bytes").
func (e *Engine) step(frame *Frame) (stepResult, error) {
	code := frame.Fn.ByteCode
	ip := frame.ip
	if ip < 0 || ip >= len(code) {
		return stepResult{}, &RuntimeError{Reason: fmt.Sprintf("instruction pointer %d out of range for %q", ip, frame.Fn.Name)}
	}
	op := bytecode.Opcode(code[ip])

	switch op {
	case bytecode.OpIconst0, bytecode.OpIconst1, bytecode.OpIconst2,
		bytecode.OpIconst3, bytecode.OpIconst4, bytecode.OpIconst5:
		k := int32(op - bytecode.OpIconst0)
		frame.ip++
		return stepResult{kind: stepContinue}, frame.Push(k)

	case bytecode.OpBipush:
		v := int32(code[ip+1])
		frame.ip += 2
		return stepResult{kind: stepContinue}, frame.Push(v)

	case bytecode.OpSipush:
		v := int32(code[ip+1])*256 + int32(code[ip+2])
		frame.ip += 3
		return stepResult{kind: stepContinue}, frame.Push(v)

	case bytecode.OpLdc:
		idx := int(code[ip+1])
		c, err := e.Module.Const(idx)
		if err != nil {
			return stepResult{}, &RuntimeError{Reason: err.Error()}
		}
		if c.Kind != bytecode.ConstNumber {
			return stepResult{}, &RuntimeError{Reason: fmt.Sprintf("ldc target %d is not a number constant", idx)}
		}
		frame.ip += 2
		return stepResult{kind: stepContinue}, frame.Push(c.Number)

	case bytecode.OpIload:
		idx := int(code[ip+1])
		frame.ip += 2
		return stepResult{kind: stepContinue}, frame.Push(frame.Local(idx))

	case bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIload2, bytecode.OpIload3:
		idx := int(op - bytecode.OpIload0)
		frame.ip++
		return stepResult{kind: stepContinue}, frame.Push(frame.Local(idx))

	case bytecode.OpIstore:
		idx := int(code[ip+1])
		v, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		frame.SetLocal(idx, v)
		frame.ip += 2
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpIstore0, bytecode.OpIstore1, bytecode.OpIstore2, bytecode.OpIstore3:
		idx := int(op - bytecode.OpIstore0)
		v, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		frame.SetLocal(idx, v)
		frame.ip++
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpIadd, bytecode.OpIsub, bytecode.OpImul, bytecode.OpIdiv:
		b, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		a, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		var r int32
		switch op {
		case bytecode.OpIadd:
			r = a + b
		case bytecode.OpIsub:
			r = a - b
		case bytecode.OpImul:
			r = a * b
		case bytecode.OpIdiv:
			r = a / b // division by zero is undefined, not defended against (spec.md §4.4)
		}
		frame.ip++
		return stepResult{kind: stepContinue}, frame.Push(r)

	case bytecode.OpIinc:
		idx := int(code[ip+1])
		delta := int32(int8(code[ip+2]))
		frame.SetLocal(idx, frame.Local(idx)+delta)
		frame.ip += 3
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpIfeq, bytecode.OpIfne:
		x, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		target := int(readU16BE(code, ip+1))
		taken := (op == bytecode.OpIfeq && x == 0) || (op == bytecode.OpIfne && x != 0)
		if taken {
			frame.ip = target
		} else {
			frame.ip += 3
		}
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpIfIcmplt, bytecode.OpIfIcmpge, bytecode.OpIfIcmpgt, bytecode.OpIfIcmple:
		b, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		a, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		var taken bool
		switch op {
		case bytecode.OpIfIcmplt:
			taken = a < b
		case bytecode.OpIfIcmpge:
			taken = a >= b
		case bytecode.OpIfIcmpgt:
			taken = a > b
		case bytecode.OpIfIcmple:
			taken = a <= b
		}
		target := int(readU16BE(code, ip+1))
		if taken {
			frame.ip = target
		} else {
			frame.ip += 3
		}
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpGoto:
		frame.ip = int(readU16BE(code, ip+1))
		return stepResult{kind: stepContinue}, nil

	case bytecode.OpIreturn:
		rv, err := frame.Pop()
		if err != nil {
			return stepResult{}, err
		}
		caller := frame.Prev
		DestroyFrame(e.Arena, frame)
		if caller == nil {
			return stepResult{kind: stepReturn, caller: nil}, nil
		}
		if err := caller.Push(rv); err != nil {
			return stepResult{}, err
		}
		caller.ip = int(caller.ReturnIndex())
		return stepResult{kind: stepReturn, caller: caller}, nil

	case bytecode.OpReturn:
		caller := frame.Prev
		DestroyFrame(e.Arena, frame)
		if caller == nil {
			return stepResult{kind: stepReturn, caller: nil}, nil
		}
		caller.ip = int(caller.ReturnIndex())
		return stepResult{kind: stepReturn, caller: caller}, nil

	case bytecode.OpInvokeStatic:
		idx := int(readU16BE(code, ip+1))
		c, err := e.Module.Const(idx)
		if err != nil {
			return stepResult{}, &RuntimeError{Reason: err.Error()}
		}
		if c.Kind != bytecode.ConstFunction {
			return stepResult{}, &RuntimeError{Reason: fmt.Sprintf("invokestatic target %d is not a function constant", idx)}
		}
		resumeAt := ip + 3

		if ok, err := e.callBuiltin(c.Func.Name, frame); ok {
			if err != nil {
				return stepResult{}, err
			}
			frame.ip = resumeAt
			return stepResult{kind: stepContinue}, nil
		}

		target := c.Func
		if target.IsBuiltin() {
			return stepResult{}, &RuntimeError{Reason: fmt.Sprintf("function %q has no bytecode body", target.Name), Code: ExitMissingBody}
		}

		frame.SetReturnIndex(int32(resumeAt))
		callee := CreateFrame(e.Arena, target, frame)
		n := target.NumParams()
		for i := n - 1; i >= 0; i-- {
			v, err := frame.Pop()
			if err != nil {
				return stepResult{}, err
			}
			callee.SetLocal(i, v)
		}
		callee.ip = 0
		return stepResult{kind: stepCall, next: callee}, nil

	default:
		return stepResult{}, &RuntimeError{Reason: fmt.Sprintf("unknown opcode 0x%02x", byte(op)), Code: ExitUnknownOpcode}
	}
}
