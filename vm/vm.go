// Package vm executes the bytecode package compile produces: a small
// register file, a linear value stack standing in for spec.md §4.5's
// "self-describing byte stack" (kept here as a []value.Value slice —
// the Value union already tags its own payload, so a byte-level
// encoding would only duplicate that tagging), and a single dispatch
// loop over every ast.Opcode.
package vm

import (
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/compile"
	"github.com/adamharrison/liquid-go/liquiderr"
	"github.com/adamharrison/liquid-go/resolver"
	"github.com/adamharrison/liquid-go/value"
)

const numRegisters = 8

// instrSize is the fixed width of every instruction: a 4-byte header
// (opcode + 3-byte register operand) followed by an 8-byte immediate.
const instrSize = 12

type iterFrame struct {
	items []value.Value
	idx   int
}

// VM holds one execution's mutable state. Like render.Renderer it is
// not safe for concurrent use; build one per Run call.
type VM struct {
	prog     *compile.Program
	resolver resolver.Resolver

	regs  [numRegisters]value.Value
	stack []value.Value
	pc    int

	iters map[int]*iterFrame

	out      io.Writer
	bufStack []*strings.Builder

	control ast.ControlSignal
	scopes  []vmScope
}

type vmScope struct {
	name   string
	lookup func(key string) (value.Value, bool)
}

// New builds a VM bound to prog and res, ready for Run.
func New(prog *compile.Program, res resolver.Resolver) *VM {
	return &VM{prog: prog, resolver: res, iters: map[int]*iterFrame{}}
}

// Run executes prog.Entry to OpExit, streaming output to w.
func (m *VM) Run(w io.Writer) error {
	m.out = w
	m.pc = m.prog.Entry
	for {
		if m.pc < 0 || m.pc+instrSize > len(m.prog.Bytes) {
			return liquiderr.New(liquiderr.InternalError, "", 0, 0, "pc out of range")
		}
		op := ast.Opcode(m.prog.Bytes[m.pc])
		reg := int(m.prog.Bytes[m.pc+1])<<16 | int(m.prog.Bytes[m.pc+2])<<8 | int(m.prog.Bytes[m.pc+3])
		operand := int64(binary.BigEndian.Uint64(m.prog.Bytes[m.pc+4 : m.pc+instrSize]))

		if op == ast.OpExit {
			return nil
		}

		next := m.pc + instrSize
		jumped, err := m.step(op, reg, operand)
		if err != nil {
			return err
		}
		if !jumped {
			m.pc = next
		}
	}
}

// step executes one instruction. It returns jumped=true when it has
// already set m.pc itself (a jump/iterate), so Run should not also
// advance past the instruction.
func (m *VM) step(op ast.Opcode, reg int, operand int64) (jumped bool, err error) {
	switch op {
	case ast.OpMovNil:
		m.regs[reg] = value.Nil()
	case ast.OpMovBool:
		m.regs[reg] = value.Bool(operand != 0)
	case ast.OpMovInt:
		m.regs[reg] = value.Int(operand)
	case ast.OpMovFloat:
		m.regs[reg] = value.Float(math.Float64frombits(uint64(operand)))
	case ast.OpMovStr:
		m.regs[reg] = value.String(m.readString(operand))
	case ast.OpMov:
		m.regs[reg] = m.regs[operand]

	case ast.OpPush:
		m.stack = append(m.stack, m.regs[reg])
	case ast.OpPop:
		n := int(operand)
		m.stack = m.stack[:len(m.stack)-n]
	case ast.OpStack:
		k := int(operand)
		if k < 0 {
			m.regs[reg] = m.stack[len(m.stack)+k]
		} else {
			m.regs[reg] = m.stack[k]
		}

	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		v, e := arith(op, m.regs[0], m.regs[operand])
		if e != nil {
			return false, e
		}
		m.regs[reg] = v
	case ast.OpEql:
		m.regs[reg] = value.Bool(value.Equal(m.regs[0], m.regs[operand]))
	case ast.OpLength:
		n, _ := m.resolver.Length(m.regs[reg])
		m.regs[reg] = value.Int(int64(n))
	case ast.OpInvert:
		m.regs[reg] = value.Bool(!m.regs[reg].Truthy(value.Strict))

	case ast.OpResolve:
		if operand == -1 {
			key := m.regs[reg]
			n := len(m.stack)
			cur := m.stack[n-1]
			m.stack = m.stack[:n-1]
			v, _ := m.resolver.Index(cur, key)
			m.regs[reg] = v
		} else {
			name := m.readString(operand)
			v, _ := m.lookup(name)
			m.regs[reg] = v
		}
	case ast.OpAssign:
		name := m.readString(operand)
		m.resolver.Assign(name, m.regs[reg])

	case ast.OpCall:
		nodeType := m.prog.NodeTypes[operand]
		n := int(m.regs[0].AsInt())
		vals := make([]value.Value, n)
		top := len(m.stack)
		for i := 0; i < n; i++ {
			vals[i] = m.stack[top-1-i]
		}
		v, e := nodeType.Render(buildSyntheticCall(nodeType, vals), m)
		if e != nil {
			return false, e
		}
		m.regs[reg] = v

	case ast.OpJmp:
		m.pc = int(operand)
		return true, nil
	case ast.OpJmpTrue:
		if m.regs[reg].Truthy(value.Strict) {
			m.pc = int(operand)
			return true, nil
		}
	case ast.OpJmpFalse:
		if !m.regs[reg].Truthy(value.Strict) {
			m.pc = int(operand)
			return true, nil
		}

	case ast.OpIterate:
		return m.iterate(reg, operand)

	case ast.OpForloop:
		m.regs[reg] = m.forloopValue(m.prog.Entry + int(operand))
	case ast.OpCheckControl:
		m.regs[reg] = m.checkControl()
	case ast.OpSetControl:
		m.control = ast.ControlSignal(operand)
	case ast.OpPeekControl:
		m.regs[reg] = m.peekControl()

	case ast.OpPushBuffer:
		m.bufStack = append(m.bufStack, &strings.Builder{})
	case ast.OpPopBuffer:
		n := len(m.bufStack)
		if n == 0 {
			m.regs[reg] = value.String("")
			break
		}
		s := m.bufStack[n-1].String()
		m.bufStack = m.bufStack[:n-1]
		m.regs[reg] = value.String(s)

	case ast.OpOutput:
		if err := m.emit(m.readString(operand)); err != nil {
			return false, err
		}
	case ast.OpOutputMem:
		if err := m.emit(m.regs[reg].String()); err != nil {
			return false, err
		}

	default:
		return false, liquiderr.New(liquiderr.InternalError, "", 0, 0, "unknown opcode")
	}
	return false, nil
}

// iterate drives OpIterate's re-entrant loop-header contract: the
// first visit to a given instruction offset materializes the
// enumerable once; each subsequent visit (reached by the loop body's
// trailing jump back to this same pc) advances to the next element.
// Exhaustion jumps to operand, the instruction just past the body.
//
// The first visit also consumes three stack values the compiler
// pushes immediately before this instruction, in order offset, limit,
// reversed (so reversed sits on top) — the same qualifiers the
// tree-walking `for` tag passes to Resolver.Enumerate directly.
func (m *VM) iterate(reg int, operand int64) (bool, error) {
	pc := m.pc
	fr, ok := m.iters[pc]
	if !ok {
		n := len(m.stack)
		reversed := m.stack[n-1].Truthy(value.Strict)
		limit := int(m.stack[n-2].AsInt())
		offset := int(m.stack[n-3].AsInt())
		m.stack = m.stack[:n-3]

		var items []value.Value
		m.resolver.Enumerate(m.regs[reg], offset, limit, reversed, func(_ int, v value.Value) bool {
			items = append(items, v)
			return true
		})
		fr = &iterFrame{items: items}
		m.iters[pc] = fr
	}
	if fr.idx >= len(fr.items) {
		delete(m.iters, pc)
		m.pc = int(operand)
		return true, nil
	}
	m.regs[reg] = fr.items[fr.idx]
	fr.idx++
	m.pc = pc + instrSize
	return true, nil
}

// forloopValue builds the "forloop" pseudo-object for the ITERATE
// instruction at loopPC, reading the position iterate() is already
// tracking there rather than threading a second counter through
// compiled code.
func (m *VM) forloopValue(loopPC int) value.Value {
	idx, length := 0, 0
	if fr := m.iters[loopPC]; fr != nil {
		idx = fr.idx - 1
		length = len(fr.items)
	}
	return value.FromHandle(map[string]any{
		"index":   idx + 1,
		"index0":  idx,
		"first":   idx == 0,
		"last":    idx == length-1,
		"length":  length,
		"rindex":  length - idx,
		"rindex0": length - idx - 1,
	})
}

// checkControl reports whether a compiled loop must stop: a break
// (or an unresolved exit still propagating) stops it; a continue
// clears itself and lets the loop proceed; no signal also proceeds.
// Matching the tree-walking for tag's Enumerate callback, break and
// continue are consumed here but exit is left set so it keeps
// propagating once this loop unwinds.
func (m *VM) checkControl() value.Value {
	switch m.control {
	case ast.ControlBreak:
		m.control = ast.ControlNone
		return value.Bool(true)
	case ast.ControlContinue:
		m.control = ast.ControlNone
		return value.Bool(false)
	case ast.ControlExit:
		return value.Bool(true)
	default:
		return value.Bool(false)
	}
}

// peekControl reports whether any loop-control signal is pending,
// without clearing it — Concatenation.Compile uses this to stop
// emitting a body's remaining siblings the instant break/continue/exit
// is set, matching Concatenation.Render's per-child check. Only the
// owning loop's OpCheckControl actually consumes break/continue.
func (m *VM) peekControl() value.Value {
	return value.Bool(m.control != ast.ControlNone)
}

func (m *VM) readString(offset int64) string {
	length := binary.BigEndian.Uint32(m.prog.Bytes[offset : offset+4])
	start := offset + 4
	return string(m.prog.Bytes[start : start+int64(length)])
}

func (m *VM) lookup(name string) (value.Value, bool) {
	for i := len(m.scopes) - 1; i >= 0; i-- {
		if m.scopes[i].name == name {
			v, ok := m.scopes[i].lookup(name)
			return v, ok
		}
	}
	return m.resolver.Lookup(name)
}

func (m *VM) emit(s string) error {
	var w io.Writer = m.out
	if n := len(m.bufStack); n > 0 {
		w = m.bufStack[n-1]
	}
	_, err := io.WriteString(w, s)
	return err
}

// arith backs the increment/decrement tags' direct ADD/SUB opcodes
// (their only caller; the infix arithmetic operators compile through
// the generic CALL path instead and run permissively in
// dialect.arithOperator). A variable that hasn't been assigned yet
// resolves to Nil, so a non-numeric operand here is treated as 0
// rather than rejected, matching increment/decrement's own
// tree-walking "old = 0 if not already an int" convention.
func arith(op ast.Opcode, a, b value.Value) (value.Value, error) {
	if !a.IsNumeric() {
		a = value.Int(0)
	}
	if !b.IsNumeric() {
		b = value.Int(0)
	}
	if a.Kind() == value.KindInt && b.Kind() == value.KindInt {
		switch op {
		case ast.OpAdd:
			return value.Int(a.AsInt() + b.AsInt()), nil
		case ast.OpSub:
			return value.Int(a.AsInt() - b.AsInt()), nil
		case ast.OpMul:
			return value.Int(a.AsInt() * b.AsInt()), nil
		case ast.OpDiv:
			if b.AsInt() == 0 {
				return value.Nil(), liquiderr.New(liquiderr.DivideByZero, "", 0, 0)
			}
			return value.Int(a.AsInt() / b.AsInt()), nil
		case ast.OpMod:
			if b.AsInt() == 0 {
				return value.Nil(), liquiderr.New(liquiderr.DivideByZero, "", 0, 0)
			}
			return value.Int(a.AsInt() % b.AsInt()), nil
		}
	}
	af, bf := a.Float64(), b.Float64()
	switch op {
	case ast.OpAdd:
		return value.Float(af + bf), nil
	case ast.OpSub:
		return value.Float(af - bf), nil
	case ast.OpMul:
		return value.Float(af * bf), nil
	case ast.OpDiv:
		if bf == 0 {
			return value.Nil(), liquiderr.New(liquiderr.DivideByZero, "", 0, 0)
		}
		return value.Float(af / bf), nil
	case ast.OpMod:
		if bf == 0 {
			return value.Nil(), liquiderr.New(liquiderr.DivideByZero, "", 0, 0)
		}
		return value.Float(math.Mod(af, bf)), nil
	}
	return value.Nil(), liquiderr.New(liquiderr.InternalError, "", 0, 0, "bad arith opcode")
}

// buildSyntheticCall reconstructs a minimal *ast.Node so a NodeType's
// ordinary Render method (written against the tree-walking shape) can
// run unmodified against values the VM already evaluated: a filter or
// dot-filter gets its operand-plus-Arguments shape back; an operator
// gets its flat operand list.
func buildSyntheticCall(nodeType ast.NodeType, vals []value.Value) *ast.Node {
	switch nodeType.Discriminant() {
	case ast.DiscFilter, ast.DiscDotFilter:
		operand := ast.Leaf(vals[0], ast.Position{})
		argLeaves := make([]*ast.Node, 0, len(vals)-1)
		for _, v := range vals[1:] {
			argLeaves = append(argLeaves, ast.Leaf(v, ast.Position{}))
		}
		return ast.Internal(nodeType, ast.Position{}, operand, ast.Internal(ast.Arguments, ast.Position{}, argLeaves...))
	default:
		leaves := make([]*ast.Node, len(vals))
		for i, v := range vals {
			leaves[i] = ast.Leaf(v, ast.Position{})
		}
		return ast.Internal(nodeType, ast.Position{}, leaves...)
	}
}
