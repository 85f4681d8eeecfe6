// Package compile lowers an AST to the register+stack bytecode of
// spec.md §4.5: a data segment of length-prefixed, 4-byte-aligned
// strings followed by a code segment of fixed 4-byte-header
// instructions. Grounded on the teacher's own plan-serialization
// writer (core/planfmt/writer.go), which the same way keeps a
// hash-keyed intern table over one growing byte buffer; blake2b is
// reused here purely as an in-memory compiler concern; it has nothing
// to do with the bytecode-persistence non-goal.
package compile

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/value"
)

// Program is the output of a Compile call: one contiguous byte buffer
// (data segment, then code segment) plus the code-segment entry
// offset and the side table of native callables CALL dispatches
// through (spec.md §4.5 describes CALL as invoking "the node-type's
// callable"; bytecode cannot embed a Go function pointer, so the
// table travels alongside the bytes rather than inside them).
type Program struct {
	Bytes     []byte
	Entry     int
	NodeTypes []ast.NodeType
}

// Compiler implements ast.CompileContext, accumulating the data and
// code segments as every NodeType's Compile method is invoked.
type Compiler struct {
	data []byte
	code []byte

	interned    map[[32]byte]int64
	nodeTypeIDs map[ast.NodeType]int
	nodeTypes   []ast.NodeType
}

// New builds an empty Compiler.
func New() *Compiler {
	return &Compiler{
		interned:    map[[32]byte]int64{},
		nodeTypeIDs: map[ast.NodeType]int{},
	}
}

// Compile lowers root (expected to be a Concatenation, the parser's
// template root) into a Program.
func Compile(root *ast.Node) (*Program, error) {
	c := New()
	if err := root.Type.Compile(root, c); err != nil {
		return nil, err
	}
	c.Emit(ast.OpExit, 0, 0)
	return c.finish(), nil
}

// finish fixes up every jump/iterate operand to account for the data
// segment prefix and assembles the Program (Compile has already
// emitted the closing EXIT).
func (c *Compiler) finish() *Program {
	shift := int64(len(c.data))
	for pc := 0; pc < len(c.code); pc += 12 {
		op := ast.Opcode(c.code[pc])
		if isJumpClass(op) {
			operand := int64(binary.BigEndian.Uint64(c.code[pc+4 : pc+12]))
			binary.BigEndian.PutUint64(c.code[pc+4:pc+12], uint64(operand+shift))
		}
	}
	bytes := make([]byte, 0, len(c.data)+len(c.code))
	bytes = append(bytes, c.data...)
	bytes = append(bytes, c.code...)
	return &Program{Bytes: bytes, Entry: len(c.data), NodeTypes: c.nodeTypes}
}

func isJumpClass(op ast.Opcode) bool {
	switch op {
	case ast.OpJmp, ast.OpJmpTrue, ast.OpJmpFalse, ast.OpIterate:
		return true
	}
	return false
}

// CompileChild implements ast.CompileContext. Every compiled
// expression funnels its result through register 0, the accumulator;
// a caller that needs to keep more than one live value pushes each
// onto the VM stack immediately after compiling it (the shared
// strategy in ast/filter.go's compileCallNode). The exceptions are the
// control tags and Concatenation, which keep values in fixed registers
// 1-5 (case, for, cycle, and the loop-control peek).
func (c *Compiler) CompileChild(n *ast.Node) (int, error) {
	if n.IsLeaf() {
		c.emitLiteral(n.Literal)
		return 0, nil
	}
	if err := n.Type.Compile(n, c); err != nil {
		return 0, err
	}
	return 0, nil
}

// emitLiteral moves a literal Value into register 0, one MOV* opcode
// per value.Kind (spec.md §4.5's "MOV* family").
func (c *Compiler) emitLiteral(v value.Value) {
	switch v.Kind() {
	case value.KindNil:
		c.Emit(ast.OpMovNil, 0, 0)
	case value.KindBool:
		var b int64
		if v.AsBool() {
			b = 1
		}
		c.Emit(ast.OpMovBool, 0, b)
	case value.KindInt:
		c.Emit(ast.OpMovInt, 0, v.AsInt())
	case value.KindFloat:
		c.Emit(ast.OpMovFloat, 0, float64ToBits(v.AsFloat()))
	case value.KindString:
		c.Emit(ast.OpMovStr, 0, c.Intern(v.AsString()))
	default:
		c.Emit(ast.OpMovStr, 0, c.Intern(v.String()))
	}
}

func (c *Compiler) Emit(opcode ast.Opcode, reg int, operand int64) int {
	pc := len(c.code)
	header := [4]byte{byte(opcode), byte(reg >> 16), byte(reg >> 8), byte(reg)}
	c.code = append(c.code, header[:]...)
	var opBytes [8]byte
	binary.BigEndian.PutUint64(opBytes[:], uint64(operand))
	c.code = append(c.code, opBytes[:]...)
	return pc
}

func (c *Compiler) EmitJump(opcode ast.Opcode, reg int) int {
	return c.Emit(opcode, reg, 0)
}

func (c *Compiler) PatchJump(patch int, targetPC int) {
	binary.BigEndian.PutUint64(c.code[patch+4:patch+12], uint64(targetPC))
}

// Intern registers s in the data segment, deduplicated by blake2b
// content hash so identical literals share one slot (spec.md §4.5's
// "string interning").
func (c *Compiler) Intern(s string) int64 {
	hash := blake2b.Sum256([]byte(s))
	if off, ok := c.interned[hash]; ok {
		return off
	}
	offset := int64(len(c.data))
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(s)))
	c.data = append(c.data, lenBytes[:]...)
	c.data = append(c.data, s...)
	if pad := (4 - len(s)%4) % 4; pad > 0 {
		c.data = append(c.data, make([]byte, pad)...)
	}
	c.interned[hash] = offset
	return offset
}

func (c *Compiler) NodeTypeID(t ast.NodeType) int {
	if id, ok := c.nodeTypeIDs[t]; ok {
		return id
	}
	id := len(c.nodeTypes)
	c.nodeTypeIDs[t] = id
	c.nodeTypes = append(c.nodeTypes, t)
	return id
}

func (c *Compiler) CurrentPC() int { return len(c.code) }

// float64ToBits exposes math.Float64bits for MOVFLOAT operand encoding.
func float64ToBits(f float64) int64 { return int64(math.Float64bits(f)) }
