package vm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/adamharrison/liquid-go/ast"
	"github.com/adamharrison/liquid-go/compile"
)

var opcodeNames = map[ast.Opcode]string{
	ast.OpMovStr:     "MOVSTR",
	ast.OpMovInt:     "MOVINT",
	ast.OpMovFloat:   "MOVFLOAT",
	ast.OpMovBool:    "MOVBOOL",
	ast.OpMovNil:     "MOVNIL",
	ast.OpMov:        "MOV",
	ast.OpPush:       "PUSH",
	ast.OpPop:        "POP",
	ast.OpStack:      "STACK",
	ast.OpAdd:        "ADD",
	ast.OpSub:        "SUB",
	ast.OpMul:        "MUL",
	ast.OpDiv:        "DIV",
	ast.OpMod:        "MOD",
	ast.OpEql:        "EQL",
	ast.OpLength:     "LENGTH",
	ast.OpInvert:     "INVERT",
	ast.OpResolve:    "RESOLVE",
	ast.OpAssign:     "ASSIGN",
	ast.OpCall:       "CALL",
	ast.OpJmp:        "JMP",
	ast.OpJmpTrue:    "JMPTRUE",
	ast.OpJmpFalse:   "JMPFALSE",
	ast.OpIterate:    "ITERATE",
	ast.OpPushBuffer: "PUSHBUF",
	ast.OpPopBuffer:  "POPBUF",
	ast.OpOutput:       "OUTPUT",
	ast.OpOutputMem:    "OUTPUTMEM",
	ast.OpForloop:      "FORLOOP",
	ast.OpCheckControl: "CHECKCTL",
	ast.OpSetControl:   "SETCTL",
	ast.OpPeekControl:  "PEEKCTL",
	ast.OpExit:         "EXIT",
}

// Disassemble renders prog's code segment as one line per instruction,
// in the style of the teacher's own `opal disasm` subcommand: offset,
// mnemonic, register, operand.
func Disassemble(prog *compile.Program) string {
	var sb strings.Builder
	for pc := prog.Entry; pc+instrSize <= len(prog.Bytes); pc += instrSize {
		op := ast.Opcode(prog.Bytes[pc])
		reg := int(prog.Bytes[pc+1])<<16 | int(prog.Bytes[pc+2])<<8 | int(prog.Bytes[pc+3])
		operand := int64(binary.BigEndian.Uint64(prog.Bytes[pc+4 : pc+instrSize]))

		name, ok := opcodeNames[op]
		if !ok {
			name = fmt.Sprintf("OP(%d)", op)
		}

		fmt.Fprintf(&sb, "%06d  %-10s r%d, %d", pc, name, reg, operand)
		if op == ast.OpMovStr || op == ast.OpResolve || op == ast.OpAssign {
			if operand >= 0 && operand+4 <= int64(len(prog.Bytes)) {
				length := binary.BigEndian.Uint32(prog.Bytes[operand : operand+4])
				start := operand + 4
				if start+int64(length) <= int64(len(prog.Bytes)) {
					fmt.Fprintf(&sb, "  ; %q", string(prog.Bytes[start:start+int64(length)]))
				}
			}
		}
		if op == ast.OpCall && int(operand) < len(prog.NodeTypes) {
			fmt.Fprintf(&sb, "  ; %s", prog.NodeTypes[operand].Symbol())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
