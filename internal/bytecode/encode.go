package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/sentra-lang/zincvm/internal/field"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// MagicNumber and FormatVersion frame every encoded program, the same
// magic-number-then-version idiom the teacher's buildutil.BytecodeFile
// uses ("SENT" in hex) — here renamed to this toolchain's own tag.
const (
	MagicNumber  uint32 = 0x5A4B5643 // "ZKVC"
	FormatVersion uint32 = 1
)

// Encode writes prog to w in the self-describing binary form of spec
// section 6: magic, version, main descriptor, function table, then
// the instruction stream with each instruction framed by a
// single-byte opcode followed by length-prefixed operands.
func Encode(w io.Writer, prog *Program) error {
	if err := binary.Write(w, binary.LittleEndian, MagicNumber); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, FormatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(prog.MainFunc)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(prog.MainInputSize)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(prog.MainReturnSize)); err != nil {
		return err
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(prog.FunctionAddrs))); err != nil {
		return err
	}
	for idx, addr := range prog.FunctionAddrs {
		if err := binary.Write(w, binary.LittleEndian, uint32(idx)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(addr)); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(prog.Instructions))); err != nil {
		return err
	}
	for i := range prog.Instructions {
		if err := encodeInstruction(w, &prog.Instructions[i]); err != nil {
			return fmt.Errorf("encode instruction %d: %w", i, err)
		}
	}
	return nil
}

func writeVarint(w io.Writer, v int) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutVarint(buf, int64(v))
	_, err := w.Write(buf[:n])
	return err
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func writeBytesLenPrefixed(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func encodeInstruction(w io.Writer, instr *Instruction) error {
	if _, err := w.Write([]byte{byte(instr.Op)}); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Addr); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Size); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Index); err != nil {
		return err
	}
	if err := writeVarint(w, instr.SliceLen); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Offset); err != nil {
		return err
	}
	boolByte := byte(0)
	if instr.Signed {
		boolByte = 1
	}
	if _, err := w.Write([]byte{boolByte}); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Bits); err != nil {
		return err
	}
	if err := writeBytesLenPrefixed(w, instr.Const.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(instr.ConstType)}); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Count); err != nil {
		return err
	}
	if err := writeString(w, instr.Format); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Argc); err != nil {
		return err
	}
	if err := writeString(w, instr.Debug.File); err != nil {
		return err
	}
	if err := writeString(w, instr.Debug.Function); err != nil {
		return err
	}
	if err := writeVarint(w, instr.Debug.Line); err != nil {
		return err
	}
	return writeVarint(w, instr.Debug.Column)
}

func readVarint(r io.ByteReader) (int, error) {
	v, err := binary.ReadVarint(r)
	return int(v), err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

func readBytesLenPrefixed(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Decode reads a Program previously written by Encode. r
// must also implement io.ByteReader (e.g. *bufio.Reader) since varint
// decoding reads one byte at a time.
func Decode(r interface {
	io.Reader
	io.ByteReader
}) (*Program, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != MagicNumber {
		return nil, zerr.Bytecode("bad magic number %#x", magic)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, zerr.Bytecode("unsupported bytecode format version %d", version)
	}

	prog := &Program{FunctionAddrs: map[int]int{}}
	var mainFunc, mainIn, mainOut uint32
	if err := binary.Read(r, binary.LittleEndian, &mainFunc); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &mainIn); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &mainOut); err != nil {
		return nil, err
	}
	prog.MainFunc, prog.MainInputSize, prog.MainReturnSize = int(mainFunc), int(mainIn), int(mainOut)

	var numFuncs uint32
	if err := binary.Read(r, binary.LittleEndian, &numFuncs); err != nil {
		return nil, err
	}
	for i := uint32(0); i < numFuncs; i++ {
		var idx, addr uint32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &addr); err != nil {
			return nil, err
		}
		prog.FunctionAddrs[int(idx)] = int(addr)
	}

	var numInstr uint32
	if err := binary.Read(r, binary.LittleEndian, &numInstr); err != nil {
		return nil, err
	}
	prog.Instructions = make([]Instruction, numInstr)
	for i := uint32(0); i < numInstr; i++ {
		instr, err := decodeInstruction(r)
		if err != nil {
			return nil, fmt.Errorf("decode instruction %d: %w", i, err)
		}
		prog.Instructions[i] = instr
	}
	return prog, nil
}

func decodeInstruction(r interface {
	io.Reader
	io.ByteReader
}) (Instruction, error) {
	var opByte [1]byte
	if _, err := io.ReadFull(r, opByte[:]); err != nil {
		return Instruction{}, err
	}
	op := Op(opByte[0])
	if _, known := opNames[op]; !known {
		return Instruction{}, zerr.Bytecode("unknown opcode %d", op)
	}
	var instr Instruction
	instr.Op = op
	var err error
	if instr.Addr, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.Size, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.Index, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.SliceLen, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.Offset, err = readVarint(r); err != nil {
		return instr, err
	}
	var signedByte [1]byte
	if _, err = io.ReadFull(r, signedByte[:]); err != nil {
		return instr, err
	}
	instr.Signed = signedByte[0] != 0
	if instr.Bits, err = readVarint(r); err != nil {
		return instr, err
	}
	constBytes, err := readBytesLenPrefixed(r)
	if err != nil {
		return instr, err
	}
	if len(constBytes) > 0 {
		instr.Const = field.FromBigInt(new(big.Int).SetBytes(constBytes))
	}
	var constTypeByte [1]byte
	if _, err = io.ReadFull(r, constTypeByte[:]); err != nil {
		return instr, err
	}
	instr.ConstType = ConstType(constTypeByte[0])
	if instr.Count, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.Format, err = readString(r); err != nil {
		return instr, err
	}
	if instr.Argc, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.Debug.File, err = readString(r); err != nil {
		return instr, err
	}
	if instr.Debug.Function, err = readString(r); err != nil {
		return instr, err
	}
	if instr.Debug.Line, err = readVarint(r); err != nil {
		return instr, err
	}
	if instr.Debug.Column, err = readVarint(r); err != nil {
		return instr, err
	}
	return instr, nil
}
