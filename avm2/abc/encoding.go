package abc

import (
	"encoding/binary"
	"fmt"
)

// Operand encodings of the instruction stream: u30 is a LEB128 encoded
// unsigned integer of at most 30 bits, s24 a 3-byte little-endian signed
// integer, s8 a signed byte.

const maxU30 = 1<<30 - 1

func appendU30(code []byte, v uint32) []byte {
	var buf [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(buf[:], uint64(v&maxU30))
	return append(code, buf[:n]...)
}

func readU30(code []byte, pc int) (uint32, int, error) {
	if pc >= len(code) {
		return 0, pc, fmt.Errorf("truncated u30 operand at offset %d", pc)
	}
	v, n := binary.Uvarint(code[pc:])
	if n <= 0 || n > 5 || v > maxU30 {
		return 0, pc, fmt.Errorf("malformed u30 operand at offset %d", pc)
	}
	return uint32(v), pc + n, nil
}

func appendS24(code []byte, v int32) []byte {
	return append(code, byte(v), byte(v>>8), byte(v>>16))
}

func putS24(code []byte, at int, v int32) {
	code[at], code[at+1], code[at+2] = byte(v), byte(v>>8), byte(v>>16)
}

func readS24(code []byte, pc int) (int32, int, error) {
	if pc+3 > len(code) {
		return 0, pc, fmt.Errorf("truncated s24 operand at offset %d", pc)
	}
	v := int32(code[pc]) | int32(code[pc+1])<<8 | int32(code[pc+2])<<16
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v, pc + 3, nil
}
