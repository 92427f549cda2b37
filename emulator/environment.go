package emulator

import (
	xxhash "github.com/OneOfOne/xxhash"
)

const mem_salt = uint64(0xa66aec150c63e3fe)
const reg_salt = uint64(0x7a1a190d52c2bc81)

func to_byte_array(val uint64) []byte {
	bytes := make([]byte, 8)
	for i := 0; i < 8; i++ {
		bytes[i] = byte(val % 0xff)
		val = val / 0xff
	}
	return bytes
}

func fast_hash(salt, val uint64) uint64 {
	return xxhash.Checksum64S(to_byte_array(val), salt)
}

// Environment supplies the initial contents of registers and of memory
// that the image does not cover.
type Environment interface {
	GetReg(num int) uint64
	GetMem(addr, size uint64) []byte
}

// RandEnv produces deterministic pseudo-random contents so runs are
// reproducible for a given seed.
type RandEnv struct {
	seed uint64
}

func NewRandEnv(seed uint64) *RandEnv {
	return &RandEnv{seed: seed}
}

func (s *RandEnv) GetReg(num int) uint64 {
	return fast_hash(reg_salt^s.seed, uint64(num))
}

func (s *RandEnv) GetMem(addr, size uint64) []byte {
	res := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		res[i] = byte(fast_hash(mem_salt^s.seed, addr+i))
	}
	return res
}

// ConstEnv fills everything with one value. Useful in tests.
type ConstEnv struct {
	val uint64
}

func NewConstEnv(val uint64) *ConstEnv {
	return &ConstEnv{val: val}
}

func (s *ConstEnv) GetReg(num int) uint64 {
	return s.val
}

func (s *ConstEnv) GetMem(addr, size uint64) []byte {
	res := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		res[i] = byte(s.val)
	}
	return res
}
