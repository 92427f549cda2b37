package hooks

import (
	"reflect"
	"testing"
)

func TestDispatchOrder(t *testing.T) {
	h := New()
	var got []string
	h.AddCode(func(pc uint64, size uint32) {
		got = append(got, "code-a")
	})
	h.AddCode(func(pc uint64, size uint32) {
		got = append(got, "code-b")
	})
	h.AddMem(func(pc, addr uint64, size uint32, access MemAccess) {
		got = append(got, "mem")
	})

	h.DispatchCode(0x8000, 2)
	h.DispatchMem(0x8000, 0x100, 4, MemRead)

	expected := []string{"code-a", "code-b", "mem"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("dispatch order: got %v, want %v", got, expected)
	}
}

func TestDispatchArguments(t *testing.T) {
	h := New()
	var pc, addr uint64
	var size uint32
	var access MemAccess
	h.AddMem(func(p, a uint64, s uint32, acc MemAccess) {
		pc, addr, size, access = p, a, s, acc
	})
	h.DispatchMem(0x8004, 0x2000_0000, 8, MemWrite)
	if pc != 0x8004 || addr != 0x2000_0000 || size != 8 || access != MemWrite {
		t.Errorf("arguments mangled: pc=%#x addr=%#x size=%d access=%v", pc, addr, size, access)
	}
}

func TestMemAccessString(t *testing.T) {
	if MemRead.String() != "READ" || MemWrite.String() != "WRITE" {
		t.Errorf("direction names changed")
	}
}
