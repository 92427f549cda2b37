package emulator

import (
	"github.com/go-errors/errors"
)

// CPUState is a register snapshot of the emulated core.
type CPUState struct {
	Regs map[int]uint64
}

func ExtractState(em *Emulator) (*CPUState, *errors.Error) {
	s := &CPUState{Regs: make(map[int]uint64)}
	for _, reg := range em.Config.Arch.GetRegisters() {
		val, err := em.mu.RegRead(reg)
		if err != nil {
			return nil, wrap(err)
		}
		s.Regs[reg] = val
	}
	return s, nil
}

func (s *CPUState) Apply(em *Emulator) *errors.Error {
	for reg, val := range s.Regs {
		if err := em.mu.RegWrite(reg, val); err != nil {
			return wrap(err)
		}
	}
	return nil
}
