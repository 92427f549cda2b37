package emulator

import (
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
)

// Arch describes the target architecture to the emulator.
type Arch interface {
	GetRegisters() []int
	GetRegIP() int
	GetRegStack() int
	ToUnicornArchDescription() int
	ToUnicornModeDescription() int
}

// ArchARM is the ARM-class firmware target. Thumb selects the
// instruction mode the core starts in; Cortex-M parts are Thumb only.
type ArchARM struct {
	Thumb bool
}

func (s *ArchARM) GetRegisters() []int {
	return []int{
		uc.ARM_REG_R0, uc.ARM_REG_R1, uc.ARM_REG_R2, uc.ARM_REG_R3,
		uc.ARM_REG_R4, uc.ARM_REG_R5, uc.ARM_REG_R6, uc.ARM_REG_R7,
		uc.ARM_REG_R8, uc.ARM_REG_R9, uc.ARM_REG_R10, uc.ARM_REG_R11,
		uc.ARM_REG_R12, uc.ARM_REG_SP, uc.ARM_REG_LR, uc.ARM_REG_PC,
	}
}

func (s *ArchARM) GetRegIP() int {
	return uc.ARM_REG_PC
}

func (s *ArchARM) GetRegStack() int {
	return uc.ARM_REG_SP
}

func (s *ArchARM) ToUnicornArchDescription() int {
	return uc.ARCH_ARM
}

func (s *ArchARM) ToUnicornModeDescription() int {
	if s.Thumb {
		return uc.MODE_THUMB
	}
	return uc.MODE_ARM
}
