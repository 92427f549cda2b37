package idempotency

import (
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jochembroekhoff/ICEmu/hooks"
)

// InstructionTracker follows the instruction stream and maintains the
// current function context. It is fed through the code hook of the
// execution host, once per executed instruction and before that
// instruction's memory events.
type InstructionTracker struct {
	Count uint64
	PC    uint64

	FunctionName       string
	FunctionAddress    uint64
	FunctionEntryCount uint64
	FunctionEntrySP    uint64

	// Estack is the architecturally defined top of the stack, taken
	// from the _estack symbol at construction.
	Estack uint64

	// NewFunction is raised when the current instruction is a function
	// entry. It acts like an ISR flag: the analyzer lowers it once the
	// first memory event after the entry has been seen by all detectors.
	NewFunction bool

	functions map[uint64][]string
	regs      hooks.Registers
}

// NewInstructionTracker builds the function map from the symbol oracle
// and captures _estack. A binary without _estack cannot be analyzed.
func NewInstructionTracker(env *hooks.Env) (*InstructionTracker, *errors.Error) {
	t := &InstructionTracker{
		functions: make(map[uint64][]string),
		regs:      env.Registers,
	}

	for _, f := range env.Symbols.Functions() {
		t.functions[f.Address] = append(t.functions[f.Address], f.Name)
	}

	estack, ok := env.Symbols.ByName("_estack")
	if !ok {
		return nil, errors.Errorf("symbol _estack not found")
	}
	t.Estack = estack
	log.WithFields(log.Fields{"estack": hex(estack), "functions": len(t.functions)}).Info("Instruction tracker ready")

	return t, nil
}

// FunctionsAt returns the names of the functions entered at addr, or
// nil if addr is not a function entry.
func (t *InstructionTracker) FunctionsAt(addr uint64) []string {
	return t.functions[addr]
}

// OnInstruction is the code hook. The instruction count is incremented
// eagerly, so the first instruction of the trace has count 1.
func (t *InstructionTracker) OnInstruction(pc uint64, size uint32) {
	t.Count++
	t.PC = pc

	funcs := t.functions[pc]
	if len(funcs) == 0 {
		return
	}

	t.FunctionName = funcs[0]
	t.FunctionAddress = pc
	t.FunctionEntryCount = t.Count

	sp, err := t.regs.SP()
	if err != nil {
		log.WithFields(log.Fields{"error": err, "pc": hex(pc)}).Warning("Failed to read SP at function entry")
		sp = 0
	}
	t.FunctionEntrySP = sp
	t.NewFunction = true
}

// CurrentSP reads the stack pointer from the register oracle, falling
// back to 0 if the oracle fails.
func (t *InstructionTracker) CurrentSP() uint64 {
	sp, err := t.regs.SP()
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Warning("Failed to read SP")
		return 0
	}
	return sp
}
