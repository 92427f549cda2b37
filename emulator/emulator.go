package emulator

import (
	"fmt"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	ds "github.com/jochembroekhoff/ICEmu/data_structures"
	"github.com/jochembroekhoff/ICEmu/hooks"
)

type Config struct {
	MaxInstructionCount uint64
	MaxTime             uint64
	MaxPages            int
	Arch                Arch
	Env                 Environment
}

// Emulator is the unicorn-backed execution host. It maps the loaded
// image, initializes the machine from the Environment and drives the
// registered hooks in program order: one code dispatch per
// instruction, then that instruction's memory dispatches.
type Emulator struct {
	Config     Config
	WorkingSet *WorkingSet

	mu      uc.Unicorn
	hooks   *hooks.Hooks
	regions map[ds.Range]*ds.MappedRegion
	icount  uint64
}

func wrap(err error) *errors.Error {
	if err != nil {
		return errors.Wrap(err, 1)
	}
	return nil
}

func NewEmulator(regions map[ds.Range]*ds.MappedRegion, conf Config) (*Emulator, *errors.Error) {
	res := &Emulator{
		Config:     conf,
		WorkingSet: NewWorkingSet(conf.MaxPages, conf.Env),
		hooks:      hooks.New(),
		regions:    regions,
	}

	mu, err := uc.NewUnicorn(conf.Arch.ToUnicornArchDescription(), conf.Arch.ToUnicornModeDescription())
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	res.mu = mu

	if err := res.WriteMemory(regions); err != nil {
		return nil, err
	}
	if err := res.ResetRegisters(); err != nil {
		return nil, err
	}
	if err := res.addHooks(); err != nil {
		return nil, err
	}

	return res, nil
}

// Hooks exposes the capability record analyses register with.
func (s *Emulator) Hooks() *hooks.Hooks {
	return s.hooks
}

// SP implements the register oracle.
func (s *Emulator) SP() (uint64, error) {
	return s.mu.RegRead(s.Config.Arch.GetRegStack())
}

func (s *Emulator) InstructionCount() uint64 {
	return s.icount
}

func (s *Emulator) Close() *errors.Error {
	mu := s.mu
	s.mu = nil
	return wrap(mu.Close())
}

func page_bounds(rng ds.Range) (uint64, uint64) {
	start := rng.From - rng.From%pagesize
	end := rng.To
	if end%pagesize != 0 {
		end += pagesize - end%pagesize
	}
	return start, end
}

func prot_flags(flags ds.PageFlags) int {
	prot := 0
	if flags&ds.R != 0 {
		prot |= uc.PROT_READ
	}
	if flags&ds.W != 0 {
		prot |= uc.PROT_WRITE
	}
	if flags&ds.X != 0 {
		prot |= uc.PROT_EXEC
	}
	return prot
}

// WriteMemory maps every region page-aligned with its segment
// protection and writes the image contents. Bytes between the file
// image and the memory size (.bss) stay zero.
func (s *Emulator) WriteMemory(regions map[ds.Range]*ds.MappedRegion) *errors.Error {
	for rng, region := range regions {
		page_start, page_end := page_bounds(rng)
		log.WithFields(log.Fields{"addr": hex(page_start), "length": page_end - page_start}).Debug("Map Memory")
		if err := s.mu.MemMapProt(page_start, page_end-page_start, prot_flags(region.Flags)); err != nil {
			return wrap(err)
		}
		log.WithFields(log.Fields{"addr": hex(rng.From), "length": len(region.Data)}).Debug("Write Memory Content")
		if err := s.mu.MemWrite(rng.From, region.Data); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// ResetRegisters loads every architectural register from the
// Environment. The caller places the stack pointer at _estack (SetSP)
// if the image defines that symbol; the Environment value is only the
// fallback.
func (s *Emulator) ResetRegisters() *errors.Error {
	for i, reg := range s.Config.Arch.GetRegisters() {
		if err := s.mu.RegWrite(reg, s.Config.Env.GetReg(i)); err != nil {
			return wrap(err)
		}
	}
	return nil
}

// SetSP places the stack pointer, typically at _estack.
func (s *Emulator) SetSP(sp uint64) *errors.Error {
	return wrap(s.mu.RegWrite(s.Config.Arch.GetRegStack(), sp))
}

// Run executes from entry until the instruction budget or the timeout
// is exhausted.
func (s *Emulator) Run(entry uint64) *errors.Error {
	log.WithFields(log.Fields{"entry": hex(entry)}).Info("Run trace")
	opt := uc.UcOptions{Timeout: s.Config.MaxTime, Count: s.Config.MaxInstructionCount}
	err := s.mu.StartWithOptions(entry, ^uint64(0), &opt)
	log.WithFields(log.Fields{"entry": hex(entry), "icount": s.icount}).Info("Finished trace")
	return s.handle_emulator_error(err)
}

func (s *Emulator) handle_emulator_error(err error) *errors.Error {
	if err == nil {
		return nil
	}
	uc_err, ok := err.(uc.UcError)
	if !ok {
		return wrap(err)
	}
	ip, _ := s.mu.RegRead(s.Config.Arch.GetRegIP())
	log.WithFields(log.Fields{"err": err, "ip": hex(ip)}).Debug("Emulator Error Occured")
	if uc_err == uc.ERR_INSN_INVALID || uc_err == uc.ERR_FETCH_UNMAPPED {
		// the firmware ran off the rails, the trace so far stays valid
		log.WithFields(log.Fields{"ip": hex(ip)}).Warning("Trace ended at invalid instruction")
		return nil
	}
	return wrap(err)
}

func (s *Emulator) ReadMemory(addr, size uint64) ([]byte, *errors.Error) {
	mem, err := s.mu.MemRead(addr, size)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	return mem, nil
}

func (s *Emulator) addHooks() *errors.Error {
	_, err := s.mu.HookAdd(uc.HOOK_CODE, func(mu uc.Unicorn, addr uint64, size uint32) {
		s.icount++
		s.hooks.DispatchCode(addr, size)
	}, 1, 0)
	if err != nil {
		return wrap(err)
	}

	_, err = s.mu.HookAdd(uc.HOOK_MEM_READ|uc.HOOK_MEM_WRITE, func(mu uc.Unicorn, access int, addr uint64, size int, value int64) {
		ip, _ := mu.RegRead(s.Config.Arch.GetRegIP())
		direction := hooks.MemRead
		if access == uc.MEM_WRITE {
			direction = hooks.MemWrite
		}
		log.WithFields(log.Fields{"at": hex(ip), "addr": hex(addr), "size": size, "access": direction}).Debug("Memory Event")
		s.hooks.DispatchMem(ip, addr, uint32(size), direction)
	}, 1, 0)
	if err != nil {
		return wrap(err)
	}

	invalid := uc.HOOK_MEM_READ_INVALID | uc.HOOK_MEM_WRITE_INVALID | uc.HOOK_MEM_FETCH_INVALID
	_, err = s.mu.HookAdd(invalid, func(mu uc.Unicorn, access int, addr uint64, size int, value int64) bool {
		log.WithFields(log.Fields{"addr": hex(addr), "size": size}).Debug("invalid memory access")

		if access == uc.MEM_FETCH_UNMAPPED || access == uc.MEM_FETCH_PROT {
			return false
		}

		if access == uc.MEM_READ_UNMAPPED || access == uc.MEM_WRITE_UNMAPPED {
			if err := s.WorkingSet.Map(addr, uint64(size), mu); err != nil {
				log.WithFields(log.Fields{"addr": hex(addr), "size": size, "error": err, "stack": err.ErrorStack()}).Error("Error Mapping page")
				return false
			}
			return true
		}

		log.WithFields(log.Fields{"addr": hex(addr), "access": access, "size": size}).Error("Unhandled Memory Error")
		return false
	}, 1, 0)
	if err != nil {
		return wrap(err)
	}

	return nil
}

func hex(val uint64) string {
	return fmt.Sprintf("0x%x", val)
}
