package emulator

import (
	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
)

const pagesize = 4096

// WorkingSet is the ring of pages that were demand-mapped because the
// firmware touched memory outside the loaded image. When the ring is
// full the oldest page is unmapped again.
type WorkingSet struct {
	mapped []uint64
	newest int
	oldest int
	env    Environment
}

func NewWorkingSet(size int, env Environment) *WorkingSet {
	return &WorkingSet{
		mapped: make([]uint64, size),
		newest: -1,
		oldest: -1,
		env:    env,
	}
}

// Map backs the page containing addr with environment contents. An
// access that straddles a page boundary maps the following page too.
func (s *WorkingSet) Map(addr, size uint64, mu uc.Unicorn) *errors.Error {
	base_addr := addr - addr%pagesize
	log.WithFields(log.Fields{"addr": hex(base_addr)}).Debug("Demand map page")
	if err := mu.MemMap(base_addr, pagesize); err != nil {
		return errors.Wrap(err, 0)
	}
	if err := mu.MemWrite(base_addr, s.env.GetMem(base_addr, pagesize)); err != nil {
		return errors.Wrap(err, 0)
	}
	if err := s.store(base_addr, mu); err != nil {
		return err
	}
	if addr+size > base_addr+pagesize {
		return s.Map(base_addr+pagesize, 1, mu)
	}
	return nil
}

func (s *WorkingSet) store(addr uint64, mu uc.Unicorn) *errors.Error {
	if s.newest == -1 {
		s.mapped[0] = addr
		s.oldest = 0
		s.newest = 0
		return nil
	}

	s.newest = (s.newest + 1) % len(s.mapped)
	if s.newest == s.oldest {
		// ring is full, evict the oldest page
		if err := mu.MemUnmap(s.mapped[s.oldest], pagesize); err != nil {
			return errors.Wrap(err, 0)
		}
		s.oldest = (s.oldest + 1) % len(s.mapped)
	}
	s.mapped[s.newest] = addr
	return nil
}

// Clear unmaps every page of the working set.
func (s *WorkingSet) Clear(mu uc.Unicorn) *errors.Error {
	if s.newest == -1 {
		return nil
	}
	for i := s.oldest; ; i = (i + 1) % len(s.mapped) {
		if err := mu.MemUnmap(s.mapped[i], pagesize); err != nil {
			return errors.Wrap(err, 0)
		}
		if i == s.newest {
			break
		}
	}
	s.newest = -1
	s.oldest = -1
	return nil
}
