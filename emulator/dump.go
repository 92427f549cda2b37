package emulator

import (
	hexenc "encoding/hex"
	"fmt"
	"os"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// Completion dumps of the final machine state. The prefix comes from
// the --dump-prefix flag.

func (s *Emulator) dump_regions(prefix, suffix string, encode func([]byte) []byte) *errors.Error {
	for rng := range s.regions {
		mem, err := s.ReadMemory(rng.From, rng.Length())
		if err != nil {
			return err
		}
		filename := fmt.Sprintf("%s%08x.%s", prefix, rng.From, suffix)
		if werr := os.WriteFile(filename, encode(mem), 0644); werr != nil {
			return errors.Wrap(werr, 0)
		}
		log.WithFields(log.Fields{"file": filename, "length": len(mem)}).Info("Dumped memory region")
	}
	return nil
}

// DumpBin writes one raw binary file per memory region.
func (s *Emulator) DumpBin(prefix string) *errors.Error {
	return s.dump_regions(prefix, "bin", func(mem []byte) []byte { return mem })
}

// DumpHex writes one hex-encoded file per memory region.
func (s *Emulator) DumpHex(prefix string) *errors.Error {
	return s.dump_regions(prefix, "hex", func(mem []byte) []byte {
		out := make([]byte, hexenc.EncodedLen(len(mem)))
		hexenc.Encode(out, mem)
		return out
	})
}

// DumpRegs writes the final register values, one "id=value" line per
// architectural register, keyed by the unicorn register id.
func (s *Emulator) DumpRegs(prefix string) *errors.Error {
	state, err := ExtractState(s)
	if err != nil {
		return err
	}

	filename := prefix + "registers.txt"
	f, werr := os.Create(filename)
	if werr != nil {
		return errors.Wrap(werr, 0)
	}
	defer f.Close()

	regs := s.Config.Arch.GetRegisters()
	for _, reg := range regs {
		fmt.Fprintf(f, "%d=0x%x\n", reg, state.Regs[reg])
	}
	log.WithFields(log.Fields{"file": filename, "registers": len(regs)}).Info("Dumped registers")
	return nil
}
