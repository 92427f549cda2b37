package elf

import (
	"debug/elf"
	"os"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	ds "github.com/jochembroekhoff/ICEmu/data_structures"
)

// Image is the memory layout and symbol table of a loaded firmware
// binary.
type Image struct {
	Entry    uint64
	Segments map[ds.Range]*ds.MappedRegion
	Symbols  *ds.SymbolTable
}

func elfFlagsToPageFlags(in elf.ProgFlag) ds.PageFlags {
	res := ds.PageFlags(0)
	if in&elf.PF_X != 0 {
		res |= ds.X
	}
	if in&elf.PF_R != 0 {
		res |= ds.R
	}
	if in&elf.PF_W != 0 {
		res |= ds.W
	}
	return res
}

func GetSegments(e *elf.File) (map[ds.Range]*ds.MappedRegion, *errors.Error) {
	res := make(map[ds.Range]*ds.MappedRegion)
	for _, prog := range e.Progs {
		hdr := prog.ProgHeader
		if hdr.Type != elf.PT_LOAD || hdr.Memsz == 0 {
			continue
		}
		info := new(ds.MappedRegion)
		info.Range = ds.NewRange(hdr.Vaddr, hdr.Vaddr+hdr.Memsz)
		info.Data = make([]byte, hdr.Filesz)
		info.Flags = elfFlagsToPageFlags(hdr.Flags)

		size_read, err := prog.Open().Read(info.Data)
		if err != nil && hdr.Filesz > 0 {
			return nil, errors.Wrap(err, 0)
		}
		if uint64(size_read) != hdr.Filesz {
			return nil, errors.Errorf("segment at %x: read %d of %d bytes", hdr.Vaddr, size_read, hdr.Filesz)
		}
		res[info.Range] = info
	}
	return res, nil
}

func elfSymbolTypeToSymbolType(elfsymbol uint) ds.SymbolType {
	switch elf.ST_TYPE(uint8(elfsymbol)) {
	case elf.STT_OBJECT:
		return ds.DATA
	case elf.STT_COMMON:
		return ds.DATA
	case elf.STT_FUNC:
		return ds.FUNC
	case elf.STT_FILE:
		return ds.FILE
	case elf.STT_TLS:
		return ds.THREADLOCAL
	case elf.STT_SECTION:
		return ds.SECTION
	case elf.STT_NOTYPE:
		// linker script symbols like _estack have no type
		return ds.DATA
	}
	log.WithFields(log.Fields{"elfsymbol": elfsymbol & 0xf}).Info("Failed to Interpret Symbol")
	return ds.UNKNOWN
}

func GetSymbols(e *elf.File) (*ds.SymbolTable, *errors.Error) {
	symbols, err := e.Symbols()
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	res := make([]ds.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		sym_type := elfSymbolTypeToSymbolType(uint(sym.Info))
		res = append(res, *ds.NewSymbol(sym.Name, sym_type, sym.Value, sym.Size))
	}
	return ds.NewSymbolTable(res), nil
}

// Load reads an ELF firmware image: loadable segments, the symbol
// table, and the entry point.
func Load(file string) (*Image, *errors.Error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	defer f.Close()

	_elf, err := elf.NewFile(f)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	segments, gerr := GetSegments(_elf)
	if gerr != nil {
		return nil, gerr
	}
	symbols, gerr := GetSymbols(_elf)
	if gerr != nil {
		return nil, gerr
	}

	log.WithFields(log.Fields{"file": file, "segments": len(segments), "symbols": len(symbols.Symbols)}).Info("Loaded ELF image")
	return &Image{Entry: _elf.Entry, Segments: segments, Symbols: symbols}, nil
}
