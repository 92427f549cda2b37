package data_structures

import (
	log "github.com/sirupsen/logrus"

	"github.com/jochembroekhoff/ICEmu/hooks"
)

type SymbolType uint

const (
	FUNC        SymbolType = 1
	DATA        SymbolType = 2
	FILE        SymbolType = 3
	THREADLOCAL SymbolType = 4
	SECTION     SymbolType = 5
	UNKNOWN     SymbolType = 6
)

type Symbol struct {
	Name    string
	Type    SymbolType
	Address uint64
	Size    uint64
}

func NewSymbol(name string, symtype SymbolType, address, size uint64) *Symbol {
	return &Symbol{Name: name, Type: symtype, Address: address, Size: size}
}

// FuncAddr returns the entry address of a function symbol. Thumb
// function symbols carry the mode in bit 0, which is not part of the
// address.
func (s *Symbol) FuncAddr() uint64 {
	return s.Address &^ 1
}

// SymbolTable is the symbol oracle built from a loaded binary.
type SymbolTable struct {
	Symbols []Symbol
	by_name map[string]uint64
}

func NewSymbolTable(symbols []Symbol) *SymbolTable {
	t := &SymbolTable{Symbols: symbols, by_name: make(map[string]uint64)}
	for _, sym := range symbols {
		if _, taken := t.by_name[sym.Name]; taken {
			log.WithFields(log.Fields{"name": sym.Name}).Debug("Duplicate symbol name")
			continue
		}
		t.by_name[sym.Name] = sym.Address
	}
	return t
}

func (t *SymbolTable) Functions() []hooks.FunctionSymbol {
	var res []hooks.FunctionSymbol
	for _, sym := range t.Symbols {
		if sym.Type != FUNC {
			continue
		}
		res = append(res, hooks.FunctionSymbol{Address: sym.FuncAddr(), Name: sym.Name})
	}
	return res
}

func (t *SymbolTable) ByName(name string) (uint64, bool) {
	addr, ok := t.by_name[name]
	return addr, ok
}
