package idempotency

import (
	"testing"
)

func TestClassifyAccess(t *testing.T) {
	const (
		current_sp = uint64(0x2000_0100)
		entry_sp   = uint64(0x2000_0200)
		estack     = uint64(0x2000_1000)
	)

	cases := []struct {
		name     string
		addr     uint64
		expected MemAccessType
	}{
		{"below current sp", 0x2000_00ff, AccessGlobal},
		{"at current sp", current_sp, AccessLocal},
		{"inside frame", 0x2000_0180, AccessLocal},
		{"at entry sp", entry_sp, AccessStack},
		{"caller frame", 0x2000_0800, AccessStack},
		{"at estack", estack, AccessGlobal},
		{"heap", 0x1000_0000, AccessGlobal},
		{"peripheral", 0x4000_0000, AccessGlobal},
	}

	for _, c := range cases {
		if got := ClassifyAccess(c.addr, current_sp, entry_sp, estack); got != c.expected {
			t.Errorf("%s: got %v, want %v", c.name, got, c.expected)
		}
	}
}

func TestClassifyAccessEmptyLocalWindow(t *testing.T) {
	// before the prologue runs, entry sp == current sp: nothing is local
	const (
		sp     = uint64(0x2000_0200)
		estack = uint64(0x2000_1000)
	)
	if got := ClassifyAccess(sp, sp, sp, estack); got != AccessStack {
		t.Errorf("empty local window must fall through to STACK, got %v", got)
	}
	if got := ClassifyAccess(0x2000_2000, sp, sp, estack); got != AccessGlobal {
		t.Errorf("above estack must be GLOBAL, got %v", got)
	}
}

func TestEnumCodings(t *testing.T) {
	access := map[MemAccessType]string{
		AccessUnknown: "UNKNOWN",
		AccessNone:    "NONE",
		AccessLocal:   "LOCAL",
		AccessStack:   "STACK",
		AccessGlobal:  "GLOBAL",
	}
	for val, str := range access {
		if val.String() != str {
			t.Errorf("access type %d: got %q, want %q", val, val.String(), str)
		}
	}
	if AccessUnknown != 0 || AccessNone != 1 || AccessLocal != 2 || AccessStack != 3 || AccessGlobal != 4 {
		t.Errorf("access type integer codings changed")
	}

	ends := map[RegionEndType]string{
		EndWar:           "WAR",
		EndFunctionEntry: "FUNCTION_ENTRY",
		EndSizeLimit:     "SIZE_LIMIT",
		EndForced:        "FORCED",
	}
	for val, str := range ends {
		if val.String() != str {
			t.Errorf("region end type %d: got %q, want %q", val, val.String(), str)
		}
	}
	if EndWar != 0 || EndFunctionEntry != 1 || EndSizeLimit != 2 || EndForced != 3 {
		t.Errorf("region end integer codings changed")
	}
}
