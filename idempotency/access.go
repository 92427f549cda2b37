package idempotency

// MemAccessType classifies a memory address relative to the stack
// layout at the time of the access. The integer codings are part of
// the log file format and must not change.
type MemAccessType uint32

const (
	AccessUnknown MemAccessType = 0
	AccessNone    MemAccessType = 1
	AccessLocal   MemAccessType = 2
	AccessStack   MemAccessType = 3
	AccessGlobal  MemAccessType = 4
)

var mem_access_type_str = [5]string{
	"UNKNOWN",
	"NONE",
	"LOCAL",
	"STACK",
	"GLOBAL",
}

func (t MemAccessType) String() string {
	if int(t) >= len(mem_access_type_str) {
		return mem_access_type_str[AccessUnknown]
	}
	return mem_access_type_str[t]
}

// RegionEndType is the cause that closed an idempotent region. The
// integer codings are part of the log file format and must not change.
type RegionEndType uint32

const (
	EndWar RegionEndType = iota
	EndFunctionEntry
	EndSizeLimit
	EndForced
)

var region_end_type_str = [4]string{
	"WAR",
	"FUNCTION_ENTRY",
	"SIZE_LIMIT",
	"FORCED",
}

func (t RegionEndType) String() string {
	if int(t) >= len(region_end_type_str) {
		return "UNKNOWN"
	}
	return region_end_type_str[t]
}

// ClassifyAccess labels a memory address against the current stack
// frame.
//
// An access is function-local if it lies on the current activation's
// frame: at or above the current stack pointer but below the stack
// pointer captured at function entry. It is a stack access if it lies
// between the current stack pointer and _estack without being local.
// Everything else is global.
//
// When entry_sp <= current_sp the local window is empty and the access
// falls through to STACK or GLOBAL.
func ClassifyAccess(addr, current_sp, entry_sp, estack uint64) MemAccessType {
	if addr >= current_sp && addr < entry_sp {
		return AccessLocal
	}
	if addr >= current_sp && addr < estack {
		return AccessStack
	}
	return AccessGlobal
}
