package idempotency

// ByteAccess is one byte-granular memory operation. Entries in the
// read and write sets are keyed by address; PC and instruction count
// are payload that the most recent access overwrites.
type ByteAccess struct {
	Address uint64
	PC      uint64
	Count   uint64
}

// InstructionState is the snapshot of a memory event together with the
// function context it happened in. The function name is an owned copy,
// it never points back into the tracker.
type InstructionState struct {
	PC              uint64
	Count           uint64
	MemAddress      uint64
	MemSize         uint64
	FunctionAddress uint64
	FunctionName    string
}

// Policy selects one of the detector variants. Dispatch is by value.
type Policy struct {
	// DetectProtectedWar treats a write-read-write sequence to one
	// byte as protected: the leading write makes later writes safe to
	// re-execute.
	DetectProtectedWar bool

	// InterProcedural ends the region at every function entry.
	InterProcedural bool

	// Sink is the file name the detector's region log flushes to.
	Sink string
}

// WarDetector keeps byte-granular read and write sets for the current
// region and decides whether an incoming write completes a
// write-after-read.
type WarDetector struct {
	policy Policy

	reads  map[uint64]ByteAccess
	writes map[uint64]ByteAccess

	violating_read  ByteAccess
	violating_write ByteAccess

	Log *WarLog
}

func NewWarDetector(policy Policy) *WarDetector {
	d := &WarDetector{
		policy: policy,
		Log:    NewWarLog(policy.Sink),
	}
	d.Reset()
	return d
}

func (d *WarDetector) Policy() Policy {
	return d.policy
}

// Reset clears both access sets and the violating records. External
// counters (instruction counts, region bookkeeping in the analyzer)
// are untouched.
func (d *WarDetector) Reset() {
	d.reads = make(map[uint64]ByteAccess)
	d.writes = make(map[uint64]ByteAccess)
	d.violating_read = ByteAccess{}
	d.violating_write = ByteAccess{}
}

// add_read_byte upserts one byte into the read set. The most recent
// read is the one a later write would violate.
func (d *WarDetector) add_read_byte(b ByteAccess) {
	d.reads[b.Address] = b
}

// add_write_byte classifies one byte write against the current sets.
//
//	R? W? protected | outcome
//	N  N  any       | no WAR, insert write
//	N  Y  any       | no WAR, replace write
//	Y  N  any       | WAR
//	Y  Y  true      | no WAR (protected), replace write
//	Y  Y  false     | WAR
func (d *WarDetector) add_write_byte(b ByteAccess) bool {
	rd, rd_before := d.reads[b.Address]
	_, wr_before := d.writes[b.Address]

	if rd_before && (!wr_before || !d.policy.DetectProtectedWar) {
		d.violating_read = rd
		d.violating_write = b
		return true
	}

	d.writes[b.Address] = b
	return false
}

// AddRead records a memory read, expanded to its individual bytes.
func (d *WarDetector) AddRead(is InstructionState) {
	for i := uint64(0); i < is.MemSize; i++ {
		d.add_read_byte(ByteAccess{Address: is.MemAddress + i, PC: is.PC, Count: is.Count})
	}
}

// AddWrite records a memory write, expanded to its individual bytes in
// ascending address order, and reports whether any byte completed a
// WAR. Expansion stops at the first violating byte so the violating
// records always describe the lowest byte address that triggered; the
// caller resets the region and re-applies the whole write afterwards.
func (d *WarDetector) AddWrite(is InstructionState) bool {
	for i := uint64(0); i < is.MemSize; i++ {
		b := ByteAccess{Address: is.MemAddress + i, PC: is.PC, Count: is.Count}
		if d.add_write_byte(b) {
			return true
		}
	}
	return false
}

func (d *WarDetector) ViolatingRead() ByteAccess {
	return d.violating_read
}

func (d *WarDetector) ViolatingWrite() ByteAccess {
	return d.violating_write
}
