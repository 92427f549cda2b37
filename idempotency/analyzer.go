package idempotency

import (
	"fmt"
	"strings"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jochembroekhoff/ICEmu/hooks"
)

const output_dir_arg = "idempotent-stats-output-dir="

// DefaultMaxRegionSize bounds the instruction distance a single region
// may span. 0 disables the limit.
const DefaultMaxRegionSize = 1000

type Options struct {
	MaxRegionSize uint64
}

// Analyzer wires the four WAR detector variants to the event stream of
// an execution host. The variants are fixed: the Cartesian product of
// the protected-write and procedure-boundary policies.
type Analyzer struct {
	tracker   *InstructionTracker
	detectors [4]*WarDetector

	// region_start holds, per detector, the instruction count at which
	// the current region began. Detector resets never touch it; the
	// analyzer refreshes it whenever it performs a reset.
	region_start [4]uint64

	env  *hooks.Env
	opts Options
}

var detector_policies = [4]Policy{
	{DetectProtectedWar: true, InterProcedural: false, Sink: "idempotent-sections-intra-procedural.csv"},
	{DetectProtectedWar: true, InterProcedural: true, Sink: "idempotent-sections-inter-procedural-dump.csv"},
	{DetectProtectedWar: false, InterProcedural: false, Sink: "idempotent-sections-no-protected-intra-procedural-dump.csv"},
	{DetectProtectedWar: false, InterProcedural: true, Sink: "idempotent-sections-no-protected-inter-procedural-dump.csv"},
}

// NewAnalyzer builds the tracker and the four detectors. It fails when
// the binary lacks the _estack symbol; a failed analyzer must not be
// registered with the host.
func NewAnalyzer(env *hooks.Env, opts Options) (*Analyzer, *errors.Error) {
	tracker, err := NewInstructionTracker(env)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		tracker: tracker,
		env:     env,
		opts:    opts,
	}
	for i, policy := range detector_policies {
		a.detectors[i] = NewWarDetector(policy)
	}
	return a, nil
}

// Register hooks the analyzer into the execution host's event stream.
func (a *Analyzer) Register(h *hooks.Hooks) {
	h.AddCode(a.OnInstruction)
	h.AddMem(a.OnMemory)
}

func (a *Analyzer) Tracker() *InstructionTracker {
	return a.tracker
}

func (a *Analyzer) Detectors() []*WarDetector {
	return a.detectors[:]
}

// OnInstruction is the code hook, delivered once per instruction
// before that instruction's memory events.
func (a *Analyzer) OnInstruction(pc uint64, size uint32) {
	a.tracker.OnInstruction(pc, size)
}

// OnMemory is the memory hook. Each detector observes the event in the
// fixed order; the new-function flag is consumed once all four have.
func (a *Analyzer) OnMemory(pc, addr uint64, size uint32, access hooks.MemAccess) {
	if size == 0 || (access != hooks.MemRead && access != hooks.MemWrite) {
		log.WithFields(log.Fields{"pc": hex(pc), "addr": hex(addr), "size": size, "access": access}).Warning("Dropping malformed memory event")
		return
	}

	istate := InstructionState{
		PC:              a.tracker.PC,
		Count:           a.tracker.Count,
		MemAddress:      addr,
		MemSize:         uint64(size),
		FunctionAddress: a.tracker.FunctionAddress,
		FunctionName:    a.tracker.FunctionName,
	}

	is_read := access == hooks.MemRead
	for i, d := range a.detectors {
		a.detect(i, d, istate, is_read)
	}

	a.tracker.NewFunction = false
}

func (a *Analyzer) detect(i int, d *WarDetector, istate InstructionState, is_read bool) {
	// Inter-procedural variants end the region when a new function has
	// been entered; intra-procedural variants keep tracking across the
	// boundary.
	if d.policy.InterProcedural && a.tracker.NewFunction {
		d.Log.Add(WarLogLine{
			ReadCount:       0,
			WriteCount:      a.tracker.FunctionEntryCount,
			ReadPC:          0,
			WritePC:         0,
			MemoryAddress:   0,
			FunctionAddress: istate.FunctionAddress,
			FunctionName:    istate.FunctionName,
			AccessType:      AccessNone,
			RegionEnd:       EndFunctionEntry,
		})
		a.reset(i, d)
	}

	if is_read {
		d.AddRead(istate)
		return
	}

	if a.opts.MaxRegionSize != 0 && istate.Count-a.region_start[i] > a.opts.MaxRegionSize {
		d.Log.Add(WarLogLine{
			ReadCount:       a.region_start[i],
			WriteCount:      istate.Count,
			FunctionAddress: istate.FunctionAddress,
			FunctionName:    istate.FunctionName,
			AccessType:      AccessNone,
			RegionEnd:       EndSizeLimit,
		})
		a.reset(i, d)
	}

	if !d.AddWrite(istate) {
		return
	}

	// The WAR breaks the section just before the write. Log the
	// violating pair, then start the next region with the write
	// already recorded.
	read := d.ViolatingRead()
	write := d.ViolatingWrite()

	d.Log.Add(WarLogLine{
		ReadCount:       read.Count,
		WriteCount:      write.Count,
		ReadPC:          read.PC,
		WritePC:         write.PC,
		MemoryAddress:   read.Address,
		FunctionAddress: istate.FunctionAddress,
		FunctionName:    istate.FunctionName,
		AccessType:      a.classify(istate.MemAddress),
		RegionEnd:       EndWar,
	})
	a.reset(i, d)
	d.AddWrite(istate)
}

func (a *Analyzer) reset(i int, d *WarDetector) {
	d.Reset()
	a.region_start[i] = a.tracker.Count
}

func (a *Analyzer) classify(addr uint64) MemAccessType {
	return ClassifyAccess(addr, a.tracker.CurrentSP(), a.tracker.FunctionEntrySP, a.tracker.Estack)
}

// OutputDir resolves the log directory from the plugin arguments.
// Unknown arguments are ignored; absent means the current directory.
func (a *Analyzer) OutputDir() string {
	for _, arg := range a.env.PluginArgs {
		if idx := strings.Index(arg, output_dir_arg); idx >= 0 {
			return arg[idx+len(output_dir_arg):]
		}
	}
	return ""
}

// Flush writes all four region logs. State of a region still open when
// the trace ended is discarded without a terminal record. Sinks that
// fail to open are skipped, the others still flush.
func (a *Analyzer) Flush() {
	out_dir := a.OutputDir()
	log.WithFields(log.Fields{"dir": out_dir}).Info("Dumping idempotency log files")
	for _, d := range a.detectors {
		d.Log.Write(out_dir)
	}
}

func hex(val uint64) string {
	return fmt.Sprintf("0x%x", val)
}
