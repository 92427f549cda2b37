package idempotency

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

// WarLogLine is one region-boundary record. All fields are owned
// values; in particular the function name is a copy, not a handle into
// a live symbol container.
type WarLogLine struct {
	ReadCount       uint64
	WriteCount      uint64
	ReadPC          uint64
	WritePC         uint64
	MemoryAddress   uint64
	FunctionAddress uint64
	FunctionName    string
	AccessType      MemAccessType
	RegionEnd       RegionEndType
}

// EscapeName makes a function name safe for the comma-separated log
// format. The format keeps strings unquoted, so commas in names are
// replaced.
func EscapeName(name string) string {
	return strings.ReplaceAll(name, ",", "_")
}

// format: read_icount, write_icount, read_pc, write_pc, memory_address,
// function_address, function_name, access_class_int, access_class_name,
// end_cause_int, end_cause_name
func (l *WarLogLine) format() string {
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d,%s,%d,%s,%d,%s",
		l.ReadCount,
		l.WriteCount,
		l.ReadPC,
		l.WritePC,
		l.MemoryAddress,
		l.FunctionAddress,
		EscapeName(l.FunctionName),
		uint32(l.AccessType),
		l.AccessType.String(),
		uint32(l.RegionEnd),
		l.RegionEnd.String())
}

// ParseLogLine is the inverse of the line format, used to read dumps
// back for analysis.
func ParseLogLine(line string) (WarLogLine, *errors.Error) {
	fields := strings.Split(line, ",")
	if len(fields) != 11 {
		return WarLogLine{}, errors.Errorf("expected 11 fields, got %d", len(fields))
	}

	var nums [6]uint64
	for i := 0; i < 6; i++ {
		v, err := strconv.ParseUint(fields[i], 10, 64)
		if err != nil {
			return WarLogLine{}, errors.Wrap(err, 0)
		}
		nums[i] = v
	}

	access_int, err := strconv.ParseUint(fields[7], 10, 32)
	if err != nil {
		return WarLogLine{}, errors.Wrap(err, 0)
	}
	end_int, err := strconv.ParseUint(fields[9], 10, 32)
	if err != nil {
		return WarLogLine{}, errors.Wrap(err, 0)
	}

	l := WarLogLine{
		ReadCount:       nums[0],
		WriteCount:      nums[1],
		ReadPC:          nums[2],
		WritePC:         nums[3],
		MemoryAddress:   nums[4],
		FunctionAddress: nums[5],
		FunctionName:    fields[6],
		AccessType:      MemAccessType(access_int),
		RegionEnd:       RegionEndType(end_int),
	}

	if l.AccessType.String() != fields[8] {
		return WarLogLine{}, errors.Errorf("access class mismatch: %d vs %s", access_int, fields[8])
	}
	if l.RegionEnd.String() != fields[10] {
		return WarLogLine{}, errors.Errorf("end cause mismatch: %d vs %s", end_int, fields[10])
	}
	return l, nil
}

// WarLog collects region-boundary records in memory and writes them
// out once at teardown.
type WarLog struct {
	filename string
	lines    []WarLogLine
}

func NewWarLog(filename string) *WarLog {
	return &WarLog{filename: filename}
}

func (w *WarLog) Filename() string {
	return w.filename
}

func (w *WarLog) Add(line WarLogLine) {
	line.FunctionName = EscapeName(line.FunctionName)
	w.lines = append(w.lines, line)
}

func (w *WarLog) Lines() []WarLogLine {
	return w.lines
}

// Write flushes all records to prefix/filename. The separator is
// always "/"; an empty prefix means the current directory. A sink that
// cannot be opened is reported and dropped, it never aborts teardown.
func (w *WarLog) Write(prefix string) *errors.Error {
	filename := w.filename
	if prefix != "" {
		filename = prefix + "/" + w.filename
	}

	f, err := os.Create(filename)
	if err != nil {
		log.WithFields(log.Fields{"error": err, "file": filename}).Error("Error opening log file")
		return errors.Wrap(err, 0)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	for i := range w.lines {
		fmt.Fprintln(buf, w.lines[i].format())
	}
	if err := buf.Flush(); err != nil {
		log.WithFields(log.Fields{"error": err, "file": filename}).Error("Error writing log file")
		return errors.Wrap(err, 0)
	}

	log.WithFields(log.Fields{"file": filename, "records": len(w.lines)}).Info("Wrote idempotency log")
	return nil
}
