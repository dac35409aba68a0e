// Package trace parses and replays segheap-trace script files against a
// heap.Heap: a line-oriented, CS:APP mdriver-style format describing a
// sequence of allocate/free/reallocate/write/check operations, addressed
// by caller-chosen slot identifiers rather than raw pointers so a trace
// file can be written and read independently of any one run's addresses.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	semver "github.com/Masterminds/semver/v3"

	"github.com/segheap/segheap/heap"
)

// FormatConstraint is the range of trace file versions this package can
// replay. Raising it is a breaking change to the opcode set; traces
// declaring a version outside it are rejected before any op runs.
const FormatConstraint = "^1.0.0"

// Kind identifies a trace op.
type Kind byte

const (
	KindAllocate Kind = 'a'
	KindFree     Kind = 'f'
	KindReallocate Kind = 'r'
	KindWrite    Kind = 'w'
	KindCheck    Kind = 'c'
)

// Op is a single parsed line of a trace file.
type Op struct {
	Kind    Kind
	Line    int
	Slot    string
	Size    int
	Fill    byte
	Verbose bool
}

// File is a fully parsed trace: a declared format version and the
// ordered operations to replay against a fresh heap.
type File struct {
	Version *semver.Version
	Ops     []Op
}

// Parse reads a trace file. The first non-blank, non-comment line must
// be "version <semver>"; every following line is one operation.
func Parse(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)

	f := &File{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)

		if f.Version == nil {
			if fields[0] != "version" || len(fields) != 2 {
				return nil, fmt.Errorf("trace:%d: expected \"version <semver>\" as the first directive", lineNo)
			}

			v, err := semver.NewVersion(fields[1])
			if err != nil {
				return nil, fmt.Errorf("trace:%d: invalid version %q: %w", lineNo, fields[1], err)
			}

			f.Version = v

			continue
		}

		op, err := parseOp(lineNo, fields)
		if err != nil {
			return nil, err
		}

		f.Ops = append(f.Ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if f.Version == nil {
		return nil, fmt.Errorf("trace: empty file, missing \"version\" directive")
	}

	return f, nil
}

func parseOp(lineNo int, fields []string) (Op, error) {
	if len(fields) == 0 {
		return Op{}, fmt.Errorf("trace:%d: empty operation", lineNo)
	}

	op := Op{Line: lineNo}

	switch fields[0] {
	case "a":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("trace:%d: \"a\" wants <id> <size>", lineNo)
		}

		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return Op{}, fmt.Errorf("trace:%d: invalid size %q: %w", lineNo, fields[2], err)
		}

		op.Kind, op.Slot, op.Size = KindAllocate, fields[1], size

	case "f":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("trace:%d: \"f\" wants <id>", lineNo)
		}

		op.Kind, op.Slot = KindFree, fields[1]

	case "r":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("trace:%d: \"r\" wants <id> <size>", lineNo)
		}

		size, err := strconv.Atoi(fields[2])
		if err != nil {
			return Op{}, fmt.Errorf("trace:%d: invalid size %q: %w", lineNo, fields[2], err)
		}

		op.Kind, op.Slot, op.Size = KindReallocate, fields[1], size

	case "w":
		if len(fields) != 3 {
			return Op{}, fmt.Errorf("trace:%d: \"w\" wants <id> <byte>", lineNo)
		}

		b, err := strconv.ParseUint(fields[2], 10, 8)
		if err != nil {
			return Op{}, fmt.Errorf("trace:%d: invalid fill byte %q: %w", lineNo, fields[2], err)
		}

		op.Kind, op.Slot, op.Fill = KindWrite, fields[1], byte(b)

	case "c":
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("trace:%d: \"c\" wants <verbose>", lineNo)
		}

		verbose, err := strconv.ParseBool(fields[1])
		if err != nil {
			return Op{}, fmt.Errorf("trace:%d: invalid verbose flag %q: %w", lineNo, fields[1], err)
		}

		op.Kind, op.Verbose = KindCheck, verbose

	default:
		return Op{}, fmt.Errorf("trace:%d: unknown opcode %q", lineNo, fields[0])
	}

	return op, nil
}

// CheckVersion reports whether f declares a format version this package
// knows how to replay.
func (f *File) CheckVersion() error {
	c, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return err
	}

	if !c.Check(f.Version) {
		return fmt.Errorf("trace: format version %s does not satisfy %s", f.Version, FormatConstraint)
	}

	return nil
}

// Stats summarizes one replay.
type Stats struct {
	Allocations int
	Frees       int
	Reallocates int
	Writes      int
	Checks      int
	Violations  []heap.Violation
}

// Run replays every op in f against h in order, maintaining its own
// slot-to-pointer table so the trace file never needs to know a real
// block pointer.
func Run(h *heap.Heap, f *File) (Stats, error) {
	if err := f.CheckVersion(); err != nil {
		return Stats{}, err
	}

	var stats Stats

	slots := make(map[string]int)

	for _, op := range f.Ops {
		switch op.Kind {
		case KindAllocate:
			bp, err := h.Allocate(op.Size)
			if err != nil {
				return stats, fmt.Errorf("trace:%d: allocate %s: %w", op.Line, op.Slot, err)
			}

			slots[op.Slot] = bp
			stats.Allocations++

		case KindFree:
			bp, ok := slots[op.Slot]
			if !ok {
				return stats, fmt.Errorf("trace:%d: free of unknown slot %s", op.Line, op.Slot)
			}

			if err := h.Free(bp); err != nil {
				return stats, fmt.Errorf("trace:%d: free %s: %w", op.Line, op.Slot, err)
			}

			delete(slots, op.Slot)
			stats.Frees++

		case KindReallocate:
			bp, ok := slots[op.Slot]
			if !ok {
				return stats, fmt.Errorf("trace:%d: reallocate of unknown slot %s", op.Line, op.Slot)
			}

			newbp, err := h.Reallocate(bp, op.Size)
			if err != nil {
				return stats, fmt.Errorf("trace:%d: reallocate %s: %w", op.Line, op.Slot, err)
			}

			if op.Size <= 0 {
				delete(slots, op.Slot)
			} else {
				slots[op.Slot] = newbp
			}

			stats.Reallocates++

		case KindWrite:
			bp, ok := slots[op.Slot]
			if !ok {
				return stats, fmt.Errorf("trace:%d: write to unknown slot %s", op.Line, op.Slot)
			}

			if err := h.Fill(bp, op.Fill); err != nil {
				return stats, fmt.Errorf("trace:%d: write %s: %w", op.Line, op.Slot, err)
			}

			stats.Writes++

		case KindCheck:
			stats.Violations = append(stats.Violations, h.Check(op.Verbose)...)
			stats.Checks++
		}
	}

	return stats, nil
}
