package heap

import "fmt"

// Violation describes one consistency problem found by Check. Check never
// panics; it is a diagnostic, not an invariant enforcer, so callers that
// want a hard failure (such as a CLI driver) decide that for themselves.
type Violation struct {
	Pass     string
	BlockPtr int
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] bp=%d: %s", v.Pass, v.BlockPtr, v.Message)
}

// Check walks the whole heap three times: sentinels, address order, and
// each free list, and reports every inconsistency it finds rather than
// stopping at the first. When verbose is false, only the first violation
// of each kind survives in the result, matching a quiet "still healthy"
// run; verbose asks for everything, useful when a structure is already
// known to be broken and the caller wants the full picture.
func (h *Heap) Check(verbose bool) []Violation {
	var v []Violation

	v = append(v, h.checkSentinels()...)
	freeByAddress := h.checkSequential(&v)
	freeByList := h.checkLists(&v)

	if freeByAddress != freeByList {
		v = append(v, Violation{
			Pass:    "cross-check",
			Message: fmt.Sprintf("sequential pass found %d free blocks, list pass found %d", freeByAddress, freeByList),
		})
	}

	if !verbose {
		v = firstOfEachKind(v)
	}

	return v
}

func (h *Heap) checkSentinels() []Violation {
	var v []Violation

	check := func(name string, bp, wantSize int) {
		hdr := h.header(bp)
		ftr := h.footer(bp)

		if hdr != ftr {
			v = append(v, Violation{Pass: "sentinels", BlockPtr: bp, Message: name + ": header does not match footer"})
		}

		if sizeOf(hdr) != wantSize {
			v = append(v, Violation{Pass: "sentinels", BlockPtr: bp, Message: fmt.Sprintf("%s: size is %d, want %d", name, sizeOf(hdr), wantSize)})
		}

		if allocOf(hdr) != 1 {
			v = append(v, Violation{Pass: "sentinels", BlockPtr: bp, Message: name + ": not marked allocated"})
		}
	}

	check("prologue", h.heapLo, dsize)
	check("interlude", h.interludeOff, dsize)

	epilogueBp := h.provider.Hi()
	if sizeOf(h.header(epilogueBp)) != 0 || allocOf(h.header(epilogueBp)) != 1 {
		v = append(v, Violation{Pass: "sentinels", BlockPtr: epilogueBp, Message: "epilogue is not a zero-size allocated marker"})
	}

	return v
}

// checkSequential walks every block in address order from the first real
// block up to (not including) the epilogue, checking header/footer agreement, dsize
// alignment, and that no two free blocks sit next to each other
// uncoalesced. It returns the count of free blocks seen.
func (h *Heap) checkSequential(v *[]Violation) int {
	freeCount := 0
	prevFree := false

	bp := h.nextBlock(h.heapLo)
	epilogueBp := h.provider.Hi()

	for bp < epilogueBp {
		hdr := h.header(bp)
		ftr := h.footer(bp)
		size := sizeOf(hdr)

		if hdr != ftr {
			*v = append(*v, Violation{Pass: "sequential", BlockPtr: bp, Message: "header does not match footer"})
		}

		if size%dsize != 0 {
			*v = append(*v, Violation{Pass: "sequential", BlockPtr: bp, Message: fmt.Sprintf("size %d is not a multiple of %d", size, dsize)})
		}

		if size < minBlockSize && bp != h.interludeOff {
			*v = append(*v, Violation{Pass: "sequential", BlockPtr: bp, Message: fmt.Sprintf("size %d is below the minimum block size", size)})
		}

		free := allocOf(hdr) == 0

		if free {
			freeCount++

			if prevFree {
				*v = append(*v, Violation{Pass: "sequential", BlockPtr: bp, Message: "adjacent free blocks were not coalesced"})
			}
		}

		prevFree = free

		if size == 0 {
			*v = append(*v, Violation{Pass: "sequential", BlockPtr: bp, Message: "zero-size block before epilogue, walk cannot continue"})

			break
		}

		bp = h.nextBlock(bp)
	}

	return freeCount
}

// checkLists walks both free lists, checking list membership matches
// region, link symmetry, and that each node really is marked free. It
// returns the total number of nodes visited across both lists.
func (h *Heap) checkLists(v *[]Violation) int {
	total := 0

	walk := func(name string, root int, wantSmall bool) {
		seen := make(map[int]bool)
		prev := 0

		for bp := root; bp != 0; {
			if seen[bp] {
				*v = append(*v, Violation{Pass: "lists", BlockPtr: bp, Message: name + " list cycles back on itself"})

				break
			}

			seen[bp] = true
			total++

			if allocOf(h.header(bp)) != 0 {
				*v = append(*v, Violation{Pass: "lists", BlockPtr: bp, Message: name + " list holds an allocated block"})
			}

			if h.isSmallRegion(bp) != wantSmall {
				*v = append(*v, Violation{Pass: "lists", BlockPtr: bp, Message: name + " list holds a block from the other region"})
			}

			if h.getPrev(bp) != prev {
				*v = append(*v, Violation{Pass: "lists", BlockPtr: bp, Message: name + " list: prev link does not point back at predecessor"})
			}

			prev = bp
			bp = h.getNext(bp)
		}
	}

	walk("small", h.smallRoot, true)
	walk("large", h.largeRoot, false)

	return total
}

func firstOfEachKind(v []Violation) []Violation {
	seen := make(map[string]bool)
	out := make([]Violation, 0, len(v))

	for _, item := range v {
		if seen[item.Pass] {
			continue
		}

		seen[item.Pass] = true
		out = append(out, item)
	}

	return out
}
