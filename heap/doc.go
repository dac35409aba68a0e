// Package heap implements a segregated-fit, boundary-tag dynamic storage
// allocator over a fixed arena supplied by a memlib.Provider. It provides
// the classical allocate/free/reallocate trio plus an invariant-checking
// diagnostic, built around two address-segregated doubly-linked free
// lists (a "small" region and a "large" region) separated by a permanent
// sentinel block so the two regions can never coalesce into each other.
package heap

// Word size in bytes. Headers, footers, and in-payload free-list links
// are all one word wide.
const wsize = 4

// Double-word size in bytes; the allocator's alignment unit.
const dsize = 8

// Default extension size, in bytes, when the heap must grow to satisfy
// a request no free list can fit.
const chunkSize = 1 << 14

// Bytes of header+footer overhead present in every block.
const overhead = 8

// Blocks whose total size is at or below this threshold live in, and are
// allocated from, the small list; larger blocks live in the large list.
const smallThreshold = 192

// Fraction of the initial chunk reserved for the small region by New.
const smallRegionNumerator = 1
const smallRegionDenominator = 4

// Minimum total block size: header + next-link + prev-link + footer.
const minBlockSize = 2 * dsize

// reallocInPlaceSlack is the extra room reallocate's in-place-growth case
// (case A) asks reallocSplit to keep beyond the strictly required asize,
// so an immediately following grow-back doesn't force another split of
// the same block. Case B (merge-forward) skips this slack because it
// has just absorbed a whole free neighbor and already has room to spare.
const reallocInPlaceSlack = dsize
