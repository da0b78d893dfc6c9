package clamb

import (
	"time"

	"github.com/golang/glog"
)

// Roots is anything the collector can ask to rewrite its live cell
// references in place. Stack implements it; cmd/clamb also wraps its
// top-level `root` variable in a one-cell Roots so it gets updated by
// every collection while evaluation is in progress (§3 Lifecycle).
type Roots interface {
	ForEachRoot(fn func(*Cell))
}

type rootFunc func(fn func(*Cell))

func (f rootFunc) ForEachRoot(fn func(*Cell)) { f(fn) }

// RootOf returns a Roots that exposes a single external reference.
func RootOf(c *Cell) Roots {
	return rootFunc(func(fn func(*Cell)) { fn(c) })
}

// Heap is the cell arena: two equal-sized semi-spaces of pairs, bump
// allocated and copy-collected Cheney-style (§4.1). Non-pair cells
// need no heap storage at all — only Pair cells index into car/cdr.
type Heap struct {
	heapSize     int
	nextHeapSize int

	fromCar, fromCdr []Cell
	toCar, toCdr     []Cell
	freePtr          int

	roots []Roots

	gcCount int
	gcTime  time.Duration

	verbosity Verbosity
}

// NewHeap allocates the initial from-space at cfg.HeapSize cells and
// primes next_heap_size at 1.5x, per §4.1.
func NewHeap(cfg *RunConfig) *Heap {
	h := &Heap{
		heapSize:     cfg.HeapSize,
		nextHeapSize: cfg.HeapSize * 3 / 2,
		verbosity:    cfg.Verbosity,
	}
	h.fromCar = mustAlloc(h.heapSize, "car")
	h.fromCdr = mustAlloc(h.heapSize, "cdr")
	return h
}

func mustAlloc(n int, which string) []Cell {
	if n <= 0 {
		// A real malloc returning NULL is the failure mode §4.1
		// names; Go's allocator panics/OOM-kills instead of
		// returning nil, so the only failure this guard can
		// actually observe is a nonsensical request size, which
		// would otherwise silently allocate zero cells.
		glog.Fatalf("heap allocation failed: requested %d cells for %s-space", n, which)
	}
	return make([]Cell, n)
}

// AddRoot registers an additional GC root, scanned on every
// collection alongside the spine stack and any save slots passed to
// GCRun. cmd/clamb uses this for the top-level `root` variable held
// while evaluation is in progress (§3 Lifecycle item (c)).
func (h *Heap) AddRoot(r Roots) {
	h.roots = append(h.roots, r)
}

// Pair allocates a fresh pair with the given fields (§4.1). If
// allocation triggers a collection, fst and snd are updated to
// their new locations before being stored, and every other live root
// is rewritten too.
func (h *Heap) Pair(fst, snd Cell, stack *Stack) (Cell, error) {
	if err := h.ensure(1, stack, &fst, &snd); err != nil {
		return 0, err
	}
	idx := h.freePtr
	h.freePtr++
	h.fromCar[idx] = fst
	h.fromCdr[idx] = snd
	return mkPair(idx), nil
}

// Alloc reserves n contiguous pair-sized cells and returns the first
// one as a Cell reference. The fields of every reserved cell are left
// as whatever garbage was there before; the caller must fill them
// before making any further allocation, since a collection triggered
// by a later Alloc/Pair call can only preserve cells reachable from a
// root, and freshly reserved-but-unfilled cells are not safely
// reachable from anywhere (§4.1).
func (h *Heap) Alloc(n int, stack *Stack, save1, save2 *Cell) (Cell, error) {
	if err := h.ensure(n, stack, save1, save2); err != nil {
		return 0, err
	}
	idx := h.freePtr
	h.freePtr += n
	return mkPair(idx), nil
}

func (h *Heap) ensure(n int, stack *Stack, save1, save2 *Cell) error {
	if h.freePtr+n <= h.heapSize {
		return nil
	}
	if err := h.collect(stack, save1, save2); err != nil {
		return err
	}
	// The corner §4.1 calls out: post-GC from-space can legitimately
	// be larger than before, but in the pathological case it still
	// isn't big enough (e.g. n itself exceeds any reasonable heap).
	// Collecting again cannot free more since nothing new died, so
	// this is the only place the module treats an allocation as
	// unsatisfiable.
	if h.freePtr+n > h.heapSize {
		return newError(ErrHeapAlloc, "heap allocation failed: cannot satisfy request for %d cells (heap size %d)", n, h.heapSize)
	}
	return nil
}

// GCRun forces a collection, updating up to two caller-named save
// slots in addition to every registered root (§4.1).
func (h *Heap) GCRun(stack *Stack, save1, save2 *Cell) error {
	return h.collect(stack, save1, save2)
}

func (h *Heap) collect(stack *Stack, save1, save2 *Cell) error {
	start := time.Now()

	toCap := h.nextHeapSize
	grew := toCap != h.heapSize
	if h.toCar == nil || len(h.toCar) != toCap {
		h.toCar = mustAlloc(toCap, "car")
		h.toCdr = mustAlloc(toCap, "cdr")
	}

	freeTo := 0
	copyRoot := func(c *Cell) {
		*c = h.copyCell(*c, &freeTo)
	}

	if stack != nil {
		stack.ForEachRoot(copyRoot)
	}
	if save1 != nil {
		copyRoot(save1)
	}
	if save2 != nil {
		copyRoot(save2)
	}
	for _, r := range h.roots {
		r.ForEachRoot(copyRoot)
	}

	for scan := 0; scan < freeTo; scan++ {
		h.toCar[scan] = h.copyCell(h.toCar[scan], &freeTo)
		h.toCdr[scan] = h.copyCell(h.toCdr[scan], &freeTo)
	}

	numAlive := freeTo

	h.fromCar, h.toCar = h.toCar, h.fromCar
	h.fromCdr, h.toCdr = h.toCdr, h.fromCdr
	h.freePtr = numAlive
	h.heapSize = toCap

	if grew || int64(numAlive)*8 > int64(h.nextHeapSize) {
		if int64(numAlive)*8 > int64(h.nextHeapSize) {
			h.nextHeapSize = numAlive * 8
		}
		h.toCar, h.toCdr = nil, nil
	}

	h.gcCount++
	h.gcTime += time.Since(start)
	if h.verbosity >= VGC {
		glog.V(2).Infof("GC: %d / %d", numAlive, h.heapSize)
	}
	return nil
}

// copyCell is Cheney's copy_cell (§4.1 step 2): non-pair cells pass
// through unchanged, an already-forwarded pair returns its new
// location, and anything else is bump-allocated into to-space with
// its fields copied verbatim (the scan loop will recursively copy
// those fields' targets in turn).
func (h *Heap) copyCell(c Cell, freeTo *int) Cell {
	if !c.IsPair() {
		return c
	}
	idx := c.pairIndex()
	car := h.fromCar[idx]
	if car.Is(ImmCopied) {
		return h.fromCdr[idx]
	}
	cdr := h.fromCdr[idx]

	// I-chain compression: collapse `I (I (I ... x))` to `I x` as we
	// copy, so indirection chains introduced by reduction rules
	// don't grow without bound across collections (§4.1, §9).
	if car.IsComb(CombI) {
		for cdr.IsPair() {
			nidx := cdr.pairIndex()
			ncar := h.fromCar[nidx]
			if !ncar.IsComb(CombI) {
				break
			}
			cdr = h.fromCdr[nidx]
		}
	}

	newIdx := *freeTo
	*freeTo++
	h.toCar[newIdx] = car
	h.toCdr[newIdx] = cdr

	h.fromCar[idx] = Copied
	newCell := mkPair(newIdx)
	h.fromCdr[idx] = newCell
	return newCell
}

// Car returns the car field of a pair cell.
func (h *Heap) Car(c Cell) Cell { return h.fromCar[c.pairIndex()] }

// Cdr returns the cdr field of a pair cell.
func (h *Heap) Cdr(c Cell) Cell { return h.fromCdr[c.pairIndex()] }

// SetCar mutates the car field of a pair cell in place.
func (h *Heap) SetCar(c, v Cell) { h.fromCar[c.pairIndex()] = v }

// SetCdr mutates the cdr field of a pair cell in place.
func (h *Heap) SetCdr(c, v Cell) { h.fromCdr[c.pairIndex()] = v }

// SetPair overwrites both fields of a pair cell in place. The reducer
// uses this to update a redex to its reduct so the graph memoizes the
// result (§4.6 "in-place rewrites").
func (h *Heap) SetPair(c, fst, snd Cell) {
	idx := c.pairIndex()
	h.fromCar[idx] = fst
	h.fromCdr[idx] = snd
}

// Stats returns the figures -v1 reports: number of collections and
// total time spent collecting.
func (h *Heap) Stats() (collections int, gcTime time.Duration) {
	return h.gcCount, h.gcTime
}
