package clamb

import "fmt"

// Cell is a uniformly sized, tagged reference (§3). The low bits of
// the word itself distinguish the five variants; only Pair needs
// backing storage, and that storage lives in the heap's pair arena
// (heap.go), indexed by the cell's payload rather than addressed by
// a raw pointer — so a copying collection only ever has to rewrite
// the index inside a Cell, never chase a pointer through moved
// memory.
type Cell int64

// Two-bit primary tag, held in the low 2 bits of every Cell.
const (
	tagPair       Cell = 0b00
	tagInteger    Cell = 0b01
	tagCombinator Cell = 0b10
	tagWide       Cell = 0b11 // low 2 bits only; needs the 3rd bit to disambiguate
)

// Three-bit secondary tag for the tagWide family.
const (
	tagCharacter Cell = 0b011
	tagImmediate Cell = 0b111
)

const (
	tag2Mask = 0b011
	tag3Mask = 0b111
)

// Combinator enumerates the fixed SKI-and-extensions basis (§3). The
// order is part of the cell encoding; never reorder or renumber.
type Combinator int

const (
	CombS Combinator = iota
	CombK
	CombI
	CombB
	CombC
	CombSp // S'
	CombBstar
	CombCp // C'
	CombIota
	CombKI
	CombRead
	CombWrite
	CombInc
	CombCons
	CombPutc
	CombReturn
)

var combinatorNames = [...]string{
	CombS: "S", CombK: "K", CombI: "I", CombB: "B", CombC: "C",
	CombSp: "S'", CombBstar: "B*", CombCp: "C'", CombIota: "IOTA",
	CombKI: "KI", CombRead: "READ", CombWrite: "WRITE", CombInc: "INC",
	CombCons: "CONS", CombPutc: "PUTC", CombReturn: "RETURN",
}

func (c Combinator) String() string {
	if int(c) < 0 || int(c) >= len(combinatorNames) {
		return fmt.Sprintf("comb(%d)", int(c))
	}
	return combinatorNames[c]
}

// Immediate enumerates the singleton non-pair, non-numeric values
// (§3). LAMBDA only ever appears in the lambda tree, before bracket
// abstraction; COPIED and UNUSED are internal GC bookkeeping and must
// never be observable between collections.
type Immediate int

const (
	ImmNil Immediate = iota
	ImmCopied
	ImmUnused
	ImmLambda
)

var immediateNames = [...]string{
	ImmNil: "NIL", ImmCopied: "COPIED", ImmUnused: "UNUSED", ImmLambda: "LAMBDA",
}

func (i Immediate) String() string {
	if int(i) < 0 || int(i) >= len(immediateNames) {
		return fmt.Sprintf("imm(%d)", int(i))
	}
	return immediateNames[i]
}

// Well-known immediate singletons, used as sentinel Cell values
// throughout the heap and reducer.
var (
	Nil    = mkImmediate(ImmNil)
	Copied = mkImmediate(ImmCopied)
	Unused = mkImmediate(ImmUnused)
	Lambda = mkImmediate(ImmLambda)
)

func mkPair(index int) Cell {
	return Cell(index)<<2 | tagPair
}

// Integer builds an Integer cell (§3). The spec requires an
// arithmetic range of at least 30 bits; shifting into an int64 gives
// 61, comfortably more.
func Integer(n int64) Cell {
	return Cell(n)<<2 | tagInteger
}

func mkCombinator(c Combinator) Cell {
	return Cell(c)<<2 | tagCombinator
}

// NewCombinator builds the Cell for a given Combinator. Exported for
// cmd/clamb, which needs to seed the top-level READ/WRITE term
// without reaching into package-private constructors.
func NewCombinator(c Combinator) Cell {
	return mkCombinator(c)
}

// Character builds a Character cell holding a byte value 0-255 (the
// sentinel 256 is representable but the reference implementation's
// branch that would produce it is dead code, per §9's open
// question, and clamb omits it the same way).
func Character(c int) Cell {
	return Cell(c)<<3 | tagCharacter
}

func mkImmediate(i Immediate) Cell {
	return Cell(i)<<3 | tagImmediate
}

// IsPair reports whether c is a Pair cell.
func (c Cell) IsPair() bool { return c&tag2Mask == tagPair }

// IsInteger reports whether c is an Integer cell.
func (c Cell) IsInteger() bool { return c&tag2Mask == tagInteger }

// IsCombinator reports whether c is a Combinator cell.
func (c Cell) IsCombinator() bool { return c&tag2Mask == tagCombinator }

func (c Cell) isWide() bool { return c&tag2Mask == tagWide }

// IsCharacter reports whether c is a Character cell.
func (c Cell) IsCharacter() bool { return c.isWide() && c&tag3Mask == tagCharacter }

// IsImmediate reports whether c is one of the Immediate singletons.
func (c Cell) IsImmediate() bool { return c.isWide() && c&tag3Mask == tagImmediate }

// pairIndex returns the index into the heap's pair arena. Only valid
// when IsPair(c).
func (c Cell) pairIndex() int { return int(c >> 2) }

// Int returns the payload of an Integer cell. Only valid when
// IsInteger(c).
func (c Cell) Int() int64 { return int64(c >> 2) }

// Comb returns the Combinator payload. Only valid when
// IsCombinator(c).
func (c Cell) Comb() Combinator { return Combinator(c >> 2) }

// CharCode returns the byte value of a Character cell, 0-255. Only
// valid when IsCharacter(c).
func (c Cell) CharCode() int { return int(c >> 3) }

// AsImmediate returns the Immediate payload. Only valid when
// IsImmediate(c).
func (c Cell) AsImmediate() Immediate { return Immediate(c >> 3) }

// Is reports whether c is the given immediate singleton.
func (c Cell) Is(i Immediate) bool { return c.IsImmediate() && c.AsImmediate() == i }

// IsComb reports whether c is the given combinator.
func (c Cell) IsComb(comb Combinator) bool { return c.IsCombinator() && c.Comb() == comb }
