package clamb

import "strings"

// Printer renders a combinator graph in the bracketed prefix notation
// -p emits (§6): a backtick marks application, bare combinator names
// print as themselves, `ki` marks the KI constant, and anything else
// — an Integer or Character slipping through, or a cell whose tag the
// printer doesn't recognize — prints as `?` rather than failing the
// dump.
type Printer struct {
	heap *Heap
}

// NewPrinter builds a Printer reading pairs from heap.
func NewPrinter(heap *Heap) *Printer {
	return &Printer{heap: heap}
}

// Sprint renders t as a single bracketed-prefix string.
func (p *Printer) Sprint(t Cell) string {
	var b strings.Builder
	p.print(&b, t)
	return b.String()
}

func (p *Printer) print(b *strings.Builder, t Cell) {
	if t.IsPair() {
		b.WriteByte('`')
		p.print(b, p.heap.Car(t))
		b.WriteByte(' ')
		p.print(b, p.heap.Cdr(t))
		return
	}
	if t.IsCombinator() {
		b.WriteString(combinatorPrintName(t.Comb()))
		return
	}
	b.WriteByte('?')
}

// combinatorPrintName maps a Combinator to the token -p prints for
// it. KI has no single-letter name in the base SKI-with-extensions
// vocabulary, so it prints as the two-character `ki` token the
// format reserves for it (§6); everything without a dedicated token
// (IOTA, and the I/O combinators, which the printer never expects to
// see in a translated program) falls back to `?`.
func combinatorPrintName(c Combinator) string {
	switch c {
	case CombS:
		return "S"
	case CombK:
		return "K"
	case CombI:
		return "I"
	case CombB:
		return "B"
	case CombC:
		return "C"
	case CombSp:
		return "S'"
	case CombBstar:
		return "B*"
	case CombCp:
		return "C'"
	case CombKI:
		return "ki"
	default:
		return "?"
	}
}
