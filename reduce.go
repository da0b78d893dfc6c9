package clamb

import "io"

// ByteWriter is the output sink PUTC drains decoded bytes into.
// *bufio.Writer and any plain io.Writer wrapped with WriteByte satisfy
// it; cmd/clamb picks buffered or unbuffered per -u (§6).
type ByteWriter interface {
	WriteByte(c byte) error
}

// Reducer is the graph reducer (§4.6): a lazy, normal-order,
// memoizing evaluator over the combinator graph Translate produces.
// Each redex is rewritten in place — SetPair overwrites the
// outermost pair of the n cells it consumes with the reduct — so any
// other reference sharing that node observes the result without
// re-deriving it.
type Reducer struct {
	heap   *Heap
	stack  *Stack
	input  *BitReader
	output ByteWriter

	reductions int64
}

// NewReducer builds a Reducer driving heap/stack, reading further
// input bytes from input (READ) and writing decoded output bytes to
// output (PUTC).
func NewReducer(heap *Heap, stack *Stack, input *BitReader, output ByteWriter) *Reducer {
	return &Reducer{heap: heap, stack: stack, input: input, output: output}
}

// Reductions returns the number of rewrite steps performed so far,
// the count -v1 reports (§6).
func (r *Reducer) Reductions() int64 { return r.reductions }

// Run drives root to normal form as the top-level program: root is
// `WRITE (p (READ NIL))` where p is the translated program (§4.6
// "Top-level evaluation"). PUTC's forced numeral evaluations and
// INC's argument evaluations recurse into Eval independently; Run
// itself simply keeps unwinding and rewriting until RETURN is
// produced or the term is otherwise irreducible.
func (r *Reducer) Run(root Cell) error {
	_, err := r.Eval(root)
	return err
}

// Eval reduces root to weak head normal form and returns it. It is
// re-entrant: PUTC and INC both call it on subterms of the term
// currently being reduced, each such call getting its own "bottom"
// marker (§4.6, §9) so a nested evaluation can never read or drop
// cells belonging to the activation that invoked it.
func (r *Reducer) Eval(root Cell) (Cell, error) {
	if err := r.stack.Push(root); err != nil {
		return 0, err
	}
	bottom := r.stack.Mark()
	if err := r.run(bottom); err != nil {
		return 0, err
	}
	// Whatever is now at bottom is root's current value, whether or
	// not any rule happened to fire with its reduct landing exactly
	// there; anything unwound past it was scratch used to find the
	// head and is no longer needed once reduction stops.
	r.stack.Drop(bottom - r.stack.Mark())
	return r.stack.Pop(), nil
}

// run unwinds and rewrites the spine rooted at the cell bottom marks
// until the head is RETURN or is otherwise irreducible.
func (r *Reducer) run(bottom int) error {
	for {
		for r.stack.Top().IsPair() {
			if err := r.stack.Push(r.heap.Car(r.stack.Top())); err != nil {
				return err
			}
		}
		head := r.stack.Top()

		switch {
		case head.IsComb(CombReturn):
			return nil

		case head.IsComb(CombI):
			if !r.applicable(bottom, 1) {
				return nil
			}
			r.ruleI()

		case head.IsComb(CombK):
			if !r.applicable(bottom, 2) {
				return nil
			}
			r.ruleK()

		case head.IsComb(CombKI):
			if !r.applicable(bottom, 2) {
				return nil
			}
			r.ruleKI()

		case head.IsComb(CombS):
			if !r.applicable(bottom, 3) {
				return nil
			}
			if err := r.ruleS(); err != nil {
				return err
			}

		case head.IsComb(CombB):
			if !r.applicable(bottom, 3) {
				return nil
			}
			if err := r.ruleB(); err != nil {
				return err
			}

		case head.IsComb(CombC):
			if !r.applicable(bottom, 3) {
				return nil
			}
			if err := r.ruleC(); err != nil {
				return err
			}

		case head.IsComb(CombSp):
			if !r.applicable(bottom, 4) {
				return nil
			}
			if err := r.ruleSp(); err != nil {
				return err
			}

		case head.IsComb(CombBstar):
			if !r.applicable(bottom, 4) {
				return nil
			}
			if err := r.ruleBstar(); err != nil {
				return err
			}

		case head.IsComb(CombCp):
			if !r.applicable(bottom, 4) {
				return nil
			}
			if err := r.ruleCp(); err != nil {
				return err
			}

		case head.IsComb(CombIota):
			if !r.applicable(bottom, 1) {
				return nil
			}
			if err := r.ruleIota(); err != nil {
				return err
			}

		case head.IsComb(CombRead):
			if !r.applicable(bottom, 2) {
				return nil
			}
			if err := r.ruleRead(); err != nil {
				return err
			}

		case head.IsComb(CombWrite):
			if !r.applicable(bottom, 1) {
				return nil
			}
			if err := r.ruleWrite(); err != nil {
				return err
			}

		case head.IsComb(CombCons):
			if !r.applicable(bottom, 3) {
				return nil
			}
			if err := r.ruleCons(); err != nil {
				return err
			}

		case head.IsComb(CombPutc):
			if !r.applicable(bottom, 3) {
				return nil
			}
			if err := r.rulePutc(); err != nil {
				return err
			}

		case head.IsComb(CombInc):
			if !r.applicable(bottom, 1) {
				return nil
			}
			if err := r.ruleInc(); err != nil {
				return err
			}

		case head.IsCharacter():
			if !r.applicable(bottom, 2) {
				return nil
			}
			if err := r.ruleChar(head.CharCode()); err != nil {
				return err
			}

		case head.IsInteger():
			if r.applicable(bottom, 1) {
				return newError(ErrApplyNumber, "invalid output format: attempted to apply a number")
			}
			return nil

		default:
			return nil
		}

		r.reductions++
	}
}

// applicable reports whether n arguments are available to the head of
// the current activation, i.e. whether at least n pairs have been
// unwound since bottom (§4.6 "bottom" marker, §9).
func (r *Reducer) applicable(bottom, n int) bool {
	return r.stack.Depth(bottom) >= n
}

// arg returns the k-th argument (0-indexed) of the redex currently at
// the top of the stack: the cdr of the pair k+1 slots below the head.
// Every rule reads all of its ARG(k) before mutating anything, since
// SET on a pair below the head would otherwise corrupt a later ARG
// read (§4.6, §9).
func (r *Reducer) arg(k int) Cell {
	return r.heap.Cdr(r.stack.Peek(k + 1))
}

// indirect rewrites the redex of arity n to an indirection to val,
// then immediately follows it: whenever a rewrite introduces `I x` at
// the head, the reducer dereferences it on the spot so indirection
// chains are never re-walked (§4.6 tie-breaks, §9).
func (r *Reducer) indirect(n int, val Cell) {
	pn := r.stack.Peek(n)
	r.heap.SetPair(pn, mkCombinator(CombI), val)
	r.stack.Drop(n)
	r.stack.SetTop(val)
}

// ruleI implements I x -> x.
func (r *Reducer) ruleI() {
	r.indirect(1, r.arg(0))
}

// ruleK implements K x y -> x.
func (r *Reducer) ruleK() {
	r.indirect(2, r.arg(0))
}

// ruleKI implements KI x y -> y.
func (r *Reducer) ruleKI() {
	r.indirect(2, r.arg(1))
}

// ruleS implements S f g x -> (f x) (g x). x is needed by both
// application cells being built, and g is needed only for the second,
// so both are rooted on the stack across the allocation that doesn't
// yet need them (§4.6, §9).
func (r *Reducer) ruleS() error {
	f, g, x := r.arg(0), r.arg(1), r.arg(2)

	if err := r.stack.Push(g); err != nil {
		return err
	}
	if err := r.stack.Push(x); err != nil {
		r.stack.Pop()
		return err
	}
	fx, err := r.heap.Pair(f, r.stack.Top(), r.stack)
	if err != nil {
		r.stack.Drop(2)
		return err
	}
	x = r.stack.Pop()
	g = r.stack.Pop()

	if err := r.stack.Push(fx); err != nil {
		return err
	}
	gx, err := r.heap.Pair(g, x, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	fx = r.stack.Pop()

	pn := r.stack.Peek(3)
	r.heap.SetPair(pn, fx, gx)
	r.stack.Drop(3)
	return nil
}

// ruleB implements B f g x -> f (g x). f is a bystander to the one
// allocation the rule needs, so it is rooted across it.
func (r *Reducer) ruleB() error {
	f, g, x := r.arg(0), r.arg(1), r.arg(2)

	if err := r.stack.Push(f); err != nil {
		return err
	}
	gx, err := r.heap.Pair(g, x, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	f = r.stack.Pop()

	pn := r.stack.Peek(3)
	r.heap.SetPair(pn, f, gx)
	r.stack.Drop(3)
	return nil
}

// ruleC implements C f g x -> f x g. g is the bystander this time.
func (r *Reducer) ruleC() error {
	f, g, x := r.arg(0), r.arg(1), r.arg(2)

	if err := r.stack.Push(g); err != nil {
		return err
	}
	fx, err := r.heap.Pair(f, x, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	g = r.stack.Pop()

	pn := r.stack.Peek(3)
	r.heap.SetPair(pn, fx, g)
	r.stack.Drop(3)
	return nil
}

// ruleSp implements S' c f g x -> c (f x) (g x).
func (r *Reducer) ruleSp() error {
	c, f, g, x := r.arg(0), r.arg(1), r.arg(2), r.arg(3)

	if err := r.stack.Push(c); err != nil {
		return err
	}
	if err := r.stack.Push(g); err != nil {
		r.stack.Pop()
		return err
	}
	if err := r.stack.Push(x); err != nil {
		r.stack.Drop(2)
		return err
	}
	fx, err := r.heap.Pair(f, r.stack.Top(), r.stack)
	if err != nil {
		r.stack.Drop(3)
		return err
	}
	x = r.stack.Pop()
	g = r.stack.Pop()

	if err := r.stack.Push(fx); err != nil {
		return err
	}
	gx, err := r.heap.Pair(g, x, r.stack)
	if err != nil {
		r.stack.Drop(2)
		return err
	}

	if err := r.stack.Push(gx); err != nil {
		return err
	}
	outer, err := r.heap.Pair(r.stack.Peek(2), r.stack.Peek(1), r.stack)
	if err != nil {
		r.stack.Drop(3)
		return err
	}
	gx = r.stack.Pop()
	r.stack.Drop(2) // fx, c consumed

	pn := r.stack.Peek(4)
	r.heap.SetPair(pn, outer, gx)
	r.stack.Drop(4)
	return nil
}

// ruleBstar implements B* c f g x -> c (f (g x)).
func (r *Reducer) ruleBstar() error {
	c, f, g, x := r.arg(0), r.arg(1), r.arg(2), r.arg(3)

	if err := r.stack.Push(c); err != nil {
		return err
	}
	if err := r.stack.Push(f); err != nil {
		r.stack.Pop()
		return err
	}
	gx, err := r.heap.Pair(g, x, r.stack)
	if err != nil {
		r.stack.Drop(2)
		return err
	}
	f = r.stack.Pop()

	fgx, err := r.heap.Pair(f, gx, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	c = r.stack.Pop()

	pn := r.stack.Peek(4)
	r.heap.SetPair(pn, c, fgx)
	r.stack.Drop(4)
	return nil
}

// ruleCp implements C' c f g x -> c (f x) g.
func (r *Reducer) ruleCp() error {
	c, f, g, x := r.arg(0), r.arg(1), r.arg(2), r.arg(3)

	if err := r.stack.Push(g); err != nil {
		return err
	}
	if err := r.stack.Push(c); err != nil {
		r.stack.Pop()
		return err
	}
	fx, err := r.heap.Pair(f, x, r.stack)
	if err != nil {
		r.stack.Drop(2)
		return err
	}

	if err := r.stack.Push(fx); err != nil {
		return err
	}
	outer, err := r.heap.Pair(r.stack.Peek(1), r.stack.Peek(0), r.stack)
	if err != nil {
		r.stack.Drop(3)
		return err
	}
	r.stack.Drop(2) // fx, c consumed
	g = r.stack.Pop()

	pn := r.stack.Peek(4)
	r.heap.SetPair(pn, outer, g)
	r.stack.Drop(4)
	return nil
}

// ruleIota implements ι x -> x S K.
func (r *Reducer) ruleIota() error {
	x := r.arg(0)
	xs, err := r.heap.Pair(x, mkCombinator(CombS), r.stack)
	if err != nil {
		return err
	}
	pn := r.stack.Peek(1)
	r.heap.SetPair(pn, xs, mkCombinator(CombK))
	r.stack.Drop(1)
	return nil
}

// ruleChar implements the church-numeral application of a Character
// cell used as a combinator (§4.6 Char(c)): Char(0) f z -> z, and
// Char(n+1) f z -> f (Char(n) f z).
func (r *Reducer) ruleChar(c int) error {
	if c == 0 {
		r.indirect(2, r.arg(1))
		return nil
	}

	f, z := r.arg(0), r.arg(1)
	if err := r.stack.Push(z); err != nil {
		return err
	}
	if err := r.stack.Push(f); err != nil {
		r.stack.Pop()
		return err
	}
	inner, err := r.heap.Pair(Character(c-1), r.stack.Top(), r.stack)
	if err != nil {
		r.stack.Drop(2)
		return err
	}
	f = r.stack.Pop()
	z = r.stack.Pop()

	if err := r.stack.Push(f); err != nil {
		return err
	}
	tail, err := r.heap.Pair(inner, z, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	f = r.stack.Pop()

	pn := r.stack.Peek(2)
	r.heap.SetPair(pn, f, tail)
	r.stack.Drop(2)
	return nil
}

// ruleCons implements CONS x y f -> f x y.
func (r *Reducer) ruleCons() error {
	x, y, f := r.arg(0), r.arg(1), r.arg(2)

	if err := r.stack.Push(y); err != nil {
		return err
	}
	fx, err := r.heap.Pair(f, x, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	y = r.stack.Pop()

	pn := r.stack.Peek(3)
	r.heap.SetPair(pn, fx, y)
	r.stack.Drop(3)
	return nil
}

// ruleRead implements READ's two outcomes (§4.6, §4.3): a byte read
// from input becomes a Character cons'd onto a fresh `READ NIL`
// thunk for the tail; EOF becomes `KI f`, the constant-tail marker a
// church-list consumer recognizes as nil.
func (r *Reducer) ruleRead() error {
	f := r.arg(1)

	b, err := r.input.ReadByte()
	if err == io.EOF {
		pn := r.stack.Peek(2)
		r.heap.SetPair(pn, mkCombinator(CombKI), f)
		r.stack.Drop(2)
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.stack.Push(f); err != nil {
		return err
	}
	cellCons, err := r.heap.Pair(mkCombinator(CombCons), Character(int(b)), r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}

	if err := r.stack.Push(cellCons); err != nil {
		return err
	}
	readNil, err := r.heap.Pair(mkCombinator(CombRead), Nil, r.stack)
	if err != nil {
		r.stack.Drop(2)
		return err
	}
	cellCons = r.stack.Pop()

	rest, err := r.heap.Pair(cellCons, readNil, r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	f = r.stack.Pop()

	pn := r.stack.Peek(2)
	r.heap.SetPair(pn, rest, f)
	r.stack.Drop(2)
	return nil
}

// ruleWrite implements WRITE x -> x PUTC RETURN, handing the
// church-list x its output-driving continuation pair.
func (r *Reducer) ruleWrite() error {
	x := r.arg(0)
	xPutc, err := r.heap.Pair(x, mkCombinator(CombPutc), r.stack)
	if err != nil {
		return err
	}
	pn := r.stack.Peek(1)
	r.heap.SetPair(pn, xPutc, mkCombinator(CombReturn))
	r.stack.Drop(1)
	return nil
}

// rulePutc implements PUTC x y z (§4.6): x is forced, by way of
// recursively evaluating `(x INC) 0`, to an output integer in [0,256);
// that byte is emitted and reduction continues as WRITE y. z (the
// RETURN handed down by the enclosing WRITE) is never consulted — the
// next WRITE supplies a fresh one. y is rooted on the stack across both
// allocations and the recursive evaluation.
func (r *Reducer) rulePutc() error {
	x, y, _ := r.arg(0), r.arg(1), r.arg(2)

	if err := r.stack.Push(y); err != nil {
		return err
	}
	xInc, err := r.heap.Pair(x, mkCombinator(CombInc), r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}
	forced, err := r.heap.Pair(xInc, Integer(0), r.stack)
	if err != nil {
		r.stack.Pop()
		return err
	}

	whnf, err := r.Eval(forced)
	if err != nil {
		r.stack.Pop()
		return err
	}
	y = r.stack.Pop()

	if !whnf.IsInteger() {
		return newError(ErrNotANumber, "invalid output format: result was not a number")
	}
	n := whnf.Int()
	if n < 0 || n > 255 {
		return newError(ErrBadChar, "invalid character %d", n)
	}
	if err := r.output.WriteByte(byte(n)); err != nil {
		return err
	}

	pn := r.stack.Peek(3)
	r.heap.SetPair(pn, mkCombinator(CombWrite), y)
	r.stack.Drop(3)
	return nil
}

// ruleInc implements INC x -> I (n+1), where n is x forced to an
// integer by recursive evaluation (§4.6, §9 "INC recursion").
func (r *Reducer) ruleInc() error {
	x := r.arg(0)
	whnf, err := r.Eval(x)
	if err != nil {
		return err
	}
	if !whnf.IsInteger() {
		return newError(ErrIncNotANumber, "invalid output format: attempted to apply inc to a non-number")
	}
	r.indirect(1, Integer(whnf.Int()+1))
	return nil
}
