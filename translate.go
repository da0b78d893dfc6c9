package clamb

// Translator performs bracket abstraction (§4.5): it walks a lambda
// tree (de Bruijn indices, LAMBDA-tagged abstraction pairs) and
// produces a combinator graph with no free variables, applying the
// five peephole rewrites (B, C, S', B*, C') at construction time
// instead of emitting the naive S/K/I expansion.
//
// Every constructor call below allocates a fresh pair rather than
// mutating one of its inputs in place; §4.5 permits either strategy
// since translate builds a DAG with no other owners yet, and fresh
// allocation means every Translate/unabstract result can be handed
// straight to Heap.Pair without first proving nothing else aliases
// it.
type Translator struct {
	heap  *Heap
	stack *Stack
}

// NewTranslator builds a Translator allocating onto heap and rooting
// in-flight subterms on stack.
func NewTranslator(heap *Heap, stack *Stack) *Translator {
	return &Translator{heap: heap, stack: stack}
}

// Translate walks t, recursing into applications and deferring to
// unabstract for each LAMBDA node it finds.
func (tr *Translator) Translate(t Cell) (Cell, error) {
	if !t.IsPair() {
		return t, nil
	}
	car := tr.heap.Car(t)
	if car.Is(ImmLambda) {
		body, err := tr.Translate(tr.heap.Cdr(t))
		if err != nil {
			return 0, err
		}
		return tr.unabstract(body)
	}

	// The untranslated argument subterm must survive the translation
	// of the function, which may allocate and trigger a collection.
	if err := tr.stack.Push(tr.heap.Cdr(t)); err != nil {
		return 0, err
	}
	fn, err := tr.Translate(car)
	if err != nil {
		tr.stack.Pop()
		return 0, err
	}
	argTerm := tr.stack.Pop()
	// fn must survive the recursive translation of the argument,
	// which may allocate and trigger a collection (§4.5, §9).
	if err := tr.stack.Push(fn); err != nil {
		return 0, err
	}
	arg, err := tr.Translate(argTerm)
	if err != nil {
		tr.stack.Pop()
		return 0, err
	}
	fn = tr.stack.Pop()
	return tr.heap.Pair(fn, arg, tr.stack)
}

// unabstract removes the innermost binder from t, producing a term
// equivalent to `λv. t` in the SKI-with-extensions basis (§4.5).
func (tr *Translator) unabstract(t Cell) (Cell, error) {
	if t.IsInteger() {
		n := t.Int()
		if n == 0 {
			return mkCombinator(CombI), nil
		}
		return tr.heap.Pair(mkCombinator(CombK), Integer(n-1), tr.stack)
	}
	if !t.IsPair() {
		// A primitive combinator or other non-pair, non-integer
		// value reached during translation of an already-bound
		// subterm: it doesn't depend on the bound variable, so it
		// behaves like `K t`.
		return tr.heap.Pair(mkCombinator(CombK), t, tr.stack)
	}

	u, v := tr.heap.Car(t), tr.heap.Cdr(t)
	// v must survive unabstracting u, which may allocate.
	if err := tr.stack.Push(v); err != nil {
		return 0, err
	}
	f, err := tr.unabstract(u)
	if err != nil {
		tr.stack.Pop()
		return 0, err
	}
	v = tr.stack.Pop()
	// f must survive unabstracting v, which may allocate.
	if err := tr.stack.Push(f); err != nil {
		return 0, err
	}
	g, err := tr.unabstract(v)
	if err != nil {
		tr.stack.Pop()
		return 0, err
	}
	f = tr.stack.Pop()

	if x, ok := tr.asK1(f); ok {
		if g.IsComb(CombI) {
			return x, nil
		}
		if y, ok := tr.asK1(g); ok {
			inner, err := tr.heap.Pair(x, y, tr.stack)
			if err != nil {
				return 0, err
			}
			return tr.heap.Pair(mkCombinator(CombK), inner, tr.stack)
		}
		if y, z, ok := tr.asB2(g); ok {
			return tr.build3(CombBstar, x, y, z)
		}
		return tr.build2(CombB, x, g)
	}

	if y, ok := tr.asK1(g); ok {
		if x, yp, ok := tr.asB2(f); ok {
			return tr.build3(CombCp, x, yp, y)
		}
		return tr.build2(CombC, f, y)
	}

	if x, y, ok := tr.asB2(f); ok {
		return tr.build3(CombSp, x, y, g)
	}

	return tr.build2(CombS, f, g)
}

// asK1 reports whether c has the shape (K, x), returning x.
func (tr *Translator) asK1(c Cell) (Cell, bool) {
	if !c.IsPair() {
		return 0, false
	}
	if car := tr.heap.Car(c); car.IsComb(CombK) {
		return tr.heap.Cdr(c), true
	}
	return 0, false
}

// asB2 reports whether c has the shape ((B, x), y), returning x, y.
func (tr *Translator) asB2(c Cell) (x, y Cell, ok bool) {
	if !c.IsPair() {
		return 0, 0, false
	}
	car := tr.heap.Car(c)
	if !car.IsPair() {
		return 0, 0, false
	}
	if bcar := tr.heap.Car(car); !bcar.IsComb(CombB) {
		return 0, 0, false
	}
	return tr.heap.Cdr(car), tr.heap.Cdr(c), true
}

// build2 constructs ((comb, a), b). b is rooted on the stack across
// the first allocation, since Pair's own save slots only protect the
// two cells given directly to that call — a bare local surviving an
// unrelated allocation is exactly the mistake §9 warns about.
func (tr *Translator) build2(comb Combinator, a, b Cell) (Cell, error) {
	if err := tr.stack.Push(b); err != nil {
		return 0, err
	}
	head, err := tr.heap.Pair(mkCombinator(comb), a, tr.stack)
	if err != nil {
		tr.stack.Pop()
		return 0, err
	}
	b = tr.stack.Pop()
	return tr.heap.Pair(head, b, tr.stack)
}

// build3 constructs (((comb, a), b), c) — e.g. `B* x y z`. b and c are
// rooted on the stack until the allocation that consumes each of them
// runs, for the same reason as build2.
func (tr *Translator) build3(comb Combinator, a, b, c Cell) (Cell, error) {
	if err := tr.stack.Push(c); err != nil {
		return 0, err
	}
	if err := tr.stack.Push(b); err != nil {
		tr.stack.Pop()
		return 0, err
	}
	head, err := tr.heap.Pair(mkCombinator(comb), a, tr.stack)
	if err != nil {
		tr.stack.Drop(2)
		return 0, err
	}
	b = tr.stack.Pop()
	head, err = tr.heap.Pair(head, b, tr.stack)
	if err != nil {
		tr.stack.Pop()
		return 0, err
	}
	c = tr.stack.Pop()
	return tr.heap.Pair(head, c, tr.stack)
}
