package clamb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTranslator(t *testing.T) (*Translator, *Heap, *Stack) {
	t.Helper()
	heap, stack := testHeap(256)
	return NewTranslator(heap, stack), heap, stack
}

// \x. x translates to the bare I combinator.
func TestTranslate_Identity(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	term, err := heap.Pair(Lambda, Integer(0), stack)
	require.NoError(t, err)

	out, err := tr.Translate(term)
	require.NoError(t, err)
	assert.True(t, out.IsComb(CombI))
}

// \x y. x (the K combinator in lambda form) collapses to the bare K
// combinator via the K/I cancellation rule (§4.5).
func TestTranslate_ConstFoldsToK(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	inner, err := heap.Pair(Lambda, Integer(1), stack)
	require.NoError(t, err)
	outer, err := heap.Pair(Lambda, inner, stack)
	require.NoError(t, err)

	out, err := tr.Translate(outer)
	require.NoError(t, err)
	assert.True(t, out.IsComb(CombK))
}

// Application nodes with no LAMBDA anywhere in them pass through
// Translate unchanged, field by field.
func TestTranslate_ApplicationWithoutLambda(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	term, err := heap.Pair(Integer(0), Integer(1), stack)
	require.NoError(t, err)

	out, err := tr.Translate(term)
	require.NoError(t, err)
	require.True(t, out.IsPair())
	assert.Equal(t, Integer(0), heap.Car(out))
	assert.Equal(t, Integer(1), heap.Cdr(out))
}

// \x. (f (g x)), with f and g free, exercises the B rule: the eta
// reduction on (g x) leaves g bare, and x does not occur in f, so the
// whole abstraction collapses to (B f g) rather than full S/K/I (§4.5).
func TestTranslate_UnabstractBuildsB(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	// v = (g x), pre-shift indices: g is index 2, x is index 0.
	v, err := heap.Pair(Integer(2), Integer(0), stack)
	require.NoError(t, err)
	// t = (f v), f is index 1.
	term, err := heap.Pair(Integer(1), v, stack)
	require.NoError(t, err)

	out, err := tr.unabstract(term)
	require.NoError(t, err)

	require.True(t, out.IsPair())
	bHead := heap.Car(out)
	require.True(t, bHead.IsPair())
	assert.True(t, heap.Car(bHead).IsComb(CombB))
	assert.Equal(t, Integer(0), heap.Cdr(bHead)) // f, shifted
	assert.Equal(t, Integer(1), heap.Cdr(out))   // g, shifted
}

// \x. (x n), with n a free variable, exercises the C rule: x occurs
// only in the first position, so eta reduction there leaves the free
// variable n as C's trailing argument instead of full S/K/I (§4.5).
func TestTranslate_UnabstractBuildsC(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	// t = (x n): x is index 0 (bound), n is a free variable at index 5.
	term, err := heap.Pair(Integer(0), Integer(5), stack)
	require.NoError(t, err)

	out, err := tr.unabstract(term)
	require.NoError(t, err)

	require.True(t, out.IsPair())
	cHead := heap.Car(out)
	require.True(t, cHead.IsPair())
	assert.True(t, heap.Car(cHead).IsComb(CombC))
	assert.True(t, heap.Cdr(cHead).IsComb(CombI)) // f, the bound variable
	assert.Equal(t, Integer(4), heap.Cdr(out))    // n, shifted
}

// \x. ((f (g x)) n), with n free, exercises the C' rule: the inner
// application already collapsed to (B f g) the same way
// TestTranslate_UnabstractBuildsB does, and applying that to a
// trailing free argument folds through C' rather than falling back to
// a bare S (§4.5).
func TestTranslate_UnabstractBuildsCp(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	v, err := heap.Pair(Integer(2), Integer(0), stack) // (g x)
	require.NoError(t, err)
	u, err := heap.Pair(Integer(1), v, stack) // (f (g x))
	require.NoError(t, err)
	// n is a free variable at index 4.
	term, err := heap.Pair(u, Integer(4), stack)
	require.NoError(t, err)

	out, err := tr.unabstract(term)
	require.NoError(t, err)

	require.True(t, out.IsPair())
	cpOuter := heap.Car(out)
	require.True(t, cpOuter.IsPair())
	cpInner := heap.Car(cpOuter)
	require.True(t, cpInner.IsPair())
	assert.True(t, heap.Car(cpInner).IsComb(CombCp))
	assert.Equal(t, Integer(0), heap.Cdr(cpInner)) // f, shifted
	assert.Equal(t, Integer(1), heap.Cdr(cpOuter)) // g, shifted
	assert.Equal(t, Integer(3), heap.Cdr(out))     // n, shifted
}

// \x. ((f (g x)) x), with the trailing argument the bound variable
// itself, exercises the S' rule: the inner application again collapses
// to (B f g), but the trailing argument still depends on x, so it
// cannot fold away through C' and falls through to S' instead (§4.5).
func TestTranslate_UnabstractBuildsSp(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	v, err := heap.Pair(Integer(2), Integer(0), stack) // (g x)
	require.NoError(t, err)
	u, err := heap.Pair(Integer(1), v, stack) // (f (g x))
	require.NoError(t, err)
	term, err := heap.Pair(u, Integer(0), stack) // ((f (g x)) x)
	require.NoError(t, err)

	out, err := tr.unabstract(term)
	require.NoError(t, err)

	require.True(t, out.IsPair())
	spOuter := heap.Car(out)
	require.True(t, spOuter.IsPair())
	spInner := heap.Car(spOuter)
	require.True(t, spInner.IsPair())
	assert.True(t, heap.Car(spInner).IsComb(CombSp))
	assert.Equal(t, Integer(0), heap.Cdr(spInner)) // f, shifted
	assert.Equal(t, Integer(1), heap.Cdr(spOuter)) // g, shifted
	assert.True(t, heap.Cdr(out).IsComb(CombI))    // x itself, as I
}

func TestTranslator_AsK1(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	k1, err := heap.Pair(mkCombinator(CombK), Integer(7), stack)
	require.NoError(t, err)

	x, ok := tr.asK1(k1)
	require.True(t, ok)
	assert.Equal(t, Integer(7), x)

	_, ok = tr.asK1(Integer(3))
	assert.False(t, ok)
}

func TestTranslator_AsB2(t *testing.T) {
	tr, heap, stack := newTranslator(t)
	bx, err := heap.Pair(mkCombinator(CombB), Integer(1), stack)
	require.NoError(t, err)
	bxy, err := heap.Pair(bx, Integer(2), stack)
	require.NoError(t, err)

	x, y, ok := tr.asB2(bxy)
	require.True(t, ok)
	assert.Equal(t, Integer(1), x)
	assert.Equal(t, Integer(2), y)

	_, _, ok = tr.asB2(Integer(5))
	assert.False(t, ok)
}
