package callstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/sample"
	"github.com/danpilch/mprof/pkg/signature"
)

func TestEnterLinksSignatures(t *testing.T) {
	h := signature.XXH3{}
	tr := NewTracker(h)

	outer := tr.Enter(1, "A::Foo")
	assert.Equal(t, 1, outer.Depth)
	assert.Equal(t, signature.Empty, outer.Parent)
	assert.Equal(t, signature.Of(h, "A::Foo"), outer.Signature)

	inner := tr.Enter(1, "B::Bar")
	assert.Equal(t, outer.Signature, inner.Parent)
	assert.Equal(t, signature.Of(h, "A::Foo", "B::Bar"), inner.Signature)
	assert.Equal(t, 2, inner.Depth)
	assert.Equal(t, inner.Signature, tr.Current(1))
}

func TestBalancedSequencesEmptyEveryStack(t *testing.T) {
	tr := NewTracker(signature.XXH3{})
	frames := []string{"Main", "A::Foo", "A::Foo", "B::Bar"}

	for thread := ident.Thread(1); thread <= 4; thread++ {
		for _, f := range frames {
			tr.Enter(thread, f)
		}
	}
	assert.Equal(t, 4, tr.Threads())

	for thread := ident.Thread(1); thread <= 4; thread++ {
		for i := len(frames) - 1; i >= 0; i-- {
			_, ok := tr.Leave(thread, frames[i])
			require.True(t, ok)
		}
		assert.Equal(t, 0, tr.Depth(thread))
		assert.Equal(t, signature.Empty, tr.Current(thread))
	}
	assert.Equal(t, 0, tr.Threads())
}

func TestLeaveToleratesMismatches(t *testing.T) {
	tr := NewTracker(signature.XXH3{})

	_, ok := tr.Leave(7, "A::Foo")
	assert.False(t, ok, "leave on empty stack is a no-op")

	tr.Enter(7, "A::Foo")
	tr.Enter(7, "B::Bar")

	_, ok = tr.Leave(7, "A::Foo")
	assert.False(t, ok, "leave for a frame that is not on top is ignored")
	assert.Equal(t, []string{"A::Foo", "B::Bar"}, tr.Frames(7))

	popped, ok := tr.Leave(7, "B::Bar")
	require.True(t, ok)
	assert.Equal(t, "B::Bar", popped.Name)
	assert.Equal(t, []string{"A::Foo"}, tr.Frames(7))
}

func TestThreadsAreIndependent(t *testing.T) {
	tr := NewTracker(signature.XXH3{})
	a := tr.Enter(1, "A::Foo")
	b := tr.Enter(2, "A::Foo")
	assert.Equal(t, a.Signature, b.Signature, "same path on different threads shares a signature")

	tr.Enter(1, "B::Bar")
	assert.Equal(t, 2, tr.Depth(1))
	assert.Equal(t, 1, tr.Depth(2))
}

func TestReset(t *testing.T) {
	tr := NewTracker(signature.XXH3{})
	tr.Enter(1, "A")
	tr.Enter(2, "B")
	tr.Reset()

	assert.Equal(t, 0, tr.Threads())
	_, ok := tr.Top(1)
	assert.False(t, ok)
}

func TestBindCarriesSampleToCallees(t *testing.T) {
	tr := NewTracker(signature.XXH3{})

	outer := tr.Enter(1, "A::Foo")
	assert.Equal(t, sample.NoParent, outer.Sample)
	assert.Equal(t, sample.NoParent, outer.ParentSample)
	assert.False(t, outer.Entered)

	tr.Bind(1, 3, true)
	inner := tr.Enter(1, "B::Bar")
	assert.Equal(t, sample.Handle(3), inner.ParentSample)
	assert.Equal(t, sample.NoParent, inner.Sample)

	tr.Bind(1, 5, false)
	top, ok := tr.Top(1)
	require.True(t, ok)
	assert.Equal(t, sample.Handle(5), top.Sample)
	assert.False(t, top.Entered, "binding without a counted enter")

	popped, ok := tr.Leave(1, "B::Bar")
	require.True(t, ok)
	assert.Equal(t, sample.Handle(5), popped.Sample)

	popped, ok = tr.Leave(1, "A::Foo")
	require.True(t, ok)
	assert.Equal(t, sample.Handle(3), popped.Sample)
	assert.True(t, popped.Entered)

	tr.Bind(1, 7, true)
	assert.Equal(t, 0, tr.Threads(), "bind on an empty stack is a no-op")
}
