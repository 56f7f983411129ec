package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/mprof/pkg/signature"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	r := NewRegistry()
	h := signature.XXH3{}

	foo := r.GetOrCreate(1, signature.Of(h, "A::Foo"), "A::Foo", 1, NoParent)
	again := r.GetOrCreate(1, signature.Of(h, "A::Foo"), "A::Foo", 1, NoParent)
	assert.Equal(t, foo, again)
	assert.Equal(t, 1, r.Len())

	other := r.GetOrCreate(2, signature.Of(h, "A::Foo"), "A::Foo", 1, NoParent)
	assert.NotEqual(t, foo, other, "samples are kept per thread")
	assert.Equal(t, 2, r.Len())
}

func TestParentLinks(t *testing.T) {
	r := NewRegistry()
	h := signature.XXH3{}

	foo := r.GetOrCreate(1, signature.Of(h, "A::Foo"), "A::Foo", 1, NoParent)
	bar := r.GetOrCreate(1, signature.Of(h, "A::Foo", "B::Bar"), "B::Bar", 2, foo)
	baz := r.GetOrCreate(1, signature.Of(h, "A::Foo", "B::Bar", "C::Baz"), "C::Baz", 3, bar)

	assert.Equal(t, foo, r.Get(bar).Parent)
	assert.Equal(t, []Handle{bar, foo}, r.Ancestors(baz))
	assert.Empty(t, r.Ancestors(foo))
}

func TestParentWithWrongDepthIsIgnored(t *testing.T) {
	r := NewRegistry()
	foo := r.GetOrCreate(1, 10, "A::Foo", 1, NoParent)
	deep := r.GetOrCreate(1, 30, "C::Baz", 3, foo)
	assert.Equal(t, NoParent, r.Get(deep).Parent)
}

func TestLateParentLink(t *testing.T) {
	r := NewRegistry()
	bar := r.GetOrCreate(1, 20, "B::Bar", 2, NoParent)
	foo := r.GetOrCreate(1, 10, "A::Foo", 1, NoParent)

	again := r.GetOrCreate(1, 20, "B::Bar", 2, foo)
	assert.Equal(t, bar, again)
	assert.Equal(t, foo, r.Get(bar).Parent)
	assert.Equal(t, 2, r.Len())
}

func TestCollisionsAreProbed(t *testing.T) {
	r := NewRegistry()
	const sig = signature.Signature(42)

	a := r.GetOrCreate(1, sig, "A::Foo", 1, NoParent)
	b := r.GetOrCreate(1, sig, "B::Bar", 1, NoParent)
	require.NotEqual(t, a, b)
	assert.Equal(t, uint64(1), r.Collisions())

	found, ok := r.Find(1, sig, "B::Bar", 1, NoParent)
	require.True(t, ok)
	assert.Equal(t, b, found)

	found, ok = r.Find(1, sig, "A::Foo", 1, NoParent)
	require.True(t, ok)
	assert.Equal(t, a, found)

	_, ok = r.Find(1, sig, "C::Baz", 1, NoParent)
	assert.False(t, ok)

	assert.Equal(t, b, r.GetOrCreate(1, sig, "B::Bar", 1, NoParent))
	assert.Equal(t, 2, r.Len())
}

func TestCollidingCalleesKeepTheirParents(t *testing.T) {
	r := NewRegistry()
	a := r.GetOrCreate(1, 10, "A::Foo", 1, NoParent)
	b := r.GetOrCreate(1, 20, "B::Bar", 1, NoParent)

	// Same callee name and signature under two different callers.
	const sig = signature.Signature(42)
	underA := r.GetOrCreate(1, sig, "C::Baz", 2, a)
	underB := r.GetOrCreate(1, sig, "C::Baz", 2, b)
	require.NotEqual(t, underA, underB)
	assert.Equal(t, uint64(1), r.Collisions())

	found, ok := r.Find(1, sig, "C::Baz", 2, b)
	require.True(t, ok)
	assert.Equal(t, underB, found)

	found, ok = r.Find(1, sig, "C::Baz", 2, a)
	require.True(t, ok)
	assert.Equal(t, underA, found)

	assert.Equal(t, underB, r.GetOrCreate(1, sig, "C::Baz", 2, b))
	assert.Equal(t, 4, r.Len())
}

func TestEnterLeaveTiming(t *testing.T) {
	r := NewRegistry()
	h := r.GetOrCreate(1, 1, "A::Foo", 1, NoParent)

	assert.False(t, r.Leave(h, 50), "leave without enter is a no-op")
	assert.Zero(t, r.Get(h).TotalTime)

	r.Enter(h, 100)
	assert.True(t, r.Get(h).InFlight())
	assert.Zero(t, r.Get(h).TotalTime, "in-flight calls are not counted")

	require.True(t, r.Leave(h, 250))
	assert.EqualValues(t, 150, r.Get(h).TotalTime)
	assert.False(t, r.Leave(h, 400), "second leave is ignored")

	r.Enter(h, 500)
	r.Leave(h, 550)
	m := r.Get(h)
	assert.EqualValues(t, 2, m.CallCount)
	assert.EqualValues(t, 200, m.TotalTime)
	assert.EqualValues(t, 100, m.AverageTime())
}

func TestLeaveClampsNegativeDurations(t *testing.T) {
	r := NewRegistry()
	h := r.GetOrCreate(1, 1, "A::Foo", 1, NoParent)
	r.Enter(h, 100)
	r.Leave(h, 90)
	assert.Zero(t, r.Get(h).TotalTime)
}

func TestReset(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate(1, 1, "A::Foo", 1, NoParent)
	epoch := r.Epoch()

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, epoch+1, r.Epoch())
	_, ok := r.Find(1, 1, "A::Foo", 1, NoParent)
	assert.False(t, ok)
	assert.Nil(t, r.Get(0))
}

func TestEachStopsEarly(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.GetOrCreate(1, signature.Signature(i+1), "M", 1, NoParent)
	}
	visited := 0
	r.Each(func(Handle, *Method) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)
}
