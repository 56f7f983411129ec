package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/sample"
	"github.com/danpilch/mprof/pkg/signature"
)

// fooBar records A::Foo -> B::Bar on thread with one C::Obj allocation in B::Bar.
func fooBar(reg *sample.Registry, thread ident.Thread) (foo, bar sample.Handle) {
	h := signature.XXH3{}
	foo = reg.GetOrCreate(thread, signature.Of(h, "A::Foo"), "A::Foo", 1, sample.NoParent)
	bar = reg.GetOrCreate(thread, signature.Of(h, "A::Foo", "B::Bar"), "B::Bar", 2, foo)
	reg.Enter(foo, 0)
	reg.Enter(bar, 10)
	reg.RecordAllocation(bar, "C::Obj", 24)
	reg.Leave(bar, 40)
	reg.Leave(foo, 100)
	return foo, bar
}

func TestBuildSingleThread(t *testing.T) {
	reg := sample.NewRegistry()
	fooBar(reg, 1)

	rep := Build(reg, Options{Details: true})

	require.Len(t, rep.Time.Methods, 2)
	foo := rep.Time.Methods[0]
	assert.Equal(t, "A::Foo", foo.Name)
	assert.EqualValues(t, 1, foo.Calls)
	assert.InDelta(t, 0.0001, foo.TotalTime, 1e-12)
	assert.Empty(t, foo.CallStack)

	bar := rep.Time.Methods[1]
	assert.Equal(t, "B::Bar", bar.Name)
	require.Len(t, bar.CallStack, 1)
	assert.Equal(t, "A::Foo", bar.CallStack[0].Name)

	require.Len(t, rep.Memory.Methods, 2)
	mem := rep.Memory.Methods[0]
	assert.Equal(t, "B::Bar", mem.Name)
	assert.EqualValues(t, 24, mem.TotalSize)
	assert.Equal(t, []Object{{Name: "C::Obj", Size: 24, Count: 1}}, mem.Objects)
	assert.EqualValues(t, 0, rep.Memory.Methods[1].TotalSize)
}

func TestBuildWithoutDetails(t *testing.T) {
	reg := sample.NewRegistry()
	fooBar(reg, 1)

	rep := Build(reg, Options{})
	for _, m := range rep.Time.Methods {
		assert.Empty(t, m.CallStack)
	}
	for _, m := range rep.Memory.Methods {
		assert.Empty(t, m.Objects)
	}
	assert.Len(t, rep.Nodes()[1].Objects, 1, "nodes keep objects for other encoders")
}

func TestBuildMergesThreads(t *testing.T) {
	reg := sample.NewRegistry()
	fooBar(reg, 1)
	fooBar(reg, 2)
	require.Equal(t, 4, reg.Len())

	rep := Build(reg, Options{Details: true})

	nodes := rep.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, []string{"A::Foo"}, nodes[0].Path)
	assert.Equal(t, []string{"A::Foo", "B::Bar"}, nodes[1].Path)
	assert.Equal(t, 0, nodes[1].Parent)
	assert.EqualValues(t, 2, nodes[0].Calls)
	assert.EqualValues(t, 200, nodes[0].TotalTime)
	assert.EqualValues(t, 100, nodes[0].AverageTime())
	assert.EqualValues(t, 48, nodes[1].Bytes)
	assert.Equal(t, []Object{{Name: "C::Obj", Size: 48, Count: 2}}, nodes[1].Objects)
}

func TestBuildKeepsDistinctPaths(t *testing.T) {
	reg := sample.NewRegistry()
	h := signature.XXH3{}

	// Recursive A::Foo -> A::Foo is two call paths.
	outer := reg.GetOrCreate(1, signature.Of(h, "A::Foo"), "A::Foo", 1, sample.NoParent)
	inner := reg.GetOrCreate(1, signature.Of(h, "A::Foo", "A::Foo"), "A::Foo", 2, outer)
	reg.Enter(outer, 0)
	reg.Enter(inner, 0)
	reg.Leave(inner, 5)
	reg.Leave(outer, 10)

	rep := Build(reg, Options{})
	require.Len(t, rep.Time.Methods, 2)
	for _, m := range rep.Time.Methods {
		assert.Equal(t, "A::Foo", m.Name)
		assert.EqualValues(t, 1, m.Calls)
	}
}

func TestBuildResolvesLateParents(t *testing.T) {
	reg := sample.NewRegistry()
	bar := reg.GetOrCreate(1, 20, "B::Bar", 2, sample.NoParent)
	foo := reg.GetOrCreate(1, 10, "A::Foo", 1, sample.NoParent)
	reg.GetOrCreate(1, 20, "B::Bar", 2, foo)
	reg.RecordAllocation(bar, "C::Obj", 8)

	nodes := Build(reg, Options{}).Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "A::Foo", nodes[0].Name)
	assert.Equal(t, []string{"A::Foo", "B::Bar"}, nodes[1].Path)
}

func TestSortIsStable(t *testing.T) {
	reg := sample.NewRegistry()
	for i, name := range []string{"first", "second", "third"} {
		h := reg.GetOrCreate(1, signature.Signature(i+1), name, 1, sample.NoParent)
		reg.Enter(h, 0)
		reg.Leave(h, 10)
	}
	slow := reg.GetOrCreate(1, 99, "slow", 1, sample.NoParent)
	reg.Enter(slow, 0)
	reg.Leave(slow, 50)

	rep := Build(reg, Options{})
	var names []string
	for _, m := range rep.Time.Methods {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"slow", "first", "second", "third"}, names)
}

func TestObjectsSortedBySize(t *testing.T) {
	reg := sample.NewRegistry()
	h := reg.GetOrCreate(1, 1, "A::Foo", 1, sample.NoParent)
	reg.RecordAllocation(h, "small", 8)
	reg.RecordAllocation(h, "big", 64)
	reg.RecordAllocation(h, "also-small", 8)

	objs := Build(reg, Options{Details: true}).Memory.Methods[0].Objects
	require.Len(t, objs, 3)
	assert.Equal(t, "big", objs[0].Name)
	assert.Equal(t, "small", objs[1].Name)
	assert.Equal(t, "also-small", objs[2].Name)
}

func TestBuildEmpty(t *testing.T) {
	rep := Build(sample.NewRegistry(), Options{Details: true})
	assert.Empty(t, rep.Time.Methods)
	assert.Empty(t, rep.Memory.Methods)
	assert.Empty(t, rep.Nodes())
}

func TestRaw(t *testing.T) {
	reg := sample.NewRegistry()
	fooBar(reg, 7)

	raw := Raw(reg)
	require.Len(t, raw, 2)
	assert.Equal(t, ident.Thread(7), raw[1].Thread)
	assert.Equal(t, "B::Bar", raw[1].Name)
	assert.Equal(t, "A::Foo", raw[1].Parent)
	assert.Equal(t, 2, raw[1].Depth)
	assert.EqualValues(t, 24, raw[1].Bytes)
	assert.Equal(t, 1, raw[1].Classes)
	assert.Empty(t, raw[0].Parent)
}
