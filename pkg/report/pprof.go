package report

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"
)

// Sample value indexes of the pprof encoding.
const (
	pprofCalls = iota
	pprofTime
	pprofAllocSpace
	pprofAllocObjects
)

// BuildPprof converts the merged call tree into a pprof profile. Every node
// contributes one sample carrying its calls and self time; every allocated
// class contributes one sample labelled with the class name.
func BuildPprof(rep *Report) (*profile.Profile, error) {
	mapping := &profile.Mapping{ID: 1, HasFunctions: true}
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "time", Unit: "microseconds"},
			{Type: "alloc_space", Unit: "bytes"},
			{Type: "alloc_objects", Unit: "count"},
		},
		PeriodType: &profile.ValueType{Type: "calls", Unit: "count"},
		Period:     1,
		Mapping:    []*profile.Mapping{mapping},
	}

	locs := make(map[string]*profile.Location)
	location := func(name string) *profile.Location {
		if loc, ok := locs[name]; ok {
			return loc
		}
		id := uint64(len(p.Function) + 1)
		fn := &profile.Function{ID: id, Name: name, SystemName: name}
		loc := &profile.Location{
			ID:      id,
			Mapping: mapping,
			Line:    []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		locs[name] = loc
		return loc
	}

	childTime := make([]int64, len(rep.nodes))
	for _, n := range rep.nodes {
		if n.Parent >= 0 {
			childTime[n.Parent] += int64(n.TotalTime)
		}
	}

	for i, n := range rep.nodes {
		// pprof stacks are leaf first.
		stack := make([]*profile.Location, len(n.Path))
		for j, name := range n.Path {
			stack[len(n.Path)-1-j] = location(name)
		}

		self := int64(n.TotalTime) - childTime[i]
		if self < 0 {
			self = 0
		}
		if n.Calls > 0 || self > 0 {
			v := make([]int64, 4)
			v[pprofCalls] = int64(n.Calls)
			v[pprofTime] = self
			p.Sample = append(p.Sample, &profile.Sample{Location: stack, Value: v})
		}
		for _, o := range n.Objects {
			v := make([]int64, 4)
			v[pprofAllocSpace] = int64(o.Size)
			v[pprofAllocObjects] = int64(o.Count)
			p.Sample = append(p.Sample, &profile.Sample{
				Location: stack,
				Value:    v,
				Label:    map[string][]string{"class": {o.Name}},
			})
		}
	}

	if err := p.CheckValid(); err != nil {
		return nil, fmt.Errorf("cannot build pprof profile: %w", err)
	}
	return p, nil
}

// EncodePprof writes rep as a gzipped pprof protobuf.
func EncodePprof(w io.Writer, rep *Report) error {
	p, err := BuildPprof(rep)
	if err != nil {
		return err
	}
	return p.Write(w)
}
