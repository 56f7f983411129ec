// Package report turns the sample registry into a sorted, hierarchical report.
package report

import (
	"encoding/xml"
	"sort"

	"github.com/danpilch/mprof/pkg/clock"
	"github.com/danpilch/mprof/pkg/sample"
)

// Options controls how much detail Build emits.
type Options struct {
	// Details adds call-stack ancestry to the time view and per-class
	// allocations to the memory view.
	Details bool
}

// Report is the serialisable result of Build.
type Report struct {
	XMLName xml.Name      `xml:"Report" json:"-"`
	Time    TimeSection   `xml:"Time" json:"time"`
	Memory  MemorySection `xml:"Memory" json:"memory"`

	nodes []Node
}

// TimeSection lists methods by total time, slowest first.
type TimeSection struct {
	Methods []TimeMethod `xml:"Method" json:"methods"`
}

// TimeMethod is one entry of the time view. Times are in seconds.
type TimeMethod struct {
	Name      string       `xml:"name,attr" json:"name"`
	TotalTime float64      `xml:"total_time,attr" json:"total_time"`
	Time      float64      `xml:"time,attr" json:"time"`
	Calls     uint64       `xml:"calls,attr" json:"calls"`
	CallStack []StackFrame `xml:"CallStack,omitempty" json:"call_stack,omitempty"`
}

// StackFrame is one caller in a TimeMethod's ancestry, nearest caller first.
type StackFrame struct {
	Name      string  `xml:"name,attr" json:"name"`
	TotalTime float64 `xml:"total_time,attr" json:"total_time"`
	Time      float64 `xml:"time,attr" json:"time"`
}

// MemorySection lists methods by allocated bytes, largest first.
type MemorySection struct {
	Methods []MemoryMethod `xml:"Method" json:"methods"`
}

// MemoryMethod is one entry of the memory view.
type MemoryMethod struct {
	Name      string   `xml:"name,attr" json:"name"`
	TotalSize uint64   `xml:"total_size,attr" json:"total_size"`
	Calls     uint64   `xml:"calls,attr" json:"calls"`
	Objects   []Object `xml:"Object,omitempty" json:"objects,omitempty"`
}

// Object is the per-class allocation total under a method.
type Object struct {
	Name  string `xml:"name,attr" json:"name"`
	Size  uint64 `xml:"size,attr" json:"size"`
	Count uint64 `xml:"count,attr" json:"count"`
}

// Node is a call path merged across threads.
type Node struct {
	Name string
	// Path lists the frames from the outermost caller down to Name.
	Path      []string
	Parent    int
	Calls     uint64
	TotalTime clock.Tick
	Bytes     uint64
	Objects   []Object
}

// AverageTime returns the mean time per call.
func (n Node) AverageTime() clock.Tick {
	if n.Calls == 0 {
		return 0
	}
	return n.TotalTime / clock.Tick(n.Calls)
}

// Nodes returns the merged call paths in first-seen order. Node.Parent indexes
// into the same slice (-1 for top-level paths).
func (r *Report) Nodes() []Node {
	return r.nodes
}

type mergeKey struct {
	parent int
	name   string
}

type merger struct {
	reg      *sample.Registry
	nodes    []Node
	children map[mergeKey]int
	objects  []map[string]int
	nodeOf   []int
}

// Build merges the registry's per-thread samples and produces both views.
// Samples merge when their names and the names along their parent chains match.
func Build(reg *sample.Registry, opts Options) *Report {
	m := &merger{
		reg:      reg,
		children: make(map[mergeKey]int),
		nodeOf:   make([]int, reg.Len()),
	}
	for i := range m.nodeOf {
		m.nodeOf[i] = -2
	}
	reg.Each(func(h sample.Handle, _ *sample.Method) bool {
		m.resolve(h)
		return true
	})

	rep := &Report{nodes: m.nodes}
	rep.Time.Methods = timeView(m.nodes, opts.Details)
	rep.Memory.Methods = memoryView(m.nodes, opts.Details)
	return rep
}

// resolve maps h onto a merged node, folding its totals in the first time h is
// seen. Parents are resolved first; depth strictly decreases along parent links.
func (m *merger) resolve(h sample.Handle) int {
	if idx := m.nodeOf[h]; idx >= 0 {
		return idx
	}
	s := m.reg.Get(h)

	parent := -1
	if s.Parent != sample.NoParent {
		parent = m.resolve(s.Parent)
	}

	k := mergeKey{parent: parent, name: s.Name}
	idx, ok := m.children[k]
	if !ok {
		idx = len(m.nodes)
		var path []string
		if parent >= 0 {
			pp := m.nodes[parent].Path
			path = make([]string, len(pp), len(pp)+1)
			copy(path, pp)
		}
		m.nodes = append(m.nodes, Node{Name: s.Name, Path: append(path, s.Name), Parent: parent})
		m.objects = append(m.objects, nil)
		m.children[k] = idx
	}
	m.nodeOf[h] = idx

	n := &m.nodes[idx]
	n.Calls += s.CallCount
	n.TotalTime += s.TotalTime
	n.Bytes += s.AllocatedBytes
	for _, a := range s.Allocations() {
		if m.objects[idx] == nil {
			m.objects[idx] = make(map[string]int)
		}
		oi, ok := m.objects[idx][a.Class]
		if !ok {
			oi = len(n.Objects)
			m.objects[idx][a.Class] = oi
			n.Objects = append(n.Objects, Object{Name: a.Class})
		}
		n.Objects[oi].Size += a.Bytes
		n.Objects[oi].Count += a.Count
	}
	return idx
}

func timeView(nodes []Node, details bool) []TimeMethod {
	order := sortedIndexes(nodes, func(n Node) uint64 { return uint64(n.TotalTime) })

	out := make([]TimeMethod, 0, len(nodes))
	for _, i := range order {
		n := nodes[i]
		tm := TimeMethod{
			Name:      n.Name,
			TotalTime: n.TotalTime.Seconds(),
			Time:      n.AverageTime().Seconds(),
			Calls:     n.Calls,
		}
		if details {
			for p := n.Parent; p >= 0; p = nodes[p].Parent {
				a := nodes[p]
				tm.CallStack = append(tm.CallStack, StackFrame{
					Name:      a.Name,
					TotalTime: a.TotalTime.Seconds(),
					Time:      a.AverageTime().Seconds(),
				})
			}
		}
		out = append(out, tm)
	}
	return out
}

func memoryView(nodes []Node, details bool) []MemoryMethod {
	order := sortedIndexes(nodes, func(n Node) uint64 { return n.Bytes })

	out := make([]MemoryMethod, 0, len(nodes))
	for _, i := range order {
		n := nodes[i]
		mm := MemoryMethod{Name: n.Name, TotalSize: n.Bytes, Calls: n.Calls}
		if details && len(n.Objects) > 0 {
			mm.Objects = make([]Object, len(n.Objects))
			copy(mm.Objects, n.Objects)
			sort.SliceStable(mm.Objects, func(a, b int) bool {
				return mm.Objects[a].Size > mm.Objects[b].Size
			})
		}
		out = append(out, mm)
	}
	return out
}

// sortedIndexes orders node indexes by key descending, keeping first-seen order on ties.
func sortedIndexes(nodes []Node, key func(Node) uint64) []int {
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return key(nodes[order[a]]) > key(nodes[order[b]])
	})
	return order
}
