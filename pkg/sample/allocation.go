package sample

// Allocation aggregates the objects of one class created under a Method.
type Allocation struct {
	Class        string
	Count        uint64
	InstanceSize uint64
	// Bytes is InstanceSize * Count; instance size is taken from the first
	// observation and assumed stable per class.
	Bytes uint64
}

// RecordAllocation attributes one object of class to h.
func (r *Registry) RecordAllocation(h Handle, class string, size uint64) {
	m := &r.methods[h]
	m.AllocatedBytes += size

	i, ok := m.allocIndex[class]
	if !ok {
		if m.allocIndex == nil {
			m.allocIndex = make(map[string]int)
		}
		i = len(m.allocs)
		m.allocIndex[class] = i
		m.allocs = append(m.allocs, Allocation{Class: class, InstanceSize: size})
	}

	a := &m.allocs[i]
	a.Count++
	a.Bytes = a.InstanceSize * a.Count
}

// NumAllocations returns the number of distinct classes allocated under m.
func (m *Method) NumAllocations() int {
	return len(m.allocs)
}

// Allocation returns the i-th class record in first-seen order.
func (m *Method) Allocation(i int) (Allocation, bool) {
	if i < 0 || i >= len(m.allocs) {
		return Allocation{}, false
	}
	return m.allocs[i], true
}

// Allocations returns a copy of the class records in first-seen order.
func (m *Method) Allocations() []Allocation {
	if len(m.allocs) == 0 {
		return nil
	}
	out := make([]Allocation, len(m.allocs))
	copy(out, m.allocs)
	return out
}
