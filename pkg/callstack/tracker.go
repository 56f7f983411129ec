// Package callstack tracks the active frames of every instrumented thread.
package callstack

import (
	"github.com/danpilch/mprof/pkg/ident"
	"github.com/danpilch/mprof/pkg/sample"
	"github.com/danpilch/mprof/pkg/signature"
)

// Frame is one active frame together with the signatures around it.
type Frame struct {
	Name      string
	Signature signature.Signature
	Parent    signature.Signature
	Depth     int

	// Sample is the registry entry bound to this frame, or sample.NoParent
	// while none is. ParentSample is the caller's Sample at push time.
	Sample       sample.Handle
	ParentSample sample.Handle
	// Entered is set when the push was counted as a call of Sample.
	Entered bool
}

type stack struct {
	frames []Frame
}

// Tracker keeps one LIFO stack per thread. It is not safe for concurrent use.
type Tracker struct {
	hasher  signature.Hasher
	threads map[ident.Thread]*stack
}

// NewTracker creates a tracker hashing frames with h.
func NewTracker(h signature.Hasher) *Tracker {
	return &Tracker{
		hasher:  h,
		threads: make(map[ident.Thread]*stack),
	}
}

// Enter pushes frame onto the thread's stack and returns the pushed frame,
// carrying both the previous (parent) and the new signature.
func (t *Tracker) Enter(thread ident.Thread, frame string) Frame {
	s, ok := t.threads[thread]
	if !ok {
		s = &stack{frames: make([]Frame, 0, 16)}
		t.threads[thread] = s
	}

	f := Frame{
		Name:         frame,
		Parent:       signature.Empty,
		Depth:        len(s.frames) + 1,
		Sample:       sample.NoParent,
		ParentSample: sample.NoParent,
	}
	if n := len(s.frames); n > 0 {
		top := s.frames[n-1]
		f.Parent = top.Signature
		f.ParentSample = top.Sample
	}
	f.Signature = t.hasher.Extend(f.Parent, frame)
	s.frames = append(s.frames, f)
	return f
}

// Leave pops the top frame if it is frame. Leave events that do not match the
// top of the stack, or arrive on an empty stack, leave it untouched.
func (t *Tracker) Leave(thread ident.Thread, frame string) (Frame, bool) {
	s, ok := t.threads[thread]
	if !ok || len(s.frames) == 0 {
		return Frame{}, false
	}

	n := len(s.frames)
	top := s.frames[n-1]
	if top.Name != frame {
		return Frame{}, false
	}

	s.frames[n-1] = Frame{}
	s.frames = s.frames[:n-1]
	if len(s.frames) == 0 {
		delete(t.threads, thread)
	}
	return top, true
}

// Bind records h as the sample of the thread's innermost frame. entered marks
// the frame's push as a counted call; it is never cleared once set.
func (t *Tracker) Bind(thread ident.Thread, h sample.Handle, entered bool) {
	s, ok := t.threads[thread]
	if !ok || len(s.frames) == 0 {
		return
	}
	top := &s.frames[len(s.frames)-1]
	top.Sample = h
	top.Entered = top.Entered || entered
}

// Top returns the innermost frame of the thread.
func (t *Tracker) Top(thread ident.Thread) (Frame, bool) {
	s, ok := t.threads[thread]
	if !ok || len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Current returns the signature of the thread's stack, or signature.Empty.
func (t *Tracker) Current(thread ident.Thread) signature.Signature {
	if f, ok := t.Top(thread); ok {
		return f.Signature
	}
	return signature.Empty
}

// Depth returns the number of active frames on the thread.
func (t *Tracker) Depth(thread ident.Thread) int {
	if s, ok := t.threads[thread]; ok {
		return len(s.frames)
	}
	return 0
}

// Frames returns a copy of the thread's stack names, outermost first.
func (t *Tracker) Frames(thread ident.Thread) []string {
	s, ok := t.threads[thread]
	if !ok {
		return nil
	}
	names := make([]string, len(s.frames))
	for i, f := range s.frames {
		names[i] = f.Name
	}
	return names
}

// Threads returns the number of threads with a non-empty stack.
func (t *Tracker) Threads() int {
	return len(t.threads)
}

// Reset drops every tracked stack.
func (t *Tracker) Reset() {
	t.threads = make(map[ident.Thread]*stack)
}
