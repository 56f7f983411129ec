// Package signature hashes a thread's active frame sequence into a stack signature.
//
// Signatures are built incrementally, outermost frame first:
//
//	sig([])       = Empty
//	sig(s + [f])  = h.Extend(sig(s), f)
//
// so pushing a frame costs one hash of the frame name and never allocates.
// Recursive frames are not collapsed: [A] and [A, A] have distinct signatures.
package signature

import "fmt"

// Signature identifies a call path.
type Signature uint64

// Empty is the signature of an empty stack.
const Empty Signature = 0

// Hasher extends a parent signature with one more frame.
type Hasher interface {
	Name() string
	Extend(parent Signature, frame string) Signature
}

// Of folds frames into a signature.
func Of(h Hasher, frames ...string) Signature {
	sig := Empty
	for _, f := range frames {
		sig = h.Extend(sig, f)
	}
	return sig
}

// Names lists the hashers accepted by ByName.
var Names = []string{"xxh3", "xxhash", "legacy"}

// ByName returns the hasher registered under name.
func ByName(name string) (Hasher, error) {
	switch name {
	case "", "xxh3":
		return XXH3{}, nil
	case "xxhash":
		return NewXXHash(), nil
	case "legacy":
		return Legacy{}, nil
	}
	return nil, fmt.Errorf("unknown signature hash %q (want one of %v)", name, Names)
}
