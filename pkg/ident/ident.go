// Package ident builds the stable identities used to key aggregated samples.
package ident

import "strings"

// Separator joins the namespace, type and member parts of an identity.
const Separator = "::"

// Thread identifies the instrumented thread that delivered an event.
type Thread uint64

// Method returns the frame identity of a method, e.g. "Namespace::Type::Method".
// Empty parts are skipped.
func Method(namespace, typeName, method string) string {
	return join(namespace, typeName, method)
}

// Class returns the identity of an allocated class, e.g. "Namespace::ClassName".
func Class(namespace, className string) string {
	return join(namespace, className)
}

// Split breaks an identity back into its parts.
func Split(identity string) []string {
	if identity == "" {
		return nil
	}
	return strings.Split(identity, Separator)
}

func join(parts ...string) string {
	n := 0
	for _, p := range parts {
		if p != "" {
			n += len(p) + len(Separator)
		}
	}
	if n == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(n)
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(p)
	}
	return b.String()
}
