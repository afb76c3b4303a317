// Package ast defines the Helix abstract syntax tree: declarations,
// expressions, a visitor, and a canonical pretty printer.
package ast

import (
	"fmt"

	"github.com/cyber-boost/helix/pkg/token"
)

// Position pins an AST node to a source location. It mirrors
// token.Location but is the stable, public-facing form AST consumers see.
type Position struct {
	FileID     string
	Line       int
	Column     int
	ByteOffset int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.FileID, p.Line, p.Column)
}

// FromLocation converts a lexer/parser token.Location into a Position.
func FromLocation(loc token.Location) Position {
	return Position{FileID: loc.FileID, Line: loc.Line, Column: loc.Column, ByteOffset: loc.ByteOffset}
}

// Node is satisfied by every AST node, declaration or expression.
type Node interface {
	Pos() Position
	String() string
}

// Property is one `identifier = expression` entry. Properties are kept in
// a slice (not a map) so that Section.Properties can preserve insertion
// order end to end, per the ordering invariant in the data model.
type Property struct {
	Key   string
	Value Expression
	Pos   Position
}

// PropertyList is an insertion-ordered mapping from Identifier to
// Expression. Lookup is O(n) by design: property lists are small (tens of
// entries, not thousands) and the ordering guarantee matters more than
// lookup speed.
type PropertyList struct {
	entries []Property
}

// NewPropertyList creates an empty ordered property list.
func NewPropertyList() *PropertyList {
	return &PropertyList{}
}

// Append adds a property, preserving insertion order. The caller is
// responsible for rejecting duplicate keys (the parser does this so it can
// attach a precise diagnostic location).
func (p *PropertyList) Append(prop Property) {
	p.entries = append(p.entries, prop)
}

// Get looks up a property by key. When a key was appended more than once
// (the parser still records a diagnostic for this, but recovers rather than
// dropping the declaration), the most recently appended value wins.
func (p *PropertyList) Get(key string) (Expression, bool) {
	for i := len(p.entries) - 1; i >= 0; i-- {
		if p.entries[i].Key == key {
			return p.entries[i].Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (p *PropertyList) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Entries returns the properties in insertion order. The caller must not
// mutate the returned slice.
func (p *PropertyList) Entries() []Property {
	return p.entries
}

// Set updates the value of an existing key in place, preserving its
// original position, or appends a new entry if key is not yet present. Used
// where a later pass needs to replace a property's value (e.g. promoting a
// repeated nested block into an array) without disturbing the ordering
// invariant for the other entries.
func (p *PropertyList) Set(key string, val Expression, pos Position) {
	for i := range p.entries {
		if p.entries[i].Key == key {
			p.entries[i].Value = val
			return
		}
	}
	p.entries = append(p.entries, Property{Key: key, Value: val, Pos: pos})
}

// Len returns the number of properties.
func (p *PropertyList) Len() int {
	return len(p.entries)
}

// Sorted returns a copy of the entries ordered alphabetically by key, used
// by the pretty printer's --canonicalize style.
func (p *PropertyList) Sorted() []Property {
	out := make([]Property, len(p.entries))
	copy(out, p.entries)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Key > out[j].Key; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
