package fetch

import (
	"iter"
	"slices"
)

// Record is one unit of input. Records are compared by content; duplicates
// are legal and processed independently.
type Record struct {
	// Seq is the 1-based position of the record in its source.
	Seq int
	// Title is the query text looked up remotely.
	Title string
}

// LookupResult pairs a record with the raw payload returned for it. A
// failed lookup carries Err and an empty payload.
type LookupResult struct {
	Record  Record
	Payload []byte
	Err     error
}

// Failed reports whether the lookup produced no usable payload.
func (r LookupResult) Failed() bool {
	return r.Err != nil
}

// Identifier is an optional token extracted from a lookup payload.
// The zero value is absent.
type Identifier struct {
	value string
	ok    bool
}

// Resolved returns a present identifier. An empty value is absent.
func Resolved(value string) Identifier {
	if value == "" {
		return Absent()
	}
	return Identifier{value: value, ok: true}
}

// Absent returns an identifier that was not found.
func Absent() Identifier {
	return Identifier{}
}

// Get returns the identifier value and whether it is present.
func (id Identifier) Get() (string, bool) {
	return id.value, id.ok
}

// IsResolved reports whether the identifier is present.
func (id Identifier) IsResolved() bool {
	return id.ok
}

// String returns the value, or "" when absent.
func (id Identifier) String() string {
	return id.value
}

// ParsedResult pairs a record with the identifier found for it.
type ParsedResult struct {
	Record     Record
	Identifier Identifier
}

// Document is the ordered, append-only output of a run.
type Document struct {
	entries []ParsedResult
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// Append adds entries in order. Identical entries are kept.
func (d *Document) Append(entries ...ParsedResult) {
	d.entries = append(d.entries, entries...)
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the entries.
func (d *Document) Entries() []ParsedResult {
	return slices.Clone(d.entries)
}

// All iterates the entries in document order.
func (d *Document) All() iter.Seq2[int, ParsedResult] {
	return slices.All(d.entries)
}

// Resolved returns the number of entries with a present identifier.
func (d *Document) Resolved() int {
	n := 0
	for _, e := range d.entries {
		if e.Identifier.IsResolved() {
			n++
		}
	}
	return n
}
