package shopper

import "strings"

// contextBuilder assembles the human-readable context string of an action
// from "Key: value" fragments. Absent fields are skipped, never recorded as
// empty, so a page missing an element degrades the context instead of
// failing extraction.
type contextBuilder struct {
	parts []string
}

func (b *contextBuilder) add(key, value string) {
	if value == "" {
		return
	}
	b.parts = append(b.parts, key+": "+value)
}

func (b *contextBuilder) String() string {
	return strings.Join(b.parts, "; ")
}
