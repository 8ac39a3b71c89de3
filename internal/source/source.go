// Package source models document sources handed to the viewer: plain
// references (paths, URLs), materialized bytes, and short-lived in-memory
// blob handles registered by the shell's upload affordance.
package source

import (
	"bytes"
	"path"
	"strings"
)

// BlobScheme prefixes references that name an entry in a blob Store.
const BlobScheme = "blob:"

// Source is an opaque document source: either a reference or bytes.
type Source struct {
	Ref  string // Path, URL, or blob handle.
	Name string // Display name; defaults to the last element of Ref.
	Data []byte // Materialized content; when set, Ref is informational.
}

// Ref returns a reference source.
func Ref(ref string) Source {
	return Source{Ref: ref}
}

// Bytes returns a materialized source.
func Bytes(name string, data []byte) Source {
	return Source{Name: name, Data: data}
}

// IsZero reports whether s names no document.
func (s Source) IsZero() bool {
	return s.Ref == "" && s.Data == nil
}

// IsBlob reports whether s is a blob handle that still needs fetching.
func (s Source) IsBlob() bool {
	return s.Data == nil && strings.HasPrefix(s.Ref, BlobScheme)
}

// HasData reports whether s carries materialized content.
func (s Source) HasData() bool {
	return s.Data != nil
}

// DisplayName returns a short human-readable label for s.
func (s Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Ref == "" {
		return "(bytes)"
	}
	return path.Base(s.Ref)
}

func (s Source) String() string {
	if s.Ref != "" {
		return s.Ref
	}
	return s.DisplayName()
}

// Equal reports whether two sources name the same document.
func (s Source) Equal(o Source) bool {
	if s.Ref != o.Ref || s.Name != o.Name {
		return false
	}
	if s.Data == nil || o.Data == nil {
		return s.Data == nil && o.Data == nil
	}
	return bytes.Equal(s.Data, o.Data)
}
