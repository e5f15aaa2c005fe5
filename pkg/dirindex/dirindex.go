// Package dirindex models the .dirindex manifest format published by
// TerraSync scenery servers: a line-oriented, colon-delimited listing of one
// remote directory's immediate children.
package dirindex

import "encoding/json"

// Kind discriminates directory entries.
type Kind uint8

const (
	// KindFile is a downloadable file with a known size.
	KindFile Kind = iota
	// KindDirectory is a subdirectory that publishes its own manifest.
	KindDirectory
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as its name rather than a raw number.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Entry is one child listed by a manifest.
type Entry struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// Size is the content size in bytes. Meaningful for KindFile only.
	Size uint64 `json:"size"`

	// Hash is the content hash published alongside the entry, when the
	// server provides one. Informational unless hash verification is
	// enabled at open time.
	Hash string `json:"hash,omitempty"`
}

// IsDir reports whether the entry names a subdirectory.
func (e Entry) IsDir() bool { return e.Kind == KindDirectory }

// DirIndex is one parsed manifest. Immutable after Parse.
type DirIndex struct {
	// Version is the manifest format version as published. Recorded but
	// never used to reject a manifest.
	Version uint64 `json:"version"`

	// Path is the manifest's own informational path label, when present.
	Path string `json:"path,omitempty"`

	// Entries preserves the order children appeared in the source text.
	Entries []Entry `json:"entries"`
}

// Find returns the first entry named name, in stored order.
func (d *DirIndex) Find(name string) (Entry, bool) {
	for _, e := range d.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
