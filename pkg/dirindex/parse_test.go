package dirindex

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestParse_Basic(t *testing.T) {
	idx, err := Parse([]byte("version:1\nd:sub\nf:readme.txt:x:1234"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx.Version != 1 {
		t.Errorf("Version = %d, want 1", idx.Version)
	}
	want := []Entry{
		{Kind: KindDirectory, Name: "sub"},
		{Kind: KindFile, Name: "readme.txt", Hash: "x", Size: 1234},
	}
	if diff := deep.Equal(idx.Entries, want); diff != nil {
		t.Error(diff)
	}
}

func TestParse_RealisticManifest(t *testing.T) {
	text := strings.Join([]string{
		"version:1",
		"path:Terrain/e000n40",
		"d:e000n40:8b7339a686e2a1fe3a7b3230bd45ea2338e44471",
		"f:e000n40.stg:d41d8cd98f00b204e9800998ecf8427e:512",
		"t:e000n40.tgz:deadbeef:102400",
		"",
	}, "\n")

	idx, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Two-field path records are ignored on the wire.
	if idx.Path != "" {
		t.Errorf("Path = %q, want empty", idx.Path)
	}
	want := []Entry{
		{Kind: KindDirectory, Name: "e000n40", Hash: "8b7339a686e2a1fe3a7b3230bd45ea2338e44471"},
		{Kind: KindFile, Name: "e000n40.stg", Hash: "d41d8cd98f00b204e9800998ecf8427e", Size: 512},
	}
	if diff := deep.Equal(idx.Entries, want); diff != nil {
		t.Error(diff)
	}
}

func TestParse_PathLabel(t *testing.T) {
	idx, err := Parse([]byte("path:Models:x\nd:a"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx.Path != "Models" {
		t.Errorf("Path = %q, want %q", idx.Path, "Models")
	}
}

func TestParse_UnknownKindsSkipped(t *testing.T) {
	idx, err := Parse([]byte("z:mystery\n:leading\nwhatever\nd:kept"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(idx.Entries) != 1 || idx.Entries[0].Name != "kept" {
		t.Errorf("Entries = %+v, want only %q", idx.Entries, "kept")
	}
}

func TestParse_CRLF(t *testing.T) {
	idx, err := Parse([]byte("version:2\r\nf:a:h:5\r\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx.Version != 2 {
		t.Errorf("Version = %d, want 2", idx.Version)
	}
	if len(idx.Entries) != 1 || idx.Entries[0].Size != 5 {
		t.Errorf("Entries = %+v, want one 5-byte file", idx.Entries)
	}
}

func TestParse_Empty(t *testing.T) {
	idx, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if idx.Version != 0 || len(idx.Entries) != 0 {
		t.Errorf("got %+v, want empty manifest", idx)
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []struct {
		name string
		text string
		line int
	}{
		{"non-numeric size", "f:a:h:12x4", 1},
		{"missing size field", "d:ok\nf:a:h", 2},
		{"bare directory record", "d", 1},
		{"non-numeric version", "version:abc", 1},
		{"missing version value", "version", 1},
		{"negative size", "f:a:h:-1", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.text))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T, want *ParseError", err)
			}
			if perr.Line != tc.line {
				t.Errorf("Line = %d, want %d", perr.Line, tc.line)
			}
		})
	}
}

func TestFind_FirstMatchWins(t *testing.T) {
	idx, err := Parse([]byte("f:x:h:1\nd:x\nd:y"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	e, ok := idx.Find("x")
	if !ok {
		t.Fatal("Find(x) = not found")
	}
	if e.Kind != KindFile || e.Size != 1 {
		t.Errorf("Find(x) = %+v, want the file entry", e)
	}
	if _, ok := idx.Find("missing"); ok {
		t.Error("Find(missing) = found, want not found")
	}
}

func TestKind_JSON(t *testing.T) {
	out, err := json.Marshal(Entry{Kind: KindDirectory, Name: "a"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"kind":"directory"`) {
		t.Errorf("Marshal = %s, want kind spelled out", out)
	}
}
