package cmd

import (
	"testing"

	"github.com/go-test/deep"
)

func TestParseMountOptions(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want mountOptions
	}{
		{
			name: "server and staticroot",
			spec: "server=http://example.org/scenery,staticroot",
			want: mountOptions{
				Server:     "http://example.org/scenery",
				StaticRoot: boolPtr(true),
			},
		},
		{
			name: "nostaticroot",
			spec: "nostaticroot",
			want: mountOptions{StaticRoot: boolPtr(false)},
		},
		{
			name: "flag style true",
			spec: "--staticroot=true",
			want: mountOptions{StaticRoot: boolPtr(true)},
		},
		{
			name: "flag style false",
			spec: "--staticroot=false",
			want: mountOptions{StaticRoot: boolPtr(false)},
		},
		{
			name: "unknown options pass through",
			spec: "allow_other,uid=1000,server=http://x",
			want: mountOptions{
				Server:      "http://x",
				Passthrough: []string{"allow_other", "uid=1000"},
			},
		},
		{
			name: "empty elements skipped",
			spec: "staticroot,,",
			want: mountOptions{StaticRoot: boolPtr(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got mountOptions
			if err := parseMountOptions(tt.spec, &got); err != nil {
				t.Fatalf("parseMountOptions(%q): %v", tt.spec, err)
			}
			if diff := deep.Equal(got, tt.want); diff != nil {
				t.Errorf("parseMountOptions(%q) mismatch:\n%s", tt.spec, diff)
			}
		})
	}
}

func TestParseMountOptionsErrors(t *testing.T) {
	for _, spec := range []string{"server=", "server", "--staticroot=maybe"} {
		var opts mountOptions
		if err := parseMountOptions(spec, &opts); err == nil {
			t.Errorf("parseMountOptions(%q) succeeded, want error", spec)
		}
	}
}

func TestParseMountOptionsLaterWins(t *testing.T) {
	var opts mountOptions
	if err := parseMountOptions("staticroot,nostaticroot", &opts); err != nil {
		t.Fatal(err)
	}
	if opts.StaticRoot == nil || *opts.StaticRoot {
		t.Error("later nostaticroot did not override earlier staticroot")
	}
}
