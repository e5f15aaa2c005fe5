package dirindex

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError describes why a manifest was rejected. Line is 1-based.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dirindex: line %d: %s", e.Line, e.Msg)
}

// Parse builds a DirIndex from raw manifest text.
//
// Each non-empty line splits on ':' into fields. "version:<N>" records the
// format version, "d:<name>[:<hash>]" appends a directory entry,
// "f:<name>:<hash>:<size>" appends a file entry, and "path:<label>" records
// the path label only when the line carries more than two fields (a quirk
// of the wire format that existing servers rely on). Lines with an
// unrecognized leading field are skipped so that newer record kinds do not
// break older clients. A malformed known record rejects the whole manifest:
// sizes and versions must be decimal unsigned integers, never defaulted.
func Parse(data []byte) (*DirIndex, error) {
	idx := &DirIndex{}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		switch fields[0] {
		case "version":
			if len(fields) < 2 {
				return nil, &ParseError{Line: i + 1, Msg: "version record has no value"}
			}
			v, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, &ParseError{Line: i + 1, Msg: fmt.Sprintf("bad version %q", fields[1])}
			}
			idx.Version = v
		case "path":
			if len(fields) > 2 {
				idx.Path = fields[1]
			}
		case "d":
			if len(fields) < 2 {
				return nil, &ParseError{Line: i + 1, Msg: "directory record has no name"}
			}
			e := Entry{Kind: KindDirectory, Name: fields[1]}
			if len(fields) > 2 {
				e.Hash = fields[2]
			}
			idx.Entries = append(idx.Entries, e)
		case "f":
			if len(fields) < 4 {
				return nil, &ParseError{Line: i + 1, Msg: "file record needs name, hash and size"}
			}
			size, err := strconv.ParseUint(fields[3], 10, 64)
			if err != nil {
				return nil, &ParseError{Line: i + 1, Msg: fmt.Sprintf("bad file size %q", fields[3])}
			}
			idx.Entries = append(idx.Entries, Entry{
				Kind: KindFile,
				Name: fields[1],
				Hash: fields[2],
				Size: size,
			})
		default:
			// Unknown record kind (tarball lines, future extensions).
		}
	}
	return idx, nil
}
