package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"gb-go/internal/gb"
)

// Delimiter separates the columns of the partition file.
const Delimiter = '|'

// header is the first row of every partition file. It must match exactly.
var header = []string{"Group Number", "File Path", "File Size (bytes)"}

// Encode writes p as a delimited table: a header row followed by one row
// per file, groups in order and files in group order. Fields containing the
// delimiter, quotes or newlines are quoted.
func Encode(w io.Writer, p *gb.Partition) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, g := range p.Groups {
		for _, f := range g.Files {
			row := []string{
				strconv.Itoa(g.Number),
				f.RelativePath,
				strconv.FormatInt(f.Size, 10),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing row for %s: %w", f.RelativePath, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing partition: %w", err)
	}
	return nil
}

// Decode reads a table written by Encode. An empty input or a header with
// no rows yields gb.ErrNoData; any structural problem yields an error
// wrapping gb.ErrMalformed. Groups keep the order in which their number
// first appears.
func Decode(r io.Reader) (*gb.Partition, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = len(header)
	cr.ReuseRecord = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, gb.ErrNoData
	}
	if err != nil {
		return nil, malformed("reading header: %v", err)
	}
	if !equalRow(first, header) {
		return nil, malformed("unexpected header %q", strings.Join(first, string(Delimiter)))
	}

	p := &gb.Partition{}
	index := make(map[int]int)

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed("%v", err)
		}
		line, _ := cr.FieldPos(0)

		number, err := strconv.Atoi(row[0])
		if err != nil || number < 1 {
			return nil, malformed("line %d: invalid group number %q", line, row[0])
		}
		rel := row[1]
		if !validRelativePath(rel) {
			return nil, malformed("line %d: invalid file path %q", line, rel)
		}
		size, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil || size < 0 {
			return nil, malformed("line %d: invalid file size %q", line, row[2])
		}

		i, ok := index[number]
		if !ok {
			i = len(p.Groups)
			index[number] = i
			p.Groups = append(p.Groups, gb.Group{Number: number})
		}
		p.Groups[i].Files = append(p.Groups[i].Files, gb.FileEntry{RelativePath: rel, Size: size})
	}

	if len(p.Groups) == 0 {
		return nil, gb.ErrNoData
	}
	return p, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", gb.ErrMalformed, fmt.Sprintf(format, args...))
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// validRelativePath rejects paths that would escape the scan root.
func validRelativePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	return clean != "." && clean != ".." && !strings.HasPrefix(clean, "../")
}
