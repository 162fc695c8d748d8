package gb

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"
)

func entries(sizes ...int64) []FileEntry {
	out := make([]FileEntry, len(sizes))
	for i, s := range sizes {
		out[i] = FileEntry{RelativePath: fmt.Sprintf("f%d", i+1), Size: s}
	}
	return out
}

// layout returns the file paths of each group, for compact comparisons.
func layout(p *Partition) [][]string {
	out := make([][]string, len(p.Groups))
	for i, g := range p.Groups {
		for _, f := range g.Files {
			out[i] = append(out[i], f.RelativePath)
		}
	}
	return out
}

func TestGroupFiles(t *testing.T) {
	tests := []struct {
		name  string
		files []FileEntry
		cap   int64
		want  [][]string
	}{
		{
			name:  "five equal files, two per group",
			files: entries(GiB, GiB, GiB, GiB, GiB),
			cap:   2 * GiB,
			want:  [][]string{{"f1", "f2"}, {"f3", "f4"}, {"f5"}},
		},
		{
			name:  "exact fill closes on the next file",
			files: entries(3, 2, 1),
			cap:   5,
			want:  [][]string{{"f1", "f2"}, {"f3"}},
		},
		{
			name:  "no reordering to fill gaps",
			files: entries(4, 3, 1),
			cap:   5,
			want:  [][]string{{"f1"}, {"f2", "f3"}},
		},
		{
			name:  "file equal to cap gets its own group",
			files: entries(1, 5, 1),
			cap:   5,
			want:  [][]string{{"f1"}, {"f2"}, {"f3"}},
		},
		{
			name:  "zero-size files join the current group",
			files: entries(5, 0, 0, 1),
			cap:   5,
			want:  [][]string{{"f1", "f2", "f3"}, {"f4"}},
		},
		{
			name:  "empty input",
			files: nil,
			cap:   5,
			want:  [][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := GroupFiles(tt.files, tt.cap)
			if got := layout(p); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GroupFiles() = %v, want %v", got, tt.want)
			}
			for i, g := range p.Groups {
				if g.Number != i+1 {
					t.Errorf("group %d has Number %d", i, g.Number)
				}
			}
		})
	}
}

func TestSplitOversized(t *testing.T) {
	files := []FileEntry{
		{RelativePath: "small", Size: GiB},
		{RelativePath: "huge", Size: 3 * GiB},
		{RelativePath: "exact", Size: 2 * GiB},
		{RelativePath: "one-over", Size: 2*GiB + 1},
	}

	normal, oversized := SplitOversized(files, 2*GiB)

	wantNormal := []FileEntry{files[0], files[2]}
	wantOversized := []FileEntry{files[1], files[3]}
	if !reflect.DeepEqual(normal, wantNormal) {
		t.Errorf("normal = %v, want %v", normal, wantNormal)
	}
	if !reflect.DeepEqual(oversized, wantOversized) {
		t.Errorf("oversized = %v, want %v", oversized, wantOversized)
	}
}

func TestGroupFiles_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1024))

	for iter := 0; iter < 500; iter++ {
		capBytes := rng.Int64N(1000) + 1
		n := rng.IntN(40)
		files := make([]FileEntry, n)
		for i := range files {
			files[i] = FileEntry{RelativePath: fmt.Sprintf("f%d", i), Size: rng.Int64N(capBytes + capBytes/2 + 1)}
		}

		normal, oversized := SplitOversized(files, capBytes)
		p := GroupFiles(normal, capBytes)

		// Every input file appears exactly once, in order, across groups and oversized.
		if got := p.FileCount() + len(oversized); got != n {
			t.Fatalf("iter %d: %d files in, %d out", iter, n, got)
		}
		var flat []FileEntry
		for _, g := range p.Groups {
			flat = append(flat, g.Files...)
		}
		if len(normal) > 0 && !reflect.DeepEqual(flat, normal) {
			t.Fatalf("iter %d: grouping reordered or dropped files", iter)
		}

		for i, g := range p.Groups {
			if len(g.Files) == 0 {
				t.Fatalf("iter %d: group %d is empty", iter, g.Number)
			}
			if g.Number != i+1 {
				t.Fatalf("iter %d: group at %d numbered %d", iter, i, g.Number)
			}
			if g.TotalSize() > capBytes {
				t.Fatalf("iter %d: group %d total %d exceeds cap %d", iter, g.Number, g.TotalSize(), capBytes)
			}
			// Greedy: the next group's first file did not fit in this one.
			if i+1 < len(p.Groups) {
				next := p.Groups[i+1].Files[0]
				if g.TotalSize()+next.Size <= capBytes {
					t.Fatalf("iter %d: group %d closed early", iter, g.Number)
				}
			}
		}

		for _, f := range oversized {
			if f.Size <= capBytes {
				t.Fatalf("iter %d: %s (%d) wrongly oversized for cap %d", iter, f.RelativePath, f.Size, capBytes)
			}
		}
	}
}

func TestPartition_Summaries(t *testing.T) {
	p := GroupFiles(entries(3, 2, 4), 5)
	want := []GroupSummary{
		{Number: 1, FileCount: 2, TotalSize: 5},
		{Number: 2, FileCount: 1, TotalSize: 4},
	}
	if got := p.Summaries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Summaries() = %+v, want %+v", got, want)
	}

	if _, ok := p.Find(3); ok {
		t.Error("Find(3) found a group that does not exist")
	}
	if g, ok := p.Find(2); !ok || g.Files[0].RelativePath != "f3" {
		t.Errorf("Find(2) = %+v, %v", g, ok)
	}
}
