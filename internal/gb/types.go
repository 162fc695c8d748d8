package gb

// FileEntry is a regular file found by a scan.
// RelativePath is slash-separated and relative to the scan root.
type FileEntry struct {
	RelativePath string
	Size         int64
}

// Group is one size-bounded slice of a partition.
// Number is assigned when the group is closed and never recomputed.
type Group struct {
	Number int
	Files  []FileEntry
}

// TotalSize returns the sum of the sizes of all files in the group.
func (g Group) TotalSize() int64 {
	var total int64
	for _, f := range g.Files {
		total += f.Size
	}
	return total
}

// Partition is the ordered set of groups produced by one scan.
type Partition struct {
	Groups []Group
}

// Find returns the group with the given number.
func (p *Partition) Find(number int) (Group, bool) {
	for _, g := range p.Groups {
		if g.Number == number {
			return g, true
		}
	}
	return Group{}, false
}

// FileCount returns the number of files across all groups.
func (p *Partition) FileCount() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Files)
	}
	return n
}

// GroupSummary is the per-group line shown by `gb view`.
type GroupSummary struct {
	Number    int
	FileCount int
	TotalSize int64
}

// Summaries returns one summary per group, in partition order.
func (p *Partition) Summaries() []GroupSummary {
	out := make([]GroupSummary, len(p.Groups))
	for i, g := range p.Groups {
		out[i] = GroupSummary{
			Number:    g.Number,
			FileCount: len(g.Files),
			TotalSize: g.TotalSize(),
		}
	}
	return out
}

// ScanWarning records an entry the scanner skipped.
type ScanWarning struct {
	Path string
	Err  error
}

// ScanResult is the output of FilesystemManager.Scan.
// Normal and Oversized are both in traversal order.
type ScanResult struct {
	Normal    []FileEntry
	Oversized []FileEntry
	Warnings  []ScanWarning
}

// ListResult is returned by GBService.List.
type ListResult struct {
	Partition     *Partition
	Oversized     []FileEntry
	Warnings      []ScanWarning
	PartitionPath string
}
