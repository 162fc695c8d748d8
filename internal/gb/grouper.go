package gb

// SplitOversized separates files larger than capBytes from the rest.
// Both results keep the input order.
func SplitOversized(files []FileEntry, capBytes int64) (normal, oversized []FileEntry) {
	for _, f := range files {
		if f.Size > capBytes {
			oversized = append(oversized, f)
			continue
		}
		normal = append(normal, f)
	}
	return normal, oversized
}

// GroupFiles packs files into groups of at most capBytes each.
//
// Packing is greedy and sequential: a group is closed as soon as the next
// file would push it over the cap, and files are never reordered. Group
// numbers depend on this, so do not replace it with a better packer.
// Callers are expected to remove oversized files first (see SplitOversized);
// a file larger than the cap that slips through ends up alone in its group.
func GroupFiles(files []FileEntry, capBytes int64) *Partition {
	var st packState
	for _, f := range files {
		st = st.add(f, capBytes)
	}
	st = st.close()
	return &Partition{Groups: st.closed}
}

// packState is the fold accumulator for GroupFiles.
type packState struct {
	closed  []Group
	current []FileEntry
	size    int64
}

func (st packState) add(f FileEntry, capBytes int64) packState {
	if len(st.current) > 0 && st.size+f.Size > capBytes {
		st = st.close()
	}
	st.current = append(st.current, f)
	st.size += f.Size
	return st
}

// close moves the current accumulator into closed. Empty accumulators are dropped.
func (st packState) close() packState {
	if len(st.current) == 0 {
		return st
	}
	st.closed = append(st.closed, Group{Number: len(st.closed) + 1, Files: st.current})
	st.current = nil
	st.size = 0
	return st
}
