package gb

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// GiB is the unit used for bare group sizes and for displayed totals.
const GiB int64 = 1 << 30

// ParseGroupSize converts a group size setting to bytes.
// A bare integer is a number of GiB ("23" -> 23 GiB). Anything else is
// parsed as a human size, e.g. "4.7GB", "700MiB" or "1.5 TB".
func ParseGroupSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty group size")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("group size must be positive: %q", s)
		}
		if n > math.MaxInt64/GiB {
			return 0, fmt.Errorf("group size out of range: %q GiB", s)
		}
		return n * GiB, nil
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid group size %q: %w", s, err)
	}
	if n == 0 || n > uint64(1<<62) {
		return 0, fmt.Errorf("group size out of range: %q", s)
	}
	return int64(n), nil
}

// FormatGB renders a byte count as GiB with two decimals, e.g. "1.50 GB".
func FormatGB(size int64) string {
	return fmt.Sprintf("%.2f GB", float64(size)/float64(GiB))
}
