// Package timeslice models the year coverage of time-sliced data files.
// Every artifact flowing through a chain is an opaque file plus the set of
// years it represents; this package owns that set type and the filename
// convention it is parsed from.
package timeslice

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// YearSet is a sorted, duplicate-free set of calendar years.
type YearSet []int

// New builds a YearSet from the given years, sorting and de-duplicating.
func New(years ...int) YearSet {
	set := make(map[int]struct{}, len(years))
	for _, y := range years {
		set[y] = struct{}{}
	}
	out := make(YearSet, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Range builds the contiguous YearSet [first, last]. It panics if last is
// before first, which is a programmer error at every call site.
func Range(first, last int) YearSet {
	if last < first {
		panic(fmt.Sprintf("timeslice: invalid year range %d-%d", first, last))
	}
	out := make(YearSet, 0, last-first+1)
	for y := first; y <= last; y++ {
		out = append(out, y)
	}
	return out
}

// First returns the earliest year in the set.
func (s YearSet) First() int {
	if len(s) == 0 {
		panic("timeslice: First on empty YearSet")
	}
	return s[0]
}

// Last returns the latest year in the set.
func (s YearSet) Last() int {
	if len(s) == 0 {
		panic("timeslice: Last on empty YearSet")
	}
	return s[len(s)-1]
}

// Len returns the number of years in the set.
func (s YearSet) Len() int { return len(s) }

// Contains reports whether the set includes the given year.
func (s YearSet) Contains(year int) bool {
	i := sort.SearchInts(s, year)
	return i < len(s) && s[i] == year
}

// Overlaps reports whether the two sets share at least one year.
func (s YearSet) Overlaps(o YearSet) bool {
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] == o[j]:
			return true
		case s[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return false
}

// Union returns a new set containing every year from both sets.
func (s YearSet) Union(o YearSet) YearSet {
	merged := make([]int, 0, len(s)+len(o))
	merged = append(merged, s...)
	merged = append(merged, o...)
	return New(merged...)
}

// Label renders the set for use in filenames: a single year as "1850", a
// span as "1850-1859". The span form does not require the years to be
// contiguous; it names the covered range.
func (s YearSet) Label() string {
	if len(s) == 0 {
		return ""
	}
	if len(s) == 1 {
		return strconv.Itoa(s[0])
	}
	return fmt.Sprintf("%d-%d", s.First(), s.Last())
}

// String implements fmt.Stringer using the Label form.
func (s YearSet) String() string { return s.Label() }

// fileYears matches the trailing year designator of a source filename,
// either "_1850" or "_1850-1859", before the file extension.
var fileYears = regexp.MustCompile(`_(\d{4})(?:-(\d{4}))?$`)

// ParseFileYears extracts the year coverage from a source filename. The
// convention is a trailing "_YYYY" or "_YYYY-YYYY" before the extension,
// e.g. "tas_day_1850-1859.nc".
func ParseFileYears(path string) (YearSet, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	m := fileYears.FindStringSubmatch(stem)
	if m == nil {
		return nil, fmt.Errorf("no year designator (_YYYY or _YYYY-YYYY) in filename %q", base)
	}
	first, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("invalid year in filename %q: %w", base, err)
	}
	if m[2] == "" {
		return New(first), nil
	}
	last, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("invalid year in filename %q: %w", base, err)
	}
	if last < first {
		return nil, fmt.Errorf("year range is reversed in filename %q", base)
	}
	return Range(first, last), nil
}
