package export

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/neptune-utils/pkg/gremlin"
)

// Range selects elements [Start, End) of a traversal. An End of -1 means
// unbounded.
type Range struct {
	Start int64
	End   int64
}

// AllRange selects every element.
var AllRange = Range{Start: 0, End: -1}

// IsAll reports whether r selects every element.
func (r Range) IsAll() bool { return r.Start <= 0 && r.End < 0 }

// Size returns the number of elements in r, or -1 when unbounded.
func (r Range) Size() int64 {
	if r.End < 0 {
		return -1
	}
	return r.End - r.Start
}

func (r Range) String() string {
	if r.End < 0 {
		return fmt.Sprintf("range(%d, all)", r.Start)
	}
	return fmt.Sprintf("range(%d, %d)", r.Start, r.End)
}

// apply appends a range step unless r selects everything.
func (r Range) apply(t *gremlin.Traversal) *gremlin.Traversal {
	if r.IsAll() {
		return t
	}
	return t.Range(r.Start, r.End)
}

// Partition splits count elements into at most n contiguous ranges of
// near-equal size. The last range is unbounded so elements added during
// the export are still picked up.
func Partition(count int64, n int) []Range {
	if n < 1 || count <= 0 {
		return []Range{AllRange}
	}
	if int64(n) > count {
		n = int(count)
	}
	size := count / int64(n)
	if count%int64(n) != 0 {
		size++
	}

	ranges := make([]Range, 0, n)
	for start := int64(0); start < count; start += size {
		ranges = append(ranges, Range{Start: start, End: start + size})
	}
	ranges[len(ranges)-1].End = -1
	return ranges
}

// LabelsFilter restricts a scan to some labels. The zero value selects all.
type LabelsFilter struct {
	labels []string
}

// AllLabels selects every label.
var AllLabels = LabelsFilter{}

// SpecifiedLabels selects the given labels. Blank entries are ignored and
// an empty list selects every label.
func SpecifiedLabels(labels ...string) LabelsFilter {
	var out []string
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return LabelsFilter{labels: out}
}

// All reports whether the filter selects every label.
func (f LabelsFilter) All() bool { return len(f.labels) == 0 }

// Labels returns the selected labels, nil for all.
func (f LabelsFilter) Labels() []string { return slices.Clone(f.labels) }

// Description names what the filter selects, e.g. "all nodes" or
// "nodes with label(s) person, software".
func (f LabelsFilter) Description(element string) string {
	if f.All() {
		return "all " + element
	}
	return element + " with label(s) " + strings.Join(f.labels, ", ")
}

func (f LabelsFilter) apply(t *gremlin.Traversal) *gremlin.Traversal {
	if f.All() {
		return t
	}
	labels := make([]any, len(f.labels))
	for i, l := range f.labels {
		labels[i] = l
	}
	return t.HasLabel(labels...)
}
