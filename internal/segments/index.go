// Package segments provides an immutable, time-sorted view over a
// job's transcript segments with point-in-time queries.
package segments

import (
	"sort"
	"strings"

	"transcript-navigator/internal/domain"
)

// Index is a time-sorted, immutable sequence of segments. The zero
// value is a valid empty index.
type Index struct {
	items []domain.Segment
}

// Build sorts segments by ascending start time, equal starts by
// ascending original ID. The input slice is not modified.
func Build(raw []domain.Segment) Index {
	items := make([]domain.Segment, len(raw))
	copy(items, raw)

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Start != items[j].Start {
			return items[i].Start < items[j].Start
		}
		return items[i].ID < items[j].ID
	})

	return Index{items: items}
}

// Len returns the number of segments in the index.
func (x Index) Len() int {
	return len(x.items)
}

// At returns the segment at sorted position i.
func (x Index) At(i int) domain.Segment {
	return x.items[i]
}

// Segments returns a copy of the sorted sequence.
func (x Index) Segments() []domain.Segment {
	out := make([]domain.Segment, len(x.items))
	copy(out, x.items)
	return out
}

// Query returns the sorted position of the segment active at time t,
// or false when t falls in a gap between segments. A segment matches
// when start <= t < end; end is inclusive only for the last segment,
// so a shared boundary instant never matches two segments. When ranges
// overlap the first match in sorted order wins.
func (x Index) Query(t float64) (int, bool) {
	for i, seg := range x.items {
		if t < seg.Start {
			break
		}
		if t < seg.End {
			return i, true
		}
		if t == seg.End && i == len(x.items)-1 {
			return i, true
		}
	}
	return 0, false
}

// FullText joins the segment texts in playback order.
func (x Index) FullText() string {
	parts := make([]string, 0, len(x.items))
	for _, seg := range x.items {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
