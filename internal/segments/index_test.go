package segments

import (
	"testing"

	"github.com/stretchr/testify/require"

	"transcript-navigator/internal/domain"
)

func seg(id int, start, end float64, text string) domain.Segment {
	return domain.Segment{ID: id, Start: start, End: end, Text: text}
}

func TestBuildSortsByStartThenID(t *testing.T) {
	idx := Build([]domain.Segment{
		seg(3, 4, 6, "late"),
		seg(2, 1, 2, "tie-b"),
		seg(1, 1, 3, "tie-a"),
		seg(0, 0, 1, "first"),
	})

	require.Equal(t, 4, idx.Len())
	require.Equal(t, []int{0, 1, 2, 3}, []int{
		idx.At(0).ID, idx.At(1).ID, idx.At(2).ID, idx.At(3).ID,
	})
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	raw := []domain.Segment{seg(1, 5, 6, "b"), seg(0, 0, 1, "a")}
	Build(raw)
	require.Equal(t, 1, raw[0].ID, "input order must be preserved")
}

func TestQueryBasicContainment(t *testing.T) {
	idx := Build([]domain.Segment{seg(0, 0, 2, "hi"), seg(1, 2, 5, "there")})

	i, ok := idx.Query(1.0)
	require.True(t, ok)
	require.Equal(t, 0, i)

	// A shared boundary instant belongs to the following segment only.
	i, ok = idx.Query(2.0)
	require.True(t, ok)
	require.Equal(t, 1, i)

	// End is inclusive for the final segment.
	i, ok = idx.Query(5.0)
	require.True(t, ok)
	require.Equal(t, 1, i)

	_, ok = idx.Query(5.1)
	require.False(t, ok)
}

func TestQueryGapReturnsNone(t *testing.T) {
	idx := Build([]domain.Segment{seg(0, 0, 1, "a"), seg(1, 3, 4, "b")})

	_, ok := idx.Query(2.0)
	require.False(t, ok, "gap between segments is not an error, just no match")

	_, ok = idx.Query(-0.5)
	require.False(t, ok)
}

func TestQueryOverlapFirstSortedMatchWins(t *testing.T) {
	idx := Build([]domain.Segment{seg(0, 0, 4, "wide"), seg(1, 2, 3, "inner")})

	i, ok := idx.Query(2.5)
	require.True(t, ok)
	require.Equal(t, 0, i, "overlaps resolve to the lowest-start segment")
}

func TestQueryDeterministic(t *testing.T) {
	idx := Build([]domain.Segment{seg(0, 0, 2, "a"), seg(1, 2, 5, "b")})

	for n := 0; n < 3; n++ {
		i, ok := idx.Query(3.3)
		require.True(t, ok)
		require.Equal(t, 1, i)
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	var idx Index
	_, ok := idx.Query(0)
	require.False(t, ok)
	require.Equal(t, 0, idx.Len())
}

func TestFullTextJoinsInPlaybackOrder(t *testing.T) {
	idx := Build([]domain.Segment{
		seg(1, 2, 5, " there "),
		seg(0, 0, 2, "hi"),
		seg(2, 5, 6, ""),
	})

	require.Equal(t, "hi there", idx.FullText())
}
