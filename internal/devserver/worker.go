package devserver

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"transcript-navigator/internal/domain"
)

// canned vocabulary the fake transcriber draws segment text from.
var words = strings.Fields(
	"the quick brown fox jumps over the lazy dog while morning light " +
		"slowly fills the quiet room and someone reads the news aloud",
)

const (
	wordsPerSegment = 4
	secondsPerWord  = 0.6
)

// synthesizeResult builds a deterministic transcript for an upload:
// segment count and word choice derive from the filename and payload
// size, so repeated runs against the same file agree.
func synthesizeResult(filename string, size int) *domain.JobResult {
	h := fnv.New32a()
	h.Write([]byte(filename))
	seed := int(h.Sum32())

	segmentCount := 2 + (size/1024+seed)%6
	result := &domain.JobResult{Language: "en"}

	var full []string
	cursor := 0.0
	for i := 0; i < segmentCount; i++ {
		var picked []string
		for w := 0; w < wordsPerSegment; w++ {
			picked = append(picked, words[(seed+i*wordsPerSegment+w)%len(words)])
		}
		text := strings.Join(picked, " ")
		full = append(full, text)

		conf := 0.6 + float64((seed+i)%40)/100
		end := cursor + wordsPerSegment*secondsPerWord
		result.Segments = append(result.Segments, domain.Segment{
			ID:         i,
			Start:      cursor,
			End:        end,
			Text:       text,
			Confidence: &conf,
		})
		cursor = end
	}

	result.Text = strings.Join(full, " ")
	return result
}

// runJob drives one job through processing to a terminal state,
// mirroring the background worker of the real service.
func (s *Server) runJob(id, filename string, size int) {
	if err := s.store.SetStatus(id, domain.JobStatusProcessing); err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("mark processing")
		return
	}

	if s.processingDelay > 0 {
		time.Sleep(s.processingDelay)
	}

	if size == 0 {
		err := s.store.SetResult(id, domain.JobStatusError,
			&domain.JobResult{Error: fmt.Sprintf("audio file '%s' is empty", filename)})
		if err != nil {
			s.log.Error().Err(err).Str("job_id", id).Msg("mark error")
		}
		return
	}

	if err := s.store.SetResult(id, domain.JobStatusComplete, synthesizeResult(filename, size)); err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("mark complete")
		return
	}
	s.log.Info().Str("job_id", id).Str("filename", filename).Msg("fake transcription complete")
}
