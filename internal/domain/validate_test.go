package domain

import (
	"strings"
	"testing"
)

// TestValidateResultAcceptsWellFormedPayload checks the happy path.
func TestValidateResultAcceptsWellFormedPayload(t *testing.T) {
	conf := 0.92
	result := &JobResult{
		Text: "hi there",
		Segments: []Segment{
			{ID: 0, Start: 0, End: 2, Text: "hi", Confidence: &conf},
			{ID: 1, Start: 2, End: 5, Text: "there"},
		},
		Language: "en",
	}

	if err := ValidateResult(result); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

// TestValidateResultRejectsMalformedPayloads covers each shape rule.
func TestValidateResultRejectsMalformedPayloads(t *testing.T) {
	bad := 1.5
	cases := []struct {
		name   string
		result *JobResult
		want   string
	}{
		{"nil result", nil, "no result"},
		{"error payload", &JobResult{Error: "boom"}, "error payload"},
		{"negative start", &JobResult{Segments: []Segment{{Start: -1, End: 1}}}, "negative start"},
		{"end before start", &JobResult{Segments: []Segment{{Start: 3, End: 1}}}, "before start"},
		{"confidence range", &JobResult{Segments: []Segment{{Start: 0, End: 1, Confidence: &bad}}}, "outside [0,1]"},
	}

	for _, tc := range cases {
		err := ValidateResult(tc.result)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error = %q, want substring %q", tc.name, err, tc.want)
		}
	}
}

// TestJobStatusTerminalAndRank verifies the forward-only ordering.
func TestJobStatusTerminalAndRank(t *testing.T) {
	if JobStatusQueued.Terminal() || JobStatusProcessing.Terminal() {
		t.Fatal("non-terminal statuses reported terminal")
	}
	if !JobStatusComplete.Terminal() || !JobStatusError.Terminal() {
		t.Fatal("terminal statuses not reported terminal")
	}

	if !(JobStatusQueued.Rank() < JobStatusProcessing.Rank()) {
		t.Fatal("queued must rank below processing")
	}
	if !(JobStatusProcessing.Rank() < JobStatusComplete.Rank()) {
		t.Fatal("processing must rank below complete")
	}
	if JobStatusComplete.Rank() != JobStatusError.Rank() {
		t.Fatal("both terminal statuses share the final rank")
	}
	if JobStatus("bogus").Rank() != -1 {
		t.Fatal("unknown status must rank -1")
	}
}
