package domain

import "fmt"

// ValidateResult checks the shape of a complete job's payload before a
// segment index is built from it. A complete status with a malformed
// payload is treated the same as a remote job failure.
func ValidateResult(r *JobResult) error {
	if r == nil {
		return fmt.Errorf("complete job has no result")
	}
	if r.Error != "" {
		return fmt.Errorf("complete job carries error payload: %s", r.Error)
	}
	for i, seg := range r.Segments {
		if seg.Start < 0 {
			return fmt.Errorf("segment %d: negative start %v", i, seg.Start)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("segment %d: end %v before start %v", i, seg.End, seg.Start)
		}
		if seg.Confidence != nil && (*seg.Confidence < 0 || *seg.Confidence > 1) {
			return fmt.Errorf("segment %d: confidence %v outside [0,1]", i, *seg.Confidence)
		}
	}
	return nil
}
