//
//
package mission

import "fmt"

// PlanResume builds the waypoint list for resuming a partially flown
// mission. records hold the original mission items with Seq set to their
// original index; originalIndices is the ordered index sequence of that
// mission; resumeFrom is the index to continue at.
//
// The result always starts with the home waypoint (original index 0), then
// every original index from resumeFrom onward, re-sequenced contiguously
// from 0. OriginalSeq keeps each item's pre-resume index so reached
// reports against the new numbering can be mapped back; all other fields
// are preserved.
func PlanResume(records []Waypoint, originalIndices []int, resumeFrom int) ([]Waypoint, error) {
	byIndex := make(map[int]Waypoint, len(records))
	for _, wp := range records {
		byIndex[wp.Seq] = wp
	}

	resumePos := -1
	for pos, idx := range originalIndices {
		if idx == resumeFrom {
			resumePos = pos
			break
		}
	}
	if resumePos < 0 {
		return nil, fmt.Errorf("resume from waypoint %d: %w", resumeFrom, ErrResumePointUnknown)
	}

	home, ok := byIndex[0]
	if !ok {
		return nil, fmt.Errorf("resume from waypoint %d: mission has no home record: %w", resumeFrom, ErrResumePointUnknown)
	}

	picked := []Waypoint{home}
	for _, idx := range originalIndices[resumePos:] {
		if idx == 0 {
			continue
		}
		wp, ok := byIndex[idx]
		if !ok {
			return nil, fmt.Errorf("resume from waypoint %d: no record for index %d: %w", resumeFrom, idx, ErrResumePointUnknown)
		}
		picked = append(picked, wp)
	}

	if len(picked) == 1 {
		return nil, fmt.Errorf("resume from waypoint %d: %w", resumeFrom, ErrMissionComplete)
	}

	out := make([]Waypoint, len(picked))
	for i, wp := range picked {
		wp.OriginalSeq = wp.Seq
		wp.Seq = i
		out[i] = wp
	}
	return out, nil
}
