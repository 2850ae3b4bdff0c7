package synthesis

import "fmt"

// InsufficientEvidenceError aborts a run when too few quality-qualifying
// sources exist. The synthesizer refuses to guess: no decision is produced.
type InsufficientEvidenceError struct {
	Subject    string
	Qualifying int
	Required   int
}

func (e *InsufficientEvidenceError) Error() string {
	return fmt.Sprintf("insufficient evidence for %s: %d qualifying sources, need %d",
		e.Subject, e.Qualifying, e.Required)
}
