package contract

// TaskScore is one task's relevance as assigned by the model.
type TaskScore struct {
	TaskID string  `json:"task_id"`
	Score  float64 `json:"score"`
}

// ScoringResult is the outcome of one batch rescoring.
type ScoringResult struct {
	Scores          []TaskScore `json:"scores"`
	StrategySummary string      `json:"strategy_summary"`
}

// Top returns the highest positive score, or false when nothing scored above 0.
func (r *ScoringResult) Top() (TaskScore, bool) {
	var best TaskScore
	found := false
	if r == nil {
		return best, false
	}
	for _, s := range r.Scores {
		if s.Score > 0 && (!found || s.Score > best.Score) {
			best, found = s, true
		}
	}
	return best, found
}

// Suggestion is the "do this now" pick.
type Suggestion struct {
	TaskID    string   `json:"task_id"`
	Title     string   `json:"title"`
	Reasoning string   `json:"reasoning"`
	Score     *float64 `json:"score,omitempty"`
	Fallback  bool     `json:"fallback"`
}
