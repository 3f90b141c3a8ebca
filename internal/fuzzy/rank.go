package fuzzy

import (
	"sort"

	"github.com/alexanderramin/liminal/internal/domain"
)

// Match is a candidate task scored against a query.
type Match struct {
	Task *domain.Task
	// Score is the token-set similarity used for filtering and ordering.
	Score float64
	// Closeness is the token-sort similarity of the whole title; it reaches
	// 100 only when query and title contain exactly the same words.
	Closeness float64
}

// Exact reports whether the query named the task's full title.
func (m Match) Exact() bool {
	return m.Closeness >= 100
}

// Rank scores every non-done task title against query, drops those below
// threshold, and orders the rest by score then most recent first.
func Rank(query string, tasks []*domain.Task, threshold float64) []Match {
	if len(Tokens(query)) == 0 {
		return nil
	}

	var matches []Match
	for _, t := range tasks {
		if t.IsDone() {
			continue
		}
		score := TokenSetRatio(query, t.Title)
		if score < threshold {
			continue
		}
		matches = append(matches, Match{
			Task:      t,
			Score:     score,
			Closeness: TokenSortRatio(query, t.Title),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Task.CreatedAt.After(matches[j].Task.CreatedAt)
	})
	return matches
}
