package intelligence

import (
	"fmt"
	"sort"
	"strings"
)

// KnowledgeBase holds the product facts the QA specialist answers from,
// keyed by topic.
var KnowledgeBase = map[string]string{
	"philosophy":      "Liminal is an ADHD-friendly productivity app. It reduces cognitive load and gives immediate feedback.",
	"horizon view":    "A Kanban-style board that visualises your Horizon. New tasks land in the Threshold and are crossed over into Themes.",
	"threshold":       "The backlog column where every new task lands. Try to empty it daily.",
	"themes":          "Strategic buckets for tasks, e.g. Deep Work or Admin.",
	"gating":          "A task cannot leave the Threshold for a Theme until it has both a Value Score and an Effort Score.",
	"focus mode":      "A single-task view: only the top-ranked task, a 25-minute Pomodoro timer, and auto-advance to the next task on completion.",
	"priority":        "High, Medium or Low. Scores of 67 and above are High, 34 to 66 Medium, below that Low.",
	"value score":     "1-100, the impact of a task.",
	"effort score":    "1-100, the time and difficulty of a task.",
	"scoring formula": "(Value * PriorityMultiplier) / Effort. High-ROI tasks float to the top and quick wins get a boost.",
	"do this now":     "The assistant scores every active task and suggests one to start. Without a usable score it suggests your first active task.",
	"chat assistant":  "Manage tasks (\"Create a task to buy milk\"), track progress (\"Do I have any stale tasks?\") and ask how things work. Every change is confirmed before it happens.",
	"stale tasks":     "Open tasks not updated for more than 5 days.",
	"deadline alerts": "Every hour Liminal posts a chat message listing overdue tasks and tasks due within 24 hours.",
	"best practices":  "Capture everything immediately. Refine scores and themes later when you have energy. Trust the algorithm in Focus Mode. Keep the Threshold clear.",
}

// FormatKnowledge renders the knowledge base as sorted "- topic: fact" lines.
func FormatKnowledge() string {
	topics := make([]string, 0, len(KnowledgeBase))
	for k := range KnowledgeBase {
		topics = append(topics, k)
	}
	sort.Strings(topics)

	var b strings.Builder
	for _, k := range topics {
		fmt.Fprintf(&b, "- %s: %s\n", k, KnowledgeBase[k])
	}
	return b.String()
}

func qaSystemPrompt() string {
	return qaPromptHeader + "\n" + FormatKnowledge() + qaPromptFooter
}
