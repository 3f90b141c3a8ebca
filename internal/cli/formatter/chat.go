package formatter

import (
	"strings"

	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/charmbracelet/glamour"
)

const wrapWidth = 80

// ChatRenderer turns assistant replies into terminal output. Markdown is
// rendered with glamour only when styled; otherwise replies pass through.
type ChatRenderer struct {
	md *glamour.TermRenderer
}

func NewChatRenderer(styled bool) *ChatRenderer {
	if !styled {
		return &ChatRenderer{}
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return &ChatRenderer{}
	}
	return &ChatRenderer{md: md}
}

// Render formats resp, appending the quick replies while a confirmation is
// outstanding.
func (r *ChatRenderer) Render(resp *contract.ChatResponse) string {
	var b strings.Builder
	b.WriteString(r.markdown(resp.Content))
	if len(resp.ConfirmationOptions) > 0 {
		b.WriteString("\n")
		b.WriteString(r.options(resp.ConfirmationOptions))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *ChatRenderer) markdown(text string) string {
	if r.md != nil {
		if out, err := r.md.Render(text); err == nil {
			return out
		}
	}
	return strings.TrimRight(text, "\n") + "\n"
}

func (r *ChatRenderer) options(opts []string) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		if r.md != nil {
			parts[i] = StyleOption.Render(o)
		} else {
			parts[i] = "[" + o + "]"
		}
	}
	return strings.Join(parts, " ")
}
