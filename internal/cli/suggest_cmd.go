package cli

import (
	"fmt"

	"github.com/alexanderramin/liminal/internal/cli/formatter"
	"github.com/alexanderramin/liminal/internal/contract"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/spf13/cobra"
)

func newSuggestCmd(st *state) *cobra.Command {
	var rescore bool

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show the task to do now",
		Long: `Show the task to do now. By default the stored relevance scores are
used; --rescore asks the model to rank every active task first.`,
		Args: cobra.NoArgs,
		RunE: st.with(func(cmd *cobra.Command, app *App, userID string) error {
			var (
				s   *contract.Suggestion
				err error
			)
			if rescore {
				s, err = app.Scorer.SuggestNext(cmd.Context(), userID)
			} else {
				s, err = app.Scorer.SuggestStored(cmd.Context(), userID)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSuggestion(s))
			return nil
		}),
	}

	cmd.Flags().BoolVar(&rescore, "rescore", false, "Rank active tasks with the model before suggesting")
	cmd.AddCommand(newFeedbackCmd(st))
	return cmd
}

func newFeedbackCmd(st *state) *cobra.Command {
	var taskID, label string

	cmd := &cobra.Command{
		Use:   "feedback <task-id> <accepted|dismissed|snoozed>",
		Short: "Tell the scorer how you reacted to a suggestion",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return err
			}
			taskID, label = args[0], args[1]
			return nil
		},
		RunE: st.with(func(cmd *cobra.Command, app *App, userID string) error {
			fb, ok := domain.ParseSuggestionFeedback(label)
			if !ok {
				return fmt.Errorf("unknown feedback %q: use accepted, dismissed or snoozed", label)
			}
			if err := app.Scorer.RecordFeedback(cmd.Context(), userID, taskID, fb); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %s\n", fb, formatter.TruncID(taskID))
			return nil
		}),
	}
	return cmd
}
