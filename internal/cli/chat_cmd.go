package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexanderramin/liminal/internal/cli/formatter"
	"github.com/alexanderramin/liminal/internal/domain"
	"github.com/alexanderramin/liminal/internal/intelligence"
	"github.com/alexanderramin/liminal/internal/llm"
	"github.com/alexanderramin/liminal/internal/repository"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	cliSessionTitle = "CLI chat"
	latestSession   = "latest"
)

func newChatCmd(st *state) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long: `Start an interactive chat. Type /clear to forget the conversation
and /quit (or Ctrl-D) to leave.`,
		Args: cobra.NoArgs,
		RunE: st.with(func(cmd *cobra.Command, app *App, userID string) error {
			return runChat(cmd.Context(), app, userID, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		}),
	}

	cmd.Flags().StringVar(&sessionID, "session", "", `Resume a session by ID, or "latest"`)
	return cmd
}

func runChat(ctx context.Context, app *App, userID, sessionID string, in io.Reader, out io.Writer) error {
	session, err := openSession(ctx, app, userID, sessionID)
	if err != nil {
		return err
	}

	history, err := app.Chats.History(ctx, session.ID, intelligence.HistoryLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	replay := make([]llm.Message, 0, len(history))
	for _, m := range history {
		replay = append(replay, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	conv := intelligence.NewConversation(userID, session.ID)
	renderer := formatter.NewChatRenderer(app.Styled)
	fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("Session %s. /clear starts over, /quit leaves.", session.ID)))

	scanner := bufio.NewScanner(in)
	var picked string
	for {
		line := picked
		picked = ""
		if line == "" {
			fmt.Fprint(out, formatter.StyleInfo.Render("> "))
			if !scanner.Scan() {
				fmt.Fprintln(out)
				return scanner.Err()
			}
			line = strings.TrimSpace(scanner.Text())
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "/quit", "/exit", "quit", "exit":
			return nil
		case "/clear":
			if err := app.Chats.Clear(ctx, session.ID); err != nil {
				return fmt.Errorf("clearing session: %w", err)
			}
			conv = intelligence.NewConversation(userID, session.ID)
			replay = nil
			fmt.Fprintln(out, formatter.Dim("Conversation cleared."))
			continue
		}

		msgs := []llm.Message{llm.User(line)}
		if len(replay) > 0 {
			msgs = append(replay, msgs...)
			replay = nil
		}

		resp, err := app.Assistant.Handle(ctx, conv, msgs)
		if errors.Is(err, intelligence.ErrServiceUnavailable) {
			fmt.Fprintln(out, formatter.StyleAlert.Render("The assistant is unavailable right now. Please try again in a moment."))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			app.Log.Error("chat turn failed", zap.String("session_id", session.ID), zap.Error(err))
			fmt.Fprintln(out, formatter.StyleAlert.Render(turnFailedMessage))
			continue
		}
		fmt.Fprint(out, renderer.Render(resp))

		if app.Interactive && len(resp.ConfirmationOptions) > 0 {
			choice, err := pickConfirmation(ctx, resp.ConfirmationOptions, in, out)
			switch {
			case errors.Is(err, huh.ErrUserAborted):
			case err != nil:
				app.Log.Debug("confirmation picker failed", zap.Error(err))
			default:
				fmt.Fprintln(out, formatter.Dim("> "+choice))
				picked = choice
			}
		}
	}
}

const turnFailedMessage = "Something went wrong on my side. Please try again."

// openSession resolves --session: empty starts a new one, "latest" resumes
// the most recent (or starts one when there is none).
func openSession(ctx context.Context, app *App, userID, sessionID string) (*domain.ChatSession, error) {
	switch sessionID {
	case "":
		return app.Chats.StartSession(ctx, userID, cliSessionTitle)
	case latestSession:
		session, err := app.Chats.LatestSession(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return app.Chats.StartSession(ctx, userID, cliSessionTitle)
		}
		return session, err
	default:
		session, err := app.Chats.GetSession(ctx, userID, sessionID)
		if err != nil {
			return nil, fmt.Errorf("opening session %s: %w", sessionID, err)
		}
		return session, nil
	}
}
