package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"corp-tax-agent-be/internal/entity"
	"corp-tax-agent-be/internal/repository/contract"
	"corp-tax-agent-be/internal/repository/specification"
	"corp-tax-agent-be/pkg/agent/orchestrator"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tax agent session",
	Long: `Reads one request per line and prints the agent's reply.

Lines starting with "/" are local commands:
  /session - print the session id
  /quit    - leave the REPL

Example:
  taxctl chat
  > Calculate 2024 corporate tax for 00126380`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "resume an existing session id")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := openContainer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	sessionID, err := resolveSession(ctx, c.UowFactory.NewUnitOfWork(ctx).SessionRepository(), chatSessionID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgCyan).Fprintf(out, "Session %s. Type /quit to leave.\n", sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/session":
			fmt.Fprintln(out, sessionID)
			continue
		}

		reply, err := c.Agent.HandleTurn(ctx, sessionID, line)
		if err != nil {
			color.New(color.FgRed).Fprintf(out, "error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		logger.Debug("turn handled", zap.String("status", string(reply.Status)), zap.String("intent", reply.Intent))
		printReply(out, reply)
	}
}

func printReply(out io.Writer, reply *orchestrator.TurnReply) {
	c := color.New(color.FgWhite)
	switch reply.Status {
	case orchestrator.StatusAccepted, orchestrator.StatusOK:
		c = color.New(color.FgGreen)
	case orchestrator.StatusPartial, orchestrator.StatusClarify:
		c = color.New(color.FgYellow)
	case orchestrator.StatusRejected, orchestrator.StatusFailed:
		c = color.New(color.FgRed)
	}
	c.Fprintln(out, reply.Reply)

	if reply.Artifact != nil {
		fmt.Fprintf(out, "  report %s (%d bytes, %s)\n", reply.Artifact.ReportId, reply.Artifact.SizeBytes, reply.Artifact.Handle)
	}
	if !reply.Comparison.Empty() {
		for _, row := range reply.Comparison.Rows {
			change := "n/a"
			if row.ChangePct != nil {
				change = row.ChangePct.String() + "%"
			}
			fmt.Fprintf(out, "  %s %s total=%s change=%s\n", row.Subject, row.Period, row.Total.StringFixed(0), change)
		}
	}
	if reply.ErrorKind != "" {
		color.New(color.Faint).Fprintf(out, "  [%s]\n", reply.ErrorKind)
	}
}

// resolveSession returns raw as a session id when it names an existing
// session, or creates a new session when raw is empty.
func resolveSession(ctx context.Context, repo contract.SessionRepository, raw string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session id %q: %w", raw, err)
		}
		session, err := repo.FindOne(ctx, specification.ByID{ID: id})
		if err != nil {
			return uuid.Nil, err
		}
		if session == nil {
			return uuid.Nil, fmt.Errorf("session %s not found", id)
		}
		return id, nil
	}

	now := time.Now().UTC()
	session := &entity.Session{Title: "taxctl " + now.Format("2006-01-02 15:04"), CreatedAt: now, LastActiveAt: now}
	if err := repo.Create(ctx, session); err != nil {
		return uuid.Nil, err
	}
	return session.Id, nil
}
