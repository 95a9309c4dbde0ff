package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sentiment-cli/internal/export"
	"github.com/sells-group/sentiment-cli/internal/model"
	"github.com/sells-group/sentiment-cli/internal/orchestrator"
)

const sessionHelp = `Type text to analyze it, or a command:
  /file <path>             analyze a .txt, .csv, .tsv, .xlsx, .pdf or .docx file
  /demo                    load the demo data
  /rows                    list stored rows
  /cloud                   show the term cloud
  /summary                 show totals and average score
  /filter <label> [query]  list rows by label (all, positive, neutral, negative) and text
  /export <path>           write the session to .csv, .json or .yaml
  /status                  show the cached service state
  /reset                   forget the service state so the next request probes again
  /clear                   drop all rows
  /help                    show this help
  /quit                    leave the session`

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start an interactive analysis session",
	Long:  "Opens a prompt that keeps results and the term cloud for the life of the session.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initSession()
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Session %s against %s\n%s\n", env.ID, cfg.Service.BaseURL, sessionHelp)
		return runSession(ctx, env.Orchestrator, cmd.InOrStdin(), cmd.OutOrStdout(), env.Log)
	},
}

// session is one interactive prompt bound to an orchestrator.
type session struct {
	orch *orchestrator.Orchestrator
	out  io.Writer
	log  *zap.Logger
}

// runSession reads commands from in until EOF, /quit, or ctx is done.
func runSession(ctx context.Context, orch *orchestrator.Orchestrator, in io.Reader, out io.Writer, log *zap.Logger) error {
	s := &session{orch: orch, out: out, log: log}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		if ctx.Err() != nil {
			return nil
		}
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return eris.Wrap(scanner.Err(), "session: read input")
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := s.handle(ctx, line); quit {
			return nil
		}
	}
}

// handle runs one input line and reports whether the session should end.
func (s *session) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		s.report(s.orch.AnalyzeSingleText(ctx, line))
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		s.println(sessionHelp)
	case "/demo":
		s.report(s.orch.LoadDemoData())
	case "/file":
		if arg == "" {
			s.println("usage: /file <path>")
			return false
		}
		up, err := readUpload(arg)
		if err != nil {
			s.println("error: " + err.Error())
			return false
		}
		s.report(s.orch.AnalyzeUploadedFile(ctx, up))
	case "/rows":
		formatRows(s.out, s.orch.Snapshot().Rows)
	case "/cloud":
		formatCloud(s.out, s.orch.Snapshot().Cloud, 0)
	case "/summary":
		formatSummary(s.out, s.orch.Summary())
	case "/filter":
		s.filter(arg)
	case "/export":
		if arg == "" {
			s.println("usage: /export <path>")
			return false
		}
		if err := export.ToFile(arg, s.orch.Snapshot()); err != nil {
			s.println("error: " + err.Error())
			return false
		}
		s.println("Exported to " + arg)
	case "/status":
		s.println("service: " + string(s.orch.Liveness()))
	case "/reset":
		s.orch.ResetLiveness()
		s.println("service state reset")
	case "/clear":
		s.orch.Clear()
		s.println("cleared")
	default:
		s.println("unknown command " + cmd + "; type /help")
	}
	return false
}

func (s *session) filter(arg string) {
	labelArg, query, _ := strings.Cut(arg, " ")
	var label model.Label
	switch l := strings.ToLower(strings.TrimSpace(labelArg)); l {
	case "", "all":
		label = "all"
	default:
		parsed, ok := model.ParseLabel(l)
		if !ok {
			s.println("unknown label " + labelArg + "; use all, positive, neutral or negative")
			return
		}
		label = parsed
	}

	rows := s.orch.Filter(label, query)
	if len(rows) == 0 {
		s.println("No matching rows.")
		return
	}
	formatRows(s.out, rows)
}

func (s *session) report(out *orchestrator.Outcome, err error) {
	if err != nil {
		s.log.Debug("session operation failed", zap.Error(err))
		s.println("error: " + describeError(err))
		return
	}
	formatOutcome(s.out, out)
}

func (s *session) println(msg string) {
	_, _ = fmt.Fprintln(s.out, msg)
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}
