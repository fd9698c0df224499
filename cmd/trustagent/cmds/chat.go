package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/trustagent/pkg/chat"
	"github.com/go-go-golems/trustagent/pkg/config"
	"github.com/go-go-golems/trustagent/pkg/events"
	"github.com/go-go-golems/trustagent/pkg/sessions"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [prompt...]",
		Short: "Send a message, or start an interactive chat when no prompt is given",
		Long: `Send a message through the agent loop and print the answer.

Without a prompt, text piped on stdin is sent as one message. On a terminal an
interactive chat starts; type /help for its commands.`,
		RunE: runChat,
	}
	cmd.Flags().String("session", "", "Continue this session instead of starting a new one")
	cmd.Flags().Bool("render", isatty.IsTerminal(os.Stdout.Fd()), "Render the answer as markdown")
	cmd.Flags().Int("max-iterations", 0, "Maximum number of rounds (default from config)")
	cmd.Flags().Int("window-size", 0, "Number of recent turns sent to the model (default from config)")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	verbose := viper.GetBool("verbose")
	router, err := events.NewEventRouter(events.WithVerbose(verbose))
	if err != nil {
		return err
	}
	router.AddHandler("status", events.DefaultTopic, events.StatusPrinterFunc(os.Stderr, verbose))

	a, err := newApp(ctx, appOptions{
		startServers: true,
		openSessions: true,
		chatOptions:  []chat.Option{chat.WithEventSinks(router.Sink(events.DefaultTopic))},
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("could not shut down cleanly")
		}
	}()

	maxIterations, _ := cmd.Flags().GetInt("max-iterations")
	windowSize, _ := cmd.Flags().GetInt("window-size")
	a.config.Update(func(cfg *config.Config) {
		if maxIterations > 0 {
			cfg.Agent.MaxIterations = maxIterations
		}
		if windowSize > 0 {
			cfg.Agent.WindowSize = windowSize
		}
	})

	if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
		if _, err := a.chat.SelectSession(ctx, sessionID); err != nil {
			return err
		}
	}

	render, _ := cmd.Flags().GetBool("render")
	r := &chatRunner{app: a, out: cmd.OutOrStdout(), render: render}

	runCtx, cancel := context.WithCancel(ctx)
	eg, runCtx := errgroup.WithContext(runCtx)
	eg.Go(func() error {
		return router.Run(runCtx)
	})
	eg.Go(func() error {
		defer cancel()
		defer func() {
			_ = router.Close()
		}()
		<-router.Running()

		prompt := strings.TrimSpace(strings.Join(args, " "))
		switch {
		case prompt != "":
			return r.send(runCtx, prompt)
		case !isatty.IsTerminal(os.Stdin.Fd()):
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(b)) == "" {
				return errors.New("empty prompt")
			}
			return r.send(runCtx, string(b))
		default:
			return r.repl(runCtx, cmd.InOrStdin())
		}
	})
	return eg.Wait()
}

type chatRunner struct {
	app    *app
	out    io.Writer
	render bool
}

func (r *chatRunner) send(ctx context.Context, text string) error {
	reply, err := r.app.chat.StartMessage(ctx, "", text).Wait()
	if err != nil {
		return err
	}
	log.Debug().Str("session_id", reply.SessionID).Str("run_id", reply.RunID).Int("rounds", reply.Rounds).
		Msg("answered")

	answer := reply.Answer
	if r.render {
		styled, err := glamour.Render(answer, "dark")
		if err != nil {
			log.Debug().Err(err).Msg("could not render answer as markdown")
		} else {
			answer = styled
		}
	}
	_, err = fmt.Fprintln(r.out, strings.TrimRight(answer, "\n"))
	return err
}

const replHelp = `/new              finish this session and start a new one
/select <id>      switch to a stored session
/sessions         list stored sessions
/servers          list MCP servers
/start <server>   start an MCP server
/stop <server>    stop an MCP server
/tools            list tools and whether they are enabled
/enable <tool>    offer <server>/<tool> to the model
/disable <tool>   stop offering <server>/<tool> to the model
/quit             leave`

func (r *chatRunner) repl(ctx context.Context, in io.Reader) error {
	_, _ = fmt.Fprintf(r.out, "session %s, /help for commands\n", r.app.chat.CurrentSession().ID)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		_, _ = fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				_, _ = fmt.Fprintf(r.out, "error: %v\n", err)
			}
			if quit {
				break
			}
			continue
		}

		if err := r.send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// the status printer already reported run errors
			log.Debug().Err(err).Msg("message failed")
		}
	}

	// finalises the session so that it gets a title
	_, err := r.app.chat.NewChat(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	return scanner.Err()
}

func (r *chatRunner) command(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	needArg := func() error {
		if arg == "" {
			return errors.Errorf("%s needs an argument", fields[0])
		}
		return nil
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		_, err := fmt.Fprintln(r.out, replHelp)
		return false, err
	case "/new":
		s, err := r.app.chat.NewChat(ctx)
		if err != nil {
			return false, err
		}
		_, err = fmt.Fprintf(r.out, "session %s\n", s.ID)
		return false, err
	case "/select":
		if err := needArg(); err != nil {
			return false, err
		}
		s, err := r.app.chat.SelectSession(ctx, arg)
		if err != nil {
			return false, err
		}
		_, err = fmt.Fprintf(r.out, "session %s: %s (%d messages)\n", s.ID, s.Title, len(s.Messages))
		return false, err
	case "/sessions":
		list, err := r.app.sessions.List(ctx)
		if err != nil {
			return false, err
		}
		return false, r.printSessions(list)
	case "/servers":
		return false, r.printServers()
	case "/start":
		if err := needArg(); err != nil {
			return false, err
		}
		return false, r.app.servers.Start(ctx, arg)
	case "/stop":
		if err := needArg(); err != nil {
			return false, err
		}
		return false, r.app.servers.Stop(arg)
	case "/tools":
		return false, r.printTools()
	case "/enable", "/disable":
		if err := needArg(); err != nil {
			return false, err
		}
		r.app.chat.SetToolEnabled(arg, fields[0] == "/enable")
		return false, nil
	default:
		return false, errors.Errorf("unknown command %s, try /help", fields[0])
	}
}

func (r *chatRunner) printSessions(list []*sessions.Session) error {
	for _, s := range list {
		if _, err := fmt.Fprintf(r.out, "%s  %s  (%d messages, %s)\n",
			s.ID, s.Title, len(s.Messages), s.UpdatedAt.Format("2006-01-02 15:04")); err != nil {
			return err
		}
	}
	return nil
}

func (r *chatRunner) printServers() error {
	for _, i := range r.app.servers.Servers() {
		line := fmt.Sprintf("%s  %s  %d tools", i.Name, i.Status, i.Tools)
		if i.LastError != "" {
			line += "  " + i.LastError
		}
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}
	return nil
}

func (r *chatRunner) printTools() error {
	for _, t := range r.app.chat.Tools() {
		if _, err := fmt.Fprintf(r.out, "%s  %t  %s\n",
			t.Descriptor.Key(), t.Enabled, firstLine(t.Descriptor.Description)); err != nil {
			return err
		}
	}
	return nil
}
