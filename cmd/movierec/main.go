package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"movierec/internal/chat"
	"movierec/internal/config"
	"movierec/internal/httpapi"
	"movierec/internal/logging"
	"movierec/internal/service"
	"movierec/internal/tui"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	cfgPath string
	cfg     *config.AppConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "movierec",
		Short:        "Movie recommendations from a precomputed similarity matrix",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/movierec/config.yaml if not provided)")
	root.AddCommand(a.tuiCmd(), a.serveCmd(), a.recommendCmd(), a.chatCmd())
	return root
}

func (a *app) loadConfig() error {
	var err error
	if a.cfgPath == "" {
		a.cfg, _, err = config.LoadDefault()
	} else {
		a.cfg, err = config.Load(a.cfgPath)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	return nil
}

func (a *app) setupLogging(out io.Writer) {
	logging.Init(logging.Config{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		Output: out,
	})
}

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal UI with title selector and chat",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			out := io.Discard
			if a.cfg.Logging.File != "" {
				f, err := os.OpenFile(a.cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			a.setupLogging(out)

			svc, err := service.Load(a.cfg)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(tui.New(svc), tea.WithAltScreen()).Run()
			return err
		},
	}
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			a.setupLogging(os.Stderr)
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			svc, err := service.Load(a.cfg)
			if err != nil {
				logging.Fatal().Err(err).Msg("startup failed")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return httpapi.New(svc, a.cfg.Server.MaxSessions).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (a *app) recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <title>",
		Short: "Print the most similar movies and their posters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			a.setupLogging(os.Stderr)
			svc, err := service.Load(a.cfg)
			if err != nil {
				return err
			}
			recs, err := svc.Recommend(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Movie.Title, r.PosterURL)
			}
			return nil
		},
	}
}

func (a *app) chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the movie bot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			a.setupLogging(os.Stderr)
			svc, err := service.Load(a.cfg)
			if err != nil {
				return err
			}
			_, reply, err := svc.Chat(cmd.Context(), chat.Session{}, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
