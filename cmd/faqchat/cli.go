package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"faqchat/pkg/chat"
	"faqchat/pkg/config"
	"faqchat/pkg/logging"
	"faqchat/pkg/session"
	"faqchat/pkg/transport"
	"faqchat/pkg/ui"
	"faqchat/pkg/version"

	tea "charm.land/bubbletea/v2"
	"github.com/alecthomas/kong"
)

// globals are the flags shared by every command. Set flags override the
// config file and the environment.
type globals struct {
	Config   string `help:"Path to the config file (.json, .yaml or .yml)." type:"path" placeholder:"PATH"`
	APIURL   string `name:"api-url" help:"Base URL of the FAQ backend." placeholder:"URL"`
	Timeout  int    `help:"Request timeout in seconds." placeholder:"SECONDS"`
	LogLevel string `name:"log-level" help:"Log level: trace, debug, info, warn or error." placeholder:"LEVEL"`
	Backend  string `help:"Backend: faq or openai." placeholder:"NAME"`
}

type tuiCmd struct{}

type askCmd struct {
	Question []string `arg:"" help:"Question to ask."`
}

type versionCmd struct{}

type cli struct {
	Globals globals `embed:""`

	Tui     tuiCmd     `cmd:"" default:"1" help:"Open the interactive chat window."`
	Ask     askCmd     `cmd:"" help:"Ask a single question and print the answer."`
	Version versionCmd `cmd:"" help:"Show version information."`
}

// CliConfig holds the process hooks the CLI runs against.
type CliConfig struct {
	Name        string
	Description string
	Exit        func(int)
	Stdout      io.Writer
	Stderr      io.Writer
	// DotEnv lists the .env files read before the environment is applied.
	DotEnv []string
}

// NewCliConfig returns a CliConfig bound to the real process.
func NewCliConfig() *CliConfig {
	return &CliConfig{
		Name:        "faqchat",
		Description: "Chat with the FAQ assistant from the terminal.",
		Exit:        os.Exit,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		DotEnv:      []string{".env"},
	}
}

// runEnv is bound into every command's Run method.
type runEnv struct {
	ctx    context.Context
	conf   *CliConfig
	global *globals
}

// Cli parses args and runs the selected command. It returns the
// process exit code.
func Cli(ctx context.Context, args []string, conf *CliConfig) int {
	var root cli
	parser, err := kong.New(&root,
		kong.Name(conf.Name),
		kong.Description(conf.Description),
		kong.Exit(conf.Exit),
		kong.Writers(conf.Stdout, conf.Stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(conf.Stderr, "%s: %v\n", conf.Name, err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(conf.Stderr, "%s: error: %v\n", conf.Name, err)
		return 2
	}

	env := &runEnv{ctx: ctx, conf: conf, global: &root.Globals}
	if err := kctx.Run(env); err != nil {
		fmt.Fprintf(conf.Stderr, "%s: error: %v\n", conf.Name, err)
		return 1
	}
	return 0
}

// loadConfig resolves the effective configuration: file, then .env and
// FAQCHAT_* variables, then flags.
func (e *runEnv) loadConfig() (config.Config, error) {
	path := e.global.Config
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.LoadDotEnv(e.conf.DotEnv...); err != nil {
		return config.Config{}, err
	}
	cfg, err = config.ApplyEnv(cfg)
	if err != nil {
		return config.Config{}, err
	}

	if e.global.APIURL != "" {
		cfg.APIURL = e.global.APIURL
	}
	if e.global.Timeout != 0 {
		cfg.APITimeoutSeconds = e.global.Timeout
	}
	if e.global.LogLevel != "" {
		cfg.LogLevel = e.global.LogLevel
	}
	if e.global.Backend != "" {
		cfg.Backend = e.global.Backend
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// openSession loads config, starts logging and connects a session to
// the configured backend.
func (e *runEnv) openSession() (*session.Session, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}

	if _, err := logging.Init(cfg); err != nil {
		fmt.Fprintf(e.conf.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	slog.Info("faqchat_start",
		"version", version.Summary(),
		"backend", cfg.Backend,
		"base_url", cfg.BaseURL(),
		"timeout", cfg.Timeout(),
	)

	sender, err := transport.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.Backend, err)
	}
	return session.New(sender, session.WithBuilder(chat.NewBuilder(cfg.Model))), nil
}

func (c *tuiCmd) Run(env *runEnv) error {
	sess, err := env.openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	p := tea.NewProgram(ui.New(env.ctx, sess), tea.WithContext(env.ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		slog.Error("tui_exit", "error", err)
		return err
	}
	slog.Info("tui_exit")
	return nil
}

func (c *askCmd) Run(env *runEnv) error {
	question := strings.Join(c.Question, " ")

	sess, err := env.openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	reply, err := sess.Send(env.ctx, question)
	if errors.Is(err, session.ErrEmptyMessage) || errors.Is(err, chat.ErrAborted) {
		return err
	}
	if text, ok := chat.Normalize(reply.Content); ok {
		fmt.Fprintln(env.conf.Stdout, text)
	}
	return err
}

func (c *versionCmd) Run(env *runEnv) error {
	fmt.Fprintln(env.conf.Stdout, version.Details())
	return nil
}
