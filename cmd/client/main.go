package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"hospital-desk/internal/booking"
	"hospital-desk/internal/config"
	"hospital-desk/internal/gateway"
	"hospital-desk/internal/logger"
	"hospital-desk/internal/nav"
	"hospital-desk/internal/notify"
	"hospital-desk/internal/session"
	"hospital-desk/internal/tokenstore"
)

const service = "hospital-desk"

type app struct {
	cfg  *config.Config
	log  *zap.Logger
	gw   *gateway.Client
	sess *session.Store
	dir  *booking.Directory

	notices notify.Notifier
	out     io.Writer
	in      *bufio.Reader
}

type command struct {
	usage string
	auth  bool
	run   func(a *app, ctx context.Context, args []string) error
}

var errUsage = errors.New("usage")

func main() {
	os.Exit(start())
}

func start() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format, service)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		return 1
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, closeTokens, err := openTokens(ctx, cfg)
	if err != nil {
		lg.Error("token store", zap.String("kind", cfg.Token.Store), zap.Error(err))
		return 1
	}
	defer closeTokens()

	a := newApp(cfg, lg, tokens, os.Stdout, os.Stdin)
	return a.run(ctx, os.Args[1:])
}

func openTokens(ctx context.Context, cfg *config.Config) (tokenstore.Store, func(), error) {
	switch cfg.Token.Store {
	case "redis":
		r, err := tokenstore.DialRedis(ctx, cfg.Token.RedisURL, cfg.Token.Key)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	case "memory":
		return tokenstore.NewMemory(""), func() {}, nil
	}
	return tokenstore.NewFile(cfg.Token.File), func() {}, nil
}

func newApp(cfg *config.Config, lg *zap.Logger, tokens tokenstore.Store, out io.Writer, in io.Reader) *app {
	a := &app{
		cfg: cfg,
		log: lg,
		dir: booking.NewDirectory(cfg.Doctors.CacheSize, cfg.Doctors.CacheTTL),
		out: out,
		in:  bufio.NewReader(in),
	}
	a.notices = notify.Func(func(n notify.Notice) {
		if n.Level == notify.LevelError {
			fmt.Fprintln(os.Stderr, "error:", n.Message)
			return
		}
		fmt.Fprintln(a.out, n.Message)
	})

	a.gw = gateway.New(gateway.Config{
		BaseURL:   cfg.API.URL,
		Timeout:   cfg.API.Timeout,
		Tracing:   cfg.API.Tracing,
		AuthRate:  cfg.AuthRate.Limit,
		AuthBurst: cfg.AuthRate.Burst,
		Tokens:    tokens,
		Navigator: nav.Func(a.navigate),
		Logger:    lg,
	})
	a.sess = session.New(a.gw, tokens, lg)
	return a
}

// navigate is where route changes land in a terminal: there is no screen to
// switch, so only the login redirect is worth telling the user about.
func (a *app) navigate(to nav.Route) {
	a.log.Debug("navigate", zap.String("route", string(to)))
	if to == nav.Login {
		fmt.Fprintf(os.Stderr, "session expired, run `%s login`\n", service)
	}
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		a.usage()
		return 2
	}

	if cmd.auth {
		if err := a.sess.Restore(ctx); err != nil {
			a.log.Debug("restore", zap.Error(err))
		}
		if !a.sess.Authenticated() {
			fmt.Fprintf(os.Stderr, "not logged in, run `%s login`\n", service)
			return 1
		}
	}

	err := cmd.run(a, ctx, args[1:])
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(os.Stderr, "usage: %s %s %s\n", service, args[0], cmd.usage)
		return 2
	}
	a.log.Debug("command failed", zap.String("command", args[0]), zap.Error(err))
	// server answers were already reported as notices
	if gateway.Classify(err) == gateway.KindTransport {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return 1
}

func (a *app) usage() {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintf(os.Stderr, "usage: %s <command> [flags]\n\ncommands:\n", service)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", n, commands[n].usage)
	}
}

// confirm reads a yes/no answer from stdin; anything but y/yes is no.
func (a *app) confirm(prompt string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
