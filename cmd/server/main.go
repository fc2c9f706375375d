package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/zeusync/spacewar/internal/config"
	"github.com/zeusync/spacewar/internal/injector"
)

// tokenFlags collects repeated -token value:team flags.
type tokenFlags []config.TokenConfig

func (t *tokenFlags) String() string {
	parts := make([]string, 0, len(*t))
	for _, tok := range *t {
		parts = append(parts, fmt.Sprintf("%s:%d", tok.Value, tok.Team))
	}
	return strings.Join(parts, ",")
}

func (t *tokenFlags) Set(v string) error {
	value, team, ok := strings.Cut(v, ":")
	if !ok || value == "" {
		return fmt.Errorf("want value:team, got %q", v)
	}
	n, err := strconv.ParseUint(team, 10, 8)
	if err != nil {
		return fmt.Errorf("team of %q: %w", value, err)
	}
	*t = append(*t, config.TokenConfig{Value: value, Team: uint8(n)})
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		addr       = flag.String("addr", "", "HTTP/WebSocket listen address (overrides config)")
		quicAddr   = flag.String("quic-addr", "", "QUIC listen address (overrides config)")
		logLevel   = flag.String("log-level", "", "debug, info, warn or error (overrides config)")
		tokens     tokenFlags
	)
	flag.Var(&tokens, "token", "admission token as value:team, repeatable (replaces configured tokens)")
	flag.Parse()

	if err := run(*configPath, *addr, *quicAddr, *logLevel, tokens); err != nil {
		fmt.Fprintln(os.Stderr, "spacewar:", err)
		os.Exit(1)
	}
}

func run(configPath, addr, quicAddr, logLevel string, tokens tokenFlags) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if quicAddr != "" {
		cfg.Server.QUICAddr = quicAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if len(tokens) > 0 {
		cfg.Match.Tokens = tokens
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(cfg.Match.Tokens) == 0 && cfg.Match.TicketSecret == "" {
		return fmt.Errorf("no admission tokens configured")
	}

	srv, err := injector.InitializeServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
