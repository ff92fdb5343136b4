// Command roost runs an interactive publish/subscribe broker. With
// ROOST_TRANSPORT=nats topics are relayed over NATS so several roost
// processes can talk to each other.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/internal/config"
	"github.com/casualjim/roost/internal/repl"
	"github.com/casualjim/roost/internal/session"
	"github.com/casualjim/roost/pkg/natsx"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/stdx"
	"github.com/casualjim/roost/subscribers"
	"github.com/charmbracelet/glamour"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slogx.NewLogger(os.Stderr, cfg.LogFormat, slogx.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := subscribers.New[broker.Sink](subscribers.WithLogger(logger))
	b, disconnect, err := newBroker(cfg, reg, logger)
	if err != nil {
		return err
	}
	defer disconnect()
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("failed to close broker", slogx.Error(err))
		}
	}()

	glam := stdx.Must1(glamour.NewTermRenderer(glamour.WithAutoStyle()))
	sessions := session.NewManager(b, session.WithLogger(logger))

	return repl.New(b, sessions, os.Stdout, cfg.InboxSize, glam, logger).Run(ctx, os.Stdin)
}

func newBroker(cfg config.Config, reg *subscribers.Registry[broker.Sink], logger *slog.Logger) (broker.Broker, func(), error) {
	switch cfg.Transport {
	case config.TransportNATS:
		nc, err := natsx.NewClient(cfg.NATSURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to nats at %s: %w", cfg.NATSURL, err)
		}
		disconnect := func() {
			if err := nc.Drain(); err != nil {
				logger.Error("failed to drain nats connection", slogx.Error(err))
			}
		}
		logger.Info("relaying topics over nats", slog.String("url", cfg.NATSURL), slog.String("prefix", cfg.SubjectPrefix))
		return broker.NATS(nc, reg,
			broker.WithLogger(logger),
			broker.WithSlowSubscriberTimeout(cfg.SlowSubscriberTimeout),
			broker.WithSubjectPrefix(cfg.SubjectPrefix),
		), disconnect, nil
	default:
		return broker.Local(reg,
			broker.WithLogger(logger),
			broker.WithSlowSubscriberTimeout(cfg.SlowSubscriberTimeout),
		), func() {}, nil
	}
}
