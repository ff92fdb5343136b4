package broker

import (
	"log/slog"
	"time"

	"github.com/fogfish/opts"
)

const (
	defaultSlowSubscriberTimeout = 100 * time.Millisecond
	defaultSubjectPrefix         = "roost"
)

type config struct {
	logger                *slog.Logger
	slowSubscriberTimeout time.Duration
	subjectPrefix         string
}

var (
	// WithLogger sets the logger used for delivery failures and evictions.
	WithLogger = opts.ForName[config, *slog.Logger]("logger")
	// WithSlowSubscriberTimeout configures how long a sink may take to accept a message.
	WithSlowSubscriberTimeout = opts.ForName[config, time.Duration]("slowSubscriberTimeout")
	// WithSubjectPrefix configures the NATS subject prefix topics are published under.
	WithSubjectPrefix = opts.ForName[config, string]("subjectPrefix")
)

func newConfig(options []opts.Option[config]) config {
	c := config{
		logger:                slog.Default(),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
		subjectPrefix:         defaultSubjectPrefix,
	}
	if err := opts.Apply(&c, options); err != nil {
		panic(err)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.slowSubscriberTimeout <= 0 {
		c.slowSubscriberTimeout = defaultSlowSubscriberTimeout
	}
	if c.subjectPrefix == "" {
		c.subjectPrefix = defaultSubjectPrefix
	}
	return c
}
