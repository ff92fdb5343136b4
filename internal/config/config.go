// Package config reads the daemon settings from the environment. An optional
// .env file in the working directory is loaded first; variables already set in
// the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/pkg/natsx"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/joho/godotenv"
)

// Transport selects the broker implementation.
type Transport string

const (
	TransportLocal Transport = "local"
	TransportNATS  Transport = "nats"
)

const (
	EnvTransport             = "ROOST_TRANSPORT"
	EnvSubjectPrefix         = "ROOST_SUBJECT_PREFIX"
	EnvInboxSize             = "ROOST_INBOX_SIZE"
	EnvSlowSubscriberTimeout = "ROOST_SLOW_SUBSCRIBER_TIMEOUT"
	EnvLogLevel              = "ROOST_LOG_LEVEL"
	EnvLogFormat             = "ROOST_LOG_FORMAT"
)

type Config struct {
	Transport             Transport
	NATSURL               string
	SubjectPrefix         string
	InboxSize             int
	SlowSubscriberTimeout time.Duration
	LogLevel              string
	LogFormat             slogx.Format
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Transport:             TransportLocal,
		NATSURL:               natsx.URL(),
		SubjectPrefix:         "roost",
		InboxSize:             broker.DefaultInboxSize,
		SlowSubscriberTimeout: 100 * time.Millisecond,
		LogLevel:              "info",
		LogFormat:             slogx.FormatConsole,
	}
}

// Load reads the given .env files (".env" when none are named) and then the
// process environment. Missing files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	var errs []error

	if v, ok := nonEmpty(lookup, EnvTransport); ok {
		switch t := Transport(strings.ToLower(v)); t {
		case TransportLocal, TransportNATS:
			c.Transport = t
		default:
			errs = append(errs, fmt.Errorf("%s: unknown transport %q", EnvTransport, v))
		}
	}
	if v, ok := nonEmpty(lookup, "ROOST_NATS_URL"); ok {
		c.NATSURL = v
	} else if v, ok := nonEmpty(lookup, "NATS_URL"); ok {
		c.NATSURL = v
	}
	if v, ok := nonEmpty(lookup, EnvSubjectPrefix); ok {
		c.SubjectPrefix = strings.Trim(v, ".")
	}
	if v, ok := nonEmpty(lookup, EnvInboxSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%s: expected a positive integer, got %q", EnvInboxSize, v))
		} else {
			c.InboxSize = n
		}
	}
	if v, ok := nonEmpty(lookup, EnvSlowSubscriberTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: expected a positive duration, got %q", EnvSlowSubscriberTimeout, v))
		} else {
			c.SlowSubscriberTimeout = d
		}
	}
	if v, ok := nonEmpty(lookup, EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := nonEmpty(lookup, EnvLogFormat); ok {
		switch f := slogx.Format(strings.ToLower(v)); f {
		case slogx.FormatConsole, slogx.FormatJSON:
			c.LogFormat = f
		default:
			errs = append(errs, fmt.Errorf("%s: unknown format %q", EnvLogFormat, v))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return c, nil
}

func nonEmpty(lookup func(string) (string, bool), key string) (string, bool) {
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
