package session

import (
	"log/slog"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/internal/registry"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/fogfish/opts"
)

type config struct {
	logger *slog.Logger
	prefix string
}

var (
	WithLogger = opts.ForName[config, *slog.Logger]("logger")
	// WithIDPrefix sets the prefix of generated session ids, "sess" by default.
	WithIDPrefix = opts.ForName[config, string]("prefix")
)

// Manager keeps track of the open sessions of a broker.
type Manager struct {
	broker   broker.Broker
	sessions registry.Registry[*Session]
	logger   *slog.Logger
	prefix   string
}

func NewManager(b broker.Broker, options ...opts.Option[config]) *Manager {
	c := config{logger: slog.Default(), prefix: "sess"}
	if err := opts.Apply(&c, options); err != nil {
		panic(err)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return &Manager{
		broker:   b,
		sessions: registry.New[*Session](),
		logger:   c.logger.With(slogx.LoggerName("session")),
		prefix:   c.prefix,
	}
}

// Open starts a new session.
func (m *Manager) Open() *Session {
	s := newSession(uuidx.Prefixed(m.prefix), m.broker, m.logger)
	m.sessions.Add(s.ID(), s)
	m.logger.Debug("opened session", slogx.Connection(s.ID()))
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	return m.sessions.Get(id)
}

// Close closes the session with the given id, returning how many
// subscriptions it removed and whether the session was open.
func (m *Manager) Close(id string) (int, bool) {
	s, ok := m.sessions.Take(id)
	if !ok {
		return 0, false
	}
	return s.Close(), true
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}

// CloseAll closes every open session and returns the number of subscriptions removed.
func (m *Manager) CloseAll() int {
	removed := 0
	for _, id := range m.sessions.Names() {
		n, _ := m.Close(id)
		removed += n
	}
	return removed
}
