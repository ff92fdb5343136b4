package repl

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/internal/session"
	"github.com/casualjim/roost/subscribers"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func newTestREPL() (*REPL, broker.Broker, *syncBuffer) {
	b := broker.Local(subscribers.New[broker.Sink]())
	out := &syncBuffer{}
	return New(b, session.NewManager(b), out, 4, nil, nil), b, out
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		line, cmd, rest string
	}{
		{"", "", ""},
		{"topics", "topics", ""},
		{"  sub   Orders  s1 ", "sub", "Orders  s1"},
		{"pub orders {\"a\": 1}", "pub", "orders {\"a\": 1}"},
	}
	for _, tt := range tests {
		cmd, rest := splitCommand(tt.line)
		assert.Equal(t, tt.cmd, cmd, tt.line)
		assert.Equal(t, tt.rest, rest, tt.line)
	}
}

func TestREPL_Exec(t *testing.T) {
	t.Run("subscribe publish unsubscribe", func(t *testing.T) {
		r, b, out := newTestREPL()
		ctx := context.Background()

		require.NoError(t, r.Exec(ctx, "sub orders s1"))
		assert.Contains(t, out.String(), "subscribed s1 to orders")
		assert.Equal(t, 1, b.Registry().SubscriberCount("orders"))

		require.NoError(t, r.Exec(ctx, `pub orders {"sku":"abc"}`))
		assert.Contains(t, out.String(), "1 delivered, 0 failed")
		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), `orders s1`) && strings.Contains(out.String(), `{"sku":"abc"}`)
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, r.Exec(ctx, "pub orders hello there"))
		assert.Eventually(t, func() bool {
			return strings.Contains(out.String(), `"hello there"`)
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, r.Exec(ctx, "unsub orders s1"))
		assert.Contains(t, out.String(), "unsubscribed s1 from orders")
		assert.Equal(t, 0, b.Registry().TopicCount())

		require.NoError(t, r.Exec(ctx, "unsub orders s1"))
		assert.Contains(t, out.String(), "no subscription s1 on orders")
	})

	t.Run("generated ids", func(t *testing.T) {
		r, b, _ := newTestREPL()
		require.NoError(t, r.Exec(context.Background(), "sub alerts"))

		subs := b.Registry().SubscribersOf("alerts")
		require.Len(t, subs, 1)
		assert.True(t, strings.HasPrefix(subs[0].ID, "sub_"))
	})

	t.Run("reads", func(t *testing.T) {
		r, _, out := newTestREPL()
		ctx := context.Background()

		require.NoError(t, r.Exec(ctx, "topics"))
		assert.Contains(t, out.String(), "no topics")
		require.NoError(t, r.Exec(ctx, "who orders"))
		assert.Contains(t, out.String(), "nobody is subscribed to orders")

		require.NoError(t, r.Exec(ctx, "sub orders s1"))
		require.NoError(t, r.Exec(ctx, "sub alerts s2"))

		require.NoError(t, r.Exec(ctx, "who orders"))
		assert.Contains(t, out.String(), "s1  connection=sess_")
		require.NoError(t, r.Exec(ctx, "topics"))
		assert.Contains(t, out.String(), "alerts\norders\n")
		require.NoError(t, r.Exec(ctx, "stats"))
		assert.Contains(t, out.String(), "\"sessions\"")
		assert.Regexp(t, `alerts\s+1\n`, out.String())
	})

	t.Run("close drops the session subscriptions", func(t *testing.T) {
		r, b, out := newTestREPL()
		ctx := context.Background()
		require.NoError(t, r.Exec(ctx, "sub orders s1"))
		require.NoError(t, r.Exec(ctx, "sub alerts s1"))

		require.NoError(t, r.Exec(ctx, "close"))
		assert.Contains(t, out.String(), "(2 subscriptions removed)")
		assert.Equal(t, 0, b.Registry().TopicCount())

		require.NoError(t, r.Exec(ctx, "sub orders s1"))
		assert.Equal(t, 1, b.Registry().SubscriberCount("orders"))
	})

	t.Run("usage and unknown commands", func(t *testing.T) {
		r, _, _ := newTestREPL()
		ctx := context.Background()

		assert.ErrorContains(t, r.Exec(ctx, "sub"), "usage: sub")
		assert.ErrorContains(t, r.Exec(ctx, "unsub orders"), "usage: unsub")
		assert.ErrorContains(t, r.Exec(ctx, "pub orders"), "usage: pub")
		assert.ErrorContains(t, r.Exec(ctx, "who"), "usage: who")
		assert.ErrorContains(t, r.Exec(ctx, "dance"), `unknown command "dance"`)
		assert.ErrorIs(t, r.Exec(ctx, "EXIT"), errExit)
		assert.NoError(t, r.Exec(ctx, "   "))
	})

	t.Run("help without renderer", func(t *testing.T) {
		r, _, out := newTestREPL()
		require.NoError(t, r.Exec(context.Background(), "help"))
		assert.Contains(t, out.String(), "sub <topic> [id]")
	})
}

func TestREPL_Run(t *testing.T) {
	r, b, out := newTestREPL()
	script := strings.NewReader("sub orders s1\nbogus\ntopics\nexit\nsub never s2\n")

	require.NoError(t, r.Run(context.Background(), script))

	assert.Contains(t, out.String(), "subscribed s1 to orders")
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
	assert.NotContains(t, out.String(), "never")
	assert.Equal(t, 0, b.Registry().TopicCount())
}
