// Package repl is the interactive front end of the roost daemon. Every line
// read from the input is one command acting on a single client session.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/casualjim/roost/events"
	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/internal/session"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/k0kubun/pp/v3"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var errExit = errors.New("exit")

const helpText = `# roost

| command | effect |
|---|---|
| ` + "`sub <topic> [id]`" + ` | subscribe this session to a topic |
| ` + "`unsub <topic> <id>`" + ` | drop one of this session's subscriptions |
| ` + "`pub <topic> <json or text>`" + ` | publish a message |
| ` + "`who <topic>`" + ` | list the subscribers of a topic |
| ` + "`topics`" + ` | list topics with subscribers |
| ` + "`stats`" + ` | subscriber counts per topic |
| ` + "`close`" + ` | close this session and open a new one |
| ` + "`exit`" + ` | quit |
`

// REPL runs commands against a broker through one session at a time.
type REPL struct {
	broker    broker.Broker
	sessions  *session.Manager
	inboxSize int
	logger    *slog.Logger
	glam      *glamour.TermRenderer

	out *lockedWriter

	mu      sync.Mutex
	current *session.Session
	inboxes map[string]*broker.Inbox
	wg      sync.WaitGroup
}

// New creates a REPL writing to out. The renderer may be nil, in which case
// help is printed as plain markdown.
func New(b broker.Broker, sessions *session.Manager, out io.Writer, inboxSize int, glam *glamour.TermRenderer, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{
		broker:    b,
		sessions:  sessions,
		inboxSize: inboxSize,
		logger:    logger.With(slogx.LoggerName("repl")),
		glam:      glam,
		out:       &lockedWriter{w: out},
		current:   sessions.Open(),
		inboxes:   make(map[string]*broker.Inbox),
	}
}

// Run reads commands from in until it is exhausted, ctx is done or the exit
// command is given. The session is closed on return.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	defer r.shutdown()

	scanner := bufio.NewScanner(in)
	scanner.Split(bufio.ScanLines)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.out.Printf("%s> ", color.CyanString("roost"))
		if !scanner.Scan() {
			r.out.Println()
			return scanner.Err()
		}

		err := r.Exec(ctx, scanner.Text())
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			r.out.Printf("%s %v\n", color.RedString("error:"), err)
		}
	}
}

// Exec runs a single command line.
func (r *REPL) Exec(ctx context.Context, line string) error {
	cmd, args := splitCommand(line)
	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "help", "?":
		return r.help()
	case "sub":
		return r.subscribe(ctx, args)
	case "unsub":
		return r.unsubscribe(args)
	case "pub":
		return r.publish(ctx, args)
	case "who":
		return r.who(args)
	case "topics":
		return r.topics()
	case "stats":
		return r.stats()
	case "close":
		return r.reopen()
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (r *REPL) help() error {
	if r.glam == nil {
		r.out.Print(helpText)
		return nil
	}
	rendered, err := r.glam.Render(helpText)
	if err != nil {
		return err
	}
	r.out.Print(rendered)
	return nil
}

func (r *REPL) subscribe(ctx context.Context, args string) error {
	topic, id := splitCommand(args)
	if topic == "" {
		return errors.New("usage: sub <topic> [id]")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inbox := broker.NewInbox(r.inboxSize)
	var err error
	if id == "" {
		id, err = r.current.Subscribe(ctx, topic, inbox)
	} else {
		err = r.current.SubscribeAs(ctx, topic, id, inbox)
	}
	if err != nil {
		return err
	}

	key := inboxKey(topic, id)
	if previous, ok := r.inboxes[key]; ok {
		previous.Close()
	}
	r.inboxes[key] = inbox
	r.wg.Add(1)
	go r.print(id, inbox)

	r.out.Printf("subscribed %s to %s\n", color.YellowString(id), color.GreenString(topic))
	return nil
}

func (r *REPL) unsubscribe(args string) error {
	topic, id := splitCommand(args)
	if topic == "" || id == "" {
		return errors.New("usage: unsub <topic> <id>")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed, err := r.current.Unsubscribe(topic, id)
	if err != nil {
		return err
	}
	if !removed {
		r.out.Printf("no subscription %s on %s\n", id, topic)
		return nil
	}
	key := inboxKey(topic, id)
	if inbox, ok := r.inboxes[key]; ok {
		inbox.Close()
		delete(r.inboxes, key)
	}
	r.out.Printf("unsubscribed %s from %s\n", color.YellowString(id), color.GreenString(topic))
	return nil
}

func (r *REPL) publish(ctx context.Context, args string) error {
	topic, body := splitCommand(args)
	if topic == "" || body == "" {
		return errors.New("usage: pub <topic> <json or text>")
	}

	var payload any = body
	if json.Valid([]byte(body)) {
		payload = json.RawMessage(body)
	}
	msg, err := events.NewMessage(topic, payload)
	if err != nil {
		return err
	}

	r.mu.Lock()
	sender := r.current.ID()
	r.mu.Unlock()

	delivery, err := r.broker.Publish(ctx, topic, msg.WithSender(sender))
	if err != nil {
		return err
	}
	r.out.Printf("published to %s: %d delivered, %d failed\n", color.GreenString(topic), delivery.Delivered, delivery.Failed)
	return nil
}

func (r *REPL) who(args string) error {
	topic, _ := splitCommand(args)
	if topic == "" {
		return errors.New("usage: who <topic>")
	}
	subs := r.broker.Registry().SubscribersOf(topic)
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	if len(subs) == 0 {
		r.out.Printf("nobody is subscribed to %s\n", topic)
		return nil
	}
	for _, sub := range subs {
		r.out.Printf("%s  connection=%s  since=%s\n", color.YellowString(sub.ID), sub.Connection, sub.Since.Format("15:04:05.000"))
	}
	return nil
}

func (r *REPL) topics() error {
	names := r.broker.Registry().Topics()
	if len(names) == 0 {
		r.out.Println("no topics")
		return nil
	}
	r.out.Println(strings.Join(names, "\n"))
	return nil
}

func (r *REPL) stats() error {
	reg := r.broker.Registry()
	counts := orderedmap.New[string, int]()
	for _, topic := range reg.Topics() {
		counts.Set(topic, reg.SubscriberCount(topic))
	}

	r.mu.Lock()
	owned := r.current.Subscriptions()
	sessionID := r.current.ID()
	r.mu.Unlock()

	printer := pp.New()
	printer.SetOutput(r.out)
	printer.SetColoringEnabled(false)
	if _, err := printer.Println(map[string]any{
		"session":       sessionID,
		"sessions":      r.sessions.Len(),
		"topics":        reg.TopicCount(),
		"subscriptions": owned,
	}); err != nil {
		return err
	}
	for pair := counts.Oldest(); pair != nil; pair = pair.Next() {
		r.out.Printf("%-24s %d\n", pair.Key, pair.Value)
	}
	return nil
}

func (r *REPL) reopen() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.ID()
	removed, _ := r.sessions.Close(old)
	r.closeInboxes()
	r.current = r.sessions.Open()
	r.out.Printf("closed %s (%d subscriptions removed), now %s\n", old, removed, color.YellowString(r.current.ID()))
	return nil
}

func (r *REPL) shutdown() {
	r.mu.Lock()
	r.sessions.Close(r.current.ID())
	r.closeInboxes()
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *REPL) closeInboxes() {
	for key, inbox := range r.inboxes {
		inbox.Close()
		delete(r.inboxes, key)
	}
}

func (r *REPL) print(id string, inbox *broker.Inbox) {
	defer r.wg.Done()
	for {
		select {
		case <-inbox.Done():
			return
		case msg := <-inbox.C():
			sender := msg.Sender
			if sender == "" {
				sender = "anonymous"
			}
			r.out.Printf("\n%s %s %s: %s\n", color.GreenString(msg.Topic), color.YellowString(id), color.MagentaString(sender), msg.Payload)
			r.logger.Debug("delivered", slogx.Topic(msg.Topic), slogx.Subscriber(id))
		}
	}
}

func inboxKey(topic, id string) string {
	return topic + "\x00" + id
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	return cmd, strings.TrimSpace(rest)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (l *lockedWriter) Printf(format string, args ...any) {
	fmt.Fprintf(l, format, args...)
}

func (l *lockedWriter) Println(args ...any) {
	fmt.Fprintln(l, args...)
}

func (l *lockedWriter) Print(args ...any) {
	fmt.Fprint(l, args...)
}
