/*
Package roost is an in-process publish/subscribe broker built around a
concurrent topic registry.

The pieces fit together like this:

  - subscribers: the registry mapping topic names to the subscribers
    registered on them. It is safe for concurrent use and never holds more
    than one topic lock at a time.
  - internal/broker: publish dispatch. The local broker fans a message out to
    a snapshot of the topic's subscribers and evicts the ones that fail to
    accept it. The NATS broker relays topics over NATS subjects.
  - internal/session: one client connection. Closing a session removes every
    subscription it made, across all topics.
  - events: the JSON envelope messages travel in.
  - cmd/roost: an interactive daemon driving all of the above.

# Basic Usage

	reg := subscribers.New[broker.Sink]()
	b := broker.Local(reg)
	sessions := session.NewManager(b)

	s := sessions.Open()
	inbox := broker.NewInbox(16)
	if _, err := s.Subscribe(ctx, "orders", inbox); err != nil {
		return err
	}

	msg, _ := events.NewMessage("orders", map[string]string{"sku": "abc"})
	delivery, err := b.Publish(ctx, "orders", msg)

	// disconnect
	s.Close()

# Configuration

The daemon reads ROOST_* environment variables, optionally from a .env file:

	ROOST_TRANSPORT=nats
	ROOST_NATS_URL=nats://localhost:4222
	ROOST_SUBJECT_PREFIX=roost
	ROOST_INBOX_SIZE=50
	ROOST_SLOW_SUBSCRIBER_TIMEOUT=100ms
	ROOST_LOG_LEVEL=debug
	ROOST_LOG_FORMAT=json
*/
package roost
