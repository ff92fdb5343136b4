// Package broker implements the publish-dispatch side of roost: it looks up
// the subscribers of a topic in a subscribers.Registry and delivers each
// published message to them.
//
// Design decisions:
//   - Registry driven: a broker owns no subscription state of its own, the
//     session layer writes the registry and the broker only reads it
//   - Snapshot fan-out: delivery iterates a snapshot, no registry lock is held
//     while a sink runs
//   - Slow subscriber protection: every delivery is bounded by a timeout, a
//     sink that fails or stays full is evicted from the topic
//   - Context-first: publishing stops as soon as the caller's context is done
//   - Transport agnostic: the Local broker fans out in process, the NATS
//     broker relays messages through NATS subjects and fans out on receipt
//
// Interface hierarchy:
//   - Broker: publishes to topics and prepares topics for delivery
//     └── Sink: the delivery target stored with each subscriber
//     └── Inbox: a buffered channel Sink
//
// Example usage:
//
//	reg := subscribers.New[broker.Sink]()
//	b := broker.Local(reg)
//
//	inbox := broker.NewInbox(50)
//	defer inbox.Close()
//	_ = reg.Subscribe("orders", subscribers.Subscriber[broker.Sink]{ID: "s1", Target: inbox})
//	_ = b.Watch(ctx, "orders")
//
//	msg, _ := events.NewMessage("orders", order)
//	delivery, err := b.Publish(ctx, "orders", msg)
package broker
