// Package subscribers implements the subscription bookkeeping at the centre of
// the broker: a registry mapping topic names to the set of subscribers
// registered on that topic.
//
// Design decisions:
//   - Explicit instance: a Registry is created once at broker start-up with New
//     and shared by pointer between the session layer (which subscribes and
//     unsubscribes on behalf of connections) and the dispatch layer (which reads
//     fan-out targets). There is no package level registry.
//   - Two-level map: the outer topic index is a lock-free map with an atomic
//     get-or-create, so concurrent first subscriptions to a new topic always
//     land in the same entry. Each topic guards its own subscriber map with a
//     read/write mutex, so operations on different topics never contend.
//   - Snapshots: reads copy the subscriber set under the topic's read lock. A
//     snapshot never contains a duplicate id or a half-written record.
//   - Overwrite on re-subscribe: subscribing an id that already exists on a
//     topic replaces the stored record.
//   - Empty topics: a topic keeps its (empty) entry in the index after its last
//     subscriber leaves. Entries are never deleted, so a subscribe can never
//     land in an entry that is being removed. TopicCount and Topics only count
//     topics that currently have subscribers.
//   - Conditional removal: UnsubscribeIf checks a predicate against the stored
//     record under the topic's write lock, so "remove it if it is still the one
//     I saw" cannot remove a replacement.
//   - No goroutines, no I/O: the only error is ErrInvalidInput. Absence is
//     reported as false or an empty result, never as an error.
//
// The registry never interprets the Target carried by a Subscriber. The
// dispatch layer decides what a target is (a channel, a connection, a NATS
// subject) and how to deliver to it.
//
// Example usage:
//
//	reg := subscribers.New[Sink]()
//	err := reg.Subscribe("orders", subscribers.Subscriber[Sink]{
//	    ID:         "s1",
//	    Connection: conn.ID(),
//	    Target:     conn,
//	})
//
//	for _, sub := range reg.SubscribersOf("orders") {
//	    sub.Target.Deliver(ctx, msg)
//	}
//
//	// connection closed
//	reg.RemoveAll(subscribers.ByConnection[Sink](conn.ID()))
package subscribers
