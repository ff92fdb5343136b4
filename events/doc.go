// Package events defines the message envelope that travels through the broker,
// both between goroutines of one process and across processes over NATS.
//
// Design decisions:
//   - One envelope: every published message is a Message regardless of payload
//   - Opaque payload: the payload stays raw JSON until a subscriber decodes it
//   - Efficient JSON: custom marshaling on a pre-allocated type marker
//   - Rich metadata: id, topic, sender, timestamp and optional structured meta
//
// Example usage:
//
//	msg, err := events.NewMessage("orders", Order{ID: 42})
//	if err != nil {
//	    return err
//	}
//	data, err := events.ToJSON(msg)
//
//	// on the receiving side
//	msg, err := events.FromJSON(data)
//	order, err := events.Decode[Order](msg)
package events
