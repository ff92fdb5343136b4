package events

import (
	"fmt"
	"time"

	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var messageJSON = []byte(`{"type":"message"}`)

// Message is a payload published on a topic.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Sender    string          `json:"sender,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp strfmt.DateTime `json:"timestamp,omitempty"`
	Meta      gjson.Result    `json:"meta,omitempty"`
}

// NewMessage creates a message for topic with payload encoded as JSON. A
// payload that is already a json.RawMessage or []byte is used as is.
func NewMessage(topic string, payload any) (Message, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case json.RawMessage:
		raw = p
	case []byte:
		raw = json.RawMessage(p)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("encode payload: %w", err)
		}
		raw = b
	}
	if !json.Valid(raw) {
		return Message{}, fmt.Errorf("payload is not valid json: %s", raw)
	}

	return Message{
		ID:        uuidx.New(),
		Topic:     topic,
		Payload:   raw,
		Timestamp: strfmt.DateTime(time.Now()),
	}, nil
}

// WithSender returns a copy of m with the sender set.
func (m Message) WithSender(sender string) Message {
	m.Sender = sender
	return m
}

// WithMeta returns a copy of m carrying the given raw JSON object as metadata.
func (m Message) WithMeta(meta string) Message {
	m.Meta = gjson.Parse(meta)
	return m
}

// Decode unmarshals the payload of msg into a T.
func Decode[T any](msg Message) (T, error) {
	var v T
	if len(msg.Payload) == 0 {
		return v, fmt.Errorf("message %s has no payload", msg.ID)
	}
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode payload of message %s: %w", msg.ID, err)
	}
	return v, nil
}

// ToJSON encodes msg in its wire format.
func ToJSON(msg Message) ([]byte, error) {
	return msg.MarshalJSON()
}

// FromJSON decodes a message from its wire format.
func FromJSON(data []byte) (Message, error) {
	var msg Message
	if err := msg.UnmarshalJSON(data); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// MarshalJSON implements custom JSON marshaling for Message
func (m Message) MarshalJSON() ([]byte, error) {
	result := messageJSON

	var err error
	result, err = sjson.SetBytes(result, "id", m.ID.String())
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "topic", m.Topic)
	if err != nil {
		return nil, err
	}

	if m.Sender != "" {
		result, err = sjson.SetBytes(result, "sender", m.Sender)
		if err != nil {
			return nil, err
		}
	}

	payload := []byte(m.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	result, err = sjson.SetRawBytes(result, "payload", payload)
	if err != nil {
		return nil, err
	}

	if !time.Time(m.Timestamp).IsZero() {
		result, err = sjson.SetBytes(result, "timestamp", m.Timestamp.String())
		if err != nil {
			return nil, err
		}
	}

	if m.Meta.Raw != "" {
		result, err = sjson.SetRawBytes(result, "meta", []byte(m.Meta.Raw))
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Message
func (m *Message) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != "message" {
		return fmt.Errorf("missing or invalid type, expected 'message'")
	}

	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return fmt.Errorf("missing required field 'id'")
	}
	if err := m.ID.UnmarshalText([]byte(id.String())); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}

	topic := gjson.GetBytes(data, "topic")
	if !topic.Exists() || topic.String() == "" {
		return fmt.Errorf("missing required field 'topic'")
	}
	m.Topic = topic.String()

	payload := gjson.GetBytes(data, "payload")
	if !payload.Exists() {
		return fmt.Errorf("missing required field 'payload'")
	}
	m.Payload = json.RawMessage(payload.Raw)

	m.Sender = gjson.GetBytes(data, "sender").String()

	if timestamp := gjson.GetBytes(data, "timestamp"); timestamp.Exists() {
		ts, err := strfmt.ParseDateTime(timestamp.String())
		if err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		m.Timestamp = ts
	}

	if meta := gjson.GetBytes(data, "meta"); meta.Exists() {
		m.Meta = meta
	}
	return nil
}
