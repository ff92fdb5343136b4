package slogx

import (
	"fmt"
	"log/slog"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// ByteString creates a slog.Attr with the given key and a string representation of the byte slice value.
func ByteString(key string, value []byte) slog.Attr {
	return slog.String(key, string(value))
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

const (
	// KeyLoggerName is the key for the component name a logger belongs to.
	KeyLoggerName = "logger"
	// KeyTopic is the key for a topic name.
	KeyTopic = "topic"
	// KeySubscriber is the key for a subscriber id.
	KeySubscriber = "subscriber"
	// KeyConnection is the key for a connection or session id.
	KeyConnection = "connection"
)

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Topic returns an attribute for a topic name.
func Topic(name string) slog.Attr {
	return slog.String(KeyTopic, name)
}

// Subscriber returns an attribute for a subscriber id.
func Subscriber(id string) slog.Attr {
	return slog.String(KeySubscriber, id)
}

// Connection returns an attribute for a connection id.
func Connection(id string) slog.Attr {
	return slog.String(KeyConnection, id)
}
