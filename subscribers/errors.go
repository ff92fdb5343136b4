package subscribers

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when a topic name or subscriber id is empty.
var ErrInvalidInput = errors.New("invalid input")

func validate(topic, id string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidInput)
	}
	if id == "" {
		return fmt.Errorf("%w: subscriber id is required", ErrInvalidInput)
	}
	return nil
}
