package transport

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/viant/authbridge"
)

// Encode validates and serializes a message.
func Encode(message *authbridge.Message) ([]byte, error) {
	if err := message.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", message.Channel, err)
	}
	return data, nil
}

// Decode deserializes and validates a message.
func Decode(data []byte) (*authbridge.Message, error) {
	message := &authbridge.Message{}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("%w: %v", authbridge.ErrInvalidMessage, err)
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}
	return message, nil
}
