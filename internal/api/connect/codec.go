package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// codecName is registered for both unary (application/json) and streaming
// (application/connect+json) requests.
const codecName = "json"

// jsonCodec marshals plain Go messages with encoding/json.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return codecName
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}
