package rpc

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTooLong        = errors.New("response data is too long")
	ErrTooShort       = errors.New("response data is too short")
	ErrInvalidLength  = errors.New("response data has invalid length")
	ErrIncompleteData = errors.New("response data is incomplete")

	// ErrExecution is returned by every command when the device reports a
	// status word other than StatusOK. The protocol carries no subcode.
	ErrExecution = errors.New("execution failed")

	ErrDataTooLong = errors.New("data too long")
)

type Layer string

const (
	LayerRequest   Layer = "request"
	LayerTransport Layer = "transport"
	LayerResponse  Layer = "response"
	LayerCommand   Layer = "command"
)

// Error tags a failed exchange with the layer it failed in.
type Error struct {
	Layer   Layer
	Command CommandID
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error: %v", e.Layer, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapLayer(layer Layer, cmd CommandID, err error) error {
	return &Error{Layer: layer, Command: cmd, Err: err}
}

// IsLayer reports whether err is an *Error raised by the given layer.
func IsLayer(err error, layer Layer) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Layer == layer
	}
	return false
}
