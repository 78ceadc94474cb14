package rpc

import (
	"sync"

	"go.uber.org/zap"
)

// Exchanger sends a request frame and returns the raw reply, reading at most
// capacity bytes.
type Exchanger interface {
	Exchange(request []byte, capacity int) ([]byte, error)
}

// Engine drives one command at a time through the transport.
type Engine struct {
	mu        sync.Mutex
	transport Exchanger
	logger    *zap.Logger
}

func NewEngine(transport Exchanger, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		transport: transport,
		logger:    logger.Named("rpc"),
	}
}

// Execute encodes cmd, exchanges it with the device and decodes the reply.
// Failures are returned as *Error naming the layer that failed.
func Execute[T any](e *Engine, cmd Command[T]) (T, error) {
	var zero T

	e.mu.Lock()
	defer e.mu.Unlock()

	id := cmd.ID()
	logger := e.logger.With(zap.Stringer("command", id))

	packet, err := BuildRequest(id, cmd.Encode())
	if err != nil {
		return zero, wrapLayer(LayerRequest, id, err)
	}

	logger.Debug("sending request", zap.Int("size", len(packet)))

	raw, err := e.transport.Exchange(packet, MaxResponseSize)
	if err != nil {
		logger.Error("exchange failed", zap.Error(err))
		return zero, wrapLayer(LayerTransport, id, err)
	}

	logger.Debug("received response", zap.Int("size", len(raw)))

	resp, err := ParseResponse(raw)
	if err != nil {
		logger.Error("invalid response frame", zap.Error(err), zap.Int("size", len(raw)))
		return zero, wrapLayer(LayerResponse, id, err)
	}

	out, err := cmd.Decode(resp)
	if err != nil {
		logger.Debug("command failed", zap.Uint16("status", resp.Status), zap.Error(err))
		return zero, wrapLayer(LayerCommand, id, err)
	}

	return out, nil
}
