// Package signal delivers asynchronous events to whoever embeds the signer,
// either the websocket server or a host application.
package signal

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// SignalHandler receives a JSON encoded Envelope.
type SignalHandler func([]byte)

type Envelope struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event"`
}

var (
	handlerMu sync.RWMutex
	handler   SignalHandler
)

func SetSignerSignalHandler(h SignalHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handler = h
}

func ResetSignerSignalHandler() {
	SetSignerSignalHandler(nil)
}

// Send encodes event with its type and hands it to the registered handler.
// Signals are dropped when no handler is set.
func Send(typ string, event interface{}) {
	handlerMu.RLock()
	h := handler
	handlerMu.RUnlock()

	if h == nil {
		zap.L().Debug("no signal handler, dropping signal", zap.String("type", typ))
		return
	}

	data, err := json.Marshal(&Envelope{Type: typ, Event: event})
	if err != nil {
		zap.L().Error("failed to marshal signal", zap.String("type", typ), zap.Error(err))
		return
	}

	h(data)
}
