package session

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrorResponse is the reply to a host call that never reached the signer
// service, e.g. before SignerInitializeRPC.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MarshalError encodes err as an ErrorResponse; a nil err yields an empty
// error string.
func MarshalError(err error) []byte {
	var response ErrorResponse
	if err != nil {
		response.Error = err.Error()
	}
	data, _ := json.Marshal(response)
	return data
}

// CallRPC serves one JSON-RPC request in process and returns the reply body.
// Requests and replies may carry recovery phrases, so only sizes are logged.
func CallRPC(handler http.Handler, payload []byte) ([]byte, error) {
	logger := zap.L().Named("session")
	logger.Debug("calling RPC", zap.Int("size", len(payload)))

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	resp := rr.Result()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read RPC response")
	}

	logger.Debug("RPC returned", zap.String("status", resp.Status), zap.Int("size", len(body)))
	return body, nil
}
