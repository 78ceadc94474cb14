package internal

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/status-im/status-serial-signer-go/internal/logging"
	"github.com/status-im/status-serial-signer-go/internal/transport"
)

type Option func(*SignerContext)

func WithLogging(enabled bool, filePath string) Option {
	return func(k *SignerContext) {
		var logger *zap.Logger

		defer func() {
			zap.ReplaceGlobals(logger)
			k.logger = zap.L().Named("signer")
		}()

		if !enabled {
			logger = zap.NewNop()
			return
		}

		var err error
		logger, err = logging.BuildLogger(filePath)

		if err != nil {
			fmt.Printf("failed to initialize log: %v\n", err)
			logger = zap.NewNop()
		}
	}
}

// WithNetwork selects the network recipient and change addresses must
// belong to. See wallet.NetworkParams for accepted names.
func WithNetwork(name string) Option {
	return func(k *SignerContext) {
		k.network = name
	}
}

func WithBaudRate(baudRate int) Option {
	return func(k *SignerContext) {
		k.baudRate = baudRate
	}
}

func WithReadTimeout(timeout time.Duration) Option {
	return func(k *SignerContext) {
		k.readTimeout = timeout
	}
}

func WithDeviceID(vid, pid uint16) Option {
	return func(k *SignerContext) {
		k.vid = vid
		k.pid = pid
	}
}

func WithPortOpener(opener transport.Opener) Option {
	return func(k *SignerContext) {
		k.opener = opener
	}
}
