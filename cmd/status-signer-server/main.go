package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/status-im/status-serial-signer-go/cmd/status-signer-server/server"
	"github.com/status-im/status-serial-signer-go/internal/logging"
)

var (
	address    = flag.String("address", "127.0.0.1:0", "host:port to listen")
	rootLogger = zap.NewNop()
)

func init() {
	rootLogger = buildRootLogger(logging.BuildDevelopmentLogger)
	zap.ReplaceGlobals(rootLogger)
}

// buildRootLogger falls back to a no-op logger when build fails.
func buildRootLogger(build func() (*zap.Logger, error)) *zap.Logger {
	logger, err := build()
	if err != nil || logger == nil {
		fmt.Printf("failed to initialize log: %v\n", err)
		return zap.NewNop()
	}
	return logger
}

func main() {
	logger := rootLogger.Named("main")

	flag.Parse()

	srv := server.NewServer(rootLogger)
	srv.Setup()

	go handleInterrupts(srv)

	err := srv.Listen(*address)
	if err != nil {
		logger.Error("failed to start server", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("signer-server started", zap.String("address", srv.Address()))
	srv.Serve()
}

// handleInterrupts catches interrupt signal (SIGTERM/SIGINT), releases the
// serial port and exits.
func handleInterrupts(srv *server.Server) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	<-ch
	srv.Shutdown()
	os.Exit(0)
}
