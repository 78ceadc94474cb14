package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/status-im/status-serial-signer-go/internal"
	"github.com/status-im/status-serial-signer-go/pkg/session"
	"github.com/status-im/status-serial-signer-go/signal"
)

const (
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	logger          *zap.Logger
	server          *http.Server
	listener        net.Listener
	mux             *http.ServeMux
	connectionsLock sync.Mutex
	connections     map[*websocket.Conn]struct{}
	address         string
	service         *session.SignerService
	// lastStatus is the latest status-changed envelope, guarded by connectionsLock.
	lastStatus []byte
}

// NewServer creates a server whose signer service is started with opts.
func NewServer(logger *zap.Logger, opts ...internal.Option) *Server {
	return &Server{
		logger:      logger.Named("server"),
		connections: make(map[*websocket.Conn]struct{}, 1),
		service:     session.NewSignerService(opts...),
	}
}

func (s *Server) Address() string {
	return s.address
}

func (s *Server) Port() (int, error) {
	_, portString, err := net.SplitHostPort(s.address)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portString)
}

func (s *Server) Setup() {
	signal.SetSignerSignalHandler(s.signalHandler)
}

// signalHandler pushes data to every subscriber. The latest status-changed
// signal is kept and replayed to subscribers joining later.
func (s *Server) signalHandler(data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(data, &envelope)
	if err != nil {
		s.logger.Error("failed to decode signal", zap.Error(err))
		return
	}

	s.connectionsLock.Lock()
	defer s.connectionsLock.Unlock()

	if envelope.Type == internal.StatusChangedSignal {
		s.lastStatus = data
	}

	s.logger.Debug("pushing signal", zap.String("type", envelope.Type), zap.Int("subscribers", len(s.connections)))

	for connection := range s.connections {
		err := s.push(connection, data)
		if err != nil {
			s.logger.Error("failed to push signal", zap.String("type", envelope.Type), zap.Error(err))
			s.dropConnection(connection)
		}
	}
}

// push assumes connectionsLock is held.
func (s *Server) push(connection *websocket.Conn, data []byte) error {
	err := connection.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return errors.Wrap(err, "failed to set write deadline")
	}
	return connection.WriteMessage(websocket.TextMessage, data)
}

// dropConnection assumes connectionsLock is held.
func (s *Server) dropConnection(connection *websocket.Conn) {
	delete(s.connections, connection)
	err := connection.Close()
	if err != nil {
		s.logger.Error("failed to close connection", zap.Error(err))
	}
}

func (s *Server) Listen(address string) error {
	if s.server != nil {
		return errors.New("server already started")
	}

	_, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrap(err, "invalid address")
	}

	rpcServer, err := session.NewRPCServer(s.service)
	if err != nil {
		return errors.Wrap(err, "failed to create RPC server")
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/signals", s.signals)
	s.mux.Handle("/rpc", rpcServer)

	s.server = &http.Server{
		Addr:              address,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.listener, err = net.Listen("tcp", address)
	if err != nil {
		s.server = nil
		return err
	}

	s.address = s.listener.Addr().String()

	return nil
}

func (s *Server) Serve() {
	err := s.server.Serve(s.listener)
	if !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("signals server closed with error", zap.Error(err))
	}
}

// Shutdown stops the HTTP server and releases the device.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.server != nil {
		s.Stop(ctx)
	}

	var args, reply struct{}
	_ = s.service.Stop(&args, &reply)
}

func (s *Server) Stop(ctx context.Context) {
	s.connectionsLock.Lock()
	for connection := range s.connections {
		s.dropConnection(connection)
	}
	s.lastStatus = nil
	s.connectionsLock.Unlock()

	err := s.server.Shutdown(ctx)
	if err != nil {
		s.logger.Error("failed to shutdown signals server", zap.Error(err))
	}

	s.server = nil
	s.address = ""
}

func (s *Server) signals(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Accepting all requests
		},
	}

	connection, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	s.connectionsLock.Lock()
	defer s.connectionsLock.Unlock()

	if s.lastStatus != nil {
		err = s.push(connection, s.lastStatus)
		if err != nil {
			s.logger.Error("failed to replay status", zap.Error(err))
			_ = connection.Close()
			return
		}
	}

	s.logger.Debug("new signal subscriber", zap.Int("subscribers", len(s.connections)+1))
	s.connections[connection] = struct{}{}
}
