package internal

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/status-im/status-serial-signer-go/internal/rpc"
	"github.com/status-im/status-serial-signer-go/internal/transport"
	"github.com/status-im/status-serial-signer-go/internal/wallet"
	"github.com/status-im/status-serial-signer-go/signal"
)

var (
	errNotConnected     = errors.New("not connected to a device")
	errAlreadyConnected = errors.New("already connected to a device")
	errEmptyPort        = errors.New("port name cannot be empty")
	errStopped          = errors.New("signer context stopped")

	ErrNoDevices = errors.New("no compatible devices found")
)

// SignerContext owns the connection to the signing device. Every operation
// holds mu for its whole duration, so exchanges on the serial link never
// interleave.
type SignerContext struct {
	mu        sync.Mutex
	transport *transport.Transport
	engine    *rpc.Engine
	builder   *wallet.Builder
	stopped   bool

	logger *zap.Logger
	status *Status

	opener      transport.Opener
	baudRate    int
	readTimeout time.Duration
	vid         uint16
	pid         uint16
	network     string
}

func NewSignerContext(opts ...Option) (*SignerContext, error) {
	kc := &SignerContext{
		logger:      zap.L().Named("signer"),
		opener:      transport.OpenSerial,
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
		vid:         DeviceVID,
		pid:         DevicePID,
		network:     wallet.DefaultNetwork,
	}

	for _, opt := range opts {
		opt(kc)
	}

	params, err := wallet.NetworkParams(kc.network)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer context")
	}

	kc.builder = wallet.NewBuilder(params, kc.logger)
	kc.status = NewStatus(params.Name)

	return kc, nil
}

// Scan lists the attached devices. It does not touch the open connection.
func (kc *SignerContext) Scan() ([]transport.DeviceInfo, error) {
	devices, err := transport.Scan(kc.vid, kc.pid)
	if err != nil {
		kc.logger.Error("failed to scan ports", zap.Error(err))
		return nil, err
	}

	kc.logger.Debug("scan finished", zap.Int("devices", len(devices)))

	if len(devices) == 0 {
		return nil, ErrNoDevices
	}

	return devices, nil
}

func (kc *SignerContext) Connect(port string) error {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if port == "" {
		return errEmptyPort
	}

	if kc.stopped {
		return errStopped
	}

	if kc.engine != nil {
		return errAlreadyConnected
	}

	t, err := transport.Open(kc.opener, port, kc.baudRate, kc.readTimeout, kc.logger)
	if err != nil {
		kc.logger.Error("failed to connect", zap.String("port", port), zap.Error(err))
		return err
	}

	kc.transport = t
	kc.engine = rpc.NewEngine(t, kc.logger)

	kc.status.State = Connected
	kc.status.Port = port
	kc.publishStatus()

	return nil
}

func (kc *SignerContext) Disconnect() error {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.engine == nil {
		return errNotConnected
	}

	kc.closeConnection()
	return nil
}

// Stop releases the connection, if any. A stopped context never connects
// again.
func (kc *SignerContext) Stop() {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	kc.stopped = true

	if kc.engine != nil {
		kc.closeConnection()
	}
}

func (kc *SignerContext) closeConnection() {
	err := kc.transport.Close()
	if err != nil {
		kc.logger.Error("failed to close port", zap.Error(err))
	}

	kc.transport = nil
	kc.engine = nil

	kc.status.Reset()
	kc.publishStatus()
}

func (kc *SignerContext) GetStatus() Status {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	return *kc.status
}

func (kc *SignerContext) Connected() bool {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	return kc.engine != nil
}

func (kc *SignerContext) Ping() error {
	_, err := execute[rpc.Empty](kc, rpc.Ping{})
	return err
}

func (kc *SignerContext) HashMD5(data []byte) (string, error) {
	return execute[string](kc, rpc.HashMD5{Data: data})
}

func (kc *SignerContext) HashSHA256(data []byte) (string, error) {
	return execute[string](kc, rpc.HashSHA256{Data: data})
}

// InitializeWallet generates a new seed on the device and returns its
// recovery phrase.
func (kc *SignerContext) InitializeWallet() ([]string, error) {
	return execute[[]string](kc, rpc.InitializeWallet{})
}

func (kc *SignerContext) ResetWallet() error {
	_, err := execute[rpc.Empty](kc, rpc.ResetWallet{})
	return err
}

func (kc *SignerContext) GetWalletStatus() (bool, error) {
	return execute[bool](kc, rpc.GetWalletStatus{})
}

func (kc *SignerContext) GetAddress(index uint8) (string, error) {
	return execute[string](kc, rpc.GetAddress{Index: index})
}

func (kc *SignerContext) GetPublicKey(index uint8) (string, error) {
	return execute[string](kc, rpc.GetPublicKey{Index: index})
}

// CreateTransaction builds and signs a transaction with the device key at
// req.AddressIndex. The lock is held across all device round trips.
func (kc *SignerContext) CreateTransaction(req *wallet.TransactionRequest) (string, error) {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.engine == nil {
		return "", errNotConnected
	}

	tx, err := kc.builder.CreateTransaction(&deviceSigner{kc: kc}, req)
	if err != nil {
		kc.logger.Error("failed to create transaction", zap.Error(err))
		return "", err
	}

	return tx, nil
}

func (kc *SignerContext) Network() string {
	return kc.builder.Params().Name
}

// execute runs cmd under the context lock.
func execute[T any](kc *SignerContext, cmd rpc.Command[T]) (T, error) {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.engine == nil {
		var zero T
		return zero, errNotConnected
	}

	return executeLocked(kc, cmd)
}

// executeLocked assumes mu is held.
func executeLocked[T any](kc *SignerContext, cmd rpc.Command[T]) (T, error) {
	out, err := rpc.Execute(kc.engine, cmd)
	return out, kc.checkTransportError(err, cmd.ID())
}

func (kc *SignerContext) checkTransportError(err error, cmd rpc.CommandID) error {
	if err == nil {
		if kc.status.State == ConnectionError {
			kc.status.State = Connected
			kc.publishStatus()
		}
		return nil
	}

	if rpc.IsLayer(err, rpc.LayerTransport) {
		kc.logger.Error("command failed on transport",
			zap.Stringer("command", cmd),
			zap.Error(err))
		kc.status.State = ConnectionError
		kc.publishStatus()
	}

	return err
}

func (kc *SignerContext) publishStatus() {
	kc.logger.Info("status changed", zap.Any("status", kc.status))
	signal.Send(StatusChangedSignal, kc.status)
}

// deviceSigner serves the signing workflow while the context lock is held.
type deviceSigner struct {
	kc *SignerContext
}

func (s *deviceSigner) PublicKey(index uint8) (string, error) {
	return executeLocked[string](s.kc, rpc.GetPublicKey{Index: index})
}

func (s *deviceSigner) SignDigest(index uint8, digest [32]byte) ([]byte, error) {
	return executeLocked[[]byte](s.kc, rpc.SignTransaction{Index: index, Digest: digest})
}
