package session

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/status-im/status-serial-signer-go/internal"
	"github.com/status-im/status-serial-signer-go/internal/transport"
	"github.com/status-im/status-serial-signer-go/internal/wallet"
	"github.com/status-im/status-serial-signer-go/pkg/utils"
)

var (
	errSignerServiceNotStarted     = errors.New("signer service not started")
	errSignerServiceAlreadyStarted = errors.New("signer service already started")
	errUnknownHashAlgorithm        = errors.New("unknown hash algorithm")
)

type SignerService struct {
	mu            sync.Mutex
	signerContext *internal.SignerContext
	options       []internal.Option
}

// NewSignerService returns a service whose Start applies opts after the
// options derived from the request.
func NewSignerService(opts ...internal.Option) *SignerService {
	return &SignerService{options: opts}
}

type StartRequest struct {
	Network     string `json:"network" validate:"omitempty,network"`
	LogEnabled  bool   `json:"logEnabled"`
	LogFilePath string `json:"logFilePath"`
}

func (s *SignerService) Start(args *StartRequest, reply *struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signerContext != nil {
		return errSignerServiceAlreadyStarted
	}

	err := validateRequest(args)
	if err != nil {
		return err
	}

	opts := []internal.Option{internal.WithLogging(args.LogEnabled, args.LogFilePath)}
	if args.Network != "" {
		opts = append(opts, internal.WithNetwork(args.Network))
	}
	opts = append(opts, s.options...)

	s.signerContext, err = internal.NewSignerContext(opts...)
	return err
}

func (s *SignerService) Stop(args *struct{}, reply *struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signerContext == nil {
		return errSignerServiceNotStarted
	}

	s.signerContext.Stop()
	s.signerContext = nil
	return nil
}

// signer returns the context of the running session. A context released by a
// concurrent Stop reports not connected on every device call.
func (s *SignerService) signer() (*internal.SignerContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signerContext == nil {
		return nil, errSignerServiceNotStarted
	}
	return s.signerContext, nil
}

// GetStatus should not be really used, as Status is pushed with `status-changed` signal.
// But it's handy to have for debugging purposes.
func (s *SignerService) GetStatus(args *struct{}, reply *internal.Status) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	*reply = kc.GetStatus()
	return nil
}

type ScanDevicesResponse struct {
	Devices []transport.DeviceInfo `json:"devices"`
}

func (s *SignerService) ScanDevices(args *struct{}, reply *ScanDevicesResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	devices, err := kc.Scan()
	if err != nil {
		return err
	}
	reply.Devices = devices
	return nil
}

type ConnectRequest struct {
	Port string `json:"port" validate:"required"`
}

func (s *SignerService) Connect(args *ConnectRequest, reply *struct{}) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	err = validateRequest(args)
	if err != nil {
		return err
	}

	return kc.Connect(args.Port)
}

func (s *SignerService) Disconnect(args *struct{}, reply *struct{}) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	return kc.Disconnect()
}

func (s *SignerService) Ping(args *struct{}, reply *struct{}) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	return kc.Ping()
}

type HashRequest struct {
	Algorithm string          `json:"algorithm" validate:"required,oneof=md5 sha256"`
	Data      utils.HexString `json:"data" validate:"max=512"`
}

type HashResponse struct {
	Digest string `json:"digest"`
}

// Hash computes a digest of args.Data on the device.
func (s *SignerService) Hash(args *HashRequest, reply *HashResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	err = validateRequest(args)
	if err != nil {
		return err
	}

	switch args.Algorithm {
	case "md5":
		reply.Digest, err = kc.HashMD5(args.Data)
	case "sha256":
		reply.Digest, err = kc.HashSHA256(args.Data)
	default:
		err = errUnknownHashAlgorithm
	}

	return err
}

type InitializeWalletResponse struct {
	Words []string `json:"words"`
	// Valid reports whether the words form a phrase with a correct BIP39 checksum.
	Valid bool `json:"valid"`
}

func (s *SignerService) InitializeWallet(args *struct{}, reply *InitializeWalletResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	words, err := kc.InitializeWallet()
	if err != nil {
		return err
	}

	reply.Words = words
	reply.Valid = isRecoveryPhrase(words)
	return nil
}

func (s *SignerService) ResetWallet(args *struct{}, reply *struct{}) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	return kc.ResetWallet()
}

type GetWalletStatusResponse struct {
	Initialized bool `json:"initialized"`
}

func (s *SignerService) GetWalletStatus(args *struct{}, reply *GetWalletStatusResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	initialized, err := kc.GetWalletStatus()
	if err != nil {
		return err
	}
	reply.Initialized = initialized
	return nil
}

type IndexRequest struct {
	Index int `json:"index" validate:"gte=0,lte=255"`
}

type GetAddressResponse struct {
	Address string `json:"address"`
}

func (s *SignerService) GetAddress(args *IndexRequest, reply *GetAddressResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	err = validateRequest(args)
	if err != nil {
		return err
	}

	reply.Address, err = kc.GetAddress(uint8(args.Index))
	return err
}

type GetPublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

func (s *SignerService) GetPublicKey(args *IndexRequest, reply *GetPublicKeyResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	err = validateRequest(args)
	if err != nil {
		return err
	}

	reply.PublicKey, err = kc.GetPublicKey(uint8(args.Index))
	return err
}

type CreateTransactionRequest struct {
	Address          string        `json:"address" validate:"required"`
	AddressIndex     int           `json:"addressIndex" validate:"gte=0,lte=255"`
	RecipientAddress string        `json:"recipientAddress" validate:"required"`
	UTXOs            []wallet.UTXO `json:"utxos" validate:"required,min=1,dive"`
	Amount           uint64        `json:"amount" validate:"gt=0"`
	Fee              uint64        `json:"fee"`
}

type CreateTransactionResponse struct {
	Transaction string `json:"transaction"`
}

func (s *SignerService) CreateTransaction(args *CreateTransactionRequest, reply *CreateTransactionResponse) error {
	kc, err := s.signer()
	if err != nil {
		return err
	}

	err = validateRequest(args)
	if err != nil {
		return err
	}

	reply.Transaction, err = kc.CreateTransaction(&wallet.TransactionRequest{
		SenderAddress:    args.Address,
		AddressIndex:     uint8(args.AddressIndex),
		RecipientAddress: args.RecipientAddress,
		UTXOs:            args.UTXOs,
		Amount:           args.Amount,
		Fee:              args.Fee,
	})
	return err
}
