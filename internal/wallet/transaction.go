package wallet

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	txVersion = 2
	// All inputs are final; no relative lock time and no RBF signalling.
	inputSequence = wire.MaxTxInSequenceNum
)

var (
	ErrNoInputs         = errors.New("no inputs to spend")
	ErrDuplicateInput   = errors.New("duplicate input")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrWrongNetwork     = errors.New("address network mismatch")
	ErrInvalidTxID      = errors.New("invalid txid")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrEmptySignature   = errors.New("device returned an empty signature")
)

// UTXO is an output of a previous transaction owned by the sender key.
type UTXO struct {
	TxID  string `json:"txid" validate:"required,len=64,hexadecimal"`
	Vout  uint32 `json:"vout"`
	Value uint64 `json:"value"`
}

type TransactionRequest struct {
	SenderAddress    string
	AddressIndex     uint8
	RecipientAddress string
	UTXOs            []UTXO
	Amount           uint64
	Fee              uint64
}

// Signer is the device side of the signing workflow.
type Signer interface {
	PublicKey(index uint8) (string, error)
	SignDigest(index uint8, digest [32]byte) ([]byte, error)
}

// Builder assembles and signs P2WPKH transactions for one network.
type Builder struct {
	params *chaincfg.Params
	logger *zap.Logger
}

func NewBuilder(params *chaincfg.Params, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		params: params,
		logger: logger.Named("wallet"),
	}
}

func (b *Builder) Params() *chaincfg.Params {
	return b.params
}

// CreateTransaction spends req.UTXOs into a recipient output and a change
// output back to the sender, signs every input with the device key at
// req.AddressIndex and returns the serialized transaction in hex. Nothing is
// returned unless every input is signed.
func (b *Builder) CreateTransaction(signer Signer, req *TransactionRequest) (string, error) {
	pubKeyHex, err := signer.PublicKey(req.AddressIndex)
	if err != nil {
		return "", errors.Wrap(err, "failed to get public key")
	}

	pubKey, err := ParsePublicKey(pubKeyHex)
	if err != nil {
		return "", err
	}

	tx, err := b.BuildUnsigned(req)
	if err != nil {
		return "", err
	}

	script, err := b.witnessScript(pubKey)
	if err != nil {
		return "", err
	}

	digests, err := ComputeDigests(tx, script, req.UTXOs)
	if err != nil {
		return "", err
	}

	pubKeyBytes := pubKey.SerializeCompressed()

	for i, digest := range digests {
		sig, err := signer.SignDigest(req.AddressIndex, digest)
		if err != nil {
			return "", errors.Wrapf(err, "failed to sign input %d", i)
		}

		if len(sig) == 0 {
			return "", errors.Wrapf(ErrEmptySignature, "input %d", i)
		}

		tx.TxIn[i].Witness = wire.TxWitness{sig, pubKeyBytes}
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", errors.Wrap(err, "failed to serialize transaction")
	}

	b.logger.Info("transaction signed",
		zap.Stringer("txid", tx.TxHash()),
		zap.Int("inputs", len(tx.TxIn)),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("fee", req.Fee))

	return hex.EncodeToString(buf.Bytes()), nil
}

// BuildUnsigned creates the transaction spending req.UTXOs in the given order,
// with the recipient output first and the change output second.
func (b *Builder) BuildUnsigned(req *TransactionRequest) (*wire.MsgTx, error) {
	if len(req.UTXOs) == 0 {
		return nil, ErrNoInputs
	}

	change, err := changeValue(req.UTXOs, req.Amount, req.Fee)
	if err != nil {
		return nil, err
	}

	recipient, err := decodeAddress(req.RecipientAddress, b.params)
	if err != nil {
		return nil, errors.Wrap(err, "recipient")
	}

	sender, err := decodeAddress(req.SenderAddress, b.params)
	if err != nil {
		return nil, errors.Wrap(err, "sender")
	}

	recipientScript, err := txscript.PayToAddrScript(recipient)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	changeScript, err := txscript.PayToAddrScript(sender)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAddress, err.Error())
	}

	tx := wire.NewMsgTx(txVersion)
	tx.LockTime = 0

	seen := make(map[wire.OutPoint]struct{}, len(req.UTXOs))
	for _, utxo := range req.UTXOs {
		hash, err := ParseTxID(utxo.TxID)
		if err != nil {
			return nil, err
		}

		outpoint := wire.NewOutPoint(hash, utxo.Vout)
		if _, ok := seen[*outpoint]; ok {
			return nil, errors.Wrap(ErrDuplicateInput, outpoint.String())
		}
		seen[*outpoint] = struct{}{}

		in := wire.NewTxIn(outpoint, nil, nil)
		in.Sequence = inputSequence
		tx.AddTxIn(in)
	}

	tx.AddTxOut(wire.NewTxOut(int64(req.Amount), recipientScript))
	tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))

	return tx, nil
}

// ComputeDigests returns the BIP143 SIGHASH_ALL digest of every input of tx,
// each spending an output locked by script with the matching UTXO value. All
// digests are computed from the same unsigned snapshot.
func ComputeDigests(tx *wire.MsgTx, script []byte, utxos []UTXO) ([][32]byte, error) {
	if len(tx.TxIn) != len(utxos) {
		return nil, errors.Errorf("%d inputs but %d utxos", len(tx.TxIn), len(utxos))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		fetcher.AddPrevOut(in.PreviousOutPoint, wire.NewTxOut(int64(utxos[i].Value), script))
	}

	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	digests := make([][32]byte, len(tx.TxIn))
	for i := range tx.TxIn {
		hash, err := txscript.CalcWitnessSigHash(script, sigHashes, txscript.SigHashAll, tx, i, int64(utxos[i].Value))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compute digest of input %d", i)
		}
		copy(digests[i][:], hash)
	}

	return digests, nil
}

func (b *Builder) witnessScript(pubKey *btcec.PublicKey) ([]byte, error) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pubKey.SerializeCompressed()), b.params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive sender script")
	}
	return txscript.PayToAddrScript(addr)
}

// changeValue returns sum(utxos) - amount - fee, rejecting any overflow or
// underflow instead of wrapping.
func changeValue(utxos []UTXO, amount, fee uint64) (uint64, error) {
	if amount > btcutil.MaxSatoshi || fee > btcutil.MaxSatoshi {
		return 0, errors.Wrap(ErrInvalidAmount, "value exceeds the money supply")
	}

	var total uint64
	for _, utxo := range utxos {
		if utxo.Value > btcutil.MaxSatoshi {
			return 0, errors.Wrapf(ErrInvalidAmount, "utxo %s:%d exceeds the money supply", utxo.TxID, utxo.Vout)
		}
		total += utxo.Value
		if total > btcutil.MaxSatoshi {
			return 0, errors.Wrap(ErrInvalidAmount, "utxo total exceeds the money supply")
		}
	}

	spend := amount + fee
	if spend > total {
		return 0, errors.Wrapf(ErrInvalidAmount, "amount %d plus fee %d exceeds available %d", amount, fee, total)
	}

	return total - spend, nil
}

// ParseTxID parses a transaction id in its usual byte-reversed hex form.
func ParseTxID(s string) (*chainhash.Hash, error) {
	if len(s) != chainhash.MaxHashStringSize {
		return nil, errors.Wrapf(ErrInvalidTxID, "%q has length %d", s, len(s))
	}

	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTxID, "%q: %v", s, err)
	}

	return hash, nil
}

// ParsePublicKey parses a hex encoded compressed secp256k1 public key.
func ParsePublicKey(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}

	if len(raw) != btcec.PubKeyBytesLenCompressed {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "expected %d bytes, got %d", btcec.PubKeyBytesLenCompressed, len(raw))
	}

	pubKey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}

	return pubKey, nil
}
