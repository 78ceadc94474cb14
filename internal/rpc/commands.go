package rpc

import (
	"bytes"
	"encoding/hex"
	"strings"
)

// Command is implemented once per device operation. The set is closed: only
// the types in this file satisfy it.
type Command[T any] interface {
	ID() CommandID
	Encode() []byte
	Decode(resp *Response) (T, error)

	sealed()
}

// Empty is the result of commands that only report success.
type Empty struct{}

type Ping struct{}

func (Ping) ID() CommandID { return CmdPing }
func (Ping) Encode() []byte { return nil }
func (Ping) sealed() {}

func (Ping) Decode(resp *Response) (Empty, error) {
	if !resp.OK() {
		return Empty{}, ErrExecution
	}
	return Empty{}, nil
}

type HashMD5 struct {
	Data []byte
}

func (HashMD5) ID() CommandID { return CmdHashMD5 }
func (c HashMD5) Encode() []byte { return c.Data }
func (HashMD5) sealed() {}

func (HashMD5) Decode(resp *Response) (string, error) {
	return decodeHex(resp)
}

type HashSHA256 struct {
	Data []byte
}

func (HashSHA256) ID() CommandID { return CmdHashSHA256 }
func (c HashSHA256) Encode() []byte { return c.Data }
func (HashSHA256) sealed() {}

func (HashSHA256) Decode(resp *Response) (string, error) {
	return decodeHex(resp)
}

// InitializeWallet asks the device to generate a new seed. The reply is the
// recovery phrase, one NUL separated word per segment.
type InitializeWallet struct{}

func (InitializeWallet) ID() CommandID { return CmdInitializeWallet }
func (InitializeWallet) Encode() []byte { return nil }
func (InitializeWallet) sealed() {}

func (InitializeWallet) Decode(resp *Response) ([]string, error) {
	if !resp.OK() {
		return nil, ErrExecution
	}
	return splitSegments(resp.Data), nil
}

type ResetWallet struct{}

func (ResetWallet) ID() CommandID { return CmdResetWallet }
func (ResetWallet) Encode() []byte { return nil }
func (ResetWallet) sealed() {}

func (ResetWallet) Decode(resp *Response) (Empty, error) {
	if !resp.OK() {
		return Empty{}, ErrExecution
	}
	return Empty{}, nil
}

// GetWalletStatus reports whether the device holds a seed.
type GetWalletStatus struct{}

func (GetWalletStatus) ID() CommandID { return CmdGetWalletStatus }
func (GetWalletStatus) Encode() []byte { return nil }
func (GetWalletStatus) sealed() {}

func (GetWalletStatus) Decode(resp *Response) (bool, error) {
	if !resp.OK() {
		return false, ErrExecution
	}
	return len(resp.Data) > 0 && resp.Data[0] != 0, nil
}

type GetAddress struct {
	Index uint8
}

func (GetAddress) ID() CommandID { return CmdGetAddress }
func (c GetAddress) Encode() []byte { return []byte{c.Index} }
func (GetAddress) sealed() {}

func (GetAddress) Decode(resp *Response) (string, error) {
	if !resp.OK() {
		return "", ErrExecution
	}

	segments := splitSegments(resp.Data)
	if len(segments) == 0 {
		return "", nil
	}
	return segments[0], nil
}

// GetPublicKey returns the compressed public key at Index, hex encoded.
type GetPublicKey struct {
	Index uint8
}

func (GetPublicKey) ID() CommandID { return CmdGetPublicKey }
func (c GetPublicKey) Encode() []byte { return []byte{c.Index} }
func (GetPublicKey) sealed() {}

func (GetPublicKey) Decode(resp *Response) (string, error) {
	return decodeHex(resp)
}

// SignTransaction signs Digest with the key at Index. The signature is
// returned exactly as the device produced it.
type SignTransaction struct {
	Index  uint8
	Digest [32]byte
}

func (SignTransaction) ID() CommandID { return CmdSignTransaction }
func (SignTransaction) sealed() {}

func (c SignTransaction) Encode() []byte {
	payload := make([]byte, 0, 1+len(c.Digest))
	payload = append(payload, c.Index)
	return append(payload, c.Digest[:]...)
}

func (SignTransaction) Decode(resp *Response) ([]byte, error) {
	if !resp.OK() {
		return nil, ErrExecution
	}
	return resp.Data, nil
}

func decodeHex(resp *Response) (string, error) {
	if !resp.OK() {
		return "", ErrExecution
	}
	return hex.EncodeToString(resp.Data), nil
}

// splitSegments splits NUL separated text, dropping empty segments and
// replacing invalid UTF-8.
func splitSegments(data []byte) []string {
	var out []string
	for _, s := range bytes.Split(data, []byte{0}) {
		if len(s) == 0 {
			continue
		}
		out = append(out, strings.ToValidUTF8(string(s), "�"))
	}
	return out
}
