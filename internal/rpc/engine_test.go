package rpc

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/status-im/status-serial-signer-go/internal/devicetest"
	"github.com/status-im/status-serial-signer-go/internal/transport"
)

type fakeExchanger struct {
	reply    []byte
	err      error
	requests [][]byte
	capacity int
}

func (f *fakeExchanger) Exchange(request []byte, capacity int) ([]byte, error) {
	f.requests = append(f.requests, request)
	f.capacity = capacity
	return f.reply, f.err
}

func newDeviceEngine() (*Engine, *devicetest.Device) {
	device := devicetest.NewDevice()
	return NewEngine(transport.New(device, nil), nil), device
}

func TestExecuteRoundTrip(t *testing.T) {
	engine, device := newDeviceEngine()

	_, err := Execute[Empty](engine, Ping{})
	require.NoError(t, err)

	sum, err := Execute[string](engine, HashSHA256{Data: []byte("abc")})
	require.NoError(t, err)
	want := sha256.Sum256([]byte("abc"))
	require.Equal(t, hex.EncodeToString(want[:]), sum)

	words, err := Execute[[]string](engine, InitializeWallet{})
	require.NoError(t, err)
	require.Equal(t, devicetest.Phrase, words)

	requests := device.Requests()
	require.Len(t, requests, 3)
	require.Equal(t, []byte{0x00, 0x00, 0xFF}, requests[0])
	require.Equal(t, []byte{0x00, 0x03, 0xF5, 'a', 'b', 'c'}, requests[1])
}

func TestExecuteChunkedReads(t *testing.T) {
	engine, device := newDeviceEngine()
	device.ChunkSize = 1

	key, err := Execute[string](engine, GetPublicKey{Index: 0})
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(device.Key.PubKey().SerializeCompressed()), key)
}

func TestExecuteRequestError(t *testing.T) {
	fake := &fakeExchanger{}
	engine := NewEngine(fake, nil)

	_, err := Execute[string](engine, HashMD5{Data: make([]byte, MaxDataLen+1)})
	require.ErrorIs(t, err, ErrDataTooLong)
	require.True(t, IsLayer(err, LayerRequest))
	require.Empty(t, fake.requests)
}

func TestExecuteTransportError(t *testing.T) {
	failure := errors.New("port gone")
	engine := NewEngine(&fakeExchanger{err: failure}, nil)

	_, err := Execute[Empty](engine, Ping{})
	require.ErrorIs(t, err, failure)
	require.True(t, IsLayer(err, LayerTransport))

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	require.Equal(t, CmdPing, rpcErr.Command)
	require.Equal(t, "transport error: port gone", err.Error())
}

func TestExecuteResponseErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply []byte
		want  error
	}{
		{"empty", nil, ErrTooShort},
		{"header only", []byte{0x00, 0x05}, ErrTooShort},
		{"incomplete", []byte{0x00, 0x05, 0x90, 0x00, 0x01}, ErrIncompleteData},
		{"invalid length", []byte{0x02, 0x01, 0x90, 0x00}, ErrInvalidLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(&fakeExchanger{reply: tt.reply}, nil)

			_, err := Execute[Empty](engine, Ping{})
			require.ErrorIs(t, err, tt.want)
			require.True(t, IsLayer(err, LayerResponse))
		})
	}
}

func TestExecuteCommandError(t *testing.T) {
	engine, device := newDeviceEngine()
	device.Handle(byte(CmdGetWalletStatus), func([]byte) (uint16, []byte) {
		return devicetest.StatusFailed, []byte{1}
	})

	_, err := Execute[bool](engine, GetWalletStatus{})
	require.ErrorIs(t, err, ErrExecution)
	require.True(t, IsLayer(err, LayerCommand))
	require.False(t, IsLayer(err, LayerTransport))
}

func TestExecuteRequestsMaxResponseCapacity(t *testing.T) {
	fake := &fakeExchanger{reply: []byte{0x00, 0x00, 0x90, 0x00}}
	engine := NewEngine(fake, nil)

	_, err := Execute[Empty](engine, ResetWallet{})
	require.NoError(t, err)
	require.Equal(t, MaxResponseSize, fake.capacity)
	require.Equal(t, [][]byte{{0x00, 0x00, 0xA1}}, fake.requests)
}

func TestExecuteIgnoresLateReply(t *testing.T) {
	engine, device := newDeviceEngine()

	// Tail of a reply the previous exchange gave up on.
	device.Inject([]byte{0x00, 0x03, 0x90, 0x00, 0x01})

	key, err := Execute[string](engine, GetPublicKey{Index: 0})
	require.NoError(t, err)
	require.Equal(t, hex.EncodeToString(device.Key.PubKey().SerializeCompressed()), key)
}
