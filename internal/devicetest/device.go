// Package devicetest provides an in-memory signing device speaking the
// serial frame protocol, for use in tests.
package devicetest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/pkg/errors"

	"github.com/status-im/status-serial-signer-go/internal/transport"
)

const (
	StatusOK     uint16 = 0x9000
	StatusFailed uint16 = 0x6F00
)

// Phrase is the recovery phrase returned by the default initialize handler.
var Phrase = strings.Fields("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")

var ErrClosed = errors.New("device closed")

// Handler answers the payload of one request.
type Handler func(payload []byte) (status uint16, data []byte)

// Device answers each written request frame with a response frame that is
// handed out by subsequent reads. A read with nothing pending returns zero
// bytes, like a serial read timing out.
type Device struct {
	mu       sync.Mutex
	handlers map[byte]Handler
	pending  []byte
	requests [][]byte
	closed   bool

	// ChunkSize limits the bytes returned per read when positive.
	ChunkSize int

	Key         *btcec.PrivateKey
	Initialized bool
}

func NewDevice() *Device {
	seed := make([]byte, 32)
	seed[31] = 0x2a
	key, _ := btcec.PrivKeyFromBytes(seed)

	d := &Device{
		handlers:    make(map[byte]Handler),
		Key:         key,
		Initialized: true,
	}

	d.Handle(0xFF, func([]byte) (uint16, []byte) { return StatusOK, nil })
	d.Handle(0xF4, func(p []byte) (uint16, []byte) {
		sum := md5.Sum(p)
		return StatusOK, sum[:]
	})
	d.Handle(0xF5, func(p []byte) (uint16, []byte) {
		sum := sha256.Sum256(p)
		return StatusOK, sum[:]
	})
	d.Handle(0xA0, func([]byte) (uint16, []byte) {
		d.Initialized = true
		return StatusOK, []byte(strings.Join(Phrase, "\x00") + "\x00")
	})
	d.Handle(0xA1, func([]byte) (uint16, []byte) {
		d.Initialized = false
		return StatusOK, nil
	})
	d.Handle(0xA2, func([]byte) (uint16, []byte) {
		if d.Initialized {
			return StatusOK, []byte{1}
		}
		return StatusOK, []byte{0}
	})
	d.Handle(0xA3, func(p []byte) (uint16, []byte) {
		if len(p) != 1 {
			return StatusFailed, nil
		}
		return StatusOK, []byte("tb1qexampleaddress\x00")
	})
	d.Handle(0xA4, func(p []byte) (uint16, []byte) {
		if len(p) != 1 {
			return StatusFailed, nil
		}
		return StatusOK, d.Key.PubKey().SerializeCompressed()
	})
	d.Handle(0xA5, func(p []byte) (uint16, []byte) {
		if len(p) != 33 {
			return StatusFailed, nil
		}
		sig := ecdsa.Sign(d.Key, p[1:]).Serialize()
		return StatusOK, append(sig, byte(txscript.SigHashAll))
	})

	return d
}

// Handle replaces the handler of cmd.
func (d *Device) Handle(cmd byte, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[cmd] = h
}

// Requests returns every request frame written so far.
func (d *Device) Requests() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([][]byte, len(d.requests))
	copy(out, d.requests)
	return out
}

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}

	frame := append([]byte(nil), p...)
	d.requests = append(d.requests, frame)

	if len(frame) < 3 {
		d.pending = append(d.pending, Frame(StatusFailed, nil)...)
		return len(p), nil
	}

	length := int(binary.BigEndian.Uint16(frame))
	payload := frame[3:]
	if length < len(payload) {
		payload = payload[:length]
	}

	h, ok := d.handlers[frame[2]]
	if !ok {
		d.pending = append(d.pending, Frame(StatusFailed, nil)...)
		return len(p), nil
	}

	status, data := h(payload)
	d.pending = append(d.pending, Frame(status, data)...)

	return len(p), nil
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}

	n := len(d.pending)
	if d.ChunkSize > 0 && n > d.ChunkSize {
		n = d.ChunkSize
	}

	n = copy(p, d.pending[:n])
	d.pending = d.pending[n:]
	return n, nil
}

// ResetInputBuffer drops replies not read yet.
func (d *Device) ResetInputBuffer() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.pending = nil
	return nil
}

// Inject appends raw bytes to the pending output, as a reply arriving after
// the host stopped waiting.
func (d *Device) Inject(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, data...)
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Opener returns a transport.Opener always handing out d.
func (d *Device) Opener() transport.Opener {
	return func(string, int, time.Duration) (transport.Port, error) {
		return d, nil
	}
}

// Frame encodes a response frame.
func Frame(status uint16, data []byte) []byte {
	frame := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint16(frame, uint16(len(data)))
	binary.BigEndian.PutUint16(frame[2:], status)
	return append(frame, data...)
}

// FailingOpener returns an Opener that always fails with err.
func FailingOpener(err error) transport.Opener {
	return func(string, int, time.Duration) (transport.Port, error) {
		return nil, err
	}
}

var _ io.ReadWriteCloser = (*Device)(nil)
