package transport

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const (
	// lengthPrefixSize is the big endian payload length leading every reply.
	lengthPrefixSize = 2
	// replyHeaderSize is the length prefix plus the two status bytes.
	replyHeaderSize = 4
)

var errInvalidCapacity = errors.New("response capacity too small")

// Port is the byte channel the device is reachable through.
type Port interface {
	io.ReadWriteCloser
}

// inputResetter is implemented by ports that can drop unread input, such as
// serial.Port.
type inputResetter interface {
	ResetInputBuffer() error
}

// Opener opens the named port. OpenSerial is used outside of tests.
type Opener func(name string, baudRate int, timeout time.Duration) (Port, error)

// OpenSerial opens a serial port in 8N1 mode with the given read timeout. A
// read that times out returns zero bytes.
func OpenSerial(name string, baudRate int, timeout time.Duration) (Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", name)
	}

	err = port.SetReadTimeout(timeout)
	if err != nil {
		_ = port.Close()
		return nil, errors.Wrap(err, "failed to set read timeout")
	}

	return port, nil
}

type Transport struct {
	port   Port
	logger *zap.Logger
}

// Open opens name with opener and wraps the resulting port.
func Open(opener Opener, name string, baudRate int, timeout time.Duration, logger *zap.Logger) (*Transport, error) {
	if opener == nil {
		opener = OpenSerial
	}

	port, err := opener(name, baudRate, timeout)
	if err != nil {
		return nil, err
	}

	return New(port, logger), nil
}

func New(port Port, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Transport{
		port:   port,
		logger: logger.Named("transport"),
	}
}

// Exchange writes request and reads the reply into a buffer of the given
// capacity. Reading stops once the frame announced by the length prefix is
// complete, the buffer is full, or a read returns no data. In the last case
// the partial buffer is returned without error; the framing layer reports it.
// Input left over from an earlier timed out exchange is discarded first.
func (t *Transport) Exchange(request []byte, capacity int) ([]byte, error) {
	if capacity < replyHeaderSize {
		return nil, errInvalidCapacity
	}

	if r, ok := t.port.(inputResetter); ok {
		err := r.ResetInputBuffer()
		if err != nil {
			return nil, errors.Wrap(err, "failed to reset input buffer")
		}
	}

	n, err := t.port.Write(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write request")
	}
	if n != len(request) {
		return nil, errors.Wrapf(io.ErrShortWrite, "wrote %d of %d bytes", n, len(request))
	}

	buffer := make([]byte, capacity)
	read := 0
	want := lengthPrefixSize

	for read < want && read < len(buffer) {
		n, err := t.port.Read(buffer[read:])
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "failed to read response")
		}

		if n == 0 {
			t.logger.Debug("short response", zap.Int("read", read), zap.Int("expected", want))
			break
		}

		read += n

		if want == lengthPrefixSize && read >= lengthPrefixSize {
			want = replyHeaderSize + int(binary.BigEndian.Uint16(buffer))
		}
	}

	return buffer[:read], nil
}

func (t *Transport) Close() error {
	return t.port.Close()
}
