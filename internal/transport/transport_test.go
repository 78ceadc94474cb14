package transport

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// scriptedPort replays a fixed list of read results.
type scriptedPort struct {
	written  bytes.Buffer
	reads    [][]byte
	readErr  error
	writeErr error
	short    bool
	closed   bool
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	if p.short {
		return len(b) - 1, nil
	}
	return p.written.Write(b)
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.reads) == 0 {
		if p.readErr != nil {
			return 0, p.readErr
		}
		return 0, nil
	}

	n := copy(b, p.reads[0])
	if n < len(p.reads[0]) {
		p.reads[0] = p.reads[0][n:]
	} else {
		p.reads = p.reads[1:]
	}
	return n, nil
}

func (p *scriptedPort) Close() error {
	p.closed = true
	return nil
}

func TestExchangeSingleRead(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{{0x00, 0x02, 0x90, 0x00, 0xAA, 0xBB}}}
	tr := New(port, nil)

	resp, err := tr.Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x02, 0x90, 0x00, 0xAA, 0xBB}, resp)
	require.Equal(t, []byte{0x00, 0x00, 0xFF}, port.written.Bytes())
}

func TestExchangeChunkedReads(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{{0x00}, {0x03, 0x90}, {0x00, 0x01}, {0x02, 0x03}}}

	resp, err := New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x03, 0x90, 0x00, 0x01, 0x02, 0x03}, resp)
}

func TestExchangeStopsAtDeclaredLength(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{{0x00, 0x01, 0x90, 0x00, 0x07}, {0xEE, 0xEE}}}

	resp, err := New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x01, 0x90, 0x00, 0x07}, resp)
	require.Len(t, port.reads, 1)
}

func TestExchangeEmptyReadReturnsPartialFrame(t *testing.T) {
	tests := []struct {
		name  string
		reads [][]byte
		want  []byte
	}{
		{"nothing", nil, []byte{}},
		{"prefix only", [][]byte{{0x00}}, []byte{0x00}},
		{"missing payload", [][]byte{{0x00, 0x05, 0x90, 0x00, 0x01}}, []byte{0x00, 0x05, 0x90, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &scriptedPort{reads: tt.reads}

			resp, err := New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
			require.NoError(t, err)
			require.Equal(t, tt.want, resp)
		})
	}
}

func TestExchangeEOFEndsRead(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{{0x00, 0x02, 0x90}}, readErr: io.EOF}

	resp, err := New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x02, 0x90}, resp)
}

func TestExchangeRespectsCapacity(t *testing.T) {
	port := &scriptedPort{reads: [][]byte{{0x00, 0x10, 0x90, 0x00, 0x01, 0x02, 0x03}}}

	resp, err := New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 6)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x10, 0x90, 0x00, 0x01, 0x02}, resp)
}

func TestExchangeErrors(t *testing.T) {
	failure := errors.New("i/o failure")

	_, err := New(&scriptedPort{writeErr: failure}, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.ErrorIs(t, err, failure)

	_, err = New(&scriptedPort{short: true}, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.ErrorIs(t, err, io.ErrShortWrite)

	_, err = New(&scriptedPort{readErr: failure}, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.ErrorIs(t, err, failure)

	_, err = New(&scriptedPort{}, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 3)
	require.ErrorIs(t, err, errInvalidCapacity)
}

func TestOpen(t *testing.T) {
	port := &scriptedPort{}

	var gotName string
	var gotBaud int
	var gotTimeout time.Duration
	opener := func(name string, baudRate int, timeout time.Duration) (Port, error) {
		gotName, gotBaud, gotTimeout = name, baudRate, timeout
		return port, nil
	}

	tr, err := Open(opener, "/dev/ttyACM0", 115200, time.Second, nil)
	require.NoError(t, err)
	require.Equal(t, "/dev/ttyACM0", gotName)
	require.Equal(t, 115200, gotBaud)
	require.Equal(t, time.Second, gotTimeout)

	require.NoError(t, tr.Close())
	require.True(t, port.closed)

	failure := errors.New("busy")
	_, err = Open(func(string, int, time.Duration) (Port, error) { return nil, failure }, "COM3", 115200, time.Second, nil)
	require.ErrorIs(t, err, failure)
}

// resettablePort answers every write with reply, after whatever stale input
// is still pending.
type resettablePort struct {
	scriptedPort
	reply    []byte
	resets   int
	resetErr error
}

func (p *resettablePort) Write(b []byte) (int, error) {
	p.reads = append(p.reads, p.reply)
	return p.scriptedPort.Write(b)
}

func (p *resettablePort) ResetInputBuffer() error {
	if p.resetErr != nil {
		return p.resetErr
	}
	p.resets++
	p.reads = nil
	return nil
}

func TestExchangeDiscardsStaleInput(t *testing.T) {
	reply := []byte{0x00, 0x01, 0x90, 0x00, 0x2A}
	port := &resettablePort{reply: reply}
	port.reads = [][]byte{{0x00, 0x05, 0x90, 0x00, 0x01}}

	resp, err := New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.NoError(t, err)
	require.Equal(t, reply, resp)
	require.Equal(t, 1, port.resets)

	failure := errors.New("reset failed")
	port = &resettablePort{reply: reply, resetErr: failure}
	_, err = New(port, nil).Exchange([]byte{0x00, 0x00, 0xFF}, 516)
	require.ErrorIs(t, err, failure)
	require.Zero(t, port.written.Len())
}
