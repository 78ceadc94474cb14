package rpc

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// BuildRequest frames a command for the device:
//
//	Description              | Length
//	-------------------------+---------
//	Payload length (big end) | 2 bytes
//	Command id               | 1 byte
//	Payload                  | 0..512 bytes
func BuildRequest(cmd CommandID, data []byte) ([]byte, error) {
	if len(data) > MaxDataLen {
		return nil, errors.Wrapf(ErrDataTooLong, "%d bytes", len(data))
	}

	packet := make([]byte, HeaderSize+CmdSize, HeaderSize+CmdSize+len(data))
	binary.BigEndian.PutUint16(packet, uint16(len(data)))
	packet[HeaderSize] = byte(cmd)
	packet = append(packet, data...)

	if len(packet) > MaxRequestSize {
		return nil, errors.Wrapf(ErrDataTooLong, "%d bytes", len(packet))
	}

	return packet, nil
}
