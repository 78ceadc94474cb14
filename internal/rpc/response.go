package rpc

import (
	"encoding/binary"
)

// Response is a parsed device reply.
type Response struct {
	Status uint16
	Data   []byte
}

func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// ParseResponse decodes a response frame:
//
//	Description              | Length
//	-------------------------+---------
//	Payload length (big end) | 2 bytes
//	SW1 SW2                  | 2 bytes
//	Payload                  | 0..512 bytes
//
// Bytes past the declared payload are ignored.
func ParseResponse(resp []byte) (*Response, error) {
	if len(resp) > MaxResponseSize {
		return nil, ErrTooLong
	}

	if len(resp) < HeaderSize+StatusSize {
		return nil, ErrTooShort
	}

	length := int(binary.BigEndian.Uint16(resp))
	if length > MaxDataLen {
		return nil, ErrInvalidLength
	}

	status := binary.BigEndian.Uint16(resp[HeaderSize:])

	start := HeaderSize + StatusSize
	end := start + length
	if end > len(resp) {
		return nil, ErrIncompleteData
	}

	data := make([]byte, length)
	copy(data, resp[start:end])

	return &Response{Status: status, Data: data}, nil
}
