package utils

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// HexString is a byte slice carried as a hex string in JSON. A leading 0x is
// accepted when decoding and never produced when encoding.
type HexString []byte

func (s HexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(Btox(s))
}

func (s *HexString) UnmarshalJSON(data []byte) error {
	var x string
	err := json.Unmarshal(data, &x)
	if err != nil {
		return err
	}

	b, err := Xtob(x)
	if err != nil {
		return errors.Wrap(err, "invalid hex string")
	}

	*s = b
	return nil
}

func (s HexString) String() string {
	return Btox(s)
}

func Btox(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

func Xtob(str string) ([]byte, error) {
	str = strings.TrimPrefix(strings.TrimPrefix(str, "0x"), "0X")
	return hex.DecodeString(str)
}
