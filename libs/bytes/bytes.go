package bytes

import (
	"encoding/hex"
	"fmt"
)

// HexBytes is a wrapper around []byte that renders as a lowercase hex string,
// which is the format chunk digests travel in on the wire and in logs.
type HexBytes []byte

// MarshalText encodes a HexBytes value as hexadecimal digits.
// This method is used by json.Marshal.
func (bz HexBytes) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(bz)), nil
}

// UnmarshalText handles decoding of HexBytes from hex strings.
// This method is used by json.Unmarshal.
func (bz *HexBytes) UnmarshalText(data []byte) error {
	dec, err := hex.DecodeString(string(data))
	if err != nil {
		return err
	}
	*bz = dec
	return nil
}

// Bytes returns the underlying byte slice.
func (bz HexBytes) Bytes() []byte {
	return bz
}

func (bz HexBytes) String() string {
	return hex.EncodeToString(bz)
}

// Format writes either the address of the 0th element in a slice in base 16
// notation, or the slice itself as lowercase hex digits.
func (bz HexBytes) Format(s fmt.State, verb rune) {
	switch verb {
	case 'p':
		s.Write([]byte(fmt.Sprintf("%p", []byte(bz))))
	default:
		s.Write([]byte(hex.EncodeToString(bz)))
	}
}
