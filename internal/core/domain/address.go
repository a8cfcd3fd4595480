package domain

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidAddress is returned when an address string cannot be parsed.
	ErrInvalidAddress = errors.New("invalid address")
)

// Address identifies an on-chain account: a workchain and a 32-byte hash.
// The raw form ("0:<hex>") is the canonical storage key; friendly
// (base64, checksummed) forms are accepted on input only.
type Address struct {
	Workchain int8
	Hash      [32]byte
}

// ParseAddress parses an address in raw ("0:abc...") or friendly
// (48-char base64, url or standard alphabet) form.
func ParseAddress(s string) (Address, error) {
	if strings.Contains(s, ":") {
		return parseRawAddress(s)
	}
	return parseFriendlyAddress(s)
}

// MustParseAddress parses an address or panics. For tests and constants.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

func parseRawAddress(s string) (Address, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	wc, err := strconv.ParseInt(parts[0], 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: bad workchain in %q", ErrInvalidAddress, s)
	}

	hash, err := hex.DecodeString(parts[1])
	if err != nil || len(hash) != 32 {
		return Address{}, fmt.Errorf("%w: bad hash in %q", ErrInvalidAddress, s)
	}

	addr := Address{Workchain: int8(wc)}
	copy(addr.Hash[:], hash)
	return addr, nil
}

func parseFriendlyAddress(s string) (Address, error) {
	if len(s) != 48 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	data, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(s)
	}
	if err != nil || len(data) != 36 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	// Layout: tag byte, workchain byte, 32-byte hash, 2-byte crc16.
	checksum := uint16(data[34])<<8 | uint16(data[35])
	if crc16(data[:34]) != checksum {
		return Address{}, fmt.Errorf("%w: checksum mismatch in %q", ErrInvalidAddress, s)
	}

	addr := Address{Workchain: int8(data[1])}
	copy(addr.Hash[:], data[2:34])
	return addr, nil
}

// Raw returns the canonical raw form, e.g. "0:abc...".
func (a Address) Raw() string {
	return fmt.Sprintf("%d:%s", a.Workchain, hex.EncodeToString(a.Hash[:]))
}

func (a Address) String() string {
	return a.Raw()
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText encodes the raw form, so addresses serialize as strings in
// JSON and database columns.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Raw()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// crc16 implements CRC-16/XMODEM, used by the friendly address checksum.
func crc16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
