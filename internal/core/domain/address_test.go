package domain

import (
	"encoding/base64"
	"testing"
)

func TestParseAddress_Raw(t *testing.T) {
	raw := "0:3333333333333333333333333333333333333333333333333333333333333333"

	addr, err := ParseAddress(raw)
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	if addr.Workchain != 0 {
		t.Errorf("Expected workchain 0, got %d", addr.Workchain)
	}
	if addr.Raw() != raw {
		t.Errorf("Expected round-trip %s, got %s", raw, addr.Raw())
	}
}

func TestParseAddress_RawMasterchain(t *testing.T) {
	raw := "-1:3333333333333333333333333333333333333333333333333333333333333333"

	addr, err := ParseAddress(raw)
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	if addr.Workchain != -1 {
		t.Errorf("Expected workchain -1, got %d", addr.Workchain)
	}
	if addr.Raw() != raw {
		t.Errorf("Expected round-trip %s, got %s", raw, addr.Raw())
	}
}

func friendlyForm(t *testing.T, addr Address) string {
	t.Helper()

	data := make([]byte, 36)
	data[0] = 0x11 // bounceable tag
	data[1] = byte(addr.Workchain)
	copy(data[2:34], addr.Hash[:])
	checksum := crc16(data[:34])
	data[34] = byte(checksum >> 8)
	data[35] = byte(checksum)
	return base64.URLEncoding.EncodeToString(data)
}

func TestParseAddress_Friendly(t *testing.T) {
	want := MustParseAddress("0:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	got, err := ParseAddress(friendlyForm(t, want))
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestParseAddress_FriendlyBadChecksum(t *testing.T) {
	addr := MustParseAddress("0:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	friendly := friendlyForm(t, addr)

	// Corrupt one hash byte; the checksum no longer matches.
	data, _ := base64.URLEncoding.DecodeString(friendly)
	data[5] ^= 0xff
	corrupted := base64.URLEncoding.EncodeToString(data)

	if _, err := ParseAddress(corrupted); err == nil {
		t.Error("Expected checksum error, got nil")
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	cases := []string{
		"",
		"nonsense",
		"0:zz33",
		"0:33",                                // hash too short
		"99999:3333333333333333333333333333333333333333333333333333333333333333", // workchain overflow
	}

	for _, input := range cases {
		if _, err := ParseAddress(input); err == nil {
			t.Errorf("Expected error for %q, got nil", input)
		}
	}
}

func TestAddress_TextMarshalling(t *testing.T) {
	addr := MustParseAddress("0:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	text, err := addr.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var decoded Address
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if decoded != addr {
		t.Errorf("Expected %s, got %s", addr, decoded)
	}
}
