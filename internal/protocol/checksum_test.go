package protocol

import "testing"

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		sum  byte
		xor  byte
	}{
		{name: "empty", data: nil, sum: 0, xor: 0},
		{name: "single byte", data: []byte{0xA1}, sum: 0xA1, xor: 0xA1},
		{name: "set current 1.5A addr 0", data: []byte{0x00, 0x00, 0xA1, 0x02, 0x00, 0x96}, sum: 57, xor: 53},
		{name: "wraps modulo 256", data: []byte{0xFF, 0x02}, sum: 0x01, xor: 0xFD},
		{name: "self cancelling xor", data: []byte{0x5A, 0x5A}, sum: 0xB4, xor: 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.sum {
				t.Errorf("Checksum() = %d, want %d", got, tt.sum)
			}
			if got := XORCheck(tt.data); got != tt.xor {
				t.Errorf("XORCheck() = %d, want %d", got, tt.xor)
			}
		})
	}
}

func TestChecksumIncremental(t *testing.T) {
	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i*37 + 11)
	}

	for split := 0; split <= len(data); split += 17 {
		head, tail := data[:split], data[split:]

		if got, want := Checksum(head)+Checksum(tail), Checksum(data); got != want {
			t.Errorf("split %d: sum of parts = %d, whole = %d", split, got, want)
		}
		if got, want := XORCheck(head)^XORCheck(tail), XORCheck(data); got != want {
			t.Errorf("split %d: xor of parts = %d, whole = %d", split, got, want)
		}
	}

	var sum, xor byte
	for _, b := range data {
		sum = Checksum([]byte{sum, b})
		xor = XORCheck([]byte{xor, b})
	}
	if sum != Checksum(data) {
		t.Errorf("byte-by-byte sum = %d, want %d", sum, Checksum(data))
	}
	if xor != XORCheck(data) {
		t.Errorf("byte-by-byte xor = %d, want %d", xor, XORCheck(data))
	}
}
