package api

import (
	"bytes"
	"strings"
	"testing"

	"github.com/smazurov/camnode/pkg/evk"
)

func TestEncodePGMEightBitPassthrough(t *testing.T) {
	format := evk.FrameFormat{Width: 4, Height: 2, BitWidth: 8}
	data := []byte{0, 1, 2, 3, 4, 5, 6, 7}

	out, err := encodePGM(format, data)
	if err != nil {
		t.Fatalf("encodePGM failed: %v", err)
	}

	wantHeader := "P5\n4 2\n255\n"
	if !strings.HasPrefix(string(out), wantHeader) {
		t.Fatalf("Expected header %q, got %q", wantHeader, string(out))
	}
	if !bytes.Equal(out[len(wantHeader):], data) {
		t.Errorf("Expected 8-bit payload unchanged, got %v", out[len(wantHeader):])
	}
}

func TestEncodePGMSwapsMultiBytePixels(t *testing.T) {
	// 10-bit pixels occupy two bytes and arrive little-endian; PGM
	// wants the most significant byte first.
	format := evk.FrameFormat{Width: 2, Height: 1, BitWidth: 10}
	data := []byte{0x34, 0x02, 0xff, 0x03}

	out, err := encodePGM(format, data)
	if err != nil {
		t.Fatalf("encodePGM failed: %v", err)
	}

	wantHeader := "P5\n2 1\n1023\n"
	if !strings.HasPrefix(string(out), wantHeader) {
		t.Fatalf("Expected header %q, got %q", wantHeader, string(out))
	}
	want := []byte{0x02, 0x34, 0x03, 0xff}
	if !bytes.Equal(out[len(wantHeader):], want) {
		t.Errorf("Expected byte-swapped payload %v, got %v", want, out[len(wantHeader):])
	}
}

func TestEncodePGMCapsMaxval(t *testing.T) {
	format := evk.FrameFormat{Width: 1, Height: 1, BitWidth: 24}

	out, err := encodePGM(format, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("encodePGM failed: %v", err)
	}
	if !strings.HasPrefix(string(out), "P5\n1 1\n65535\n") {
		t.Errorf("Expected maxval capped at 65535, got %q", string(out))
	}
}

func TestEncodePGMRejectsBadInput(t *testing.T) {
	if _, err := encodePGM(evk.FrameFormat{BitWidth: 8}, nil); err == nil {
		t.Error("Expected error for a format without geometry")
	}

	format := evk.FrameFormat{Width: 8, Height: 8, BitWidth: 8}
	if _, err := encodePGM(format, make([]byte, 63)); err == nil {
		t.Error("Expected error for a payload shorter than the format")
	}
}
