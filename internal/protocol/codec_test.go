package protocol

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"actionrecorder/internal/macro"
)

func sampleLog(t *testing.T) *macro.Log {
	t.Helper()
	events := []macro.Event{
		macro.Mouse(macro.MouseMove, macro.ButtonNone, 100, 200, 0),
		macro.Mouse(macro.MouseDown, macro.ButtonLeft, 100, 200, 15),
		{Kind: macro.MouseWheel, Payload: macro.MousePayload{X: -5, Y: 7, WheelDelta: -120}, DelayMs: 30},
		macro.Mouse(macro.MouseUp, macro.ButtonLeft, 110, 210, 40),
		macro.Key(macro.KeyDown, 0x41, 5),
		macro.Char('日', 1),
		macro.Key(macro.KeyUp, 0x41, 2),
		{Kind: macro.MouseDoubleClick, Payload: macro.MousePayload{Button: macro.ButtonX2, Clicks: 2}, DelayMs: 2147483647},
	}
	l, err := macro.NewFrozenLog(time.Date(2024, 5, 6, 7, 8, 9, 250_000_000, time.UTC), events)
	if err != nil {
		t.Fatalf("NewFrozenLog failed: %v", err)
	}
	return l
}

// TestRoundTrip tests that decoding an encoded log yields an equal log
func TestRoundTrip(t *testing.T) {
	l := sampleLog(t)

	data, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !got.Equal(l) {
		t.Errorf("Expected round trip to preserve the log\nwant %v\ngot  %v", l.Events(), got.Events())
	}
	if !got.Frozen() {
		t.Error("Expected decoded log to be frozen")
	}
}

// TestRoundTripEmpty tests a log without events
func TestRoundTripEmpty(t *testing.T) {
	l := macro.NewLog(time.UnixMilli(0))
	data, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != headerSize() {
		t.Errorf("Expected %d bytes, got %d", headerSize(), len(data))
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Len() != 0 || !got.RecordedAt().Equal(time.UnixMilli(0)) {
		t.Errorf("Unexpected decoded log: %d events at %v", got.Len(), got.RecordedAt())
	}
}

// TestEncodeLayout tests the exact byte layout of a single key event
func TestEncodeLayout(t *testing.T) {
	l, _ := macro.NewFrozenLog(time.UnixMilli(0x0102030405), []macro.Event{macro.Key(macro.KeyDown, 0x41, 7)})
	data, err := Encode(l)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := []byte{14}
	want = append(want, "RecordedAction"...)
	want = append(want, 5)
	want = append(want, "1.0.0"...)
	want = append(want, 0x05, 0x04, 0x03, 0x02, 0x01, 0, 0, 0)
	want = append(want, 1, 0, 0, 0)
	want = append(want, 9, 0)
	want = append(want, 0x41, 0, 0, 0)
	want = append(want, 7, 0, 0, 0)

	if string(data) != string(want) {
		t.Errorf("Expected % x, got % x", want, data)
	}
}

// TestDecodeRejectsHeader tests format name and version checks
func TestDecodeRejectsHeader(t *testing.T) {
	tests := []struct {
		name    string
		fmtName string
		version string
		wantErr error
	}{
		{"wrong name", "RecordedMacro", FormatVersion, ErrUnknownFormat},
		{"wrong version", FormatName, "1.0.1", ErrUnsupportedVersion},
		{"empty version", FormatName, "", ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data []byte
			data = appendString(data, tt.fmtName)
			data = appendString(data, tt.version)
			data = binary.LittleEndian.AppendUint64(data, 0)
			data = binary.LittleEndian.AppendUint32(data, 0)

			l, err := Decode(data)
			if l != nil {
				t.Error("Expected no log on error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrFormat) {
				t.Errorf("Expected error to match ErrFormat, got %v", err)
			}
		})
	}
}

// TestDecodeForeignFile tests that files of another format fail as format errors
func TestDecodeForeignFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"text", []byte("hello world, not a macro")},
		{"png signature", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
		{"right length wrong name", append([]byte{byte(len(FormatName))}, "RecordedMacros"...)},
		{"short wrong name", append([]byte{byte(len(FormatName))}, "Rx"...)},
		{"overlong prefix", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Decode(tt.data)
			if l != nil {
				t.Error("Expected no log on error")
			}
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("Expected ErrUnknownFormat, got %v", err)
			}
			if errors.Is(err, ErrTruncated) {
				t.Errorf("Expected a format error, not truncation: %v", err)
			}
		})
	}
}

// TestDecodeTruncated tests that every proper prefix of a valid file fails as truncated
func TestDecodeTruncated(t *testing.T) {
	data, err := Encode(sampleLog(t))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for n := 0; n < len(data); n++ {
		l, err := Decode(data[:n])
		if l != nil {
			t.Fatalf("prefix %d: expected no log", n)
		}
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("prefix %d: expected ErrTruncated, got %v", n, err)
		}
	}
}

// TestDecodeUnknownKind tests a kind tag outside the enumeration
func TestDecodeUnknownKind(t *testing.T) {
	l, _ := macro.NewFrozenLog(time.UnixMilli(0), []macro.Event{macro.Key(macro.KeyDown, 1, 0)})
	data, _ := Encode(l)

	kindAt := headerSize()
	binary.LittleEndian.PutUint16(data[kindAt:], 42)

	_, err := Decode(data)
	if !errors.Is(err, ErrUnknownEventKind) {
		t.Fatalf("Expected ErrUnknownEventKind, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Expected *DecodeError, got %T", err)
	}
	if de.Offset != kindAt {
		t.Errorf("Expected offset %d, got %d", kindAt, de.Offset)
	}
}

// TestDecodeCorruption tests the remaining structural checks
func TestDecodeCorruption(t *testing.T) {
	mouse, _ := macro.NewFrozenLog(time.UnixMilli(0), []macro.Event{macro.Mouse(macro.MouseDown, macro.ButtonLeft, 0, 0, 3)})
	base, _ := Encode(mouse)
	countAt := headerSize() - 4
	eventAt := headerSize()

	tests := []struct {
		name    string
		mutate  func([]byte) []byte
		wantErr error
	}{
		{"negative count", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[countAt:], uint32(0xFFFFFFFF))
			return b
		}, ErrNegativeCount},
		{"unknown button", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[eventAt+2:], 77)
			return b
		}, ErrUnknownButton},
		{"negative delay", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[len(b)-4:], uint32(0xFFFFFFFE))
			return b
		}, ErrNegativeDelay},
		{"trailing data", func(b []byte) []byte {
			return append(b, 0)
		}, ErrTrailingData},
		{"count larger than data", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[countAt:], 1000)
			return b
		}, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), base...))
			if _, err := Decode(data); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestReadHeader tests header inspection without validation
func TestReadHeader(t *testing.T) {
	data, _ := Encode(sampleLog(t))
	h, err := ReadHeader(data)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if h.Name != FormatName || h.Version != FormatVersion || h.EventCount != 8 {
		t.Errorf("Unexpected header: %+v", h)
	}
	if h.RecordedAt.UnixMilli() != sampleLog(t).RecordedAt().UnixMilli() {
		t.Errorf("Unexpected timestamp %v", h.RecordedAt)
	}
}
