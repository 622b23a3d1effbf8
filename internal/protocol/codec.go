package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"actionrecorder/internal/macro"
)

// Header identifying a .ra file. Exactly one version is accepted.
const (
	FormatName    = "RecordedAction"
	FormatVersion = "1.0.0"
)

// Fixed payload sizes in bytes.
//
//	mouse family: button(uint32) + clicks(int32) + x(int32) + y(int32) + wheel(int32) = 20
//	KeyDown/KeyUp: keyCode(int32)                                                      = 4
//	KeyChar:       codePoint(int32)                                                    = 4
//
// Every event is framed as kind(uint16) + payload + delayMs(int32).
const (
	mousePayloadSize = 20
	keyPayloadSize   = 4
	charPayloadSize  = 4
	kindSize         = 2
	delaySize        = 4
)

// Encode serializes a log to the .ra wire format.
//
// Layout (little endian, no padding):
//
//	format_name    uvarint length + UTF-8
//	format_version uvarint length + UTF-8
//	recorded_at    int64 unix milliseconds
//	event_count    int32
//	events         kind(uint16) payload delay_ms(int32)
func Encode(l *macro.Log) ([]byte, error) {
	events := l.Events()
	if len(events) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d events exceed the format limit", ErrInvalidEvent, len(events))
	}

	buf := make([]byte, 0, headerSize()+len(events)*(kindSize+mousePayloadSize+delaySize))
	buf = appendString(buf, FormatName)
	buf = appendString(buf, FormatVersion)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(l.RecordedAt().UnixMilli()))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(len(events))))

	for i, e := range events {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("%w: event %d: %v", ErrInvalidEvent, i, err)
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(e.Kind))
		switch p := e.Payload.(type) {
		case macro.MousePayload:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Button))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Clicks))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(p.X))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Y))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(p.WheelDelta))
		case macro.KeyPayload:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(p.KeyCode))
		case macro.CharPayload:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(p.Char)))
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(e.DelayMs))
	}

	return buf, nil
}

// Decode parses .ra bytes into a frozen log. On any error no log is returned.
func Decode(data []byte) (*macro.Log, error) {
	r := &reader{data: data}

	if err := r.formatName(); err != nil {
		return nil, err
	}

	versionAt := r.off
	version, err := r.string("format_version")
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, r.fail(versionAt, "format_version", fmt.Errorf("%w: %q", ErrUnsupportedVersion, version))
	}

	millis, err := r.int64("recorded_at")
	if err != nil {
		return nil, err
	}

	countAt := r.off
	count, err := r.int32("event_count")
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, r.fail(countAt, "event_count", fmt.Errorf("%w: %d", ErrNegativeCount, count))
	}
	// Each event needs at least kind + smallest payload + delay.
	if minBytes := int64(count) * (kindSize + keyPayloadSize + delaySize); minBytes > int64(r.remaining()) {
		return nil, r.fail(countAt, "event_count", fmt.Errorf("%w: %d events need at least %d bytes, %d remain",
			ErrTruncated, count, minBytes, r.remaining()))
	}

	events := make([]macro.Event, 0, count)
	for i := 0; i < int(count); i++ {
		e, err := r.event(i)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if r.remaining() > 0 {
		return nil, r.fail(r.off, "events", fmt.Errorf("%w: %d bytes", ErrTrailingData, r.remaining()))
	}

	l, err := macro.NewFrozenLog(time.UnixMilli(millis), events)
	if err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	return l, nil
}

// Header holds the fields preceding the events.
type Header struct {
	Name       string
	Version    string
	RecordedAt time.Time
	EventCount int32
}

// ReadHeader parses only the header, without validating the name or version.
func ReadHeader(data []byte) (Header, error) {
	r := &reader{data: data}
	var h Header
	var err error
	if h.Name, err = r.string("format_name"); err != nil {
		return Header{}, err
	}
	if h.Version, err = r.string("format_version"); err != nil {
		return Header{}, err
	}
	millis, err := r.int64("recorded_at")
	if err != nil {
		return Header{}, err
	}
	h.RecordedAt = time.UnixMilli(millis)
	if h.EventCount, err = r.int32("event_count"); err != nil {
		return Header{}, err
	}
	return h, nil
}

func headerSize() int {
	return 2 + len(FormatName) + len(FormatVersion) + 8 + 4
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) fail(off int, field string, err error) error {
	return &DecodeError{Offset: off, Field: field, Err: err}
}

func (r *reader) take(n int, field string) ([]byte, error) {
	if n > r.remaining() {
		return nil, r.fail(r.off, field, fmt.Errorf("%w: need %d bytes, %d remain", ErrTruncated, n, r.remaining()))
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) string(field string) (string, error) {
	start := r.off
	length, n := binary.Uvarint(r.data[r.off:])
	if n == 0 {
		return "", r.fail(start, field, fmt.Errorf("%w: length prefix", ErrTruncated))
	}
	if n < 0 {
		return "", r.fail(start, field, fmt.Errorf("%w: length prefix overflows", ErrFormat))
	}
	r.off += n
	if rem := r.remaining(); length > uint64(rem) {
		r.off = start
		return "", r.fail(start, field, fmt.Errorf("%w: string of %d bytes, %d remain", ErrTruncated, length, rem))
	}
	b, _ := r.take(int(length), field)
	if !utf8.Valid(b) {
		return "", r.fail(start, field, fmt.Errorf("%w: invalid UTF-8", ErrFormat))
	}
	return string(b), nil
}

// formatName consumes the format name. Input that cannot be the start of a
// .ra header fails as ErrUnknownFormat; only a cut-off genuine header is
// reported as truncated.
func (r *reader) formatName() error {
	const field = "format_name"
	length, n := binary.Uvarint(r.data)
	if n == 0 {
		return r.fail(0, field, fmt.Errorf("%w: length prefix", ErrTruncated))
	}
	if n < 0 || length != uint64(len(FormatName)) {
		return r.fail(0, field, fmt.Errorf("%w: name length %d", ErrUnknownFormat, length))
	}
	present := r.data[n:]
	if len(present) > len(FormatName) {
		present = present[:len(FormatName)]
	}
	if string(present) != FormatName[:len(present)] {
		return r.fail(0, field, fmt.Errorf("%w: %q", ErrUnknownFormat, present))
	}
	if len(present) < len(FormatName) {
		return r.fail(0, field, fmt.Errorf("%w: string of %d bytes, %d remain", ErrTruncated, length, len(present)))
	}
	r.off = n + len(FormatName)
	return nil
}

func (r *reader) uint16(field string) (uint16, error) {
	b, err := r.take(2, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint32(field string) (uint32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) int32(field string) (int32, error) {
	v, err := r.uint32(field)
	return int32(v), err
}

func (r *reader) int64(field string) (int64, error) {
	b, err := r.take(8, field)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) event(i int) (macro.Event, error) {
	kindAt := r.off
	raw, err := r.uint16(fmt.Sprintf("events[%d].kind", i))
	if err != nil {
		return macro.Event{}, err
	}
	kind := macro.Kind(raw)
	if !kind.Valid() {
		return macro.Event{}, r.fail(kindAt, fmt.Sprintf("events[%d].kind", i), fmt.Errorf("%w: %d", ErrUnknownEventKind, raw))
	}

	var payload macro.Payload
	switch {
	case kind.IsMouse():
		payloadAt := r.off
		b, err := r.take(mousePayloadSize, fmt.Sprintf("events[%d].payload", i))
		if err != nil {
			return macro.Event{}, err
		}
		p := macro.MousePayload{
			Button:     macro.Button(binary.LittleEndian.Uint32(b[0:4])),
			Clicks:     int32(binary.LittleEndian.Uint32(b[4:8])),
			X:          int32(binary.LittleEndian.Uint32(b[8:12])),
			Y:          int32(binary.LittleEndian.Uint32(b[12:16])),
			WheelDelta: int32(binary.LittleEndian.Uint32(b[16:20])),
		}
		if !p.Button.Valid() {
			return macro.Event{}, r.fail(payloadAt, fmt.Sprintf("events[%d].button", i), fmt.Errorf("%w: %d", ErrUnknownButton, uint32(p.Button)))
		}
		payload = p
	case kind.IsKey():
		code, err := r.int32(fmt.Sprintf("events[%d].key_code", i))
		if err != nil {
			return macro.Event{}, err
		}
		payload = macro.KeyPayload{KeyCode: code}
	default:
		cp, err := r.int32(fmt.Sprintf("events[%d].char", i))
		if err != nil {
			return macro.Event{}, err
		}
		payload = macro.CharPayload{Char: rune(cp)}
	}

	delayAt := r.off
	delay, err := r.int32(fmt.Sprintf("events[%d].delay_ms", i))
	if err != nil {
		return macro.Event{}, err
	}
	if delay < 0 {
		return macro.Event{}, r.fail(delayAt, fmt.Sprintf("events[%d].delay_ms", i), fmt.Errorf("%w: %d", ErrNegativeDelay, delay))
	}

	return macro.Event{Kind: kind, Payload: payload, DelayMs: delay}, nil
}
