package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/mash-protocol/netcomm-go/pkg/log"
)

func TestFrameWriterReader(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "small message", payload: []byte("hello")},
		{name: "medium message", payload: bytes.Repeat([]byte("x"), 1000)},
		{name: "max size message", payload: bytes.Repeat([]byte("y"), MaxMessageSize)},
		{name: "single byte", payload: []byte{0x42}},
		{name: "binary data", payload: []byte{0x00, 0xFF, 0x7F, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)

			writer := NewFrameWriter(buf)
			if err := writer.WriteFrame(tt.payload); err != nil {
				t.Fatalf("WriteFrame failed: %v", err)
			}

			expectedSize := LengthPrefixSize + len(tt.payload)
			if buf.Len() != expectedSize {
				t.Errorf("frame size = %d, want %d", buf.Len(), expectedSize)
			}

			reader := NewFrameReader(buf)
			got, err := reader.ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame failed: %v", err)
			}
			if !bytes.Equal(got, tt.payload) {
				t.Errorf("payload mismatch: got %d bytes, want %d bytes", len(got), len(tt.payload))
			}
		})
	}
}

func TestFrameWriterPrefixIsBigEndian(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := NewFrameWriter(buf).WriteFrame(bytes.Repeat([]byte{1}, 0x0102)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if got := buf.Bytes()[:2]; got[0] != 0x01 || got[1] != 0x02 {
		t.Errorf("prefix = % x, want 01 02", got)
	}
}

func TestFrameWriterEmptyMessage(t *testing.T) {
	err := NewFrameWriter(new(bytes.Buffer)).WriteFrame([]byte{})
	if !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("expected ErrMessageEmpty, got %v", err)
	}
}

func TestFrameWriterTooLarge(t *testing.T) {
	buf := new(bytes.Buffer)
	err := NewFrameWriter(buf).WriteFrame(make([]byte, MaxMessageSize+1))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for rejected frame", buf.Len())
	}
}

func TestFrameReaderErrors(t *testing.T) {
	t.Run("clean EOF", func(t *testing.T) {
		_, err := NewFrameReader(bytes.NewReader(nil)).ReadFrame()
		if err != io.EOF {
			t.Errorf("expected io.EOF, got %v", err)
		}
	})

	t.Run("partial prefix", func(t *testing.T) {
		_, err := NewFrameReader(bytes.NewReader([]byte{0x00})).ReadFrame()
		if !errors.Is(err, ErrFrameTruncated) {
			t.Errorf("expected ErrFrameTruncated, got %v", err)
		}
	})

	t.Run("partial payload", func(t *testing.T) {
		frame := make([]byte, 2, 5)
		binary.BigEndian.PutUint16(frame, 10)
		frame = append(frame, 1, 2, 3)
		_, err := NewFrameReader(bytes.NewReader(frame)).ReadFrame()
		if !errors.Is(err, ErrFrameTruncated) {
			t.Errorf("expected ErrFrameTruncated, got %v", err)
		}
	})

	t.Run("zero length", func(t *testing.T) {
		_, err := NewFrameReader(bytes.NewReader([]byte{0, 0})).ReadFrame()
		if !errors.Is(err, ErrMessageEmpty) {
			t.Errorf("expected ErrMessageEmpty, got %v", err)
		}
	})
}

func TestFrameMultipleMessages(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)
	messages := [][]byte{[]byte("first"), []byte("second"), []byte("third")}
	for _, m := range messages {
		if err := writer.WriteFrame(m); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	reader := NewFrameReader(buf)
	for i, want := range messages {
		got, err := reader.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("message %d = %q, want %q", i, got, want)
		}
	}
}

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureLogger) snapshot() []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]log.Event(nil), c.events...)
}

func TestFramerLogsSizeOnly(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := &captureLogger{}
	framer := NewFramer(buf)
	framer.SetLogger(logger, "conn-1")

	if err := framer.WriteFrame([]byte("secret")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if _, err := framer.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	events := logger.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Direction != log.DirectionOut || events[1].Direction != log.DirectionIn {
		t.Errorf("directions = %v,%v, want OUT,IN", events[0].Direction, events[1].Direction)
	}
	for _, e := range events {
		if e.ConnectionID != "conn-1" {
			t.Errorf("ConnectionID = %q, want conn-1", e.ConnectionID)
		}
		if e.Frame == nil || e.Frame.Size != LengthPrefixSize+6 {
			t.Errorf("Frame = %+v, want size %d", e.Frame, LengthPrefixSize+6)
		}
	}
}

func TestFrameWriterConcurrent(t *testing.T) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = writer.WriteFrame(bytes.Repeat([]byte{byte(n)}, 10+n))
		}(i)
	}
	wg.Wait()

	reader := NewFrameReader(buf)
	for range 50 {
		frame, err := reader.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		n := int(frame[0])
		if len(frame) != 10+n {
			t.Fatalf("interleaved frame: len %d for writer %d", len(frame), n)
		}
	}
}
