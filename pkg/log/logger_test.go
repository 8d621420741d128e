package log

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{ExchangeID: 1})
	m.Log(Event{ExchangeID: 2})

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("got %d/%d events, want 2/2", len(a.events), len(b.events))
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	c := &captureLogger{}
	if OrNoop(c) != Logger(c) {
		t.Error("OrNoop should return a non-nil logger unchanged")
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{LayerService.String(), "SERVICE"},
		{CategoryTimed.String(), "TIMED"},
		{RoleController.String(), "CONTROLLER"},
		{TimedExpired.String(), "EXPIRED"},
		{StateEntityProfile.String(), "PROFILE"},
		{Category(99).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestSlogAdapterCommandEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	idx := uint8(2)
	d := 3 * time.Millisecond

	NewSlogAdapter(logger).Log(Event{
		ConnectionID: "conn-9",
		Category:     CategoryCommand,
		Layer:        LayerService,
		Command: &CommandEvent{
			Name:           "AddOrUpdateWiFiNetwork",
			NetworkID:      []byte("home"),
			StatusName:     "SUCCESS",
			NetworkIndex:   &idx,
			ProcessingTime: &d,
		},
	})

	out := buf.String()
	for _, want := range []string{"conn_id=conn-9", "command=AddOrUpdateWiFiNetwork", "network_id=home", "network_index=2", "status=SUCCESS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestRedactorReplaceAttr(t *testing.T) {
	var buf bytes.Buffer
	r := NewRedactor()
	r.AddSensitiveKey("Extra")
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: r.ReplaceAttr}))

	logger.Info("add", "ssid", "home", "credentials", "hunter22", "extra", "x")

	out := buf.String()
	if strings.Contains(out, "hunter22") {
		t.Errorf("credentials leaked: %q", out)
	}
	if !strings.Contains(out, "ssid=home") {
		t.Errorf("ssid should not be redacted: %q", out)
	}
	if !strings.Contains(out, "extra=[REDACTED]") {
		t.Errorf("custom key not redacted: %q", out)
	}

	r.RemoveSensitiveKey("extra")
	if r.IsSensitive("extra") {
		t.Error("extra should no longer be sensitive")
	}
}
