// Package sim provides a simulated Wi-Fi and Thread radio.
//
// The radio keeps the state a real network stack would expose (associated
// SSID, Thread enable flag and active dataset) and records every call so
// tests can assert ordering. Failures and latency are injected per
// operation.
package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Simulated failures.
var (
	ErrSSIDNotFound = errors.New("ssid not in range")
	ErrAuthFailed   = errors.New("authentication failed")
	ErrInjected     = errors.New("injected failure")
)

// Op names a radio operation.
type Op string

const (
	OpProvisionWiFi      Op = "provision_wifi"
	OpThreadEnable       Op = "thread_enable"
	OpThreadDisable      Op = "thread_disable"
	OpSetThreadProvision Op = "set_thread_provision"
)

// Call is one recorded radio operation.
type Call struct {
	Op  Op
	Arg []byte
	Err error
}

// Radio is a simulated network stack. It implements
// netcommissioning.WiFiProvisioner and netcommissioning.ThreadStack.
type Radio struct {
	mu sync.Mutex

	// Access points in range, SSID to passphrase. A nil map accepts any
	// SSID and credentials.
	aps map[string][]byte

	failures map[Op]error
	latency  time.Duration

	ssid          []byte
	threadEnabled bool
	dataset       []byte

	calls  []Call
	logger *slog.Logger
}

// Option configures a Radio.
type Option func(*Radio)

// WithAccessPoint puts an access point in range. Once any access point is
// configured, unknown SSIDs fail with ErrSSIDNotFound.
func WithAccessPoint(ssid string, passphrase []byte) Option {
	return func(r *Radio) {
		if r.aps == nil {
			r.aps = make(map[string][]byte)
		}
		r.aps[ssid] = bytes.Clone(passphrase)
	}
}

// WithLatency delays every operation.
func WithLatency(d time.Duration) Option {
	return func(r *Radio) { r.latency = d }
}

// WithLogger logs every operation at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Radio) { r.logger = l }
}

// New creates a radio with Thread disabled and no association.
func New(opts ...Option) *Radio {
	r := &Radio{failures: make(map[Op]error)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FailNext makes every subsequent op fail with err until cleared with a
// nil err.
func (r *Radio) FailNext(op Op, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, op)
		return
	}
	r.failures[op] = err
}

// ProvisionWiFi associates with ssid.
func (r *Radio) ProvisionWiFi(ctx context.Context, ssid, credentials []byte) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.injected(OpProvisionWiFi)
	if err == nil && r.aps != nil {
		pass, ok := r.aps[string(ssid)]
		switch {
		case !ok:
			err = fmt.Errorf("%w: %q", ErrSSIDNotFound, ssid)
		case !bytes.Equal(pass, credentials):
			err = ErrAuthFailed
		}
	}
	if err == nil {
		r.ssid = bytes.Clone(ssid)
	}
	r.record(OpProvisionWiFi, ssid, err)
	return err
}

// SetThreadEnabled starts or stops the Thread interface.
func (r *Radio) SetThreadEnabled(ctx context.Context, enabled bool) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	op := OpThreadDisable
	if enabled {
		op = OpThreadEnable
	}
	err := r.injected(op)
	if err == nil && enabled && len(r.dataset) == 0 {
		err = errors.New("no active dataset")
	}
	if err == nil {
		r.threadEnabled = enabled
	}
	r.record(op, nil, err)
	return err
}

// SetThreadProvision replaces the active dataset. The interface must be
// disabled.
func (r *Radio) SetThreadProvision(ctx context.Context, dataset []byte) error {
	if err := r.wait(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.injected(OpSetThreadProvision)
	if err == nil && r.threadEnabled {
		err = errors.New("thread interface is up")
	}
	if err == nil {
		r.dataset = bytes.Clone(dataset)
	}
	r.record(OpSetThreadProvision, nil, err)
	return err
}

// SSID returns the associated SSID.
func (r *Radio) SSID() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.ssid)
}

// ThreadEnabled reports whether the Thread interface is up.
func (r *Radio) ThreadEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threadEnabled
}

// Dataset returns the active Thread dataset.
func (r *Radio) Dataset() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.dataset)
}

// Calls returns the recorded operations in order.
func (r *Radio) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *Radio) wait(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Radio) injected(op Op) error {
	if err, ok := r.failures[op]; ok {
		return err
	}
	return nil
}

// record appends a call. Arguments other than the SSID are not kept since
// they carry secrets.
func (r *Radio) record(op Op, arg []byte, err error) {
	r.calls = append(r.calls, Call{Op: op, Arg: bytes.Clone(arg), Err: err})
	if r.logger != nil {
		r.logger.Debug("radio operation", "op", string(op), "ok", err == nil)
	}
}
