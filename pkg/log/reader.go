package log

import (
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events by their header and payload. Zero fields match
// everything.
type Filter struct {
	ConnectionID string
	ExchangeID   uint32
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// CommandID keeps invoke messages and command results for one
	// commissioning command.
	CommandID *uint8

	// NetworkID keeps command results that acted on this network.
	NetworkID []byte

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Match reports whether event passes every criterion in f.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID,
		f.ExchangeID != 0 && event.ExchangeID != f.ExchangeID,
		f.Direction != nil && event.Direction != *f.Direction,
		f.Layer != nil && event.Layer != *f.Layer,
		f.Category != nil && event.Category != *f.Category,
		f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	if f.CommandID != nil && commandOf(event) != int(*f.CommandID) {
		return false
	}
	if f.NetworkID != nil && (event.Command == nil || !bytes.Equal(event.Command.NetworkID, f.NetworkID)) {
		return false
	}
	return true
}

// commandOf returns the command an event is about, or -1.
func commandOf(event Event) int {
	switch {
	case event.Command != nil:
		return int(event.Command.CommandID)
	case event.Message != nil && event.Message.CommandID != nil:
		return int(*event.Message.CommandID)
	}
	return -1
}

// Reader streams events from a capture written by FileLogger.
type Reader struct {
	src    io.ReadCloser
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens path and yields every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and yields only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewStreamReader(f, filter), nil
}

// NewStreamReader reads events from src. Close closes src.
func NewStreamReader(src io.ReadCloser, filter Filter) *Reader {
	return &Reader{src: src, dec: NewDecoder(src), filter: filter}
}

// Next returns the next matching event, or io.EOF once the capture is
// exhausted. A capture cut short mid-event yields io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.dec.Decode(&event)
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		if err != nil {
			return Event{}, err
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Close releases the underlying source.
func (r *Reader) Close() error {
	return r.src.Close()
}
