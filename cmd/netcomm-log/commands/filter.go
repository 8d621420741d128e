package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output     string
	ConnID     string
	ExchangeID uint32
	TimeStart  string
	TimeEnd    string
	Layer      string
	Direction  string
	Category   string
	Command    string
	Network    string
}

func (o FilterOptions) toFilter() (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: o.ConnID,
		ExchangeID:   o.ExchangeID,
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := ParseLayerFlag(o.Layer)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := ParseDirectionFlag(o.Direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	if o.Command != "" {
		cmd, err := ParseCommandFlag(o.Command)
		if err != nil {
			return log.Filter{}, err
		}
		filter.CommandID = &cmd
	}
	if o.Network != "" {
		id, err := ParseNetworkFlag(o.Network)
		if err != nil {
			return log.Filter{}, err
		}
		filter.NetworkID = id
	}
	return filter, nil
}

// RunFilter writes the matching events of path to opts.Output and returns
// how many were written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := opts.toFilter()
	if err != nil {
		return 0, err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(opts.Output, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer out.Close()

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read event: %w", err)
		}
		out.Log(event)
		count++
	}
}
