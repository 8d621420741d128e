package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/mash-protocol/netcomm-go/pkg/log"
)

// Dial connects to a device and starts the connection's read loop.
// cfg.Role defaults to the controller role.
func Dial(ctx context.Context, address string, cfg ConnConfig) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	if cfg.Role == log.RoleDevice {
		cfg.Role = log.RoleController
	}
	c := NewConn(nc, cfg)
	c.Start()
	return c, nil
}
