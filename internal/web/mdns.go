package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// mDNS service parameters.
const (
	ServiceType   = "_http._tcp"
	ServiceDomain = "local."
)

// Advertise announces the status page over mDNS until ctx is done.
func Advertise(ctx context.Context, instance, addr string, logger *slog.Logger) error {
	port, err := portOf(addr)
	if err != nil {
		return err
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port,
		[]string{"path=/", "json=/index.json", "ws=/ws"}, nil)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}
	defer server.Shutdown()

	logger.Info("advertising over mdns", "instance", instance, "service", ServiceType, "port", port)
	<-ctx.Done()
	return nil
}

// portOf extracts the TCP port from a listen address such as ":80".
func portOf(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("parse http addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("http addr %q: invalid port", addr)
	}
	return port, nil
}
