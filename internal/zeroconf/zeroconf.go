// Package zeroconf advertises the fast-connect daemon as a DNS-SD service so
// controllers on the LAN can find its HTTP API.
package zeroconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the DNS-SD service type registered by the daemon.
const ServiceType = "_avdecc-fc._tcp"

// ErrNotStarted is returned by UpdateCount before Start has registered.
var ErrNotStarted = errors.New("zeroconf: server not started")

// register is zeroconf.Register. A variable so tests can avoid the network.
var register = func(instance, service, domain string, port int, txt []string) (shutdowner, error) {
	return zeroconf.Register(instance, service, domain, port, txt, nil)
}

type shutdowner interface {
	Shutdown()
}

// Service manages the mDNS registration.
type Service struct {
	name    string // instance name, usually the hostname
	port    int
	version string

	mu     sync.Mutex
	count  int
	server shutdowner
}

// New creates a Service that will advertise port under instance name.
func New(name string, port int, version string) *Service {
	return &Service{name: name, port: port, version: version}
}

// TXT builds the TXT records for a daemon version and saved-state count.
func TXT(version string, count int) []string {
	return []string{
		"version=" + version,
		"saved=" + strconv.Itoa(count),
	}
}

// Start registers the service and blocks until ctx is cancelled, then shuts
// the server down.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	err := s.registerLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	<-ctx.Done()

	s.mu.Lock()
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.mu.Unlock()
	slog.Info("zeroconf: mDNS service unregistered")
	return nil
}

// UpdateCount re-announces the service with a new saved-state count.
// grandcat/zeroconf has no live TXT update, so the server is re-registered.
func (s *Service) UpdateCount(count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		s.count = count
		return ErrNotStarted
	}
	if count == s.count {
		return nil
	}
	s.count = count
	s.server.Shutdown()
	s.server = nil
	return s.registerLocked()
}

func (s *Service) registerLocked() error {
	txt := TXT(s.version, s.count)
	server, err := register(s.name, ServiceType, "local.", s.port, txt)
	if err != nil {
		return fmt.Errorf("zeroconf register: %w", err)
	}
	s.server = server
	slog.Info("zeroconf: registered mDNS service",
		"name", s.name,
		"port", s.port,
		"txt", txt,
	)
	return nil
}
