package devcfg

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Session serializes access to a shared transport. The underlying links
// are half-duplex: a transport must be exclusively owned for the duration
// of one assembly pass, and concurrent passes against the same transport
// are not supported. Session enforces that ownership so callers don't
// have to.
//
// Device identity is immutable for the lifetime of a connection, so the
// first successful Info is cached and concurrent lookups are deduplicated.
type Session struct {
	transport Transport
	opts      []AssembleOption

	sem   *semaphore.Weighted
	group singleflight.Group

	mu       sync.Mutex
	identity *DeviceIdentity

	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps a transport. The options are applied to every
// Assemble pass made through the session.
func NewSession(t Transport, opts ...AssembleOption) *Session {
	return &Session{
		transport: t,
		opts:      opts,
		sem:       semaphore.NewWeighted(1),
	}
}

// Info returns the device identity, fetching it at most once. Concurrent
// callers share a single in-flight request.
func (s *Session) Info(ctx context.Context) (DeviceIdentity, error) {
	s.mu.Lock()
	if id := s.identity; id != nil {
		s.mu.Unlock()
		return *id, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("info", func() (any, error) {
		id, err := s.transport.Info(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.identity = &id
		s.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return DeviceIdentity{}, err
	}
	return v.(DeviceIdentity), nil
}

// Assemble runs one assembly pass with exclusive ownership of the
// transport. Concurrent calls queue; ctx cancellation while waiting
// returns ctx.Err() without touching the link.
func (s *Session) Assemble(ctx context.Context) (*Settings, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return Assemble(ctx, s.transport, s.opts...)
}

// Close closes the underlying transport. Idempotent; an assembly pass in
// flight fails with [ErrDisconnected] per the transport contract.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}
