package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"gopkg.in/gomail.v2"
)

var errPoolClosed = errors.New("smtp session pool is closed")

type dialer interface {
	Dial() (gomail.SendCloser, error)
}

type session struct {
	conn     gomail.SendCloser
	sent     int
	lastUsed time.Time
}

// sessionPool caps concurrent SMTP sessions and reuses authenticated ones
// until they have carried maxMessages messages or sat idle past idleTimeout.
type sessionPool struct {
	dialer      dialer
	tokens      chan struct{}
	maxMessages int
	idleTimeout time.Duration

	mu     sync.Mutex
	idle   []*session
	closed bool
}

func newSessionPool(d dialer, maxConnections, maxMessages int, idleTimeout time.Duration) *sessionPool {
	if maxConnections <= 0 {
		maxConnections = 1
	}
	if maxMessages <= 0 {
		maxMessages = 1
	}

	return &sessionPool{
		dialer:      d,
		tokens:      make(chan struct{}, maxConnections),
		maxMessages: maxMessages,
		idleTimeout: idleTimeout,
	}
}

func (p *sessionPool) acquire(ctx context.Context) (*session, error) {
	select {
	case p.tokens <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		<-p.tokens
		return nil, errPoolClosed
	}

	if s := p.takeIdle(); s != nil {
		if alive(ctx, s.conn) {
			return s, nil
		}
		_ = s.conn.Close()
	}

	conn, err := p.dialer.Dial()
	if err != nil {
		<-p.tokens
		return nil, err
	}

	return &session{conn: conn, lastUsed: time.Now()}, nil
}

// dialFresh opens and closes a new session without touching the idle list.
func (p *sessionPool) dialFresh(ctx context.Context) error {
	select {
	case p.tokens <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.tokens }()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return errPoolClosed
	}

	conn, err := p.dialer.Dial()
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

// alive reports whether a pooled session still answers. Sessions that cannot
// be checked are assumed alive.
func alive(ctx context.Context, conn gomail.SendCloser) bool {
	n, ok := conn.(nooper)
	if !ok {
		return true
	}
	disarm := armDeadline(ctx, conn)
	defer disarm()
	return n.Noop() == nil
}

func (p *sessionPool) takeIdle() *session {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for len(p.idle) > 0 {
		s := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if p.idleTimeout > 0 && now.Sub(s.lastUsed) > p.idleTimeout {
			_ = s.conn.Close()
			continue
		}
		return s
	}

	return nil
}

// release returns the session to the pool. A session that failed, is spent,
// or outlives the pool is closed instead.
func (p *sessionPool) release(s *session, failed bool) {
	defer func() { <-p.tokens }()

	s.lastUsed = time.Now()

	p.mu.Lock()
	keep := !failed && !p.closed && s.sent < p.maxMessages
	if keep {
		p.idle = append(p.idle, s)
	}
	p.mu.Unlock()

	if !keep {
		_ = s.conn.Close()
	}
}

func (p *sessionPool) idleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *sessionPool) close() error {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for _, s := range idle {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
