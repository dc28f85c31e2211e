package cypher

import (
	"context"
	"sync"
	"time"

	"github.com/kgstore/kgstore/internal/domain"
)

// PoolConfig matches §5's shared-resource policy for the remote-graph
// adapter: up to 50 pooled sessions, each retired after 30 minutes, with a
// 30-second wait for a free slot before giving up.
type PoolConfig struct {
	MaxSize         int
	MaxLifetime     time.Duration
	AcquireTimeout  time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxSize: 50, MaxLifetime: 30 * time.Minute, AcquireTimeout: 30 * time.Second}
}

type pooledSession struct {
	session Session
	opened  time.Time
}

func (p *pooledSession) expired(lifetime time.Duration) bool {
	return time.Since(p.opened) > lifetime
}

// pool is a fixed-capacity set of live Sessions opened lazily against a
// single dial target, with lifetime-based eviction. It does not attempt
// health-checking beyond Session.Ping on reuse; a dead session is dropped and
// a fresh one dialed in its place.
type pool struct {
	cfg    PoolConfig
	driver Driver
	dsn    string
	user   string
	pass   string

	mu    sync.Mutex
	idle  []*pooledSession
	count int
	sem   chan struct{}
}

func newPool(driver Driver, dsn, user, pass string, cfg PoolConfig) *pool {
	return &pool{
		cfg:    cfg,
		driver: driver,
		dsn:    dsn,
		user:   user,
		pass:   pass,
		sem:    make(chan struct{}, cfg.MaxSize),
	}
}

// acquire blocks for at most cfg.AcquireTimeout for a free slot, then returns
// either an idle session or dials a new one.
func (p *pool) acquire(ctx context.Context) (*pooledSession, error) {
	actx, cancel := context.WithTimeout(ctx, p.cfg.AcquireTimeout)
	defer cancel()

	select {
	case p.sem <- struct{}{}:
	case <-actx.Done():
		return nil, domain.NewError(domain.KindBackendUnavailable, "timed out acquiring a pooled connection", nil)
	}

	p.mu.Lock()
	for len(p.idle) > 0 {
		ps := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		p.mu.Unlock()
		if ps.expired(p.cfg.MaxLifetime) {
			ps.session.Close(ctx)
			p.mu.Lock()
			continue
		}
		if err := ps.session.Ping(ctx); err != nil {
			ps.session.Close(ctx)
			p.mu.Lock()
			continue
		}
		return ps, nil
	}
	p.mu.Unlock()

	sess, err := p.driver.Dial(ctx, p.dsn, p.user, p.pass)
	if err != nil {
		<-p.sem
		return nil, domain.Wrap(domain.KindBackendUnavailable, "dial remote graph server", err)
	}
	return &pooledSession{session: sess, opened: time.Now()}, nil
}

// release returns a session to the idle set, or closes it (and the slot it
// held) if it has exceeded its lifetime or the caller marks it broken.
func (p *pool) release(ctx context.Context, ps *pooledSession, broken bool) {
	if broken || ps.expired(p.cfg.MaxLifetime) {
		ps.session.Close(ctx)
		<-p.sem
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, ps)
	p.mu.Unlock()
}

// closeAll closes every idle session; in-flight sessions close themselves
// via release once their caller returns.
func (p *pool) closeAll(ctx context.Context) {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, ps := range idle {
		ps.session.Close(ctx)
		<-p.sem
	}
}
