package lifecycle

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/apikit/errors"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
)

// Factory creates the transport for key.
type Factory func(key string) (httpclient.Transport, error)

// State is the state of a pooled handle.
type State int32

const (
	StateActive State = iota
	StateExpired
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

type entry struct {
	key       string
	transport httpclient.Transport
	created   time.Time
	leases    atomic.Int64
	state     atomic.Int32
}

func (e *entry) State() State { return State(e.state.Load()) }

// slot guards the active entry of one key.
type slot struct {
	mu     sync.Mutex
	active *entry
}

// Manager owns the handle pool.
type Manager struct {
	cfg     Config
	factory Factory
	log     *logger.Logger
	now     func() time.Time

	slots sync.Map // key -> *slot
	live  atomic.Int64

	expiredMu sync.Mutex
	expired   []*entry

	created  atomic.Int64
	disposed atomic.Int64
	swaps    atomic.Int64

	closed   atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log.WithComponent("lifecycle") }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithoutSweeper disables the background sweep; Sweep must be called
// explicitly.
func WithoutSweeper() Option {
	return func(m *Manager) { m.stop = nil }
}

// New creates a Manager and starts its sweeper.
func New(cfg Config, factory Factory, opts ...Option) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration("", "", err.Error())
	}
	if factory == nil {
		return nil, errors.Configuration("", "", "lifecycle: factory is required")
	}
	m := &Manager{
		cfg:     cfg,
		factory: factory,
		log:     logger.NewNop(),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.stop != nil {
		go m.sweepLoop()
	} else {
		close(m.done)
	}
	return m, nil
}

// Lease is a counted reference to a handle. Release it when the call is
// done.
type Lease struct {
	e        *entry
	m        *Manager
	released atomic.Bool
}

// Transport returns the leased transport.
func (l *Lease) Transport() httpclient.Transport { return l.e.transport }

// Key returns the pool key.
func (l *Lease) Key() string { return l.e.key }

// Release returns the lease. Extra calls do nothing.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	if l.e.leases.Add(-1) == 0 && l.m.closed.Load() && l.m.retire(l.e, StateExpired) {
		l.m.live.Add(-1)
	}
}

// Acquire leases the current handle for key, swapping in a new one when
// the lifetime has passed.
func (m *Manager) Acquire(key string) (*Lease, error) {
	if m.closed.Load() {
		return nil, errors.New(errors.ErrCodeClientClosed, "handle pool is closed")
	}
	v, _ := m.slots.LoadOrStore(key, &slot{})
	s := v.(*slot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if m.closed.Load() {
		return nil, errors.New(errors.ErrCodeClientClosed, "handle pool is closed")
	}

	e := s.active
	reserved := false
	if e != nil && m.now().Sub(e.created) >= m.cfg.Lifetime {
		switch {
		case m.reserve():
			m.demote(e)
			reserved = true
		case e.leases.Load() == 0:
			// No room for both, but nobody holds the old handle: replace it
			// in place.
			m.retire(e, StateActive)
			reserved = true
		default:
			m.log.Debug("handle pool full, serving expired handle", logger.Fields(logger.FieldHandleKey, key))
		}
		if reserved {
			m.swaps.Add(1)
			s.active, e = nil, nil
		}
	}
	if e == nil {
		if !reserved && !m.reserve() {
			return nil, errors.New(errors.ErrCodeServiceUnavailable, "handle pool is full")
		}
		t, err := m.factory(key)
		if err != nil {
			m.live.Add(-1)
			return nil, err
		}
		e = &entry{key: key, transport: t, created: m.now()}
		s.active = e
		m.created.Add(1)
		m.log.Debug("handle created", logger.Fields(logger.FieldHandleKey, key))
	}
	e.leases.Add(1)
	return &Lease{e: e, m: m}, nil
}

// reserve claims room for one more live handle, sweeping inline when the
// pool is full.
func (m *Manager) reserve() bool {
	if m.cfg.MaxHandles == 0 {
		m.live.Add(1)
		return true
	}
	for attempt := 0; attempt < 2; attempt++ {
		for {
			n := m.live.Load()
			if n >= int64(m.cfg.MaxHandles) {
				break
			}
			if m.live.CompareAndSwap(n, n+1) {
				return true
			}
		}
		if attempt == 0 && m.Sweep() == 0 {
			return false
		}
	}
	return false
}

// demote moves e to the expired queue. The caller holds e's slot lock.
func (m *Manager) demote(e *entry) {
	e.state.Store(int32(StateExpired))
	m.expiredMu.Lock()
	m.expired = append(m.expired, e)
	m.expiredMu.Unlock()
	m.log.Debug("handle expired", logger.Fields(logger.FieldHandleKey, e.key, "leases", e.leases.Load()))
}

// Sweep closes expired handles without leases and returns how many it
// closed. Handles still in use stay queued.
func (m *Manager) Sweep() int {
	m.expiredMu.Lock()
	pending := m.expired
	m.expired = nil
	m.expiredMu.Unlock()

	var keep []*entry
	n := 0
	for _, e := range pending {
		if e.leases.Load() > 0 {
			keep = append(keep, e)
			continue
		}
		if m.retire(e, StateExpired) {
			m.live.Add(-1)
			n++
		}
	}
	if len(keep) > 0 {
		m.expiredMu.Lock()
		m.expired = append(m.expired, keep...)
		m.expiredMu.Unlock()
	}
	return n
}

// retire closes e if it is still in state from. Exactly one caller wins.
func (m *Manager) retire(e *entry, from State) bool {
	if !e.state.CompareAndSwap(int32(from), int32(StateDisposed)) {
		return false
	}
	m.disposed.Add(1)
	fields := logger.Fields(logger.FieldHandleKey, e.key)
	if err := e.transport.Close(); err != nil {
		fields[logger.FieldError] = err.Error()
		m.log.Warn("closing handle failed", fields)
		return true
	}
	m.log.Debug("handle disposed", fields)
	return true
}

func (m *Manager) sweepLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// HandleStats describes one live handle.
type HandleStats struct {
	Key    string
	State  State
	Leases int64
	Age    time.Duration
}

// Stats is a snapshot of the pool.
type Stats struct {
	Active   int
	Expired  int
	Created  int64
	Disposed int64
	Swaps    int64
	Handles  []HandleStats
}

// Stats returns a snapshot of the pool.
func (m *Manager) Stats() Stats {
	now := m.now()
	st := Stats{Created: m.created.Load(), Disposed: m.disposed.Load(), Swaps: m.swaps.Load()}
	m.slots.Range(func(k, v any) bool {
		s := v.(*slot)
		s.mu.Lock()
		e := s.active
		s.mu.Unlock()
		if e != nil {
			st.Active++
			st.Handles = append(st.Handles, HandleStats{Key: e.key, State: StateActive, Leases: e.leases.Load(), Age: now.Sub(e.created)})
		}
		return true
	})
	m.expiredMu.Lock()
	for _, e := range m.expired {
		st.Expired++
		st.Handles = append(st.Handles, HandleStats{Key: e.key, State: e.State(), Leases: e.leases.Load(), Age: now.Sub(e.created)})
	}
	m.expiredMu.Unlock()
	sort.Slice(st.Handles, func(i, j int) bool {
		if st.Handles[i].Key != st.Handles[j].Key {
			return st.Handles[i].Key < st.Handles[j].Key
		}
		return st.Handles[i].State < st.Handles[j].State
	})
	return st
}

// Close stops the sweeper and closes every handle. Handles still leased
// are closed when their last lease is released.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.stopOnce.Do(func() {
		if m.stop != nil {
			close(m.stop)
		}
	})
	<-m.done

	m.slots.Range(func(k, v any) bool {
		s := v.(*slot)
		s.mu.Lock()
		if s.active != nil {
			m.demote(s.active)
			s.active = nil
		}
		s.mu.Unlock()
		return true
	})
	m.Sweep()
	m.log.Debug("handle pool closed")
	return nil
}
