package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the current circuit breaker state.
type CircuitState int

const (
	Closed CircuitState = iota
	Open
	// HalfOpen lets a single probe through to test whether the dependency recovered.
	HalfOpen
)

var stateNames = map[CircuitState]string{
	Closed:   "closed",
	Open:     "open",
	HalfOpen: "half_open",
}

func (s CircuitState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling the guarded function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls and opens the circuit after repeated failures.
type CircuitBreaker interface {
	Call(func() error) error
	State() CircuitState
	Metrics() CircuitBreakerMetrics
	Reset()
}

type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	RecoveryTimeout  time.Duration // how long the circuit stays open before probing
	SuccessThreshold int           // successful probes needed to close again

	// IsFailure decides which errors count against the circuit. Nil counts every error.
	IsFailure func(error) bool
	// OnStateChange runs outside the breaker's lock.
	OnStateChange func(from, to CircuitState)
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
	}
}

// CircuitBreakerMetrics is a point-in-time snapshot for health reporting.
type CircuitBreakerMetrics struct {
	State        CircuitState `json:"-"`
	StateName    string       `json:"state"`
	FailureCount int          `json:"failure_count"`
	SuccessCount int          `json:"success_count"`
	Trips        int          `json:"trips"`
	LastFailure  time.Time    `json:"last_failure"`
	NextAttempt  time.Time    `json:"next_attempt"`
}

type circuitBreaker struct {
	config *Config
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	trips       int
	probing     bool
	lastFailure time.Time
	openUntil   time.Time
}

// NewCircuitBreaker returns a closed breaker; a nil config means DefaultConfig.
func NewCircuitBreaker(config *Config) CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &circuitBreaker{config: config, now: time.Now}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	from, to, admitted := cb.admit()
	cb.notify(from, to)
	if !admitted {
		return ErrCircuitOpen
	}

	err := fn()

	cb.notify(cb.settle(err))
	return err
}

// admit moves an expired Open circuit to HalfOpen and reserves the probe slot.
func (cb *circuitBreaker) admit() (from, to CircuitState, admitted bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from = cb.state
	if cb.state == Open {
		if cb.now().Before(cb.openUntil) {
			return from, cb.state, false
		}
		cb.state = HalfOpen
		cb.successes = 0
	}

	if cb.state == HalfOpen {
		if cb.probing {
			return from, cb.state, false
		}
		cb.probing = true
	}
	return from, cb.state, true
}

func (cb *circuitBreaker) settle(err error) (CircuitState, CircuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	from := cb.state
	if from == HalfOpen {
		cb.probing = false
	}

	if err != nil && cb.countsAsFailure(err) {
		cb.failures++
		cb.lastFailure = cb.now()
		if from == HalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.trip()
		}
		return from, cb.state
	}

	cb.failures = 0
	if from == HalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = Closed
			cb.successes = 0
		}
	}
	return from, cb.state
}

func (cb *circuitBreaker) trip() {
	cb.state = Open
	cb.trips++
	cb.openUntil = cb.now().Add(cb.config.RecoveryTimeout)
}

func (cb *circuitBreaker) countsAsFailure(err error) bool {
	if cb.config.IsFailure == nil {
		return true
	}
	return cb.config.IsFailure(err)
}

func (cb *circuitBreaker) notify(from, to CircuitState) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// State reports Open until the next call moves the circuit to HalfOpen.
func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = Closed
	cb.failures = 0
	cb.successes = 0
	cb.probing = false
	cb.mu.Unlock()

	cb.notify(from, Closed)
}

func (cb *circuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:        cb.state,
		StateName:    cb.state.String(),
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
		Trips:        cb.trips,
		LastFailure:  cb.lastFailure,
		NextAttempt:  cb.openUntil,
	}
}
