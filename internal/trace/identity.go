// Package trace holds the session-scoped identity every emitter tags its
// log events with: a trace id correlating events across systems, and the
// acting user id.
package trace

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"tracehub/internal/models"
)

// AnonymousUser is the user id applied before SetUserID is called.
const AnonymousUser = models.AnonymousUser

// Identity is an explicit, injectable holder for the current trace and user
// identity. Construct one per process or session and share it by reference;
// all methods are safe for concurrent use.
type Identity struct {
	mu      sync.Mutex
	traceID string
	userID  string
	enabled bool

	now  func() time.Time
	rand *rand.Rand
}

// Option configures an Identity.
type Option func(*Identity)

// WithClock overrides the time source. Test use.
func WithClock(now func() time.Time) Option {
	return func(id *Identity) { id.now = now }
}

// WithEnabled sets the initial capture-enabled flag.
func WithEnabled(enabled bool) Option {
	return func(id *Identity) { id.enabled = enabled }
}

// NewIdentity creates an Identity with defaults: no trace id yet, anonymous
// user, capture enabled.
func NewIdentity(opts ...Option) *Identity {
	id := &Identity{
		userID:  AnonymousUser,
		enabled: true,
		now:     time.Now,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(id)
	}
	return id
}

// TraceID returns the current trace id, creating one lazily on first use.
func (id *Identity) TraceID() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	if id.traceID == "" {
		id.traceID = id.generate()
	}
	return id.traceID
}

// NewTrace replaces the current trace id and returns the new one. Starts a
// fresh correlation scope, e.g. on navigation.
func (id *Identity) NewTrace() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	prev := id.traceID
	id.traceID = id.generate()
	for id.traceID == prev {
		id.traceID = id.generate()
	}
	return id.traceID
}

// SetTraceID adopts an externally supplied trace id, joining a correlation
// scope started by another process. An empty id is ignored.
func (id *Identity) SetTraceID(traceID string) {
	if traceID == "" {
		return
	}
	id.mu.Lock()
	defer id.mu.Unlock()
	id.traceID = traceID
}

// SetUserID associates subsequent emissions with a user. An empty id resets
// to anonymous.
func (id *Identity) SetUserID(userID string) {
	id.mu.Lock()
	defer id.mu.Unlock()
	if userID == "" {
		userID = AnonymousUser
	}
	id.userID = userID
}

// UserID returns the current user id.
func (id *Identity) UserID() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.userID
}

// Enabled reports whether capture is active.
func (id *Identity) Enabled() bool {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.enabled
}

// SetEnabled toggles capture.
func (id *Identity) SetEnabled(enabled bool) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.enabled = enabled
}

// Reset clears trace id, user id, and the enabled flag back to defaults.
// Provided for test isolation.
func (id *Identity) Reset() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.traceID = ""
	id.userID = AnonymousUser
	id.enabled = true
}

// generate builds a trace id of the form trace_<epochMillis>_<randBase36>.
// Caller holds the lock.
func (id *Identity) generate() string {
	millis := id.now().UnixMilli()
	suffix := strconv.FormatInt(id.rand.Int63(), 36)
	return fmt.Sprintf("trace_%d_%s", millis, suffix)
}
