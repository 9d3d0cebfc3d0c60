package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cuongbtq/hr-records-be/internal/pubsub"
)

// connBuffer is the per-connection event buffer. A connection whose buffer is
// full is considered too slow and misses the event rather than blocking the
// delivery path.
const connBuffer = 16

// Connection is one open push channel to a user's client.
// Events arrive on C until Unsubscribe closes it.
type Connection struct {
	ID     string
	UserID string
	C      chan pubsub.Event
}

// Registry tracks live push connections per user. It is in-memory and
// per-process; entries exist only between subscribe and teardown.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]map[string]*Connection // userID -> connID -> conn
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]map[string]*Connection),
		logger: logger,
	}
}

// Subscribe registers a new live connection for userID.
func (r *Registry) Subscribe(userID string) *Connection {
	conn := &Connection{
		ID:     uuid.New().String(),
		UserID: userID,
		C:      make(chan pubsub.Event, connBuffer),
	}

	r.mu.Lock()
	userConns, ok := r.conns[userID]
	if !ok {
		userConns = make(map[string]*Connection)
		r.conns[userID] = userConns
	}
	userConns[conn.ID] = conn
	r.mu.Unlock()

	r.logger.Info("Live connection registered",
		slog.String("user_id", userID),
		slog.String("conn_id", conn.ID),
	)

	return conn
}

// Unsubscribe removes the connection and closes its channel.
// Safe to call more than once.
func (r *Registry) Unsubscribe(conn *Connection) {
	r.mu.Lock()
	userConns, ok := r.conns[conn.UserID]
	if ok {
		if _, present := userConns[conn.ID]; present {
			delete(userConns, conn.ID)
			close(conn.C)
		}
		if len(userConns) == 0 {
			delete(r.conns, conn.UserID)
		}
	}
	r.mu.Unlock()

	r.logger.Info("Live connection removed",
		slog.String("user_id", conn.UserID),
		slog.String("conn_id", conn.ID),
	)
}

// Deliver multicasts an event to every live connection of userID.
// Delivery never blocks: a connection with a full buffer misses the event,
// and a missing user is a no-op. Returns the number of connections reached.
func (r *Registry) Deliver(userID string, event pubsub.Event) int {
	// Sends happen under the read lock so a concurrent Unsubscribe cannot
	// close a channel mid-delivery. Sends are non-blocking, so the lock is
	// held only briefly.
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, conn := range r.conns[userID] {
		select {
		case conn.C <- event:
			delivered++
		default:
			r.logger.Warn("Dropping event for slow connection",
				slog.String("user_id", userID),
				slog.String("conn_id", conn.ID),
			)
		}
	}

	return delivered
}

// Count returns the number of live connections for one user.
func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// Total returns the number of live connections across all users.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, userConns := range r.conns {
		total += len(userConns)
	}
	return total
}
