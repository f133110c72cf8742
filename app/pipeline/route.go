package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrRouteClosed indicates that a route was closed while reading/writing.
	ErrRouteClosed = errors.New("route is closed")

	// ErrRouteCapacityReached indicates that the route's capacity has been
	// reached. Callers should back off and retry instead of blocking.
	ErrRouteCapacityReached = errors.New("route capacity has been reached")
)

// Route is a bounded mailbox of commands. Enqueue never blocks; a full route
// reports ErrRouteCapacityReached so that backpressure propagates to the
// caller instead of queueing unbounded work.
type Route struct {
	name    string
	channel chan Command
	// closed and closeLock protect us from writing to a closed channel.
	// Reads use the channel's built-in mechanism to check if the channel
	// is closed.
	closed    bool
	closeLock sync.Mutex
	capacity  int
}

func newRoute(name string, capacity int) *Route {
	return &Route{
		name:     name,
		channel:  make(chan Command, capacity),
		closed:   false,
		capacity: capacity,
	}
}

// Enqueue enqueues a command to the Route.
func (r *Route) Enqueue(command Command) error {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	if r.closed {
		return errors.WithStack(ErrRouteClosed)
	}
	if len(r.channel) == r.capacity {
		return errors.Wrapf(ErrRouteCapacityReached,
			"route '%s' reached capacity of %d", r.name, r.capacity)
	}
	r.channel <- command
	return nil
}

// Dequeue dequeues a command from the Route. Once the route is closed,
// Dequeue keeps returning the commands that were enqueued before the close
// and only then reports ErrRouteClosed.
func (r *Route) Dequeue() (Command, error) {
	command, isOpen := <-r.channel
	if !isOpen {
		return nil, errors.Wrapf(ErrRouteClosed, "route '%s' is closed", r.name)
	}
	return command, nil
}

// Ready reports whether the route currently accepts new commands.
func (r *Route) Ready() bool {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	return !r.closed && len(r.channel) < r.capacity
}

// Close closes this route.
func (r *Route) Close() {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	close(r.channel)
}
