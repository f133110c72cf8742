package pipeline

import (
	"testing"
	"time"

	"github.com/pkg/errors"
)

type testCommand struct{ id int }

func (c *testCommand) Kind() CommandKind { return CmdGetTipInfo }

func TestRouteEnqueueDequeueOrder(t *testing.T) {
	route := newRoute("test", 10)
	defer route.Close()

	for i := 0; i < 5; i++ {
		err := route.Enqueue(&testCommand{id: i})
		if err != nil {
			t.Fatalf("Enqueue(%d): %+v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		command, err := route.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %+v", i, err)
		}
		if command.(*testCommand).id != i {
			t.Fatalf("Dequeued command %d, expected %d", command.(*testCommand).id, i)
		}
	}
}

func TestRouteCapacityIsEnforced(t *testing.T) {
	const capacity = 3
	route := newRoute("test", capacity)
	defer route.Close()

	for i := 0; i < capacity; i++ {
		err := route.Enqueue(&testCommand{id: i})
		if err != nil {
			t.Fatalf("Enqueue(%d): %+v", i, err)
		}
	}
	if route.Ready() {
		t.Error("A full route reports itself ready")
	}

	// The route rejects instead of blocking the caller.
	err := route.Enqueue(&testCommand{id: capacity})
	if !errors.Is(err, ErrRouteCapacityReached) {
		t.Fatalf("Enqueue on a full route: expected ErrRouteCapacityReached, got %+v", err)
	}

	// Draining one slot makes the route accept again.
	_, err = route.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %+v", err)
	}
	err = route.Enqueue(&testCommand{id: capacity})
	if err != nil {
		t.Fatalf("Enqueue after draining: %+v", err)
	}
}

func TestClosedRouteDrainsBeforeRejecting(t *testing.T) {
	route := newRoute("test", 10)

	err := route.Enqueue(&testCommand{id: 1})
	if err != nil {
		t.Fatalf("Enqueue: %+v", err)
	}
	route.Close()

	// Commands accepted before the close are still served.
	command, err := route.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue after close: %+v", err)
	}
	if command.(*testCommand).id != 1 {
		t.Fatalf("Dequeued command %d, expected 1", command.(*testCommand).id)
	}

	_, err = route.Dequeue()
	if !errors.Is(err, ErrRouteClosed) {
		t.Fatalf("Dequeue on a drained closed route: expected ErrRouteClosed, got %+v", err)
	}
	err = route.Enqueue(&testCommand{id: 2})
	if !errors.Is(err, ErrRouteClosed) {
		t.Fatalf("Enqueue on a closed route: expected ErrRouteClosed, got %+v", err)
	}

	// Closing again is a no-op.
	route.Close()
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	route := newRoute("test", 10)
	defer route.Close()

	dequeued := make(chan Command)
	go func() {
		command, err := route.Dequeue()
		if err != nil {
			return
		}
		dequeued <- command
	}()

	select {
	case <-dequeued:
		t.Fatal("Dequeue returned before anything was enqueued")
	case <-time.After(10 * time.Millisecond):
	}

	err := route.Enqueue(&testCommand{id: 7})
	if err != nil {
		t.Fatalf("Enqueue: %+v", err)
	}
	select {
	case command := <-dequeued:
		if command.(*testCommand).id != 7 {
			t.Fatalf("Dequeued command %d, expected 7", command.(*testCommand).id)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue never observed the enqueued command")
	}
}
