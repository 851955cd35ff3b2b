package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// chanEmitter forwards emitted events to a channel.
type chanEmitter struct {
	events  chan *Event
	emitErr error
}

func newChanEmitter(n int) *chanEmitter {
	return &chanEmitter{events: make(chan *Event, n)}
}

func (c *chanEmitter) Emit(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.events <- event
	return c.emitErr
}

func (c *chanEmitter) wait(t *testing.T) *Event {
	t.Helper()
	select {
	case e := <-c.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emit")
		return nil
	}
}

func TestEmitAsync_NilEmitterOrEvent(t *testing.T) {
	EmitAsync(nil, context.Background(), &Event{Type: EventLogout})

	em := newChanEmitter(1)
	EmitAsync(em, context.Background(), nil)
	select {
	case e := <-em.events:
		t.Errorf("unexpected emit %+v", e)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	em := newChanEmitter(1)
	EmitAsync(em, context.Background(), &Event{Type: EventSessionCreated, UserID: "user-1", SessionID: "s1"})
	got := em.wait(t)
	if got.Type != EventSessionCreated || got.UserID != "user-1" || got.SessionID != "s1" {
		t.Errorf("event = %+v", got)
	}
}

func TestEmitAsync_IgnoresCallerCancellation(t *testing.T) {
	em := newChanEmitter(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	EmitAsync(em, ctx, &Event{Type: EventLogout})
	em.wait(t)
}

func TestEmitAsync_ErrorDoesNotPanic(t *testing.T) {
	em := newChanEmitter(1)
	em.emitErr = errors.New("collector down")
	EmitAsync(em, context.Background(), &Event{Type: EventLogout})
	em.wait(t)
}

func TestEmitAsync_Concurrent(t *testing.T) {
	em := newChanEmitter(10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(em, context.Background(), &Event{Type: EventSessionExpired})
		}()
	}
	wg.Wait()
	for i := 0; i < 10; i++ {
		em.wait(t)
	}
}
