package replication

import (
	"context"
	"sync"
)

// Bus es un transporte en memoria compartido por varios Dispatchers del mismo proceso
// (tests, modo single-node). Cada endpoint recibe todos los payloads, incluidos los
// propios.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[*MemoryTransport]struct{}
	buffer    int
}

// NewBus crea un bus; buffer acota los payloads pendientes por endpoint.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultQueueSize
	}
	return &Bus{endpoints: map[*MemoryTransport]struct{}{}, buffer: buffer}
}

// Endpoint crea un transporte conectado al bus.
func (b *Bus) Endpoint() *MemoryTransport {
	return &MemoryTransport{bus: b, inbox: make(chan []byte, b.buffer), done: make(chan struct{})}
}

func (b *Bus) publish(p []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ep := range b.endpoints {
		ep.deliver(p)
	}
}

// MemoryTransport es un endpoint del Bus.
type MemoryTransport struct {
	bus       *Bus
	inbox     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (t *MemoryTransport) Broadcast(ctx context.Context, payload []byte) error {
	select {
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return &TransportError{Op: "broadcast", Err: ctx.Err()}
	default:
	}
	cp := append([]byte(nil), payload...)
	t.bus.publish(cp)
	return nil
}

func (t *MemoryTransport) Subscribe(_ context.Context, handle func([]byte)) error {
	t.bus.mu.Lock()
	t.bus.endpoints[t] = struct{}{}
	t.bus.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-t.done:
				return
			case p := <-t.inbox:
				handle(p)
			}
		}
	}()
	return nil
}

// deliver no bloquea: un suscriptor lento pierde mensajes.
func (t *MemoryTransport) deliver(p []byte) {
	select {
	case t.inbox <- p:
	default:
	}
}

func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		t.bus.mu.Lock()
		delete(t.bus.endpoints, t)
		t.bus.mu.Unlock()
		close(t.done)
		t.wg.Wait()
	})
	return nil
}
