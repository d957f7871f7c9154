package replication

import "context"

// Transport difunde payloads a todas las réplicas (incluida, posiblemente, la propia)
// y entrega los payloads recibidos a un handler. Entrega at-least-once, sin orden
// entre emisores.
type Transport interface {
	// Broadcast envía payload a todas las réplicas suscriptas.
	Broadcast(ctx context.Context, payload []byte) error
	// Subscribe registra el handler de payloads entrantes. Se llama una vez.
	Subscribe(ctx context.Context, handle func(payload []byte)) error
	// Close libera recursos; después no se entregan más payloads.
	Close() error
}
