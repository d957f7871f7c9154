// Package replication reenvía llamadas a mutadores de un objeto compartido a todas las
// réplicas del cluster.
//
// El flujo es:
//
//	forwarding type (p.ej. status.Replicated)
//	  → aplica el setter local
//	  → Dispatcher.Invoke(target, method, args...)
//	  → cola acotada → Transport.Broadcast
//	  → (red) → Dispatcher.OnRemoteCall en cada réplica
//	  → Registry: (method, aridad) → handler tipado
//
// La entrega es at-least-once, sin orden entre emisores, sin ack ni reintentos. Solo
// deben replicarse setters idempotentes.
package replication
