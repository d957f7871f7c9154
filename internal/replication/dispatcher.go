package replication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/metrics"
	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

const (
	defaultQueueSize        = 256
	defaultBroadcastTimeout = 5 * time.Second
)

// Options configura un Dispatcher.
type Options struct {
	// NodeID identifica esta réplica; las llamadas propias recibidas se ignoran.
	NodeID string
	// QueueSize acota los broadcasts pendientes. Si la cola está llena se descarta.
	QueueSize int
	// BroadcastTimeout limita cada Transport.Broadcast.
	BroadcastTimeout time.Duration
	// ShouldReplicate decide qué métodos se difunden. Default: IsSetter.
	ShouldReplicate func(method string) bool
	Logger          *zap.Logger
}

// Dispatcher difunde llamadas locales y aplica las remotas a través del Registry.
type Dispatcher struct {
	nodeID  string
	tr      Transport
	reg     *Registry
	should  func(string) bool
	timeout time.Duration
	log     *zap.Logger

	queue     chan []byte
	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher crea un dispatcher sobre tr. Llamar Start para comenzar a enviar y recibir.
func NewDispatcher(tr Transport, reg *Registry, opts Options) *Dispatcher {
	if opts.NodeID == "" {
		opts.NodeID = uuid.NewString()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.BroadcastTimeout <= 0 {
		opts.BroadcastTimeout = defaultBroadcastTimeout
	}
	if opts.ShouldReplicate == nil {
		opts.ShouldReplicate = IsSetter
	}
	if reg == nil {
		reg = NewRegistry()
	}
	return &Dispatcher{
		nodeID:  opts.NodeID,
		tr:      tr,
		reg:     reg,
		should:  opts.ShouldReplicate,
		timeout: opts.BroadcastTimeout,
		log:     logger.OrDefault(opts.Logger, "replication").With(logger.NodeID(opts.NodeID)),
		queue:   make(chan []byte, opts.QueueSize),
		closed:  make(chan struct{}),
	}
}

// NodeID devuelve la identidad de esta réplica.
func (d *Dispatcher) NodeID() string { return d.nodeID }

// Registry devuelve el registry de handlers.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Start se suscribe al transporte y arranca el loop de envío. Es idempotente.
func (d *Dispatcher) Start(ctx context.Context) error {
	var err error
	d.startOnce.Do(func() {
		err = d.tr.Subscribe(ctx, d.handlePayload)
		if err != nil {
			err = &TransportError{Op: "subscribe", Err: err}
			return
		}
		d.wg.Add(1)
		go d.sendLoop()
	})
	return err
}

// Invoke difunde (target, method, args) si el método es replicable y todos los
// argumentos son serializables. Nunca bloquea: si la cola está llena, descarta.
// Devuelve ErrReplicationSkipped cuando no difunde; el llamador solo debe loguearlo.
func (d *Dispatcher) Invoke(target, method string, args ...any) error {
	if !d.should(method) {
		return nil
	}
	select {
	case <-d.closed:
		return ErrClosed
	default:
	}

	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			metrics.ReplicationBroadcasts.WithLabelValues("skipped").Inc()
			d.log.Warn("argument not serializable, call applied locally only",
				logger.Target(target), logger.Method(method), logger.Int("arg", i), logger.Err(err))
			return fmt.Errorf("%w: %s argument %d: %v", ErrReplicationSkipped, method, i, err)
		}
		raw[i] = b
	}

	call := Call{
		ID:     uuid.NewString(),
		Origin: d.nodeID,
		Target: target,
		Method: method,
		Args:   raw,
		TsUnix: time.Now().Unix(),
	}
	payload, err := json.Marshal(call)
	if err != nil {
		metrics.ReplicationBroadcasts.WithLabelValues("skipped").Inc()
		return fmt.Errorf("%w: %v", ErrReplicationSkipped, err)
	}

	select {
	case d.queue <- payload:
		return nil
	default:
		metrics.ReplicationBroadcasts.WithLabelValues("dropped").Inc()
		d.log.Warn("replication queue full, call dropped",
			logger.Target(target), logger.Method(method), logger.CallID(call.ID))
		return fmt.Errorf("%w: queue full", ErrReplicationSkipped)
	}
}

func (d *Dispatcher) sendLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.closed:
			return
		case p := <-d.queue:
			d.broadcast(p)
		}
	}
}

func (d *Dispatcher) broadcast(p []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.tr.Broadcast(ctx, p); err != nil {
		metrics.ReplicationBroadcasts.WithLabelValues("error").Inc()
		d.log.Warn("replication broadcast failed", logger.Err(err))
		return
	}
	metrics.ReplicationBroadcasts.WithLabelValues("sent").Inc()
}

func (d *Dispatcher) handlePayload(p []byte) {
	var c Call
	if err := json.Unmarshal(p, &c); err != nil {
		metrics.ReplicationRemoteCalls.WithLabelValues("ignored").Inc()
		d.log.Debug("discarding malformed replication payload", logger.Err(err))
		return
	}
	d.OnRemoteCall(context.Background(), c)
}

// OnRemoteCall aplica una llamada recibida. Ignora llamadas propias y de otros targets;
// un método desconocido es un no-op (réplicas en versiones distintas durante un
// rolling restart). Fallas y panics del handler se loguean y no se propagan.
func (d *Dispatcher) OnRemoteCall(ctx context.Context, c Call) {
	log := d.log.With(logger.Target(c.Target), logger.Method(c.Method),
		logger.Origin(c.Origin), logger.CallID(c.ID))

	if c.Origin == d.nodeID {
		metrics.ReplicationRemoteCalls.WithLabelValues("ignored").Inc()
		return
	}
	if !d.reg.HasTarget(c.Target) {
		metrics.ReplicationRemoteCalls.WithLabelValues("ignored").Inc()
		log.Debug("call for unknown target ignored")
		return
	}
	h, ok := d.reg.Lookup(c.Target, c.Method, c.Arity())
	if !ok {
		metrics.ReplicationRemoteCalls.WithLabelValues("unknown").Inc()
		log.Debug("no handler for replicated call", logger.Int("arity", c.Arity()))
		return
	}

	if err := d.apply(logger.ToContext(ctx, log), h, c.Args); err != nil {
		var argErr *ArgumentError
		if errors.As(err, &argErr) {
			metrics.ReplicationRemoteCalls.WithLabelValues("unknown").Inc()
			log.Debug("replicated call does not match handler signature", logger.Err(err))
			return
		}
		metrics.ReplicationRemoteCalls.WithLabelValues("failed").Inc()
		log.Warn("replicated call failed", logger.Err(err))
		return
	}
	metrics.ReplicationRemoteCalls.WithLabelValues("applied").Inc()
}

func (d *Dispatcher) apply(ctx context.Context, h Handler, args []json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	return h(ctx, args)
}

// Close detiene el loop de envío y cierra el transporte. Los pendientes en cola se
// descartan.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.closed)
		d.wg.Wait()
		err = d.tr.Close()
	})
	return err
}
