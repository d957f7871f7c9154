package replication

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/bundlekeeper/internal/observability/logger"
)

const (
	// HTTPPath es la ruta donde cada réplica recibe llamadas replicadas.
	HTTPPath = "/internal/replication"

	tokenAudience   = "bundlekeeper-replication"
	tokenTTL        = time.Minute
	maxPayloadBytes = 1 << 20
	maxParallelPost = 8
)

// HTTPConfig configura el transporte HTTP entre pares estáticos.
type HTTPConfig struct {
	// NodeID firma los tokens como issuer.
	NodeID string
	// Peers son las URLs base de las otras réplicas (sin la ruta).
	Peers []string
	// Secret es la clave HS256 compartida por el cluster.
	Secret  []byte
	Timeout time.Duration
}

// HTTPTransport hace fan-out de cada payload con un POST firmado a cada par, y expone
// un http.Handler que recibe los payloads de los demás.
type HTTPTransport struct {
	cfg    HTTPConfig
	client *http.Client
	log    *zap.Logger

	mu     sync.RWMutex
	handle func([]byte)
	closed bool
}

// NewHTTP crea el transporte. client puede ser nil.
func NewHTTP(cfg HTTPConfig, client *http.Client, log *zap.Logger) (*HTTPTransport, error) {
	if len(cfg.Secret) < 16 {
		return nil, errors.New("replication: http transport secret must have at least 16 bytes")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	peers := make([]string, 0, len(cfg.Peers))
	for _, p := range cfg.Peers {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			peers = append(peers, p)
		}
	}
	cfg.Peers = peers
	return &HTTPTransport{cfg: cfg, client: client, log: logger.OrDefault(log, "replication.http")}, nil
}

func (t *HTTPTransport) token() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.cfg.NodeID,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.Secret)
}

// Broadcast envía payload a todos los pares en paralelo. Devuelve el primer error;
// el resto se loguea.
func (t *HTTPTransport) Broadcast(ctx context.Context, payload []byte) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	tok, err := t.token()
	if err != nil {
		return &TransportError{Op: "sign", Err: err}
	}

	var g errgroup.Group
	g.SetLimit(maxParallelPost)
	for _, peer := range t.cfg.Peers {
		peer := peer
		g.Go(func() error {
			if err := t.post(ctx, peer, tok, payload); err != nil {
				t.log.Debug("peer delivery failed", logger.String("peer", peer), logger.Err(err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (t *HTTPTransport) post(ctx context.Context, peer, tok string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer+HTTPPath, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "post", Peer: peer, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Op: "post", Peer: peer, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return &TransportError{Op: "post", Peer: peer, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

func (t *HTTPTransport) Subscribe(_ context.Context, handle func([]byte)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.handle = handle
	return nil
}

func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.handle = nil
	t.mu.Unlock()
	return nil
}

// ServeHTTP recibe un payload de otra réplica. Exige un token HS256 vigente.
func (t *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := t.verify(r.Header.Get("Authorization")); err != nil {
		t.log.Debug("rejected replication request", logger.Err(err))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	t.mu.RLock()
	handle := t.handle
	t.mu.RUnlock()
	if handle == nil {
		http.Error(w, "not subscribed", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}
	handle(body)
	w.WriteHeader(http.StatusAccepted)
}

func (t *HTTPTransport) verify(header string) error {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return errors.New("missing bearer token")
	}
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return t.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	return err
}
