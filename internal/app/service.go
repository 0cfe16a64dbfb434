// Package service is the composition root: it owns the catalog, session
// and ledger components and implements the dependencies of the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/skanlab/internal/adapters/mq/queue"
	workerpool "github.com/okian/skanlab/internal/adapters/mq/worker"
	"github.com/okian/skanlab/internal/adapters/repository"
	"github.com/okian/skanlab/internal/catalog"
	"github.com/okian/skanlab/internal/domain/model"
	"github.com/okian/skanlab/internal/domain/protect"
	"github.com/okian/skanlab/internal/domain/scoring"
	"github.com/okian/skanlab/internal/domain/session"
	"github.com/okian/skanlab/internal/domain/types"
	"github.com/okian/skanlab/pkg/logger"
	"github.com/okian/skanlab/pkg/metrics"
)

const (
	defaultQueueSize     = 10_000
	defaultRegistrySize  = 100_000
	defaultSessionTTL    = 24 * time.Hour
	stopTimeout          = 5 * time.Second
	metricsSessionReject = "unknown_key"
)

// Service implements the API dependencies for the demo.
type Service struct {
	mu sync.RWMutex

	catalog  *catalog.Catalog
	registry session.Registry
	issuer   *session.Issuer
	queue    queue.Queue
	pool     *workerpool.Pool
	ledger   repository.Store
	script   string

	workerCount   int
	queueSize     int
	registrySize  int
	sessionSecret string
	sessionTTL    time.Duration
	ledgerEnabled bool
	now           func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. Components are built by Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		registrySize:  defaultRegistrySize,
		sessionTTL:    defaultSessionTTL,
		ledgerEnabled: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the catalog, prepares session handling and starts the ledger
// workers. Workers live until ctx is done or Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting skan service...")

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	secret := []byte(s.sessionSecret)
	if len(secret) == 0 {
		secret, err = session.RandomSecret()
		if err != nil {
			return err
		}
		s.logger.Warn(ctx, "no session secret configured; sessions will not survive a restart")
	}
	issuer, err := session.NewIssuer(secret, session.WithTTL(s.sessionTTL))
	if err != nil {
		return fmt.Errorf("create session issuer: %w", err)
	}

	s.catalog = cat
	s.issuer = issuer
	s.registry = session.NewInMemoryRegistry(session.WithMaxSize(s.registrySize))
	s.script = protect.Obfuscate(cat.ProtectedScript())

	if s.ledgerEnabled {
		s.ledger = repository.NewTallyStore(repository.WithKnownEvent(func(name string) bool {
			_, ok := scoring.EventValue(name)
			return ok
		}))
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.ledger)
		s.pool.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "skan service started",
		logger.Bool("ledger", s.ledgerEnabled),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("registrySize", s.registrySize),
	)
	return nil
}

// Stop drains the ledger queue and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping skan service...")
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "ledger did not drain", logger.Error(err))
		}
	}
	if s.ledger != nil {
		_ = s.ledger.Close()
	}

	s.started = false
	s.logger.Info(ctx, "skan service stopped")
}

// Simulate scores events and revenue and hands the result to the ledger.
// Scoring never fails; a full or stopped ledger only loses the tally.
func (s *Service) Simulate(ctx context.Context, events []string, revenue float64) types.Outcome {
	b := scoring.Explain(events, revenue)
	out := types.Outcome{Breakdown: b, At: s.now()}
	metrics.RecordSimulation(b.ConversionValue, b.Tier, b.UnknownEvents, b.Clamped)

	s.mu.RLock()
	q := s.queue
	started := s.started
	s.mu.RUnlock()
	if !started || q == nil {
		return out
	}

	id := logger.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	sim := model.Simulation{
		ID:              id,
		Events:          append([]string(nil), events...),
		ConversionValue: b.ConversionValue,
		Tier:            b.Tier,
		At:              out.At,
	}
	if revenue > 0 {
		// Out of range revenue still scores in the top tier but is tallied
		// at the largest finite amount.
		sim.Revenue = math.Min(revenue, math.MaxFloat64)
	}

	// The request context ends with the response; the queue must not.
	out.Recorded = q.Enqueue(context.WithoutCancel(ctx), sim)
	if !out.Recorded {
		s.logger.Warn(ctx, "simulation not recorded",
			logger.String("simulation_id", id),
			logger.Int("queue_length", q.Len()),
		)
	}
	return out
}

// IssueSession mints a session token and registers its key.
func (s *Service) IssueSession(ctx context.Context) (string, session.Claims, error) {
	issuer, registry, err := s.sessions()
	if err != nil {
		return "", session.Claims{}, err
	}

	token, claims, err := issuer.Issue(ctx)
	if err != nil {
		return "", session.Claims{}, err
	}
	registry.Register(ctx, claims.Key)

	metrics.RecordSessionIssued()
	metrics.UpdateSessionRegistrySize(registry.Size())
	s.logger.Debug(ctx, "session issued", logger.String("expires_at", claims.ExpiresAt.Format(time.RFC3339)))
	return token, claims, nil
}

// Authorize returns the claims of token if it verifies and its key is live.
func (s *Service) Authorize(ctx context.Context, token string) (session.Claims, error) {
	issuer, registry, err := s.sessions()
	if err != nil {
		return session.Claims{}, err
	}

	claims, err := issuer.Verify(ctx, token)
	if err != nil {
		metrics.RecordSessionRejected(rejectReason(err))
		return session.Claims{}, err
	}
	if !registry.Contains(ctx, claims.Key) {
		metrics.RecordSessionRejected(metricsSessionReject)
		return session.Claims{}, ErrUnknownSession
	}
	return claims, nil
}

// RevokeSession forgets key.
func (s *Service) RevokeSession(ctx context.Context, key string) {
	_, registry, err := s.sessions()
	if err != nil {
		return
	}
	registry.Revoke(ctx, key)
	metrics.UpdateSessionRegistrySize(registry.Size())
}

// SessionTTL returns the configured token lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *Service) sessions() (*session.Issuer, session.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.issuer == nil {
		return nil, nil, ErrNotStarted
	}
	return s.issuer, s.registry, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, session.ErrMissingToken):
		return "missing"
	case errors.Is(err, session.ErrExpired):
		return "expired"
	default:
		return "invalid"
	}
}

// ProtectedScript returns the obfuscated browser script.
func (s *Service) ProtectedScript(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.catalog == nil {
		return "", ErrNotStarted
	}
	return s.script, nil
}

// Catalog returns the loaded content, or nil before Start.
func (s *Service) Catalog() *catalog.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Sample returns a Flutter code sample.
func (s *Service) Sample(_ context.Context, typ string) (catalog.CodeSample, bool) {
	c := s.Catalog()
	if c == nil {
		return catalog.CodeSample{}, false
	}
	return c.Sample(typ)
}

// CampaignLimits returns the limits for network and its canonical name.
func (s *Service) CampaignLimits(_ context.Context, network string) (string, catalog.Limits, bool) {
	c := s.Catalog()
	if c == nil {
		return "", catalog.Limits{}, false
	}
	return c.CampaignLimits(network)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{Started: s.started}
	if !s.started {
		return st
	}
	if s.registry != nil {
		st.LiveSessions = s.registry.Size()
	}
	if s.pool != nil {
		st.Workers = s.pool.Size()
	}
	if s.queue != nil {
		st.QueueLength = s.queue.Len()
		st.QueueCapacity = s.queue.Cap()
		metrics.UpdateQueueSize(st.QueueLength)
	}
	if s.ledger != nil {
		snap := s.ledger.Snapshot(ctx)
		st.Ledger = &snap
	}
	return st
}
