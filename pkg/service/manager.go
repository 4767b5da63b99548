package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gtriggiano/access-authority-service/pkg/access"
	"github.com/gtriggiano/access-authority-service/pkg/metrics"
	"github.com/gtriggiano/access-authority-service/pkg/runtime"
)

// AuthorityResolver resolves a principal's authorization set from one
// backing authority store. *authority.Store satisfies this interface.
type AuthorityResolver interface {
	Name() string
	AuthorizationSet(ctx context.Context, principal string) (access.AuthorizationSet, bool, error)
}

// Manager evaluates access expressions against the authorization sets
// resolved from the configured authority stores.
type Manager struct {
	stores          []AuthorityResolver
	instrumentation *metrics.Instrumentation
	logger          *zap.Logger
}

// NewManager instantiates a Manager backed by the given authority stores.
func NewManager(stores []AuthorityResolver, instrumentation *metrics.Instrumentation, logger *zap.Logger) *Manager {
	return &Manager{
		stores:          stores,
		instrumentation: instrumentation,
		logger:          logger,
	}
}

// CanAccess reports whether expression holds against every authorization
// set resolved for principals across the configured authority stores. Each
// (store, principal) set is evaluated on its own and the results are
// conjoined; the sets are not merged into one.
func (m *Manager) CanAccess(ctx context.Context, expression []byte, principals []string) (bool, error) {
	evalCtx := runtime.NewEvaluationContext(strings.Join(principals, ","), expression)
	start := evalCtx.ReceivedAt
	m.instrumentation.InFlight(1)
	defer m.instrumentation.InFlight(-1)

	sets, err := m.resolveAuthorizationSets(ctx, evalCtx, principals)
	if err != nil {
		m.logger.Error("authority resolution failed", append(evalCtx.LogFields(), zap.Error(err))...)
		return false, err
	}

	granted, err := access.NewEvaluator(sets...).CanAccess(expression)
	if err != nil {
		return false, err
	}

	evalCtx.AddLogFields(zap.Bool("granted", granted), zap.Duration("duration", time.Since(start)))
	m.logger.Debug("access decision evaluated", evalCtx.LogFields()...)

	m.instrumentation.ObserveAccessDecision(granted, time.Since(start))
	return granted, nil
}

// resolveAuthorizationSets fans out one goroutine per (store, principal)
// pair, collecting every gating authorization set and accumulating
// per-store outcomes onto evalCtx for the request's final log line.
func (m *Manager) resolveAuthorizationSets(ctx context.Context, evalCtx *runtime.EvaluationContext, principals []string) ([]access.AuthorizationSet, error) {
	if len(m.stores) == 0 || len(principals) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	sets := make([]access.AuthorizationSet, 0, len(m.stores)*len(principals))

	g, gctx := errgroup.WithContext(ctx)
	for _, store := range m.stores {
		for _, principal := range principals {
			store := store
			principal := principal
			g.Go(func() error {
				set, ok, err := store.AuthorizationSet(gctx, principal)
				if err != nil {
					return fmt.Errorf("authority store %q: %w", store.Name(), err)
				}
				if !ok {
					evalCtx.AddLogFields(zap.String("store_excluded", store.Name()))
					return nil
				}
				mu.Lock()
				sets = append(sets, set)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sets, nil
}

// Validate checks expression for well-formedness without evaluating it.
func (m *Manager) Validate(expression []byte) error {
	return access.Validate(expression)
}

// Parse returns the canonical re-serialization of expression's parse tree.
func (m *Manager) Parse(expression []byte) ([]byte, error) {
	node, err := access.Parse(expression)
	if err != nil {
		return nil, err
	}
	return node.Expression()
}

// FindAuthorizations returns every authorization token referenced by
// expression, in parse-tree order.
func (m *Manager) FindAuthorizations(expression []byte) ([]string, error) {
	var found []string
	err := access.FindAuthorizations(expression, func(authorization []byte) {
		found = append(found, string(authorization))
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Quote quotes term if it requires quoting, returning it unchanged otherwise.
func (m *Manager) Quote(term []byte) ([]byte, error) {
	return access.Quote(term)
}

// Unquote strips quoting and escaping from term.
func (m *Manager) Unquote(term []byte) ([]byte, error) {
	return access.Unquote(term)
}
