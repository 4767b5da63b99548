package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/gtriggiano/access-authority-service/pkg/access"
	"github.com/gtriggiano/access-authority-service/pkg/metrics"
)

type stubResolver struct {
	name           string
	authorizations map[string][]string
	ok             bool
	err            error
}

func (s stubResolver) Name() string { return s.name }

func (s stubResolver) AuthorizationSet(ctx context.Context, principal string) (access.AuthorizationSet, bool, error) {
	if s.err != nil {
		return access.AuthorizationSet{}, s.ok, s.err
	}
	return access.NewAuthorizationSet(s.authorizations[principal]...), true, nil
}

func TestManagerCanAccessGrantsWhenAuthorizationsSatisfyExpression(t *testing.T) {
	mgr := NewManager(
		[]AuthorityResolver{
			stubResolver{name: "primary", authorizations: map[string][]string{"alice": {"READ", "WRITE"}}},
		},
		metrics.NewInstrumentation(prometheus.NewRegistry()),
		zaptest.NewLogger(t),
	)

	granted, err := mgr.CanAccess(context.Background(), []byte("READ&WRITE"), []string{"alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatal("expected access to be granted")
	}
}

func TestManagerCanAccessDeniesWhenAuthorizationsDoNotSatisfyExpression(t *testing.T) {
	mgr := NewManager(
		[]AuthorityResolver{
			stubResolver{name: "primary", authorizations: map[string][]string{"alice": {"READ"}}},
		},
		metrics.NewInstrumentation(prometheus.NewRegistry()),
		zaptest.NewLogger(t),
	)

	granted, err := mgr.CanAccess(context.Background(), []byte("READ&WRITE"), []string{"alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if granted {
		t.Fatal("expected access to be denied")
	}
}

func TestManagerCanAccessPropagatesStoreFailure(t *testing.T) {
	mgr := NewManager(
		[]AuthorityResolver{
			stubResolver{name: "primary", err: errors.New("connection refused")},
		},
		metrics.NewInstrumentation(prometheus.NewRegistry()),
		zaptest.NewLogger(t),
	)

	_, err := mgr.CanAccess(context.Background(), []byte("READ"), []string{"alice"})
	if err == nil {
		t.Fatal("expected an error from a failing authority store")
	}
}

// permissiveResolver models a store configured permissive-on-failure: a
// backend failure is reported by ok=false with a nil error, matching
// authority.Store.AuthorizationSet's contract.
type permissiveResolver struct {
	name string
}

func (p permissiveResolver) Name() string { return p.name }

func (p permissiveResolver) AuthorizationSet(ctx context.Context, principal string) (access.AuthorizationSet, bool, error) {
	return access.AuthorizationSet{}, false, nil
}

func TestManagerCanAccessExcludesPermissiveStoreFailures(t *testing.T) {
	mgr := NewManager(
		[]AuthorityResolver{
			permissiveResolver{name: "flaky"},
			stubResolver{name: "primary", authorizations: map[string][]string{"alice": {"READ"}}},
		},
		metrics.NewInstrumentation(prometheus.NewRegistry()),
		zaptest.NewLogger(t),
	)

	granted, err := mgr.CanAccess(context.Background(), []byte("READ"), []string{"alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatal("expected the permissive store's failure to be excluded rather than deny access")
	}
}

func TestManagerCanAccessWithNoStoresOrPrincipalsUsesEmptyEvaluator(t *testing.T) {
	mgr := NewManager(nil, metrics.NewInstrumentation(prometheus.NewRegistry()), zaptest.NewLogger(t))

	granted, err := mgr.CanAccess(context.Background(), []byte(""), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !granted {
		t.Fatal("expected an empty expression with no stores to be universally true")
	}
}

func TestManagerValidate(t *testing.T) {
	mgr := NewManager(nil, metrics.NewInstrumentation(prometheus.NewRegistry()), zaptest.NewLogger(t))

	if err := mgr.Validate([]byte("A&(B|C)")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mgr.Validate([]byte("A&")); err == nil {
		t.Fatal("expected an error for a malformed expression")
	}
}

func TestManagerParseReturnsCanonicalForm(t *testing.T) {
	mgr := NewManager(nil, metrics.NewInstrumentation(prometheus.NewRegistry()), zaptest.NewLogger(t))

	canonical, err := mgr.Parse([]byte("A&B&C"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(canonical) != "A&B&C" {
		t.Fatalf("expected canonical form 'A&B&C', got %q", canonical)
	}
}

func TestManagerFindAuthorizations(t *testing.T) {
	mgr := NewManager(nil, metrics.NewInstrumentation(prometheus.NewRegistry()), zaptest.NewLogger(t))

	found, err := mgr.FindAuthorizations([]byte("A&(B|C)"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("expected 3 authorizations, got %v", found)
	}
}

func TestManagerQuoteUnquoteRoundTrip(t *testing.T) {
	mgr := NewManager(nil, metrics.NewInstrumentation(prometheus.NewRegistry()), zaptest.NewLogger(t))

	quoted, err := mgr.Quote([]byte("needs quoting!"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unquoted, err := mgr.Unquote(quoted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(unquoted) != "needs quoting!" {
		t.Fatalf("expected round trip to restore original term, got %q", unquoted)
	}
}
