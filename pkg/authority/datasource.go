package authority

import "context"

// DataSource abstracts the external store holding the authorizations a
// principal has been granted.
type DataSource interface {
	// Authorizations returns the unescaped authorization strings held by
	// principal. An empty, non-error result means the principal holds no
	// authorizations known to this store.
	Authorizations(ctx context.Context, principal string) ([]string, error)

	// Close releases resources held by the data source.
	Close() error

	// HealthCheck verifies connectivity to the data source.
	HealthCheck(ctx context.Context) error
}
