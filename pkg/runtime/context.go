// Package runtime provides request-scoped context and utilities for the
// authority evaluation flow: the principal's claimed identity, the
// expression under evaluation, and structured logging fields accumulated
// while the authority stores are consulted.
package runtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EvaluationContext captures metadata used throughout a single CanAccess
// call. It provides thread-safe
// access to logging fields that can be accumulated by authority stores
// while they are consulted concurrently.
type EvaluationContext struct {
	// Principal identifies who the access expression is being evaluated for
	// (e.g. a service account or user ID supplied by the caller).
	Principal string
	// Expression is the raw access expression bytes being evaluated.
	Expression []byte
	// ReceivedAt records when the request was first processed.
	ReceivedAt time.Time

	mu        sync.RWMutex
	logFields []zap.Field
}

// NewEvaluationContext constructs an EvaluationContext for the given principal
// and expression.
func NewEvaluationContext(principal string, expression []byte) *EvaluationContext {
	return &EvaluationContext{
		Principal:  principal,
		Expression: expression,
		ReceivedAt: time.Now(),
		logFields: []zap.Field{
			zap.String("principal", principal),
		},
	}
}

// AddLogFields attaches structured fields that should accompany request logging.
func (c *EvaluationContext) AddLogFields(fields ...zap.Field) {
	if c == nil {
		return
	}

	sanitized := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if f.Key == "principal" {
			continue
		}
		sanitized = append(sanitized, f)
	}

	c.mu.Lock()
	c.logFields = append(c.logFields, sanitized...)
	c.mu.Unlock()
}

// LogFields returns a snapshot of the accumulated log fields.
func (c *EvaluationContext) LogFields() []zap.Field {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]zap.Field, len(c.logFields))
	copy(out, c.logFields)
	return out
}
