package metrics

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key holding the *newrelic.Application
// used by background services.
var NewRelicContextKey = newRelicContextKey{}

// NewContext returns a copy of ctx carrying the New Relic application.
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	return context.WithValue(ctx, NewRelicContextKey, app)
}

// ApplicationFromContext returns the New Relic application attached to ctx,
// or nil. A nil *newrelic.Application is safe to use.
func ApplicationFromContext(ctx context.Context) *newrelic.Application {
	nr, _ := ctx.Value(NewRelicContextKey).(*newrelic.Application)
	return nr
}

// StartTransaction starts a named background transaction and returns a
// context that traces method calls into it. Callers must End the transaction.
func StartTransaction(ctx context.Context, name string) (context.Context, *newrelic.Transaction) {
	txn := ApplicationFromContext(ctx).StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn
}

// RecordCount records a count metric
func RecordCount(ctx context.Context, metricName string, count uint64) {
	if nr := ApplicationFromContext(ctx); nr != nil {
		nr.RecordCustomMetric(metricName, float64(count))
	}
}

// RecordDuration records a duration metric
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if nr := ApplicationFromContext(ctx); nr != nil {
		nr.RecordCustomMetric(metricName, float64(duration/time.Millisecond))
	}
}
