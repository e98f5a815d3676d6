package metrics

import (
	"context"
)

// RecordEvent records a new event with a name and set of key-value pairs
func RecordEvent(ctx context.Context, eventName string, kvPairs map[string]interface{}) {
	if nr := ApplicationFromContext(ctx); nr != nil {
		nr.RecordCustomEvent(eventName, kvPairs)
	}
}
