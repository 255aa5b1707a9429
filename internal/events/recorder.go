package events

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory. Tests use it to assert on
// what an operation emitted.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
}

type Recorded struct {
	Key   string
	Event interface{}
}

func (r *Recorder) Publish(_ context.Context, key string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Recorded{Key: key, Event: event})
	return nil
}

// Keys returns the routing keys in publish order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		keys = append(keys, e.Key)
	}
	return keys
}
