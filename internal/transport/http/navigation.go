package httptransport

import (
	"context"
	"sync"
)

// navRecorder is the API client's navigator for one request. The handler
// checks it after every console call and turns a recorded forced login into
// a redirect, whatever the handler was about to render.
type navRecorder struct {
	mu     sync.Mutex
	fired  bool
	reason string
}

func (n *navRecorder) ToLogin(_ context.Context, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.fired {
		n.fired = true
		n.reason = reason
	}
}

// forced returns the first recorded reason.
func (n *navRecorder) forced() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reason, n.fired
}
