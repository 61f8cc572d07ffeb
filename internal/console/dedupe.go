package console

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/sync/singleflight"
)

// Flights collapses identical submissions that are in flight at the same
// time: a double-clicked button, or a CLI command re-run while the first is
// still waiting. Later callers receive the first caller's result.
type Flights struct {
	group singleflight.Group
}

func NewFlights() *Flights {
	return &Flights{}
}

// Do runs fn once per key among concurrent callers. A caller whose context
// ends stops waiting; the shared call keeps running for the others.
func (f *Flights) Do(ctx context.Context, key string, fn func() (any, error)) (any, error) {
	if f == nil {
		return fn()
	}
	ch := f.group.DoChan(key, fn)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func collapse[T any](ctx context.Context, f *Flights, key string, fn func() (T, error)) (T, error) {
	v, err := f.Do(ctx, key, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// submissionKey identifies a submission by session namespace, action and
// payload. The payload is hashed so secrets never sit in the key.
func submissionKey(namespace, action string, payload any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte(action)
	}
	sum := sha256.Sum256(raw)
	return namespace + "|" + action + "|" + hex.EncodeToString(sum[:])
}
