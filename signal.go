// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scope

import "context"

// SignalOnReceive will signal the id through the Registry when a value
// is received from the channel or if the channel is closed.
// SignalOnReceive can be used, for example, with [os/signal.Notify] to
// cancel a scope on SIGINT. The helper goroutine exits when the context
// is done, so callers should pass a context that outlives the scope.
func SignalOnReceive[T any](ctx context.Context, r *Registry, id string, ch <-chan T) {
	go func() {
		select {
		case <-ch:
			r.Signal(id)
		case <-ctx.Done():
		}
	}()
}
