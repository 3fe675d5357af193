package output

import "context"

// Reachability interface - Output port
// Network "online" signal consulted synchronously before each send.
type Reachability interface {
	Online(ctx context.Context) bool
}
