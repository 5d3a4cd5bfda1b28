package interfaces

import "context"

// Completer sends a prompt to a generative-language service and returns the
// raw natural-language response. The classifier never assumes a fixed
// schema from it.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
