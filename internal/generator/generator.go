// Package generator talks to the text-generation service that suggests pet names.
package generator

import "context"

// Generator completes a prompt and returns the raw model output.
//
// Implementations return apperror.ErrRateLimited when the local request budget is
// exhausted and apperror.ErrUpstream for every failure of the remote service.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
