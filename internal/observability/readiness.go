package observability

import (
	"context"
	"errors"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// AllReady combines checkers into one that is ready only when every
// checker is. Nil checkers are skipped.
func AllReady(checkers ...sharedobs.ReadinessChecker) sharedobs.ReadinessChecker {
	return allReady(checkers)
}

type allReady []sharedobs.ReadinessChecker

func (a allReady) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range a {
		if c == nil {
			continue
		}
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
