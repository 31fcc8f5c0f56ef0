package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
// Used as a liveness check against leaked request goroutines.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// ConditionCheck fails with message while cond returns false.
func ConditionCheck(message string, cond func() bool) CheckFunc {
	return func(_ context.Context) error {
		if !cond() {
			return errors.New(message)
		}
		return nil
	}
}
