// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package retry

import "fmt"

// MaxAttemptsError is returned once a policy has used up its attempts.
// [errors.Is] sees through it to the error from the final attempt.
type MaxAttemptsError struct {
	Attempts int   // Number of attempts made.
	Last     error // Error from the final attempt.
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *MaxAttemptsError) Unwrap() error { return e.Last }
