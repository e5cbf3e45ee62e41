package common

import "errors"

// ErrContractViolation marks misuse of the engine API: reading and writing
// the same target in one pass, drawing with a stale read texture, or writing
// a uniform block with the wrong size. Wrapped errors carry the detail.
var ErrContractViolation = errors.New("contract violation")

// ErrResourceExhausted marks a failed GPU or host allocation. Previously
// valid state is preserved where possible.
var ErrResourceExhausted = errors.New("resource exhausted")
