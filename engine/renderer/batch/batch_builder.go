package batch

// BuilderOption configures an InstanceBatch during construction.
type BuilderOption func(*instanceBatch)

// WithCapacity sets the maximum number of pending instances before an
// implicit flush.
//
// Parameters:
//   - capacity: the instance capacity, must be positive
//
// Returns:
//   - BuilderOption: the option to apply
func WithCapacity(capacity int) BuilderOption {
	return func(b *instanceBatch) {
		b.capacity = capacity
	}
}
