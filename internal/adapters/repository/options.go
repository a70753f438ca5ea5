package repository

// Option applies a configuration option to the Rankings index.
type Option func(*Rankings)

// WithPrioritySource sets the generator of treap priorities. Tests use it for
// reproducible tree shapes.
func WithPrioritySource(next func() uint64) Option {
	return func(r *Rankings) {
		if next != nil {
			r.prio = next
		}
	}
}
