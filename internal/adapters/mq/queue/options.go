package queue

// Option applies a configuration option to the JobQueue.
type Option func(*JobQueue)

// WithCapacity sets the maximum number of pending jobs.
func WithCapacity(capacity int) Option {
	return func(q *JobQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
