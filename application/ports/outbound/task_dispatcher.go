package outbound

// TaskDispatcher schedules a unit of work on the shared worker pool.
// Satisfied by *ants.Pool.
type TaskDispatcher interface {
	Submit(task func()) error
}
