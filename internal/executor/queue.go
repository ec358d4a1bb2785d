package executor

// QueueExecutor submits jobs to an externally owned serial queue. The queue
// is the only serialization point; the executor does not own it and the
// queue must outlive it.
type QueueExecutor struct {
	queue SerialQueue
}

// NewQueueExecutor wraps q.
func NewQueueExecutor(q SerialQueue) *QueueExecutor {
	if q == nil {
		panic("executor: nil queue")
	}
	return &QueueExecutor{queue: q}
}

// Enqueue posts job onto the wrapped queue.
func (e *QueueExecutor) Enqueue(job Job) {
	mustJob(job)
	e.queue.Async(job)
}
