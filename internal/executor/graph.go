package executor

// GraphExecutor schedules jobs through a graph context's own serial perform
// mechanism. Consistency of the data a job observes comes entirely from the
// context; jobs must not hold on to anything they read past their own run.
type GraphExecutor struct {
	context GraphContext
}

// NewGraphExecutor wraps c.
func NewGraphExecutor(c GraphContext) *GraphExecutor {
	if c == nil {
		panic("executor: nil graph context")
	}
	return &GraphExecutor{context: c}
}

// Enqueue schedules job inside the wrapped context.
func (e *GraphExecutor) Enqueue(job Job) {
	mustJob(job)
	e.context.Perform(job)
}
