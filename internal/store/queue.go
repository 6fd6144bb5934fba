package store

// writeQueue serializes write operations behind a single goroutine so the
// embedded store's single SQLite writer is never contended from inside the
// process itself (spec.md §4.1 "Writes are serialized through a FIFO
// queue... failure of one does not block the next").
type writeQueue struct {
	jobs chan writeJob
	done chan struct{}
}

type writeJob struct {
	fn   func() error
	resp chan error
}

func newWriteQueue() *writeQueue {
	q := &writeQueue{
		jobs: make(chan writeJob, 64),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *writeQueue) run() {
	for job := range q.jobs {
		job.resp <- job.fn()
	}
	close(q.done)
}

// enqueue blocks the caller until fn has run, but never blocks the queue
// itself: a failing fn doesn't prevent the next enqueued job from running.
func (q *writeQueue) enqueue(fn func() error) error {
	resp := make(chan error, 1)
	q.jobs <- writeJob{fn: fn, resp: resp}
	return <-resp
}

func (q *writeQueue) close() {
	close(q.jobs)
	<-q.done
}
