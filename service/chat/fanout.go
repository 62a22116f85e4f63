package chat

import "ChatCore/tools/safe"

type fanoutJob struct {
	conns   []*Client
	payload []byte
}

// Fanout spreads one payload across many client queues on a fixed worker
// pool. Enqueue to a client is non-blocking; a slow client misses the frame
// instead of stalling the room.
type Fanout struct {
	jobs chan fanoutJob
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{jobs: make(chan fanoutJob, queue)}
	for i := 0; i < workers; i++ {
		safe.Go(func() {
			for job := range f.jobs {
				for _, c := range job.conns {
					c.Enqueue(job.payload)
				}
			}
		})
	}
	return f
}

func (f *Fanout) Broadcast(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- fanoutJob{conns: conns, payload: payload}
}

func (f *Fanout) Close() { close(f.jobs) }
