// Package tasks carries the fire-and-forget job dispatcher used by the
// webhook engines for follow-up work that must not hold the request open.
package tasks

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler processes one enqueued job payload.
type Handler func(payload map[string]any)

// Dispatcher fans enqueued jobs out to a fixed pool of workers. Enqueue never
// blocks the caller: when the queue is full the job is dropped with a warning,
// since every job here is advisory follow-up work.
type Dispatcher struct {
	log      zerolog.Logger
	queue    chan job
	handlers map[string]Handler
	wg       sync.WaitGroup
	once     sync.Once
}

type job struct {
	name    string
	payload map[string]any
}

func NewDispatcher(log zerolog.Logger, queueSize, workers int) *Dispatcher {
	d := &Dispatcher{
		log:      log,
		queue:    make(chan job, queueSize),
		handlers: make(map[string]Handler),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Register binds a handler to a job name. Must be called before the first
// Enqueue for that name; jobs without a handler are dropped with a warning.
func (d *Dispatcher) Register(jobName string, h Handler) {
	d.handlers[jobName] = h
}

func (d *Dispatcher) Enqueue(jobName string, payload map[string]any) {
	select {
	case d.queue <- job{name: jobName, payload: payload}:
	default:
		d.log.Warn().Str("job", jobName).Msg("dispatch queue full, job dropped")
	}
}

// Close drains the queue and stops the workers. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		h, ok := d.handlers[j.name]
		if !ok {
			d.log.Warn().Str("job", j.name).Msg("no handler registered, job dropped")
			continue
		}
		h(j.payload)
	}
}
