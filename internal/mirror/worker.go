package mirror

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/status"
)

// DefaultQueueSize bounds the number of pending mirror writes.
const DefaultQueueSize = 32

type job struct {
	reading   *status.Reading
	actuation *logic.Actuation
	source    string
}

// Worker moves mirror writes off the control loop. Enqueue never blocks:
// when the queue is full the write is dropped and logged.
type Worker struct {
	m       Mirror
	timeout time.Duration
	jobs    chan job
	wg      sync.WaitGroup
	once    sync.Once
	logf    func(format string, v ...interface{})
}

// NewWorker starts a worker draining writes into m. Each write is bounded by
// timeout. logf receives write failures; nil uses log.Printf.
func NewWorker(m Mirror, timeout time.Duration, logf func(format string, v ...interface{})) *Worker {
	if logf == nil {
		logf = log.Printf
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	w := &Worker{
		m:       m,
		timeout: timeout,
		jobs:    make(chan job, DefaultQueueSize),
		logf:    logf,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Publish queues a reading.
func (w *Worker) Publish(r status.Reading) {
	w.enqueue(job{reading: &r})
}

// RecordActuation queues an actuation event.
func (w *Worker) RecordActuation(a logic.Actuation, source string) {
	w.enqueue(job{actuation: &a, source: source})
}

func (w *Worker) enqueue(j job) {
	select {
	case w.jobs <- j:
	default:
		w.logf("mirror: queue full, dropping write")
	}
}

// Close drains pending writes and closes the mirror.
func (w *Worker) Close() error {
	var err error
	w.once.Do(func() {
		close(w.jobs)
		w.wg.Wait()
		err = w.m.Close()
	})
	return err
}

func (w *Worker) run() {
	defer w.wg.Done()
	for j := range w.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		var err error
		if j.reading != nil {
			err = w.m.Publish(ctx, *j.reading)
		} else if j.actuation != nil {
			err = w.m.RecordActuation(ctx, *j.actuation, j.source)
		}
		cancel()
		if err != nil {
			w.logf("mirror: %v", err)
		}
	}
}
