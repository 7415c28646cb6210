package optimize

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/trendnav/knn-navigator/internal/backtest"
)

// EvalFunc evaluates one parameter set into backtest results.
type EvalFunc func(ParameterSet) (*backtest.Results, error)

// WorkerPool runs parameter evaluations in parallel. Each job is independent:
// the only shared state is the read-only bar sequence captured by the
// evaluation closure.
type WorkerPool struct {
	workerCount int
	eval        EvalFunc
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// Job is a single evaluation task.
type Job struct {
	ID     int
	Params ParameterSet
}

// Result is the outcome of one job. Err is set when the evaluation failed or
// panicked; such combinations are reported as skipped and never abort the
// sweep.
type Result struct {
	Job      Job
	Results  *backtest.Results
	Duration time.Duration
	Err      error
}

// NewWorkerPool creates a pool with workerCount workers (NumCPU when <= 0).
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, eval EvalFunc) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		eval:        eval,
		jobQueue:    make(chan Job, jobBufferSize),
		resultQueue: make(chan Result, jobBufferSize),
		ctx:         poolCtx,
		cancel:      cancel,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop drains the pool: no further jobs are accepted, running jobs finish.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// Submit queues a job, failing when the pool context is done.
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel completed jobs arrive on, in completion order.
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.process(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// process evaluates one job, converting panics into job errors so a bad
// combination cannot take the sweep down.
func (wp *WorkerPool) process(job Job) (result Result) {
	start := time.Now()
	result.Job = job

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("evaluation panic for %s: %v", job.Params, r)
		}
		result.Duration = time.Since(start)
	}()

	result.Results, result.Err = wp.eval(job.Params)
	return result
}
