package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/strategy"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// WorkerPool runs isolated backtest jobs in parallel. Bars are shared
// read-only; each job builds its own strategy and simulator.
type WorkerPool struct {
	workerCount int
	engine      *BacktestEngine
	logger      *zap.Logger
	metrics     *monitoring.Metrics
	health      *monitoring.HealthChecker
	jobQueue    chan BacktestJob
	resultQueue chan RunResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// BacktestJob is one configuration of a comparison
type BacktestJob struct {
	ID    string
	Index int
	Spec  RunSpec
	Bars  []types.OHLCV

	// Strategy, when set, is run instead of one built from Spec
	Strategy strategy.Strategy
}

// NewWorkerPool creates a pool bound to ctx. workerCount <= 0 uses one
// worker per CPU.
func NewWorkerPool(ctx context.Context, engine *BacktestEngine, workerCount, jobBufferSize int, opts ...Option) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		engine:      engine,
		logger:      o.logger,
		metrics:     o.metrics,
		health:      o.health,
		jobQueue:    make(chan BacktestJob, jobBufferSize),
		resultQueue: make(chan RunResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue and waits for workers to drain it
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob queues a job, blocking while the queue is full
func (wp *WorkerPool) SubmitJob(job BacktestJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// GetResults returns the result channel for collecting completed jobs
func (wp *WorkerPool) GetResults() <-chan RunResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)
			wp.logger.Debug("job finished",
				zap.Int("worker", workerID),
				zap.String("run", job.Spec.Name),
				zap.Duration("duration", result.Duration),
				zap.Error(result.Err))

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

// processJob builds a fresh strategy for the job and runs it
func (wp *WorkerPool) processJob(job BacktestJob) (result RunResult) {
	startTime := time.Now()
	result = RunResult{
		RunID:    job.ID,
		Index:    job.Index,
		Name:     job.Spec.Name,
		Strategy: job.Spec.StrategyID,
	}

	wp.health.RunStarted(job.Spec.Name)
	defer func() {
		result.Duration = time.Since(startTime)
		wp.health.RunFinished(job.Spec.Name, result.Err)
		wp.metrics.RecordRun(job.Spec.StrategyID, result.Err, result.Duration)
	}()
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("run panicked", zap.String("run", job.Spec.Name), zap.Any("panic", r))
			result.Results = nil
			result.Report = PerformanceReport{}
			result.Err = fmt.Errorf("run %s panicked: %v", job.Spec.Name, r)
		}
	}()

	strat := job.Strategy
	if strat == nil {
		var err error
		strat, err = strategy.New(job.Spec.StrategyID, job.Spec.Config, wp.logger)
		if err != nil {
			result.Err = err
			return result
		}
	}

	res, err := wp.engine.Run(wp.ctx, strat, job.Bars)
	if err != nil {
		result.Err = err
		return result
	}

	result.Results = res
	result.Report = res.Report
	return result
}

// ProgressTracker tracks the progress of batch processing
type ProgressTracker struct {
	total     int
	completed int
	startTime time.Time
	mutex     sync.RWMutex
}

func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment increments the completion count
func (pt *ProgressTracker) Increment() {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
}

// GetProgress returns completed, total, percent and elapsed time
func (pt *ProgressTracker) GetProgress() (int, int, float64, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	elapsed := time.Since(pt.startTime)
	progress := 0.0
	if pt.total > 0 {
		progress = float64(pt.completed) / float64(pt.total) * 100
	}
	return pt.completed, pt.total, progress, elapsed
}

// EstimateTimeRemaining extrapolates the average time per completed job
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}
	avg := time.Since(pt.startTime) / time.Duration(pt.completed)
	return avg * time.Duration(pt.total-pt.completed)
}
