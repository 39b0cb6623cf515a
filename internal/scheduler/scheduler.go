package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"indodax-market-sentry/internal/metrics"
)

const stopTimeout = 30 * time.Second

// Handler 任务处理函数
type Handler func(ctx context.Context) error

// Job 周期任务
type Job struct {
	Name            string
	Interval        time.Duration
	Handler         Handler
	AlignToInterval bool // 首次执行对齐到下一个周期边界（K线时间点）

	mu      sync.Mutex
	nextRun time.Time
	lastRun time.Time
	runs    int
	lastErr error
	running bool
}

// JobStatus 任务运行状态快照
type JobStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	NextRun   time.Time     `json:"next_run"`
	LastRun   time.Time     `json:"last_run,omitempty"`
	Runs      int           `json:"runs"`
	LastError string        `json:"last_error,omitempty"`
	Running   bool          `json:"running"`
}

func (j *Job) status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := JobStatus{
		Name:     j.Name,
		Interval: j.Interval,
		NextRun:  j.nextRun,
		LastRun:  j.lastRun,
		Runs:     j.runs,
		Running:  j.running,
	}
	if j.lastErr != nil {
		st.LastError = j.lastErr.Error()
	}
	return st
}

// Scheduler 调度器，每个任务一个分发协程，同一任务的执行互不重叠
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*Job
	tick    time.Duration
	now     func() time.Time
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler 创建调度器，tick为轮询间隔
func NewScheduler(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}
	return &Scheduler{tick: tick, now: time.Now}
}

// Register 注册任务，必须在Start之前调用
func (s *Scheduler) Register(job *Job) error {
	if job == nil || job.Handler == nil {
		return fmt.Errorf("job handler is required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("job %s: scheduler already started", job.Name)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start 启动所有任务的分发协程
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()

	zap.L().Info("🚀 调度器启动中...", zap.Int("jobs", len(jobs)))

	start := s.now()
	for _, job := range jobs {
		job.mu.Lock()
		if job.AlignToInterval {
			job.nextRun = nextAlignedTime(start, job.Interval)
		} else {
			job.nextRun = start.Add(job.Interval)
		}
		next := job.nextRun
		job.mu.Unlock()

		zap.L().Info("⏰ 任务已注册",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval),
			zap.String("next_run", next.Format("15:04:05")))

		s.wg.Add(1)
		go s.dispatch(ctx, job)
	}
}

// Stop 取消所有任务并等待正在执行的任务结束，最多等待30秒
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("📴 调度器已停止")
	case <-time.After(stopTimeout):
		zap.L().Warn("⚠️ 等待任务结束超时，强制退出")
	}
}

// Jobs 所有任务的状态
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	jobs := append([]*Job(nil), s.jobs...)
	s.mu.Unlock()

	out := make([]JobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.status())
	}
	return out
}

// dispatch 轮询任务是否到期，到期时在本协程内同步执行
func (s *Scheduler) dispatch(ctx context.Context, job *Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job.mu.Lock()
			due := !s.now().Before(job.nextRun)
			job.mu.Unlock()
			if due {
				s.runJob(ctx, job)
			}
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	started := s.now()
	job.mu.Lock()
	job.running = true
	job.mu.Unlock()

	err := s.safeRun(ctx, job)

	finished := s.now()
	job.mu.Lock()
	job.running = false
	job.lastRun = started
	job.runs++
	job.lastErr = err
	if job.AlignToInterval {
		job.nextRun = nextAlignedTime(finished, job.Interval)
	} else {
		job.nextRun = started.Add(job.Interval)
		if !job.nextRun.After(finished) {
			job.nextRun = finished.Add(job.Interval)
		}
	}
	next := job.nextRun
	job.mu.Unlock()

	metrics.JobRunsTotal.WithLabelValues(job.Name, metrics.Result(err == nil)).Inc()
	if err != nil {
		zap.L().Error("❌ 任务执行失败", zap.String("job", job.Name), zap.Error(err))
	}
	zap.L().Debug("⏰ 下次执行时间",
		zap.String("job", job.Name),
		zap.String("next_run", next.Format("15:04:05")),
		zap.Duration("took", finished.Sub(started)))
}

// safeRun 执行任务并把panic转为错误
func (s *Scheduler) safeRun(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Handler(ctx)
}

// nextAlignedTime 计算下一个与周期对齐的时间点
func nextAlignedTime(now time.Time, interval time.Duration) time.Time {
	return now.Truncate(interval).Add(interval)
}
