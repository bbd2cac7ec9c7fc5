package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/utils"
)

type RunStore interface {
	MarkScheduleRunRunning(id int64) (*domain.ScheduleRun, error)
	CompleteScheduleRun(run *domain.ScheduleRun) error
	FailScheduleRun(id int64, message string) error
	GetUserByID(id int64) (*domain.User, error)
}

type ProgressStore interface {
	Save(p *domain.RunProgress) error
	CancelRequested(runID int64) (bool, error)
	ClearCancel(runID int64) error
}

type Publisher interface {
	PublishJSON(queue string, v any) error
}

type Observer interface {
	ObserveGeneration(runID int64, strategy string, best, avg, mutationRate float64)
	ObserveRunFinished(runID int64, strategy string, status string, duration time.Duration)
}

type Options struct {
	MailQueue        string
	ReportDir        string // 为空时不写报告文件
	ProgressInterval int    // 每隔多少代写一次进度、检查一次取消请求
}

type Worker struct {
	opts     Options
	catalog  *domain.Catalog
	runs     RunStore
	progress ProgressStore
	mail     Publisher
	observer Observer
	logger   *slog.Logger
}

func New(opts Options, catalog *domain.Catalog, runs RunStore, progress ProgressStore, mail Publisher, observer Observer, logger *slog.Logger) *Worker {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 1
	}

	return &Worker{
		opts:     opts,
		catalog:  catalog,
		runs:     runs,
		progress: progress,
		mail:     mail,
		observer: observer,
		logger:   logger,
	}
}

// Consume 逐条处理队列中的消息，直到 ctx 被取消或者 msgs 被关闭
func (w *Worker) Consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn("消息通道已关闭")
				return
			}

			if err := w.HandleMessage(ctx, msg.Body); err != nil {
				w.logger.Error("处理排课任务失败", slog.String("error", err.Error()))
				_ = msg.Nack(false, false)
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

func (w *Worker) HandleMessage(ctx context.Context, body []byte) error {
	msg := domain.RunMessage{}
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("排课任务反序列化失败: %w", err)
	}

	return w.Process(ctx, msg.RunID)
}

// Process 执行一次排课运行并保存结果
// 只有在运行状态无法写回数据库时才返回错误，算法本身的失败会记录在运行的 message 中
func (w *Worker) Process(ctx context.Context, runID int64) error {
	logger := w.logger.With(slog.Int64("run_id", runID))

	run, err := w.runs.MarkScheduleRunRunning(runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 运行已经被取消或者被其他 worker 领取
			logger.Warn("运行不存在或不处于等待状态，跳过")
			return nil
		}
		return err
	}

	start := time.Now()
	strategy := string(run.Parameters.Strategy)

	seed := run.Parameters.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s, err := scheduler.New(scheduler.ParametersFromDomain(run.Parameters), w.catalog, rand.New(rand.NewSource(seed)))
	if err != nil {
		return w.fail(run, start, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	history := make([]domain.GenerationRecord, 0, run.Parameters.MaxGenerations)
	s.SetProgressFunc(func(stats scheduler.GenerationStats) {
		// 保存与展示的代数从 1 开始，与进度一致
		history = append(history, domain.GenerationRecord{
			Generation:     stats.Generation + 1,
			BestFitness:    stats.BestFitness,
			AverageFitness: stats.AverageFitness,
			MutationRate:   stats.MutationRate,
		})
		w.observer.ObserveGeneration(run.ID, strategy, stats.BestFitness, stats.AverageFitness, stats.MutationRate)

		if stats.Generation%w.opts.ProgressInterval != 0 {
			return
		}

		logger.Info("迭代进度",
			slog.Int("generation", stats.Generation+1),
			slog.Float64("best_fitness", stats.BestFitness),
			slog.Float64("average_fitness", stats.AverageFitness),
			slog.Float64("std_dev", stats.StdDevFitness),
		)
		w.saveProgress(logger, run, stats)

		requested, err := w.progress.CancelRequested(run.ID)
		if err != nil {
			logger.Warn("无法检查取消请求", slog.String("error", err.Error()))
			return
		}
		if requested {
			logger.Info("收到取消请求")
			cancel()
		}
	})

	logger.Info("开始排课", slog.String("strategy", strategy), slog.Int64("seed", seed))

	res, err := s.Schedule(runCtx)
	if err != nil {
		return w.fail(run, start, err)
	}

	if err := utils.ValidateScheduleEntries(res.Entries, w.catalog); err != nil {
		return w.fail(run, start, fmt.Errorf("排课结果无效: %w", err))
	}

	run.Status = statusOf(res.State)
	run.BestFitness = &res.Fitness
	run.Generations = res.Generations
	run.Message = fmt.Sprintf("共迭代 %d 代，最优适应度 %.3f", res.Generations, res.Fitness)
	run.Entries = res.Entries
	run.History = history

	if err := w.runs.CompleteScheduleRun(run); err != nil {
		logger.Error("无法保存排课结果", slog.String("error", err.Error()))
		return w.fail(run, start, err)
	}

	if err := w.progress.ClearCancel(run.ID); err != nil {
		logger.Warn("无法清除取消请求", slog.String("error", err.Error()))
	}

	w.observer.ObserveRunFinished(run.ID, strategy, string(run.Status), time.Since(start))
	logger.Info("排课完成",
		slog.String("status", string(run.Status)),
		slog.Int("generations", res.Generations),
		slog.Float64("best_fitness", res.Fitness),
		slog.Duration("duration", time.Since(start)),
	)

	if w.opts.ReportDir != "" {
		paths, err := report.WriteFiles(report.RunDir(w.opts.ReportDir, run.ID), run.Entries)
		if err != nil {
			logger.Error("无法写入报告", slog.String("error", err.Error()))
		} else {
			logger.Info("已写入报告", slog.Any("paths", paths))
		}
	}

	w.notify(logger, run)

	return nil
}

func (w *Worker) saveProgress(logger *slog.Logger, run *domain.ScheduleRun, stats scheduler.GenerationStats) {
	p := &domain.RunProgress{
		RunID:          run.ID,
		Generation:     stats.Generation + 1,
		MaxGenerations: run.Parameters.MaxGenerations,
		BestFitness:    stats.BestFitness,
		AverageFitness: stats.AverageFitness,
		MutationRate:   stats.MutationRate,
		UpdatedAt:      time.Now(),
	}
	if err := w.progress.Save(p); err != nil {
		logger.Warn("无法保存进度", slog.String("error", err.Error()))
	}
}

func (w *Worker) fail(run *domain.ScheduleRun, start time.Time, cause error) error {
	w.logger.Error("排课失败", slog.Int64("run_id", run.ID), slog.String("error", cause.Error()))

	w.observer.ObserveRunFinished(run.ID, string(run.Parameters.Strategy), string(domain.RunStatusFailed), time.Since(start))

	if err := w.runs.FailScheduleRun(run.ID, cause.Error()); err != nil {
		return fmt.Errorf("无法将运行标记为失败: %w", err)
	}

	run.Status = domain.RunStatusFailed
	run.Message = cause.Error()

	return nil
}

// notify 给创建者发送运行结束的邮件，失败只记录日志
func (w *Worker) notify(logger *slog.Logger, run *domain.ScheduleRun) {
	user, err := w.runs.GetUserByID(run.CreatedBy)
	if err != nil {
		logger.Warn("无法获取运行的创建者", slog.String("error", err.Error()))
		return
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailTypeScheduleRunFinished,
		To:   user.Email,
		Data: domain.ScheduleRunFinishedMailData{
			FullName:    user.FullName,
			RunID:       run.ID,
			RunName:     run.Name,
			Status:      run.Status,
			BestFitness: *run.BestFitness,
			Generations: run.Generations,
			Entries:     run.Entries,
		},
	}

	if err := w.mail.PublishJSON(w.opts.MailQueue, mailMessage); err != nil {
		logger.Warn("无法投递邮件", slog.String("error", err.Error()))
	}
}

func statusOf(state scheduler.State) domain.RunStatus {
	switch state {
	case scheduler.StateConverged:
		return domain.RunStatusConverged
	case scheduler.StateCancelled:
		return domain.RunStatusCancelled
	default:
		return domain.RunStatusMaxGenerations
	}
}
