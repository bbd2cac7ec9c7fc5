package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/utils"
)

func main() {
	var strategy string
	var seed int64
	var outDir string
	var exportCatalog string

	flag.StringVar(&strategy, "strategy", "", "选择策略 (rank 或 softmax)，为空时使用配置")
	flag.Int64Var(&seed, "seed", -1, "随机数种子，0 表示使用当前时间，小于 0 时使用配置")
	flag.StringVar(&outDir, "out", ".", "报告输出目录")
	flag.StringVar(&exportCatalog, "export-catalog", "", "把当前使用的课程目录导出为 CSV 到该目录后退出")
	flag.Parse()

	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadEngineConfig()
	if err != nil {
		logger.Error("无法加载配置", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if strategy != "" {
		cfg.Scheduler.Strategy = strategy
	}
	if seed >= 0 {
		cfg.Scheduler.Seed = seed
	}

	/**********************************************
	 * 加载课程目录
	 **********************************************/
	c, err := catalog.FromDir(cfg.Catalog.Dir, cfg.Catalog.FarBuildings)
	if err != nil {
		logger.Error("无法加载课程目录", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if exportCatalog != "" {
		if err := catalog.WriteDir(exportCatalog, c); err != nil {
			logger.Error("无法导出课程目录", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("已导出课程目录", slog.String("dir", exportCatalog))
		return
	}

	/**********************************************
	 * 创建调度器
	 **********************************************/
	parameters := cfg.Scheduler.Parameters()
	if err := utils.ValidateScheduleRunParameters(&parameters, c); err != nil {
		logger.Error("参数无效", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if parameters.Seed == 0 {
		parameters.Seed = time.Now().UnixNano()
	}

	s, err := scheduler.New(scheduler.ParametersFromDomain(parameters), c, rand.New(rand.NewSource(parameters.Seed)))
	if err != nil {
		logger.Error("无法创建调度器", slog.String("error", err.Error()))
		os.Exit(1)
	}

	interval := max(cfg.Scheduler.ProgressInterval, 1)
	s.SetProgressFunc(func(stats scheduler.GenerationStats) {
		if stats.Generation%interval != 0 {
			return
		}
		logger.Info("迭代进度",
			slog.Int("generation", stats.Generation+1),
			slog.Float64("best_fitness", stats.BestFitness),
			slog.Float64("average_fitness", stats.AverageFitness),
			slog.Float64("std_dev", stats.StdDevFitness),
			slog.Float64("mutation_rate", stats.MutationRate),
		)
	})

	// CTRL+C 会在当前这一代结束后停止，并保留目前为止的最优结果
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	/**********************************************
	 * 运行遗传算法
	 **********************************************/
	logger.Info("开始排课",
		slog.String("strategy", string(parameters.Strategy)),
		slog.Int("population_size", parameters.PopulationSize),
		slog.Int("max_generations", parameters.MaxGenerations),
		slog.Int64("seed", parameters.Seed),
	)

	start := time.Now()
	res, err := s.Schedule(ctx)
	if err != nil {
		logger.Error("排课失败", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("排课结束",
		slog.String("state", string(res.State)),
		slog.Int("generations", res.Generations),
		slog.Float64("best_fitness", res.Fitness),
		slog.Duration("duration", time.Since(start)),
	)

	if err := printResult(s.Evaluator().Breakdown(res.Best), res.Entries); err != nil {
		logger.Error("无法输出结果", slog.String("error", err.Error()))
		os.Exit(1)
	}

	paths, err := report.WriteFiles(outDir, res.Entries)
	if err != nil {
		logger.Error("无法写入报告", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("已写入报告", slog.Any("paths", paths))
}

func printResult(b scheduler.Breakdown, entries []domain.ScheduleEntry) error {
	if err := report.WriteText(os.Stdout, entries); err != nil {
		return err
	}

	_, err := fmt.Printf(
		"\nFitness: %.3f (room size %.2f, facilitator %.2f, double booked %.2f, facilitator slots %.2f, facilitator load %.2f, linked sections %.2f)\n",
		b.Total(), b.RoomSize, b.Facilitator, b.RoomDoubleBooked, b.FacilitatorSlots, b.FacilitatorLoad, b.LinkedSections,
	)
	return err
}
