package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/infra"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/mq"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/seed"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/utils"
)

func main() {
	var op int
	var n int
	var file string
	var publish bool

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机排课运行, 3: 从 CSV 文件导入用户)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "./internal/seed/data/users.csv", "导入用户时使用的 CSV 文件")
	flag.BoolVar(&publish, "publish", false, "插入排课运行后是否投递给 worker")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := infra.OpenDB(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", slog.String("error", err.Error()))
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		if n <= 0 {
			logger.Error("请输入合法的用户数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
			if err != nil {
				logger.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(user); err != nil {
				logger.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}

			cnt++
		}

		logger.Info("插入用户成功", slog.Int("count", cnt))
	case 2:
		if n <= 0 {
			logger.Error("请输入合法的排课运行数量")
			return
		}

		// 随机运行都记在初始管理员名下
		admin, err := repo.GetUserByUsername(cfg.InitialAdmin.Username)
		if err != nil {
			logger.Error("无法获取初始管理员", slog.String("error", err.Error()))
			return
		}

		var publisher *mq.Publisher
		if publish {
			conn, ch, err := infra.DialRabbitMQ(cfg)
			if err != nil {
				logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
				return
			}
			defer conn.Close()
			defer ch.Close()

			if err := mq.DeclareQueues(ch, cfg.RabbitMQ.RunQueue); err != nil {
				logger.Error("无法声明队列", slog.String("error", err.Error()))
				return
			}

			publisher = mq.NewPublisher(ch, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
		}

		cnt := 0
		for i := 0; i < n; i++ {
			run := &domain.ScheduleRun{
				Name:       utils.GenerateRandomScheduleRunName(),
				Parameters: utils.GenerateRandomScheduleRunParameters(cfg.Scheduler.Parameters()),
				CreatedBy:  admin.ID,
			}
			if err := repo.CreateScheduleRun(run); err != nil {
				logger.Error("无法插入排课运行", slog.String("error", err.Error()))
				continue
			}

			if publisher != nil {
				if err := publisher.PublishJSON(cfg.RabbitMQ.RunQueue, domain.RunMessage{RunID: run.ID}); err != nil {
					logger.Error("无法投递排课任务", slog.Int64("run_id", run.ID), slog.String("error", err.Error()))
					continue
				}
			}

			cnt++
		}

		logger.Info("插入排课运行成功", slog.Int("count", cnt), slog.Bool("published", publish))
	case 3:
		cnt, err := seed.SeedUsersFromFile(repo, file, cfg.Seed.User.Password)
		if err != nil {
			logger.Error("导入用户失败", slog.String("error", err.Error()))
			return
		}

		logger.Info("导入用户成功", slog.Int("count", cnt))
	default:
		logger.Error("指定的操作非法")
	}
}
