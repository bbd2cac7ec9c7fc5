package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/infra"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/mq"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/progress"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/worker"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 加载课程目录
	 **********************************************/
	c, err := catalog.FromDir(cfg.Catalog.Dir, cfg.Catalog.FarBuildings)
	if err != nil {
		logger.Error("无法加载课程目录", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库与 redis
	 **********************************************/
	dbpool, err := infra.OpenDB(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", slog.String("error", err.Error()))
		return
	}
	defer dbpool.Close()

	repo := repository.NewRepository(cfg, dbpool)

	rdb, err := infra.OpenRedis(cfg)
	if err != nil {
		logger.Error("无法连接到 redis", slog.String("error", err.Error()))
		return
	}
	defer rdb.Close()

	progressStore := progress.NewStore(
		rdb,
		time.Duration(cfg.Redis.ProgressExpiration)*time.Second,
		time.Duration(cfg.Redis.OperationExpiration)*time.Second,
	)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, ch, err := infra.DialRabbitMQ(cfg)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	defer ch.Close()

	if err := mq.DeclareQueues(ch, cfg.RabbitMQ.RunQueue, cfg.RabbitMQ.MailQueue); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	// 一次只领取有限个任务，避免一个 worker 积压所有的运行
	if err := ch.Qos(cfg.Worker.Prefetch, 0, false); err != nil {
		logger.Error("无法设置预取数量", slog.String("error", err.Error()))
		return
	}

	publisher := mq.NewPublisher(ch, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)

	/**********************************************
	 * 启动指标服务器
	 **********************************************/
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	metricsSrv := &http.Server{
		Addr:     fmt.Sprintf(":%s", cfg.Worker.MetricsPort),
		Handler:  m.Handler(),
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	go func() {
		logger.Info("正在启动指标服务器...", slog.String("port", cfg.Worker.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("无法启动指标服务器", slog.String("error", err.Error()))
		}
	}()

	/**********************************************
	 * 消费排课任务
	 **********************************************/
	w := worker.New(
		worker.Options{
			MailQueue:        cfg.RabbitMQ.MailQueue,
			ReportDir:        cfg.Worker.ReportDir,
			ProgressInterval: cfg.Scheduler.ProgressInterval,
		},
		c,
		repo,
		progressStore,
		publisher,
		m,
		logger,
	)

	msgs, err := ch.Consume(
		cfg.RabbitMQ.RunQueue,
		"",
		false, // 运行结束之后再手动确认
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Consume(ctx, msgs)
	}()

	logger.Info("等待排课任务...（按 CTRL+C 退出）")
	<-sigChan

	// 正在进行的运行会在当前这一代结束后以 cancelled 状态保存
	logger.Info("正在关闭 worker...")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭指标服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("worker 已成功关闭")
}
