package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/infra"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/mailer"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/mq"
	"github.com/wneessen/go-mail"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	composer := mailer.NewComposer(cfg.Email.SMTP.Username, cfg.Email.TemplateDir)

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

	if err := mq.DeclareQueues(ch, cfg.RabbitMQ.MailQueue); err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	msgs, err := ch.Consume(
		cfg.RabbitMQ.MailQueue, // 队列
		"",                     // 消费者标识，设置为空字符串，表示由 RabbitMQ 自动分配
		false,                  // 发送成功之后再确认
		false,                  // 是否独占队列
		false,                  // 必须设置为 false，因为 RabbitMQ 不支持这个参数
		false,                  // 是否不等待
		nil,                    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 发送邮件，直到收到 CTRL+C
	 **********************************************/
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := mailer.NewConsumer(composer, client, logger)

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumer.Consume(ctx, msgs)
	}()

	logger.Info("等待消息...（按 CTRL+C 退出）")
	<-ctx.Done()

	logger.Info("正在关闭 mail worker...")
	wg.Wait()
	logger.Info("mail worker 已成功关闭")
}
