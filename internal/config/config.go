package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

// SchedulerConfig 为新建排课任务时使用的默认遗传算法参数
type SchedulerConfig struct {
	Strategy               string   `env:"STRATEGY" envDefault:"rank"`
	PopulationSize         int      `env:"POPULATION_SIZE" envDefault:"500"`
	MaxGenerations         int      `env:"MAX_GENERATIONS" envDefault:"300"`
	InitialMutationRate    float64  `env:"INITIAL_MUTATION_RATE" envDefault:"0.01"`
	MinMutationRate        float64  `env:"MIN_MUTATION_RATE" envDefault:"0.0001"`
	ConvergenceGeneration  int      `env:"CONVERGENCE_GENERATION" envDefault:"100"`
	ConvergenceThreshold   float64  `env:"CONVERGENCE_THRESHOLD" envDefault:"0.01"`
	LoadExemptFacilitators []string `env:"LOAD_EXEMPT_FACILITATORS" envDefault:"Tyler"`
	Seed                   int64    `env:"SEED" envDefault:"0"` // 0 表示使用当前时间
	ProgressInterval       int      `env:"PROGRESS_INTERVAL" envDefault:"10"` // 每隔多少代打印一次日志
}

// Parameters 把默认配置转换为一次排课运行的参数
func (c SchedulerConfig) Parameters() domain.ScheduleRunParameters {
	return domain.ScheduleRunParameters{
		Strategy:               domain.Strategy(c.Strategy),
		PopulationSize:         c.PopulationSize,
		MaxGenerations:         c.MaxGenerations,
		InitialMutationRate:    c.InitialMutationRate,
		MinMutationRate:        c.MinMutationRate,
		ConvergenceGeneration:  c.ConvergenceGeneration,
		ConvergenceThreshold:   c.ConvergenceThreshold,
		LoadExemptFacilitators: c.LoadExemptFacilitators,
		Seed:                   c.Seed,
	}
}

type CatalogConfig struct {
	Dir          string   `env:"DIR"` // 为空时使用内置目录
	FarBuildings []string `env:"FAR_BUILDINGS" envDefault:"Roman,Beach"`
}

// EngineConfig 只包含本地运行遗传算法所需的配置
type EngineConfig struct {
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Catalog   CatalogConfig   `envPrefix:"CATALOG_"`
}

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain  string `env:"USER_DOMAIN,required"`
		TemplateDir string `env:"TEMPLATE_DIR" envDefault:"./templates"`
		SMTP        struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		RunQueue       string `env:"RUN_QUEUE" envDefault:"schedule_run_queue"`
		MailQueue      string `env:"MAIL_QUEUE" envDefault:"email_queue"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD,required"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
		ProgressExpiration  int    `env:"PROGRESS_EXPIRATION" envDefault:"86400"` // 1 天
	} `envPrefix:"REDIS_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
	Worker struct {
		MetricsPort string `env:"METRICS_PORT" envDefault:"9100"`
		ReportDir   string `env:"REPORT_DIR"` // 为空时不写报告文件
		Prefetch    int    `env:"PREFETCH" envDefault:"1"`
	} `envPrefix:"WORKER_"`
	EngineConfig
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEngineConfig 不要求数据库、消息队列等服务的配置
func LoadEngineConfig() (*EngineConfig, error) {
	cfg := &EngineConfig{}
	if err := parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parse(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return aggErr.Errors[0]
		}
		return err
	}

	return nil
}
