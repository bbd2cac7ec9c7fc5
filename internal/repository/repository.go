package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
)

// Repository 封装所有的数据库访问，每个方法自带超时
// 运行的结果由 worker 在一个事务中写入，其余操作都是单条语句
type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

func (r *Repository) transactionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
}
