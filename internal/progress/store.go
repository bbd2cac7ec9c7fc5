package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

var ErrNoProgress = errors.New("没有进度信息")

func ProgressKey(runID int64) string {
	return fmt.Sprintf("schedule_run_%d_progress", runID)
}

func CancelKey(runID int64) string {
	return fmt.Sprintf("schedule_run_%d_cancel", runID)
}

// Store 把运行进度与取消请求保存在 redis 中，api 与 worker 通过它通信
type Store struct {
	rdb        redis.Cmdable
	expiration time.Duration
	timeout    time.Duration
}

func NewStore(rdb redis.Cmdable, expiration time.Duration, timeout time.Duration) *Store {
	return &Store{
		rdb:        rdb,
		expiration: expiration,
		timeout:    timeout,
	}
}

func (s *Store) Save(p *domain.RunProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.rdb.Set(ctx, ProgressKey(p.RunID), data, s.expiration).Err()
}

func (s *Store) Get(runID int64) (*domain.RunProgress, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.rdb.Get(ctx, ProgressKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	p := &domain.RunProgress{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Store) RequestCancel(runID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.rdb.Set(ctx, CancelKey(runID), "1", s.expiration).Err()
}

func (s *Store) CancelRequested(runID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.rdb.Exists(ctx, CancelKey(runID)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// ClearCancel 在运行结束后调用，避免同一个 id 的取消请求残留
func (s *Store) ClearCancel(runID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.rdb.Del(ctx, CancelKey(runID)).Err()
}
