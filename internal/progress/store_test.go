package progress

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

// fakeRedis 只实现 Store 用到的命令，其余方法调用时会因为内嵌接口为 nil 而 panic
type fakeRedis struct {
	redis.Cmdable

	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: map[string]string{},
		ttls:   map[string]time.Duration{},
	}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}

	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	default:
		f.values[key] = fmt.Sprint(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}

	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}

	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			delete(f.ttls, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "schedule_run_42_progress", ProgressKey(42))
	assert.Equal(t, "schedule_run_42_cancel", CancelKey(42))
	assert.NotEqual(t, ProgressKey(1), CancelKey(1))
}

func TestStoreProgress(t *testing.T) {
	rdb := newFakeRedis()
	s := NewStore(rdb, time.Hour, time.Second)

	_, err := s.Get(7)
	assert.ErrorIs(t, err, ErrNoProgress)

	p := &domain.RunProgress{
		RunID:          7,
		Generation:     11,
		MaxGenerations: 300,
		BestFitness:    5.5,
		AverageFitness: 2.25,
		MutationRate:   0.005,
		UpdatedAt:      time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(p))
	assert.Equal(t, time.Hour, rdb.ttls[ProgressKey(7)])

	got, err := s.Get(7)
	require.NoError(t, err)
	assert.Equal(t, p.Generation, got.Generation)
	assert.Equal(t, p.BestFitness, got.BestFitness)
	assert.Equal(t, p.AverageFitness, got.AverageFitness)
	assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt))

	_, err = s.Get(8)
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestStoreCorruptedProgress(t *testing.T) {
	rdb := newFakeRedis()
	rdb.values[ProgressKey(3)] = "{"
	s := NewStore(rdb, time.Hour, time.Second)

	_, err := s.Get(3)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoProgress)
}

func TestStoreCancel(t *testing.T) {
	rdb := newFakeRedis()
	s := NewStore(rdb, 10*time.Minute, time.Second)

	requested, err := s.CancelRequested(5)
	require.NoError(t, err)
	assert.False(t, requested)

	require.NoError(t, s.RequestCancel(5))
	assert.Equal(t, 10*time.Minute, rdb.ttls[CancelKey(5)])

	requested, err = s.CancelRequested(5)
	require.NoError(t, err)
	assert.True(t, requested)

	// 其他运行不受影响
	requested, err = s.CancelRequested(6)
	require.NoError(t, err)
	assert.False(t, requested)

	require.NoError(t, s.ClearCancel(5))
	requested, err = s.CancelRequested(5)
	require.NoError(t, err)
	assert.False(t, requested)
}

func TestStoreRedisError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	s := NewStore(rdb, time.Hour, time.Second)

	_, err := s.Get(1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoProgress)

	_, err = s.CancelRequested(1)
	assert.Error(t, err)

	assert.Error(t, s.Save(&domain.RunProgress{RunID: 1}))
}
