package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/catalog"
)

func smallParameters(strategy Strategy) *Parameters {
	p := DefaultParameters()
	p.Strategy = strategy
	p.PopulationSize = 30
	p.MaxGenerations = 20
	p.ConvergenceGeneration = 1000
	return p
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	cases := map[string]func(p *Parameters){
		"unknown strategy":     func(p *Parameters) { p.Strategy = "tournament" },
		"empty population":     func(p *Parameters) { p.PopulationSize = 0 },
		"no generations":       func(p *Parameters) { p.MaxGenerations = 0 },
		"mutation above one":   func(p *Parameters) { p.InitialMutationRate = 1.5 },
		"negative min":         func(p *Parameters) { p.MinMutationRate = -0.1 },
		"negative convergence": func(p *Parameters) { p.ConvergenceGeneration = -1 },
	}
	for name, modify := range cases {
		t.Run(name, func(t *testing.T) {
			p := DefaultParameters()
			modify(p)
			_, err := New(p, catalog.Default(), nil)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}

	_, err := New(nil, catalog.Default(), nil)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestScheduleSingleIndividualWithoutMutationKeepsInitialSchedule(t *testing.T) {
	for _, strategy := range []Strategy{StrategyRank, StrategySoftmax} {
		t.Run(string(strategy), func(t *testing.T) {
			p := DefaultParameters()
			p.Strategy = strategy
			p.PopulationSize = 1
			p.MaxGenerations = 1
			p.InitialMutationRate = 0
			p.MinMutationRate = 0

			s := newTestScheduler(t, p, 99)
			res, err := s.Schedule(context.Background())
			require.NoError(t, err)

			fresh := newTestScheduler(t, p, 99)
			initial := fresh.randomInitChromosome()

			assert.Equal(t, initial.Entries(fresh.catalog), res.Entries)
			assert.InDelta(t, fresh.evaluator.Evaluate(initial), res.Fitness, epsilon)
			assert.Equal(t, 1, res.Generations)
			assert.Equal(t, StateMaxGenerations, res.State)
		})
	}
}

func TestRankScheduleKeepsBestEver(t *testing.T) {
	s := newTestScheduler(t, smallParameters(StrategyRank), 11)

	var calls []GenerationStats
	s.SetProgressFunc(func(stats GenerationStats) {
		calls = append(calls, stats)
	})

	res, err := s.Schedule(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateMaxGenerations, res.State)
	assert.Equal(t, 20, res.Generations)
	require.Len(t, res.BestHistory, 20)
	require.Len(t, res.AverageHistory, 20)
	require.Len(t, calls, 20)

	for i := 1; i < len(res.BestHistory); i++ {
		assert.GreaterOrEqual(t, res.BestHistory[i], res.BestHistory[i-1])
	}
	for i, stats := range calls {
		assert.Equal(t, i, stats.Generation)
		assert.GreaterOrEqual(t, stats.BestFitness, stats.AverageFitness)
	}

	assert.InDelta(t, s.evaluator.Evaluate(res.Best), res.Fitness, epsilon)
	assert.Equal(t, res.BestHistory[len(res.BestHistory)-1], res.Fitness)

	seen := make(map[string]bool)
	for _, e := range res.Entries {
		seen[e.Activity] = true
	}
	assert.Len(t, seen, len(s.catalog.Activities))
}

func TestSoftmaxScheduleMutationRateNeverIncreases(t *testing.T) {
	p := smallParameters(StrategySoftmax)
	p.InitialMutationRate = 0.5
	p.MinMutationRate = 0.01
	p.MaxGenerations = 40

	s := newTestScheduler(t, p, 12)

	var rates []float64
	s.SetProgressFunc(func(stats GenerationStats) {
		rates = append(rates, stats.MutationRate)
	})

	res, err := s.Schedule(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rates)

	assert.Equal(t, 0.5, rates[0])
	for i := 1; i < len(rates); i++ {
		assert.LessOrEqual(t, rates[i], rates[i-1])
		assert.GreaterOrEqual(t, rates[i], p.MinMutationRate)
	}
	assert.LessOrEqual(t, res.MutationRate, rates[len(rates)-1])
	assert.GreaterOrEqual(t, res.MutationRate, p.MinMutationRate)
	assert.InDelta(t, s.evaluator.Evaluate(res.Best), res.Fitness, epsilon)
}

func TestScheduleIsDeterministicForSeed(t *testing.T) {
	for _, strategy := range []Strategy{StrategyRank, StrategySoftmax} {
		t.Run(string(strategy), func(t *testing.T) {
			a, err := newTestScheduler(t, smallParameters(strategy), 5).Schedule(context.Background())
			require.NoError(t, err)
			b, err := newTestScheduler(t, smallParameters(strategy), 5).Schedule(context.Background())
			require.NoError(t, err)

			assert.Equal(t, a.Entries, b.Entries)
			assert.Equal(t, a.BestHistory, b.BestHistory)
		})
	}
}

func TestScheduleStopsWhenCancelled(t *testing.T) {
	s := newTestScheduler(t, smallParameters(StrategyRank), 13)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Schedule(ctx)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 0, res.Generations)
	assert.Len(t, res.Entries, len(s.catalog.Activities))
}

func TestScheduleCancelledFromProgress(t *testing.T) {
	s := newTestScheduler(t, smallParameters(StrategySoftmax), 14)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.SetProgressFunc(func(stats GenerationStats) {
		if stats.Generation == 2 {
			cancel()
		}
	})

	res, err := s.Schedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, res.State)
	assert.Equal(t, 3, res.Generations)
}

func TestConverged(t *testing.T) {
	newWith := func(strategy Strategy) *Scheduler {
		p := DefaultParameters()
		p.Strategy = strategy
		p.ConvergenceGeneration = 1
		return &Scheduler{parameters: p}
	}

	rank, softmax := newWith(StrategyRank), newWith(StrategySoftmax)

	// 还没有超过基准代数
	assert.False(t, rank.converged([]float64{1, 2}))
	assert.False(t, softmax.converged([]float64{1, 2}))

	// 基准为 0 时直接视为收敛
	assert.True(t, rank.converged([]float64{5, 0, 10}))
	assert.True(t, softmax.converged([]float64{5, 0, 10}))

	// 提升 50%，没有收敛
	assert.False(t, rank.converged([]float64{0, 2, 3}))
	// 提升 0.5%，收敛
	assert.True(t, rank.converged([]float64{0, 2, 2.01}))

	// 基准为负数时 rank 使用绝对值，softmax 使用原值
	assert.False(t, rank.converged([]float64{0, -2, -1}))
	assert.True(t, softmax.converged([]float64{0, -2, -1}))
}

func TestScheduleConvergesOnPlateau(t *testing.T) {
	p := smallParameters(StrategyRank)
	p.PopulationSize = 1
	p.InitialMutationRate = 0
	p.ConvergenceGeneration = 2
	p.MaxGenerations = 50

	s := newTestScheduler(t, p, 21)
	res, err := s.Schedule(context.Background())
	require.NoError(t, err)

	// 单个个体且不变异，最优值永远不变，基准之后的第一代就收敛
	assert.Equal(t, StateConverged, res.State)
	assert.Equal(t, 4, res.Generations)
}

func TestNewWithNilRng(t *testing.T) {
	s, err := New(smallParameters(StrategyRank), catalog.Default(), nil)
	require.NoError(t, err)
	require.NotNil(t, s.rng)
	assert.NotNil(t, s.Evaluator())
}
