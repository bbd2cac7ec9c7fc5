package scheduler

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// ProgressFunc 在每一代结束时被同步调用
type ProgressFunc func(stats GenerationStats)

type Scheduler struct {
	parameters *Parameters
	catalog    *domain.Catalog
	evaluator  *Evaluator
	rng        *rand.Rand
	progress   ProgressFunc
}

// New 在进入迭代之前校验参数与课程目录，rng 为 nil 时使用当前时间作为种子
func New(parameters *Parameters, catalog *domain.Catalog, rng *rand.Rand) (*Scheduler, error) {
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	evaluator, err := NewEvaluator(catalog, parameters.LoadExemptFacilitators)
	if err != nil {
		return nil, err
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Scheduler{
		parameters: parameters,
		catalog:    catalog,
		evaluator:  evaluator,
		rng:        rng,
	}, nil
}

func (s *Scheduler) SetProgressFunc(fn ProgressFunc) {
	s.progress = fn
}

func (s *Scheduler) Evaluator() *Evaluator {
	return s.evaluator
}

// Schedule 运行遗传算法直到收敛、达到最大迭代次数或者 ctx 被取消
// ctx 只会在两代之间被检查，一代之内的计算不可中断
func (s *Scheduler) Schedule(ctx context.Context) (*Result, error) {
	// 生成初始种群
	pop := NewPopulation(s.parameters.PopulationSize)
	for i := 0; i < s.parameters.PopulationSize; i++ {
		ch := s.randomInitChromosome()
		s.calcFitness(ch)
		pop.Insert(ch)
	}

	// 这里需要使用深拷贝，防止后续繁殖的过程中导致记录被修改
	bestChromosomeEver := pop.Best().Clone()

	mutationRate := s.parameters.InitialMutationRate
	prevAvg, _ := describe(pop)

	res := &Result{
		BestHistory:    make([]float64, 0, s.parameters.MaxGenerations),
		AverageHistory: make([]float64, 0, s.parameters.MaxGenerations),
		State:          StateMaxGenerations,
	}

	for gen := 0; gen < s.parameters.MaxGenerations; gen++ {
		if ctx.Err() != nil {
			res.State = StateCancelled
			break
		}

		var genBest float64
		switch s.parameters.Strategy {
		case StrategySoftmax:
			pop = s.softmaxGeneration(pop, mutationRate)
			genBest = pop.Best().fitness
		default:
			bestChromosomeEver = s.rankGeneration(pop, bestChromosomeEver)
			genBest = bestChromosomeEver.fitness
		}

		avg, std := describe(pop)
		res.BestHistory = append(res.BestHistory, genBest)
		res.AverageHistory = append(res.AverageHistory, avg)
		res.Generations = gen + 1

		if s.progress != nil {
			s.progress(GenerationStats{
				Generation:     gen,
				BestFitness:    genBest,
				AverageFitness: avg,
				StdDevFitness:  std,
				MutationRate:   mutationRate,
			})
		}

		history := res.BestHistory
		if s.parameters.Strategy == StrategySoftmax {
			// 平均适应度比上一代有提升时把变异概率减半，变异概率只降不升
			if avg > prevAvg {
				mutationRate = min(mutationRate, max(s.parameters.MinMutationRate, mutationRate/2))
			}
			prevAvg = avg
			history = res.AverageHistory
		}

		if s.converged(history) {
			res.State = StateConverged
			break
		}
	}

	if s.parameters.Strategy == StrategySoftmax {
		bestChromosomeEver = pop.Best().Clone()
	}

	res.Best = bestChromosomeEver
	res.Fitness = bestChromosomeEver.fitness
	res.Entries = bestChromosomeEver.Entries(s.catalog)
	res.MutationRate = mutationRate

	return res, nil
}

// rankGeneration 每次淘汰最差的个体，再从剩余个体中选出两个父代繁殖一个子代放回种群
func (s *Scheduler) rankGeneration(pop *Population, best *Chromosome) *Chromosome {
	for i := 0; i < s.parameters.PopulationSize; i++ {
		worst := pop.ExtractWorst()

		var p1, p2 *Chromosome
		switch pop.Len() {
		case 0:
			// 种群大小为 1 时只能由被淘汰的个体自己繁殖
			p1, p2 = worst, worst
		case 1:
			p1 = pop.Worst()
			p2 = p1
		default:
			parents := pop.SampleDistinct(2, s.rng)
			p1, p2 = parents[0], parents[1]
		}

		child := s.uniformCrossover(p1, p2)
		s.mutate(child, s.parameters.InitialMutationRate)
		s.calcFitness(child)
		pop.Insert(child)

		if child.fitness > best.fitness {
			best = child.Clone()
		}
	}

	return best
}

// softmaxGeneration 按 softmax 概率选择父代，用单点交叉整体替换种群
func (s *Scheduler) softmaxGeneration(pop *Population, mutationRate float64) *Population {
	members := pop.All()
	cumulative := softmaxWeights(members)

	next := NewPopulation(s.parameters.PopulationSize)
	for next.Len() < s.parameters.PopulationSize {
		p1 := s.selectBySoftmax(members, cumulative)
		p2 := s.selectBySoftmax(members, cumulative)

		c1, c2 := s.singlePointCrossover(p1, p2)
		for _, child := range []*Chromosome{c1, c2} {
			s.mutate(child, mutationRate)
			if next.Len() < s.parameters.PopulationSize {
				s.calcFitness(child)
				next.Insert(child)
			}
		}
	}

	return next
}

// converged 判断相对于基准代数的提升是否低于阈值
// 基准代数的值为 0 时无法计算相对提升，直接视为收敛
func (s *Scheduler) converged(history []float64) bool {
	idx := s.parameters.ConvergenceGeneration
	gen := len(history) - 1
	if gen <= idx {
		return false
	}

	base := history[idx]
	if base == 0 {
		return true
	}

	denominator := base
	if s.parameters.Strategy != StrategySoftmax {
		denominator = math.Abs(base)
	}

	return (history[gen]-base)/denominator < s.parameters.ConvergenceThreshold
}

func describe(pop *Population) (mean float64, std float64) {
	fits := make([]float64, 0, pop.Len())
	for _, ch := range pop.All() {
		fits = append(fits, ch.fitness)
	}
	if len(fits) == 0 {
		return 0, 0
	}

	mean = stat.Mean(fits, nil)
	if len(fits) > 1 {
		std = stat.StdDev(fits, nil)
	}
	return mean, std
}
