package scheduler

import (
	"math"
)

// randomInitChromosome 随机初始化一个染色体，不做任何可行性检查
func (s *Scheduler) randomInitChromosome() *Chromosome {
	genes := make([]Gene, len(s.catalog.Activities))

	for i := range genes {
		genes[i] = Gene{
			room:        s.rng.Intn(len(s.catalog.Rooms)),
			slot:        s.rng.Intn(len(s.catalog.TimeSlots)),
			facilitator: s.rng.Intn(len(s.catalog.Facilitators)),
		}
	}

	return &Chromosome{
		genes: genes,
	}
}

// 计算染色体的适应度并赋值给染色体
func (s *Scheduler) calcFitness(ch *Chromosome) {
	ch.fitness = s.evaluator.Evaluate(ch)
}

// 均匀交叉，每门课程独立地以 0.5 的概率从 p1 或 p2 继承
func (s *Scheduler) uniformCrossover(p1 *Chromosome, p2 *Chromosome) *Chromosome {
	child := &Chromosome{
		genes: make([]Gene, len(p1.genes)),
	}

	for i := range child.genes {
		if s.rng.Float64() < 0.5 {
			child.genes[i] = p1.genes[i]
		} else {
			child.genes[i] = p2.genes[i]
		}
	}

	return child
}

// 单点交叉，切点在 [1, n-1] 中均匀选取，返回两个互补的子代
func (s *Scheduler) singlePointCrossover(p1 *Chromosome, p2 *Chromosome) (*Chromosome, *Chromosome) {
	length := len(p1.genes)

	c1, c2 := p1.Clone(), p2.Clone()
	if length < 2 || length != len(p2.genes) {
		// 没有可以切的位置
		return c1, c2
	}

	point := 1 + s.rng.Intn(length-1)

	// 交换两个子代在 point 位置之后的基因
	for i := point; i < length; i++ {
		c1.genes[i], c2.genes[i] = c2.genes[i], c1.genes[i]
	}

	return c1, c2
}

// 变异
// 每门课程的教室、时间段、授课教师分别以 rate 的概率重新随机选择
func (s *Scheduler) mutate(ch *Chromosome, rate float64) {
	for i := range ch.genes {
		if s.rng.Float64() < rate {
			ch.genes[i].room = s.rng.Intn(len(s.catalog.Rooms))
		}
		if s.rng.Float64() < rate {
			ch.genes[i].slot = s.rng.Intn(len(s.catalog.TimeSlots))
		}
		if s.rng.Float64() < rate {
			ch.genes[i].facilitator = s.rng.Intn(len(s.catalog.Facilitators))
		}
	}
}

// softmaxWeights 返回累积概率分布，先减去最大值保证数值稳定
func softmaxWeights(pop []*Chromosome) []float64 {
	maxFit := math.Inf(-1)
	for _, ch := range pop {
		maxFit = max(maxFit, ch.fitness)
	}

	cumulative := make([]float64, len(pop))
	total := 0.0
	for i, ch := range pop {
		total += math.Exp(ch.fitness - maxFit)
		cumulative[i] = total
	}
	for i := range cumulative {
		cumulative[i] /= total
	}

	return cumulative
}

// 按 softmax 概率选择一个个体
func (s *Scheduler) selectBySoftmax(pop []*Chromosome, cumulative []float64) *Chromosome {
	pick := s.rng.Float64()

	for i, c := range cumulative {
		if pick < c {
			return pop[i]
		}
	}

	// 浮点误差导致最后一项略小于 1 时才会运行到这里
	return pop[len(pop)-1]
}
