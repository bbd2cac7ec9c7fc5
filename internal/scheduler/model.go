package scheduler

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

var ErrInvalidParameters = errors.New("遗传算法参数无效")

// Gene: 表示某门课程的排课决策，三个字段都是课程目录中对应表的下标
type Gene struct {
	room        int
	slot        int
	facilitator int
}

// Chromosome: 整个课表，genes 与课程目录中的课程一一对应（顺序相同）
type Chromosome struct {
	genes   []Gene
	fitness float64 // 只有在 calcFitness 之后才有效，任何基因变化后都必须重新计算
}

// Clone 返回一个完全独立的副本
func (ch *Chromosome) Clone() *Chromosome {
	genes := make([]Gene, len(ch.genes))
	copy(genes, ch.genes)
	return &Chromosome{
		genes:   genes,
		fitness: ch.fitness,
	}
}

func (ch *Chromosome) Fitness() float64 {
	return ch.fitness
}

// Entries 将染色体转换为可读的排课结果
func (ch *Chromosome) Entries(c *domain.Catalog) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, len(ch.genes))
	for i, gene := range ch.genes {
		entries[i] = domain.ScheduleEntry{
			Activity:    c.Activities[i].ID,
			Room:        c.Rooms[gene.room].Name,
			TimeSlot:    c.TimeSlots[gene.slot],
			Facilitator: c.Facilitators[gene.facilitator],
		}
	}
	return entries
}

// ChromosomeFromEntries 根据排课结果还原染色体，fitness 需要调用方重新计算
func ChromosomeFromEntries(c *domain.Catalog, entries []domain.ScheduleEntry) (*Chromosome, error) {
	if len(entries) != len(c.Activities) {
		return nil, fmt.Errorf("排课结果中有 %d 门课程，但目录中有 %d 门", len(entries), len(c.Activities))
	}

	genes := make([]Gene, len(c.Activities))
	seen := make([]bool, len(c.Activities))
	for _, entry := range entries {
		a := c.ActivityIndex(entry.Activity)
		if a < 0 {
			return nil, fmt.Errorf("课程 %s 不存在", entry.Activity)
		}
		if seen[a] {
			return nil, fmt.Errorf("课程 %s 重复出现", entry.Activity)
		}
		seen[a] = true

		room := c.RoomIndex(entry.Room)
		slot := c.TimeSlotIndex(entry.TimeSlot)
		facilitator := c.FacilitatorIndex(entry.Facilitator)
		if room < 0 || slot < 0 || facilitator < 0 {
			return nil, fmt.Errorf("课程 %s 的安排 %s 不在目录中", entry.Activity, entry)
		}

		genes[a] = Gene{room: room, slot: slot, facilitator: facilitator}
	}

	return &Chromosome{genes: genes}, nil
}

type Strategy = domain.Strategy

const (
	StrategyRank    = domain.StrategyRank
	StrategySoftmax = domain.StrategySoftmax
)

// 遗传算法参数
type Parameters struct {
	Strategy               Strategy // 选择与替换策略
	PopulationSize         int      // 种群大小
	MaxGenerations         int      // 最大迭代次数
	InitialMutationRate    float64  // 初始变异概率
	MinMutationRate        float64  // 自适应变异的下限（仅 softmax 策略）
	ConvergenceGeneration  int      // 收敛判断的基准代数（从 0 开始）
	ConvergenceThreshold   float64  // 相对提升低于该值即视为收敛
	LoadExemptFacilitators []string // 不受“课时过少”惩罚的授课教师
}

func DefaultParameters() *Parameters {
	return &Parameters{
		Strategy:               StrategyRank,
		PopulationSize:         500,
		MaxGenerations:         300,
		InitialMutationRate:    0.01,
		MinMutationRate:        0.0001,
		ConvergenceGeneration:  100,
		ConvergenceThreshold:   0.01,
		LoadExemptFacilitators: []string{"Tyler"},
	}
}

func ParametersFromDomain(p domain.ScheduleRunParameters) *Parameters {
	return &Parameters{
		Strategy:               p.Strategy,
		PopulationSize:         p.PopulationSize,
		MaxGenerations:         p.MaxGenerations,
		InitialMutationRate:    p.InitialMutationRate,
		MinMutationRate:        p.MinMutationRate,
		ConvergenceGeneration:  p.ConvergenceGeneration,
		ConvergenceThreshold:   p.ConvergenceThreshold,
		LoadExemptFacilitators: p.LoadExemptFacilitators,
	}
}

func (p *Parameters) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: 参数为空", ErrInvalidParameters)
	}
	switch p.Strategy {
	case StrategyRank, StrategySoftmax:
	default:
		return fmt.Errorf("%w: 未知的策略 %q", ErrInvalidParameters, p.Strategy)
	}
	if p.PopulationSize <= 0 {
		return fmt.Errorf("%w: 种群大小必须大于 0（得到 %d）", ErrInvalidParameters, p.PopulationSize)
	}
	if p.MaxGenerations <= 0 {
		return fmt.Errorf("%w: 最大迭代次数必须大于 0（得到 %d）", ErrInvalidParameters, p.MaxGenerations)
	}
	if p.InitialMutationRate < 0 || p.InitialMutationRate > 1 {
		return fmt.Errorf("%w: 变异概率必须在 [0,1] 之间（得到 %f）", ErrInvalidParameters, p.InitialMutationRate)
	}
	if p.MinMutationRate < 0 || p.MinMutationRate > 1 {
		return fmt.Errorf("%w: 最小变异概率必须在 [0,1] 之间（得到 %f）", ErrInvalidParameters, p.MinMutationRate)
	}
	if p.ConvergenceGeneration < 0 {
		return fmt.Errorf("%w: 收敛基准代数不能为负数（得到 %d）", ErrInvalidParameters, p.ConvergenceGeneration)
	}
	return nil
}

// State: 运行结束时所处的终止状态
type State string

const (
	StateConverged      State = "converged"
	StateMaxGenerations State = "max_generations"
	StateCancelled      State = "cancelled"
)

type GenerationStats struct {
	Generation     int // 从 0 开始
	BestFitness    float64
	AverageFitness float64
	StdDevFitness  float64
	MutationRate   float64
}

type Result struct {
	Best           *Chromosome
	Entries        []domain.ScheduleEntry
	Fitness        float64
	BestHistory    []float64
	AverageHistory []float64
	MutationRate   float64
	Generations    int
	State          State
}
