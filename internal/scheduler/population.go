package scheduler

import (
	"container/heap"
	"math/rand"
)

type populationEntry struct {
	chromosome *Chromosome
	seq        uint64 // 插入序号，保证适应度相同时顺序依然确定
}

// chromosomeHeap 是以 (fitness, seq) 为键的小顶堆
type chromosomeHeap []populationEntry

func (h chromosomeHeap) Len() int { return len(h) }

func (h chromosomeHeap) Less(i, j int) bool {
	if h[i].chromosome.fitness != h[j].chromosome.fitness {
		return h[i].chromosome.fitness < h[j].chromosome.fitness
	}
	return h[i].seq < h[j].seq
}

func (h chromosomeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *chromosomeHeap) Push(x any) { *h = append(*h, x.(populationEntry)) }

func (h *chromosomeHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = populationEntry{}
	*h = old[:n-1]
	return e
}

// Population: 按适应度排序的种群，堆顶是最差的个体
type Population struct {
	entries chromosomeHeap
	nextSeq uint64
}

func NewPopulation(capacity int) *Population {
	return &Population{
		entries: make(chromosomeHeap, 0, capacity),
	}
}

func (p *Population) Len() int {
	return len(p.entries)
}

// Insert 插入一个已经计算过适应度的染色体
func (p *Population) Insert(ch *Chromosome) {
	heap.Push(&p.entries, populationEntry{chromosome: ch, seq: p.nextSeq})
	p.nextSeq++
}

// ExtractWorst 移除并返回适应度最低的个体，适应度相同时返回最早插入的那个
func (p *Population) ExtractWorst() *Chromosome {
	if len(p.entries) == 0 {
		return nil
	}
	return heap.Pop(&p.entries).(populationEntry).chromosome
}

func (p *Population) Worst() *Chromosome {
	if len(p.entries) == 0 {
		return nil
	}
	return p.entries[0].chromosome
}

// Best 返回适应度最高的个体，适应度相同时返回最早插入的那个
func (p *Population) Best() *Chromosome {
	if len(p.entries) == 0 {
		return nil
	}

	best := p.entries[0]
	for _, e := range p.entries[1:] {
		if e.chromosome.fitness > best.chromosome.fitness ||
			(e.chromosome.fitness == best.chromosome.fitness && e.seq < best.seq) {
			best = e
		}
	}
	return best.chromosome
}

// All 返回种群中所有个体（堆内部顺序），返回的切片可以被调用方修改
func (p *Population) All() []*Chromosome {
	all := make([]*Chromosome, len(p.entries))
	for i, e := range p.entries {
		all[i] = e.chromosome
	}
	return all
}

// SampleDistinct 不放回地均匀抽取 k 个个体，k 超过种群大小时返回整个种群（打乱后）
func (p *Population) SampleDistinct(k int, rng *rand.Rand) []*Chromosome {
	n := len(p.entries)
	k = min(k, n)

	// 只对前 k 个位置做 Fisher-Yates
	idxs := make([]int, n)
	for i := range idxs {
		idxs[i] = i
	}
	sample := make([]*Chromosome, k)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		idxs[i], idxs[j] = idxs[j], idxs[i]
		sample[i] = p.entries[idxs[i]].chromosome
	}
	return sample
}
