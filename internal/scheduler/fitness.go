package scheduler

import (
	"fmt"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

const (
	preferenceOther int8 = iota
	preferenceAcceptable
	preferencePreferred
)

const (
	overloadLimit    = 4 // 授课教师的课程数超过该值即视为过载
	sameLevelMinGap  = 4 // 同级别的两门课间隔超过该值才有奖励
	crossLevelAdjGap = 1
	crossLevelGap    = 2
)

// Evaluator 在创建时把课程目录预处理成下标形式，之后的 Evaluate 不修改任何状态
type Evaluator struct {
	numSlots        int
	numFacilitators int
	capacity        []int    // 教室下标 -> 容量
	enrollment      []int    // 课程下标 -> 预计人数
	preference      [][]int8 // 课程下标 -> 授课教师下标 -> 偏好程度
	exempt          []bool   // 授课教师下标 -> 是否豁免课时过少的惩罚
	farRoom         []bool   // 教室下标 -> 是否在远端校区
	lower           [2]int
	upper           [2]int
}

func NewEvaluator(c *domain.Catalog, loadExemptFacilitators []string) (*Evaluator, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	e := &Evaluator{
		numSlots:        len(c.TimeSlots),
		numFacilitators: len(c.Facilitators),
		capacity:        make([]int, len(c.Rooms)),
		enrollment:      make([]int, len(c.Activities)),
		preference:      make([][]int8, len(c.Activities)),
		exempt:          make([]bool, len(c.Facilitators)),
		farRoom:         make([]bool, len(c.Rooms)),
	}

	for i, room := range c.Rooms {
		e.capacity[i] = room.Capacity
		e.farRoom[i] = inFarBuilding(room.Name, c.FarBuildings)
	}

	for i, activity := range c.Activities {
		e.enrollment[i] = activity.ExpectedEnrollment
		e.preference[i] = make([]int8, len(c.Facilitators))
		// 同一位教师同时出现在两个列表中时以 preferred 为准
		for _, f := range activity.Acceptable {
			e.preference[i][c.FacilitatorIndex(f)] = preferenceAcceptable
		}
		for _, f := range activity.Preferred {
			e.preference[i][c.FacilitatorIndex(f)] = preferencePreferred
		}
	}

	for _, f := range loadExemptFacilitators {
		idx := c.FacilitatorIndex(f)
		if idx < 0 {
			return nil, fmt.Errorf("%w: 豁免的授课教师 %s 不在目录中", ErrInvalidParameters, f)
		}
		e.exempt[idx] = true
	}

	for i := range 2 {
		e.lower[i] = c.ActivityIndex(c.Linked.Lower[i])
		e.upper[i] = c.ActivityIndex(c.Linked.Upper[i])
	}

	return e, nil
}

// Breakdown 是适应度按规则拆分后的各项之和
type Breakdown struct {
	RoomSize         float64 `json:"roomSize"`
	Facilitator      float64 `json:"facilitator"`
	RoomDoubleBooked float64 `json:"roomDoubleBooked"`
	FacilitatorSlots float64 `json:"facilitatorSlots"`
	FacilitatorLoad  float64 `json:"facilitatorLoad"`
	LinkedSections   float64 `json:"linkedSections"`
}

func (b Breakdown) Total() float64 {
	return b.RoomSize + b.Facilitator + b.RoomDoubleBooked + b.FacilitatorSlots + b.FacilitatorLoad + b.LinkedSections
}

// Evaluate 计算染色体的适应度，不会修改染色体本身
func (e *Evaluator) Evaluate(ch *Chromosome) float64 {
	return e.Breakdown(ch).Total()
}

// roomSizeScore 四个区间互斥，按从小到大的顺序判断
func roomSizeScore(capacity, expected int) float64 {
	switch {
	case capacity < expected:
		return -0.5
	case capacity > 6*expected:
		return -0.4
	case capacity > 3*expected:
		return -0.2
	default:
		return 0.3
	}
}

func (e *Evaluator) Breakdown(ch *Chromosome) Breakdown {
	var b Breakdown

	roomTimeUsed := make(map[int]bool, len(ch.genes))
	facilitatorSlotCnt := make([]int, e.numFacilitators*e.numSlots)
	facilitatorLoad := make([]int, e.numFacilitators)

	for a, gene := range ch.genes {
		b.RoomSize += roomSizeScore(e.capacity[gene.room], e.enrollment[a])

		switch e.preference[a][gene.facilitator] {
		case preferencePreferred:
			b.Facilitator += 0.5
		case preferenceAcceptable:
			b.Facilitator += 0.2
		default:
			b.Facilitator -= 0.1
		}

		// 同一教室同一时间段只有第一门课不受惩罚
		key := gene.room*e.numSlots + gene.slot
		if roomTimeUsed[key] {
			b.RoomDoubleBooked -= 0.5
		} else {
			roomTimeUsed[key] = true
		}

		facilitatorSlotCnt[gene.facilitator*e.numSlots+gene.slot]++
		facilitatorLoad[gene.facilitator]++
	}

	for f := 0; f < e.numFacilitators; f++ {
		// 每个时间段只算一次，不论重复了几门课
		for s := 0; s < e.numSlots; s++ {
			switch cnt := facilitatorSlotCnt[f*e.numSlots+s]; {
			case cnt == 1:
				b.FacilitatorSlots += 0.2
			case cnt > 1:
				b.FacilitatorSlots -= 0.2
			}
		}

		load := facilitatorLoad[f]
		switch {
		case load > overloadLimit:
			b.FacilitatorLoad -= 0.5
		case (load == 1 || load == 2) && !e.exempt[f]:
			b.FacilitatorLoad -= 0.4
		}
	}

	b.LinkedSections = e.linkedSections(ch)

	return b
}

func (e *Evaluator) linkedSections(ch *Chromosome) float64 {
	bonus := 0.0

	// 同级别的两门课
	for _, pair := range [][2]int{e.lower, e.upper} {
		d := slotDistance(ch.genes[pair[0]].slot, ch.genes[pair[1]].slot)
		switch {
		case d == 0:
			bonus -= 0.5
		case d > sameLevelMinGap:
			bonus += 0.5
		}
	}

	// 100 级别与 191 级别的每一种组合
	for _, a := range e.lower {
		for _, b := range e.upper {
			ga, gb := ch.genes[a], ch.genes[b]
			switch slotDistance(ga.slot, gb.slot) {
			case crossLevelAdjGap:
				bonus += 0.5
				if e.farRoom[ga.room] != e.farRoom[gb.room] {
					bonus -= 0.4
				}
			case crossLevelGap:
				bonus += 0.25
			case 0:
				bonus -= 0.25
			}
		}
	}

	return bonus
}
