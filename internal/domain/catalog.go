package domain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidCatalog 表示课程目录为空或者前后不一致
var ErrInvalidCatalog = errors.New("课程目录无效")

type Room struct {
	Name     string `json:"name" csv:"name"`
	Capacity int    `json:"capacity" csv:"capacity"`
}

type Activity struct {
	ID                 string   `json:"id"`
	ExpectedEnrollment int      `json:"expectedEnrollment"`
	Preferred          []string `json:"preferred"`
	Acceptable         []string `json:"acceptable"`
}

// LinkedSections: 参与额外成对规则的四个课程
// Lower 为两个 100 级别的课程，Upper 为两个 191 级别的课程
type LinkedSections struct {
	Lower [2]string `json:"lower"`
	Upper [2]string `json:"upper"`
}

// Catalog: 排课所需的静态数据，加载后只读
type Catalog struct {
	Rooms        []Room         `json:"rooms"`
	TimeSlots    []string       `json:"timeSlots"` // 顺序有意义，时间段之间的距离就是下标之差
	Facilitators []string       `json:"facilitators"`
	Activities   []Activity     `json:"activities"`
	Linked       LinkedSections `json:"linked"`
	FarBuildings []string       `json:"farBuildings"` // 教室名中包含这些子串即视为在远端校区
}

func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: 目录为空", ErrInvalidCatalog)
	}
	if len(c.Rooms) == 0 {
		return fmt.Errorf("%w: 没有教室", ErrInvalidCatalog)
	}
	if len(c.TimeSlots) == 0 {
		return fmt.Errorf("%w: 没有时间段", ErrInvalidCatalog)
	}
	if len(c.Facilitators) == 0 {
		return fmt.Errorf("%w: 没有授课教师", ErrInvalidCatalog)
	}
	if len(c.Activities) == 0 {
		return fmt.Errorf("%w: 没有课程", ErrInvalidCatalog)
	}

	rooms := make(map[string]struct{}, len(c.Rooms))
	for _, room := range c.Rooms {
		if room.Name == "" {
			return fmt.Errorf("%w: 存在没有名称的教室", ErrInvalidCatalog)
		}
		if room.Capacity <= 0 {
			return fmt.Errorf("%w: 教室 %s 的容量必须大于 0", ErrInvalidCatalog, room.Name)
		}
		if _, exists := rooms[room.Name]; exists {
			return fmt.Errorf("%w: 教室 %s 重复", ErrInvalidCatalog, room.Name)
		}
		rooms[room.Name] = struct{}{}
	}

	slots := make(map[string]struct{}, len(c.TimeSlots))
	for _, slot := range c.TimeSlots {
		if slot == "" {
			return fmt.Errorf("%w: 存在没有名称的时间段", ErrInvalidCatalog)
		}
		if _, exists := slots[slot]; exists {
			return fmt.Errorf("%w: 时间段 %s 重复", ErrInvalidCatalog, slot)
		}
		slots[slot] = struct{}{}
	}

	facilitators := make(map[string]struct{}, len(c.Facilitators))
	for _, f := range c.Facilitators {
		if f == "" {
			return fmt.Errorf("%w: 存在没有名称的授课教师", ErrInvalidCatalog)
		}
		if _, exists := facilitators[f]; exists {
			return fmt.Errorf("%w: 授课教师 %s 重复", ErrInvalidCatalog, f)
		}
		facilitators[f] = struct{}{}
	}

	activities := make(map[string]struct{}, len(c.Activities))
	for _, a := range c.Activities {
		if a.ID == "" {
			return fmt.Errorf("%w: 存在没有编号的课程", ErrInvalidCatalog)
		}
		if _, exists := activities[a.ID]; exists {
			return fmt.Errorf("%w: 课程 %s 重复", ErrInvalidCatalog, a.ID)
		}
		if a.ExpectedEnrollment <= 0 {
			return fmt.Errorf("%w: 课程 %s 的预计人数必须大于 0", ErrInvalidCatalog, a.ID)
		}
		for _, f := range slices.Concat(a.Preferred, a.Acceptable) {
			if _, exists := facilitators[f]; !exists {
				return fmt.Errorf("%w: 课程 %s 引用了不存在的授课教师 %s", ErrInvalidCatalog, a.ID, f)
			}
		}
		activities[a.ID] = struct{}{}
	}

	linked := make(map[string]struct{}, 4)
	for _, id := range slices.Concat(c.Linked.Lower[:], c.Linked.Upper[:]) {
		if _, exists := activities[id]; !exists {
			return fmt.Errorf("%w: 关联课程 %s 不存在", ErrInvalidCatalog, id)
		}
		if _, exists := linked[id]; exists {
			return fmt.Errorf("%w: 关联课程 %s 重复", ErrInvalidCatalog, id)
		}
		linked[id] = struct{}{}
	}

	for _, b := range c.FarBuildings {
		if b == "" {
			// 空串会匹配所有教室
			return fmt.Errorf("%w: 远端校区名称不能为空", ErrInvalidCatalog)
		}
	}

	return nil
}

func (c *Catalog) ActivityIndex(id string) int {
	return slices.IndexFunc(c.Activities, func(a Activity) bool { return a.ID == id })
}

func (c *Catalog) RoomIndex(name string) int {
	return slices.IndexFunc(c.Rooms, func(r Room) bool { return r.Name == name })
}

func (c *Catalog) TimeSlotIndex(slot string) int {
	return slices.Index(c.TimeSlots, slot)
}

func (c *Catalog) FacilitatorIndex(name string) int {
	return slices.Index(c.Facilitators, name)
}
