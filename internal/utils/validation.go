package utils

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

// ValidateScheduleRunParameters 检查参数中引用的授课教师以及参数之间的关系
// 取值范围的检查由 handler 中的 validator 完成
func ValidateScheduleRunParameters(p *domain.ScheduleRunParameters, catalog *domain.Catalog) error {
	for _, f := range p.LoadExemptFacilitators {
		if catalog.FacilitatorIndex(f) < 0 {
			return fmt.Errorf("授课教师 %s 不在课程目录中", f)
		}
	}

	if p.Strategy == domain.StrategySoftmax && p.MinMutationRate > p.InitialMutationRate {
		return errors.New("最小变异概率不能大于初始变异概率")
	}

	return nil
}

// ValidateScheduleEntries 检查排课结果是否覆盖了目录中的每一门课程且只出现一次，
// 并且所有的教室、时间段、授课教师都来自目录
func ValidateScheduleEntries(entries []domain.ScheduleEntry, catalog *domain.Catalog) error {
	if len(entries) != len(catalog.Activities) {
		return fmt.Errorf("排课结果中有 %d 门课程，但目录中有 %d 门", len(entries), len(catalog.Activities))
	}

	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		if catalog.ActivityIndex(entry.Activity) < 0 {
			return fmt.Errorf("第 %d 项的课程 %s 不在目录中", i+1, entry.Activity)
		}
		if seen[entry.Activity] {
			return fmt.Errorf("课程 %s 重复出现", entry.Activity)
		}
		seen[entry.Activity] = true

		if catalog.RoomIndex(entry.Room) < 0 {
			return fmt.Errorf("课程 %s 的教室 %s 不在目录中", entry.Activity, entry.Room)
		}
		if catalog.TimeSlotIndex(entry.TimeSlot) < 0 {
			return fmt.Errorf("课程 %s 的时间段 %s 不在目录中", entry.Activity, entry.TimeSlot)
		}
		if catalog.FacilitatorIndex(entry.Facilitator) < 0 {
			return fmt.Errorf("课程 %s 的授课教师 %s 不在目录中", entry.Activity, entry.Facilitator)
		}
	}

	return nil
}
