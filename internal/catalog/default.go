package catalog

import "github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"

// Default 返回内置的课程目录（11 门课程、9 间教室、6 个时间段、10 位授课教师）
// 每次调用都返回新的副本，调用方可以放心修改
func Default() *domain.Catalog {
	return &domain.Catalog{
		Rooms: []domain.Room{
			{Name: "Slater 003", Capacity: 45},
			{Name: "Roman 216", Capacity: 30},
			{Name: "Loft 206", Capacity: 75},
			{Name: "Roman 201", Capacity: 50},
			{Name: "Loft 310", Capacity: 108},
			{Name: "Beach 201", Capacity: 60},
			{Name: "Beach 301", Capacity: 75},
			{Name: "Logos 325", Capacity: 450},
			{Name: "Frank 119", Capacity: 60},
		},
		TimeSlots: []string{"10 AM", "11 AM", "12 PM", "1 PM", "2 PM", "3 PM"},
		Facilitators: []string{
			"Lock", "Glen", "Banks", "Richards", "Shaw",
			"Singer", "Uther", "Tyler", "Numen", "Zeldin",
		},
		Activities: []domain.Activity{
			{ID: "SLA100A", ExpectedEnrollment: 50, Preferred: []string{"Glen", "Lock", "Banks", "Zeldin"}, Acceptable: []string{"Numen", "Richards"}},
			{ID: "SLA100B", ExpectedEnrollment: 50, Preferred: []string{"Glen", "Lock", "Banks", "Zeldin"}, Acceptable: []string{"Numen", "Richards"}},
			{ID: "SLA191A", ExpectedEnrollment: 50, Preferred: []string{"Glen", "Lock", "Banks", "Zeldin"}, Acceptable: []string{"Numen", "Richards"}},
			{ID: "SLA191B", ExpectedEnrollment: 50, Preferred: []string{"Glen", "Lock", "Banks", "Zeldin"}, Acceptable: []string{"Numen", "Richards"}},
			{ID: "SLA201", ExpectedEnrollment: 50, Preferred: []string{"Glen", "Banks", "Zeldin", "Shaw"}, Acceptable: []string{"Numen", "Richards", "Singer"}},
			{ID: "SLA291", ExpectedEnrollment: 50, Preferred: []string{"Lock", "Banks", "Zeldin", "Singer"}, Acceptable: []string{"Numen", "Richards", "Shaw", "Tyler"}},
			{ID: "SLA303", ExpectedEnrollment: 60, Preferred: []string{"Glen", "Zeldin", "Banks"}, Acceptable: []string{"Numen", "Singer", "Shaw"}},
			{ID: "SLA304", ExpectedEnrollment: 25, Preferred: []string{"Glen", "Banks", "Tyler"}, Acceptable: []string{"Numen", "Singer", "Shaw", "Richards", "Uther", "Zeldin"}},
			{ID: "SLA394", ExpectedEnrollment: 20, Preferred: []string{"Tyler", "Singer"}, Acceptable: []string{"Richards", "Zeldin"}},
			{ID: "SLA449", ExpectedEnrollment: 60, Preferred: []string{"Tyler", "Singer", "Shaw"}, Acceptable: []string{"Zeldin", "Uther"}},
			{ID: "SLA451", ExpectedEnrollment: 100, Preferred: []string{"Tyler", "Singer", "Shaw"}, Acceptable: []string{"Zeldin", "Uther", "Richards", "Banks"}},
		},
		Linked: domain.LinkedSections{
			Lower: [2]string{"SLA100A", "SLA100B"},
			Upper: [2]string{"SLA191A", "SLA191B"},
		},
		FarBuildings: []string{"Roman", "Beach"},
	}
}
