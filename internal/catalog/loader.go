package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

const (
	RoomsFile        = "rooms.csv"
	TimeSlotsFile    = "time_slots.csv"
	FacilitatorsFile = "facilitators.csv"
	ActivitiesFile   = "activities.csv"

	listSeparator = "|"
)

type timeSlotRow struct {
	Label string `csv:"label"`
}

type facilitatorRow struct {
	Name string `csv:"name"`
}

// activityRow 中 preferred 与 acceptable 用 | 分隔多个授课教师
// linked 取值为 lower / upper / 空，表示该课程是否参与成对规则
type activityRow struct {
	ID                 string `csv:"id"`
	ExpectedEnrollment int    `csv:"expected_enrollment"`
	Preferred          string `csv:"preferred"`
	Acceptable         string `csv:"acceptable"`
	Linked             string `csv:"linked"`
}

// Load 从目录中读取四张 CSV 表并组装成课程目录，组装完成后会立即校验
func Load(dir string, farBuildings []string) (*domain.Catalog, error) {
	rooms := []*domain.Room{}
	if err := unmarshalFile(filepath.Join(dir, RoomsFile), &rooms); err != nil {
		return nil, err
	}

	slotRows := []*timeSlotRow{}
	if err := unmarshalFile(filepath.Join(dir, TimeSlotsFile), &slotRows); err != nil {
		return nil, err
	}

	facilitatorRows := []*facilitatorRow{}
	if err := unmarshalFile(filepath.Join(dir, FacilitatorsFile), &facilitatorRows); err != nil {
		return nil, err
	}

	activityRows := []*activityRow{}
	if err := unmarshalFile(filepath.Join(dir, ActivitiesFile), &activityRows); err != nil {
		return nil, err
	}

	if len(farBuildings) == 0 {
		farBuildings = Default().FarBuildings
	}

	c := &domain.Catalog{
		Rooms:        make([]domain.Room, 0, len(rooms)),
		TimeSlots:    make([]string, 0, len(slotRows)),
		Facilitators: make([]string, 0, len(facilitatorRows)),
		Activities:   make([]domain.Activity, 0, len(activityRows)),
		FarBuildings: farBuildings,
	}

	for _, room := range rooms {
		c.Rooms = append(c.Rooms, domain.Room{Name: strings.TrimSpace(room.Name), Capacity: room.Capacity})
	}
	for _, row := range slotRows {
		c.TimeSlots = append(c.TimeSlots, strings.TrimSpace(row.Label))
	}
	for _, row := range facilitatorRows {
		c.Facilitators = append(c.Facilitators, strings.TrimSpace(row.Name))
	}

	var lower, upper []string
	for _, row := range activityRows {
		id := strings.TrimSpace(row.ID)
		c.Activities = append(c.Activities, domain.Activity{
			ID:                 id,
			ExpectedEnrollment: row.ExpectedEnrollment,
			Preferred:          splitList(row.Preferred),
			Acceptable:         splitList(row.Acceptable),
		})

		switch strings.ToLower(strings.TrimSpace(row.Linked)) {
		case "":
		case "lower":
			lower = append(lower, id)
		case "upper":
			upper = append(upper, id)
		default:
			return nil, fmt.Errorf("%w: 课程 %s 的 linked 取值 %q 无效", domain.ErrInvalidCatalog, id, row.Linked)
		}
	}

	if len(lower) != 2 || len(upper) != 2 {
		return nil, fmt.Errorf("%w: 需要恰好两门 lower 课程和两门 upper 课程（实际为 %d 和 %d）", domain.ErrInvalidCatalog, len(lower), len(upper))
	}
	c.Linked = domain.LinkedSections{
		Lower: [2]string{lower[0], lower[1]},
		Upper: [2]string{upper[0], upper[1]},
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// FromDir 在 dir 为空时返回内置目录，否则从 dir 中加载
func FromDir(dir string, farBuildings []string) (*domain.Catalog, error) {
	if dir == "" {
		c := Default()
		if len(farBuildings) > 0 {
			c.FarBuildings = farBuildings
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return c, nil
	}

	return Load(dir, farBuildings)
}

func unmarshalFile(path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("无法打开 %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.Unmarshal(file, out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return fmt.Errorf("%w: %s 为空", domain.ErrInvalidCatalog, path)
		}
		return fmt.Errorf("无法解析 %s: %w", path, err)
	}

	return nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	items := strings.Split(s, listSeparator)
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// WriteDir 把课程目录导出为 Load 可以读取的四张 CSV 表
func WriteDir(dir string, c *domain.Catalog) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	slotRows := make([]timeSlotRow, 0, len(c.TimeSlots))
	for _, slot := range c.TimeSlots {
		slotRows = append(slotRows, timeSlotRow{Label: slot})
	}

	facilitatorRows := make([]facilitatorRow, 0, len(c.Facilitators))
	for _, f := range c.Facilitators {
		facilitatorRows = append(facilitatorRows, facilitatorRow{Name: f})
	}

	activityRows := make([]activityRow, 0, len(c.Activities))
	for _, a := range c.Activities {
		row := activityRow{
			ID:                 a.ID,
			ExpectedEnrollment: a.ExpectedEnrollment,
			Preferred:          strings.Join(a.Preferred, listSeparator),
			Acceptable:         strings.Join(a.Acceptable, listSeparator),
		}
		switch a.ID {
		case c.Linked.Lower[0], c.Linked.Lower[1]:
			row.Linked = "lower"
		case c.Linked.Upper[0], c.Linked.Upper[1]:
			row.Linked = "upper"
		}
		activityRows = append(activityRows, row)
	}

	tables := map[string]any{
		RoomsFile:        c.Rooms,
		TimeSlotsFile:    slotRows,
		FacilitatorsFile: facilitatorRows,
		ActivitiesFile:   activityRows,
	}
	for name, rows := range tables {
		if err := marshalFile(filepath.Join(dir, name), rows); err != nil {
			return err
		}
	}

	return nil
}

func marshalFile(path string, rows any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("无法创建 %s: %w", path, err)
	}

	if err := gocsv.Marshal(rows, file); err != nil {
		_ = file.Close()
		return fmt.Errorf("无法写入 %s: %w", path, err)
	}

	return file.Close()
}
