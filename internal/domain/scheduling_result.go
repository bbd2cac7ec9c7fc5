package domain

import (
	"fmt"
	"time"
)

type Strategy string

const (
	StrategyRank    Strategy = "rank"
	StrategySoftmax Strategy = "softmax"
)

type RunStatus string

const (
	RunStatusPending        RunStatus = "pending"
	RunStatusRunning        RunStatus = "running"
	RunStatusConverged      RunStatus = "converged"
	RunStatusMaxGenerations RunStatus = "max_generations"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
)

// ScheduleRunParameters 是一次排课运行所使用的遗传算法参数，会以 JSON 形式存到数据库中
type ScheduleRunParameters struct {
	Strategy               Strategy `json:"strategy"`
	PopulationSize         int      `json:"populationSize"`
	MaxGenerations         int      `json:"maxGenerations"`
	InitialMutationRate    float64  `json:"initialMutationRate"`
	MinMutationRate        float64  `json:"minMutationRate"`
	ConvergenceGeneration  int      `json:"convergenceGeneration"`
	ConvergenceThreshold   float64  `json:"convergenceThreshold"`
	LoadExemptFacilitators []string `json:"loadExemptFacilitators"`
	Seed                   int64    `json:"seed"`
}

type ScheduleEntry struct {
	Activity    string `json:"activity" csv:"activity"`
	Room        string `json:"room" csv:"room"`
	TimeSlot    string `json:"timeSlot" csv:"time_slot"`
	Facilitator string `json:"facilitator" csv:"facilitator"`
}

// String 与原有文本报告的格式保持一致
func (e ScheduleEntry) String() string {
	return fmt.Sprintf("%s @ %s with %s", e.Room, e.TimeSlot, e.Facilitator)
}

type GenerationRecord struct {
	Generation     int     `json:"generation"`
	BestFitness    float64 `json:"bestFitness"`
	AverageFitness float64 `json:"averageFitness"`
	MutationRate   float64 `json:"mutationRate"`
}

type ScheduleRun struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Parameters  ScheduleRunParameters `json:"parameters"`
	Status      RunStatus             `json:"status"`
	BestFitness *float64              `json:"bestFitness"` // 运行结束前为空
	Generations int                   `json:"generations"`
	Message     string                `json:"message"`
	CreatedBy   int64                 `json:"createdBy"`
	Entries     []ScheduleEntry       `json:"entries"`
	History     []GenerationRecord    `json:"history"`
	CreatedAt   time.Time             `json:"createdAt"`
	StartedAt   *time.Time            `json:"startedAt"`
	FinishedAt  *time.Time            `json:"finishedAt"`
	Version     int32                 `json:"-"`
}

func (r *ScheduleRun) IsFinished() bool {
	switch r.Status {
	case RunStatusConverged, RunStatusMaxGenerations, RunStatusCancelled, RunStatusFailed:
		return true
	default:
		return false
	}
}

// RunProgress 是运行过程中写入 redis 的进度快照
type RunProgress struct {
	RunID          int64     `json:"runID"`
	Generation     int       `json:"generation"`
	MaxGenerations int       `json:"maxGenerations"`
	BestFitness    float64   `json:"bestFitness"`
	AverageFitness float64   `json:"averageFitness"`
	MutationRate   float64   `json:"mutationRate"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RunMessage 是投递到 schedule_run_queue 的消息
type RunMessage struct {
	RunID int64 `json:"runID"`
}
