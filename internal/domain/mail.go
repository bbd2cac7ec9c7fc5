package domain

const (
	MailTypeCreateUser          = "create_user"
	MailTypeScheduleRunFinished = "schedule_run_finished"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ScheduleRunFinishedMailData struct {
	FullName    string          `json:"fullName"`
	RunID       int64           `json:"runID"`
	RunName     string          `json:"runName"`
	Status      RunStatus       `json:"status"`
	BestFitness float64         `json:"bestFitness"`
	Generations int             `json:"generations"`
	Entries     []ScheduleEntry `json:"entries"`
}
