package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/progress"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/utils"
)

type scheduleRunResponse struct {
	*domain.ScheduleRun
	Evaluation *Evaluation `json:"evaluation"` // 运行结束且有结果时才有
}

func (h *Handler) CreateScheduleRun(w http.ResponseWriter, r *http.Request) {
	// 未给出的参数使用配置中的默认值
	var req struct {
		Name                   string   `json:"name" validate:"required,max=100"`
		Strategy               *string  `json:"strategy" validate:"omitempty,oneof=rank softmax"`
		PopulationSize         *int     `json:"populationSize" validate:"omitempty,min=1,max=10000"`
		MaxGenerations         *int     `json:"maxGenerations" validate:"omitempty,min=1,max=100000"`
		InitialMutationRate    *float64 `json:"initialMutationRate" validate:"omitempty,min=0,max=1"`
		MinMutationRate        *float64 `json:"minMutationRate" validate:"omitempty,min=0,max=1"`
		ConvergenceGeneration  *int     `json:"convergenceGeneration" validate:"omitempty,min=0"`
		ConvergenceThreshold   *float64 `json:"convergenceThreshold" validate:"omitempty,min=0"`
		LoadExemptFacilitators []string `json:"loadExemptFacilitators"`
		Seed                   *int64   `json:"seed"`
	}

	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	parameters := h.config.Scheduler.Parameters()
	if req.Strategy != nil {
		parameters.Strategy = domain.Strategy(*req.Strategy)
	}
	if req.PopulationSize != nil {
		parameters.PopulationSize = *req.PopulationSize
	}
	if req.MaxGenerations != nil {
		parameters.MaxGenerations = *req.MaxGenerations
	}
	if req.InitialMutationRate != nil {
		parameters.InitialMutationRate = *req.InitialMutationRate
	}
	if req.MinMutationRate != nil {
		parameters.MinMutationRate = *req.MinMutationRate
	}
	if req.ConvergenceGeneration != nil {
		parameters.ConvergenceGeneration = *req.ConvergenceGeneration
	}
	if req.ConvergenceThreshold != nil {
		parameters.ConvergenceThreshold = *req.ConvergenceThreshold
	}
	if req.LoadExemptFacilitators != nil {
		parameters.LoadExemptFacilitators = req.LoadExemptFacilitators
	}
	if req.Seed != nil {
		parameters.Seed = *req.Seed
	}

	if err := utils.ValidateScheduleRunParameters(&parameters, h.catalog); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := scheduler.ParametersFromDomain(parameters).Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	run := &domain.ScheduleRun{
		Name:       req.Name,
		Parameters: parameters,
		CreatedBy:  myInfo.ID,
	}

	if err := h.repository.CreateScheduleRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 把任务交给 worker
	if err := h.publisher.PublishJSON(h.config.RabbitMQ.RunQueue, domain.RunMessage{RunID: run.ID}); err != nil {
		if failErr := h.repository.FailScheduleRun(run.ID, "无法投递排课任务"); failErr != nil {
			slog.Error("无法将运行标记为失败", "run_id", run.ID, "error", failErr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建排课运行成功", run)
}

func (h *Handler) GetAllScheduleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repository.GetAllScheduleRuns()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排课运行列表成功", runs)
}

func (h *Handler) GetScheduleRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	res := scheduleRunResponse{ScheduleRun: run}
	if len(run.Entries) > 0 {
		evaluation, err := h.evaluate(run.Entries, run.Parameters.LoadExemptFacilitators)
		if err != nil {
			// 目录变化后旧的结果可能无法再计算，不影响返回运行本身
			slog.Warn("无法重新计算排课结果的适应度", "run_id", run.ID, "error", err)
		} else {
			res.Evaluation = evaluation
		}
	}

	h.successResponse(w, r, "获取排课运行成功", res)
}

func (h *Handler) GetScheduleRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	p, err := h.progress.Get(run.ID)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNoProgress):
			h.successResponse(w, r, "暂无进度", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取进度成功", p)
}

func (h *Handler) CancelScheduleRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	switch {
	case run.IsFinished():
		h.errorResponse(w, r, "排课运行已结束")
	case run.Status == domain.RunStatusPending:
		cancelled, err := h.repository.CancelPendingScheduleRun(run.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if cancelled {
			h.successResponse(w, r, "已取消排课运行", nil)
			return
		}
		// worker 已经领取了任务，退回到通过 redis 请求取消
		h.requestCancel(w, r, run)
	default:
		h.requestCancel(w, r, run)
	}
}

func (h *Handler) requestCancel(w http.ResponseWriter, r *http.Request, run *domain.ScheduleRun) {
	if err := h.progress.RequestCancel(run.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已请求取消排课运行", nil)
}

// GetScheduleRunReport 以文本（默认）或 CSV 的形式下载最优课表
func (h *Handler) GetScheduleRunReport(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	if len(run.Entries) == 0 {
		h.errorResponse(w, r, "排课运行暂无结果")
		return
	}

	buf := &bytes.Buffer{}
	contentType := "text/plain; charset=utf-8"
	filename := report.TextFileName

	switch r.URL.Query().Get("format") {
	case "", "text":
		if err := report.WriteText(buf, run.Entries); err != nil {
			h.internalServerError(w, r, err)
			return
		}
	case "csv":
		if err := report.WriteCSV(buf, run.Entries); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		contentType = "text/csv; charset=utf-8"
		filename = report.CSVFileName
	default:
		h.errorResponse(w, r, "不支持的报告格式")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="run_%d_%s"`, run.ID, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) DeleteScheduleRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	if !run.IsFinished() {
		h.errorResponse(w, r, "只能删除已结束的排课运行")
		return
	}

	if err := h.repository.DeleteScheduleRun(run.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除排课运行成功", nil)
}
