package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/utils"
)

type Evaluation struct {
	Fitness   float64             `json:"fitness"`
	Breakdown scheduler.Breakdown `json:"breakdown"`
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取课程目录成功", h.catalog)
}

// EvaluateSchedule 计算一份手工给出的课表的适应度，不会保存任何数据
func (h *Handler) EvaluateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries                []domain.ScheduleEntry `json:"entries" validate:"required,min=1"`
		LoadExemptFacilitators []string               `json:"loadExemptFacilitators"`
	}

	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// 没有指定时使用默认配置中的豁免名单
	if req.LoadExemptFacilitators == nil {
		req.LoadExemptFacilitators = h.config.Scheduler.LoadExemptFacilitators
	}

	evaluation, err := h.evaluate(req.Entries, req.LoadExemptFacilitators)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.successResponse(w, r, "计算适应度成功", evaluation)
}

func (h *Handler) evaluate(entries []domain.ScheduleEntry, loadExemptFacilitators []string) (*Evaluation, error) {
	if err := utils.ValidateScheduleEntries(entries, h.catalog); err != nil {
		return nil, err
	}

	evaluator, err := scheduler.NewEvaluator(h.catalog, loadExemptFacilitators)
	if err != nil {
		return nil, err
	}

	ch, err := scheduler.ChromosomeFromEntries(h.catalog, entries)
	if err != nil {
		return nil, err
	}

	breakdown := evaluator.Breakdown(ch)

	return &Evaluation{
		Fitness:   breakdown.Total(),
		Breakdown: breakdown,
	}, nil
}
