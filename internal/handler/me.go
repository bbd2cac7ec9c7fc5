package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

// GetMyScheduleRuns 返回当前用户创建的运行，不包括排课结果
func (h *Handler) GetMyScheduleRuns(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	runs, err := h.repository.GetScheduleRunsByCreator(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取我的排课运行成功", runs)
}

func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
	}

	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(myInfo.PasswordHash), []byte(req.OldPassword)); err != nil {
		h.errorResponse(w, r, "旧密码错误")
		return
	}

	if err := h.setPassword(myInfo, req.NewPassword); err != nil {
		h.handleUserConstraintError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新密码成功", nil)
}

// setPassword 在 user 上写入新的哈希并保存，版本号不一致时返回 sql.ErrNoRows
func (h *Handler) setPassword(user *domain.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	return h.repository.UpdateUser(user)
}
