package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/progress"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/repository"
)

type Publisher interface {
	PublishJSON(queue string, v any) error
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	publisher  Publisher
	progress   *progress.Store
	catalog    *domain.Catalog

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, publisher Publisher, progressStore *progress.Store, catalog *domain.Catalog) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		publisher:  publisher,
		progress:   progressStore,
		catalog:    catalog,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(middleware.RequestID)
	h.Mux.Use(middleware.RealIP)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Get("/schedule-runs", h.GetMyScheduleRuns)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole(domain.RoleAdmin)).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole(domain.RoleAdmin)).Patch("/", h.UpdateUser)
				r.With(h.RequiredRole(domain.RoleAdmin)).Patch("/password", h.UpdateUserPassword)
			})
		})

		// 课程目录是只读的，由服务启动时加载
		r.Get("/catalog", h.GetCatalog)
		r.Post("/schedules/evaluate", h.EvaluateSchedule)

		r.Route("/schedule-runs", func(r chi.Router) {
			r.With(h.RequiredRole(domain.RoleOperator, domain.RoleAdmin)).With(h.myInfo).Post("/", h.CreateScheduleRun)
			r.Get("/", h.GetAllScheduleRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.scheduleRun)
				r.Get("/", h.GetScheduleRun)
				r.Get("/progress", h.GetScheduleRunProgress)
				r.Get("/report", h.GetScheduleRunReport)
				r.With(h.RequiredRole(domain.RoleOperator, domain.RoleAdmin)).Post("/cancel", h.CancelScheduleRun)
				r.With(h.RequiredRole(domain.RoleAdmin)).Delete("/", h.DeleteScheduleRun)
			})
		})
	})
}
