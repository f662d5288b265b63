package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/fleetops-dev/duty-roster/backend/internal/compliance"
	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/fleetops-dev/duty-roster/backend/internal/matcher"
	"github.com/fleetops-dev/duty-roster/backend/internal/prediction"
	"github.com/fleetops-dev/duty-roster/backend/internal/repository"
)

type Handler struct {
	validate         *validator.Validate
	config           *config.Config
	repository       *repository.Repository
	translator       ut.Translator
	amqpChannel      *amqp.Channel
	redisClient      *redis.Client
	matcher          *matcher.Matcher
	predictionClient *prediction.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, amqpCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	complianceValidator, err := compliance.NewValidator(cfg)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:         validate,
		config:           cfg,
		repository:       repo,
		translator:       trans,
		amqpChannel:      amqpCh,
		redisClient:      rdb,
		matcher:          matcher.New(complianceValidator, cfg),
		predictionClient: prediction.NewClient(cfg, rdb),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteUser)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/password", h.UpdateUserPassword)
			})
		})

		r.Route("/drivers", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateDriver)
			r.Get("/", h.GetAllDrivers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.driver)
				r.Get("/", h.GetDriver)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateDriver)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteDriver)
				r.Get("/assignments", h.GetDriverAssignments)
				r.Route("/unavailability", func(r chi.Router) {
					r.Get("/", h.GetDriverUnavailability)
					r.Post("/", h.CreateDriverUnavailability)
					r.Delete("/{itemID}", h.DeleteDriverUnavailability)
				})
			})
		})

		r.Route("/protected-rules", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
			r.Post("/", h.CreateProtectedRule)
			r.Get("/", h.GetAllProtectedRules)
			r.Patch("/{id}", h.UpdateProtectedRule)
			r.Delete("/{id}", h.DeleteProtectedRule)
		})

		r.Route("/duty-subjects", func(r chi.Router) {
			r.Get("/", h.GetSubjectsInRange)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/legacy-blocks", h.ImportLegacyBlocks)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/occurrences", h.ImportOccurrences)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/{id}", h.DeleteSubject)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.GetAssignments)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/{id}/archive", h.ArchiveAssignment)
		})

		r.Route("/match-runs", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Post("/", h.CreateMatchRun)
			r.Post("/dry-run", h.DryRunMatch)
			r.Get("/", h.GetAllMatchRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.matchRun)
				r.Get("/", h.GetMatchRun)
			})
		})
	})
}
