package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/fleetops-dev/duty-roster/backend/internal/matcher"
)

type matchOptionsRequest struct {
	Predictability float64 `json:"predictability" validate:"min=0,max=1"`
	MinDaysFloor   int     `json:"minDaysFloor" validate:"required,oneof=3 4 5"`
	MinScore       float64 `json:"minScore" validate:"min=0,max=1"`
}

func (req *matchOptionsRequest) toDomain() domain.MatchOptions {
	return domain.MatchOptions{
		Predictability: req.Predictability,
		MinDaysFloor:   req.MinDaysFloor,
		MinScore:       req.MinScore,
	}
}

// CreateMatchRun 只负责登记运行并投递任务，
// 实际的匹配由 matchworker 异步执行
func (h *Handler) CreateMatchRun(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req matchOptionsRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	run := &domain.MatchRun{
		Status:    domain.MatchRunStatusPending,
		Options:   req.toDomain(),
		CreatedBy: myInfo.ID,
	}

	if err := h.repository.CreateMatchRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	task := domain.MatchTaskMessage{
		RunID:   run.ID,
		Options: run.Options,
	}
	taskData, err := json.Marshal(task)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.amqpChannel.PublishWithContext(
		ctx,
		"",
		"match_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        taskData,
		},
	); err != nil {
		// 任务投递失败时把运行标记为失败，避免一直停在 pending
		if failErr := h.repository.FailMatchRun(run.ID, "任务投递失败"); failErr != nil {
			h.logInternalServerError(r, failErr)
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "匹配任务已创建", run)
}

// DryRunMatch 同步执行一次匹配但不落库，供调度员调参数用
func (h *Handler) DryRunMatch(w http.ResponseWriter, r *http.Request) {
	var req matchOptionsRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	in, err := matcher.BuildInput(r.Context(), h.repository, h.predictionClient, time.Now(), req.toDomain())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	result, err := h.matcher.Match(r.Context(), in)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "试运行完成", result)
}

func (h *Handler) GetAllMatchRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repository.GetAllMatchRuns()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取匹配运行列表成功", runs)
}

func (h *Handler) GetMatchRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(MatchRunCtx).(*domain.MatchRun)
	h.successResponse(w, r, "获取匹配运行成功", run)
}
