package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/fleetops-dev/duty-roster/backend/internal/utils"
)

type protectedRuleRequest struct {
	DriverID          int64    `json:"driverID" validate:"required"`
	Description       string   `json:"description"`
	EffectiveFrom     string   `json:"effectiveFrom" validate:"required,datetime=2006-01-02"`
	EffectiveTo       string   `json:"effectiveTo" validate:"omitempty,datetime=2006-01-02"`
	BlockedDays       []int32  `json:"blockedDays" validate:"dive,min=0,max=6"`
	AllowedDays       []int32  `json:"allowedDays" validate:"dive,min=0,max=6"`
	AllowedClasses    []string `json:"allowedClasses" validate:"dive,oneof=A B"`
	AllowedStartTimes []string `json:"allowedStartTimes" validate:"dive,datetime=15:04"`
	LatestStartTime   string   `json:"latestStartTime" validate:"omitempty,datetime=15:04"`
}

func (req *protectedRuleRequest) toDomain() (*domain.ProtectedDriverRule, error) {
	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return nil, err
	}

	var effectiveTo time.Time
	if req.EffectiveTo != "" {
		effectiveTo, err = time.Parse("2006-01-02", req.EffectiveTo)
		if err != nil {
			return nil, err
		}
	}

	rule := &domain.ProtectedDriverRule{
		DriverID:          req.DriverID,
		Description:       req.Description,
		EffectiveFrom:     effectiveFrom,
		EffectiveTo:       effectiveTo,
		BlockedDays:       make([]time.Weekday, 0, len(req.BlockedDays)),
		AllowedDays:       make([]time.Weekday, 0, len(req.AllowedDays)),
		AllowedClasses:    make([]domain.DutyClass, 0, len(req.AllowedClasses)),
		AllowedStartTimes: req.AllowedStartTimes,
		LatestStartTime:   req.LatestStartTime,
	}
	for _, day := range req.BlockedDays {
		rule.BlockedDays = append(rule.BlockedDays, time.Weekday(day))
	}
	for _, day := range req.AllowedDays {
		rule.AllowedDays = append(rule.AllowedDays, time.Weekday(day))
	}
	for _, class := range req.AllowedClasses {
		rule.AllowedClasses = append(rule.AllowedClasses, domain.DutyClass(class))
	}

	if err := utils.ValidateProtectedRule(rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (h *Handler) GetAllProtectedRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repository.GetAllProtectedRules()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取保护规则列表成功", rules)
}

func (h *Handler) CreateProtectedRule(w http.ResponseWriter, r *http.Request) {
	var req protectedRuleRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rule, err := req.toDomain()
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateProtectedRule(rule); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "保护规则创建成功", rule)
}

func (h *Handler) UpdateProtectedRule(w http.ResponseWriter, r *http.Request) {
	ruleIDParam := chi.URLParam(r, "id")
	ruleID, err := strconv.ParseInt(ruleIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "规则ID无效")
		return
	}

	var req protectedRuleRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	rule, err := req.toDomain()
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	rule.ID = ruleID

	// 更新走全量替换，乐观锁的 version 从现有规则里取
	existing, err := h.findRule(ruleID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "保护规则不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	rule.Version = existing.Version

	if err := h.repository.UpdateProtectedRule(rule); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新保护规则失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新保护规则成功", rule)
}

func (h *Handler) DeleteProtectedRule(w http.ResponseWriter, r *http.Request) {
	ruleIDParam := chi.URLParam(r, "id")
	ruleID, err := strconv.ParseInt(ruleIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "规则ID无效")
		return
	}

	if err := h.repository.DeleteProtectedRule(ruleID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除保护规则成功", nil)
}

func (h *Handler) findRule(id int64) (*domain.ProtectedDriverRule, error) {
	rules, err := h.repository.GetAllProtectedRules()
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		if rule.ID == id {
			return rule, nil
		}
	}
	return nil, sql.ErrNoRows
}
