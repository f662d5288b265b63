package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

func (h *Handler) GetSubjectsInRange(w http.ResponseWriter, r *http.Request) {
	fromParam := r.URL.Query().Get("from")
	toParam := r.URL.Query().Get("to")

	from, err := time.Parse("2006-01-02", fromParam)
	if err != nil {
		h.errorResponse(w, r, "起始日期无效")
		return
	}
	to, err := time.Parse("2006-01-02", toParam)
	if err != nil {
		h.errorResponse(w, r, "结束日期无效")
		return
	}

	subjects, err := h.repository.GetSubjectsInRange(from, to.AddDate(0, 0, 1))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取任务列表成功", subjects)
}

// ImportLegacyBlocks 接收旧系统推送的班段。
// 旧系统的外部 id 不稳定，入库前统一转换成带前缀的任务 id，
// 同一批数据重复推送按覆盖处理
func (h *Handler) ImportLegacyBlocks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocks []struct {
			ExternalID   string    `json:"externalID" validate:"required"`
			StartTime    time.Time `json:"startTime" validate:"required"`
			EndTime      time.Time `json:"endTime" validate:"required"`
			DutyClass    string    `json:"dutyClass" validate:"required,oneof=A B"`
			PatternGroup string    `json:"patternGroup" validate:"required,oneof=sunWed wedSat mixed"`
			CycleID      string    `json:"cycleID"`
		} `json:"blocks" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	imported := make([]domain.DutySubject, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		block := domain.LegacyBlock{
			ExternalID:   b.ExternalID,
			StartTime:    b.StartTime,
			EndTime:      b.EndTime,
			DutyClass:    domain.DutyClass(b.DutyClass),
			PatternGroup: domain.PatternGroup(b.PatternGroup),
			CycleID:      b.CycleID,
		}

		subject := domain.SubjectFromLegacyBlock(&block)
		if subject.EndTime.Before(subject.StartTime) || subject.EndTime.Equal(subject.StartTime) {
			h.errorResponse(w, r, "班段 "+b.ExternalID+" 的结束时间必须晚于开始时间")
			return
		}

		if err := h.repository.UpsertSubject(&subject); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		imported = append(imported, subject)
	}

	h.successResponse(w, r, "班段导入成功", imported)
}

// ImportOccurrences 接收新系统按运营合同生成的发车记录
func (h *Handler) ImportOccurrences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Occurrences []struct {
			OperatorID   string    `json:"operatorID" validate:"required"`
			TemplateID   int64     `json:"templateID" validate:"required"`
			StartTime    time.Time `json:"startTime" validate:"required"`
			EndTime      time.Time `json:"endTime" validate:"required"`
			DutyClass    string    `json:"dutyClass" validate:"required,oneof=A B"`
			PatternGroup string    `json:"patternGroup" validate:"required,oneof=sunWed wedSat mixed"`
			CycleID      string    `json:"cycleID"`
		} `json:"occurrences" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	imported := make([]domain.DutySubject, 0, len(req.Occurrences))
	for _, o := range req.Occurrences {
		occ := domain.DutyOccurrence{
			OperatorID:   o.OperatorID,
			TemplateID:   o.TemplateID,
			StartTime:    o.StartTime,
			EndTime:      o.EndTime,
			DutyClass:    domain.DutyClass(o.DutyClass),
			PatternGroup: domain.PatternGroup(o.PatternGroup),
			CycleID:      o.CycleID,
		}

		subject := domain.SubjectFromOccurrence(&occ)
		if subject.EndTime.Before(subject.StartTime) || subject.EndTime.Equal(subject.StartTime) {
			h.errorResponse(w, r, "发车记录 "+o.OperatorID+" 的结束时间必须晚于开始时间")
			return
		}

		if err := h.repository.UpsertSubject(&subject); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		imported = append(imported, subject)
	}

	h.successResponse(w, r, "发车记录导入成功", imported)
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "id")
	if subjectID == "" {
		h.errorResponse(w, r, "任务ID无效")
		return
	}

	if err := h.repository.DeleteSubject(subjectID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除任务成功", nil)
}
