package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	// 默认只返回有效分配，带 archived=true 时返回完整历史
	if r.URL.Query().Get("archived") == "true" {
		assignments, err := h.repository.GetAllAssignments()
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		h.successResponse(w, r, "获取分配记录成功", assignments)
		return
	}

	assignments, err := h.repository.GetActiveAssignments()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取分配记录成功", assignments)
}

func (h *Handler) ArchiveAssignment(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "分配记录ID无效")
		return
	}

	if err := h.repository.ArchiveAssignment(id); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "撤销分配成功", nil)
}
