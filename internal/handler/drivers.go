package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

func (h *Handler) GetAllDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.repository.GetAllDrivers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取司机列表成功", drivers)
}

func (h *Handler) GetDriver(w http.ResponseWriter, r *http.Request) {
	driver := r.Context().Value(DriverCtx).(*domain.Driver)
	h.successResponse(w, r, "获取司机信息成功", driver)
}

func (h *Handler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string  `json:"name" validate:"required"`
		ContractClass string  `json:"contractClass" validate:"required,oneof=A B both"`
		DaysOff       []int32 `json:"daysOff" validate:"dive,min=0,max=6"`
		WantsMoreWork bool    `json:"wantsMoreWork"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	daysOff := make([]time.Weekday, 0, len(req.DaysOff))
	for _, day := range req.DaysOff {
		daysOff = append(daysOff, time.Weekday(day))
	}

	driver := &domain.Driver{
		Name:          req.Name,
		ContractClass: domain.ContractClass(req.ContractClass),
		DaysOff:       daysOff,
		IsActive:      true,
		LoadEligible:  true,
		WantsMoreWork: req.WantsMoreWork,
	}

	if err := h.repository.CreateDriver(driver); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "drivers_name_key":
			h.badRequest(w, r, errors.New("司机姓名已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "司机创建成功", driver)
}

func (h *Handler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string  `json:"name"`
		ContractClass *string  `json:"contractClass" validate:"omitempty,oneof=A B both"`
		DaysOff       *[]int32 `json:"daysOff" validate:"omitempty,dive,min=0,max=6"`
		IsActive      *bool    `json:"isActive"`
		LoadEligible  *bool    `json:"loadEligible"`
		WantsMoreWork *bool    `json:"wantsMoreWork"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	driver := r.Context().Value(DriverCtx).(*domain.Driver)

	if req.Name != nil {
		driver.Name = *req.Name
	}
	if req.ContractClass != nil {
		driver.ContractClass = domain.ContractClass(*req.ContractClass)
	}
	if req.DaysOff != nil {
		daysOff := make([]time.Weekday, 0, len(*req.DaysOff))
		for _, day := range *req.DaysOff {
			daysOff = append(daysOff, time.Weekday(day))
		}
		driver.DaysOff = daysOff
	}
	if req.IsActive != nil {
		driver.IsActive = *req.IsActive
	}
	if req.LoadEligible != nil {
		driver.LoadEligible = *req.LoadEligible
	}
	if req.WantsMoreWork != nil {
		driver.WantsMoreWork = *req.WantsMoreWork
	}

	if err := h.repository.UpdateDriver(driver); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新司机信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新司机信息成功", driver)
}

func (h *Handler) DeleteDriver(w http.ResponseWriter, r *http.Request) {
	driver := r.Context().Value(DriverCtx).(*domain.Driver)

	if err := h.repository.DeleteDriver(driver.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除司机成功", nil)
}

func (h *Handler) GetDriverAssignments(w http.ResponseWriter, r *http.Request) {
	driver := r.Context().Value(DriverCtx).(*domain.Driver)

	assignments, err := h.repository.GetAssignmentsByDriver(driver.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取司机分配记录成功", assignments)
}

func (h *Handler) GetDriverUnavailability(w http.ResponseWriter, r *http.Request) {
	driver := r.Context().Value(DriverCtx).(*domain.Driver)

	items, err := h.repository.GetUnavailabilityByDriver(driver.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取请假记录成功", items)
}

func (h *Handler) CreateDriverUnavailability(w http.ResponseWriter, r *http.Request) {
	driver := r.Context().Value(DriverCtx).(*domain.Driver)

	var req struct {
		Date   string `json:"date" validate:"required,datetime=2006-01-02"`
		Reason string `json:"reason"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	item := &domain.Unavailability{
		DriverID: driver.ID,
		Date:     date,
		Reason:   req.Reason,
	}

	if err := h.repository.CreateUnavailability(item); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "driver_unavailability_driver_id_date_key":
			h.badRequest(w, r, errors.New("该日期的请假记录已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "请假记录创建成功", item)
}

func (h *Handler) DeleteDriverUnavailability(w http.ResponseWriter, r *http.Request) {
	itemIDParam := chi.URLParam(r, "itemID")
	itemID, err := strconv.ParseInt(itemIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "请假记录ID无效")
		return
	}

	if err := h.repository.DeleteUnavailability(itemID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除请假记录成功", nil)
}
