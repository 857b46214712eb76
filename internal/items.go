package internal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hardware-inventory/internal/inventory"
	"hardware-inventory/internal/models"
	"hardware-inventory/pkg/importer"
)

// GET /groups?q=
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	sendListResponse(w, s.Store.Search(params.q), params)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	it, ok := s.Store.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "", "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var in models.HardwareItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "", err.Error())
		return
	}
	in.ID = ""

	out, err := s.Store.Save(in)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var in models.HardwareItem
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "", err.Error())
		return
	}
	in.ID = chi.URLParam(r, "id")

	out, err := s.Store.Save(in)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Delete(chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type costLockResponse struct {
	Locked      bool             `json:"locked"`
	MonthlyCost *decimal.Decimal `json:"monthlyCost,omitempty"`
}

// GET /cost-lock?name=&brand=&model=
func (s *Server) costLock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cost, locked := s.Store.CostLock(q.Get("name"), q.Get("brand"), q.Get("model"))
	resp := costLockResponse{Locked: locked}
	if locked {
		resp.MonthlyCost = &cost
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) exportExcel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.xlsx"`)
	if err := importer.ExportExcel(w, s.Store.Groups()); err != nil {
		LoggerFromContext(r.Context()).Error("export failed", zap.Error(err))
	}
}

// storeError maps store errors to HTTP responses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *inventory.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", ve.Field, ve.Error())
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "", err.Error())
	case errors.Is(err, inventory.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "", err.Error())
	default:
		LoggerFromContext(r.Context()).Error("store operation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "", "internal error")
	}
}
