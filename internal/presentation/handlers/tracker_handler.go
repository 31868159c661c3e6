package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/application/services"
	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/presentation/render"
)

// SessionCookie carries the dashboard session id
const SessionCookie = "lighter_session"

const sessionMaxAge = 30 * 24 * time.Hour

// User-facing messages
const (
	msgNoAddresses     = "주소를 입력해주세요."
	msgTooManyFmt      = "최대 %d개의 주소만 조회할 수 있습니다."
	msgInvalidAddress  = "올바르지 않은 주소입니다: %s"
	msgUpstreamFailed  = "데이터를 가져오는데 실패했습니다."
	msgCheckInProgress = "이미 조회가 진행 중입니다."
	msgNoHistory       = "내보낼 히스토리가 없습니다."
	msgInvalidBody     = "요청 형식이 올바르지 않습니다."
	msgInvalidView     = "알 수 없는 보기 모드입니다."
)

// TrackerHandler serves the balance tracker dashboard API
type TrackerHandler struct {
	tracker       *services.TrackerService
	sessions      *services.SessionRegistry
	location      *time.Location
	secureCookies bool
	now           func() time.Time
	logger        *zap.Logger
}

// NewTrackerHandler creates a new tracker handler
func NewTrackerHandler(
	tracker *services.TrackerService,
	sessions *services.SessionRegistry,
	location *time.Location,
	secureCookies bool,
	logger *zap.Logger,
) *TrackerHandler {
	if location == nil {
		location = time.UTC
	}
	return &TrackerHandler{
		tracker:       tracker,
		sessions:      sessions,
		location:      location,
		secureCookies: secureCookies,
		now:           time.Now,
		logger:        logger,
	}
}

// CheckRequest is the body of POST /check. Input is free-form text with one
// address per line or comma separated; Addresses wins when both are set.
type CheckRequest struct {
	Addresses []string `json:"addresses"`
	Input     string   `json:"input"`
}

// ViewRequest is the body of PUT /view
type ViewRequest struct {
	View string `json:"view"`
}

// HistoryResponse is the data of GET /history
type HistoryResponse struct {
	Key       string               `json:"key"`
	Addresses []string             `json:"addresses"`
	Snapshots entities.History     `json:"snapshots"`
	Stats     *render.HistoryStats `json:"stats,omitempty"`
	Chart     *render.ChartConfig  `json:"chart,omitempty"`
}

type dataResponse struct {
	Data interface{} `json:"data"`
}

// RegisterRoutes registers the tracker routes on a chi router
func (h *TrackerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/lighter/api", func(r chi.Router) {
		r.Post("/check", h.Check)
		r.Put("/view", h.SetView)
		r.Get("/history", h.GetHistory)
		r.Delete("/history", h.ClearHistory)
		r.Get("/history/export", h.ExportHistory)
	})
}

// Check handles POST /lighter/api/check
func (h *TrackerHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	addresses := services.CleanAddresses(req.Addresses)
	if len(addresses) == 0 {
		addresses = services.ParseAddressInput(req.Input)
	}

	if err := h.tracker.ValidateAddresses(addresses); err != nil {
		h.respondCheckError(w, err)
		return
	}
	for _, addr := range addresses {
		if !common.IsHexAddress(addr) || !strings.HasPrefix(strings.ToLower(addr), "0x") {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf(msgInvalidAddress, addr))
			return
		}
	}

	session := h.session(w, r)
	result, err := h.tracker.Check(r.Context(), session, addresses)
	if err != nil {
		h.respondCheckError(w, err)
		return
	}

	dashboard := render.BuildDashboard(result.State, result.History, render.Options{
		Location:   h.location,
		HistoryKey: result.HistoryKey,
	})
	h.respondJSON(w, http.StatusOK, dataResponse{Data: dashboard})
}

// SetView handles PUT /lighter/api/view
func (h *TrackerHandler) SetView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	view, err := entities.ParseViewMode(req.View)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, msgInvalidView)
		return
	}

	session := h.session(w, r)
	state := session.SetView(view)

	opts := render.Options{Location: h.location}
	var history entities.History
	if state.HasResults() {
		opts.HistoryKey, history = h.tracker.History(r.Context(), state.LastAddresses)
	}

	h.respondJSON(w, http.StatusOK, dataResponse{Data: render.BuildDashboard(state, history, opts)})
}

// GetHistory handles GET /lighter/api/history
func (h *TrackerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	addresses := h.queryAddresses(w, r)
	if len(addresses) == 0 {
		h.respondError(w, http.StatusBadRequest, msgNoAddresses)
		return
	}

	key, history := h.tracker.History(r.Context(), addresses)
	resp := HistoryResponse{
		Key:       key,
		Addresses: addresses,
		Snapshots: history,
		Stats:     render.Stats(history),
		Chart:     render.HistoryChart(history, h.location),
	}

	h.respondJSON(w, http.StatusOK, dataResponse{Data: resp})
}

// ClearHistory handles DELETE /lighter/api/history
func (h *TrackerHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	addresses := h.queryAddresses(w, r)
	if err := h.tracker.ClearHistory(r.Context(), addresses); err != nil {
		h.respondCheckError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportHistory handles GET /lighter/api/history/export
func (h *TrackerHandler) ExportHistory(w http.ResponseWriter, r *http.Request) {
	addresses := h.queryAddresses(w, r)
	if len(addresses) == 0 {
		h.respondError(w, http.StatusBadRequest, msgNoAddresses)
		return
	}

	_, history := h.tracker.History(r.Context(), addresses)

	var buf bytes.Buffer
	if err := services.ExportHistoryCSV(&buf, history, h.location); err != nil {
		if errors.Is(err, services.ErrNoHistory) {
			h.respondError(w, http.StatusNotFound, msgNoHistory)
			return
		}
		h.logger.Error("Failed to export history", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to export history")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, services.ExportFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// queryAddresses reads ?addresses=a,b and falls back to the addresses of
// the session's last check.
func (h *TrackerHandler) queryAddresses(w http.ResponseWriter, r *http.Request) []string {
	if raw := r.URL.Query().Get("addresses"); raw != "" {
		return services.ParseAddressInput(raw)
	}
	return h.session(w, r).State().LastAddresses
}

// session resolves the caller's session and refreshes its cookie
func (h *TrackerHandler) session(w http.ResponseWriter, r *http.Request) *services.Session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	s := h.sessions.Get(id)
	if s.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			MaxAge:   int(sessionMaxAge.Seconds()),
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

func (h *TrackerHandler) respondCheckError(w http.ResponseWriter, err error) {
	var limitErr *services.LimitError
	switch {
	case errors.Is(err, services.ErrNoAddresses):
		h.respondError(w, http.StatusBadRequest, msgNoAddresses)
	case errors.As(err, &limitErr):
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf(msgTooManyFmt, limitErr.Limit))
	case errors.Is(err, services.ErrCheckInProgress):
		h.respondError(w, http.StatusConflict, msgCheckInProgress)
	case errors.Is(err, services.ErrUpstream):
		h.respondError(w, http.StatusBadGateway, msgUpstreamFailed)
	default:
		h.logger.Error("Unexpected tracker error", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, msgUpstreamFailed)
	}
}

func (h *TrackerHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *TrackerHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
