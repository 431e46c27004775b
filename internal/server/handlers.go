package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/referral"
	"github.com/vanshika/affiliatedesk/internal/repository"
	"github.com/vanshika/affiliatedesk/internal/service"
)

const maxBodyBytes = 16 << 20

// APIHandlers exposes HTTP handlers for the back-office REST API.
type APIHandlers struct {
	logger   *slog.Logger
	service  *service.AffiliateService
	currency string
}

// NewAPIHandlers constructs an APIHandlers instance. currency is used when
// rendering money in exports.
func NewAPIHandlers(logger *slog.Logger, svc *service.AffiliateService, currency string) *APIHandlers {
	return &APIHandlers{
		logger:   logger,
		service:  svc,
		currency: currency,
	}
}

func (h *APIHandlers) listAffiliates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.ListAffiliates(r.Context(), service.ListAffiliatesParams{
		Page:      parseInt(query.Get("page"), 1),
		PageSize:  parseInt(query.Get("pageSize"), 50),
		Search:    query.Get("search"),
		Status:    query.Get("status"),
		Role:      query.Get("role"),
		ParentID:  query.Get("parentId"),
		SortField: query.Get("sortField"),
		SortOrder: query.Get("sortOrder"),
	})
	if err != nil {
		h.fail(w, r, err, "failed to list affiliates")
		return
	}

	resp := listAffiliatesResponse{
		Items:      make([]affiliateResponse, 0, len(result.Items)),
		Pagination: newPaginationResponse(result.Pagination),
	}
	for _, a := range result.Items {
		resp.Items = append(resp.Items, newAffiliateResponse(a))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) getAffiliate(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetAffiliate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "failed to fetch affiliate")
		return
	}
	resp := affiliateDetailResponse{
		affiliateResponse: newAffiliateResponse(detail.Affiliate),
		Children:          make([]affiliateResponse, 0, len(detail.Children)),
	}
	for _, c := range detail.Children {
		resp.Children = append(resp.Children, newAffiliateResponse(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) updateReferralCode(w http.ResponseWriter, r *http.Request) {
	var payload referralCodeRequest
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := r.PathValue("id")
	code, err := h.service.UpdateReferralCode(r.Context(), id, payload.Code)
	if err != nil {
		h.fail(w, r, err, "failed to update referral code")
		return
	}
	respondJSON(w, http.StatusOK, referralCodeResponse{AffiliateID: id, ReferralCode: code})
}

func (h *APIHandlers) suspendAffiliate(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Suspend(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "failed to suspend affiliate")
		return
	}
	respondJSON(w, http.StatusOK, newAffiliateResponse(a))
}

func (h *APIHandlers) activateAffiliate(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Activate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "failed to activate affiliate")
		return
	}
	respondJSON(w, http.StatusOK, newAffiliateResponse(a))
}

// fail maps service errors onto HTTP statuses. Anything unrecognised is
// logged and reported as msg with a 500.
func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		respondJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Error:  "validation failed",
			Fields: verrs,
		})
	case errors.Is(err, referral.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrReferralCodeTaken), errors.Is(err, ledger.ErrDuplicateAttribution):
		writeError(w, http.StatusConflict, err.Error())
	case service.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error(msg, "error", err, "path", r.URL.Path, "request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func parseBool(value string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
