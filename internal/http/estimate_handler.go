package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/pool-backoffice/internal/actions"
	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/calendar"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/money"
	"github.com/example/pool-backoffice/internal/workflow"
)

//go:generate mockgen -source=estimate_handler.go -destination=mocks/mock_estimate_actions.go -package=mocks

// EstimateActions is the estimate surface served over HTTP.
type EstimateActions interface {
	CreateEstimate(ctx context.Context, input application.EstimateInput) actions.Result[actions.EstimateView]
	GetEstimate(ctx context.Context, id string) actions.Result[actions.EstimateView]
	ListEstimates(ctx context.Context, customerID string, status workflow.Status) actions.Result[[]actions.EstimateView]
	UpdateEstimate(ctx context.Context, id string, version int64, input application.EstimateInput) actions.Result[actions.EstimateView]
	EditLineItem(ctx context.Context, id string, version int64, op application.LineItemOp, itemID string, patch lineitems.Patch) actions.Result[actions.EstimateView]
	ChangeEstimateStatus(ctx context.Context, id string, version int64, target workflow.Status) actions.Result[actions.EstimateView]
	DuplicateEstimate(ctx context.Context, id string) actions.Result[actions.EstimateView]
	DeleteEstimate(ctx context.Context, id string) actions.Result[actions.Deleted]
	EstimateTransitions(ctx context.Context, id string) actions.Result[[]workflow.Status]
}

// EstimateHandler serves /estimates.
type EstimateHandler struct {
	actions   EstimateActions
	responder responder
	logger    *slog.Logger
}

// NewEstimateHandler builds the handler.
func NewEstimateHandler(actions EstimateActions, logger *slog.Logger) *EstimateHandler {
	base := defaultLogger(logger)
	return &EstimateHandler{actions: actions, responder: newResponder(base), logger: base}
}

func (h *EstimateHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EstimateHandler", operation, attrs...)
}

// List serves GET /estimates.
func (h *EstimateHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.actions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	var status workflow.Status
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		parsed, ok := workflow.ParseStatus(raw)
		if !ok {
			h.responder.writeValidation(r.Context(), w, "status", "is not a known estimate status")
			return
		}
		status = parsed
	}

	result := h.actions.ListEstimates(r.Context(), strings.TrimSpace(query.Get("customer_id")), status)
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(result, toEstimateDTOs))
}

// Create serves POST /estimates.
func (h *EstimateHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.actions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode estimate request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	input, field, err := req.toInput()
	if err != nil {
		h.responder.writeValidation(r.Context(), w, field, err.Error())
		return
	}

	result := h.actions.CreateEstimate(r.Context(), input)
	if result.Success {
		h.log(r.Context(), "Create", "estimate_id", result.Data.ID, "number", result.Data.Number).InfoContext(r.Context(), "estimate created")
	}
	writeResult(r.Context(), h.responder, w, http.StatusCreated, actions.Map(result, toEstimateDTO))
}

// Get serves GET /estimates/{id}.
func (h *EstimateHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(h.actions.GetEstimate(r.Context(), id), toEstimateDTO))
}

// Update serves PUT /estimates/{id}.
func (h *EstimateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	var req estimateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "estimate_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode estimate update", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	input, field, err := req.toInput()
	if err != nil {
		h.responder.writeValidation(r.Context(), w, field, err.Error())
		return
	}
	result := h.actions.UpdateEstimate(r.Context(), id, req.Version, input)
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(result, toEstimateDTO))
}

// ChangeStatus serves POST /estimates/{id}/status.
func (h *EstimateHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "ChangeStatus", "estimate_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode status request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	target, valid := workflow.ParseStatus(req.Status)
	if !valid {
		h.responder.writeValidation(r.Context(), w, "status", "is not a known estimate status")
		return
	}

	result := h.actions.ChangeEstimateStatus(r.Context(), id, req.Version, target)
	if result.Success {
		h.log(r.Context(), "ChangeStatus", "estimate_id", id, "status", string(target)).InfoContext(r.Context(), "estimate status changed")
	}
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(result, toEstimateDTO))
}

// EditLineItem serves POST /estimates/{id}/line-items. The body names the
// op (add, remove or update), the target item_id and the fields to set.
func (h *EstimateHandler) EditLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}

	var req lineItemEditRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "EditLineItem", "estimate_id", id, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode line item edit", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}
	patch, field, err := req.toPatch()
	if err != nil {
		h.responder.writeValidation(r.Context(), w, field, err.Error())
		return
	}
	op := application.LineItemOp(strings.ToLower(strings.TrimSpace(req.Op)))
	result := h.actions.EditLineItem(r.Context(), id, req.Version, op, strings.TrimSpace(req.ItemID), patch)
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(result, toEstimateDTO))
}

// Duplicate serves POST /estimates/{id}/duplicate.
func (h *EstimateHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}
	writeResult(r.Context(), h.responder, w, http.StatusCreated, actions.Map(h.actions.DuplicateEstimate(r.Context(), id), toEstimateDTO))
}

// Transitions serves GET /estimates/{id}/transitions.
func (h *EstimateHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}
	writeResult(r.Context(), h.responder, w, http.StatusOK, actions.Map(h.actions.EstimateTransitions(r.Context(), id), statusStrings))
}

// Delete serves DELETE /estimates/{id}.
func (h *EstimateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resourceID(w, r)
	if !ok {
		return
	}
	writeResult(r.Context(), h.responder, w, http.StatusOK, h.actions.DeleteEstimate(r.Context(), id))
}

func (h *EstimateHandler) resourceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.actions == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	id, ok := ResourceIDFromContext(r.Context())
	if !ok {
		h.log(r.Context(), "", "error_kind", "bad_request").WarnContext(r.Context(), "missing estimate id")
		h.responder.writeBadRequest(r.Context(), w, errMissingResourceID)
		return "", false
	}
	return id, true
}

type estimateRequest struct {
	CustomerID string            `json:"customer_id"`
	PoolID     *string           `json:"pool_id"`
	LineItems  []lineItemRequest `json:"line_items"`
	TaxRate    *float64          `json:"tax_rate"`
	ValidUntil *string           `json:"valid_until"`
	Notes      *string           `json:"notes"`
	Version    int64             `json:"version"`
}

type lineItemRequest struct {
	ID             string  `json:"id"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPrice      *string `json:"unit_price"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
}

type statusRequest struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

type lineItemEditRequest struct {
	Op             string   `json:"op"`
	ItemID         string   `json:"item_id"`
	Description    *string  `json:"description"`
	Quantity       *float64 `json:"quantity"`
	UnitPrice      *string  `json:"unit_price"`
	UnitPriceCents *int64   `json:"unit_price_cents"`
	Version        int64    `json:"version"`
}

func (r lineItemEditRequest) toPatch() (lineitems.Patch, string, error) {
	patch := lineitems.Patch{
		Description:    r.Description,
		Quantity:       r.Quantity,
		UnitPriceCents: r.UnitPriceCents,
	}
	if patch.UnitPriceCents == nil && r.UnitPrice != nil {
		cents, ok := money.ParseCurrencyToCents(*r.UnitPrice)
		if !ok {
			return lineitems.Patch{}, "unit_price", fmt.Errorf("must be a dollar amount such as 12.50")
		}
		patch.UnitPriceCents = &cents
	}
	return patch, "", nil
}

// toInput converts the request. On failure it names the offending field.
func (r estimateRequest) toInput() (application.EstimateInput, string, error) {
	items := make([]lineitems.Item, 0, len(r.LineItems))
	for i, raw := range r.LineItems {
		item := lineitems.Item{
			ID:          strings.TrimSpace(raw.ID),
			Description: raw.Description,
			Quantity:    raw.Quantity,
		}
		switch {
		case raw.UnitPriceCents != nil:
			item.UnitPriceCents = *raw.UnitPriceCents
		case raw.UnitPrice != nil:
			cents, ok := money.ParseCurrencyToCents(*raw.UnitPrice)
			if !ok {
				return application.EstimateInput{}, fmt.Sprintf("line_items[%d].unit_price", i), fmt.Errorf("must be a dollar amount such as 12.50")
			}
			item.UnitPriceCents = cents
		}
		items = append(items, item)
	}

	input := application.EstimateInput{
		CustomerID: strings.TrimSpace(r.CustomerID),
		PoolID:     r.PoolID,
		LineItems:  items,
		TaxRate:    r.TaxRate,
		Notes:      r.Notes,
	}
	if r.ValidUntil != nil && strings.TrimSpace(*r.ValidUntil) != "" {
		date, err := time.Parse(calendar.DateLayout, strings.TrimSpace(*r.ValidUntil))
		if err != nil {
			return application.EstimateInput{}, "valid_until", fmt.Errorf("must be YYYY-MM-DD")
		}
		input.ValidUntil = &date
	}
	return input, "", nil
}

type estimateDTO struct {
	ID                 string        `json:"id"`
	Number             string        `json:"number"`
	Status             string        `json:"status"`
	CustomerID         string        `json:"customer_id"`
	PoolID             *string       `json:"pool_id,omitempty"`
	LineItems          []lineItemDTO `json:"line_items"`
	SubtotalCents      int64         `json:"subtotal_cents"`
	Subtotal           string        `json:"subtotal"`
	TaxRate            float64       `json:"tax_rate"`
	TaxAmountCents     int64         `json:"tax_amount_cents"`
	TaxAmount          string        `json:"tax_amount"`
	TotalCents         int64         `json:"total_cents"`
	Total              string        `json:"total"`
	ValidUntil         *string       `json:"valid_until,omitempty"`
	Expired            bool          `json:"expired"`
	Notes              *string       `json:"notes,omitempty"`
	AllowedTransitions []string      `json:"allowed_transitions"`
	CreatedBy          string        `json:"created_by"`
	Version            int64         `json:"version"`
	CreatedAt          string        `json:"created_at"`
	UpdatedAt          string        `json:"updated_at"`
}

type lineItemDTO struct {
	ID             string  `json:"id"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	UnitPrice      string  `json:"unit_price"`
	TotalCents     int64   `json:"total_cents"`
	Total          string  `json:"total"`
}

func toEstimateDTO(view actions.EstimateView) estimateDTO {
	estimate := view.Estimate
	dto := estimateDTO{
		ID:                 estimate.ID,
		Number:             estimate.Number,
		Status:             string(estimate.Status),
		CustomerID:         estimate.CustomerID,
		PoolID:             estimate.PoolID,
		LineItems:          make([]lineItemDTO, 0, len(estimate.LineItems)),
		SubtotalCents:      estimate.SubtotalCents,
		Subtotal:           money.FormatCurrency(estimate.SubtotalCents),
		TaxRate:            estimate.TaxRate,
		TaxAmountCents:     estimate.TaxAmountCents,
		TaxAmount:          money.FormatCurrency(estimate.TaxAmountCents),
		TotalCents:         estimate.TotalCents,
		Total:              money.FormatCurrency(estimate.TotalCents),
		Expired:            view.Expired,
		Notes:              estimate.Notes,
		AllowedTransitions: statusStrings(view.AllowedTransitions),
		CreatedBy:          estimate.CreatedBy,
		Version:            estimate.Version,
		CreatedAt:          estimate.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          estimate.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, item := range estimate.LineItems {
		dto.LineItems = append(dto.LineItems, lineItemDTO{
			ID:             item.ID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			UnitPrice:      money.FormatCurrency(item.UnitPriceCents),
			TotalCents:     item.TotalCents,
			Total:          money.FormatCurrency(item.TotalCents),
		})
	}
	if estimate.ValidUntil != nil {
		formatted := estimate.ValidUntil.UTC().Format(calendar.DateLayout)
		dto.ValidUntil = &formatted
	}
	return dto
}

func toEstimateDTOs(views []actions.EstimateView) []estimateDTO {
	out := make([]estimateDTO, 0, len(views))
	for _, view := range views {
		out = append(out, toEstimateDTO(view))
	}
	return out
}

func statusStrings(statuses []workflow.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}
