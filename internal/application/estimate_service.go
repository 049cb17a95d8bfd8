package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/example/pool-backoffice/internal/calendar"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/workflow"
)

const maxEstimateNotesLength = 5000

// EstimateRepository captures the persistence interactions needed by the
// estimate service. UpdateEstimate follows the same conditional-write
// contract as EventRepository.UpdateEvent.
type EstimateRepository interface {
	CreateEstimate(ctx context.Context, estimate Estimate) (Estimate, error)
	GetEstimate(ctx context.Context, id string) (Estimate, error)
	UpdateEstimate(ctx context.Context, estimate Estimate, expectedVersion int64) (Estimate, error)
	DeleteEstimate(ctx context.Context, id string) error
	ListEstimates(ctx context.Context, filter EstimateRepositoryFilter) ([]Estimate, error)
	NextEstimateSequence(ctx context.Context, year int) (int, error)
}

// EstimateSettings carries the configurable defaults of the estimate service.
type EstimateSettings struct {
	// DefaultTaxRate applies when a new estimate omits its rate.
	DefaultTaxRate float64
	// ValidDays sets valid_until on new and duplicated estimates that omit it.
	ValidDays int
	// Location is the business timezone used for numbering years and dates.
	Location *time.Location
	// LineItemID assigns ids to line items submitted without one.
	LineItemID func() string
}

// EstimateService orchestrates validation, numbering, workflow and
// persistence for estimates.
type EstimateService struct {
	estimates   EstimateRepository
	directory   CustomerDirectory
	idGenerator func() string
	now         func() time.Time
	settings    EstimateSettings
	cache       *ViewCache
	logger      *slog.Logger
}

// NewEstimateService wires dependencies for estimate operations.
func NewEstimateService(estimates EstimateRepository, directory CustomerDirectory, idGenerator func() string, now func() time.Time, settings EstimateSettings, cache *ViewCache) *EstimateService {
	return NewEstimateServiceWithLogger(estimates, directory, idGenerator, now, settings, cache, nil)
}

// NewEstimateServiceWithLogger wires dependencies for estimate operations
// with a specific logger.
func NewEstimateServiceWithLogger(estimates EstimateRepository, directory CustomerDirectory, idGenerator func() string, now func() time.Time, settings EstimateSettings, cache *ViewCache, logger *slog.Logger) *EstimateService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.LineItemID == nil {
		settings.LineItemID = uuid.NewString
	}
	if settings.ValidDays < 0 {
		settings.ValidDays = 0
	}
	return &EstimateService{
		estimates:   estimates,
		directory:   directory,
		idGenerator: idGenerator,
		now:         now,
		settings:    settings,
		cache:       cache,
		logger:      defaultLogger(logger),
	}
}

func (s *EstimateService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EstimateService", operation, attrs...)
}

// CreateEstimate validates the input, allocates the next estimate number and
// stores a draft with server computed totals.
func (s *EstimateService) CreateEstimate(ctx context.Context, params CreateEstimateParams) (estimate Estimate, err error) {
	if s == nil || s.estimates == nil {
		return Estimate{}, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "CreateEstimate", "admin_id", params.Principal.AdminID, "customer_id", params.Input.CustomerID)
	defer func() {
		logOutcome(ctx, logger.With("estimate_id", estimate.ID, "estimate_number", estimate.Number), err, "estimate creation failed", "estimate created")
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return Estimate{}, err
	}

	input := s.normalizeEstimateInput(params.Input)
	taxRate := s.settings.DefaultTaxRate
	if input.TaxRate != nil {
		taxRate = *input.TaxRate
	}

	vErr := &ValidationError{}
	if input.CustomerID == "" {
		vErr.add("customer_id", "is required")
	}
	validateEstimateContent(input.LineItems, taxRate, input.Notes, vErr)
	if vErr.HasErrors() {
		return Estimate{}, vErr
	}

	if err = ensureCustomerExists(ctx, s.directory, input.CustomerID); err != nil {
		return Estimate{}, err
	}
	if err = ensurePoolExists(ctx, s.directory, input.PoolID); err != nil {
		return Estimate{}, err
	}

	now := s.now()
	number, err := s.allocateNumber(ctx, now)
	if err != nil {
		return Estimate{}, err
	}

	validUntil := input.ValidUntil
	if validUntil == nil {
		validUntil = s.defaultValidUntil(now)
	}

	estimate = Estimate{
		ID:         s.idGenerator(),
		Number:     number,
		Status:     workflow.StatusDraft,
		CustomerID: input.CustomerID,
		PoolID:     input.PoolID,
		ValidUntil: validUntil,
		Notes:      input.Notes,
		CreatedBy:  params.Principal.AdminID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyLineItems(&estimate, input.LineItems, taxRate)

	created, err := s.estimates.CreateEstimate(ctx, estimate)
	if err != nil {
		estimate = Estimate{}
		return Estimate{}, mapRepoError(err)
	}
	estimate = created
	return estimate, nil
}

// GetEstimate returns one estimate with its line items.
func (s *EstimateService) GetEstimate(ctx context.Context, principal Principal, id string) (estimate Estimate, err error) {
	if s == nil || s.estimates == nil {
		return Estimate{}, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "GetEstimate", "estimate_id", id)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "estimate lookup failed", "")
		}
	}()

	if err = requireAdmin(principal); err != nil {
		return Estimate{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Estimate{}, newValidationError("id", "is required")
	}

	path := EstimateViewPath(id)
	generation := s.cache.Generation()
	if cached, ok := s.cache.Get(path, ""); ok {
		if e, ok := cached.(Estimate); ok {
			return cloneEstimate(e), nil
		}
	}

	estimate, err = s.estimates.GetEstimate(ctx, id)
	if err != nil {
		return Estimate{}, mapRepoError(err)
	}
	s.cache.StoreIfCurrent(path, "", cloneEstimate(estimate), generation)
	return estimate, nil
}

// ListEstimates returns estimates newest first, optionally filtered by
// customer and status.
func (s *EstimateService) ListEstimates(ctx context.Context, params ListEstimatesParams) (estimates []Estimate, err error) {
	if s == nil || s.estimates == nil {
		return nil, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "ListEstimates", "customer_id", params.CustomerID, "status", params.Status)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "estimate listing failed", "")
			return
		}
		logger.DebugContext(ctx, "estimates listed", "count", len(estimates))
	}()

	if err = requireAdmin(params.Principal); err != nil {
		return nil, err
	}
	params.CustomerID = strings.TrimSpace(params.CustomerID)
	if params.Status != "" {
		status, ok := workflow.ParseStatus(string(params.Status))
		if !ok {
			return nil, newValidationError("status", fmt.Sprintf("unknown status %q", params.Status))
		}
		params.Status = status
	}

	cacheKey := buildEstimateListCacheKey(params)
	generation := s.cache.Generation()
	if cached, ok := s.cache.Get(ViewPathEstimates, cacheKey); ok {
		if list, ok := cached.([]Estimate); ok {
			return cloneEstimates(list), nil
		}
	}

	estimates, err = s.estimates.ListEstimates(ctx, EstimateRepositoryFilter{
		CustomerID: params.CustomerID,
		Status:     params.Status,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.cache.StoreIfCurrent(ViewPathEstimates, cacheKey, cloneEstimates(estimates), generation)
	return estimates, nil
}

// UpdateEstimate replaces the content of a non-final estimate, guarded by the
// caller's version. Line items, pool and notes are replaced; a nil tax rate
// or valid_until keeps the stored value.
func (s *EstimateService) UpdateEstimate(ctx context.Context, params UpdateEstimateParams) (estimate Estimate, err error) {
	if s == nil || s.estimates == nil {
		return Estimate{}, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "UpdateEstimate", "estimate_id", params.EstimateID, "version", params.Version)
	defer func() {
		logOutcome(ctx, logger.With("new_version", estimate.Version), err, "estimate update failed", "estimate updated")
	}()

	input := s.normalizeEstimateInput(params.Input)
	return s.mutate(ctx, params.Principal, params.EstimateID, params.Version, func(ctx context.Context, current *Estimate) error {
		if workflow.IsTerminal(current.Status) {
			return &EstimateNotEditableError{EstimateID: current.ID, Status: string(current.Status)}
		}

		taxRate := current.TaxRate
		if input.TaxRate != nil {
			taxRate = *input.TaxRate
		}
		vErr := &ValidationError{}
		if input.CustomerID != "" && input.CustomerID != current.CustomerID {
			vErr.add("customer_id", "cannot be changed")
		}
		validateEstimateContent(input.LineItems, taxRate, input.Notes, vErr)
		if vErr.HasErrors() {
			return vErr
		}
		if err := ensurePoolExists(ctx, s.directory, input.PoolID); err != nil {
			return err
		}

		current.PoolID = input.PoolID
		current.Notes = input.Notes
		if input.ValidUntil != nil {
			current.ValidUntil = input.ValidUntil
		}
		applyLineItems(current, input.LineItems, taxRate)
		return nil
	})
}

// EditLineItem adds, removes or patches one line of a non-final estimate and
// recomputes the totals. Removing the last line fails validation and an
// unknown line id is reported as not found.
func (s *EstimateService) EditLineItem(ctx context.Context, params EditLineItemParams) (estimate Estimate, err error) {
	if s == nil || s.estimates == nil {
		return Estimate{}, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "EditLineItem", "estimate_id", params.EstimateID, "version", params.Version, "op", params.Op, "item_id", params.ItemID)
	defer func() {
		logOutcome(ctx, logger.With("new_version", estimate.Version), err, "line item edit failed", "line item edited")
	}()

	itemID := strings.TrimSpace(params.ItemID)
	patch := params.Patch
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		patch.Description = &description
	}
	switch params.Op {
	case LineItemAdd, LineItemRemove, LineItemUpdate:
	default:
		if err = requireAdmin(params.Principal); err != nil {
			return Estimate{}, err
		}
		return Estimate{}, newValidationError("op", fmt.Sprintf("unknown line item operation %q", params.Op))
	}
	if params.Op != LineItemAdd && itemID == "" {
		if err = requireAdmin(params.Principal); err != nil {
			return Estimate{}, err
		}
		return Estimate{}, newValidationError("item_id", "is required")
	}

	return s.mutate(ctx, params.Principal, params.EstimateID, params.Version, func(_ context.Context, current *Estimate) error {
		if workflow.IsTerminal(current.Status) {
			return &EstimateNotEditableError{EstimateID: current.ID, Status: string(current.Status)}
		}

		var (
			items   []lineitems.Item
			editErr error
		)
		switch params.Op {
		case LineItemAdd:
			id := itemID
			if id == "" {
				id = s.settings.LineItemID()
			}
			items, editErr = lineitems.Update(lineitems.Add(current.LineItems, id), id, patch)
		case LineItemRemove:
			items, editErr = lineitems.Remove(current.LineItems, itemID)
		case LineItemUpdate:
			items, editErr = lineitems.Update(current.LineItems, itemID, patch)
		}
		switch {
		case errors.Is(editErr, lineitems.ErrLastItem):
			return newValidationError("line_items", "at least one line item is required")
		case errors.Is(editErr, lineitems.ErrItemNotFound):
			return fmt.Errorf("%w: line item %s on estimate %s", ErrNotFound, itemID, current.ID)
		case editErr != nil:
			return editErr
		}

		vErr := &ValidationError{}
		validateEstimateContent(items, current.TaxRate, current.Notes, vErr)
		if vErr.HasErrors() {
			return vErr
		}
		applyLineItems(current, items, current.TaxRate)
		return nil
	})
}

// ChangeEstimateStatus moves an estimate along the workflow, guarded by the
// caller's version. Disallowed targets fail with a
// *workflow.InvalidTransitionError and nothing is written.
func (s *EstimateService) ChangeEstimateStatus(ctx context.Context, params ChangeEstimateStatusParams) (estimate Estimate, err error) {
	if s == nil || s.estimates == nil {
		return Estimate{}, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "ChangeEstimateStatus", "estimate_id", params.EstimateID, "version", params.Version, "target", params.Target)
	defer func() {
		logOutcome(ctx, logger.With("new_version", estimate.Version), err, "estimate status change failed", "estimate status changed")
	}()

	target, ok := workflow.ParseStatus(string(params.Target))
	if !ok {
		if err = requireAdmin(params.Principal); err != nil {
			return Estimate{}, err
		}
		return Estimate{}, newValidationError("status", fmt.Sprintf("unknown status %q", params.Target))
	}
	return s.mutate(ctx, params.Principal, params.EstimateID, params.Version, func(_ context.Context, current *Estimate) error {
		if err := workflow.Transition(current.Status, target); err != nil {
			return err
		}
		current.Status = target
		return nil
	})
}

// DuplicateEstimate copies an estimate's line items, pool, tax rate and notes
// into a new draft with a fresh id, number and line item ids.
func (s *EstimateService) DuplicateEstimate(ctx context.Context, principal Principal, id string) (estimate Estimate, err error) {
	if s == nil || s.estimates == nil {
		return Estimate{}, fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "DuplicateEstimate", "source_id", id, "admin_id", principal.AdminID)
	defer func() {
		logOutcome(ctx, logger.With("estimate_id", estimate.ID, "estimate_number", estimate.Number), err, "estimate duplication failed", "estimate duplicated")
	}()

	if err = requireAdmin(principal); err != nil {
		return Estimate{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Estimate{}, newValidationError("id", "is required")
	}

	source, err := s.estimates.GetEstimate(ctx, id)
	if err != nil {
		return Estimate{}, mapRepoError(err)
	}

	now := s.now()
	number, err := s.allocateNumber(ctx, now)
	if err != nil {
		return Estimate{}, err
	}

	copyOf := Estimate{
		ID:         s.idGenerator(),
		Number:     number,
		Status:     workflow.StatusDraft,
		CustomerID: source.CustomerID,
		PoolID:     copyStringPtr(source.PoolID),
		ValidUntil: s.defaultValidUntil(now),
		Notes:      copyStringPtr(source.Notes),
		CreatedBy:  principal.AdminID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyLineItems(&copyOf, lineitems.Clone(source.LineItems, s.settings.LineItemID), source.TaxRate)

	created, err := s.estimates.CreateEstimate(ctx, copyOf)
	if err != nil {
		return Estimate{}, mapRepoError(err)
	}
	estimate = created
	return estimate, nil
}

// DeleteEstimate removes an estimate without a version check.
func (s *EstimateService) DeleteEstimate(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.estimates == nil {
		return fmt.Errorf("estimate service not configured")
	}
	logger := s.loggerWith(ctx, "DeleteEstimate", "estimate_id", id)
	defer func() { logOutcome(ctx, logger, err, "estimate deletion failed", "estimate deleted") }()

	if err = requireAdmin(principal); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return newValidationError("id", "is required")
	}
	if err = s.estimates.DeleteEstimate(ctx, id); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// AvailableTransitions lists the statuses the estimate may move to next.
func (s *EstimateService) AvailableTransitions(ctx context.Context, principal Principal, id string) ([]workflow.Status, error) {
	estimate, err := s.GetEstimate(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return workflow.AllowedNextStatuses(estimate.Status), nil
}

// IsExpired reports whether estimate is a sent quote whose valid_until date
// has passed in the business timezone.
func (s *EstimateService) IsExpired(estimate Estimate) bool {
	return IsEstimateExpired(estimate, s.now(), s.settings.Location)
}

// IsEstimateExpired reports whether a sent estimate's valid_until date lies
// before the calendar date of now in loc. Other statuses never expire.
func IsEstimateExpired(estimate Estimate, now time.Time, loc *time.Location) bool {
	if estimate.Status != workflow.StatusSent || estimate.ValidUntil == nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return calendar.AllDayDate(*estimate.ValidUntil).Before(today)
}

func (s *EstimateService) mutate(ctx context.Context, principal Principal, id string, version int64, change func(context.Context, *Estimate) error) (Estimate, error) {
	if err := requireAdmin(principal); err != nil {
		return Estimate{}, err
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(id) == "" {
		vErr.add("id", "is required")
	}
	if version < 1 {
		vErr.add("version", "must be a positive integer")
	}
	if vErr.HasErrors() {
		return Estimate{}, vErr
	}

	current, err := s.estimates.GetEstimate(ctx, id)
	if err != nil {
		return Estimate{}, mapRepoError(err)
	}
	if current.Version != version {
		return Estimate{}, fmt.Errorf("%w: estimate %s is at version %d, not %d", ErrConflict, id, current.Version, version)
	}

	updated := cloneEstimate(current)
	if err := change(ctx, &updated); err != nil {
		return Estimate{}, err
	}
	updated.UpdatedAt = s.now()

	stored, err := s.estimates.UpdateEstimate(ctx, updated, version)
	if err != nil {
		return Estimate{}, mapRepoError(err)
	}
	return stored, nil
}

func (s *EstimateService) allocateNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.In(s.settings.Location).Year()
	seq, err := s.estimates.NextEstimateSequence(ctx, year)
	if err != nil {
		return "", fmt.Errorf("allocate estimate number: %w", mapRepoError(err))
	}
	return FormatEstimateNumber(year, seq), nil
}

func (s *EstimateService) defaultValidUntil(now time.Time) *time.Time {
	if s.settings.ValidDays <= 0 {
		return nil
	}
	local := now.In(s.settings.Location)
	date := time.Date(local.Year(), local.Month(), local.Day()+s.settings.ValidDays, 0, 0, 0, 0, time.UTC)
	return &date
}

func (s *EstimateService) normalizeEstimateInput(input EstimateInput) EstimateInput {
	input.CustomerID = strings.TrimSpace(input.CustomerID)
	input.PoolID = normalizeOptionalString(input.PoolID)
	input.Notes = normalizeOptionalString(input.Notes)
	if input.ValidUntil != nil {
		date := calendar.AllDayDate(*input.ValidUntil)
		input.ValidUntil = &date
	}
	input.LineItems = lineitems.AssignMissingIDs(input.LineItems, s.settings.LineItemID)
	for i := range input.LineItems {
		input.LineItems[i].Description = strings.TrimSpace(input.LineItems[i].Description)
	}
	return input
}

// FormatEstimateNumber renders the human readable number, e.g. EST-2024-0007.
func FormatEstimateNumber(year, seq int) string {
	return fmt.Sprintf("EST-%04d-%04d", year, seq)
}

func validateEstimateContent(items []lineitems.Item, taxRate float64, notes *string, vErr *ValidationError) {
	vErr.merge(lineitems.Validate(items))
	if math.IsNaN(taxRate) || taxRate < 0 || taxRate >= 1 {
		vErr.add("tax_rate", "must be at least 0 and less than 1")
	}
	if notes != nil && utf8.RuneCountInString(*notes) > maxEstimateNotesLength {
		vErr.add("notes", fmt.Sprintf("must be at most %d characters", maxEstimateNotesLength))
	}
}

// applyLineItems stores items with recomputed totals and refreshes the
// aggregate amounts so they always derive from the lines.
func applyLineItems(estimate *Estimate, items []lineitems.Item, taxRate float64) {
	estimate.LineItems = lineitems.Recalculate(items)
	totals := lineitems.Compute(estimate.LineItems, taxRate)
	estimate.TaxRate = taxRate
	estimate.SubtotalCents = totals.SubtotalCents
	estimate.TaxAmountCents = totals.TaxAmountCents
	estimate.TotalCents = totals.TotalCents
}

func cloneEstimate(estimate Estimate) Estimate {
	estimate.LineItems = slices.Clone(estimate.LineItems)
	estimate.PoolID = copyStringPtr(estimate.PoolID)
	estimate.Notes = copyStringPtr(estimate.Notes)
	if estimate.ValidUntil != nil {
		v := *estimate.ValidUntil
		estimate.ValidUntil = &v
	}
	return estimate
}

func cloneEstimates(estimates []Estimate) []Estimate {
	out := make([]Estimate, len(estimates))
	for i, e := range estimates {
		out[i] = cloneEstimate(e)
	}
	return out
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
