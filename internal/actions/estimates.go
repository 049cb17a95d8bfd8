package actions

import (
	"context"

	"github.com/example/pool-backoffice/internal/application"
	"github.com/example/pool-backoffice/internal/lineitems"
	"github.com/example/pool-backoffice/internal/workflow"
)

// CreateEstimate drafts a new estimate.
func (a *Actions) CreateEstimate(ctx context.Context, input application.EstimateInput) (result Result[EstimateView]) {
	logger := a.log(ctx, "CreateEstimate")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimate, err := a.estimates.CreateEstimate(ctx, application.CreateEstimateParams{Principal: p, Input: input})
	if err != nil {
		return failure[EstimateView](ctx, logger, err)
	}
	a.invalidate(estimatePaths(estimate)...)
	return OK(a.estimateView(estimate))
}

// GetEstimate returns one estimate.
func (a *Actions) GetEstimate(ctx context.Context, id string) (result Result[EstimateView]) {
	logger := a.log(ctx, "GetEstimate")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimate, err := a.estimates.GetEstimate(ctx, p, id)
	if err != nil {
		return failure[EstimateView](ctx, logger, err)
	}
	return OK(a.estimateView(estimate))
}

// ListEstimates returns estimates filtered by customer and status.
func (a *Actions) ListEstimates(ctx context.Context, customerID string, status workflow.Status) (result Result[[]EstimateView]) {
	logger := a.log(ctx, "ListEstimates")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[[]EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimates, err := a.estimates.ListEstimates(ctx, application.ListEstimatesParams{
		Principal:  p,
		CustomerID: customerID,
		Status:     status,
	})
	if err != nil {
		return failure[[]EstimateView](ctx, logger, err)
	}
	views := make([]EstimateView, 0, len(estimates))
	for _, estimate := range estimates {
		views = append(views, a.estimateView(estimate))
	}
	return OK(views)
}

// UpdateEstimate replaces the content of an estimate at version.
func (a *Actions) UpdateEstimate(ctx context.Context, id string, version int64, input application.EstimateInput) (result Result[EstimateView]) {
	logger := a.log(ctx, "UpdateEstimate")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimate, err := a.estimates.UpdateEstimate(ctx, application.UpdateEstimateParams{
		Principal:  p,
		EstimateID: id,
		Version:    version,
		Input:      input,
	})
	if err != nil {
		return failure[EstimateView](ctx, logger, err)
	}
	a.invalidate(estimatePaths(estimate)...)
	return OK(a.estimateView(estimate))
}

// EditLineItem applies one add, remove or update to an estimate's lines at
// version.
func (a *Actions) EditLineItem(ctx context.Context, id string, version int64, op application.LineItemOp, itemID string, patch lineitems.Patch) (result Result[EstimateView]) {
	logger := a.log(ctx, "EditLineItem")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimate, err := a.estimates.EditLineItem(ctx, application.EditLineItemParams{
		Principal:  p,
		EstimateID: id,
		Version:    version,
		Op:         op,
		ItemID:     itemID,
		Patch:      patch,
	})
	if err != nil {
		return failure[EstimateView](ctx, logger, err)
	}
	a.invalidate(estimatePaths(estimate)...)
	return OK(a.estimateView(estimate))
}

// ChangeEstimateStatus moves an estimate along the workflow at version.
func (a *Actions) ChangeEstimateStatus(ctx context.Context, id string, version int64, target workflow.Status) (result Result[EstimateView]) {
	logger := a.log(ctx, "ChangeEstimateStatus")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimate, err := a.estimates.ChangeEstimateStatus(ctx, application.ChangeEstimateStatusParams{
		Principal:  p,
		EstimateID: id,
		Version:    version,
		Target:     target,
	})
	if err != nil {
		return failure[EstimateView](ctx, logger, err)
	}
	a.invalidate(estimatePaths(estimate)...)
	return OK(a.estimateView(estimate))
}

// DuplicateEstimate copies an estimate into a new draft.
func (a *Actions) DuplicateEstimate(ctx context.Context, id string) (result Result[EstimateView]) {
	logger := a.log(ctx, "DuplicateEstimate")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[EstimateView](ctx)
	if denied != nil {
		return *denied
	}
	estimate, err := a.estimates.DuplicateEstimate(ctx, p, id)
	if err != nil {
		return failure[EstimateView](ctx, logger, err)
	}
	a.invalidate(estimatePaths(estimate)...)
	return OK(a.estimateView(estimate))
}

// DeleteEstimate removes an estimate regardless of version.
func (a *Actions) DeleteEstimate(ctx context.Context, id string) (result Result[Deleted]) {
	logger := a.log(ctx, "DeleteEstimate")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[Deleted](ctx)
	if denied != nil {
		return *denied
	}
	if err := a.estimates.DeleteEstimate(ctx, p, id); err != nil {
		return failure[Deleted](ctx, logger, err)
	}
	a.invalidate(application.ViewPathEstimates, application.EstimateViewPath(id), application.ViewPathCustomers)
	return OK(Deleted{ID: id})
}

// EstimateTransitions lists the statuses the estimate can move to next.
func (a *Actions) EstimateTransitions(ctx context.Context, id string) (result Result[[]workflow.Status]) {
	logger := a.log(ctx, "EstimateTransitions")
	defer recoverInto(ctx, logger, &result)

	p, denied := principal[[]workflow.Status](ctx)
	if denied != nil {
		return *denied
	}
	statuses, err := a.estimates.AvailableTransitions(ctx, p, id)
	if err != nil {
		return failure[[]workflow.Status](ctx, logger, err)
	}
	if statuses == nil {
		statuses = []workflow.Status{}
	}
	return OK(statuses)
}
