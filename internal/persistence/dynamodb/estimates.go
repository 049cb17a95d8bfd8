package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/pool-backoffice/internal/persistence"
)

// EstimateRepository implements persistence.EstimateRepository. The table
// holds three kinds of item: estimates (line items embedded as a list),
// number reservations keyed "number#<number>" and per-year sequence counters
// keyed "sequence#<year>".
type EstimateRepository struct {
	api   API
	table string
}

var _ persistence.EstimateRepository = (*EstimateRepository)(nil)

// NewEstimateRepository returns a repository for table.
func NewEstimateRepository(api API, table string) *EstimateRepository {
	if table == "" {
		table = DefaultEstimatesTable
	}
	return &EstimateRepository{api: api, table: table}
}

// CreateEstimate writes the estimate and reserves its number in one
// transaction; either clash yields ErrDuplicate.
func (r *EstimateRepository) CreateEstimate(ctx context.Context, estimate persistence.Estimate) error {
	if estimate.ID == "" || estimate.Number == "" {
		return persistence.ErrConstraintViolation
	}
	item, err := attributevalue.MarshalMap(toEstimateItem(estimate))
	if err != nil {
		return fmt.Errorf("dynamodb: marshal estimate: %w", err)
	}
	reservation, err := attributevalue.MarshalMap(numberItem{
		ID:         numberKey(estimate.Number),
		Kind:       kindNumber,
		EstimateID: estimate.ID,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: marshal number reservation: %w", err)
	}

	notExists := aws.String("attribute_not_exists(#id)")
	names := map[string]string{"#id": attrID}
	_, err = r.api.TransactWriteItems(ctx, &ddb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.table), Item: item, ConditionExpression: notExists, ExpressionAttributeNames: names}},
			{Put: &types.Put{TableName: aws.String(r.table), Item: reservation, ConditionExpression: notExists, ExpressionAttributeNames: names}},
		},
	})
	if err != nil {
		if conditionCanceled(err) {
			return persistence.ErrDuplicate
		}
		return fmt.Errorf("dynamodb: create estimate: %w", err)
	}
	return nil
}

// GetEstimate retrieves an estimate with a strongly consistent read.
func (r *EstimateRepository) GetEstimate(ctx context.Context, id string) (persistence.Estimate, error) {
	out, err := r.api.GetItem(ctx, &ddb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return persistence.Estimate{}, fmt.Errorf("dynamodb: get estimate: %w", err)
	}
	if len(out.Item) == 0 {
		return persistence.Estimate{}, persistence.ErrNotFound
	}
	var it estimateItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return persistence.Estimate{}, fmt.Errorf("dynamodb: unmarshal estimate: %w", err)
	}
	if it.Kind != kindEstimate {
		return persistence.Estimate{}, persistence.ErrNotFound
	}
	return fromEstimateItem(it)
}

// UpdateEstimate rewrites the estimate and its line items when the stored
// version equals expectedVersion. Number, author and creation time are kept.
func (r *EstimateRepository) UpdateEstimate(ctx context.Context, estimate persistence.Estimate, expectedVersion int64) (persistence.Estimate, error) {
	next := toEstimateItem(estimate)

	b := newUpdateBuilder()
	for _, field := range []struct {
		attr  string
		value any
	}{
		{"status", next.Status},
		{"customer_id", next.CustomerID},
		{"line_items", next.LineItems},
		{"subtotal_cents", next.SubtotalCents},
		{"tax_rate", next.TaxRate},
		{"tax_amount_cents", next.TaxAmountCents},
		{"total_cents", next.TotalCents},
		{"updated_at", next.UpdatedAt},
	} {
		if err := b.set(field.attr, field.value); err != nil {
			return persistence.Estimate{}, err
		}
	}
	for _, field := range []struct {
		attr  string
		value *string
	}{
		{"pool_id", next.PoolID},
		{"valid_until", next.ValidUntil},
		{"notes", next.Notes},
	} {
		if err := b.setOrRemove(field.attr, field.value); err != nil {
			return persistence.Estimate{}, err
		}
	}
	condition := b.versionGuard(expectedVersion) + " AND #kind = :kind"
	b.names["#kind"] = attrKind
	b.values[":kind"] = &types.AttributeValueMemberS{Value: kindEstimate}

	out, err := r.api.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                           aws.String(r.table),
		Key:                                 idKey(estimate.ID),
		UpdateExpression:                    aws.String(b.expression()),
		ConditionExpression:                 aws.String(condition),
		ExpressionAttributeNames:            b.names,
		ExpressionAttributeValues:           b.values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if mapped := mapConditionalFailure(err); mapped != err {
			return persistence.Estimate{}, mapped
		}
		return persistence.Estimate{}, fmt.Errorf("dynamodb: update estimate: %w", err)
	}

	var it estimateItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return persistence.Estimate{}, fmt.Errorf("dynamodb: unmarshal estimate: %w", err)
	}
	return fromEstimateItem(it)
}

// DeleteEstimate removes the estimate and releases its number reservation.
func (r *EstimateRepository) DeleteEstimate(ctx context.Context, id string) error {
	current, err := r.GetEstimate(ctx, id)
	if err != nil {
		return err
	}

	_, err = r.api.TransactWriteItems(ctx, &ddb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:                aws.String(r.table),
				Key:                      idKey(current.ID),
				ConditionExpression:      aws.String("attribute_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": attrID},
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.table),
				Key:       idKey(numberKey(current.Number)),
			}},
		},
	})
	if err != nil {
		if conditionCanceled(err) {
			return persistence.ErrNotFound
		}
		return fmt.Errorf("dynamodb: delete estimate: %w", err)
	}
	return nil
}

// ListEstimates returns estimates newest first.
func (r *EstimateRepository) ListEstimates(ctx context.Context, filter persistence.EstimateFilter) ([]persistence.Estimate, error) {
	expression := "#kind = :kind"
	names := map[string]string{"#kind": attrKind}
	values := map[string]types.AttributeValue{
		":kind": &types.AttributeValueMemberS{Value: kindEstimate},
	}
	if filter.CustomerID != "" {
		expression += " AND #customer_id = :customer_id"
		names["#customer_id"] = "customer_id"
		values[":customer_id"] = &types.AttributeValueMemberS{Value: filter.CustomerID}
	}
	if filter.Status != "" {
		expression += " AND #status = :status"
		names["#status"] = "status"
		values[":status"] = &types.AttributeValueMemberS{Value: filter.Status}
	}

	estimates := make([]persistence.Estimate, 0)
	err := scanAll(ctx, r.api, &ddb.ScanInput{
		TableName:                 aws.String(r.table),
		ConsistentRead:            aws.Bool(true),
		FilterExpression:          aws.String(expression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, func(item map[string]types.AttributeValue) error {
		var it estimateItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return fmt.Errorf("dynamodb: unmarshal estimate: %w", err)
		}
		estimate, err := fromEstimateItem(it)
		if err != nil {
			return err
		}
		estimates = append(estimates, estimate)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEstimates(estimates)
	return estimates, nil
}

// NextEstimateSequence increments the counter for year with an atomic ADD.
func (r *EstimateRepository) NextEstimateSequence(ctx context.Context, year int) (int, error) {
	out, err := r.api.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              idKey(sequenceKey(year)),
		UpdateExpression: aws.String("ADD #last_value :one SET #kind = :kind"),
		ExpressionAttributeNames: map[string]string{
			"#last_value": "last_value",
			"#kind":       attrKind,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":  &types.AttributeValueMemberN{Value: "1"},
			":kind": &types.AttributeValueMemberS{Value: kindSequence},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("dynamodb: next estimate sequence: %w", err)
	}

	raw, ok := out.Attributes["last_value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamodb: next estimate sequence: missing last_value")
	}
	value, err := strconv.Atoi(raw.Value)
	if err != nil {
		return 0, fmt.Errorf("dynamodb: parse last_value: %w", err)
	}
	return value, nil
}

// conditionCanceled reports whether a transaction was canceled because one of
// its condition checks failed.
func conditionCanceled(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
