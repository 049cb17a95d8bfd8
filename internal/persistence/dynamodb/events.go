package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/pool-backoffice/internal/persistence"
)

// EventRepository implements persistence.EventRepository on one table keyed
// by event id.
type EventRepository struct {
	api   API
	table string
}

var _ persistence.EventRepository = (*EventRepository)(nil)

// NewEventRepository returns a repository for table.
func NewEventRepository(api API, table string) *EventRepository {
	if table == "" {
		table = DefaultEventsTable
	}
	return &EventRepository{api: api, table: table}
}

// CreateEvent stores a new event; an existing id yields ErrDuplicate.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" || event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}
	av, err := attributevalue.MarshalMap(toEventItem(event))
	if err != nil {
		return fmt.Errorf("dynamodb: marshal event: %w", err)
	}

	_, err = r.api.PutItem(ctx, &ddb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": attrID},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return persistence.ErrDuplicate
		}
		return fmt.Errorf("dynamodb: put event: %w", err)
	}
	return nil
}

// GetEvent retrieves an event with a strongly consistent read.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	out, err := r.api.GetItem(ctx, &ddb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return persistence.Event{}, fmt.Errorf("dynamodb: get event: %w", err)
	}
	if len(out.Item) == 0 {
		return persistence.Event{}, persistence.ErrNotFound
	}
	var it eventItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return persistence.Event{}, fmt.Errorf("dynamodb: unmarshal event: %w", err)
	}
	return fromEventItem(it)
}

// UpdateEvent rewrites the mutable attributes when the stored version equals
// expectedVersion. The failed-condition response carries the old item, which
// tells a missing event apart from a stale version.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event, expectedVersion int64) (persistence.Event, error) {
	if event.End.Before(event.Start) {
		return persistence.Event{}, persistence.ErrConstraintViolation
	}

	b := newUpdateBuilder()
	for _, field := range []struct {
		attr  string
		value any
	}{
		{"title", event.Title},
		{"start_time", formatTime(event.Start)},
		{"end_time", formatTime(event.End)},
		{"all_day", event.AllDay},
		{"event_type", event.EventType},
		{"status", event.Status},
		{"customer_id", event.CustomerID},
		{"updated_at", formatTime(event.UpdatedAt)},
	} {
		if err := b.set(field.attr, field.value); err != nil {
			return persistence.Event{}, err
		}
	}
	for _, field := range []struct {
		attr  string
		value *string
	}{
		{"property_id", event.PropertyID},
		{"pool_id", event.PoolID},
		{"location_url", event.LocationURL},
		{"description", event.Description},
	} {
		if err := b.setOrRemove(field.attr, field.value); err != nil {
			return persistence.Event{}, err
		}
	}
	condition := b.versionGuard(expectedVersion)

	out, err := r.api.UpdateItem(ctx, &ddb.UpdateItemInput{
		TableName:                           aws.String(r.table),
		Key:                                 idKey(event.ID),
		UpdateExpression:                    aws.String(b.expression()),
		ConditionExpression:                 aws.String(condition),
		ExpressionAttributeNames:            b.names,
		ExpressionAttributeValues:           b.values,
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if mapped := mapConditionalFailure(err); mapped != err {
			return persistence.Event{}, mapped
		}
		return persistence.Event{}, fmt.Errorf("dynamodb: update event: %w", err)
	}

	var it eventItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &it); err != nil {
		return persistence.Event{}, fmt.Errorf("dynamodb: unmarshal event: %w", err)
	}
	return fromEventItem(it)
}

// DeleteEvent removes an event unconditionally; a missing id yields ErrNotFound.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	_, err := r.api.DeleteItem(ctx, &ddb.DeleteItemInput{
		TableName:                aws.String(r.table),
		Key:                      idKey(id),
		ConditionExpression:      aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": attrID},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return persistence.ErrNotFound
		}
		return fmt.Errorf("dynamodb: delete event: %w", err)
	}
	return nil
}

// ListEvents scans the table with the filter pushed down as a
// FilterExpression and returns matches ordered by start then id.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	var (
		clauses []string
		names   = map[string]string{}
		values  = map[string]types.AttributeValue{}
	)
	if !filter.EndsAfter.IsZero() {
		clauses = append(clauses, "#end_time >= :ends_after")
		names["#end_time"] = "end_time"
		values[":ends_after"] = &types.AttributeValueMemberS{Value: formatTime(filter.EndsAfter)}
	}
	if !filter.StartsBefore.IsZero() {
		clauses = append(clauses, "#start_time < :starts_before")
		names["#start_time"] = "start_time"
		values[":starts_before"] = &types.AttributeValueMemberS{Value: formatTime(filter.StartsBefore)}
	}
	if filter.CustomerID != "" {
		clauses = append(clauses, "#customer_id = :customer_id")
		names["#customer_id"] = "customer_id"
		values[":customer_id"] = &types.AttributeValueMemberS{Value: filter.CustomerID}
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = fmt.Sprintf(":status%d", i)
			values[placeholders[i]] = &types.AttributeValueMemberS{Value: status}
		}
		clauses = append(clauses, "#status IN ("+strings.Join(placeholders, ", ")+")")
		names["#status"] = "status"
	}

	input := &ddb.ScanInput{
		TableName:      aws.String(r.table),
		ConsistentRead: aws.Bool(true),
	}
	if len(clauses) > 0 {
		input.FilterExpression = aws.String(strings.Join(clauses, " AND "))
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	events := make([]persistence.Event, 0)
	err := scanAll(ctx, r.api, input, func(item map[string]types.AttributeValue) error {
		var it eventItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return fmt.Errorf("dynamodb: unmarshal event: %w", err)
		}
		event, err := fromEventItem(it)
		if err != nil {
			return err
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortEvents(events)
	return events, nil
}

// scanAll follows LastEvaluatedKey until the table is exhausted.
func scanAll(ctx context.Context, api API, input *ddb.ScanInput, visit func(map[string]types.AttributeValue) error) error {
	for {
		out, err := api.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("dynamodb: scan %s: %w", aws.ToString(input.TableName), err)
		}
		for _, item := range out.Items {
			if err := visit(item); err != nil {
				return err
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
