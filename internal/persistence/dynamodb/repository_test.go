package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/example/pool-backoffice/internal/persistence"
)

var baseTime = time.Date(2024, time.March, 4, 15, 0, 0, 0, time.UTC)

func sampleEvent(id string, start time.Time) persistence.Event {
	property := "property-1"
	return persistence.Event{
		ID:         id,
		Title:      "Pool consultation",
		Start:      start,
		End:        start.Add(time.Hour),
		EventType:  "consultation",
		Status:     "scheduled",
		CustomerID: "customer-1",
		PropertyID: &property,
		CreatedBy:  "admin-1",
		Version:    1,
		CreatedAt:  baseTime,
		UpdatedAt:  baseTime,
	}
}

func sampleEstimate() persistence.Estimate {
	validUntil := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)
	return persistence.Estimate{
		ID:         "estimate-1",
		Number:     "EST-2024-0001",
		Status:     "draft",
		CustomerID: "customer-1",
		LineItems: []persistence.LineItem{
			{ID: "11111111-1111-4111-8111-111111111111", Position: 0, Description: "Filter", Quantity: 1, UnitPriceCents: 10000, TotalCents: 10000},
			{ID: "22222222-2222-4222-8222-222222222222", Position: 1, Description: "Labor", Quantity: 2, UnitPriceCents: 2500, TotalCents: 5000},
		},
		SubtotalCents:  15000,
		TaxRate:        0.07,
		TaxAmountCents: 1050,
		TotalCents:     16050,
		ValidUntil:     &validUntil,
		CreatedBy:      "admin-1",
		Version:        1,
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
	}
}

func marshalEvent(t *testing.T, event persistence.Event) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(toEventItem(event))
	require.NoError(t, err)
	return av
}

func TestEventRepository_CreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("writes item guarded by attribute_not_exists", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEventRepository(api, "events")

		api.EXPECT().PutItem(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
				assert.Equal(t, "events", aws.ToString(in.TableName))
				assert.Equal(t, "attribute_not_exists(#id)", aws.ToString(in.ConditionExpression))
				assert.Equal(t, &types.AttributeValueMemberS{Value: "event-1"}, in.Item["id"])
				assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-03-04T15:00:00.000000000Z"}, in.Item["start_time"])
				_, hasPool := in.Item["pool_id"]
				assert.False(t, hasPool)
				return &ddb.PutItemOutput{}, nil
			})

		require.NoError(t, repo.CreateEvent(context.Background(), sampleEvent("event-1", baseTime)))
	})

	t.Run("existing id is a duplicate", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEventRepository(api, "events")

		api.EXPECT().PutItem(gomock.Any(), gomock.Any()).
			Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")})

		err := repo.CreateEvent(context.Background(), sampleEvent("event-1", baseTime))
		assert.ErrorIs(t, err, persistence.ErrDuplicate)
	})

	t.Run("end before start is rejected locally", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := NewEventRepository(NewMockAPI(ctrl), "events")

		event := sampleEvent("event-1", baseTime)
		event.End = baseTime.Add(-time.Minute)
		assert.ErrorIs(t, repo.CreateEvent(context.Background(), event), persistence.ErrConstraintViolation)
	})
}

func TestEventRepository_GetEvent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	repo := NewEventRepository(api, "")

	stored := sampleEvent("event-1", baseTime)
	gomock.InOrder(
		api.EXPECT().GetItem(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
				assert.Equal(t, DefaultEventsTable, aws.ToString(in.TableName))
				assert.True(t, aws.ToBool(in.ConsistentRead))
				return &ddb.GetItemOutput{Item: marshalEvent(t, stored)}, nil
			}),
		api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&ddb.GetItemOutput{}, nil),
	)

	event, err := repo.GetEvent(context.Background(), "event-1")
	require.NoError(t, err)
	assert.Equal(t, stored, event)

	_, err = repo.GetEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestEventRepository_UpdateEvent(t *testing.T) {
	t.Parallel()

	t.Run("conditional write bumps version", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEventRepository(api, "events")

		event := sampleEvent("event-1", baseTime)
		event.PropertyID = nil
		event.Title = "Moved"

		api.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
				assert.Equal(t, "attribute_exists(#id) AND #version = :expected", aws.ToString(in.ConditionExpression))
				assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, in.ExpressionAttributeValues[":expected"])
				assert.Equal(t, &types.AttributeValueMemberN{Value: "4"}, in.ExpressionAttributeValues[":next"])
				assert.Contains(t, aws.ToString(in.UpdateExpression), "#version = :next")
				assert.Contains(t, aws.ToString(in.UpdateExpression), "REMOVE #property_id, #pool_id, #location_url, #description")
				assert.Equal(t, types.ReturnValuesOnConditionCheckFailureAllOld, in.ReturnValuesOnConditionCheckFailure)

				stored := event
				stored.Version = 4
				return &ddb.UpdateItemOutput{Attributes: marshalEvent(t, stored)}, nil
			})

		updated, err := repo.UpdateEvent(context.Background(), event, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(4), updated.Version)
		assert.Equal(t, "Moved", updated.Title)
		assert.Nil(t, updated.PropertyID)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEventRepository(api, "events")

		event := sampleEvent("event-1", baseTime)
		api.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).Return(nil, &types.ConditionalCheckFailedException{
			Item: marshalEvent(t, event),
		})

		_, err := repo.UpdateEvent(context.Background(), event, 1)
		assert.ErrorIs(t, err, persistence.ErrVersionConflict)
	})

	t.Run("missing event is not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEventRepository(api, "events")

		api.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := repo.UpdateEvent(context.Background(), sampleEvent("event-9", baseTime), 1)
		assert.ErrorIs(t, err, persistence.ErrNotFound)
	})
}

func TestEventRepository_ListEventsFollowsPages(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	repo := NewEventRepository(api, "events")

	late := sampleEvent("event-late", baseTime.Add(2*time.Hour))
	early := sampleEvent("event-early", baseTime)
	cursor := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "event-late"}}

	gomock.InOrder(
		api.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
				assert.Equal(t,
					"#end_time >= :ends_after AND #start_time < :starts_before AND #status IN (:status0, :status1)",
					aws.ToString(in.FilterExpression))
				assert.Nil(t, in.ExclusiveStartKey)
				return &ddb.ScanOutput{Items: []map[string]types.AttributeValue{marshalEvent(t, late)}, LastEvaluatedKey: cursor}, nil
			}),
		api.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
				assert.Equal(t, cursor, in.ExclusiveStartKey)
				return &ddb.ScanOutput{Items: []map[string]types.AttributeValue{marshalEvent(t, early)}}, nil
			}),
	)

	events, err := repo.ListEvents(context.Background(), persistence.EventFilter{
		EndsAfter:    baseTime,
		StartsBefore: baseTime.Add(24 * time.Hour),
		Statuses:     []string{"scheduled", "completed"},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "event-early", events[0].ID)
	assert.Equal(t, "event-late", events[1].ID)
}

func TestEventRepository_DeleteEvent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	repo := NewEventRepository(api, "events")

	gomock.InOrder(
		api.EXPECT().DeleteItem(gomock.Any(), gomock.Any()).Return(&ddb.DeleteItemOutput{}, nil),
		api.EXPECT().DeleteItem(gomock.Any(), gomock.Any()).Return(nil, &types.ConditionalCheckFailedException{}),
	)

	require.NoError(t, repo.DeleteEvent(context.Background(), "event-1"))
	assert.ErrorIs(t, repo.DeleteEvent(context.Background(), "event-1"), persistence.ErrNotFound)
}

func TestEstimateRepository_CreateEstimate(t *testing.T) {
	t.Parallel()

	t.Run("reserves the number in the same transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEstimateRepository(api, "estimates")

		api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in *ddb.TransactWriteItemsInput, _ ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error) {
				require.Len(t, in.TransactItems, 2)
				estimate := in.TransactItems[0].Put
				reservation := in.TransactItems[1].Put
				require.NotNil(t, estimate)
				require.NotNil(t, reservation)
				assert.Equal(t, &types.AttributeValueMemberS{Value: kindEstimate}, estimate.Item["kind"])
				assert.Equal(t, &types.AttributeValueMemberS{Value: "number#EST-2024-0001"}, reservation.Item["id"])
				assert.Equal(t, &types.AttributeValueMemberS{Value: "2024-04-03"}, estimate.Item["valid_until"])
				return &ddb.TransactWriteItemsOutput{}, nil
			})

		require.NoError(t, repo.CreateEstimate(context.Background(), sampleEstimate()))
	})

	t.Run("reused number is a duplicate", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := NewMockAPI(ctrl)
		repo := NewEstimateRepository(api, "estimates")

		api.EXPECT().TransactWriteItems(gomock.Any(), gomock.Any()).Return(nil, &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		})

		err := repo.CreateEstimate(context.Background(), sampleEstimate())
		assert.ErrorIs(t, err, persistence.ErrDuplicate)
	})
}

func TestEstimateRepository_GetEstimate(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	repo := NewEstimateRepository(api, "estimates")

	stored := sampleEstimate()
	item, err := attributevalue.MarshalMap(toEstimateItem(stored))
	require.NoError(t, err)
	reservation, err := attributevalue.MarshalMap(numberItem{ID: numberKey(stored.Number), Kind: kindNumber, EstimateID: stored.ID})
	require.NoError(t, err)

	gomock.InOrder(
		api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&ddb.GetItemOutput{Item: item}, nil),
		api.EXPECT().GetItem(gomock.Any(), gomock.Any()).Return(&ddb.GetItemOutput{Item: reservation}, nil),
	)

	estimate, err := repo.GetEstimate(context.Background(), "estimate-1")
	require.NoError(t, err)
	assert.Equal(t, stored, estimate)

	_, err = repo.GetEstimate(context.Background(), numberKey(stored.Number))
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestEstimateRepository_UpdateEstimateConflict(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	repo := NewEstimateRepository(api, "estimates")

	stored := sampleEstimate()
	item, err := attributevalue.MarshalMap(toEstimateItem(stored))
	require.NoError(t, err)

	api.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
			assert.Equal(t, "attribute_exists(#id) AND #version = :expected AND #kind = :kind", aws.ToString(in.ConditionExpression))
			assert.NotContains(t, aws.ToString(in.UpdateExpression), "#estimate_number")
			return nil, &types.ConditionalCheckFailedException{Item: item}
		})

	stored.Status = "sent"
	_, err = repo.UpdateEstimate(context.Background(), stored, 7)
	assert.ErrorIs(t, err, persistence.ErrVersionConflict)
}

func TestEstimateRepository_NextEstimateSequence(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)
	repo := NewEstimateRepository(api, "estimates")

	api.EXPECT().UpdateItem(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
			assert.Equal(t, idKey("sequence#2024"), in.Key)
			assert.Equal(t, "ADD #last_value :one SET #kind = :kind", aws.ToString(in.UpdateExpression))
			return &ddb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{
				"last_value": &types.AttributeValueMemberN{Value: "12"},
			}}, nil
		})

	next, err := repo.NextEstimateSequence(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, 12, next)
}

func TestEnsureTables(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	api := NewMockAPI(ctrl)

	api.EXPECT().DescribeTable(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in *ddb.DescribeTableInput, _ ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error) {
			if aws.ToString(in.TableName) == "events" {
				return &ddb.DescribeTableOutput{}, nil
			}
			return nil, &types.ResourceNotFoundException{Message: aws.String("missing")}
		}).Times(2)
	api.EXPECT().CreateTable(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, in *ddb.CreateTableInput, _ ...func(*ddb.Options)) (*ddb.CreateTableOutput, error) {
			assert.Equal(t, "estimates", aws.ToString(in.TableName))
			assert.Equal(t, types.BillingModePayPerRequest, in.BillingMode)
			return &ddb.CreateTableOutput{}, nil
		})

	created, err := EnsureTables(context.Background(), api, "events", "estimates")
	require.NoError(t, err)
	assert.Equal(t, []string{"estimates"}, created)
}
