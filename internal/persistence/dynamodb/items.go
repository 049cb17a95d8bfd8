package dynamodb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/pool-backoffice/internal/persistence"
)

const (
	attrID      = "id"
	attrKind    = "kind"
	attrVersion = "version"

	kindEstimate = "estimate"
	kindNumber   = "estimate_number"
	kindSequence = "estimate_sequence"

	timeLayout = "2006-01-02T15:04:05.000000000Z"
	dateLayout = "2006-01-02"
)

type eventItem struct {
	ID          string  `dynamodbav:"id"`
	Title       string  `dynamodbav:"title"`
	Start       string  `dynamodbav:"start_time"`
	End         string  `dynamodbav:"end_time"`
	AllDay      bool    `dynamodbav:"all_day"`
	EventType   string  `dynamodbav:"event_type"`
	Status      string  `dynamodbav:"status"`
	CustomerID  string  `dynamodbav:"customer_id"`
	PropertyID  *string `dynamodbav:"property_id,omitempty"`
	PoolID      *string `dynamodbav:"pool_id,omitempty"`
	LocationURL *string `dynamodbav:"location_url,omitempty"`
	Description *string `dynamodbav:"description,omitempty"`
	CreatedBy   string  `dynamodbav:"created_by"`
	Version     int64   `dynamodbav:"version"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
}

type lineItemItem struct {
	ID             string  `dynamodbav:"id"`
	Description    string  `dynamodbav:"description"`
	Quantity       float64 `dynamodbav:"quantity"`
	UnitPriceCents int64   `dynamodbav:"unit_price_cents"`
	TotalCents     int64   `dynamodbav:"total_cents"`
}

type estimateItem struct {
	ID             string         `dynamodbav:"id"`
	Kind           string         `dynamodbav:"kind"`
	Number         string         `dynamodbav:"estimate_number"`
	Status         string         `dynamodbav:"status"`
	CustomerID     string         `dynamodbav:"customer_id"`
	PoolID         *string        `dynamodbav:"pool_id,omitempty"`
	LineItems      []lineItemItem `dynamodbav:"line_items"`
	SubtotalCents  int64          `dynamodbav:"subtotal_cents"`
	TaxRate        float64        `dynamodbav:"tax_rate"`
	TaxAmountCents int64          `dynamodbav:"tax_amount_cents"`
	TotalCents     int64          `dynamodbav:"total_cents"`
	ValidUntil     *string        `dynamodbav:"valid_until,omitempty"`
	Notes          *string        `dynamodbav:"notes,omitempty"`
	CreatedBy      string         `dynamodbav:"created_by"`
	Version        int64          `dynamodbav:"version"`
	CreatedAt      string         `dynamodbav:"created_at"`
	UpdatedAt      string         `dynamodbav:"updated_at"`
}

// numberItem reserves an estimate number so it cannot be reused.
type numberItem struct {
	ID         string `dynamodbav:"id"`
	Kind       string `dynamodbav:"kind"`
	EstimateID string `dynamodbav:"estimate_id"`
}

func numberKey(number string) string {
	return "number#" + number
}

func sequenceKey(year int) string {
	return fmt.Sprintf("sequence#%d", year)
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(field, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("dynamodb: parse %s: %w", field, err)
	}
	return t, nil
}

func toEventItem(e persistence.Event) eventItem {
	return eventItem{
		ID:          e.ID,
		Title:       e.Title,
		Start:       formatTime(e.Start),
		End:         formatTime(e.End),
		AllDay:      e.AllDay,
		EventType:   e.EventType,
		Status:      e.Status,
		CustomerID:  e.CustomerID,
		PropertyID:  e.PropertyID,
		PoolID:      e.PoolID,
		LocationURL: e.LocationURL,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		Version:     e.Version,
		CreatedAt:   formatTime(e.CreatedAt),
		UpdatedAt:   formatTime(e.UpdatedAt),
	}
}

func fromEventItem(it eventItem) (persistence.Event, error) {
	event := persistence.Event{
		ID:          it.ID,
		Title:       it.Title,
		AllDay:      it.AllDay,
		EventType:   it.EventType,
		Status:      it.Status,
		CustomerID:  it.CustomerID,
		PropertyID:  it.PropertyID,
		PoolID:      it.PoolID,
		LocationURL: it.LocationURL,
		Description: it.Description,
		CreatedBy:   it.CreatedBy,
		Version:     it.Version,
	}
	var err error
	if event.Start, err = parseTime("start_time", it.Start); err != nil {
		return persistence.Event{}, err
	}
	if event.End, err = parseTime("end_time", it.End); err != nil {
		return persistence.Event{}, err
	}
	if event.CreatedAt, err = parseTime("created_at", it.CreatedAt); err != nil {
		return persistence.Event{}, err
	}
	if event.UpdatedAt, err = parseTime("updated_at", it.UpdatedAt); err != nil {
		return persistence.Event{}, err
	}
	return event, nil
}

func toEstimateItem(e persistence.Estimate) estimateItem {
	items := make([]lineItemItem, len(e.LineItems))
	for i, li := range e.LineItems {
		items[i] = lineItemItem{
			ID:             li.ID,
			Description:    li.Description,
			Quantity:       li.Quantity,
			UnitPriceCents: li.UnitPriceCents,
			TotalCents:     li.TotalCents,
		}
	}
	var validUntil *string
	if e.ValidUntil != nil {
		date := e.ValidUntil.Format(dateLayout)
		validUntil = &date
	}
	return estimateItem{
		ID:             e.ID,
		Kind:           kindEstimate,
		Number:         e.Number,
		Status:         e.Status,
		CustomerID:     e.CustomerID,
		PoolID:         e.PoolID,
		LineItems:      items,
		SubtotalCents:  e.SubtotalCents,
		TaxRate:        e.TaxRate,
		TaxAmountCents: e.TaxAmountCents,
		TotalCents:     e.TotalCents,
		ValidUntil:     validUntil,
		Notes:          e.Notes,
		CreatedBy:      e.CreatedBy,
		Version:        e.Version,
		CreatedAt:      formatTime(e.CreatedAt),
		UpdatedAt:      formatTime(e.UpdatedAt),
	}
}

func fromEstimateItem(it estimateItem) (persistence.Estimate, error) {
	estimate := persistence.Estimate{
		ID:             it.ID,
		Number:         it.Number,
		Status:         it.Status,
		CustomerID:     it.CustomerID,
		PoolID:         it.PoolID,
		LineItems:      make([]persistence.LineItem, len(it.LineItems)),
		SubtotalCents:  it.SubtotalCents,
		TaxRate:        it.TaxRate,
		TaxAmountCents: it.TaxAmountCents,
		TotalCents:     it.TotalCents,
		Notes:          it.Notes,
		CreatedBy:      it.CreatedBy,
		Version:        it.Version,
	}
	for i, li := range it.LineItems {
		estimate.LineItems[i] = persistence.LineItem{
			ID:             li.ID,
			Position:       i,
			Description:    li.Description,
			Quantity:       li.Quantity,
			UnitPriceCents: li.UnitPriceCents,
			TotalCents:     li.TotalCents,
		}
	}
	if it.ValidUntil != nil {
		date, err := time.Parse(dateLayout, *it.ValidUntil)
		if err != nil {
			return persistence.Estimate{}, fmt.Errorf("dynamodb: parse valid_until: %w", err)
		}
		estimate.ValidUntil = &date
	}
	var err error
	if estimate.CreatedAt, err = parseTime("created_at", it.CreatedAt); err != nil {
		return persistence.Estimate{}, err
	}
	if estimate.UpdatedAt, err = parseTime("updated_at", it.UpdatedAt); err != nil {
		return persistence.Estimate{}, err
	}
	return estimate, nil
}

// updateBuilder assembles an UpdateExpression with SET and REMOVE clauses.
type updateBuilder struct {
	sets    []string
	removes []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newUpdateBuilder() *updateBuilder {
	return &updateBuilder{
		names:  make(map[string]string),
		values: make(map[string]types.AttributeValue),
	}
}

func (b *updateBuilder) set(attr string, value any) error {
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return fmt.Errorf("dynamodb: marshal %s: %w", attr, err)
	}
	b.names["#"+attr] = attr
	b.values[":"+attr] = av
	b.sets = append(b.sets, fmt.Sprintf("#%s = :%s", attr, attr))
	return nil
}

// setOrRemove sets attr when value is non-nil and removes it otherwise.
func (b *updateBuilder) setOrRemove(attr string, value *string) error {
	if value == nil {
		b.names["#"+attr] = attr
		b.removes = append(b.removes, "#"+attr)
		return nil
	}
	return b.set(attr, *value)
}

func (b *updateBuilder) expression() string {
	var parts []string
	if len(b.sets) > 0 {
		parts = append(parts, "SET "+strings.Join(b.sets, ", "))
	}
	if len(b.removes) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(b.removes, ", "))
	}
	return strings.Join(parts, " ")
}

// versionGuard adds the optimistic concurrency check and bumps the version.
func (b *updateBuilder) versionGuard(expected int64) string {
	b.names["#"+attrID] = attrID
	b.names["#"+attrVersion] = attrVersion
	b.values[":expected"] = &types.AttributeValueMemberN{Value: fmt.Sprint(expected)}
	b.values[":next"] = &types.AttributeValueMemberN{Value: fmt.Sprint(expected + 1)}
	b.sets = append(b.sets, "#version = :next")
	return "attribute_exists(#id) AND #version = :expected"
}

// mapConditionalFailure turns a failed condition into ErrNotFound when no
// item existed and ErrVersionConflict otherwise. Other errors pass through.
func mapConditionalFailure(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return err
	}
	if len(ccf.Item) == 0 {
		return persistence.ErrNotFound
	}
	return persistence.ErrVersionConflict
}

func sortEvents(events []persistence.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
}

func sortEstimates(estimates []persistence.Estimate) {
	sort.Slice(estimates, func(i, j int) bool {
		if estimates[i].CreatedAt.Equal(estimates[j].CreatedAt) {
			return estimates[i].Number > estimates[j].Number
		}
		return estimates[i].CreatedAt.After(estimates[j].CreatedAt)
	})
}
