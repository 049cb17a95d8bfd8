package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/pool-backoffice/internal/calendar"
)

func newTestEventService(t *testing.T, cache *ViewCache) (*EventService, *eventRepoFake, *fixedClock) {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	repo := newEventRepoFake()
	clock := newFixedClock(time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
	svc := NewEventService(repo, directoryStub{}, sequentialIDs("event"), clock.Now, loc, cache)
	return svc, repo, clock
}

func consultationInput() EventInput {
	return EventInput{
		Title:      "Initial consultation",
		Type:       EventTypeConsultation,
		Start:      time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
		CustomerID: "c1",
	}
}

func TestEventService_CreateEvent(t *testing.T) {
	t.Parallel()

	t.Run("stores scheduled events at version one with resolved details", func(t *testing.T) {
		t.Parallel()

		svc, _, clock := newTestEventService(t, nil)
		input := consultationInput()
		input.Title = "  Initial consultation  "
		input.PropertyID = strPtr("p1")
		input.PoolID = strPtr("pool-1")
		input.LocationURL = strPtr("https://maps.example.com/?q=12+Palm+Way")

		details, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: testAdmin, Input: input})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if details.ID != "event-1" || details.Version != 1 || details.Status != EventStatusScheduled {
			t.Fatalf("unexpected event %+v", details.Event)
		}
		if details.Title != "Initial consultation" {
			t.Fatalf("expected trimmed title, got %q", details.Title)
		}
		if details.CreatedBy != testAdmin.AdminID || !details.CreatedAt.Equal(clock.Now()) {
			t.Fatalf("expected audit fields, got %+v", details.Event)
		}
		if details.Customer == nil || details.Customer.Name != "Rivera Family" {
			t.Fatalf("expected customer details, got %+v", details.Customer)
		}
		if details.Property == nil || details.Property.Address != "12 Palm Way" || details.Pool == nil || details.Pool.Label != "Main pool" {
			t.Fatalf("expected property and pool details, got %+v %+v", details.Property, details.Pool)
		}
	})

	t.Run("reports malformed input field by field", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTestEventService(t, nil)
		input := EventInput{
			Type:        "pool_party",
			Start:       time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
			LocationURL: strPtr("not a url"),
		}
		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: testAdmin, Input: input})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"title", "event_type", "customer_id", "end", "location_url"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s to be reported, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("checks references", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTestEventService(t, nil)
		cases := map[string]struct {
			mutate   func(*EventInput)
			notFound bool
		}{
			"unknown customer":           {mutate: func(in *EventInput) { in.CustomerID = "ghost" }, notFound: true},
			"unknown property":           {mutate: func(in *EventInput) { in.PropertyID = strPtr("ghost") }, notFound: true},
			"unknown pool":               {mutate: func(in *EventInput) { in.PoolID = strPtr("ghost") }, notFound: true},
			"property of other customer": {mutate: func(in *EventInput) { in.PropertyID = strPtr("p2") }},
		}
		for name, tc := range cases {
			input := consultationInput()
			tc.mutate(&input)
			_, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: testAdmin, Input: input})
			if tc.notFound {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("%s: expected ErrNotFound, got %v", name, err)
				}
				continue
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.FieldErrors["property_id"] == "" {
				t.Fatalf("%s: expected property_id validation error, got %v", name, err)
			}
		}
	})

	t.Run("requires an admin principal", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTestEventService(t, nil)
		_, err := svc.CreateEvent(context.Background(), CreateEventParams{Input: consultationInput()})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		staff := Principal{AdminID: "staff-1", Role: RoleStaff}
		_, err = svc.CreateEvent(context.Background(), CreateEventParams{Principal: staff, Input: consultationInput()})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("stores all-day events as calendar dates", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newTestEventService(t, nil)
		input := consultationInput()
		input.AllDay = true
		input.Start = time.Date(2024, 6, 1, 22, 30, 0, 0, time.FixedZone("EDT", -4*3600))
		input.End = input.Start

		details, err := svc.CreateEvent(context.Background(), CreateEventParams{Principal: testAdmin, Input: input})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		if !details.Start.Equal(want) || !details.End.Equal(want) {
			t.Fatalf("expected date to be kept, got %s - %s", details.Start, details.End)
		}
	})
}

func TestEventService_RescheduleConflictScenario(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEventService(t, nil)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: consultationInput()})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	moved, err := svc.RescheduleEvent(ctx, RescheduleEventParams{
		Principal: testAdmin,
		EventID:   created.ID,
		Version:   1,
		Start:     time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RescheduleEvent failed: %v", err)
	}
	if moved.Version != 2 || moved.Start.Hour() != 14 {
		t.Fatalf("expected version 2 at 14:00, got %d at %s", moved.Version, moved.Start)
	}

	_, err = svc.CancelEvent(ctx, EventTransitionParams{Principal: testAdmin, EventID: created.ID, Version: 1})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale cancel, got %v", err)
	}

	current, err := svc.GetEvent(ctx, testAdmin, created.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	canceled, err := svc.CancelEvent(ctx, EventTransitionParams{Principal: testAdmin, EventID: created.ID, Version: current.Version})
	if err != nil {
		t.Fatalf("CancelEvent failed: %v", err)
	}
	if canceled.Version != 3 || canceled.Status != EventStatusCanceled {
		t.Fatalf("expected canceled at version 3, got %s at %d", canceled.Status, canceled.Version)
	}
}

func TestEventService_VersionMonotonicity(t *testing.T) {
	t.Parallel()

	svc, _, clock := newTestEventService(t, nil)
	ctx := context.Background()
	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: consultationInput()})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	version := created.Version
	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute)
		input := consultationInput()
		input.Title = "Consultation take " + string(rune('A'+i))
		updated, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: testAdmin, EventID: created.ID, Version: version, Input: input})
		if err != nil {
			t.Fatalf("UpdateEvent %d failed: %v", i, err)
		}
		if updated.Version != version+1 {
			t.Fatalf("expected version %d, got %d", version+1, updated.Version)
		}
		if !updated.UpdatedAt.Equal(clock.Now()) {
			t.Fatalf("expected updated_at to advance")
		}
		version = updated.Version
	}
	if version != 6 {
		t.Fatalf("expected final version 1+5, got %d", version)
	}
}

func TestEventService_ConcurrentWritersOneWins(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestEventService(t, nil)
	ctx := context.Background()
	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: consultationInput()})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			start := time.Date(2024, 6, 2, 8+offset, 0, 0, 0, time.UTC)
			_, err := svc.RescheduleEvent(ctx, RescheduleEventParams{Principal: testAdmin, EventID: created.ID, Version: 1, Start: start, End: start.Add(time.Hour)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != writers-1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d conflicts", wins, conflicts)
	}
	if repo.events[created.ID].Version != 2 {
		t.Fatalf("expected stored version 2, got %d", repo.events[created.ID].Version)
	}
}

func TestEventService_TerminalEventsAreImmutable(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newTestEventService(t, nil)
	ctx := context.Background()
	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: consultationInput()})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	completed, err := svc.CompleteEvent(ctx, EventTransitionParams{Principal: testAdmin, EventID: created.ID, Version: 1})
	if err != nil {
		t.Fatalf("CompleteEvent failed: %v", err)
	}
	before := repo.events[created.ID]
	updatesBefore := repo.updates

	attempts := map[string]func() error{
		"reschedule": func() error {
			_, err := svc.RescheduleEvent(ctx, RescheduleEventParams{Principal: testAdmin, EventID: created.ID, Version: completed.Version, Start: before.Start.Add(time.Hour), End: before.End.Add(time.Hour)})
			return err
		},
		"cancel": func() error {
			_, err := svc.CancelEvent(ctx, EventTransitionParams{Principal: testAdmin, EventID: created.ID, Version: completed.Version})
			return err
		},
		"complete": func() error {
			_, err := svc.CompleteEvent(ctx, EventTransitionParams{Principal: testAdmin, EventID: created.ID, Version: completed.Version})
			return err
		},
		"update": func() error {
			_, err := svc.UpdateEvent(ctx, UpdateEventParams{Principal: testAdmin, EventID: created.ID, Version: completed.Version, Input: consultationInput()})
			return err
		},
	}
	for action, attempt := range attempts {
		err := attempt()
		var notEditable *EventNotEditableError
		if !errors.As(err, &notEditable) {
			t.Fatalf("%s: expected EventNotEditableError, got %v", action, err)
		}
		if notEditable.Status != EventStatusCompleted || notEditable.Action != action {
			t.Fatalf("%s: unexpected error detail %+v", action, notEditable)
		}
	}
	if repo.updates != updatesBefore || repo.events[created.ID] != before {
		t.Fatalf("expected no writes after completion")
	}
}

func TestEventService_DeleteEvent(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEventService(t, nil)
	ctx := context.Background()
	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: consultationInput()})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	if err := svc.DeleteEvent(ctx, testAdmin, created.ID); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if err := svc.DeleteEvent(ctx, testAdmin, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.GetEvent(ctx, testAdmin, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEventService_ListEventsInRange(t *testing.T) {
	t.Parallel()

	cache := NewViewCache(time.Minute, 0, nil)
	svc, repo, _ := newTestEventService(t, cache)
	ctx := context.Background()

	create := func(input EventInput) EventDetails {
		t.Helper()
		details, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: input})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		return details
	}

	morning := consultationInput()
	allDay := consultationInput()
	allDay.Title = "Estimate visit window"
	allDay.Type = EventTypeEstimateVisit
	allDay.AllDay = true
	allDay.Start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	allDay.End = allDay.Start
	early := consultationInput()
	early.Title = "Early follow up"
	early.Type = EventTypeFollowUp
	early.CustomerID = "c2"
	early.Start = time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	early.End = early.Start.Add(30 * time.Minute)

	first := create(morning)
	second := create(allDay)
	third := create(early)

	june1 := calendar.ViewBounds(calendar.ViewDay, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), svc.Location())
	events, err := svc.ListEventsInRange(ctx, ListEventsParams{Principal: testAdmin, Range: june1})
	if err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}
	gotIDs := make([]string, len(events))
	for i, e := range events {
		gotIDs[i] = e.ID
	}
	wantIDs := []string{second.ID, first.ID, third.ID}
	if len(gotIDs) != len(wantIDs) {
		t.Fatalf("expected %v, got %v", wantIDs, gotIDs)
	}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("expected order %v, got %v", wantIDs, gotIDs)
		}
	}

	may31 := calendar.ViewBounds(calendar.ViewDay, time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC), svc.Location())
	events, err = svc.ListEventsInRange(ctx, ListEventsParams{Principal: testAdmin, Range: may31})
	if err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected all-day event to stay on its local date, got %d events", len(events))
	}

	filtered, err := svc.ListEventsInRange(ctx, ListEventsParams{Principal: testAdmin, Range: june1, CustomerID: "c2"})
	if err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != third.ID {
		t.Fatalf("expected only the c2 event, got %+v", filtered)
	}

	calls := repo.listCalls
	if _, err := svc.ListEventsInRange(ctx, ListEventsParams{Principal: testAdmin, Range: june1}); err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}
	if repo.listCalls != calls {
		t.Fatalf("expected cached listing to skip the repository")
	}
	cache.Invalidate(ViewPathCalendar)
	if _, err := svc.ListEventsInRange(ctx, ListEventsParams{Principal: testAdmin, Range: june1}); err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}
	if repo.listCalls != calls+1 {
		t.Fatalf("expected invalidation to force a fresh read")
	}
}

func TestEventService_ListEventsInRangeEveningWindow(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEventService(t, nil)
	ctx := context.Background()

	input := consultationInput()
	input.Type = EventTypeEstimateVisit
	input.AllDay = true
	input.Start = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	input.End = input.Start
	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: input})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	cases := []struct {
		name       string
		start, end string
		want       int
	}{
		{name: "late evening of the day", start: "2024-06-01T22:00", end: "2024-06-01T23:00", want: 1},
		{name: "last minutes of the day", start: "2024-06-01T23:30", end: "2024-06-02T00:30", want: 1},
		{name: "early morning of the day", start: "2024-06-01T00:00", end: "2024-06-01T01:00", want: 1},
		{name: "evening before", start: "2024-05-31T22:00", end: "2024-05-31T23:59", want: 0},
		{name: "morning after", start: "2024-06-02T00:00", end: "2024-06-02T06:00", want: 0},
	}
	for _, tc := range cases {
		r, err := calendar.RangeUTC(tc.start, tc.end, svc.Location())
		if err != nil {
			t.Fatalf("%s: RangeUTC failed: %v", tc.name, err)
		}
		events, err := svc.ListEventsInRange(ctx, ListEventsParams{Principal: testAdmin, Range: r})
		if err != nil {
			t.Fatalf("%s: ListEventsInRange failed: %v", tc.name, err)
		}
		if len(events) != tc.want {
			t.Fatalf("%s: expected %d events in %s..%s, got %d", tc.name, tc.want, r.Start, r.End, len(events))
		}
		if tc.want == 1 && events[0].ID != created.ID {
			t.Fatalf("%s: unexpected event %s", tc.name, events[0].ID)
		}
	}
}

func TestEventService_ListDoesNotCacheSnapshotOlderThanInvalidation(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	cache := NewViewCache(time.Hour, 0, nil)
	inner := newEventRepoFake()
	repo := newPausingEventRepo(inner)
	clock := newFixedClock(time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC))
	svc := NewEventService(repo, directoryStub{}, sequentialIDs("event"), clock.Now, loc, cache)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, CreateEventParams{Principal: testAdmin, Input: consultationInput()})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	june1 := calendar.ViewBounds(calendar.ViewDay, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), loc)
	params := ListEventsParams{Principal: testAdmin, Range: june1}

	done := make(chan error, 1)
	go func() {
		_, err := svc.ListEventsInRange(ctx, params)
		done <- err
	}()

	<-repo.listed
	if _, err := svc.CancelEvent(ctx, EventTransitionParams{Principal: testAdmin, EventID: created.ID, Version: 1}); err != nil {
		t.Fatalf("CancelEvent failed: %v", err)
	}
	cache.Invalidate(ViewPathCalendar)
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}

	events, err := svc.ListEventsInRange(ctx, params)
	if err != nil {
		t.Fatalf("ListEventsInRange failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Status != EventStatusCanceled || events[0].Version != 2 {
		t.Fatalf("expected canceled event at version 2, got status=%s version=%d", events[0].Status, events[0].Version)
	}
}

func TestEventService_ListEventsInRangeValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEventService(t, nil)
	start := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.ListEventsInRange(context.Background(), ListEventsParams{
		Principal: testAdmin,
		Range:     calendar.Range{Start: start, End: start.Add(-time.Hour)},
		Statuses:  []EventStatus{"archived"},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.FieldErrors["end"] == "" || vErr.FieldErrors["status"] == "" {
		t.Fatalf("expected end and status problems, got %v", vErr.FieldErrors)
	}
}
