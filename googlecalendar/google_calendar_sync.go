package googlecalendar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"cuhk-timetable/timezone"

	ics "github.com/arran4/golang-ical"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/calendar/v3"
)

var tracer = otel.Tracer("cuhk-timetable/googlecalendar")

// SyncResult counts the changes a sync made.
type SyncResult struct {
	Inserted int
	Updated  int
	Deleted  int
}

// AddICSEventsToCalendar makes the calendar hold exactly the events of the
// ICS file: events missing from the file are deleted, changed ones updated
// and new ones inserted. Events are matched on summary, start and end.
func AddICSEventsToCalendar(ctx context.Context, service *calendar.Service, calendarID, filename string, clearAll bool) (SyncResult, error) {
	ctx, span := tracer.Start(ctx, "AddICSEventsToCalendar")
	defer span.End()

	icsData, err := os.ReadFile(filename)
	if err != nil {
		return SyncResult{}, fmt.Errorf("error reading ICS file: %w", err)
	}
	cal, err := ics.ParseCalendar(strings.NewReader(string(icsData)))
	if err != nil {
		return SyncResult{}, fmt.Errorf("error parsing ICS data: %w", err)
	}
	desired := eventsFromCalendar(cal)

	if clearAll {
		if err := ClearCalendar(ctx, service, calendarID); err != nil {
			return SyncResult{}, fmt.Errorf("error clearing Google Calendar: %w", err)
		}
	}

	existingEvents, err := GetAllEvents(ctx, service, calendarID)
	if err != nil {
		return SyncResult{}, err
	}
	plan := planSync(existingEvents, desired)

	var result SyncResult
	for _, event := range plan.remove {
		slog.Info("deleting event", "summary", event.Summary, "start", event.Start.DateTime)
		if err := deleteEvent(ctx, service, calendarID, event); err != nil {
			return result, err
		}
		result.Deleted++
	}
	for _, u := range plan.update {
		slog.Info("updating event", "summary", u.event.Summary, "start", u.event.Start.DateTime)
		if _, err := service.Events.Update(calendarID, u.id, u.event).Context(ctx).Do(); err != nil {
			return result, fmt.Errorf("error updating event in Google Calendar: %w", err)
		}
		result.Updated++
	}
	for _, event := range plan.insert {
		slog.Info("inserting event", "summary", event.Summary, "start", event.Start.DateTime)
		if _, err := service.Events.Insert(calendarID, event).Context(ctx).Do(); err != nil {
			return result, fmt.Errorf("error inserting event into Google Calendar: %w", err)
		}
		result.Inserted++
	}

	span.SetAttributes(
		attribute.Int("inserted", result.Inserted),
		attribute.Int("updated", result.Updated),
		attribute.Int("deleted", result.Deleted),
	)
	return result, nil
}

var icsTextUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func propertyText(event *ics.VEvent, prop ics.ComponentProperty) string {
	p := event.GetProperty(prop)
	if p == nil {
		return ""
	}
	return icsTextUnescaper.Replace(p.Value)
}

// eventsFromCalendar converts the ICS events into Google events keyed by
// generateEventID. Times are expressed in Hong Kong time.
func eventsFromCalendar(cal *ics.Calendar) map[string]*calendar.Event {
	events := map[string]*calendar.Event{}
	for _, event := range cal.Events() {
		if event == nil {
			continue
		}
		start, err := event.GetStartAt()
		if err != nil {
			slog.Debug("skipping ics event without a start", "err", err)
			continue
		}
		end, err := event.GetEndAt()
		if err != nil || !end.After(start) {
			end = start.Add(time.Hour)
		}
		start = start.In(timezone.Location)
		end = end.In(timezone.Location)

		summary := propertyText(event, ics.ComponentPropertySummary)
		startStr := start.Format(time.RFC3339)
		endStr := end.Format(time.RFC3339)

		gEvent := &calendar.Event{
			Summary:     summary,
			Description: propertyText(event, ics.ComponentPropertyDescription),
			Location:    propertyText(event, ics.ComponentPropertyLocation),
			Start: &calendar.EventDateTime{
				DateTime: startStr,
				TimeZone: timezone.Name,
			},
			End: &calendar.EventDateTime{
				DateTime: endStr,
				TimeZone: timezone.Name,
			},
		}
		if rrule := event.GetProperty(ics.ComponentPropertyRrule); rrule != nil {
			gEvent.Recurrence = []string{"RRULE:" + rrule.Value}
		}
		events[generateEventID(summary, startStr, endStr)] = gEvent
	}
	return events
}

type eventUpdate struct {
	id    string
	event *calendar.Event
}

type syncPlan struct {
	remove []*calendar.Event
	update []eventUpdate
	insert []*calendar.Event
}

func planSync(existing []*calendar.Event, desired map[string]*calendar.Event) syncPlan {
	existingByID := map[string]*calendar.Event{}
	for _, event := range existing {
		if event == nil || event.Status == "cancelled" || event.Start == nil || event.End == nil {
			continue
		}
		existingByID[generateEventID(event.Summary, event.Start.DateTime, event.End.DateTime)] = event
	}

	var plan syncPlan
	for _, id := range sortedKeys(existingByID) {
		if _, found := desired[id]; !found {
			plan.remove = append(plan.remove, existingByID[id])
		}
	}
	for _, id := range sortedKeys(desired) {
		gEvent := desired[id]
		existingEvent, found := existingByID[id]
		if !found {
			plan.insert = append(plan.insert, gEvent)
			continue
		}
		if needsUpdate(existingEvent, gEvent) {
			plan.update = append(plan.update, eventUpdate{id: existingEvent.Id, event: gEvent})
		}
	}
	return plan
}

func needsUpdate(existing, desired *calendar.Event) bool {
	return existing.Summary != desired.Summary ||
		existing.Description != desired.Description ||
		existing.Location != desired.Location ||
		!slices.Equal(existing.Recurrence, desired.Recurrence)
}

func sortedKeys(m map[string]*calendar.Event) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func generateEventID(summary, start, end string) string {
	hash := md5.New()
	hash.Write([]byte(summary + start + end))
	return hex.EncodeToString(hash.Sum(nil))
}
