/*
httpclient.go - REST adapter for the external calendar service

PURPOSE:
  Implements Client against the calendar service's JSON API. One calendar
  per deployment; the calendar id is part of every path. Responses
  outside 2xx are mapped onto the StatusClass taxonomy so the Syncer can
  tell transient outages from hard failures.

WIRE SHAPE:
  Dates travel as "2006-01-02", clock times as "15:04". All-day events
  omit the clock times. List responses attach the event id.

SEE ALSO:
  - errors.go: ClassForHTTPStatus, the status mapping
  - cmd/server/main.go: construction from configuration
*/
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leavebridge/engine/leave"
	"github.com/leavebridge/engine/schedule"
)

// =============================================================================
// HTTP CLIENT
// =============================================================================

// HTTPClient talks to the external calendar's REST API.
type HTTPClient struct {
	base       string
	calendarID string
	token      string
	http       *http.Client
}

func NewHTTPClient(baseURL, calendarID, token string) *HTTPClient {
	return &HTTPClient{
		base:       strings.TrimRight(baseURL, "/"),
		calendarID: calendarID,
		token:      token,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) eventsURL(externalID string) string {
	u := fmt.Sprintf("%s/calendars/%s/events", c.base, url.PathEscape(c.calendarID))
	if externalID != "" {
		u += "/" + url.PathEscape(externalID)
	}
	return u
}

func (c *HTTPClient) Create(ctx context.Context, ev Event) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.eventsURL(""), wireOf(ev), &out, "create"); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *HTTPClient) Get(ctx context.Context, externalID string) (Event, error) {
	var w wireEvent
	if err := c.do(ctx, http.MethodGet, c.eventsURL(externalID), nil, &w, "get"); err != nil {
		return Event{}, err
	}
	return w.event("get")
}

func (c *HTTPClient) List(ctx context.Context, from, to leave.Date) ([]ListedEvent, error) {
	u := fmt.Sprintf("%s?from=%s&to=%s", c.eventsURL(""), from, to)
	var ws []wireListed
	if err := c.do(ctx, http.MethodGet, u, nil, &ws, "list"); err != nil {
		return nil, err
	}
	listed := make([]ListedEvent, 0, len(ws))
	for _, w := range ws {
		ev, err := w.event("list")
		if err != nil {
			return nil, err
		}
		listed = append(listed, ListedEvent{ID: w.ID, Event: ev})
	}
	return listed, nil
}

func (c *HTTPClient) Patch(ctx context.Context, externalID string, ev Event) error {
	return c.do(ctx, http.MethodPatch, c.eventsURL(externalID), wireOf(ev), nil, "patch")
}

func (c *HTTPClient) Delete(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodDelete, c.eventsURL(externalID), nil, nil, "delete")
}

// do runs one request and classifies the outcome. Network errors are
// treated as unavailable, which makes them transient for withRetry.
func (c *HTTPClient) do(ctx context.Context, method, u string, in, out any, op string) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &Error{Class: StatusGeneric, Op: op, Message: err.Error()}
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Class: StatusGeneric, Op: op, Message: err.Error()}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Class: StatusUnavailable, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{
			Class:   ClassForHTTPStatus(resp.StatusCode),
			Op:      op,
			Message: strings.TrimSpace(string(detail)),
		}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Class: StatusGeneric, Op: op, Message: "malformed response: " + err.Error()}
		}
	}
	return nil
}

// =============================================================================
// WIRE SHAPES
// =============================================================================

type wireEvent struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AllDay      bool   `json:"is_all_day"`
	StartDate   string `json:"start_date"`
	StartTime   string `json:"start_time,omitempty"`
	EndDate     string `json:"end_date"`
	EndTime     string `json:"end_time,omitempty"`
}

type wireListed struct {
	ID string `json:"id"`
	wireEvent
}

func wireOf(ev Event) wireEvent {
	w := wireEvent{
		Title:       ev.Title,
		Description: ev.Description,
		AllDay:      ev.AllDay,
		StartDate:   ev.StartDate.String(),
		EndDate:     ev.EndDate.String(),
	}
	if !ev.AllDay {
		w.StartTime = ev.StartTime.String()
		w.EndTime = ev.EndTime.String()
	}
	return w
}

func (w wireEvent) event(op string) (Event, error) {
	ev := Event{
		Title:       w.Title,
		Description: w.Description,
		AllDay:      w.AllDay,
	}
	var err error
	if ev.StartDate, err = leave.ParseDate(w.StartDate); err != nil {
		return Event{}, &Error{Class: StatusGeneric, Op: op, Message: "bad start_date: " + w.StartDate}
	}
	if ev.EndDate, err = leave.ParseDate(w.EndDate); err != nil {
		return Event{}, &Error{Class: StatusGeneric, Op: op, Message: "bad end_date: " + w.EndDate}
	}
	if !ev.AllDay {
		if ev.StartTime, err = parseClock(w.StartTime); err != nil {
			return Event{}, &Error{Class: StatusGeneric, Op: op, Message: "bad start_time: " + w.StartTime}
		}
		if ev.EndTime, err = parseClock(w.EndTime); err != nil {
			return Event{}, &Error{Class: StatusGeneric, Op: op, Message: "bad end_time: " + w.EndTime}
		}
	}
	return ev, nil
}

func parseClock(s string) (schedule.Minute, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return schedule.FromClock(t), nil
}
