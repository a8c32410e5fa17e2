package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TWRT/sprint-manager/internal/models"
)

var ErrMalformedEvent = errors.New("calendar service returned a malformed event")

const remoteStartLayout = "2006-01-02T15:04:05"

type CalendarClient struct {
	baseUrl    string
	cookieName string
	httpClient *http.Client
}

func NewCalendarClient(baseUrl, cookieName string, timeout time.Duration) *CalendarClient {
	return &CalendarClient{
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FormatStartTime converts the calendar service's start timestamp
// (2018-12-31T17:41:00, optionally followed by a zone offset) into the
// display form Mon Dec 31 17:41:00 2018.
func FormatStartTime(s string) (string, error) {
	if len(s) < len(remoteStartLayout) {
		return "", fmt.Errorf("parse start time %q: too short", s)
	}
	t, err := time.Parse(remoteStartLayout, s[:len(remoteStartLayout)])
	if err != nil {
		return "", fmt.Errorf("parse start time %q: %w", s, err)
	}
	return t.Format(time.ANSIC), nil
}

func (c *CalendarClient) CreateEvent(ctx context.Context, credential, name string, duration models.Hours) (*Event, error) {
	reqBody := CreateEventRequest{
		TaskName: name,
		TaskTime: duration,
	}

	body, err := c.do(ctx, http.MethodPost, "/new_task", credential, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create event (calendar): %w", err)
	}

	var eventResp EventResponse
	if err := json.Unmarshal(body, &eventResp); err != nil {
		return nil, fmt.Errorf("parse create event response (calendar): %w: %v", ErrMalformedEvent, err)
	}
	if eventResp.GoogleEventId == "" {
		return nil, fmt.Errorf("create event (calendar): %w: missing googleEventId", ErrMalformedEvent)
	}

	event := &Event{Id: eventResp.GoogleEventId}
	if eventResp.Start != nil {
		event.StartDateTime = eventResp.Start.DateTime
	}
	return event, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, credential, eventId, name string, duration models.Hours) (*Event, error) {
	reqBody := UpdateEventRequest{
		TaskName:      name,
		TaskTimeStart: duration,
		GoogleEventId: eventId,
	}

	body, err := c.do(ctx, http.MethodPut, "/update", credential, reqBody)
	if err != nil {
		return nil, fmt.Errorf("update event (calendar): %w", err)
	}

	event := &Event{Id: eventId}

	// The update reply carries no required fields; pick up a new start
	// time when the service sends one.
	var eventResp EventResponse
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &eventResp) == nil {
		if eventResp.GoogleEventId != "" {
			event.Id = eventResp.GoogleEventId
		}
		if eventResp.Start != nil {
			event.StartDateTime = eventResp.Start.DateTime
		}
	}
	return event, nil
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, credential, eventId string) error {
	reqBody := DeleteEventRequest{GoogleEventId: eventId}

	if _, err := c.do(ctx, http.MethodDelete, "/delete", credential, reqBody); err != nil {
		return fmt.Errorf("delete event (calendar): %w", err)
	}
	return nil
}

func (c *CalendarClient) do(ctx context.Context, method, path, credential string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request (calendar): %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build request (calendar): %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: c.cookieName, Value: credential})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrRemoteUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		rejected := &RemoteRejectedError{StatusCode: resp.StatusCode}
		var calendarErr CalendarErrors
		if err := json.Unmarshal(body, &calendarErr); err == nil {
			rejected.Message = calendarErr.Err
			if rejected.Message == "" {
				rejected.Message = calendarErr.Message
			}
		}
		return nil, rejected
	}

	return body, nil
}
