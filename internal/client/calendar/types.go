package calendar

import (
	"errors"
	"fmt"

	"github.com/TWRT/sprint-manager/internal/models"
)

var ErrRemoteUnreachable = errors.New("calendar service unreachable")

// RemoteRejectedError is returned when the calendar service answers with a
// status other than 200. The status is surfaced to the API caller as-is.
type RemoteRejectedError struct {
	StatusCode int
	Message    string
}

func (e *RemoteRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("calendar service rejected request: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("calendar service rejected request: status %d", e.StatusCode)
}

type Event struct {
	Id            string
	StartDateTime string
}

type CalendarErrors struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

type CreateEventRequest struct {
	TaskName string       `json:"task_name"`
	TaskTime models.Hours `json:"task_time"`
}

type UpdateEventRequest struct {
	TaskName      string       `json:"task_name"`
	TaskTimeStart models.Hours `json:"task_time_start"`
	GoogleEventId string       `json:"googleEventId"`
}

type DeleteEventRequest struct {
	GoogleEventId string `json:"googleEventId"`
}

type EventStart struct {
	DateTime string `json:"dateTime"`
}

type EventResponse struct {
	GoogleEventId string      `json:"googleEventId"`
	Start         *EventStart `json:"start"`
}
