package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Task struct {
	Id            int64     `json:"id"`
	Owner         string    `json:"owner"`
	Name          string    `json:"task_name"`
	Duration      Hours     `json:"task_time"`
	RemoteEventId string    `json:"event_id"`
	StartTime     string    `json:"start_time"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Hours is a task duration as submitted by the caller. It accepts a JSON
// number or a JSON string and keeps the raw text, so an empty value stays
// distinguishable from zero.
type Hours string

func (h *Hours) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*h = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parse task_time: %w", err)
		}
		*h = Hours(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parse task_time: %w", err)
	}
	*h = Hours(n.String())
	return nil
}

func (h Hours) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(h), 64); err == nil && json.Valid([]byte(h)) {
		return []byte(h), nil
	}
	return json.Marshal(string(h))
}

func (h Hours) IsEmpty() bool {
	return h == ""
}

// Caller is the resolved identity of a request together with the session
// credential it arrived with. The credential is forwarded verbatim on every
// outbound call made on the caller's behalf.
type Caller struct {
	Subject    string
	Credential string
}
