package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/TWRT/sprint-manager/internal/models"
)

// TaskID accepts a JSON number or a numeric JSON string.
type TaskID int64

func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || string(data) == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse id %q: %w", data, err)
	}
	*id = TaskID(n)
	return nil
}

type TaskRequestBody struct {
	ID       TaskID       `json:"id"`
	TaskName string       `json:"task_name"`
	TaskTime models.Hours `json:"task_time"`
}

// decodeTaskRequest reads a JSON body, or a form body when the client sends
// one. An id given in the query string is used when the body carries none.
func decodeTaskRequest(r *http.Request) (TaskRequestBody, error) {
	var reqBody TaskRequestBody

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			return reqBody, fmt.Errorf("parse form: %w", err)
		}
		reqBody.TaskName = r.PostForm.Get("task_name")
		reqBody.TaskTime = models.Hours(strings.TrimSpace(r.PostForm.Get("task_time")))
		if raw := r.PostForm.Get("id"); raw != "" {
			if err := reqBody.ID.UnmarshalJSON([]byte(raw)); err != nil {
				return reqBody, err
			}
		}
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return reqBody, fmt.Errorf("read body: %w", err)
		}
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &reqBody); err != nil {
				return reqBody, fmt.Errorf("parse json: %w", err)
			}
		}
	}

	if reqBody.ID == 0 {
		if raw := r.URL.Query().Get("id"); raw != "" {
			if err := reqBody.ID.UnmarshalJSON([]byte(raw)); err != nil {
				return reqBody, err
			}
		}
	}

	return reqBody, nil
}
