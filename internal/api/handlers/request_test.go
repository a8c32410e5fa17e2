package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTaskRequest(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		want        TaskRequestBody
		wantErr     bool
	}{
		{
			name:        "json with numeric fields",
			target:      "/update-task",
			contentType: "application/json",
			body:        `{"id":7,"task_name":"Sprint A","task_time":2.5}`,
			want:        TaskRequestBody{ID: 7, TaskName: "Sprint A", TaskTime: "2.5"},
		},
		{
			name:        "json with string fields",
			target:      "/update-task",
			contentType: "application/json",
			body:        `{"id":"7","task_name":"Sprint A","task_time":"3"}`,
			want:        TaskRequestBody{ID: 7, TaskName: "Sprint A", TaskTime: "3"},
		},
		{
			name:        "empty task_time stays empty",
			target:      "/add",
			contentType: "application/json",
			body:        `{"task_name":"Sprint A","task_time":""}`,
			want:        TaskRequestBody{TaskName: "Sprint A"},
		},
		{
			name:        "id from query string",
			target:      "/delete?id=12",
			contentType: "application/json",
			want:        TaskRequestBody{ID: 12},
		},
		{
			name:        "form body",
			target:      "/add",
			contentType: "application/x-www-form-urlencoded",
			body:        url.Values{"task_name": {"Sprint A"}, "task_time": {"4"}, "id": {"3"}}.Encode(),
			want:        TaskRequestBody{ID: 3, TaskName: "Sprint A", TaskTime: "4"},
		},
		{
			name:        "bad id",
			target:      "/delete",
			contentType: "application/json",
			body:        `{"id":"abc"}`,
			wantErr:     true,
		},
		{
			name:        "not json",
			target:      "/add",
			contentType: "application/json",
			body:        `task_name=Sprint`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			got, err := decodeTaskRequest(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
