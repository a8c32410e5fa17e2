package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatStartTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain timestamp", input: "2018-12-31T17:41:00", want: "Mon Dec 31 17:41:00 2018"},
		{name: "with zone offset", input: "2018-12-31T17:41:00-05:00", want: "Mon Dec 31 17:41:00 2018"},
		{name: "single digit day is space padded", input: "2019-01-03T09:05:07", want: "Thu Jan  3 09:05:07 2019"},
		{name: "too short", input: "2018-12-31", wantErr: true},
		{name: "garbage", input: "not-a-timestamp-at-all", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatStartTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateEvent(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/new_task", r.URL.Path)
		cookie, err := r.Cookie("jwt")
		require.NoError(t, err)
		assert.Equal(t, "token-abc", cookie.Value)

		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"googleEventId":"evt-1","start":{"dateTime":"2018-12-31T17:41:00"}}`))
	}))
	defer server.Close()

	c := NewCalendarClient(server.URL+"/", "jwt", time.Second)
	event, err := c.CreateEvent(context.Background(), "token-abc", "Sprint A", "3")
	require.NoError(t, err)

	assert.Equal(t, "evt-1", event.Id)
	assert.Equal(t, "2018-12-31T17:41:00", event.StartDateTime)
	assert.Equal(t, "Sprint A", gotBody["task_name"])
	assert.Equal(t, float64(3), gotBody["task_time"])
}

func TestCreateEventMissingEventId(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"start":{"dateTime":"2018-12-31T17:41:00"}}`))
	}))
	defer server.Close()

	c := NewCalendarClient(server.URL, "jwt", time.Second)
	_, err := c.CreateEvent(context.Background(), "t", "Sprint A", "3")
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestCreateEventRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"calendar access revoked"}`))
	}))
	defer server.Close()

	c := NewCalendarClient(server.URL, "jwt", time.Second)
	_, err := c.CreateEvent(context.Background(), "t", "Sprint A", "3")

	var rejected *RemoteRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusForbidden, rejected.StatusCode)
	assert.Equal(t, "calendar access revoked", rejected.Message)
}

func TestCreateEventUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewCalendarClient(url, "jwt", time.Second)
	_, err := c.CreateEvent(context.Background(), "t", "Sprint A", "3")
	assert.ErrorIs(t, err, ErrRemoteUnreachable)
}

func TestUpdateEvent(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/update", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewCalendarClient(server.URL, "jwt", time.Second)
	event, err := c.UpdateEvent(context.Background(), "t", "evt-9", "Renamed", "1.5")
	require.NoError(t, err)

	assert.Equal(t, "evt-9", event.Id)
	assert.Empty(t, event.StartDateTime)
	assert.Equal(t, "Renamed", gotBody["task_name"])
	assert.Equal(t, 1.5, gotBody["task_time_start"])
	assert.Equal(t, "evt-9", gotBody["googleEventId"])
}

func TestUpdateEventPicksUpStartTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"googleEventId":"evt-9","start":{"dateTime":"2019-01-03T09:05:07"}}`))
	}))
	defer server.Close()

	c := NewCalendarClient(server.URL, "jwt", time.Second)
	event, err := c.UpdateEvent(context.Background(), "t", "evt-9", "Renamed", "2")
	require.NoError(t, err)
	assert.Equal(t, "2019-01-03T09:05:07", event.StartDateTime)
}

func TestDeleteEvent(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantStatus int
	}{
		{name: "ok", status: http.StatusOK},
		{name: "not found upstream", status: http.StatusNotFound, wantStatus: http.StatusNotFound},
		{name: "server error upstream", status: http.StatusInternalServerError, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/delete", r.URL.Path)
				var body DeleteEventRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "evt-2", body.GoogleEventId)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := NewCalendarClient(server.URL, "jwt", time.Second)
			err := c.DeleteEvent(context.Background(), "t", "evt-2")
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}
			var rejected *RemoteRejectedError
			require.True(t, errors.As(err, &rejected))
			assert.Equal(t, tt.wantStatus, rejected.StatusCode)
		})
	}
}
