package client

import (
	"context"

	"github.com/TWRT/sprint-manager/internal/client/calendar"
	"github.com/TWRT/sprint-manager/internal/models"
)

// EventClient mirrors task mutations into the calendar service. Every call
// forwards the caller's session credential so the calendar service can
// authorize the action itself.
type EventClient interface {
	CreateEvent(ctx context.Context, credential, name string, duration models.Hours) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, credential, eventId, name string, duration models.Hours) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, credential, eventId string) error
}

type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (string, error)
}
