package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/TWRT/sprint-manager/internal/client"
	"github.com/TWRT/sprint-manager/internal/client/calendar"
	"github.com/TWRT/sprint-manager/internal/logging"
	"github.com/TWRT/sprint-manager/internal/metrics"
	"github.com/TWRT/sprint-manager/internal/models"
	"github.com/TWRT/sprint-manager/internal/repository"
)

const (
	OperationList   = "list"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

type TaskStore interface {
	ListByOwner(ctx context.Context, owner string) ([]models.Task, error)
	Insert(ctx context.Context, task *models.Task) (*models.Task, error)
	FindByIDAndOwner(ctx context.Context, id int64, owner string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id int64) error
}

// DivergenceJournal keeps a durable record of mutations the calendar
// applied but the store did not.
type DivergenceJournal interface {
	Record(ctx context.Context, d *models.Divergence) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type Option func(*SyncService)

func WithJournal(journal DivergenceJournal) Option {
	return func(s *SyncService) {
		s.journal = journal
	}
}

// SyncService keeps local tasks mirrored to calendar events. Each mutation
// calls the calendar service first and only touches the store once the
// remote call succeeded, so no task exists locally without its event.
//
// Remote calls and the local write that follows them run detached from the
// request's cancellation: a client that disconnects mid-flight does not
// abort a calendar mutation half way.
type SyncService struct {
	events  client.EventClient
	store   TaskStore
	metrics *metrics.Metrics
	journal DivergenceJournal
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewSyncService(
	events client.EventClient,
	store TaskStore,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *SyncService {
	s := &SyncService{
		events:  events,
		store:   store,
		metrics: m,
		logger:  logging.WithService(logger, "sync"),
		tracer:  otel.Tracer("github.com/TWRT/sprint-manager/internal/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SyncService) ListTasks(ctx context.Context, caller models.Caller) (tasks []models.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "sync.list")
	defer func() { s.finish(span, OperationList, err) }()

	tasks, err = s.store.ListByOwner(ctx, caller.Subject)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// CreateTask rejects a submission only when both name and duration are
// empty; a partially filled submission goes through.
func (s *SyncService) CreateTask(ctx context.Context, caller models.Caller, name string, duration models.Hours) (task *models.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "sync.create")
	defer func() { s.finish(span, OperationCreate, err) }()

	if name == "" && duration.IsEmpty() {
		return nil, fmt.Errorf("%w: task_name and task_time are empty", ErrValidation)
	}

	ctx = context.WithoutCancel(ctx)
	logger := logging.WithOperation(s.logger, OperationCreate).With(logging.SubjectHash(caller.Subject))

	started := time.Now()
	event, err := s.events.CreateEvent(ctx, caller.Credential, name, duration)
	s.metrics.RecordRemoteCall("calendar", OperationCreate, started, err)
	if err != nil {
		logger.Warn("calendar create failed", logging.Err(err))
		return nil, err
	}
	span.SetAttributes(attribute.String("calendar.event_id", event.Id))

	task, err = s.store.Insert(ctx, &models.Task{
		Owner:         caller.Subject,
		Name:          name,
		Duration:      duration,
		RemoteEventId: event.Id,
		StartTime:     s.startTime(logger, event),
	})
	if err != nil {
		s.compensateCreate(ctx, logger, caller, event.Id, err)
		return nil, fmt.Errorf("store task: %w", err)
	}

	logger.Info("task created", logging.TaskID(task.Id), logging.EventID(task.RemoteEventId))
	return task, nil
}

// UpdateTask renames and re-times a task. The local record is left as is
// unless the calendar accepted the update.
func (s *SyncService) UpdateTask(ctx context.Context, caller models.Caller, id int64, name string, duration models.Hours) (task *models.Task, err error) {
	ctx, span := s.tracer.Start(ctx, "sync.update", trace.WithAttributes(attribute.Int64("task.id", id)))
	defer func() { s.finish(span, OperationUpdate, err) }()

	task, err = s.findOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	logger := logging.WithOperation(s.logger, OperationUpdate).With(
		logging.SubjectHash(caller.Subject),
		logging.TaskID(id),
		logging.EventID(task.RemoteEventId),
	)

	started := time.Now()
	event, err := s.events.UpdateEvent(ctx, caller.Credential, task.RemoteEventId, name, duration)
	s.metrics.RecordRemoteCall("calendar", OperationUpdate, started, err)
	if err != nil {
		logger.Warn("calendar update failed", logging.Err(err))
		return nil, err
	}

	task.Name = name
	task.Duration = duration
	if event.Id != "" {
		task.RemoteEventId = event.Id
	}
	if event.StartDateTime != "" {
		task.StartTime = s.startTime(logger, event)
	}

	if err := s.store.Update(ctx, task); err != nil {
		s.metrics.RecordDivergence(OperationUpdate)
		logger.Error("calendar event updated but local task was not", logging.Err(err))
		s.record(ctx, logger, &models.Divergence{
			Operation:     OperationUpdate,
			Owner:         caller.Subject,
			TaskId:        task.Id,
			RemoteEventId: task.RemoteEventId,
			Status:        models.DivergenceStaleTask,
			Detail:        err.Error(),
		})
		return nil, fmt.Errorf("store task: %w", err)
	}

	updated, err := s.store.FindByIDAndOwner(ctx, id, caller.Subject)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}

	logger.Info("task updated")
	return updated, nil
}

// DeleteTask removes the calendar event and then the local task. When the
// calendar refuses, the local task stays so the event is not lost track of.
func (s *SyncService) DeleteTask(ctx context.Context, caller models.Caller, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "sync.delete", trace.WithAttributes(attribute.Int64("task.id", id)))
	defer func() { s.finish(span, OperationDelete, err) }()

	task, err := s.findOwned(ctx, caller, id)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	logger := logging.WithOperation(s.logger, OperationDelete).With(
		logging.SubjectHash(caller.Subject),
		logging.TaskID(id),
		logging.EventID(task.RemoteEventId),
	)

	started := time.Now()
	err = s.events.DeleteEvent(ctx, caller.Credential, task.RemoteEventId)
	s.metrics.RecordRemoteCall("calendar", OperationDelete, started, err)
	if err != nil {
		logger.Warn("calendar delete failed", logging.Err(err))
		return err
	}

	if err := s.store.Delete(ctx, task.Id); err != nil {
		s.metrics.RecordDivergence(OperationDelete)
		logger.Error("calendar event deleted but local task was not", logging.Err(err))
		s.record(ctx, logger, &models.Divergence{
			Operation:     OperationDelete,
			Owner:         caller.Subject,
			TaskId:        task.Id,
			RemoteEventId: task.RemoteEventId,
			Status:        models.DivergenceStaleTask,
			Detail:        err.Error(),
		})
		return fmt.Errorf("delete task: %w", err)
	}

	logger.Info("task deleted")
	return nil
}

func (s *SyncService) findOwned(ctx context.Context, caller models.Caller, id int64) (*models.Task, error) {
	task, err := s.store.FindByIDAndOwner(ctx, id, caller.Subject)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

// startTime normalises the event start for display. A start the calendar
// sent in an unexpected shape is kept verbatim rather than failing a
// mutation the calendar already applied.
func (s *SyncService) startTime(logger *slog.Logger, event *calendar.Event) string {
	if event.StartDateTime == "" {
		return ""
	}
	formatted, err := calendar.FormatStartTime(event.StartDateTime)
	if err != nil {
		logger.Warn("unexpected event start format", logging.EventID(event.Id), logging.Err(err))
		return event.StartDateTime
	}
	return formatted
}

// compensateCreate deletes the calendar event whose local task could not be
// stored. The journal entry stays open if that delete fails too.
func (s *SyncService) compensateCreate(ctx context.Context, logger *slog.Logger, caller models.Caller, eventId string, cause error) {
	s.metrics.RecordDivergence(OperationCreate)
	logger.Error("calendar event created but task was not stored", logging.EventID(eventId), logging.Err(cause))

	journalId := s.record(ctx, logger, &models.Divergence{
		Operation:     OperationCreate,
		Owner:         caller.Subject,
		RemoteEventId: eventId,
		Status:        models.DivergenceOrphanedEvent,
		Detail:        cause.Error(),
	})

	started := time.Now()
	err := s.events.DeleteEvent(ctx, caller.Credential, eventId)
	s.metrics.RecordRemoteCall("calendar", "compensate", started, err)
	if err != nil {
		logger.Error("orphaned calendar event", logging.EventID(eventId), logging.Err(err))
		return
	}
	logger.Info("compensating calendar delete succeeded", logging.EventID(eventId))

	if s.journal != nil && journalId != 0 {
		if err := s.journal.UpdateStatus(ctx, journalId, models.DivergenceCompensated); err != nil {
			logger.Error("mark divergence compensated failed", logging.Err(err))
		}
	}
}

// record writes d to the journal, if one is configured, and returns its id.
func (s *SyncService) record(ctx context.Context, logger *slog.Logger, d *models.Divergence) int64 {
	if s.journal == nil {
		return 0
	}
	id, err := s.journal.Record(ctx, d)
	if err != nil {
		logger.Error("record divergence failed", logging.EventID(d.RemoteEventId), logging.Err(err))
		return 0
	}
	return id
}

func (s *SyncService) finish(span trace.Span, operation string, err error) {
	s.metrics.RecordSyncOperation(operation, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
