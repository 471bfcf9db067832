// Package audit records photographer-side management actions, such as
// creating a share link or revoking an invitation, in the audit_events table.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"gallery-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	contextKeyUserID = "user_id"
	writeTimeout     = 2 * time.Second
)

// ActorType represents the type of entity performing an action
type ActorType string

const (
	ActorTypeUser    ActorType = "user"
	ActorTypeVisitor ActorType = "visitor"
)

// ResourceType represents the type of resource being acted upon
type ResourceType string

const (
	ResourceTypeGallery    ResourceType = "gallery"
	ResourceTypePhoto      ResourceType = "photo"
	ResourceTypeShareLink  ResourceType = "share_link"
	ResourceTypeInvitation ResourceType = "invitation"
)

// Action represents the action being performed
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionDeactivate Action = "deactivate"
	ActionResend     Action = "resend"
	ActionUpload     Action = "upload"
	ActionUse        Action = "use"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusPartial Status = "partial"
)

type Event struct {
	ID           uuid.UUID
	EventType    string
	ActorType    ActorType
	ActorID      *uuid.UUID
	ResourceType ResourceType
	ResourceID   *uuid.UUID
	Action       Action
	Status       Status
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// Writer persists one event.
type Writer interface {
	Write(ctx context.Context, event *Event) error
}

// Logger builds events from requests and hands them to a Writer without
// blocking the request.
type Logger struct {
	writer Writer
	logger *log.Logger
}

func NewLogger(writer Writer) *Logger {
	return &Logger{writer: writer, logger: log.New("audit")}
}

// NewPostgresLogger writes events to the audit_events table.
func NewPostgresLogger(pool *pgxpool.Pool) *Logger {
	return NewLogger(&PostgresWriter{pool: pool})
}

// LogFromContext creates and logs an audit event from an Echo context asynchronously
func (l *Logger) LogFromContext(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, status Status, metadata map[string]any) error {
	event := l.eventFromContext(c, resourceType, resourceID, action, status, metadata)
	go l.write(event)
	return nil
}

func (l *Logger) eventFromContext(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, status Status, metadata map[string]any) *Event {
	event := &Event{
		ID:           uuid.New(),
		EventType:    string(action) + "_" + string(resourceType),
		ActorType:    ActorTypeVisitor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Status:       status,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    c.Response().Header().Get(echo.HeaderXRequestID),
		Metadata:     logger.SanitizeMap(metadata),
		CreatedAt:    time.Now().UTC(),
	}
	if uid, ok := c.Get(contextKeyUserID).(uuid.UUID); ok {
		event.ActorType = ActorTypeUser
		event.ActorID = &uid
	}
	return event
}

func (l *Logger) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := l.writer.Write(ctx, event); err != nil {
		l.logger.Warnf("audit event %s not recorded: %v", event.EventType, err)
	}
}

type PostgresWriter struct {
	pool *pgxpool.Pool
}

func (w *PostgresWriter) Write(ctx context.Context, event *Event) error {
	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		if metadataJSON, err = json.Marshal(event.Metadata); err != nil {
			return err
		}
	}

	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_events (
			id, event_type, actor_type, actor_id, resource_type, resource_id,
			action, status, ip_address, user_agent, request_id, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		event.ID,
		event.EventType,
		event.ActorType,
		event.ActorID,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.CreatedAt,
	)
	return err
}
