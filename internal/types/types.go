// Package types holds interfaces shared by the HTTP layer and the wiring
// code that satisfies them.
package types

import (
	"context"

	"gallery-service/internal/audit"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AuditLogger defines audit logging operations
type AuditLogger interface {
	LogFromContext(c echo.Context, resourceType audit.ResourceType, resourceID *uuid.UUID, action audit.Action, status audit.Status, metadata map[string]any) error
}

// HealthChecker is one dependency probed by the health endpoint.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// OutcomeRecorder receives domain counters for the metrics endpoint.
type OutcomeRecorder interface {
	RecordAccessOutcome(outcome string)
	RecordUploads(succeeded, failed int)
}

// NamedCheck adapts a ping function to HealthChecker.
type NamedCheck struct {
	Label string
	Ping  func(ctx context.Context) error
}

func (n NamedCheck) Name() string {
	return n.Label
}

func (n NamedCheck) Check(ctx context.Context) error {
	return n.Ping(ctx)
}
