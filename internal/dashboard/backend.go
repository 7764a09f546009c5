package dashboard

import (
	"context"

	"github.com/urbanmd/urbanmd/internal/domain"
)

// Backend is the subset of api.Client the dashboard calls.
type Backend interface {
	UpdateTask(ctx context.Context, taskID, status string) (*domain.Response, error)
	SearchDoctors(ctx context.Context, fields []domain.FormField) (*domain.Response, error)
	CancelAppointment(ctx context.Context, id string) (*domain.Response, error)
	StartAppointment(ctx context.Context, id string) (*domain.Response, error)
	Queue(ctx context.Context) (*domain.Response, error)
	OrganizationStats(ctx context.Context) (*domain.Response, error)
	SystemStats(ctx context.Context) (*domain.Response, error)
	SuspendUser(ctx context.Context, id string) (*domain.Response, error)
	ActivateUser(ctx context.Context, id string) (*domain.Response, error)
	ApproveVerification(ctx context.Context, kind, id string) (*domain.Response, error)
	RejectVerification(ctx context.Context, kind, id, reason string) (*domain.Response, error)
}
