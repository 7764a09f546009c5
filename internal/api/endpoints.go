package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/urbanmd/urbanmd/internal/domain"
)

// Endpoint paths. Identifiers are path-escaped.
func CancelAppointmentPath(id string) string {
	return "/api/appointments/cancel/" + url.PathEscape(id) + "/"
}

func StartAppointmentPath(id string) string {
	return "/api/appointments/start/" + url.PathEscape(id) + "/"
}

func SuspendUserPath(id string) string {
	return "/api/admin/users/" + url.PathEscape(id) + "/suspend/"
}

func ActivateUserPath(id string) string {
	return "/api/admin/users/" + url.PathEscape(id) + "/activate/"
}

func ApproveVerificationPath(kind, id string) string {
	return "/api/admin/verify/" + url.PathEscape(kind) + "/" + url.PathEscape(id) + "/approve/"
}

func RejectVerificationPath(kind, id string) string {
	return "/api/admin/verify/" + url.PathEscape(kind) + "/" + url.PathEscape(id) + "/reject/"
}

const (
	UpdateTaskPath        = "/api/core/update-task/"
	DoctorSearchPath      = "/api/core/doctors/search/"
	QueuePath             = "/api/appointments/queue/"
	OrganizationStatsPath = "/api/organization/stats/"
	SystemStatsPath       = "/api/admin/system-stats/"
)

// TaskStatus values accepted by the update-task endpoint.
const (
	TaskCompleted = "completed"
	TaskPending   = "pending"
)

type updateTaskBody struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

type rejectBody struct {
	Reason string `json:"reason"`
}

// UpdateTask sets a task's status.
func (c *Client) UpdateTask(ctx context.Context, taskID, status string) (*domain.Response, error) {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   UpdateTaskPath,
		JSON:   updateTaskBody{TaskID: taskID, Status: status},
	})
}

// SearchDoctors runs the doctor search; fields with empty values are dropped.
func (c *Client) SearchDoctors(ctx context.Context, fields []domain.FormField) (*domain.Response, error) {
	query := url.Values{}
	for _, f := range fields {
		if f.Value != "" {
			query.Add(f.Name, f.Value)
		}
	}
	return c.Do(ctx, Request{Method: http.MethodGet, Path: DoctorSearchPath, Query: query})
}

func (c *Client) CancelAppointment(ctx context.Context, id string) (*domain.Response, error) {
	return c.post(ctx, CancelAppointmentPath(id), nil)
}

func (c *Client) StartAppointment(ctx context.Context, id string) (*domain.Response, error) {
	return c.post(ctx, StartAppointmentPath(id), nil)
}

// Queue fetches the provider's patient queue fragment.
func (c *Client) Queue(ctx context.Context) (*domain.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: QueuePath})
}

func (c *Client) OrganizationStats(ctx context.Context) (*domain.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: OrganizationStatsPath})
}

func (c *Client) SystemStats(ctx context.Context) (*domain.Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: SystemStatsPath})
}

func (c *Client) SuspendUser(ctx context.Context, id string) (*domain.Response, error) {
	return c.post(ctx, SuspendUserPath(id), nil)
}

func (c *Client) ActivateUser(ctx context.Context, id string) (*domain.Response, error) {
	return c.post(ctx, ActivateUserPath(id), nil)
}

func (c *Client) ApproveVerification(ctx context.Context, kind, id string) (*domain.Response, error) {
	return c.post(ctx, ApproveVerificationPath(kind, id), nil)
}

func (c *Client) RejectVerification(ctx context.Context, kind, id, reason string) (*domain.Response, error) {
	return c.post(ctx, RejectVerificationPath(kind, id), rejectBody{Reason: reason})
}

// SubmitForm sends an AJAX form: multipart body for POST-like methods, query
// string for GET.
func (c *Client) SubmitForm(ctx context.Context, method, action string, fields []domain.FormField) (*domain.Response, error) {
	if fields == nil {
		fields = []domain.FormField{}
	}
	return c.Do(ctx, Request{Method: method, Path: action, Form: fields})
}

func (c *Client) post(ctx context.Context, path string, body any) (*domain.Response, error) {
	req := Request{Method: http.MethodPost, Path: path, JSONContent: true}
	if body != nil {
		req.JSON = body
	}
	return c.Do(ctx, req)
}
