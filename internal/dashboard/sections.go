package dashboard

import (
	"context"
	"net/http"
	"net/url"

	"github.com/urbanmd/urbanmd/internal/api"
	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
)

// Section names.
const (
	SectionAppointment         = "appointment"
	SectionDoctor              = "doctor"
	SectionProviderAppointment = "provider-appointment"
	SectionQuick               = "quick"
	SectionProvider            = "provider"
	SectionLocation            = "location"
	SectionUser                = "user"
	SectionVerification        = "verification"
)

// Page markers that enable pollers and refresh buttons.
const (
	ClassPatientQueue = "patient-queue"
	ClassRefreshStats = "refresh-stats"
	ClassSystemStats  = "system-stats"
	ClassTaskCheckbox = "task-checkbox"

	AttrStat       = "data-stat"
	AttrSystemStat = "data-system-stat"

	DoctorSearchFormID = "doctorSearchForm"
)

// navigate builds a behavior that only navigates. pattern receives the
// escaped id (and type when the section has one).
func navigate(path func(t Target) string) Behavior {
	return func(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
		return c.perf.Navigate(ctx, inv.Section, inv.request("", ""), path(inv.Target))
	}
}

func byID(prefix, suffix string) func(Target) string {
	return func(t Target) string {
		return prefix + url.PathEscape(t.ID) + suffix
	}
}

func fixed(path string) func(Target) string {
	return func(Target) string { return path }
}

func verifyPath(suffix string) func(Target) string {
	return func(t Target) string {
		return "/admin/verify/" + url.PathEscape(t.Type) + "/" + url.PathEscape(t.ID) + suffix
	}
}

func patientSections() []Section {
	return []Section{
		{
			Name:   SectionAppointment,
			Class:  "appointment-action",
			IDAttr: "appointment-id",
			Actions: map[string]Behavior{
				"video":      navigate(byID("/appointments/video/", "/")),
				"reschedule": navigate(byID("/appointments/reschedule/", "/")),
				"cancel":     cancelAppointment,
				"view":       navigate(byID("/appointments/details/", "/")),
			},
		},
		{
			Name:   SectionDoctor,
			IDAttr: "doctor-id",
			Actions: map[string]Behavior{
				"book":    navigate(byID("/appointments/book/", "/")),
				"profile": navigate(byID("/doctors/", "/")),
			},
		},
	}
}

func providerSections() []Section {
	return []Section{
		{
			Name:   SectionProviderAppointment,
			Class:  "provider-appointment-action",
			IDAttr: "appointment-id",
			Actions: map[string]Behavior{
				"start":    startAppointment,
				"complete": navigate(byID("/appointments/complete/", "/")),
				"notes":    navigate(byID("/appointments/notes/", "/")),
			},
		},
		{
			Name:  SectionQuick,
			Class: "quick-action",
			Actions: map[string]Behavior{
				"new-patient":   navigate(fixed("/patients/new/")),
				"prescriptions": navigate(fixed("/prescriptions/")),
				"lab-results":   navigate(fixed("/lab-results/")),
				"messages":      navigate(fixed("/messages/")),
			},
		},
	}
}

func organizationSections() []Section {
	return []Section{
		{
			Name:   SectionProvider,
			Class:  "provider-action",
			IDAttr: "provider-id",
			Actions: map[string]Behavior{
				"view":     navigate(byID("/providers/", "/")),
				"edit":     navigate(byID("/providers/", "/edit/")),
				"schedule": navigate(byID("/providers/", "/schedule/")),
			},
		},
		{
			Name:   SectionLocation,
			Class:  "location-action",
			IDAttr: "location-id",
			Actions: map[string]Behavior{
				"view":      navigate(byID("/locations/", "/")),
				"edit":      navigate(byID("/locations/", "/edit/")),
				"analytics": navigate(byID("/locations/", "/analytics/")),
			},
		},
	}
}

func adminSections() []Section {
	return []Section{
		{
			Name:   SectionUser,
			Class:  "user-action",
			IDAttr: "user-id",
			Actions: map[string]Behavior{
				"view":     navigate(byID("/admin/users/", "/")),
				"suspend":  suspendUser,
				"activate": activateUser,
			},
		},
		{
			Name:     SectionVerification,
			Class:    "verification-action",
			IDAttr:   "id",
			TypeAttr: "type",
			Actions: map[string]Behavior{
				"approve": approveVerification,
				"reject":  rejectVerification,
				"view":    navigate(verifyPath("/")),
			},
		},
	}
}

func cancelAppointment(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
	id := inv.Target.ID
	return c.perf.Perform(ctx, dispatch.Call{
		Section: inv.Section,
		Request: inv.request(api.CancelAppointmentPath(id), http.MethodPost),
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.CancelAppointment(ctx, id)
		},
		Confirm: "Are you sure you want to cancel this appointment?",
		Success: "Appointment cancelled successfully",
		Failure: "Failed to cancel appointment",
		Error:   "An error occurred while cancelling the appointment",
		Then:    c.perf.Reload,
	})
}

func startAppointment(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
	id := inv.Target.ID
	return c.perf.Perform(ctx, dispatch.Call{
		Section: inv.Section,
		Request: inv.request(api.StartAppointmentPath(id), http.MethodPost),
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.StartAppointment(ctx, id)
		},
		Success: "Appointment started",
		Failure: "Failed to start appointment",
		Error:   "Failed to start appointment",
		Then:    c.perf.RedirectTo("/appointments/session/" + url.PathEscape(id) + "/"),
	})
}

func suspendUser(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
	id := inv.Target.ID
	return c.perf.Perform(ctx, dispatch.Call{
		Section: inv.Section,
		Request: inv.request(api.SuspendUserPath(id), http.MethodPost),
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.SuspendUser(ctx, id)
		},
		Confirm: "Are you sure you want to suspend this user?",
		Success: "User suspended successfully",
		Failure: "Failed to suspend user",
		Error:   "Failed to suspend user",
		Then:    c.perf.Reload,
	})
}

func activateUser(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
	id := inv.Target.ID
	return c.perf.Perform(ctx, dispatch.Call{
		Section: inv.Section,
		Request: inv.request(api.ActivateUserPath(id), http.MethodPost),
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.ActivateUser(ctx, id)
		},
		Success: "User activated successfully",
		Failure: "Failed to activate user",
		Error:   "Failed to activate user",
		Then:    c.perf.Reload,
	})
}

func approveVerification(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
	kind, id := inv.Target.Type, inv.Target.ID
	return c.perf.Perform(ctx, dispatch.Call{
		Section: inv.Section,
		Request: inv.request(api.ApproveVerificationPath(kind, id), http.MethodPost),
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.ApproveVerification(ctx, kind, id)
		},
		Success: "Verification approved",
		Failure: "Failed to approve verification",
		Error:   "Failed to approve verification",
		Then:    c.perf.Reload,
	})
}

func rejectVerification(ctx context.Context, c *Controller, inv Invocation) domain.Outcome {
	kind, id := inv.Target.Type, inv.Target.ID
	return c.perf.Perform(ctx, dispatch.Call{
		Section: inv.Section,
		Request: inv.request(api.RejectVerificationPath(kind, id), http.MethodPost),
		Send: func(ctx context.Context, reason string) (*domain.Response, error) {
			return c.backend.RejectVerification(ctx, kind, id, reason)
		},
		Reason:  "Please provide a reason for rejection:",
		Success: "Verification rejected",
		Failure: "Failed to reject verification",
		Error:   "Failed to reject verification",
		Then:    c.perf.Reload,
	})
}
