package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/session"
)

type captured struct {
	method  string
	path    string
	query   url.Values
	headers http.Header
	body    []byte
}

func newTestServer(t *testing.T, status int, reply string) (*httptest.Server, *[]captured) {
	t.Helper()
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, captured{
			method:  r.Method,
			path:    r.URL.Path,
			query:   r.URL.Query(),
			headers: r.Header.Clone(),
			body:    body,
		})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithCSRFToken("tok"))
	require.NoError(t, err)
	return c
}

func TestMutatingCallsCarryHeaders(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() (*domain.Response, error)
		path string
	}{
		{"cancel", func() (*domain.Response, error) { return c.CancelAppointment(ctx, "42") }, "/api/appointments/cancel/42/"},
		{"start", func() (*domain.Response, error) { return c.StartAppointment(ctx, "42") }, "/api/appointments/start/42/"},
		{"suspend", func() (*domain.Response, error) { return c.SuspendUser(ctx, "7") }, "/api/admin/users/7/suspend/"},
		{"activate", func() (*domain.Response, error) { return c.ActivateUser(ctx, "7") }, "/api/admin/users/7/activate/"},
		{"approve", func() (*domain.Response, error) { return c.ApproveVerification(ctx, "doctor", "9") }, "/api/admin/verify/doctor/9/approve/"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			require.NoError(t, err)
			assert.True(t, resp.Success)

			require.Len(t, *calls, i+1)
			got := (*calls)[i]
			assert.Equal(t, http.MethodPost, got.method)
			assert.Equal(t, tt.path, got.path)
			assert.Equal(t, "tok", got.headers.Get("X-CSRFToken"))
			assert.Equal(t, "XMLHttpRequest", got.headers.Get("X-Requested-With"))
			assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
			assert.Empty(t, got.body)
		})
	}
}

func TestRejectVerificationSendsReason(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv)

	_, err := c.RejectVerification(context.Background(), "organization", "3", "duplicate")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/admin/verify/organization/3/reject/", (*calls)[0].path)
	assert.JSONEq(t, `{"reason":"duplicate"}`, string((*calls)[0].body))
}

func TestUpdateTaskBody(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv)

	_, err := c.UpdateTask(context.Background(), "11", TaskCompleted)
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, UpdateTaskPath, (*calls)[0].path)
	assert.JSONEq(t, `{"taskId":"11","status":"completed"}`, string((*calls)[0].body))
}

func TestSearchDoctorsDropsEmptyFields(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"success":true,"count":2,"html":"<div></div>"}`)
	c := newTestClient(t, srv)

	resp, err := c.SearchDoctors(context.Background(), []domain.FormField{
		{Name: "specialty", Value: "cardiology"},
		{Name: "city", Value: ""},
		{Name: "insurance", Value: "aetna"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "cardiology", got.query.Get("specialty"))
	assert.Equal(t, "aetna", got.query.Get("insurance"))
	_, hasCity := got.query["city"]
	assert.False(t, hasCity)
}

func TestStatsDecode(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"success":true,"stats":{"cpu":"41%","users":1200}}`)
	c := newTestClient(t, srv)

	resp, err := c.SystemStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cpu": "41%", "users": "1200"}, resp.Stats)
	assert.Equal(t, SystemStatsPath, (*calls)[0].path)
	assert.Equal(t, "XMLHttpRequest", (*calls)[0].headers.Get("X-Requested-With"))
}

func TestSubmitFormMultipart(t *testing.T) {
	var fields map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		assert.Equal(t, "tok", r.Header.Get("X-CSRFToken"))
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		_, _ = w.Write([]byte(`{"success":true,"redirect":"/x"}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	resp, err := c.SubmitForm(context.Background(), "post", "/profile/update/", []domain.FormField{
		{Name: "first_name", Value: "Ada"},
		{Name: "phone", Value: "555"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/x", resp.Redirect)
	assert.Equal(t, map[string]string{"first_name": "Ada", "phone": "555"}, fields)
}

func TestSubmitFormGetUsesQuery(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv)

	_, err := c.SubmitForm(context.Background(), http.MethodGet, "/filter/", []domain.FormField{{Name: "q", Value: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x", (*calls)[0].query.Get("q"))
	assert.Empty(t, (*calls)[0].body)
}

func TestErrors(t *testing.T) {
	t.Run("non-2xx envelope is not an error", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusBadRequest, `{"success":false,"message":"bad"}`)
		resp, err := newTestClient(t, srv).CancelAppointment(context.Background(), "1")
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "bad", resp.Message)
	})

	t.Run("non-2xx html is a status error", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusInternalServerError, `<h1>Server Error</h1>`)
		_, err := newTestClient(t, srv).Queue(context.Background())
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.Contains(t, statusErr.Error(), "Server Error")
	})

	t.Run("2xx html is a decode error", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `<html></html>`)
		_, err := newTestClient(t, srv).Queue(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api: decode response")
	})

	t.Run("transport failure", func(t *testing.T) {
		srv, _ := newTestServer(t, http.StatusOK, `{}`)
		c := newTestClient(t, srv)
		srv.Close()
		_, err := c.OrganizationStats(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "api: request failed")
	})

	t.Run("bad base url", func(t *testing.T) {
		_, err := NewClient("::nope")
		require.Error(t, err)
	})
}

func TestFromSessionSharesCookiesAndToken(t *testing.T) {
	var cookie, token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err == nil {
			cookie = c.Value
		}
		token = r.Header.Get("X-CSRFToken")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	s, err := session.Bootstrap(context.Background(), session.Options{
		BaseURL:      srv.URL,
		CookieHeader: "sessionid=abc; csrftoken=xyz",
	})
	require.NoError(t, err)

	_, err = FromSession(s, 0).ActivateUser(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "abc", cookie)
	assert.Equal(t, "xyz", token)
}

func TestFetchPage(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `<body data-user-type="ADMIN"></body>`)
	body, err := newTestClient(t, srv).FetchPage(context.Background(), "/dashboard/")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ADMIN")
	assert.Equal(t, "/dashboard/", (*calls)[0].path)

	srv404, _ := newTestServer(t, http.StatusNotFound, "missing")
	_, err = newTestClient(t, srv404).FetchPage(context.Background(), "/nope/")
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
}
