package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/api"
	"github.com/rozgar/job-board/internal/job"
	"github.com/rozgar/job-board/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, api.Fail(api.MsgInvalidCredentials))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "rozgar_session", Value: "cookie-value", Path: "/"})
		writeJSON(w, http.StatusOK, api.Response{
			Success:   true,
			User:      &user.User{ID: "u1", Email: req["email"]},
			TempToken: "temp-token",
		})
	})
	mux.HandleFunc("/api/auth/is-auth", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("rozgar_session")
		if err != nil || c.Value != "cookie-value" {
			writeJSON(w, http.StatusUnauthorized, api.Fail(api.MsgUnauthorized))
			return
		}
		writeJSON(w, http.StatusOK, api.Response{Success: true, User: &user.User{ID: "u1"}, Message: r.Header.Get("Authorization")})
	})
	mux.HandleFunc("/api/auth/send-verify-otp", func(w http.ResponseWriter, r *http.Request) {
		// failure envelope with a 200 status
		writeJSON(w, http.StatusOK, api.Fail(api.MsgAlreadyVerified))
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	})
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.Response{
			Success: true,
			Message: r.URL.RawQuery,
			Jobs:    []job.Listing{{ID: 1, Title: "Frontend Developer"}},
		})
	})
	mux.HandleFunc("/api/profile/resume/asha@example.com", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			f, h, err := r.FormFile("resume")
			require.NoError(t, err)
			defer f.Close()
			data, _ := io.ReadAll(f)
			writeJSON(w, http.StatusOK, api.Response{Success: true, Message: h.Filename + ":" + string(data)})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="cv.pdf"`)
		io.WriteString(w, "%PDF")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginKeepsCookieAndToken(t *testing.T) {
	srv := newFakeAPI(t)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.IsAuth(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	res, err := c.Login(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "temp-token", c.Token())

	res, err = c.IsAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer temp-token", res.Message)
}

func TestWithHTTPClientAddsCookieJar(t *testing.T) {
	srv := newFakeAPI(t)
	hc := &http.Client{}
	c, err := New(srv.URL, WithHTTPClient(hc))
	require.NoError(t, err)
	require.NotNil(t, hc.Jar)

	_, err = c.Login(context.Background(), "asha@example.com", "secret1")
	require.NoError(t, err)
	_, err = c.IsAuth(context.Background())
	assert.NoError(t, err)
}

func TestAPIErrors(t *testing.T) {
	srv := newFakeAPI(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Login(ctx, "asha@example.com", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.MsgInvalidCredentials, apiErr.Message)
	assert.Empty(t, c.Token())

	_, err = c.SendVerifyOTP(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.Status)
	assert.Equal(t, api.MsgAlreadyVerified, apiErr.Message)

	c.SetToken("tk")
	err = c.Logout(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.Empty(t, c.Token(), "logout forgets the token even on failure")
}

func TestJobsQuery(t *testing.T) {
	srv := newFakeAPI(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	res, err := c.Jobs(context.Background(), "front end", "React")
	require.NoError(t, err)
	assert.Equal(t, "q=front+end&skill=React", res.Message)
	require.Len(t, res.Jobs, 1)

	res, err = c.Jobs(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, res.Message)
}

func TestResumeRoundTrip(t *testing.T) {
	srv := newFakeAPI(t)
	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := c.UploadResume(ctx, "asha@example.com", "cv.pdf", bytes.NewBufferString("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf:%PDF", res.Message)

	var buf bytes.Buffer
	name, err := c.DownloadResume(ctx, "asha@example.com", &buf)
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", name)
	assert.Equal(t, "%PDF", buf.String())
}

func TestTransportError(t *testing.T) {
	srv := newFakeAPI(t)
	url := srv.URL
	srv.Close()

	c, err := New(url)
	require.NoError(t, err)
	_, err = c.Jobs(context.Background(), "", "")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
