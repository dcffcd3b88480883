package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveAPICall(method, resource string, status int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, method+" "+resource)
}

func TestGetJSONSendsCookiesAndRequestID(t *testing.T) {
	var gotCookie, gotRequestID, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			gotCookie = c.Value
		}
		gotRequestID = r.Header.Get(RequestIDHeader)
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/api/agenda/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"titulo":"Pedir carbón"}`))
	}))
	defer server.Close()

	base, _ := url.Parse(server.URL + "/api")
	obs := &recordingObserver{}
	client, err := New(Options{
		BaseURL:   base.String(),
		Cookies:   []*http.Cookie{{Name: "sid", Value: "abc"}},
		Observer:  obs,
		RequestID: "req-1",
	})
	require.NoError(t, err)

	var out struct {
		ID     int    `json:"id"`
		Titulo string `json:"titulo"`
	}
	err = client.GetJSON(context.Background(), Path("agenda", "7"), url.Values{"estado": {"pendiente"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.ID)
	assert.Equal(t, "abc", gotCookie)
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, "estado=pendiente", gotQuery)
	assert.Equal(t, []string{"GET agenda"}, obs.calls)
}

func TestRotatedCookiesAreExposed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "rotated", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL, Cookies: []*http.Cookie{{Name: "sid", Value: "old"}}})
	require.NoError(t, err)
	require.NoError(t, client.PostJSON(context.Background(), "auth/refresh", map[string]string{}, nil))

	cookies := client.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "rotated", cookies[0].Value)
}

func TestErrorBodyMessagesAreSurfacedVerbatim(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "error field", status: http.StatusBadRequest, body: `{"error":"El período está cerrado"}`, want: "El período está cerrado"},
		{name: "mensaje field", status: http.StatusConflict, body: `{"mensaje":"Ya existe un retiro para esa fecha"}`, want: "Ya existe un retiro para esa fecha"},
		{name: "html body", status: http.StatusInternalServerError, body: `<html>boom</html>`, want: MsgGeneric},
		{name: "empty body not found", status: http.StatusNotFound, body: ``, want: MsgNotFound},
		{name: "json without message", status: http.StatusUnauthorized, body: `{"ok":false}`, want: MsgUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := New(Options{BaseURL: server.URL})
			require.NoError(t, err)
			err = client.PutJSON(context.Background(), "tesoreria/retiros/3", map[string]any{"monto": 10}, nil)
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, KindStatus, apiErr.Kind)
			assert.Equal(t, tc.status, StatusCode(err))
			assert.Equal(t, tc.want, Message(err))
		})
	}
}

func TestTransportFailureIsRecoveredAsMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client, err := New(Options{BaseURL: addr, Timeout: time.Second})
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "agenda", nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, MsgTransport, Message(err))
	assert.Zero(t, StatusCode(err))
}

func TestDecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL})
	require.NoError(t, err)
	var out map[string]any
	err = client.GetJSON(context.Background(), "agenda/1", nil, &out)
	require.Error(t, err)
	assert.Equal(t, MsgDecode, Message(err))
}

func TestNewRejectsRelativeBase(t *testing.T) {
	_, err := New(Options{BaseURL: "/api"})
	require.Error(t, err)
}

func TestPathEscapesSegments(t *testing.T) {
	assert.Equal(t, "agenda/7/completar", Path("agenda", "7", "completar"))
	assert.Equal(t, "empleados/a%20b", Path("/empleados/", "a b", ""))
	assert.Equal(t, MsgGeneric, Message(errors.New("plain")))
	assert.Empty(t, Message(nil))
}

func TestDotSegmentsNeverReachTheAPI(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := New(Options{BaseURL: server.URL + "/api"})
	require.NoError(t, err)
	for _, id := range []string{"..", "."} {
		err = client.Delete(context.Background(), Path("agenda", id), nil)
		require.ErrorIs(t, err, ErrInvalidPath, id)
	}
	require.NoError(t, client.Delete(context.Background(), Path("agenda", "..7"), nil))
	assert.Equal(t, 1, hits)
}
