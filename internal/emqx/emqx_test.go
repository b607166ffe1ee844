package emqx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ntentasd/nostradamus-advisor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *EmqxClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(strings.TrimPrefix(srv.URL, "http://"), "key", "secret", "")
	require.NoError(t, err)
	return c
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New("emqx:18083", "", "secret", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestNotify(t *testing.T) {
	alert := types.Alert{
		AlertID:  uuid.New(),
		SensorID: "S1",
		Metric:   types.MetricTemperature,
		Severity: types.SeverityCritical,
		Message:  "Critical temperature",
		Value:    41,
	}

	var got publishRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v5/publish", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"0006"}`))
	})

	require.NoError(t, c.Notify(context.Background(), alert))

	assert.Equal(t, "alerts/S1", got.Topic)
	assert.Equal(t, 1, got.QoS)
	var payload types.Alert
	require.NoError(t, json.Unmarshal([]byte(got.Payload), &payload))
	assert.Equal(t, alert.AlertID, payload.AlertID)
}

func TestPublish_NoSubscribers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"0007","reason_code":16,"message":"no_matching_subscribers"}`))
	})

	res, err := c.Publish(context.Background(), "alerts/S2", []byte("{}"))
	require.NoError(t, err)
	assert.Equal(t, "0007", res.ID)
}

func TestPublish_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"BAD_USERNAME_OR_PWD"}`, http.StatusUnauthorized)
	})

	err := c.Notify(context.Background(), types.Alert{SensorID: "S1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
