package transport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yacnet/signupd/internal/domain/project"
	"github.com/yacnet/signupd/internal/domain/signup"
	"github.com/yacnet/signupd/internal/domain/slot"
	"github.com/yacnet/signupd/internal/store"
	"github.com/yacnet/signupd/internal/store/memstore"
	"github.com/yacnet/signupd/internal/transport"
)

const adminToken = "test-admin-key"

type staticVerifier struct{}

func (staticVerifier) VerifyAdmin(_ context.Context, token string) (string, error) {
	if token == adminToken {
		return "admin", nil
	}
	return "", transport.ErrUnauthorized
}

type testEnv struct {
	server *httptest.Server
	slots  *memstore.Table
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	projects := memstore.New()
	slots := memstore.New()
	volunteers := memstore.New()

	router := transport.NewServer(transport.Options{
		Projects: project.NewService(projects, slots, nil),
		Slots:    slot.NewService(slots, volunteers, nil),
		Signups:  signup.NewService(slots, volunteers, nil, nil),
		Verifier: staticVerifier{},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, slots: slots}
}

func (e *testEnv) seedSlot(t *testing.T, capacity int, status string) {
	t.Helper()
	_, err := e.slots.Insert(context.Background(), &store.Entity{
		PartitionKey: "proj1",
		RowKey:       "slot1",
		Props: map[string]any{
			"Task": "Serve lunch", "Date": "2026-09-12", "Time": "12:00",
			"Status": status, "Capacity": capacity, "FilledCount": 0,
		},
	})
	require.NoError(t, err)
}

func (e *testEnv) do(t *testing.T, method, path string, body any, admin bool) (*http.Response, map[string]any) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	decoded := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	return resp, decoded
}

func signupBody(name string) map[string]string {
	return map[string]string{
		"firstName": name,
		"lastName":  "Tester",
		"email":     name + "@example.org",
	}
}

func TestSignupEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 2, "available")

	resp, body := env.do(t, http.MethodPost, "/api/projects/proj1/slots/slot1/signup", signupBody("ada"), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "Slot signed up successfully!", body["message"])

	slotBody, ok := body["slot"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(1), slotBody["filledCount"])
	require.Equal(t, float64(1), slotBody["spotsRemaining"])
	require.Equal(t, "available", slotBody["status"])

	volBody, ok := body["volunteer"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "ada@example.org", volBody["email"])
	require.NotEmpty(t, volBody["id"])
}

func TestSignupEndpoint_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 1, "available")

	resp, body := env.do(t, http.MethodPost, "/api/projects/proj1/slots/slot1/signup",
		map[string]string{"firstName": "Ada"}, false)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing volunteer name or email.", body["error"])
}

func TestSignupEndpoint_SlotNotFound(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/projects/proj1/slots/missing/signup", signupBody("ada"), false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Slot not found.", body["error"])
}

func TestSignupEndpoint_SlotFull(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 1, "available")

	resp, _ := env.do(t, http.MethodPost, "/api/projects/proj1/slots/slot1/signup", signupBody("ada"), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/projects/proj1/slots/slot1/signup", signupBody("ben"), false)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "This slot is already full.", body["error"])
}

func TestSignupEndpoint_HeldSlot(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 1, "held")

	resp, _ := env.do(t, http.MethodPost, "/api/projects/proj1/slots/slot1/signup", signupBody("ada"), false)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 2, "available")

	resp, err := http.Get(env.server.URL + "/api/projects/proj1/slots")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var slots []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&slots))
	require.Len(t, slots, 1)
	require.Equal(t, "slot1", slots[0]["id"])
	require.Equal(t, float64(2), slots[0]["capacity"])
}

func TestVolunteerRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 1, "available")

	resp, _ := env.do(t, http.MethodGet, "/api/projects/proj1/slots/slot1/volunteers", nil, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/projects/proj1/slots/slot1/volunteers", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, ok := body["volunteers"]
	require.True(t, ok)
}

func TestWithdrawEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedSlot(t, 1, "available")

	resp, body := env.do(t, http.MethodPost, "/api/projects/proj1/slots/slot1/signup", signupBody("ada"), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	volunteerID := body["volunteer"].(map[string]any)["id"].(string)

	path := fmt.Sprintf("/api/projects/proj1/slots/slot1/volunteers/%s", volunteerID)
	resp, body = env.do(t, http.MethodDelete, path, nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Volunteer removed from slot.", body["message"])

	slotBody := body["slot"].(map[string]any)
	require.Equal(t, float64(0), slotBody["filledCount"])
	require.Equal(t, "available", slotBody["status"])

	resp, body = env.do(t, http.MethodDelete, path, nil, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Volunteer signup not found.", body["error"])
}

func TestAdminSlotLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/projects", map[string]string{"title": "x"}, false)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/projects", map[string]string{
		"title": "Food Drive", "description": "Annual", "contactEmail": "lead@example.org",
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	projectID := body["project"].(map[string]any)["id"].(string)

	resp, body = env.do(t, http.MethodPost, "/api/projects/"+projectID+"/slots", map[string]any{
		"task": "Serve lunch", "date": "2026-09-12", "time": "12:00", "capacity": 2,
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	slotID := body["slot"].(map[string]any)["id"].(string)

	resp, body = env.do(t, http.MethodPatch, "/api/projects/"+projectID+"/slots/"+slotID,
		map[string]any{"status": "held"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "held", body["slot"].(map[string]any)["status"])

	resp, _ = env.do(t, http.MethodDelete, "/api/projects/"+projectID+"/slots/"+slotID, nil, true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/api/projects/"+projectID+"/slots/"+slotID, nil, true)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListProjectsWithTotals(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/projects", map[string]string{
		"title": "Food Drive", "description": "Annual", "contactEmail": "lead@example.org",
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	projectID := body["project"].(map[string]any)["id"].(string)

	resp, _ = env.do(t, http.MethodPost, "/api/projects/"+projectID+"/slots", map[string]any{
		"task": "Serve lunch", "date": "2026-09-12", "time": "12:00", "capacity": 3,
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	httpResp, err := http.Get(env.server.URL + "/api/projects")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	var summaries []map[string]any
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&summaries))
	require.Len(t, summaries, 1)

	totals := summaries[0]["totals"].(map[string]any)
	require.Equal(t, float64(1), totals["totalSlots"])
	require.Equal(t, float64(3), totals["totalCapacity"])
	require.Equal(t, true, totals["hasOpenSlots"])
}
