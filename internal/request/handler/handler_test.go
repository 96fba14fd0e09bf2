package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/okatech-org/consulat-sub002/internal/profile"
	"github.com/okatech-org/consulat-sub002/internal/request/guard"
	"github.com/okatech-org/consulat-sub002/internal/request/ledger"
	"github.com/okatech-org/consulat-sub002/internal/request/models"
	"github.com/okatech-org/consulat-sub002/internal/request/service"
	"github.com/okatech-org/consulat-sub002/internal/request/store"
	"github.com/okatech-org/consulat-sub002/internal/staff"
	id "github.com/okatech-org/consulat-sub002/pkg/domain"
)

const signingKey = "test-signing-key"

type testEnv struct {
	router   http.Handler
	requests *store.InMemoryStore
	tokens   *staff.TokenService
	agentID  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	requests := store.NewInMemoryStore()
	profiles := profile.NewInMemoryStore()
	g := guard.New(guard.Policy{})

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	svc := service.New(requests, profiles, g, service.WithLogger(logger))
	led := ledger.New(requests, ledger.WithLogger(logger))
	tokens := staff.NewTokenService(signingKey, "consulat-portal", "consulat-staff")

	r := chi.NewRouter()
	New(svc, led, logger, tokens).Register(r)

	return &testEnv{
		router:   r,
		requests: requests,
		tokens:   tokens,
		agentID:  uuid.New(),
	}
}

func (e *testEnv) token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := e.tokens.GenerateAccessToken(userID, role, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createRequest(t *testing.T, citizenID string) requestResponse {
	t.Helper()
	token := e.token(t, uuid.New(), string(models.RoleManager))
	rec := e.do(t, http.MethodPost, "/requests", token, map[string]string{
		"citizen_id":       citizenID,
		"service_category": "consular_card",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp requestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (e *testEnv) forceStatus(t *testing.T, requestID string, status models.Status) {
	t.Helper()
	parsed, err := id.ParseRequestID(requestID)
	require.NoError(t, err)
	_, err = e.requests.Execute(context.Background(), parsed, store.VersionAny,
		func(*models.ServiceRequest) error { return nil },
		func(r *models.ServiceRequest) { r.ApplyStatus(status, time.Now().UTC()) },
	)
	require.NoError(t, err)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/requests/"+uuid.NewString(), "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetRequest(t *testing.T) {
	env := newTestEnv(t)
	citizenID := uuid.NewString()
	created := env.createRequest(t, citizenID)

	require.Equal(t, "DRAFT", created.Status)
	require.Equal(t, "Draft", created.StatusLabel)
	require.Equal(t, citizenID, created.CitizenID)

	token := env.token(t, uuid.New(), string(models.RoleAgent))
	rec := env.do(t, http.MethodGet, "/requests/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched requestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	require.Equal(t, created.ID, fetched.ID)
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, uuid.New(), string(models.RoleManager))

	rec := env.do(t, http.MethodPost, "/requests", token, map[string]string{
		"citizen_id":       "not-a-uuid",
		"service_category": "consular_card",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/requests", token, map[string]string{
		"citizen_id":       uuid.NewString(),
		"service_category": "mystery",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransitions(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRequest(t, uuid.NewString())

	token := env.token(t, uuid.New(), string(models.RoleManager))
	rec := env.do(t, http.MethodGet, "/requests/"+created.ID+"/transitions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Transitions []transitionResponse `json:"transitions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Transitions, len(models.All()))

	byTarget := map[string]transitionResponse{}
	for _, tr := range resp.Transitions {
		byTarget[tr.Target] = tr
	}
	require.False(t, byTarget["DRAFT"].Allowed)
	require.Equal(t, "NO_OP", byTarget["DRAFT"].Reason)
	require.True(t, byTarget["SUBMITTED"].Allowed)
	require.Equal(t, "Submitted", byTarget["SUBMITTED"].TargetLabel)
}

func TestApplyTransition(t *testing.T) {
	env := newTestEnv(t)

	t.Run("forward transition succeeds", func(t *testing.T) {
		created := env.createRequest(t, uuid.NewString())
		token := env.token(t, uuid.New(), string(models.RoleManager))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/transitions", token, map[string]any{
			"target":           "SUBMITTED",
			"expected_version": created.Version,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp applyResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, "SUBMITTED", resp.Request.Status)
		require.Equal(t, created.Version+1, resp.Request.Version)
		require.False(t, resp.FinalizationFailed)
	})

	t.Run("rejection without note is denied", func(t *testing.T) {
		created := env.createRequest(t, uuid.NewString())
		env.forceStatus(t, created.ID, models.StatusPending)

		token := env.token(t, uuid.New(), string(models.RoleManager))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/transitions", token, map[string]any{
			"target":           "REJECTED",
			"expected_version": 1,
		})
		require.Equal(t, http.StatusConflict, rec.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Equal(t, "TRANSITION_DENIED", resp["error"])
		require.Equal(t, "MISSING_REQUIRED_NOTE", resp["reason"])
	})

	t.Run("unassigned agent gets forbidden", func(t *testing.T) {
		created := env.createRequest(t, uuid.NewString())
		token := env.token(t, env.agentID, string(models.RoleAgent))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/transitions", token, map[string]any{
			"target":           "SUBMITTED",
			"expected_version": created.Version,
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		created := env.createRequest(t, uuid.NewString())
		token := env.token(t, uuid.New(), string(models.RoleManager))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/transitions", token, map[string]any{
			"target":           "SUBMITTED",
			"expected_version": created.Version + 9,
		})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing expected version is rejected", func(t *testing.T) {
		created := env.createRequest(t, uuid.NewString())
		token := env.token(t, uuid.New(), string(models.RoleManager))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/transitions", token, map[string]any{
			"target": "SUBMITTED",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAssignEndpoint(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRequest(t, uuid.NewString())
	reviewerID := uuid.NewString()

	t.Run("manager assigns", func(t *testing.T) {
		token := env.token(t, uuid.New(), string(models.RoleManager))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/assignee", token, map[string]any{
			"reviewer_id": reviewerID,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp requestResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.NotNil(t, resp.AssignedTo)
		require.Equal(t, reviewerID, *resp.AssignedTo)
	})

	t.Run("agent cannot assign", func(t *testing.T) {
		token := env.token(t, env.agentID, string(models.RoleAgent))
		rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/assignee", token, map[string]any{
			"reviewer_id": env.agentID.String(),
		})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestNotesEndpoints(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRequest(t, uuid.NewString())
	token := env.token(t, uuid.New(), string(models.RoleManager))

	rec := env.do(t, http.MethodPost, "/requests/"+created.ID+"/notes", token, map[string]any{
		"body": "please attach the birth certificate",
		"type": "FEEDBACK",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/requests/"+created.ID+"/notes", token, map[string]any{
		"body": "   ",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodGet, "/requests/"+created.ID+"/notes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Notes []noteResponse `json:"notes"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Notes, 1)
	require.Equal(t, "please attach the birth certificate", resp.Notes[0].Body)
}

func TestProfileCompletionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, uuid.New(), string(models.RoleAgent))

	rec := env.do(t, http.MethodGet, "/profiles/"+uuid.NewString()+"/completion", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var completion profile.Completion
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&completion))
	require.Equal(t, 0, completion.Overall)
	require.False(t, completion.CanSubmit)
}

func TestCitizenOverviewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	citizenID := uuid.NewString()
	env.createRequest(t, citizenID)
	env.createRequest(t, citizenID)

	token := env.token(t, uuid.New(), string(models.RoleAgent))
	rec := env.do(t, http.MethodGet, "/citizens/"+citizenID+"/overview", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var overview struct {
		Requests   []requestResponse  `json:"requests"`
		Completion profile.Completion `json:"completion"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&overview))
	require.Len(t, overview.Requests, 2)
	require.Equal(t, 0, overview.Completion.Overall)
}
