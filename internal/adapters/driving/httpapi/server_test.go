package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenplate-labs/greenplate/internal/core/domain"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

type mockAsk struct {
	state domain.RagState
	err   error
}

func (m *mockAsk) Ask(_ context.Context, question string) (domain.RagState, error) {
	if m.err != nil {
		return domain.RagState{}, m.err
	}
	state := m.state
	state.Question = question
	return state, nil
}

type mockVerifier struct {
	principal domain.Principal
	err       error
	gotToken  string
}

func (m *mockVerifier) Verify(_ context.Context, token string) (domain.Principal, error) {
	m.gotToken = token
	return m.principal, m.err
}

func doRequest(t *testing.T, s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(Config{}, &mockAsk{})

	rec := doRequest(t, s, http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"status OK"}`, rec.Body.String())
}

func TestAskDisabledAuthGrantsDevPrincipal(t *testing.T) {
	ask := &mockAsk{state: domain.RagState{Answer: "the answer"}}
	s := NewServer(Config{RequiredGroup: "users"}, ask)

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"what about beef?"}`, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var state domain.RagState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "the answer", state.Answer)
	assert.Equal(t, "what about beef?", state.Question)
}

func TestAskMissingToken(t *testing.T) {
	s := NewServer(Config{Verifier: &mockVerifier{}}, &mockAsk{})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAskInvalidToken(t *testing.T) {
	verifier := &mockVerifier{err: domain.ErrAuthInvalid}
	s := NewServer(Config{Verifier: verifier}, &mockAsk{})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "bad-token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad-token", verifier.gotToken)
}

func TestAskGroupRequired(t *testing.T) {
	verifier := &mockVerifier{principal: domain.Principal{Sub: "user-1", Groups: []string{"other"}}}
	s := NewServer(Config{Verifier: verifier, RequiredGroup: "users"}, &mockAsk{})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "token")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAskAdminBypassesGroupCheck(t *testing.T) {
	verifier := &mockVerifier{principal: domain.Principal{Sub: "root", Groups: []string{domain.AdminGroup}}}
	s := NewServer(Config{Verifier: verifier, RequiredGroup: "users"}, &mockAsk{state: domain.RagState{Answer: "ok"}})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "token")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAskGroupMember(t *testing.T) {
	verifier := &mockVerifier{principal: domain.Principal{Sub: "user-1", Groups: []string{"users"}}}
	s := NewServer(Config{Verifier: verifier, RequiredGroup: "users"}, &mockAsk{state: domain.RagState{Answer: "ok"}})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "token")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAskMalformedBody(t *testing.T) {
	s := NewServer(Config{}, &mockAsk{})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{not json`, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAskEmptyQuestion(t *testing.T) {
	s := NewServer(Config{}, &mockAsk{})

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"   "}`, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAskInvalidInputFromPipeline(t *testing.T) {
	ask := &mockAsk{err: domain.ErrInvalidInput}
	s := NewServer(Config{}, ask)

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAskPipelineError(t *testing.T) {
	ask := &mockAsk{err: errors.New("retrieval failed")}
	s := NewServer(Config{}, ask)

	rec := doRequest(t, s, http.MethodPost, "/ask", `{"question":"q"}`, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal details never leak to the client.
	assert.NotContains(t, rec.Body.String(), "retrieval failed")
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(Config{}, &mockAsk{})

	rec := doRequest(t, s, http.MethodOptions, "/ask", "", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDAssigned(t *testing.T) {
	s := NewServer(Config{}, &mockAsk{})

	rec := doRequest(t, s, http.MethodGet, "/", "", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDPreserved(t *testing.T) {
	s := NewServer(Config{}, &mockAsk{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied-id", rec.Header().Get("X-Request-ID"))
}

func TestServerModeFollowsVerbosity(t *testing.T) {
	defer logger.SetVerbose(false)

	logger.SetVerbose(true)
	NewServer(Config{}, &mockAsk{})
	assert.Equal(t, gin.DebugMode, gin.Mode())

	logger.SetVerbose(false)
	NewServer(Config{}, &mockAsk{})
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}
