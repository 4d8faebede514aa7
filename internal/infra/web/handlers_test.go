package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kami-system/internal/config"
	"kami-system/internal/domain/model"
	"kami-system/internal/usecase"

	"github.com/go-chi/chi/v5"
)

type testEnv struct {
	router chi.Router
	tokens *TokenManager
	kamis  *mockKamiRepo
	users  *mockUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	kamis := newMockKamiRepo()
	users := newMockUserRepo()
	logs := &mockLogRepo{}
	logger := newTestLogger()

	authUC := usecase.NewAuthUseCase(users, logger)
	kamiUC := usecase.NewKamiUseCase(kamis, users, logs, logger)
	tokens := NewTokenManager("test-secret", time.Hour)
	limiter := NewRateLimiter(config.RateLimitConfig{
		Window:      time.Minute,
		MaxRequests: 10000,
		BlockFor:    time.Minute,
		Sweep:       time.Minute,
	})
	srv := NewServer(authUC, kamiUC, tokens, limiter, logger, false)
	return &testEnv{
		router: srv.Router(),
		tokens: tokens,
		kamis:  kamis,
		users:  users,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) tokenFor(t *testing.T, username string, role model.Role) string {
	t.Helper()
	user, err := model.NewUser(username, "hash", "", role)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	token, err := e.tokens.Issue(user)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body: %s)", err, rr.Body.String())
	}
	return env
}

func TestLiveness(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "GET", "/", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Error("liveness envelope not successful")
	}
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, "OPTIONS", "/api/kami/use", "", nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers on preflight")
	}
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	t.Run("register", func(t *testing.T) {
		rr := e.do(t, "POST", "/api/auth/register", "", map[string]string{
			"username": "alice", "password": "hunter2",
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("duplicate register", func(t *testing.T) {
		rr := e.do(t, "POST", "/api/auth/register", "", map[string]string{
			"username": "alice", "password": "other",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("login", func(t *testing.T) {
		rr := e.do(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "alice", "password": "hunter2",
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}
		env := decodeEnvelope(t, rr)
		data := env.Data.(map[string]interface{})
		if data["token"] == "" {
			t.Error("no token issued")
		}
	})

	t.Run("login with wrong password is generic 401", func(t *testing.T) {
		rr := e.do(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "alice", "password": "wrong",
		})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
		rr2 := e.do(t, "POST", "/api/auth/login", "", map[string]string{
			"username": "ghost", "password": "wrong",
		})
		if decodeEnvelope(t, rr).Message != decodeEnvelope(t, rr2).Message {
			t.Error("login failures leak which check failed")
		}
	})
}

func TestInitEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, "GET", "/api/init", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	rr = e.do(t, "GET", "/api/init", "", nil)
	env := decodeEnvelope(t, rr)
	if !env.Success || env.Message == "" {
		t.Error("second init should report already initialized")
	}
}

func TestAuthGuard(t *testing.T) {
	e := newTestEnv(t)
	userToken := e.tokenFor(t, "bob", model.RoleUser)

	t.Run("missing token", func(t *testing.T) {
		rr := e.do(t, "POST", "/api/kami/use", "", map[string]string{"code": "X"})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		rr := e.do(t, "POST", "/api/kami/use", "garbage", map[string]string{"code": "X"})
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("non-admin on admin route", func(t *testing.T) {
		rr := e.do(t, "GET", "/api/kami/stats", userToken, nil)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rr.Code)
		}
	})
}

func TestGenerateAndRedeemFlow(t *testing.T) {
	e := newTestEnv(t)
	adminToken := e.tokenFor(t, "root", model.RoleAdmin)
	userToken := e.tokenFor(t, "bob", model.RoleUser)

	// Admin generates a code.
	rr := e.do(t, "POST", "/api/kami/generate", adminToken, map[string]interface{}{
		"count": 1, "days": 30, "value": 9.9,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var genResp struct {
		Data []struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &genResp); err != nil {
		t.Fatal(err)
	}
	if len(genResp.Data) != 1 {
		t.Fatalf("expected 1 generated code, got %d", len(genResp.Data))
	}
	code := genResp.Data[0].Code

	// User verifies, then redeems.
	rr = e.do(t, "POST", "/api/kami/verify", userToken, map[string]string{"code": code})
	if rr.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = e.do(t, "POST", "/api/kami/use", userToken, map[string]string{"code": code})
	if rr.Code != http.StatusOK {
		t.Fatalf("use status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var useResp struct {
		Data struct {
			ExpireTime int64 `json:"expireTime"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &useResp); err != nil {
		t.Fatal(err)
	}
	if useResp.Data.ExpireTime == 0 {
		t.Error("no expireTime returned")
	}

	// Second redemption fails with a conflict.
	rr = e.do(t, "POST", "/api/kami/use", userToken, map[string]string{"code": code})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("second use status = %d, want 400", rr.Code)
	}

	// Unknown code is a 404.
	rr = e.do(t, "POST", "/api/kami/use", userToken, map[string]string{"code": "0000000000000000"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown code status = %d, want 404", rr.Code)
	}

	// Stats reflect the redemption.
	rr = e.do(t, "GET", "/api/kami/stats", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}
	var statsResp struct {
		Data usecase.KamiStats `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &statsResp); err != nil {
		t.Fatal(err)
	}
	if statsResp.Data.TotalKami != 1 || statsResp.Data.UsedKami != 1 {
		t.Errorf("stats = %+v", statsResp.Data)
	}
	if statsResp.Data.TotalRevenue != 9.9 {
		t.Errorf("totalRevenue = %f, want 9.9", statsResp.Data.TotalRevenue)
	}

	// Audit log captured the redemption.
	rr = e.do(t, "GET", "/api/kami/logs", adminToken, nil)
	var logsResp struct {
		Data []model.RedemptionLog `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &logsResp); err != nil {
		t.Fatal(err)
	}
	if len(logsResp.Data) != 1 || logsResp.Data[0].Code != code {
		t.Errorf("logs = %+v", logsResp.Data)
	}
}

func TestListEndpoint(t *testing.T) {
	e := newTestEnv(t)
	adminToken := e.tokenFor(t, "root", model.RoleAdmin)

	rr := e.do(t, "POST", "/api/kami/generate", adminToken, map[string]interface{}{
		"count": 15, "days": 7,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("generate status = %d", rr.Code)
	}

	rr = e.do(t, "GET", "/api/kami/list?page=2&limit=10", adminToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var listResp struct {
		Data struct {
			Total int          `json:"total"`
			Items []model.Kami `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listResp); err != nil {
		t.Fatal(err)
	}
	if listResp.Data.Total != 15 || len(listResp.Data.Items) != 5 {
		t.Errorf("page 2: total=%d len=%d, want 15/5", listResp.Data.Total, len(listResp.Data.Items))
	}
}

func TestTrendEndpointValidation(t *testing.T) {
	e := newTestEnv(t)
	adminToken := e.tokenFor(t, "root", model.RoleAdmin)

	rr := e.do(t, "GET", "/api/kami/usage-trend?startDate=bogus", adminToken, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestStoreFailureIsGeneric500(t *testing.T) {
	e := newTestEnv(t)
	adminToken := e.tokenFor(t, "root", model.RoleAdmin)
	e.kamis.ListError = errors.New("kv store unavailable")

	rr := e.do(t, "GET", "/api/kami/stats", adminToken, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Message != "internal error" {
		t.Errorf("production error message leaked detail: %q", env.Message)
	}
}

func TestRateLimitedRequestIs429(t *testing.T) {
	kamis := newMockKamiRepo()
	users := newMockUserRepo()
	logger := newTestLogger()
	authUC := usecase.NewAuthUseCase(users, logger)
	kamiUC := usecase.NewKamiUseCase(kamis, users, &mockLogRepo{}, logger)
	tokens := NewTokenManager("test-secret", time.Hour)
	limiter := NewRateLimiter(config.RateLimitConfig{
		Window:      time.Minute,
		MaxRequests: 2,
		BlockFor:    time.Minute,
		Sweep:       time.Minute,
	})
	router := NewServer(authUC, kamiUC, tokens, limiter, logger, false).Router()

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rr.Code)
	}
	if decodeEnvelope(t, rr).Success {
		t.Error("rate-limited response claims success")
	}
}
