package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"kami-system/internal/domain"
	"kami-system/internal/domain/model"
	"kami-system/internal/usecase"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type codeRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type generateRequest struct {
	Count     int     `json:"count"`
	Days      int     `json:"days"`
	Value     float64 `json:"value"`
	Type      string  `json:"type"`
	ExpiresAt *int64  `json:"expiresAt"`
}

// userView is the account shape returned to clients; never the hash.
type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func viewOf(u *model.User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: string(u.Role)}
}

func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondMessage(w, "kami API service is running")
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// initHandler bootstraps the default admin account exactly once.
func initHandler(authUC usecase.AuthUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		created, err := authUC.InitAdmin(r.Context())
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		if !created {
			respondMessage(w, "admin account already initialized")
			return
		}
		respondOK(w, map[string]string{
			"username": usecase.DefaultAdminUsername,
			"password": usecase.DefaultAdminPassword,
		})
	}
}

func registerHandler(authUC usecase.AuthUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := authUC.Register(r.Context(), req.Username, req.Password, req.Email)
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				respondError(w, http.StatusBadRequest, "username already taken")
				return
			}
			respondDomainError(w, err, dev)
			return
		}
		respondCreated(w, viewOf(user))
	}
}

func loginHandler(authUC usecase.AuthUseCase, tm *TokenManager, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := authUC.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			// Generic 401: never reveal whether the username or the
			// password was wrong.
			if errors.Is(err, domain.ErrBadCredentials) || errors.Is(err, domain.ErrInvalidArgument) {
				respondError(w, http.StatusUnauthorized, "invalid username or password")
				return
			}
			respondDomainError(w, err, dev)
			return
		}
		token, err := tm.Issue(user)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, map[string]interface{}{
			"token": token,
			"user":  viewOf(user),
		})
	}
}

// verifyHandler checks a code without consuming it.
func verifyHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req codeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		kami, err := kamiUC.Verify(r.Context(), req.Code, req.Password)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, kami)
	}
}

// useHandler redeems a code and extends the caller's membership.
func useHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req codeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		expireTime, err := kamiUC.Redeem(r.Context(), req.Code, req.Password, claims.Subject)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, map[string]int64{"expireTime": expireTime})
	}
}

func generateHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := generateRequest{Count: 1, Days: 30}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		created, err := kamiUC.Generate(r.Context(), req.Count, req.Days, req.Value, req.Type, req.ExpiresAt)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, created)
	}
}

func listHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		total, items, err := kamiUC.List(r.Context(), q.Get("status"), page, limit)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, map[string]interface{}{
			"total": total,
			"items": items,
		})
	}
}

func statsHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := kamiUC.Stats(r.Context())
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, stats)
	}
}

func recentHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := kamiUC.Recent(r.Context(), limit)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, items)
	}
}

func usageTrendHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var start, end time.Time
		if s := q.Get("startDate"); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid startDate, expected YYYY-MM-DD")
				return
			}
			start = t
		}
		if s := q.Get("endDate"); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid endDate, expected YYYY-MM-DD")
				return
			}
			end = t
		}
		points, err := kamiUC.UsageTrend(r.Context(), start, end)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, points)
	}
}

func typeDistributionHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dist, err := kamiUC.TypeDistribution(r.Context())
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, dist)
	}
}

func revenueTrendHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trend, err := kamiUC.RevenueTrend(r.Context())
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, trend)
	}
}

func logsHandler(kamiUC usecase.KamiUseCase, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := kamiUC.RecentLogs(r.Context(), limit)
		if err != nil {
			respondDomainError(w, err, dev)
			return
		}
		respondOK(w, entries)
	}
}
