package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/ledger"
	"pharmtrack/m/internal/report"
	"pharmtrack/m/internal/restock"
	"pharmtrack/m/internal/store"
)

type ctxKey string

const (
	ctxUserID     ctxKey = "userID"
	ctxRole       ctxKey = "role"
	ctxPharmacyID ctxKey = "pharmacyID"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	store   store.Store
	ledger  *ledger.Service
	builder *restock.Builder
	manager *restock.Manager
	reports *report.Aggregator
	secret  string
	log     *logrus.Logger
}

// New constructs a Handler.
func New(st store.Store, led *ledger.Service, b *restock.Builder, m *restock.Manager, rep *report.Aggregator, secret string, log *logrus.Logger) *Handler {
	return &Handler{store: st, ledger: led, builder: b, manager: m, reports: rep, secret: secret, log: log}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/meta", h.meta)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/profile", func(r chi.Router) {
			r.Get("/", h.getProfile)
			r.Put("/", h.updateProfile)
		})

		pr.Route("/medicines", func(r chi.Router) {
			r.Post("/", h.addMedicine)
			r.Get("/", h.listMedicines)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deleteMedicine)
			r.Get("/low-stock", h.listLowStock)
			r.Get("/expiring", h.listExpiring)
		})

		pr.Route("/restock-requests", func(r chi.Router) {
			r.Get("/draft", h.draftRequest)
			r.Post("/draft", h.normalizeDraft)
			r.Post("/", h.submitRequest)
			r.Get("/", h.listOwnRequests)
			r.Get("/{id}", h.getOwnRequest)
		})

		pr.Route("/warehouse", func(r chi.Router) {
			r.Get("/requests", h.listAllRequests)
			r.Get("/requests/{id}", h.getRequest)
			r.Post("/requests/{id}/status", h.advanceRequest)
			r.Get("/low-stock", h.systemWideLowStock)
			r.Get("/overview", h.overview)
			r.Get("/stats", h.stats)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// meta exposes the enumerated constants the UI renders against.
func (h *Handler) meta(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"stock_statuses":     []domain.StockStatus{domain.OutOfStock, domain.LowStock, domain.InStock},
		"priorities":         []domain.Priority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh},
		"delivery_timelines": domain.DeliveryTimelines,
		"statuses":           []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusPrepared, domain.StatusShipped, domain.StatusDelivered},
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
			"duration":   time.Since(start).String(),
		}).Info("request")
	})
}

// Authentication helpers

type authClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		if claims.Role == domain.RolePharmacy {
			// A pharmacy account is its own pharmacy identity.
			ctx = context.WithValue(ctx, ctxPharmacyID, claims.UserID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

func pharmacyIDFromContext(r *http.Request) string {
	if val := r.Context().Value(ctxPharmacyID); val != nil {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// Auth handlers

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`

	PharmacyName string `json:"pharmacy_name,omitempty"`
	Address      string `json:"address,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "email, password and role are required")
		return
	}
	if req.Role != domain.RolePharmacy && req.Role != domain.RoleWarehouse {
		respondError(w, http.StatusBadRequest, "role must be pharmacy or warehouse")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, exists, err := h.store.Get(r.Context(), store.NamespaceUsers, email); err != nil {
		h.respondServiceError(w, err)
		return
	} else if exists {
		respondError(w, http.StatusConflict, "email already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	user := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  string(hashed),
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.putUser(r.Context(), user); err != nil {
		h.respondServiceError(w, err)
		return
	}

	if req.Role == domain.RolePharmacy {
		profile := domain.PharmacyProfile{
			PharmacyName: strings.TrimSpace(req.PharmacyName),
			Address:      strings.TrimSpace(req.Address),
			City:         strings.TrimSpace(req.City),
			State:        strings.TrimSpace(req.State),
			Phone:        strings.TrimSpace(req.Phone),
		}
		if err := h.putProfile(r.Context(), user.ID, profile); err != nil {
			h.respondServiceError(w, err)
			return
		}
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, ok, err := h.getUser(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if !ok || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: *user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	userID := r.Context().Value(ctxUserID).(string)
	user, ok, err := h.getUserByID(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusUnauthorized, "unknown account")
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	user.Password = string(hashed)
	if err := h.putUser(r.Context(), *user); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// User records live in the store keyed by email, with an id index for
// token-based lookups.

func (h *Handler) putUser(ctx context.Context, user domain.User) error {
	rec, err := json.Marshal(user)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: err}
	}
	if err := h.store.Put(ctx, store.NamespaceUsers, user.Email, rec); err != nil {
		return err
	}
	return h.store.Put(ctx, store.NamespaceUsers+"_by_id", user.ID, []byte(`"`+user.Email+`"`))
}

func (h *Handler) getUser(ctx context.Context, email string) (*domain.User, bool, error) {
	rec, ok, err := h.store.Get(ctx, store.NamespaceUsers, email)
	if err != nil || !ok {
		return nil, false, err
	}
	var user domain.User
	if err := json.Unmarshal(rec, &user); err != nil {
		return nil, false, &domain.StorageError{Op: "decode", Err: err}
	}
	return &user, true, nil
}

func (h *Handler) getUserByID(ctx context.Context, id string) (*domain.User, bool, error) {
	rec, ok, err := h.store.Get(ctx, store.NamespaceUsers+"_by_id", id)
	if err != nil || !ok {
		return nil, false, err
	}
	var email string
	if err := json.Unmarshal(rec, &email); err != nil {
		return nil, false, &domain.StorageError{Op: "decode", Err: err}
	}
	return h.getUser(ctx, email)
}

// Profile handlers

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	pharmacyID := pharmacyIDFromContext(r)
	rec, ok, err := h.store.Get(r.Context(), store.NamespaceProfiles, pharmacyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, domain.PharmacyProfile{})
		return
	}
	var profile domain.PharmacyProfile
	if err := json.Unmarshal(rec, &profile); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to decode profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var profile domain.PharmacyProfile
	if err := decodeJSON(r, &profile); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(profile.PharmacyName) == "" {
		respondError(w, http.StatusBadRequest, "pharmacy_name is required")
		return
	}
	if err := h.putProfile(r.Context(), pharmacyIDFromContext(r), profile); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (h *Handler) putProfile(ctx context.Context, pharmacyID string, profile domain.PharmacyProfile) error {
	rec, err := json.Marshal(profile)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: err}
	}
	return h.store.Put(ctx, store.NamespaceProfiles, pharmacyID, rec)
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the domain error taxonomy onto HTTP statuses.
// Error text is surfaced verbatim for the UI to display.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		emptyErr      *domain.EmptySelectionError
		transitionErr *domain.InvalidTransitionError
		storageErr    *domain.StorageError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &emptyErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFoundErr):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &transitionErr):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &storageErr):
		h.log.WithError(err).Error("storage failure")
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
