package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vichsort/PlantE/pkg/apperrors"
	"github.com/vichsort/PlantE/pkg/auth"
	"github.com/vichsort/PlantE/pkg/cache"
	"github.com/vichsort/PlantE/pkg/enrich"
	"github.com/vichsort/PlantE/pkg/models"
	"github.com/vichsort/PlantE/pkg/plantid"
	"github.com/vichsort/PlantE/pkg/repositories"
	"github.com/vichsort/PlantE/pkg/services"
)

// noopDispatcher satisfies services.Dispatcher for handler tests.
type noopDispatcher struct{}

func (noopDispatcher) DispatchEnrichment(string, string, uuid.UUID)    {}
func (noopDispatcher) DispatchHealthEnrichment(string, string, string) {}
func (noopDispatcher) DispatchStreakUpdate(uuid.UUID)                  {}

// fixture wires the full handler surface over mock repositories.
type fixture struct {
	mux    *http.ServeMux
	userID uuid.UUID
	user   *models.User

	users  *repositories.MockUserRepository
	plants *repositories.MockPlantRepository
	guides *repositories.MockGuideRepository
	grants *repositories.MockAchievementRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		mux:    http.NewServeMux(),
		userID: uuid.New(),
		plants: &repositories.MockPlantRepository{},
		guides: &repositories.MockGuideRepository{},
		grants: &repositories.MockAchievementRepository{},
	}
	f.user = &models.User{ID: f.userID, Email: "ana@example.com", SubscriptionStatus: models.SubscriptionFree}
	require.NoError(t, f.user.SetPassword("segredo123"))

	f.users = &repositories.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*models.User, error) {
			if id == f.userID {
				return f.user, nil
			}
			return nil, apperrors.ErrNotFound
		},
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == f.user.Email {
				return f.user, nil
			}
			return nil, apperrors.ErrNotFound
		},
	}

	achievements := services.NewAchievementService(f.grants, nil, logger)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	userSvc := services.NewUserService(f.users, achievements, tokens, logger)
	profileSvc := services.NewProfileService(f.users, f.plants, achievements, logger)

	guideCache := cache.NewGuideCache(cache.NewMemoryStore(), f.guides, enrich.NewMockClient(), logger)
	gate := services.NewRateLimitService(cache.NewMemoryStore(), 3, logger)
	gardenSvc := services.NewGardenService(&plantid.MockIdentifier{}, guideCache, f.plants, f.users, gate, achievements, noopDispatcher{}, logger)

	// Authentication is exercised in the auth package tests; here the
	// middleware just injects the fixture user.
	authed := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), f.userID)))
		})
	}

	NewAuthHandler(userSvc, logger).RegisterRoutes(f.mux)
	NewProfileHandler(profileSvc, userSvc, achievements, logger).RegisterRoutes(f.mux, authed)
	NewGardenHandler(gardenSvc, logger).RegisterRoutes(f.mux, authed)

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "nova@example.com", "password": "segredo123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "nova@example.com", resp.User.Email)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"password": "segredo123"}},
		{"malformed email", map[string]string{"email": "nope", "password": "segredo123"}},
		{"short password", map[string]string{"email": "a@b.com", "password": "curta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/auth/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.users.CreateFunc = func(ctx context.Context, user *models.User) error {
		return apperrors.ErrConflict
	}

	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "ana@example.com", "password": "segredo123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ana@example.com", "password": "segredo123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_BadPassword(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ana@example.com", "password": "errada12",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfile_Get(t *testing.T) {
	f := newFixture(t)
	f.plants.CountByUserFunc = func(ctx context.Context, id uuid.UUID) (int, error) { return 2, nil }

	rec := f.do(t, http.MethodGet, "/api/v1/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile services.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, 2, profile.PlantCount)
	assert.Equal(t, "ana@example.com", profile.User.Email)
}

func TestProfile_Update(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/v1/profile", map[string]string{"bio": "cultivo samambaias"})
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.NotNil(t, user.Bio)
	assert.Equal(t, "cultivo samambaias", *user.Bio)
}

func TestProfile_SetFCMToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/profile/fcm-token", map[string]string{"token": "tok-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.users.SetFCMTokenCalls)

	rec = f.do(t, http.MethodPost, "/api/v1/profile/fcm-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile_ClearFCMToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/v1/profile/fcm-token", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.users.ClearFCMTokenCalls)
}

func TestProfile_SetSubscription(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/profile/subscription", map[string]string{"status": "premium"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.users.SetSubscriptionCalls)

	rec = f.do(t, http.MethodPost, "/api/v1/profile/subscription", map[string]string{"status": "gold"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGarden_Analyze(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/garden/analyze", map[string]any{"image": "aW1n"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result services.AnalyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotNil(t, result.Plant)
	assert.Equal(t, "mock-species", result.Plant.SpeciesID)
	require.NotNil(t, result.Guide)
	assert.True(t, result.Guide.Enriched())
}

func TestGarden_Analyze_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/garden/analyze", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/garden/analyze", map[string]any{"image": "aW1n", "latitude": -23.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGarden_Analyze_DailyLimit(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/garden/analyze", map[string]any{"image": "aW1n"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/api/v1/garden/analyze", map[string]any{"image": "aW1n"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGarden_Get_NotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/garden/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGarden_Get_InvalidID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/garden/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGarden_Water(t *testing.T) {
	f := newFixture(t)
	plantID := uuid.New()
	f.plants.GetByIDFunc = func(ctx context.Context, userID, id uuid.UUID) (*models.UserPlant, error) {
		return &models.UserPlant{ID: id, UserID: userID, SpeciesID: "sp-1"}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/v1/garden/"+plantID.String()+"/water", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var plant models.UserPlant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plant))
	assert.NotNil(t, plant.LastWatered)
}

func TestGarden_Delete(t *testing.T) {
	f := newFixture(t)
	plantID := uuid.New()

	rec := f.do(t, http.MethodDelete, "/api/v1/garden/"+plantID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, f.plants.DeleteCalls)
}

func TestGarden_AssessHealth(t *testing.T) {
	f := newFixture(t)
	plantID := uuid.New()
	f.plants.GetByIDFunc = func(ctx context.Context, userID, id uuid.UUID) (*models.UserPlant, error) {
		return &models.UserPlant{ID: id, UserID: userID, SpeciesID: "sp-1"}, nil
	}

	rec := f.do(t, http.MethodPost, "/api/v1/garden/"+plantID.String()+"/health", map[string]string{"image": "aW1n"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.HealthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsHealthy)
}
