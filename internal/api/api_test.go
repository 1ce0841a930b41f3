package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slotshare-backend/config"
	"slotshare-backend/internal/auth"
	"slotshare-backend/internal/broadcast"
	"slotshare-backend/internal/core"
	"slotshare-backend/internal/db"
	"slotshare-backend/internal/model"
)

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 10000
	cfg.Server.RateLimitBurst = 10000
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = 8 * time.Hour
	cfg.Auth.UserCacheTTL = time.Minute

	bus := broadcast.New()
	t.Cleanup(bus.Close)
	locks := core.NewSlotLocks()
	occupancy := core.NewOccupancyManager(gdb, locks, bus)
	queue := core.NewQueueManager(gdb, locks, bus)
	bookings := core.NewBookingManager(gdb)
	registry := core.NewSlotRegistry(gdb)

	router := NewRouter(cfg, gdb, occupancy, queue, bookings, registry, bus, nil)
	return router, gdb
}

func createUser(t *testing.T, gdb *gorm.DB, name, username string, admin bool) (*model.User, string) {
	t.Helper()

	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	user := model.User{Name: name, Username: username, PasswordHash: hash, IsAdmin: admin}
	require.NoError(t, gdb.Create(&user).Error)

	token, err := auth.GenerateToken(&user, "test-secret", 8*time.Hour)
	require.NoError(t, err)
	return &user, token
}

func createSlot(t *testing.T, gdb *gorm.DB, id string) {
	t.Helper()
	slot := model.Slot{
		ID:          id,
		ServiceName: "Perplexity",
		Tier:        "Max",
		Login:       "acct@example.com",
		Password:    "hunter2",
		IsActive:    true,
	}
	require.NoError(t, gdb.Create(&slot).Error)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLoginAndMe(t *testing.T) {
	router, gdb := newTestRouter(t)
	createUser(t, gdb, "Mara", "mara", false)

	w := doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "mara", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	w = doJSON(t, router, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "mara", decode(t, w)["username"])

	w = doJSON(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": "mara", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/slots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/slots", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Two users contend for one slot: the loser queues, the winner's
// release hands the slot to the head of the queue.
func TestOccupyQueueReleaseFlow(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token1 := createUser(t, gdb, "Mara", "mara", false)
	u2, token2 := createUser(t, gdb, "Pavel", "pavel", false)
	createSlot(t, gdb, "ppx-1")

	w := doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/occupy", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/occupy", token2, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Mara")

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/queue", token2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.EqualValues(t, 1, status["position"])
	assert.EqualValues(t, 1, status["total_in_queue"])

	w = doJSON(t, router, http.MethodGet, "/api/slots/ppx-1/queue", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["queue_size"])

	w = doJSON(t, router, http.MethodGet, "/api/slots", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var views []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, false, views[0]["available"])
	assert.Equal(t, "Mara", views[0]["occupant_name"])
	assert.EqualValues(t, 1, views[0]["queue_size"])

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/release", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, u2.Name, decode(t, w)["next_in_queue"])

	w = doJSON(t, router, http.MethodGet, "/api/slots/ppx-1/queue", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["queue_size"])
}

func TestReleaseRequiresOwnership(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token1 := createUser(t, gdb, "Mara", "mara", false)
	_, token2 := createUser(t, gdb, "Pavel", "pavel", false)
	createSlot(t, gdb, "ppx-1")

	w := doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/occupy", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/release", token2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestForceReleaseRequiresAdmin(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token1 := createUser(t, gdb, "Mara", "mara", false)
	_, adminToken := createUser(t, gdb, "Root", "root", true)
	createSlot(t, gdb, "ppx-1")

	w := doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/occupy", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/force-release", token1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/force-release", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var occ model.Occupation
	require.NoError(t, gdb.First(&occ).Error)
	assert.Equal(t, model.EndReasonAdminForce, occ.EndReason)
}

func TestCredentialsVisibleOnlyToOccupant(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token1 := createUser(t, gdb, "Mara", "mara", false)
	_, token2 := createUser(t, gdb, "Pavel", "pavel", false)
	createSlot(t, gdb, "ppx-1")

	w := doJSON(t, router, http.MethodGet, "/api/slots/ppx-1/credentials", token1, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/slots/ppx-1/occupy", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/slots/ppx-1/credentials", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	creds := decode(t, w)
	assert.Equal(t, "acct@example.com", creds["login"])
	assert.Equal(t, "hunter2", creds["password"])

	w = doJSON(t, router, http.MethodGet, "/api/slots/ppx-1/credentials", token2, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSlotListingHidesCredentials(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token := createUser(t, gdb, "Mara", "mara", false)
	createSlot(t, gdb, "ppx-1")

	w := doJSON(t, router, http.MethodGet, "/api/slots", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "acct@example.com")
}

func TestBookingEndpoints(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token1 := createUser(t, gdb, "Mara", "mara", false)
	_, token2 := createUser(t, gdb, "Pavel", "pavel", false)
	createSlot(t, gdb, "ppx-1")

	w := doJSON(t, router, http.MethodPost, "/api/bookings", token1, gin.H{
		"slot_id": "ppx-1", "date": "2030-06-01", "start_time": "10:00", "duration_min": 60,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	bookingID := int64(created["id"].(float64))

	// Overlapping window on the same slot and date is rejected.
	w = doJSON(t, router, http.MethodPost, "/api/bookings", token2, gin.H{
		"slot_id": "ppx-1", "date": "2030-06-01", "start_time": "10:30", "duration_min": 30,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Touching window is fine.
	w = doJSON(t, router, http.MethodPost, "/api/bookings", token2, gin.H{
		"slot_id": "ppx-1", "date": "2030-06-01", "start_time": "11:00", "duration_min": 30,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/bookings", token1, gin.H{
		"slot_id": "ppx-1", "date": "2020-01-01", "start_time": "10:00", "duration_min": 60,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/bookings", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// Cancelling someone else's booking fails; the owner succeeds.
	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", bookingID), token2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/bookings/%d", bookingID), token1, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/bookings", token1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 0)
}

func TestAdminSlotCRUD(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, userToken := createUser(t, gdb, "Mara", "mara", false)
	_, adminToken := createUser(t, gdb, "Root", "root", true)

	w := doJSON(t, router, http.MethodPost, "/api/admin/slots", userToken, gin.H{
		"id": "gpt-1", "service_name": "ChatGPT",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/admin/slots", adminToken, gin.H{
		"id": "gpt-1", "service_name": "ChatGPT", "tier": "Pro", "monthly_cost": 200,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/admin/slots", adminToken, gin.H{
		"id": "gpt-1", "service_name": "ChatGPT",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/admin/slots/gpt-1", adminToken, gin.H{
		"is_active": false, "tier": "Plus",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Deactivated slots disappear from the user listing but stay in the
	// admin listing.
	w = doJSON(t, router, http.MethodGet, "/api/slots", userToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	w = doJSON(t, router, http.MethodGet, "/api/admin/slots", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var slots []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	require.Len(t, slots, 1)
	assert.Equal(t, "Plus", slots[0]["tier"])

	// Occupying a deactivated slot fails.
	w = doJSON(t, router, http.MethodPost, "/api/slots/gpt-1/occupy", userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	router, gdb := newTestRouter(t)
	_, token := createUser(t, gdb, "Mara", "mara", false)
	createSlot(t, gdb, "ppx-1")

	endpoint := "https://push.example.com/sub/abc"
	w := doJSON(t, router, http.MethodPut, "/api/subscriptions", token, gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "auth",
		"subscribed_slots": []string{"ppx-1"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"ppx-1"}, body["subscribed_slots"])

	w = doJSON(t, router, http.MethodDelete, "/api/subscriptions", token, gin.H{"endpoint": endpoint})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/subscriptions?endpoint="+endpoint, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}
