package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/afero"

	"pulse/internal/clock"
	"pulse/internal/db"
	"pulse/internal/events"
	"pulse/internal/handler"
	"pulse/internal/repository"
	"pulse/internal/router"
	"pulse/internal/service"
	"pulse/internal/telemetry"
	"pulse/internal/wake"
)

type stateEnvelope struct {
	State struct {
		Phase            string `json:"phase"`
		RemainingSeconds int    `json:"remainingSeconds"`
		Cycle            int    `json:"cycle"`
		LongBreakDue     bool   `json:"longBreakDue"`
	} `json:"state"`
}

type sessionsEnvelope struct {
	Sessions []struct {
		Task      string  `json:"task"`
		Completed bool    `json:"completed"`
		EndedAt   *string `json:"endedAt"`
	} `json:"sessions"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			State struct {
				Phase string `json:"phase"`
			} `json:"state"`
		} `json:"details"`
	} `json:"error"`
}

type testServer struct {
	handler http.Handler
	token   string
	clock   *clock.Fake
	bus     *events.Bus
}

func TestAuthRequired(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server.handler, http.MethodGet, "/health", "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on health, got %d", status)
	}

	status, _ = requestJSON(t, server.handler, http.MethodGet, "/api/state", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}

	status, _ = requestJSON(t, server.handler, http.MethodGet, "/api/state", "not-a-token", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", status)
	}

	status, _ = requestJSON(t, server.handler, http.MethodGet, "/api/state?token="+server.token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", status)
	}
}

func TestWorkAbandonAndConflict(t *testing.T) {
	server := setupTestServer(t)

	status, raw := requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/work", server.token, map[string]string{
		"task": "draft outline",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on work, got %d: %s", status, raw)
	}
	var started stateEnvelope
	if err := json.Unmarshal(raw, &started); err != nil {
		t.Fatalf("unmarshal work response: %v", err)
	}
	if started.State.Phase != "work" || started.State.Cycle != 1 || started.State.RemainingSeconds != 1500 {
		t.Fatalf("unexpected state after work: %+v", started.State)
	}

	// A second start while working is rejected with the current state attached.
	status, raw = requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/work", server.token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on second work, got %d", status)
	}
	var conflict apiErrorEnvelope
	if err := json.Unmarshal(raw, &conflict); err != nil {
		t.Fatalf("unmarshal conflict: %v", err)
	}
	if conflict.Error.Code != "invalid_transition" || conflict.Error.Details.State.Phase != "work" {
		t.Fatalf("unexpected conflict body: %s", raw)
	}

	server.clock.Advance(5 * time.Minute)
	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/abandon", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on abandon, got %d", status)
	}

	status, raw = requestJSON(t, server.handler, http.MethodGet, "/api/sessions?limit=10", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on sessions, got %d", status)
	}
	var history sessionsEnvelope
	if err := json.Unmarshal(raw, &history); err != nil {
		t.Fatalf("unmarshal sessions: %v", err)
	}
	if len(history.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(history.Sessions))
	}
	if history.Sessions[0].Completed || history.Sessions[0].EndedAt == nil || history.Sessions[0].Task != "draft outline" {
		t.Fatalf("expected abandoned session, got %+v", history.Sessions[0])
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/abandon", server.token, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on abandon while idle, got %d", status)
	}
}

func TestCompletedWorkThenBreak(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/work", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on work, got %d", status)
	}
	server.clock.Advance(25 * time.Minute)
	server.bus.Sync()

	status, raw := requestJSON(t, server.handler, http.MethodGet, "/api/stats/today", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on stats, got %d", status)
	}
	var stats struct {
		Stats struct {
			CompletedSessions int `json:"completedSessions"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Stats.CompletedSessions != 1 {
		t.Fatalf("expected 1 completed session, got %d", stats.Stats.CompletedSessions)
	}

	// Without "long" the engine decides; cycle 1 means a short break.
	status, raw = requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/break", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on break, got %d", status)
	}
	var state stateEnvelope
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("unmarshal break: %v", err)
	}
	if state.State.Phase != "short_break" || state.State.RemainingSeconds != 300 {
		t.Fatalf("unexpected break state: %+v", state.State)
	}
}

func TestResponsesAndDayMarker(t *testing.T) {
	server := setupTestServer(t)

	status, raw := requestJSON(t, server.handler, http.MethodPost, "/api/responses", server.token, map[string]interface{}{
		"kind":       "intraday",
		"excitement": 9,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for excitement 9, got %d", status)
	}
	var invalid apiErrorEnvelope
	if err := json.Unmarshal(raw, &invalid); err != nil {
		t.Fatalf("unmarshal invalid response: %v", err)
	}
	if invalid.Error.Code != "invalid_response" {
		t.Fatalf("expected invalid_response, got %s", invalid.Error.Code)
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/responses", server.token, map[string]interface{}{
		"kind":       "intraday",
		"excitement": 4,
		"activity":   "this activity description is far too long",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for long activity, got %d", status)
	}

	// 08:00 and never prompted: the day check fires.
	if !checkDay(t, server) {
		t.Fatal("expected new day before any start-of-day response")
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/responses", server.token, map[string]interface{}{
		"kind":       "start_of_day",
		"excitement": 6,
		"activity":   "planning",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on response, got %d", status)
	}
	if checkDay(t, server) {
		t.Fatal("expected no new day after the start-of-day response")
	}

	status, _ = requestJSON(t, server.handler, http.MethodPost, "/api/day/reset", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on reset, got %d", status)
	}
	if !checkDay(t, server) {
		t.Fatal("expected new day after reset")
	}

	status, raw = requestJSON(t, server.handler, http.MethodGet, "/api/responses", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on responses, got %d", status)
	}
	var list struct {
		Responses []struct {
			Kind     string  `json:"kind"`
			Activity *string `json:"activity"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("unmarshal responses: %v", err)
	}
	if len(list.Responses) != 1 || list.Responses[0].Kind != "start_of_day" ||
		list.Responses[0].Activity == nil || *list.Responses[0].Activity != "planning" {
		t.Fatalf("unexpected responses: %s", raw)
	}
}

func TestDayCheckSuppressedDuringWork(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/work", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on work, got %d", status)
	}
	if checkDay(t, server) {
		t.Fatal("expected running work to suppress the new day prompt")
	}
}

func TestSettingsUpdate(t *testing.T) {
	server := setupTestServer(t)

	status, _ := requestJSON(t, server.handler, http.MethodPut, "/api/settings", server.token, map[string]int{
		"workingHoursStart": 20,
		"workingHoursEnd":   8,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted hours, got %d", status)
	}

	status, _ = requestJSON(t, server.handler, http.MethodPut, "/api/settings", server.token, map[string]int{
		"workMinutes": 50,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings update, got %d", status)
	}

	status, raw := requestJSON(t, server.handler, http.MethodGet, "/api/settings", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on settings, got %d", status)
	}
	var settings struct {
		Settings struct {
			WorkMinutes       int `json:"workMinutes"`
			ShortBreakMinutes int `json:"shortBreakMinutes"`
		} `json:"settings"`
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		t.Fatalf("unmarshal settings: %v", err)
	}
	if settings.Settings.WorkMinutes != 50 || settings.Settings.ShortBreakMinutes != 5 {
		t.Fatalf("unexpected settings: %+v", settings.Settings)
	}

	status, raw = requestJSON(t, server.handler, http.MethodPost, "/api/pomodoro/work", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on work, got %d", status)
	}
	var state stateEnvelope
	if err := json.Unmarshal(raw, &state); err != nil {
		t.Fatalf("unmarshal work: %v", err)
	}
	if state.State.RemainingSeconds != 3000 {
		t.Fatalf("expected new work length to apply, got %d", state.State.RemainingSeconds)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	server := setupTestServer(t)

	status, raw := requestJSON(t, server.handler, http.MethodPost, "/api/scheduler/start", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on scheduler start, got %d", status)
	}
	var body struct {
		Scheduler struct {
			Running bool `json:"running"`
		} `json:"scheduler"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal scheduler: %v", err)
	}
	if !body.Scheduler.Running {
		t.Fatal("expected scheduler running")
	}

	status, raw = requestJSON(t, server.handler, http.MethodPost, "/api/scheduler/stop", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on scheduler stop, got %d", status)
	}
	body.Scheduler.Running = true
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal scheduler: %v", err)
	}
	if body.Scheduler.Running {
		t.Fatal("expected scheduler stopped")
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/pomodoro/work", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	server.handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, afero.NewOsFs(), migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	logger := telemetry.NopLogger()
	metrics := telemetry.NopMetrics()
	clk := clock.NewFake(time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	pomodoroRepo := repository.NewPomodoroRepository(database)
	responseRepo := repository.NewResponseRepository(database)
	stateRepo := repository.NewStateRepository(database)
	settingsService := service.NewSettingsService(repository.NewSettingsRepository(database), logger)

	engine := service.NewPomodoroEngine(clk, bus, pomodoroRepo, stateRepo, settingsService, logger, metrics)
	t.Cleanup(engine.Close)
	scheduler := service.NewPromptScheduler(clk, bus, settingsService, logger, metrics)
	t.Cleanup(scheduler.Stop)
	detector := service.NewDayDetector(clk, bus, stateRepo, engine.IsActive, logger, metrics)
	responseService := service.NewResponseService(responseRepo, pomodoroRepo, detector, clk, logger)
	tokenService := service.NewTokenService("test-secret", time.Hour)

	token, apiErr := tokenService.Issue("test")
	if apiErr != nil {
		t.Fatalf("issue token: %v", apiErr)
	}

	handlers := router.Handlers{
		Pomodoro:  handler.NewPomodoroHandler(engine, scheduler),
		CheckIns:  handler.NewCheckInHandler(responseService),
		Settings:  handler.NewSettingsHandler(settingsService),
		Day:       handler.NewDayHandler(detector, wake.NewManual(clk)),
		Scheduler: handler.NewSchedulerHandler(scheduler),
		Events:    handler.NewEventsHandler(bus),
	}

	return &testServer{
		handler: router.New(tokenService, handlers, []string{"http://localhost:5173"}, logger),
		token:   token,
		clock:   clk,
		bus:     bus,
	}
}

func checkDay(t *testing.T, server *testServer) bool {
	t.Helper()
	status, raw := requestJSON(t, server.handler, http.MethodPost, "/api/day/check", server.token, nil)
	if status != http.StatusOK {
		t.Fatalf("day check failed with status %d: %s", status, raw)
	}
	var body struct {
		NewDay bool `json:"newDay"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal day check: %v", err)
	}
	return body.NewDay
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
