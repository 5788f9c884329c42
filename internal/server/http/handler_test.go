package http

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"kbodata/internal/server/core"
	"kbodata/internal/server/processor"
	"kbodata/internal/server/service"
	"kbodata/internal/server/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, f *testutil.FakeScraper, adminKeyHash string) *fiber.App {
	t.Helper()

	svc := service.New(testutil.NewStore(t), f, nil, service.Options{
		Location:   testutil.Seoul(t),
		SeasonYear: 2025,
		Now:        func() time.Time { return time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC) },
	}, zap.NewNop())
	proc := processor.New(svc, zap.NewNop())
	t.Cleanup(func() { proc.Close(time.Second) })

	return NewFiberApp(proc, svc, Options{DevMode: true, AdminKeyHash: adminKeyHash})
}

func do(t *testing.T, app *fiber.App, method, path string, header map[string]string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, &testutil.FakeScraper{}, "")

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/health", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "ok", body["storage"])
	require.Equal(t, "disabled", body["cache"])
}

func TestIngestThenQuery(t *testing.T) {
	app := newTestApp(t, testutil.TwoGameDay(), "")

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/schedule?year=2025", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, core.StatusSuccess, body["status"])
	require.EqualValues(t, 2025, body["year"])
	require.EqualValues(t, 3, body["saved_records"])
	require.Equal(t, "2025-09-02 09:00:00", body["saved_at"])
	require.NotEmpty(t, body["run_id"])

	status, body = do(t, app, fiber.MethodPost, APIPrefix+"/result", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "2025년 9월 1일 kbo 경기결과 업로드 완료", body["message"])

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/matches/date/2025-09-01", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 2, body["count"])
	require.Equal(t, "2025-09-01", body["date"])
	require.Len(t, body["data"], 2)

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/match/20250901OBLG0", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "20250901OBLG0", body["data"].(map[string]any)["matchcode"])

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/match/20250901OBLG0/scoreboard", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 5, body["data"].(map[string]any)["home_score"])

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/match/20250901OBLG0/boxscore", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, body["data"].(map[string]any)["batters"], 2)

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/match/20250902OBLG0", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, core.ErrMatchNotFound, body["code"])
	require.Equal(t, core.StatusError, body["status"])
}

func TestEmptyMatchDay(t *testing.T) {
	app := newTestApp(t, &testutil.FakeScraper{}, "")

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/matches/date/2025", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 0, body["count"])
	require.NotNil(t, body["data"])
}

func TestValidation(t *testing.T) {
	app := newTestApp(t, &testutil.FakeScraper{}, "")

	paths := []string{
		"/schedule",
		"/schedule?year=abc",
		"/schedule?year=1900",
		"/save?year=20255",
		"/matches/date/2025-13",
		"/matches/date/25-09-01",
		"/match/bad-code!",
		"/jobs/not-a-uuid",
	}
	for _, path := range paths {
		status, body := do(t, app, fiber.MethodGet, APIPrefix+path, nil)
		require.Equal(t, fiber.StatusBadRequest, status, path)
		require.Equal(t, core.ErrInvalidRequest, body["code"], path)
	}
}

func TestIngestionFailureIsOK(t *testing.T) {
	app := newTestApp(t, &testutil.FakeScraper{Err: errors.New("upstream 503")}, "")

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/result", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, core.StatusError, body["status"])
	require.Equal(t, core.ErrScrapeFailed, body["code"])
	require.Contains(t, body["message"], "upstream 503")
}

func TestAdminGuard(t *testing.T) {
	hash, err := auth.HashPassword("season-key")
	require.NoError(t, err)
	app := newTestApp(t, testutil.TwoGameDay(), hash)

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/schedule?year=2025", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, core.ErrUnauthorized, body["code"])

	status, _ = do(t, app, fiber.MethodGet, APIPrefix+"/schedule?year=2025", map[string]string{AdminKeyHeader: "wrong"})
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/schedule?year=2025", map[string]string{AdminKeyHeader: "season-key"})
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, core.StatusSuccess, body["status"])

	// Query routes stay open
	status, _ = do(t, app, fiber.MethodGet, APIPrefix+"/matches/date/2025", nil)
	require.Equal(t, fiber.StatusOK, status)
}

func TestAsyncBackfill(t *testing.T) {
	app := newTestApp(t, testutil.TwoGameDay(), "")

	status, body := do(t, app, fiber.MethodPost, APIPrefix+"/save?async=true", nil)
	require.Equal(t, fiber.StatusAccepted, status)
	require.Equal(t, core.StatusAccepted, body["status"])
	runID, _ := body["run_id"].(string)
	require.True(t, isValidUUID(runID))

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(fiber.MethodGet, APIPrefix+"/jobs/"+runID, nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var out struct {
			Data processor.JobStatus `json:"data"`
		}
		if json.NewDecoder(resp.Body).Decode(&out) != nil {
			return false
		}
		return out.Data.State == processor.JobDone
	}, 2*time.Second, 50*time.Millisecond)

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/jobs/"+uuid.NewString(), nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, core.ErrJobNotFound, body["code"])
}

func TestRouteAndContentErrors(t *testing.T) {
	app := newTestApp(t, &testutil.FakeScraper{}, "")

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/players", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, core.ErrRouteNotFound, body["code"])

	status, body = do(t, app, fiber.MethodPost, APIPrefix+"/result", map[string]string{"Content-Type": "text/plain"})
	require.Equal(t, fiber.StatusUnsupportedMediaType, status)
	require.Equal(t, core.ErrInvalidContent, body["code"])
}

func TestMatchDatePattern(t *testing.T) {
	for _, ok := range []string{"2025", "2025-09", "2025-09-01", "2024-02-29"} {
		require.True(t, matchDatePattern.MatchString(ok), ok)
	}
	for _, bad := range []string{"", "202", "2025-9", "2025-00", "2025-09-32", "2025/09/01", strings.Repeat("2", 8)} {
		require.False(t, matchDatePattern.MatchString(bad), bad)
	}
}

func TestMatchListings(t *testing.T) {
	app := newTestApp(t, testutil.TwoGameDay(), "")

	status, _ := do(t, app, fiber.MethodGet, APIPrefix+"/result", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/matches?size=1&page=1", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, core.StatusSuccess, body["status"])
	require.EqualValues(t, 2, body["total"])
	require.EqualValues(t, 2, body["total_pages"])
	require.EqualValues(t, 1, body["page"])
	require.Len(t, body["data"], 1)

	for _, team := range []string{"LG", "lg", url.PathEscape("LG"), url.PathEscape("MBC")} {
		status, body = do(t, app, fiber.MethodGet, APIPrefix+"/matches/team/"+team, nil)
		require.Equal(t, fiber.StatusOK, status, team)
		require.Equal(t, "LG", body["team"], team)
		require.EqualValues(t, 1, body["total"], team)
	}

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/matches/team/"+url.PathEscape("두산"), nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "두산", body["team"])
	require.Len(t, body["data"], 1)

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/matches/range?startDate=2025-09-01&endDate=2025-09-01", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 2, body["total"])
	require.Equal(t, "2025-09-01", body["start_date"])

	status, body = do(t, app, fiber.MethodGet, APIPrefix+"/matches/range?startDate=2025-10-01&endDate=2025-10-31", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 0, body["total"])
	require.NotNil(t, body["data"])
}

func TestMatchListingValidation(t *testing.T) {
	app := newTestApp(t, &testutil.FakeScraper{}, "")

	paths := []string{
		"/matches?size=500",
		"/matches?page=-1",
		"/matches?page=abc",
		"/matches/team/Giants",
		"/matches/team/" + strings.Repeat("A", 30),
		"/matches/range?endDate=2025-09-01",
		"/matches/range?startDate=2025-9-1&endDate=2025-09-01",
		"/matches/range?startDate=2025-09-30&endDate=2025-09-01",
	}
	for _, path := range paths {
		status, body := do(t, app, fiber.MethodGet, APIPrefix+path, nil)
		require.Equal(t, fiber.StatusBadRequest, status, path)
		require.Equal(t, core.ErrInvalidRequest, body["code"], path)
	}

	_, body := do(t, app, fiber.MethodGet, APIPrefix+"/matches/range?startDate=2025-9-1&endDate=2025-09-01", nil)
	require.Contains(t, body["details"], "StartDate must be YYYY-MM-DD")
}

func TestGuardRunsBeforeValidation(t *testing.T) {
	hash, err := auth.HashPassword("season-key")
	require.NoError(t, err)
	app := newTestApp(t, &testutil.FakeScraper{}, hash)

	for _, path := range []string{"/schedule?year=abc", "/schedule", "/save?year=20255"} {
		status, body := do(t, app, fiber.MethodGet, APIPrefix+path, nil)
		require.Equal(t, fiber.StatusUnauthorized, status, path)
		require.Equal(t, core.ErrUnauthorized, body["code"], path)
		require.Empty(t, body["details"], path)
	}

	status, body := do(t, app, fiber.MethodGet, APIPrefix+"/schedule?year=abc", map[string]string{AdminKeyHeader: "season-key"})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, core.ErrInvalidRequest, body["code"])
}
