package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"kbodata/internal/server/core"
	"kbodata/internal/server/scraper"
	"kbodata/internal/server/storage"
	"kbodata/internal/server/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memCache is an in-process cache.Cache
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }

func newTestService(t *testing.T, f *testutil.FakeScraper, c *memCache) (*Service, *storage.Store) {
	t.Helper()

	store := testutil.NewStore(t)
	opts := Options{Location: testutil.Seoul(t), SeasonYear: 2025}

	var svc *Service
	if c == nil {
		svc = New(store, f, nil, opts, zap.NewNop())
	} else {
		svc = New(store, f, c, opts, zap.NewNop())
	}
	return svc, store
}

func TestIngestDayIdempotent(t *testing.T) {
	svc, store := newTestService(t, testutil.TwoGameDay(), nil)
	ctx := context.Background()

	report, err := svc.IngestDay(ctx, 2025, 9, 1)
	require.NoError(t, err)
	require.Equal(t, 2, report.Games)
	require.Equal(t, core.TableCounts{Inserted: 2}, report.Results)
	require.Equal(t, core.TableCounts{Inserted: 4}, report.Scoreboard)
	require.Equal(t, core.TableCounts{Inserted: 2}, report.GameInfo)
	require.Equal(t, core.TableCounts{Inserted: 4}, report.Batters)
	require.Equal(t, core.TableCounts{Inserted: 4}, report.Pitchers)

	report, err = svc.IngestDay(ctx, 2025, 9, 1)
	require.NoError(t, err)
	require.Equal(t, core.TableCounts{Skipped: 4}, report.Scoreboard)
	require.Equal(t, core.TableCounts{Skipped: 2}, report.Results)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(4), counts["scoreboard"])
	require.Equal(t, int64(4), counts["pitcher_info"])
}

func TestMatchesByDatePairsByResult(t *testing.T) {
	svc, _ := newTestService(t, testutil.TwoGameDay(), nil)
	ctx := context.Background()

	_, err := svc.IngestDay(ctx, 2025, 9, 1)
	require.NoError(t, err)

	matches, err := svc.MatchesByDate(ctx, "2025-09-01")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	byCode := map[string]core.MatchSummary{}
	for _, m := range matches {
		byCode[m.MatchCode] = m
	}

	lg := byCode["20250901OBLG0"]
	require.Equal(t, "LG", lg.Team1.Team)
	require.Equal(t, ResultWin, lg.Team1.Result)
	require.Equal(t, int64(5), *lg.Team1.Run)
	require.Equal(t, "두산", lg.Team2.Team)
	require.Equal(t, "서울종합운동장 야구장(잠실)", lg.Place)
	require.Equal(t, "2025-09-01", lg.MatchDate)

	kia := byCode["20250901HTSS0"]
	require.Equal(t, "KIA", kia.Team1.Team)
	require.Equal(t, "삼성", kia.Team2.Team)

	month, err := svc.MatchesByDate(ctx, "2025-09")
	require.NoError(t, err)
	require.Len(t, month, 2)

	none, err := svc.MatchesByDate(ctx, "2025-10")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestMatchesByDateSkipsSingleRow(t *testing.T) {
	svc, store := newTestService(t, &testutil.FakeScraper{}, nil)
	ctx := context.Background()

	team, date, code := "LG", "2025-09-03", "20250903OBLG0"
	_, err := store.InsertScoreboard(ctx, []storage.ScoreboardRecord{{MatchCode: code, Team: &team, MatchDate: &date}})
	require.NoError(t, err)

	matches, err := svc.MatchesByDate(ctx, date)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestPairByResultFallback(t *testing.T) {
	a, b := "A", "B"
	draw := ResultDraw
	group := []storage.ScoreboardRecord{{Team: &a, Result: &draw}, {Team: &b, Result: &draw}}
	t1, t2 := pairByResult(group)
	require.Equal(t, "A", *t1.Team)
	require.Equal(t, "B", *t2.Team)

	loss := ResultLoss
	group = []storage.ScoreboardRecord{{Team: &a, Result: &loss}, {Team: &b}}
	t1, t2 = pairByResult(group)
	require.Equal(t, "B", *t1.Team)
	require.Equal(t, "A", *t2.Team)
}

func TestMatchDetail(t *testing.T) {
	svc, _ := newTestService(t, testutil.TwoGameDay(), nil)
	ctx := context.Background()

	_, err := svc.MatchDetail(ctx, "20250901OBLG0")
	require.Equal(t, core.KindNotFound, core.KindOf(err))

	_, err = svc.IngestDay(ctx, 2025, 9, 1)
	require.NoError(t, err)

	info, err := svc.MatchDetail(ctx, "20250901OBLG0")
	require.NoError(t, err)
	require.Equal(t, "23750", *info.Crowd)
	require.Equal(t, "박동원12호", *info.HomeRun)
}

func TestMatchScoreboardAndBoxScore(t *testing.T) {
	svc, _ := newTestService(t, testutil.TwoGameDay(), nil)
	ctx := context.Background()

	_, err := svc.IngestDay(ctx, 2025, 9, 1)
	require.NoError(t, err)

	detail, err := svc.MatchScoreboard(ctx, "20250901OBLG0")
	require.NoError(t, err)
	require.Equal(t, int64(5), *detail.HomeScore)
	require.Equal(t, int64(2), *detail.AwayScore)
	require.Len(t, detail.Innings, 2)
	// i_3 was "-" so only two innings survive
	require.Equal(t, []int64{0, 2}, detail.Innings[0].Scores)
	require.Equal(t, int64(23750), *detail.Audience)

	box, err := svc.BoxScore(ctx, "20250901OBLG0")
	require.NoError(t, err)
	require.Len(t, box.Batters, 2)
	require.Len(t, box.Pitchers, 2)
	require.InDelta(t, 5.667, *box.Pitchers[0].Inning, 0.001)

	_, err = svc.MatchScoreboard(ctx, "nope")
	require.Equal(t, core.KindNotFound, core.KindOf(err))
	_, err = svc.BoxScore(ctx, "nope")
	require.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestReloadSchedule(t *testing.T) {
	f := testutil.TwoGameDay()
	svc, store := newTestService(t, f, nil)
	ctx := context.Background()

	report, err := svc.ReloadSchedule(ctx, 2025)
	require.NoError(t, err)
	require.Equal(t, int64(3), report.Saved)
	require.False(t, report.Skipped)

	// An empty scrape must not wipe the stored schedule
	f.Schedule = nil
	report, err = svc.ReloadSchedule(ctx, 2025)
	require.NoError(t, err)
	require.True(t, report.Skipped)
	require.Zero(t, report.Saved)

	rows, err := store.ScheduleByYear(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestScrapeFailureKind(t *testing.T) {
	svc, _ := newTestService(t, &testutil.FakeScraper{Err: errors.New("connection reset")}, nil)

	_, err := svc.ReloadSchedule(context.Background(), 2025)
	require.Equal(t, core.KindScrape, core.KindOf(err))

	_, err = svc.IngestResults(context.Background())
	require.Equal(t, core.KindScrape, core.KindOf(err))
}

func TestIngestResultsUsesSeoulYesterday(t *testing.T) {
	f := &testutil.FakeScraper{}
	svc, _ := newTestService(t, f, nil)
	// 16:30 UTC on Mar 31 is already Apr 1 in Seoul
	svc.now = func() time.Time { return time.Date(2025, 3, 31, 16, 30, 0, 0, time.UTC) }

	_, err := svc.IngestResults(context.Background())
	require.NoError(t, err)
	require.Equal(t, [][3]int{{2025, 3, 31}}, f.DailyCalls())

	// Year boundary
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC) }
	_, err = svc.IngestResults(context.Background())
	require.NoError(t, err)
	require.Equal(t, [3]int{2024, 12, 31}, f.DailyCalls()[1])
}

func TestBackfillSeason(t *testing.T) {
	e1, g1 := testutil.Game("20250901OBLG0", "2025-09-01", "두산", "LG", 2, 5)
	e2, g2 := testutil.Game("20250902HTSS0", "2025-09-02", "KIA", "삼성", 4, 1)
	e3, g3 := testutil.Game("20250201HTSS0", "2025-02-01", "KIA", "삼성", 4, 1)
	f := &testutil.FakeScraper{
		Schedule: []scraper.ScheduleEntry{e3, e1, e2},
		Games:    map[string]scraper.GameData{g1.MatchCode: g1, g2.MatchCode: g2, g3.MatchCode: g3},
	}
	svc, store := newTestService(t, f, nil)
	ctx := context.Background()

	info, err := svc.BackfillSeason(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 2025, info.Year)
	require.Equal(t, 2, info.Days)
	require.Equal(t, 2, info.Total.Games)
	// Batter and pitcher lines are ingested by the backfill too
	require.Equal(t, int64(4), info.Total.Batters.Inserted)
	require.Equal(t, int64(4), info.Total.Pitchers.Inserted)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts["match_result"])

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.BackfillSeason(cancelled, 2025)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIngestionIsExclusive(t *testing.T) {
	svc, _ := newTestService(t, testutil.TwoGameDay(), nil)

	svc.ingestMu.Lock()
	_, err := svc.IngestDay(context.Background(), 2025, 9, 1)
	svc.ingestMu.Unlock()
	require.Equal(t, core.KindBusy, core.KindOf(err))
	require.ErrorIs(t, err, ErrIngestionBusy)
}

func TestCacheReadThroughAndInvalidation(t *testing.T) {
	c := newMemCache()
	svc, _ := newTestService(t, testutil.TwoGameDay(), c)
	ctx := context.Background()

	matches, err := svc.MatchesByDate(ctx, "2025-09-01")
	require.NoError(t, err)
	require.Empty(t, matches)
	require.Contains(t, c.data, "matches:date:2025-09-01")

	_, err = svc.IngestDay(ctx, 2025, 9, 1)
	require.NoError(t, err)
	require.NotContains(t, c.data, "matches:date:2025-09-01")
	require.Contains(t, c.deletes, "matches:date:2025-09")

	matches, err = svc.MatchesByDate(ctx, "2025-09-01")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	require.Equal(t, "ok", svc.GetCacheHealth(ctx))
	require.Equal(t, "ok", svc.GetStorageHealth(ctx))
}

func TestStorageHealthDegraded(t *testing.T) {
	svc, store := newTestService(t, &testutil.FakeScraper{}, nil)
	ctx := context.Background()
	require.Equal(t, "ok", svc.GetStorageHealth(ctx))

	require.NoError(t, store.Close())
	_, err := store.InsertMatchResult(ctx, []string{"20250901OBLG0"})
	require.Error(t, err)

	require.False(t, store.IsHealthy())
	require.Equal(t, "degraded", svc.GetStorageHealth(ctx))
}

// threeGameDays adds a 2025-09-02 match to TwoGameDay
func threeGameDays(t *testing.T) (*Service, *storage.Store) {
	t.Helper()

	f := testutil.TwoGameDay()
	e, g := testutil.Game("20250902HHSK0", "2025-09-02", "한화", "SSG", 3, 6)
	f.Schedule = append(f.Schedule, e)
	f.Games[g.MatchCode] = g

	svc, store := newTestService(t, f, nil)
	ctx := context.Background()
	for _, day := range []int{1, 2} {
		_, err := svc.IngestDay(ctx, 2025, 9, day)
		require.NoError(t, err)
	}
	return svc, store
}

func TestRecentMatches(t *testing.T) {
	svc, _ := threeGameDays(t)
	ctx := context.Background()

	page, err := svc.RecentMatches(ctx, 0, 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), page.Total)
	require.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	require.Equal(t, "20250902HHSK0", page.Data[0].MatchCode)
	require.Equal(t, "SSG", page.Data[0].Team1.Team)

	page, err = svc.RecentMatches(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, "2025-09-01", page.Data[0].MatchDate)

	page, err = svc.RecentMatches(ctx, 5, 0)
	require.NoError(t, err)
	require.Equal(t, core.DefaultPageSize, page.Size)
	require.NotNil(t, page.Data)
	require.Empty(t, page.Data)
}

func TestMatchesByTeam(t *testing.T) {
	svc, _ := threeGameDays(t)
	ctx := context.Background()

	// SK and SSG are one franchise
	for _, team := range []string{"SSG", "SK", "sk"} {
		page, err := svc.MatchesByTeam(ctx, team, 0, 10)
		require.NoError(t, err, team)
		require.Equal(t, int64(1), page.Total, team)
		require.Equal(t, "20250902HHSK0", page.Data[0].MatchCode, team)
		require.Equal(t, "SSG", page.Team, team)
	}

	page, err := svc.MatchesByTeam(ctx, "OB", 0, 10)
	require.NoError(t, err)
	require.Equal(t, "두산", page.Team)
	require.Len(t, page.Data, 1)
	require.Equal(t, "20250901OBLG0", page.Data[0].MatchCode)

	_, err = svc.MatchesByTeam(ctx, "Giants", 0, 10)
	require.Equal(t, core.KindInvalid, core.KindOf(err))
}

func TestMatchesByRange(t *testing.T) {
	svc, _ := threeGameDays(t)
	ctx := context.Background()

	page, err := svc.MatchesByRange(ctx, "2025-09-01", "2025-09-01", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)
	require.Equal(t, "2025-09-01", page.StartDate)
	require.Equal(t, "2025-09-01", page.EndDate)

	page, err = svc.MatchesByRange(ctx, "2025-08-01", "2025-09-30", 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 3)

	_, err = svc.MatchesByRange(ctx, "2025-09-02", "2025-09-01", 0, 10)
	require.Equal(t, core.KindInvalid, core.KindOf(err))

	_, err = svc.MatchesByRange(ctx, "2025-9-1", "2025-09-02", 0, 10)
	require.Equal(t, core.KindInvalid, core.KindOf(err))
}

func TestSummaryTeamsFromMatchCode(t *testing.T) {
	svc, store := newTestService(t, &testutil.FakeScraper{}, nil)
	ctx := context.Background()

	code, date := "20250905OBLG0", "2025-09-05"
	lg, ob, win, loss := "LG", "두산", ResultWin, ResultLoss
	_, err := store.InsertScoreboard(ctx, []storage.ScoreboardRecord{
		{MatchCode: code, Team: &ob, Result: &loss, MatchDate: &date},
		{MatchCode: code, Team: &lg, Result: &win, MatchDate: &date},
	})
	require.NoError(t, err)

	page, err := svc.RecentMatches(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	require.Equal(t, "LG", page.Data[0].Home)
	require.Equal(t, "두산", page.Data[0].Away)
	require.Equal(t, "서울종합운동장 야구장(잠실)", page.Data[0].Place)
}
