// Package testutil holds fixtures shared by the service, processor and http tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"kbodata/internal/server/config"
	"kbodata/internal/server/scraper"
	"kbodata/internal/server/storage"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// NewStore opens an initialized SQLite store in a temp dir, closed on cleanup
func NewStore(t testing.TB) *storage.Store {
	t.Helper()

	store, err := storage.NewStore(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "kbo.db"),
	}, false, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.InitDB())
	t.Cleanup(func() { store.Close() })

	return store
}

// Seoul returns the KBO home timezone
func Seoul(t testing.TB) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

// FakeScraper serves a fixed schedule and game set through scraper.Client
type FakeScraper struct {
	Schedule []scraper.ScheduleEntry
	Games    map[string]scraper.GameData
	Err      error
	// Gate, when set, blocks GameData until it is closed or ctx is done
	Gate chan struct{}

	mu            sync.Mutex
	dailyCalls    [][3]int
	gameDataCalls int
}

func (f *FakeScraper) YearlySchedule(_ context.Context, year int) ([]scraper.ScheduleEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Schedule, nil
}

func (f *FakeScraper) DailySchedule(_ context.Context, year, month, day int) ([]scraper.ScheduleEntry, error) {
	f.mu.Lock()
	f.dailyCalls = append(f.dailyCalls, [3]int{year, month, day})
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	var out []scraper.ScheduleEntry
	for _, e := range f.Schedule {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FakeScraper) GameData(ctx context.Context, schedule []scraper.ScheduleEntry) ([]scraper.GameData, error) {
	f.mu.Lock()
	f.gameDataCalls++
	f.mu.Unlock()

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var out []scraper.GameData
	for _, e := range schedule {
		if g, ok := f.Games[e.GameID]; ok && e.Finished() {
			out = append(out, g)
		}
	}
	return out, nil
}

// DailyCalls returns the (year, month, day) tuples DailySchedule was asked for
func (f *FakeScraper) DailyCalls() [][3]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][3]int(nil), f.dailyCalls...)
}

// GameDataCalls counts GameData invocations, including ones still blocked on Gate
func (f *FakeScraper) GameDataCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gameDataCalls
}

// Game builds a finished schedule entry and its scraped game data.
// The home scoreboard row comes first so pairing cannot rely on row order.
func Game(code, date, away, home string, awayRun, homeRun int) (scraper.ScheduleEntry, scraper.GameData) {
	t, _ := time.Parse("2006-01-02", date)
	entry := scraper.ScheduleEntry{
		Status:   scraper.StatusFinished,
		Date:     date,
		Home:     home,
		Away:     away,
		DBHeader: "0",
		GameID:   code,
		Stadium:  "잠실",
	}

	result := func(own, other int) string {
		switch {
		case own > other:
			return "1"
		case own < other:
			return "-1"
		}
		return "0"
	}
	row := func(idx int, team string, run, other int) scraper.Record {
		return scraper.Record{
			"idx": idx, "team": team, "result": result(run, other),
			"i_1": "0", "i_2": run, "i_3": "-",
			"r": run, "h": 7, "e": "0", "b": "3",
			"year": t.Year(), "month": int(t.Month()), "day": t.Day(), "week": "월",
			"home": home, "away": away, "place": "잠실", "audience": "23,750",
		}
	}

	data := scraper.GameData{
		MatchCode:  code,
		Scoreboard: []scraper.Record{row(1, home, homeRun, awayRun), row(0, away, awayRun, homeRun)},
		ETCInfo:    scraper.Record{"구장": "잠실", "관중": "23,750", "홈런": []string{"박동원12호"}},
		Away: scraper.Lineup{
			Batters:  []scraper.Record{{"idx": 0, "name": "정수빈", "team": away, "hit": "1"}},
			Pitchers: []scraper.Record{{"idx": 0, "name": "곽빈", "team": away, "inning": "5 2/3", "mound": 1}},
		},
		Home: scraper.Lineup{
			Batters:  []scraper.Record{{"idx": 1, "name": "박해민", "team": home, "hit": "2"}},
			Pitchers: []scraper.Record{{"idx": 1, "name": "임찬규", "team": home, "inning": "7", "mound": 1}},
		},
	}
	return entry, data
}

// TwoGameDay is 2025-09-01 with two finished matches and one cancelled one
func TwoGameDay() *FakeScraper {
	e1, g1 := Game("20250901OBLG0", "2025-09-01", "두산", "LG", 2, 5)
	e2, g2 := Game("20250901HTSS0", "2025-09-01", "KIA", "삼성", 4, 1)
	e3 := scraper.ScheduleEntry{Status: scraper.StatusCancelled, Date: "2025-09-01", Home: "KT", Away: "NC", GameID: "20250901NCKT0"}
	return &FakeScraper{
		Schedule: []scraper.ScheduleEntry{e1, e2, e3},
		Games:    map[string]scraper.GameData{g1.MatchCode: g1, g2.MatchCode: g2},
	}
}
