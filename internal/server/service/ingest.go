package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kbodata/internal/server/cache"
	"kbodata/internal/server/core"
	"kbodata/internal/server/normalize"
	"kbodata/internal/server/scraper"
	"kbodata/internal/server/storage"

	"go.uber.org/zap"
)

// ErrIngestionBusy is returned when another ingestion run holds the lock
var ErrIngestionBusy = errors.New("another ingestion run is in progress")

// ScheduleReport describes one yearly schedule reload
type ScheduleReport struct {
	Year    int
	Scraped int
	Saved   int64
	// Skipped is set when the scrape came back empty and the stored schedule was kept
	Skipped bool
}

func (s *Service) lockIngestion(op string) (func(), error) {
	if !s.ingestMu.TryLock() {
		return nil, core.E(core.KindBusy, op, ErrIngestionBusy)
	}
	return s.ingestMu.Unlock, nil
}

// ReloadSchedule replaces the stored schedule of year with a fresh scrape.
// An empty scrape leaves the stored schedule untouched.
func (s *Service) ReloadSchedule(ctx context.Context, year int) (ScheduleReport, error) {
	const op = "service.ReloadSchedule"
	report := ScheduleReport{Year: year}

	unlock, err := s.lockIngestion(op)
	if err != nil {
		return report, err
	}
	defer unlock()

	entries, err := s.scraper.YearlySchedule(ctx, year)
	if err != nil {
		return report, core.E(core.KindScrape, op, err)
	}
	report.Scraped = len(entries)

	rows := normalize.Schedule(entries, year)
	if len(rows) == 0 {
		s.log.Warn("empty schedule scrape, keeping stored schedule", zap.Int("year", year))
		report.Skipped = true
		return report, nil
	}

	saved, err := s.store.ReplaceSchedule(ctx, year, rows)
	if err != nil {
		return report, core.E(core.KindStorage, op, err)
	}
	report.Saved = saved

	s.log.Info("schedule reloaded", zap.Int("year", year), zap.Int64("saved", saved))
	return report, nil
}

// Yesterday returns the previous calendar day in the service timezone
func (s *Service) Yesterday() time.Time {
	return s.Now().AddDate(0, 0, -1)
}

// IngestResults ingests yesterday's finished matches
func (s *Service) IngestResults(ctx context.Context) (core.DayReport, error) {
	y := s.Yesterday()
	return s.IngestDay(ctx, y.Year(), int(y.Month()), y.Day())
}

// IngestDay scrapes and stores every finished match of one day
func (s *Service) IngestDay(ctx context.Context, year, month, day int) (core.DayReport, error) {
	const op = "service.IngestDay"

	unlock, err := s.lockIngestion(op)
	if err != nil {
		return core.DayReport{}, err
	}
	defer unlock()

	entries, err := s.scraper.DailySchedule(ctx, year, month, day)
	if err != nil {
		return core.DayReport{}, core.E(core.KindScrape, op, err)
	}

	return s.ingestEntries(ctx, fmt.Sprintf("%04d-%02d-%02d", year, month, day), entries)
}

// BackfillSeason ingests every match day of a season, March through November.
// A zero year selects the configured season.
func (s *Service) BackfillSeason(ctx context.Context, year int) (core.SeasonInfo, error) {
	const op = "service.BackfillSeason"
	if year == 0 {
		year = s.season
	}
	info := core.SeasonInfo{Year: year, Total: core.DayReport{Date: fmt.Sprintf("%04d", year)}}

	unlock, err := s.lockIngestion(op)
	if err != nil {
		return info, err
	}
	defer unlock()

	entries, err := s.scraper.YearlySchedule(ctx, year)
	if err != nil {
		return info, core.E(core.KindScrape, op, err)
	}

	dates, byDate := groupByDate(entries)
	for _, date := range dates {
		month := dateMonth(date)
		if month < BackfillStartMonth || month > BackfillEndMonth {
			continue
		}
		if err := ctx.Err(); err != nil {
			return info, core.E(core.KindInternal, op, fmt.Errorf("backfill interrupted after %d days: %w", info.Days, err))
		}

		report, err := s.ingestEntries(ctx, date, byDate[date])
		if err != nil {
			return info, err
		}
		info.Days++
		info.Total.Merge(report)
	}

	s.log.Info("season backfilled",
		zap.Int("year", year),
		zap.Int("days", info.Days),
		zap.Int("games", info.Total.Games),
	)
	return info, nil
}

// ingestEntries runs the full ingestion for one day's schedule entries
func (s *Service) ingestEntries(ctx context.Context, date string, entries []scraper.ScheduleEntry) (core.DayReport, error) {
	const op = "service.ingest"
	report := core.DayReport{Date: date}

	games, err := s.scraper.GameData(ctx, entries)
	if err != nil {
		return report, core.E(core.KindScrape, op, err)
	}
	report.Games = len(games)
	if len(games) == 0 {
		s.log.Info("no finished matches", zap.String("date", date), zap.Int("scheduled", len(entries)))
		return report, nil
	}

	rows := collectRows(games)
	codes := make([]string, 0, len(games))
	keys := cache.DateKeys(date)
	for _, g := range games {
		codes = append(codes, g.MatchCode)
		keys = append(keys, cache.MatchKey(g.MatchCode), cache.ScoreboardKey(g.MatchCode), cache.BoxScoreKey(g.MatchCode))
	}

	n, err := s.store.InsertMatchResult(ctx, codes)
	if err != nil {
		return report, core.E(core.KindStorage, op, err)
	}
	report.Results = counts(len(codes), n)

	if n, err = s.store.InsertScoreboard(ctx, rows.scoreboard); err != nil {
		return report, core.E(core.KindStorage, op, err)
	}
	report.Scoreboard = counts(len(rows.scoreboard), n)

	if n, err = s.store.InsertGameInfo(ctx, rows.gameInfo); err != nil {
		return report, core.E(core.KindStorage, op, err)
	}
	report.GameInfo = counts(len(rows.gameInfo), n)

	if n, err = s.store.InsertBatters(ctx, rows.batters); err != nil {
		return report, core.E(core.KindStorage, op, err)
	}
	report.Batters = counts(len(rows.batters), n)

	if n, err = s.store.InsertPitchers(ctx, rows.pitchers); err != nil {
		return report, core.E(core.KindStorage, op, err)
	}
	report.Pitchers = counts(len(rows.pitchers), n)

	s.invalidate(ctx, keys...)

	s.log.Info("day ingested",
		zap.String("date", date),
		zap.Int("games", report.Games),
		zap.Int64("scoreboard_inserted", report.Scoreboard.Inserted),
		zap.Int64("scoreboard_skipped", report.Scoreboard.Skipped),
		zap.Int64("batters_inserted", report.Batters.Inserted),
		zap.Int64("pitchers_inserted", report.Pitchers.Inserted),
	)
	return report, nil
}

func counts(candidates int, inserted int64) core.TableCounts {
	return core.TableCounts{Inserted: inserted, Skipped: int64(candidates) - inserted}
}

// groupByDate buckets entries by date, keeping first-seen date order
func groupByDate(entries []scraper.ScheduleEntry) ([]string, map[string][]scraper.ScheduleEntry) {
	var dates []string
	byDate := make(map[string][]scraper.ScheduleEntry)
	for _, e := range entries {
		if _, ok := byDate[e.Date]; !ok {
			dates = append(dates, e.Date)
		}
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	return dates, byDate
}

func dateMonth(date string) int {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return int(t.Month())
}

type gameRows struct {
	scoreboard []storage.ScoreboardRecord
	gameInfo   []storage.GameInfoRecord
	batters    []storage.BatterRecord
	pitchers   []storage.PitcherRecord
}

// collectRows normalizes every game into per-table row sets
func collectRows(games []scraper.GameData) gameRows {
	var rows gameRows
	for _, g := range games {
		rows.scoreboard = append(rows.scoreboard, normalize.Scoreboard(g.Scoreboard, g.MatchCode)...)
		rows.gameInfo = append(rows.gameInfo, normalize.GameInfo(g.ETCInfo, g.MatchCode)...)
		rows.batters = append(rows.batters, normalize.Batters(g.Batters(), g.MatchCode)...)
		rows.pitchers = append(rows.pitchers, normalize.Pitchers(g.Pitchers(), g.MatchCode)...)
	}
	return rows
}
