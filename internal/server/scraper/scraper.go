// Package scraper fetches schedules and box scores from the KBO website.
package scraper

import (
	"context"
	"strings"
)

// Match statuses reported in schedule entries
const (
	StatusFinished  = "경기종료"
	StatusCancelled = "경기취소"
	StatusScheduled = "경기전"
)

// Record is one raw row as scraped, values are strings or numbers
type Record map[string]any

// ScheduleEntry is one scheduled match
type ScheduleEntry struct {
	Status   string `json:"match_status"`
	Date     string `json:"match_date"` // YYYY-MM-DD
	Week     string `json:"week"`
	Home     string `json:"home"`
	Away     string `json:"away"`
	DBHeader string `json:"dbheader"`
	GameID   string `json:"gameid"`
	Stadium  string `json:"stadium"`
}

// Finished reports whether the box score of the entry can be fetched
func (e ScheduleEntry) Finished() bool {
	return e.Status == StatusFinished && e.GameID != ""
}

// Lineup holds one side's batter and pitcher lines
type Lineup struct {
	Batters  []Record
	Pitchers []Record
}

// GameData is everything scraped for one finished match
type GameData struct {
	MatchCode  string
	Scoreboard []Record
	ETCInfo    Record
	Away       Lineup
	Home       Lineup
}

// Batters returns away then home batter lines
func (g GameData) Batters() []Record {
	return append(append([]Record{}, g.Away.Batters...), g.Home.Batters...)
}

// Pitchers returns away then home pitcher lines
func (g GameData) Pitchers() []Record {
	return append(append([]Record{}, g.Away.Pitchers...), g.Home.Pitchers...)
}

// Client is the scrape surface the ingestion workflows depend on
type Client interface {
	YearlySchedule(ctx context.Context, year int) ([]ScheduleEntry, error)
	DailySchedule(ctx context.Context, year, month, day int) ([]ScheduleEntry, error)
	GameData(ctx context.Context, schedule []ScheduleEntry) ([]GameData, error)
}

// dbHeader derives the doubleheader flag from the last character of a game id
func dbHeader(gameID string) string {
	if gameID == "" {
		return ""
	}
	last := gameID[len(gameID)-1:]
	if strings.ContainsAny(last, "0123456789") {
		return last
	}
	return ""
}
