package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kbodata/internal/server/config"
	"kbodata/internal/server/core"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	schedulePath = "/ws/Schedule.asmx/GetScheduleList"
	boxScorePath = "/ws/Schedule.asmx/GetBoxScoreScroll"

	// Regular season, postseason and tiebreaker series
	seriesList = "0,9,6"

	seasonStartMonth = 3
	seasonEndMonth   = 11
)

var (
	dayPattern    = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\s*\((.)\)`)
	gameIDPattern = regexp.MustCompile(`gameId=([0-9A-Z]+)`)
	weekdays      = [...]string{"일", "월", "화", "수", "목", "금", "토"}
)

// KBOClient scrapes koreabaseball.com's schedule web services
type KBOClient struct {
	http *resty.Client
	log  *zap.Logger
}

// NewKBOClient builds a client with the configured base URL, timeout, retries and user agent
func NewKBOClient(cfg config.ScraperConfig, logger *zap.Logger) *KBOClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("scraper")

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Referer", strings.TrimRight(cfg.BaseURL, "/")+"/Schedule/Schedule.aspx").
		AddRetryCondition(func(res *resty.Response, err error) bool {
			return err != nil || res.StatusCode() >= 500
		}).
		OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
			log.Debug("kbo response",
				zap.String("url", res.Request.URL),
				zap.Int("status", res.StatusCode()),
				zap.Duration("elapsed", res.Time()),
			)
			return nil
		})

	return &KBOClient{http: client, log: log}
}

// YearlySchedule returns every scheduled match of a season, March through November
func (c *KBOClient) YearlySchedule(ctx context.Context, year int) ([]ScheduleEntry, error) {
	var out []ScheduleEntry
	for month := seasonStartMonth; month <= seasonEndMonth; month++ {
		entries, err := c.monthSchedule(ctx, year, month)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	c.log.Info("yearly schedule scraped", zap.Int("year", year), zap.Int("entries", len(out)))
	return out, nil
}

// DailySchedule returns the matches scheduled on one day
func (c *KBOClient) DailySchedule(ctx context.Context, year, month, day int) ([]ScheduleEntry, error) {
	entries, err := c.monthSchedule(ctx, year, month)
	if err != nil {
		return nil, err
	}

	date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	var out []ScheduleEntry
	for _, e := range entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}

// GameData fetches the box score of every finished entry. Entries without one are skipped.
func (c *KBOClient) GameData(ctx context.Context, schedule []ScheduleEntry) ([]GameData, error) {
	var out []GameData
	for _, entry := range schedule {
		if !entry.Finished() {
			c.log.Debug("skipping unfinished match", zap.String("gameid", entry.GameID), zap.String("status", entry.Status))
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, core.E(core.KindScrape, "scraper.GameData", err)
		}

		game, err := c.boxScore(ctx, entry)
		if err != nil {
			return nil, err
		}
		out = append(out, game)
	}
	return out, nil
}

func (c *KBOClient) monthSchedule(ctx context.Context, year, month int) ([]ScheduleEntry, error) {
	const op = "scraper.monthSchedule"

	var payload scheduleListResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"leId":      "1",
			"srIdList":  seriesList,
			"seasonId":  strconv.Itoa(year),
			"gameMonth": fmt.Sprintf("%02d", month),
			"teamId":    "",
		}).
		ForceContentType("application/json").
		SetResult(&payload).
		Post(schedulePath)
	if err != nil {
		return nil, core.E(core.KindScrape, op, fmt.Errorf("schedule %d-%02d: %w", year, month, err))
	}
	if res.IsError() {
		return nil, core.E(core.KindScrape, op, fmt.Errorf("schedule %d-%02d: unexpected status %d", year, month, res.StatusCode()))
	}

	return parseSchedule(year, payload.Rows), nil
}

// parseSchedule walks the schedule grid; the day cell spans every game of that day
func parseSchedule(year int, rows []row) []ScheduleEntry {
	var out []ScheduleEntry
	var date, week string

	for _, r := range rows {
		cells := r.Row
		if len(cells) == 0 {
			continue
		}

		offset := 0
		if cells[0].Class == "day" {
			m := dayPattern.FindStringSubmatch(text(cells[0].Text))
			if m == nil {
				continue
			}
			month, _ := strconv.Atoi(m[1])
			day, _ := strconv.Atoi(m[2])
			date = fmt.Sprintf("%04d-%02d-%02d", year, month, day)
			week = m[3]
			offset = 1
		}
		if date == "" {
			continue
		}

		var play, relay *cell
		for i := offset; i < len(cells); i++ {
			switch cells[i].Class {
			case "play":
				play = &cells[i]
			case "relay":
				relay = &cells[i]
			}
		}
		if play == nil {
			// "no games" rows carry only the day cell
			continue
		}

		entry := ScheduleEntry{Date: date, Week: week}

		sel := fragment(play.Text)
		teams := sel.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Parent().Is("body")
		})
		// Away team is listed first
		entry.Away = text(teams.First().Text())
		entry.Home = text(teams.Last().Text())

		scored := sel.Find("em span.win, em span.lose, em span.same").Length() > 0

		if relay != nil {
			if m := gameIDPattern.FindStringSubmatch(relay.Text); m != nil {
				entry.GameID = m[1]
			}
		}
		entry.DBHeader = dbHeader(entry.GameID)

		// Trailing cells are stadium then note
		var note string
		if n := len(cells); n-offset >= 3 {
			entry.Stadium = text(cells[n-2].Text)
			note = text(cells[n-1].Text)
		}
		switch {
		case strings.Contains(note, "취소"):
			entry.Status = StatusCancelled
		case scored:
			entry.Status = StatusFinished
		default:
			entry.Status = StatusScheduled
		}

		out = append(out, entry)
	}
	return out
}
