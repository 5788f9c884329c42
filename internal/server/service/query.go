package service

import (
	"context"
	"fmt"
	"time"

	"kbodata/internal/server/cache"
	"kbodata/internal/server/core"
	"kbodata/internal/server/storage"
	"kbodata/internal/server/teams"

	"go.uber.org/zap"
)

// Scoreboard result codes
const (
	ResultWin  = "1"
	ResultLoss = "-1"
	ResultDraw = "0"
)

// BoxScore holds both sides' batter and pitcher lines of one match
type BoxScore struct {
	MatchCode string                  `json:"matchcode"`
	Batters   []storage.BatterRecord  `json:"batters"`
	Pitchers  []storage.PitcherRecord `json:"pitchers"`
}

// MatchesByDate summarizes every match whose date starts with prefix.
// Matches with fewer than two scoreboard rows are skipped.
func (s *Service) MatchesByDate(ctx context.Context, prefix string) ([]core.MatchSummary, error) {
	return readThrough(ctx, s, cache.MatchesByDateKey(prefix), func(ctx context.Context) ([]core.MatchSummary, error) {
		rows, err := s.store.ScoreboardByDate(ctx, prefix)
		if err != nil {
			return nil, core.E(core.KindStorage, "service.MatchesByDate", err)
		}
		return s.summarize(rows), nil
	})
}

// summarize groups rows by match, in first-seen order
func (s *Service) summarize(rows []storage.ScoreboardRecord) []core.MatchSummary {
	var order []string
	groups := make(map[string][]storage.ScoreboardRecord)
	for _, r := range rows {
		if _, ok := groups[r.MatchCode]; !ok {
			order = append(order, r.MatchCode)
		}
		groups[r.MatchCode] = append(groups[r.MatchCode], r)
	}

	out := make([]core.MatchSummary, 0, len(order))
	for _, code := range order {
		group := groups[code]
		if len(group) < 2 {
			s.log.Warn("incomplete scoreboard, skipping match", zap.String("matchcode", code), zap.Int("rows", len(group)))
			continue
		}

		team1, team2 := pairByResult(group)
		first := group[0]
		home, away := deref(first.Home), deref(first.Away)
		if home == "" || away == "" {
			if a, h, ok := teams.MatchTeams(code); ok {
				home, away = teams.CodeToName(h), teams.CodeToName(a)
			}
		}
		out = append(out, core.MatchSummary{
			MatchCode: code,
			MatchDate: deref(first.MatchDate),
			MatchDay:  deref(first.MatchDay),
			Home:      home,
			Away:      away,
			Place:     venue(deref(first.Place), home),
			Team1:     teamResult(team1),
			Team2:     teamResult(team2),
		})
	}
	return out
}

// pairByResult puts the winning row first and the losing row second,
// falling back to row order for whichever side carries no decisive code
func pairByResult(group []storage.ScoreboardRecord) (storage.ScoreboardRecord, storage.ScoreboardRecord) {
	win, loss := -1, -1
	for i, r := range group {
		switch deref(r.Result) {
		case ResultWin:
			if win < 0 {
				win = i
			}
		case ResultLoss:
			if loss < 0 {
				loss = i
			}
		}
	}

	next := func(skip int) int {
		for i := range group {
			if i != skip && i != win && i != loss {
				return i
			}
		}
		return -1
	}
	if win < 0 {
		win = next(loss)
	}
	if loss < 0 {
		loss = next(win)
	}
	return group[win], group[loss]
}

func teamResult(r storage.ScoreboardRecord) core.TeamResult {
	return core.TeamResult{Team: deref(r.Team), Result: deref(r.Result), Run: r.Run}
}

// venue expands the stored place, falling back to the home team's stadium
func venue(place, home string) string {
	if place := teams.NormalizeStadium(place); place != "" {
		return place
	}
	return teams.HomeStadium(home)
}

// RecentMatches pages through every stored match, newest first
func (s *Service) RecentMatches(ctx context.Context, page, size int) (core.MatchPage, error) {
	return s.matchPage(ctx, "service.RecentMatches", storage.MatchFilter{}, page, size)
}

// MatchesByTeam pages through one franchise's matches under every name it played as.
// team is a franchise code or any of its names.
func (s *Service) MatchesByTeam(ctx context.Context, team string, page, size int) (core.MatchPage, error) {
	const op = "service.MatchesByTeam"

	code, ok := teams.Resolve(team)
	if !ok {
		return core.MatchPage{}, core.E(core.KindInvalid, op, fmt.Errorf("unknown team %q", team))
	}

	out, err := s.matchPage(ctx, op, storage.MatchFilter{Teams: teams.Names(code)}, page, size)
	out.Team = teams.CodeToName(code)
	return out, err
}

// MatchesByRange pages through the matches played between two YYYY-MM-DD dates, inclusive
func (s *Service) MatchesByRange(ctx context.Context, from, to string, page, size int) (core.MatchPage, error) {
	const op = "service.MatchesByRange"

	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return core.MatchPage{}, core.E(core.KindInvalid, op, fmt.Errorf("invalid start date %q", from))
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return core.MatchPage{}, core.E(core.KindInvalid, op, fmt.Errorf("invalid end date %q", to))
	}
	if end.Before(start) {
		return core.MatchPage{}, core.E(core.KindInvalid, op, fmt.Errorf("end date %s is before start date %s", to, from))
	}

	out, err := s.matchPage(ctx, op, storage.MatchFilter{From: from, To: to}, page, size)
	out.StartDate, out.EndDate = from, to
	return out, err
}

// matchPage loads one page of summaries; incomplete matches count toward the
// total but are left out of the page
func (s *Service) matchPage(ctx context.Context, op string, f storage.MatchFilter, page, size int) (core.MatchPage, error) {
	if size <= 0 {
		size = core.DefaultPageSize
	}
	page = max(page, 0)
	out := core.MatchPage{Page: page, Size: size, Data: []core.MatchSummary{}}

	f.Limit, f.Offset = size, page*size
	codes, total, err := s.store.MatchCodes(ctx, f)
	if err != nil {
		return out, core.E(core.KindStorage, op, err)
	}
	out.Total = total
	out.TotalPages = int((total + int64(size) - 1) / int64(size))

	rows, err := s.store.ScoreboardByMatches(ctx, codes)
	if err != nil {
		return out, core.E(core.KindStorage, op, err)
	}

	// summarize keeps first-seen order, so feed rows in page order
	byCode := make(map[string][]storage.ScoreboardRecord, len(codes))
	for _, r := range rows {
		byCode[r.MatchCode] = append(byCode[r.MatchCode], r)
	}
	ordered := make([]storage.ScoreboardRecord, 0, len(rows))
	for _, code := range codes {
		ordered = append(ordered, byCode[code]...)
	}

	out.Data = append(out.Data, s.summarize(ordered)...)
	return out, nil
}

// MatchDetail returns the game info row of one match
func (s *Service) MatchDetail(ctx context.Context, matchCode string) (*storage.GameInfoRecord, error) {
	return readThrough(ctx, s, cache.MatchKey(matchCode), func(ctx context.Context) (*storage.GameInfoRecord, error) {
		info, err := s.store.GameInfo(ctx, matchCode)
		if err != nil {
			kind := core.KindStorage
			if core.KindOf(err) == core.KindNotFound {
				kind = core.KindNotFound
			}
			return nil, core.E(kind, "service.MatchDetail", err)
		}
		return info, nil
	})
}

// MatchScoreboard returns per-team inning scores with home and away totals
func (s *Service) MatchScoreboard(ctx context.Context, matchCode string) (*core.ScoreboardDetail, error) {
	const op = "service.MatchScoreboard"

	return readThrough(ctx, s, cache.ScoreboardKey(matchCode), func(ctx context.Context) (*core.ScoreboardDetail, error) {
		rows, err := s.store.ScoreboardByMatch(ctx, matchCode)
		if err != nil {
			return nil, core.E(core.KindStorage, op, err)
		}
		if len(rows) == 0 {
			return nil, core.E(core.KindNotFound, op, core.ErrNotFound)
		}

		first := rows[0]
		detail := &core.ScoreboardDetail{
			MatchCode: matchCode,
			MatchDate: deref(first.MatchDate),
			Home:      deref(first.Home),
			Away:      deref(first.Away),
			Place:     venue(deref(first.Place), deref(first.Home)),
			GameTime:  deref(first.GameTime),
			Audience:  first.Audience,
		}

		for _, r := range rows {
			team := deref(r.Team)
			switch team {
			case detail.Home:
				detail.HomeScore = r.Run
			case detail.Away:
				detail.AwayScore = r.Run
			}

			scores := make([]int64, 0, storage.InningCount)
			for _, inning := range r.Innings {
				if inning != nil {
					scores = append(scores, *inning)
				}
			}
			detail.Innings = append(detail.Innings, core.InningScore{
				Team:   team,
				Result: deref(r.Result),
				Scores: scores,
				Run:    r.Run,
				Hit:    r.Hit,
				Err:    r.Err,
				Balls:  r.Balls,
			})
		}
		return detail, nil
	})
}

// BoxScore returns the batter and pitcher lines of one match
func (s *Service) BoxScore(ctx context.Context, matchCode string) (*BoxScore, error) {
	const op = "service.BoxScore"

	return readThrough(ctx, s, cache.BoxScoreKey(matchCode), func(ctx context.Context) (*BoxScore, error) {
		batters, err := s.store.BattersByMatch(ctx, matchCode)
		if err != nil {
			return nil, core.E(core.KindStorage, op, err)
		}
		pitchers, err := s.store.PitchersByMatch(ctx, matchCode)
		if err != nil {
			return nil, core.E(core.KindStorage, op, err)
		}
		if len(batters) == 0 && len(pitchers) == 0 {
			return nil, core.E(core.KindNotFound, op, core.ErrNotFound)
		}
		return &BoxScore{MatchCode: matchCode, Batters: batters, Pitchers: pitchers}, nil
	})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
