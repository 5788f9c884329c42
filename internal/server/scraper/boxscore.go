package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kbodata/internal/server/core"

	"go.uber.org/zap"
)

// maxInnings matches the i_1..i_18 columns of the destination tables
const maxInnings = 18

// Box score labels for pitcher tables
var pitcherHeaders = map[string]string{
	"선수명": "name",
	"결과":  "result",
	"이닝":  "inning",
	"타자":  "batternum",
	"투구수": "pitchnum",
	"타수":  "battednum",
	"피안타": "hitted",
	"홈런":  "homerun",
	"4사구": "dead4ball",
	"삼진":  "strikeout",
	"실점":  "losescore",
	"자책":  "earnedrun",
}

func (c *KBOClient) boxScore(ctx context.Context, entry ScheduleEntry) (GameData, error) {
	const op = "scraper.boxScore"

	season := entry.GameID
	if len(season) >= 4 {
		season = season[:4]
	}

	var payload boxScoreResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"leId":     "1",
			"srId":     "0",
			"seasonId": season,
			"gameId":   entry.GameID,
		}).
		ForceContentType("application/json").
		SetResult(&payload).
		Post(boxScorePath)
	if err != nil {
		return GameData{}, core.E(core.KindScrape, op, fmt.Errorf("box score %s: %w", entry.GameID, err))
	}
	if res.IsError() {
		return GameData{}, core.E(core.KindScrape, op, fmt.Errorf("box score %s: unexpected status %d", entry.GameID, res.StatusCode()))
	}

	game, err := parseBoxScore(entry, payload)
	if err != nil {
		return GameData{}, core.E(core.KindScrape, op, fmt.Errorf("box score %s: %w", entry.GameID, err))
	}

	c.log.Debug("box score scraped",
		zap.String("matchcode", game.MatchCode),
		zap.Int("batters", len(game.Away.Batters)+len(game.Home.Batters)),
		zap.Int("pitchers", len(game.Away.Pitchers)+len(game.Home.Pitchers)),
	)
	return game, nil
}

func parseBoxScore(entry ScheduleEntry, p boxScoreResponse) (GameData, error) {
	game := GameData{MatchCode: entry.GameID}

	names, err := decodeTable(p.Table1)
	if err != nil {
		return game, err
	}
	innings, err := decodeTable(p.Table2)
	if err != nil {
		return game, err
	}
	totals, err := decodeTable(p.Table3)
	if err != nil {
		return game, err
	}

	year, month, day, week := dateParts(entry)
	runs := make([]int, len(totals.Rows))
	for i, r := range totals.Rows {
		runs[i], _ = strconv.Atoi(cellText(r, 0))
	}

	for i, r := range names.Rows {
		rec := Record{
			"idx":       i,
			"team":      cellText(r, 0),
			"home":      entry.Home,
			"away":      entry.Away,
			"dbheader":  entry.DBHeader,
			"place":     firstNonEmpty(p.Stadium, entry.Stadium),
			"audience":  p.Crowd,
			"starttime": p.Start,
			"endtime":   p.End,
			"gametime":  p.UseTime,
		}
		if year > 0 {
			rec["year"], rec["month"], rec["day"] = year, month, day
		}
		if week != "" {
			rec["week"] = week
		}

		if i < len(innings.Rows) {
			for j, inning := range innings.Rows[i].Row {
				if j >= maxInnings {
					break
				}
				rec["i_"+strconv.Itoa(j+1)] = text(inning.Text)
			}
		}
		if i < len(totals.Rows) {
			t := totals.Rows[i]
			rec["r"], rec["h"], rec["e"], rec["b"] = cellText(t, 0), cellText(t, 1), cellText(t, 2), cellText(t, 3)
			if len(runs) == 2 {
				rec["result"] = resultCode(runs[i], runs[1-i])
			}
		}

		game.Scoreboard = append(game.Scoreboard, rec)
	}

	etc, err := decodeTable(p.TableEtc)
	if err != nil {
		return game, err
	}
	game.ETCInfo = Record{}
	for _, r := range etc.Rows {
		label := cellText(r, 0)
		if label == "" {
			continue
		}
		game.ETCInfo[label] = cellText(r, 1)
	}
	for label, v := range map[string]string{
		"구장":   firstNonEmpty(p.Stadium, entry.Stadium),
		"관중":   p.Crowd,
		"개시":   p.Start,
		"종료":   p.End,
		"경기시간": p.UseTime,
	} {
		if _, ok := game.ETCInfo[label]; !ok && v != "" {
			game.ETCInfo[label] = v
		}
	}

	sides := []*Lineup{&game.Away, &game.Home}
	teams := []string{entry.Away, entry.Home}
	if len(names.Rows) == 2 {
		teams = []string{cellText(names.Rows[0], 0), cellText(names.Rows[1], 0)}
	}

	batterIdx := 0
	for i, h := range p.Hitters {
		if i >= len(sides) {
			break
		}
		batters, err := parseHitters(h, teams[i], &batterIdx)
		if err != nil {
			return game, err
		}
		sides[i].Batters = batters
	}

	pitcherIdx := 0
	for i, pt := range p.Pitchers {
		if i >= len(sides) {
			break
		}
		pitchers, err := parsePitchers(pt, teams[i], &pitcherIdx)
		if err != nil {
			return game, err
		}
		sides[i].Pitchers = pitchers
	}

	return game, nil
}

func parseHitters(h hitterTables, team string, idx *int) ([]Record, error) {
	lineup, err := decodeTable(h.Table1)
	if err != nil {
		return nil, err
	}
	innings, err := decodeTable(h.Table2)
	if err != nil {
		return nil, err
	}
	stats, err := decodeTable(h.Table3)
	if err != nil {
		return nil, err
	}

	var out []Record
	for i, r := range lineup.Rows {
		name := cellText(r, 2)
		if name == "" {
			continue
		}
		rec := Record{
			"idx":      *idx,
			"name":     name,
			"team":     team,
			"position": cellText(r, 1),
		}
		if i < len(innings.Rows) {
			for j, c := range innings.Rows[i].Row {
				if j >= maxInnings {
					break
				}
				rec["i_"+strconv.Itoa(j+1)] = text(c.Text)
			}
		}
		if i < len(stats.Rows) {
			s := stats.Rows[i]
			rec["bat_num"] = cellText(s, 0)
			rec["hit"] = cellText(s, 1)
			rec["hit_get"] = cellText(s, 2)
			rec["own_get"] = cellText(s, 3)
		}
		out = append(out, rec)
		*idx++
	}
	return out, nil
}

func parsePitchers(pt pitcherTables, team string, idx *int) ([]Record, error) {
	t, err := decodeTable(pt.Table)
	if err != nil {
		return nil, err
	}
	cols := t.headerIndex()

	var out []Record
	for _, r := range t.Rows {
		rec := Record{"team": team}
		for label, key := range pitcherHeaders {
			if i, ok := cols[label]; ok {
				rec[key] = cellText(r, i)
			}
		}
		name, _ := rec["name"].(string)
		if name == "" || name == "TOTAL" || name == "합계" {
			continue
		}
		rec["idx"] = *idx
		// Appearance order within the team, 1 is the starter
		rec["mound"] = len(out) + 1
		out = append(out, rec)
		*idx++
	}
	return out, nil
}

func resultCode(own, other int) string {
	switch {
	case own > other:
		return "1"
	case own < other:
		return "-1"
	default:
		return "0"
	}
}

func dateParts(entry ScheduleEntry) (year, month, day int, week string) {
	t, err := time.Parse("2006-01-02", entry.Date)
	if err != nil {
		return 0, 0, 0, entry.Week
	}
	week = entry.Week
	if week == "" {
		week = weekdays[t.Weekday()]
	}
	return t.Year(), int(t.Month()), t.Day(), week
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
