// Package normalize maps scraped records onto the fixed row shapes of the
// destination tables. Every function is pure: missing or malformed values
// become NULL columns and an empty input yields zero rows.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"kbodata/internal/server/scraper"
	"kbodata/internal/server/storage"
)

// ETC labels as they appear in the box score, mapped by GameInfo
const (
	LabelGWRBI      = "결승타"
	LabelGameTime   = "경기시간"
	LabelStadium    = "구장"
	LabelEndTime    = "종료"
	LabelReferee    = "심판"
	LabelTriple     = "3루타"
	LabelCS         = "도루자"
	LabelSB         = "도루"
	LabelPickoff    = "견제"
	LabelStartTime  = "개시"
	LabelPassedBall = "포일"
	LabelErr        = "실책"
	LabelOOB        = "주루사"
	LabelDoubleHit  = "2루타"
	LabelDoubleOut  = "병살타"
	LabelWildPitch  = "폭투"
	LabelHomeRun    = "홈런"
	LabelCrowd      = "관중"
)

// Schedule tags scraped entries with their season year
func Schedule(entries []scraper.ScheduleEntry, year int) []storage.ScheduleRecord {
	if len(entries) == 0 {
		return nil
	}

	out := make([]storage.ScheduleRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, storage.ScheduleRecord{
			MatchStatus: e.Status,
			MatchDate:   e.Date,
			Home:        e.Home,
			Away:        e.Away,
			DBHeader:    e.DBHeader,
			GameID:      e.GameID,
			Year:        year,
		})
	}
	return out
}

// Scoreboard renames the short total keys (r, h, e, b), derives matchdate from
// year/month/day and matchday from week, and coerces numeric columns
func Scoreboard(rows []scraper.Record, matchCode string) []storage.ScoreboardRecord {
	if len(rows) == 0 {
		return nil
	}

	out := make([]storage.ScoreboardRecord, 0, len(rows))
	for _, r := range rows {
		rec := storage.ScoreboardRecord{
			MatchCode: matchCode,
			Idx:       Int(r["idx"]),
			Team:      Text(r["team"]),
			Result:    Text(r["result"]),
			Run:       Int(r["r"]),
			Hit:       Int(r["h"]),
			Err:       Int(r["e"]),
			Balls:     Int(r["b"]),
			MatchDate: matchDate(r),
			MatchDay:  Text(r["week"]),
			Home:      Text(r["home"]),
			Away:      Text(r["away"]),
			DBHeader:  Text(r["dbheader"]),
			Place:     Text(r["place"]),
			Audience:  Int(r["audience"]),
			StartTime: Text(r["starttime"]),
			EndTime:   Text(r["endtime"]),
			GameTime:  Text(r["gametime"]),
		}
		fillInnings(&rec.Innings, r)
		out = append(out, rec)
	}
	return out
}

// matchDate composes YYYY-MM-DD only when all three parts are present
func matchDate(r scraper.Record) *string {
	year, month, day := Int(r["year"]), Int(r["month"]), Int(r["day"])
	if year == nil || month == nil || day == nil {
		return nil
	}
	s := fmt.Sprintf("%d-%02d-%02d", *year, *month, *day)
	return &s
}

func fillInnings(dst *[storage.InningCount]*int64, r scraper.Record) {
	for i := range dst {
		dst[i] = Int(r["i_"+strconv.Itoa(i+1)])
	}
}

// GameInfo maps the labelled box score extras onto one game_info row
func GameInfo(info scraper.Record, matchCode string) []storage.GameInfoRecord {
	if len(info) == 0 {
		return nil
	}

	rec := storage.GameInfoRecord{
		MatchCode:  matchCode,
		GWRBI:      Text(info[LabelGWRBI]),
		GameTime:   Text(info[LabelGameTime]),
		Stadium:    Text(info[LabelStadium]),
		EndTime:    Text(info[LabelEndTime]),
		Referee:    Text(info[LabelReferee]),
		Triple:     Text(info[LabelTriple]),
		CS:         Text(info[LabelCS]),
		SB:         Text(info[LabelSB]),
		Pickoff:    Text(info[LabelPickoff]),
		StartTime:  Text(info[LabelStartTime]),
		PassedBall: Text(info[LabelPassedBall]),
		Err:        Text(info[LabelErr]),
		OOB:        Text(info[LabelOOB]),
		DoubleHit:  Text(info[LabelDoubleHit]),
		DoubleOut:  Text(info[LabelDoubleOut]),
		WildPitch:  Text(info[LabelWildPitch]),
		HomeRun:    Text(info[LabelHomeRun]),
		Crowd:      Text(info[LabelCrowd]),
	}
	if rec.Crowd != nil {
		crowd := strings.ReplaceAll(*rec.Crowd, ",", "")
		rec.Crowd = &crowd
	}
	return []storage.GameInfoRecord{rec}
}

// Batters maps batter lines; name becomes player_name and inning cells that are
// not plain numbers become NULL
func Batters(rows []scraper.Record, matchCode string) []storage.BatterRecord {
	if len(rows) == 0 {
		return nil
	}

	out := make([]storage.BatterRecord, 0, len(rows))
	for _, r := range rows {
		rec := storage.BatterRecord{
			MatchCode:  matchCode,
			Idx:        Int(r["idx"]),
			PlayerName: Text(r["name"]),
			Team:       Text(r["team"]),
			Position:   Text(r["position"]),
			Hit:        Int(r["hit"]),
			BatNum:     Int(r["bat_num"]),
			HitGet:     Int(r["hit_get"]),
			OwnGet:     Int(r["own_get"]),
		}
		fillInnings(&rec.Innings, r)
		out = append(out, rec)
	}
	return out
}

// Pitchers maps pitcher lines; inning accepts fractional notation
func Pitchers(rows []scraper.Record, matchCode string) []storage.PitcherRecord {
	if len(rows) == 0 {
		return nil
	}

	out := make([]storage.PitcherRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, storage.PitcherRecord{
			MatchCode:  matchCode,
			Idx:        Int(r["idx"]),
			PlayerName: Text(r["name"]),
			Team:       Text(r["team"]),
			Mound:      Int(r["mound"]),
			Inning:     Float(r["inning"]),
			Result:     Text(r["result"]),
			Strikeout:  Int(r["strikeout"]),
			Dead4Ball:  Int(r["dead4ball"]),
			LoseScore:  Int(r["losescore"]),
			EarnedRun:  Int(r["earnedrun"]),
			PitchNum:   Int(r["pitchnum"]),
			Hitted:     Int(r["hitted"]),
			HomeRun:    Int(r["homerun"]),
			BattedNum:  Int(r["battednum"]),
			BatterNum:  Int(r["batternum"]),
		})
	}
	return out
}
