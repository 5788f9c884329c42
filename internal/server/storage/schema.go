package storage

import "strconv"

// InningCount covers extra innings up to the 18th
const InningCount = 18

// ScheduleRecord represents a row in the match_schedule table
type ScheduleRecord struct {
	ID          int64  `db:"id" json:"id"`
	MatchStatus string `db:"match_status" json:"match_status"`
	MatchDate   string `db:"match_date" json:"match_date"`
	Home        string `db:"home" json:"home"`
	Away        string `db:"away" json:"away"`
	DBHeader    string `db:"dbheader" json:"dbheader"`
	GameID      string `db:"gameid" json:"gameid"`
	Year        int    `db:"year" json:"year"`
}

// ScoreboardRecord is one team's line for one match
type ScoreboardRecord struct {
	ID        int64               `db:"id" json:"-"`
	MatchCode string              `db:"matchcode" json:"matchcode"`
	Idx       *int64              `db:"idx" json:"idx"`
	Team      *string             `db:"team" json:"team"`
	Result    *string             `db:"result" json:"result"`
	Innings   [InningCount]*int64 `db:"i_N" json:"innings"`
	Run       *int64              `db:"run" json:"run"`
	Hit       *int64              `db:"hit" json:"hit"`
	Err       *int64              `db:"err" json:"err"`
	Balls     *int64              `db:"balls" json:"balls"`
	MatchDate *string             `db:"matchdate" json:"matchdate"`
	MatchDay  *string             `db:"matchday" json:"matchday"`
	Home      *string             `db:"home" json:"home"`
	Away      *string             `db:"away" json:"away"`
	DBHeader  *string             `db:"dbheader" json:"dbheader"`
	Place     *string             `db:"place" json:"place"`
	Audience  *int64              `db:"audience" json:"audience"`
	StartTime *string             `db:"starttime" json:"starttime"`
	EndTime   *string             `db:"endtime" json:"endtime"`
	GameTime  *string             `db:"gametime" json:"gametime"`
}

// GameInfoRecord holds the free-text extras of one match
type GameInfoRecord struct {
	MatchCode  string  `db:"matchcode" json:"matchcode"`
	GWRBI      *string `db:"gwrbi" json:"gwrbi"`
	GameTime   *string `db:"gametime" json:"gametime"`
	Stadium    *string `db:"stadium" json:"stadium"`
	EndTime    *string `db:"endtime" json:"endtime"`
	Referee    *string `db:"referee" json:"referee"`
	Triple     *string `db:"triple" json:"triple"`
	CS         *string `db:"cs" json:"cs"`
	SB         *string `db:"sb" json:"sb"`
	Pickoff    *string `db:"pickoff" json:"pickoff"`
	StartTime  *string `db:"starttime" json:"starttime"`
	PassedBall *string `db:"passedball" json:"passedball"`
	Err        *string `db:"err" json:"err"`
	OOB        *string `db:"oob" json:"oob"`
	DoubleHit  *string `db:"doublehit" json:"doublehit"`
	DoubleOut  *string `db:"doubleout" json:"doubleout"`
	WildPitch  *string `db:"wildpitch" json:"wildpitch"`
	HomeRun    *string `db:"homerun" json:"homerun"`
	Crowd      *string `db:"crowd" json:"crowd"`
}

// BatterRecord is one batter's line for one match
type BatterRecord struct {
	MatchCode  string              `db:"matchcode" json:"matchcode"`
	Idx        *int64              `db:"idx" json:"idx"`
	PlayerName *string             `db:"player_name" json:"player_name"`
	Team       *string             `db:"team" json:"team"`
	Position   *string             `db:"position" json:"position"`
	Innings    [InningCount]*int64 `db:"i_N" json:"innings"`
	Hit        *int64              `db:"hit" json:"hit"`
	BatNum     *int64              `db:"bat_num" json:"bat_num"`
	HitGet     *int64              `db:"hit_get" json:"hit_get"`
	OwnGet     *int64              `db:"own_get" json:"own_get"`
}

// PitcherRecord is one pitcher's line for one match
type PitcherRecord struct {
	MatchCode  string   `db:"matchcode" json:"matchcode"`
	Idx        *int64   `db:"idx" json:"idx"`
	PlayerName *string  `db:"player_name" json:"player_name"`
	Team       *string  `db:"team" json:"team"`
	Mound      *int64   `db:"mound" json:"mound"`
	Inning     *float64 `db:"inning" json:"inning"`
	Result     *string  `db:"result" json:"result"`
	Strikeout  *int64   `db:"strikeout" json:"strikeout"`
	Dead4Ball  *int64   `db:"dead4ball" json:"dead4ball"`
	LoseScore  *int64   `db:"losescore" json:"losescore"`
	EarnedRun  *int64   `db:"earnedrun" json:"earnedrun"`
	PitchNum   *int64   `db:"pitchnum" json:"pitchnum"`
	Hitted     *int64   `db:"hitted" json:"hitted"`
	HomeRun    *int64   `db:"homerun" json:"homerun"`
	BattedNum  *int64   `db:"battednum" json:"battednum"`
	BatterNum  *int64   `db:"batternum" json:"batternum"`
}

var inningColumns = func() []string {
	cols := make([]string, InningCount)
	for i := range cols {
		cols[i] = "i_" + strconv.Itoa(i+1)
	}
	return cols
}()

func withInnings(head []string, tail ...string) []string {
	cols := append([]string{}, head...)
	cols = append(cols, inningColumns...)
	return append(cols, tail...)
}

var (
	scheduleColumns = []string{"match_status", "match_date", "home", "away", "dbheader", "gameid", "year"}

	scoreboardColumns = withInnings(
		[]string{"matchcode", "idx", "team", "result"},
		"run", "hit", "err", "balls", "matchdate", "matchday", "home", "away",
		"dbheader", "place", "audience", "starttime", "endtime", "gametime",
	)

	gameInfoColumns = []string{
		"matchcode", "gwrbi", "gametime", "stadium", "endtime", "referee", "triple", "cs", "sb",
		"pickoff", "starttime", "passedball", "err", "oob", "doublehit", "doubleout", "wildpitch",
		"homerun", "crowd",
	}

	batterColumns = withInnings(
		[]string{"matchcode", "idx", "player_name", "team", "position"},
		"hit", "bat_num", "hit_get", "own_get",
	)

	pitcherColumns = []string{
		"matchcode", "idx", "player_name", "team", "mound", "inning", "result", "strikeout",
		"dead4ball", "losescore", "earnedrun", "pitchnum", "hitted", "homerun", "battednum", "batternum",
	}
)

func (r ScheduleRecord) values() []any {
	return []any{r.MatchStatus, r.MatchDate, r.Home, r.Away, r.DBHeader, r.GameID, r.Year}
}

func (r *ScoreboardRecord) values() []any {
	v := []any{r.MatchCode, r.Idx, r.Team, r.Result}
	for _, inning := range r.Innings {
		v = append(v, inning)
	}
	return append(v,
		r.Run, r.Hit, r.Err, r.Balls, r.MatchDate, r.MatchDay, r.Home, r.Away,
		r.DBHeader, r.Place, r.Audience, r.StartTime, r.EndTime, r.GameTime,
	)
}

func (r *ScoreboardRecord) targets() []any {
	t := []any{&r.MatchCode, &r.Idx, &r.Team, &r.Result}
	for i := range r.Innings {
		t = append(t, &r.Innings[i])
	}
	return append(t,
		&r.Run, &r.Hit, &r.Err, &r.Balls, &r.MatchDate, &r.MatchDay, &r.Home, &r.Away,
		&r.DBHeader, &r.Place, &r.Audience, &r.StartTime, &r.EndTime, &r.GameTime,
	)
}

func (r *GameInfoRecord) values() []any {
	return []any{
		r.MatchCode, r.GWRBI, r.GameTime, r.Stadium, r.EndTime, r.Referee, r.Triple, r.CS, r.SB,
		r.Pickoff, r.StartTime, r.PassedBall, r.Err, r.OOB, r.DoubleHit, r.DoubleOut, r.WildPitch,
		r.HomeRun, r.Crowd,
	}
}

func (r *GameInfoRecord) targets() []any {
	return []any{
		&r.MatchCode, &r.GWRBI, &r.GameTime, &r.Stadium, &r.EndTime, &r.Referee, &r.Triple, &r.CS, &r.SB,
		&r.Pickoff, &r.StartTime, &r.PassedBall, &r.Err, &r.OOB, &r.DoubleHit, &r.DoubleOut, &r.WildPitch,
		&r.HomeRun, &r.Crowd,
	}
}

func (r *BatterRecord) values() []any {
	v := []any{r.MatchCode, r.Idx, r.PlayerName, r.Team, r.Position}
	for _, inning := range r.Innings {
		v = append(v, inning)
	}
	return append(v, r.Hit, r.BatNum, r.HitGet, r.OwnGet)
}

func (r *BatterRecord) targets() []any {
	t := []any{&r.MatchCode, &r.Idx, &r.PlayerName, &r.Team, &r.Position}
	for i := range r.Innings {
		t = append(t, &r.Innings[i])
	}
	return append(t, &r.Hit, &r.BatNum, &r.HitGet, &r.OwnGet)
}

func (r *PitcherRecord) values() []any {
	return []any{
		r.MatchCode, r.Idx, r.PlayerName, r.Team, r.Mound, r.Inning, r.Result, r.Strikeout,
		r.Dead4Ball, r.LoseScore, r.EarnedRun, r.PitchNum, r.Hitted, r.HomeRun, r.BattedNum, r.BatterNum,
	}
}

func (r *PitcherRecord) targets() []any {
	return []any{
		&r.MatchCode, &r.Idx, &r.PlayerName, &r.Team, &r.Mound, &r.Inning, &r.Result, &r.Strikeout,
		&r.Dead4Ball, &r.LoseScore, &r.EarnedRun, &r.PitchNum, &r.Hitted, &r.HomeRun, &r.BattedNum, &r.BatterNum,
	}
}

// schemaTemplate defines the database structure; {{ID}}, {{INT}} and {{REAL}} are filled per dialect
var schemaTemplate = []string{
	`CREATE TABLE IF NOT EXISTS match_schedule (
	id {{ID}},
	match_status TEXT,
	match_date TEXT NOT NULL,
	home TEXT,
	away TEXT,
	dbheader TEXT,
	gameid TEXT,
	year {{INT}} NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_match_schedule_year ON match_schedule(year)`,
	`CREATE INDEX IF NOT EXISTS idx_match_schedule_date ON match_schedule(match_date)`,

	`CREATE TABLE IF NOT EXISTS match_result (
	matchcode TEXT PRIMARY KEY
)`,

	`CREATE TABLE IF NOT EXISTS scoreboard (
	id {{ID}},
	matchcode TEXT NOT NULL,
	idx {{INT}},
	team TEXT NOT NULL,
	result TEXT,
	i_1 {{INT}}, i_2 {{INT}}, i_3 {{INT}}, i_4 {{INT}}, i_5 {{INT}}, i_6 {{INT}},
	i_7 {{INT}}, i_8 {{INT}}, i_9 {{INT}}, i_10 {{INT}}, i_11 {{INT}}, i_12 {{INT}},
	i_13 {{INT}}, i_14 {{INT}}, i_15 {{INT}}, i_16 {{INT}}, i_17 {{INT}}, i_18 {{INT}},
	run {{INT}},
	hit {{INT}},
	err {{INT}},
	balls {{INT}},
	matchdate TEXT,
	matchday TEXT,
	home TEXT,
	away TEXT,
	dbheader TEXT,
	place TEXT,
	audience {{INT}},
	starttime TEXT,
	endtime TEXT,
	gametime TEXT,
	UNIQUE(matchcode, team)
)`,
	`CREATE INDEX IF NOT EXISTS idx_scoreboard_matchdate ON scoreboard(matchdate)`,

	`CREATE TABLE IF NOT EXISTS game_info (
	id {{ID}},
	matchcode TEXT NOT NULL UNIQUE,
	gwrbi TEXT,
	gametime TEXT,
	stadium TEXT,
	endtime TEXT,
	referee TEXT,
	triple TEXT,
	cs TEXT,
	sb TEXT,
	pickoff TEXT,
	starttime TEXT,
	passedball TEXT,
	err TEXT,
	oob TEXT,
	doublehit TEXT,
	doubleout TEXT,
	wildpitch TEXT,
	homerun TEXT,
	crowd TEXT
)`,

	`CREATE TABLE IF NOT EXISTS batter_info (
	id {{ID}},
	matchcode TEXT NOT NULL,
	idx {{INT}} NOT NULL,
	player_name TEXT,
	team TEXT,
	position TEXT,
	i_1 {{INT}}, i_2 {{INT}}, i_3 {{INT}}, i_4 {{INT}}, i_5 {{INT}}, i_6 {{INT}},
	i_7 {{INT}}, i_8 {{INT}}, i_9 {{INT}}, i_10 {{INT}}, i_11 {{INT}}, i_12 {{INT}},
	i_13 {{INT}}, i_14 {{INT}}, i_15 {{INT}}, i_16 {{INT}}, i_17 {{INT}}, i_18 {{INT}},
	hit {{INT}},
	bat_num {{INT}},
	hit_get {{INT}},
	own_get {{INT}},
	UNIQUE(matchcode, idx)
)`,

	`CREATE TABLE IF NOT EXISTS pitcher_info (
	id {{ID}},
	matchcode TEXT NOT NULL,
	idx {{INT}} NOT NULL,
	player_name TEXT,
	team TEXT,
	mound {{INT}},
	inning {{REAL}},
	result TEXT,
	strikeout {{INT}},
	dead4ball {{INT}},
	losescore {{INT}},
	earnedrun {{INT}},
	pitchnum {{INT}},
	hitted {{INT}},
	homerun {{INT}},
	battednum {{INT}},
	batternum {{INT}},
	UNIQUE(matchcode, idx)
)`,
}
