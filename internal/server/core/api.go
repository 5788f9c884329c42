package core

// Request types

type ScheduleRequest struct {
	Year int `query:"year" validate:"required,min=1982,max=2100"`
}

type SeasonRequest struct {
	Year  int  `query:"year" validate:"omitempty,min=1982,max=2100"`
	Async bool `query:"async"`
}

type MatchDateRequest struct {
	Date string `validate:"required,matchdate"`
}

type MatchCodeRequest struct {
	MatchCode string `validate:"required,alphanum,min=8,max=20"`
}

// DefaultPageSize applies when a listing request omits size
const DefaultPageSize = 20

type RecentMatchesRequest struct {
	Page int `query:"page" validate:"min=0,max=10000"`
	Size int `query:"size" validate:"omitempty,min=1,max=100"`
}

// TeamMatchesRequest takes a team name of any era or a franchise code
type TeamMatchesRequest struct {
	Team string `validate:"required,max=20"`
	Page int    `query:"page" validate:"min=0,max=10000"`
	Size int    `query:"size" validate:"omitempty,min=1,max=100"`
}

type DateRangeRequest struct {
	StartDate string `query:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"required,datetime=2006-01-02"`
	Page      int    `query:"page" validate:"min=0,max=10000"`
	Size      int    `query:"size" validate:"omitempty,min=1,max=100"`
}

// Response types

type ScheduleResponse struct {
	Status       string `json:"status"`
	Year         int    `json:"year"`
	SavedRecords int64  `json:"saved_records"`
	Message      string `json:"message"`
	SavedAt      string `json:"saved_at"`
	RunID        string `json:"run_id,omitempty"`
}

type IngestResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	SavedAt string      `json:"saved_at"`
	RunID   string      `json:"run_id,omitempty"`
	Report  *DayReport  `json:"report,omitempty"`
	Season  *SeasonInfo `json:"season,omitempty"`
}

// DayReport counts rows inserted and skipped per table for one ingestion day
type DayReport struct {
	Date       string      `json:"date"`
	Games      int         `json:"games"`
	Results    TableCounts `json:"match_result"`
	Scoreboard TableCounts `json:"scoreboard"`
	GameInfo   TableCounts `json:"game_info"`
	Batters    TableCounts `json:"batter_info"`
	Pitchers   TableCounts `json:"pitcher_info"`
}

type TableCounts struct {
	Inserted int64 `json:"inserted"`
	Skipped  int64 `json:"skipped"`
}

// Add accumulates o into c
func (c *TableCounts) Add(o TableCounts) {
	c.Inserted += o.Inserted
	c.Skipped += o.Skipped
}

// Merge accumulates another day's counts into the report
func (r *DayReport) Merge(o DayReport) {
	r.Games += o.Games
	r.Results.Add(o.Results)
	r.Scoreboard.Add(o.Scoreboard)
	r.GameInfo.Add(o.GameInfo)
	r.Batters.Add(o.Batters)
	r.Pitchers.Add(o.Pitchers)
}

type SeasonInfo struct {
	Year  int       `json:"year"`
	Days  int       `json:"days"`
	Total DayReport `json:"total"`
}

type TeamResult struct {
	Team   string `json:"team"`
	Result string `json:"result"`
	Run    *int64 `json:"run"`
}

type MatchSummary struct {
	MatchCode string     `json:"matchcode"`
	MatchDate string     `json:"matchdate"`
	MatchDay  string     `json:"matchday,omitempty"`
	Home      string     `json:"home,omitempty"`
	Away      string     `json:"away,omitempty"`
	Place     string     `json:"place,omitempty"`
	Team1     TeamResult `json:"team1"`
	Team2     TeamResult `json:"team2"`
}

type MatchListResponse struct {
	Status string         `json:"status"`
	Data   []MatchSummary `json:"data"`
	Count  int            `json:"count"`
	Date   string         `json:"date"`
}

// MatchPage is one page of match summaries, newest first
type MatchPage struct {
	Status     string         `json:"status"`
	Data       []MatchSummary `json:"data"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"total_pages"`
	Team       string         `json:"team,omitempty"`
	StartDate  string         `json:"start_date,omitempty"`
	EndDate    string         `json:"end_date,omitempty"`
}

type InningScore struct {
	Team   string  `json:"team"`
	Result string  `json:"result"`
	Scores []int64 `json:"scores"`
	Run    *int64  `json:"run"`
	Hit    *int64  `json:"hit"`
	Err    *int64  `json:"err"`
	Balls  *int64  `json:"balls"`
}

type ScoreboardDetail struct {
	MatchCode string        `json:"matchcode"`
	MatchDate string        `json:"matchdate"`
	Home      string        `json:"home"`
	Away      string        `json:"away"`
	Place     string        `json:"place"`
	HomeScore *int64        `json:"home_score"`
	AwayScore *int64        `json:"away_score"`
	GameTime  string        `json:"gametime,omitempty"`
	Audience  *int64        `json:"audience,omitempty"`
	Innings   []InningScore `json:"innings"`
}

type DataResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

const (
	StatusSuccess  = "success"
	StatusAccepted = "accepted"
	StatusError    = "error"
)
