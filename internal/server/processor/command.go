package processor

import (
	"kbodata/internal/server/core"

	"github.com/google/uuid"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdReloadSchedule CommandType = iota
	CmdIngestResults
	CmdBackfillSeason
	CmdMatchesByDate
	CmdMatchDetail
	CmdMatchScoreboard
	CmdBoxScore
	CmdJobStatus
	CmdRecentMatches
	CmdMatchesByTeam
	CmdMatchesByRange
)

func (t CommandType) String() string {
	switch t {
	case CmdReloadSchedule:
		return "reload_schedule"
	case CmdIngestResults:
		return "ingest_results"
	case CmdBackfillSeason:
		return "backfill_season"
	case CmdMatchesByDate:
		return "matches_by_date"
	case CmdMatchDetail:
		return "match_detail"
	case CmdMatchScoreboard:
		return "match_scoreboard"
	case CmdBoxScore:
		return "box_score"
	case CmdJobStatus:
		return "job_status"
	case CmdRecentMatches:
		return "recent_matches"
	case CmdMatchesByTeam:
		return "matches_by_team"
	case CmdMatchesByRange:
		return "matches_by_range"
	default:
		return "unknown"
	}
}

// Command is a unified structure for all processor operations
type Command struct {
	Type      CommandType
	RunID     string // Ingestion run id, or the job looked up by CmdJobStatus
	MatchCode string // For match-specific commands
	Args      any    // Command-specific arguments
}

// ProcessorResponse wraps the response with metadata
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Pending bool                `json:"pending,omitempty"` // For async operations
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

func NewReloadScheduleCommand(req core.ScheduleRequest) Command {
	return Command{
		Type:  CmdReloadSchedule,
		RunID: uuid.NewString(),
		Args:  req,
	}
}

func NewIngestResultsCommand() Command {
	return Command{
		Type:  CmdIngestResults,
		RunID: uuid.NewString(),
	}
}

func NewBackfillSeasonCommand(req core.SeasonRequest) Command {
	return Command{
		Type:  CmdBackfillSeason,
		RunID: uuid.NewString(),
		Args:  req,
	}
}

func NewMatchesByDateCommand(req core.MatchDateRequest) Command {
	return Command{
		Type: CmdMatchesByDate,
		Args: req,
	}
}

func NewMatchDetailCommand(matchCode string) Command {
	return Command{
		Type:      CmdMatchDetail,
		MatchCode: matchCode,
	}
}

func NewMatchScoreboardCommand(matchCode string) Command {
	return Command{
		Type:      CmdMatchScoreboard,
		MatchCode: matchCode,
	}
}

func NewBoxScoreCommand(matchCode string) Command {
	return Command{
		Type:      CmdBoxScore,
		MatchCode: matchCode,
	}
}

func NewJobStatusCommand(runID string) Command {
	return Command{
		Type:  CmdJobStatus,
		RunID: runID,
	}
}

func NewRecentMatchesCommand(req core.RecentMatchesRequest) Command {
	return Command{
		Type: CmdRecentMatches,
		Args: req,
	}
}

func NewMatchesByTeamCommand(req core.TeamMatchesRequest) Command {
	return Command{
		Type: CmdMatchesByTeam,
		Args: req,
	}
}

func NewMatchesByRangeCommand(req core.DateRangeRequest) Command {
	return Command{
		Type: CmdMatchesByRange,
		Args: req,
	}
}
