package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kbodata/internal/server/core"
	"kbodata/internal/server/service"

	"go.uber.org/zap"
)

const (
	savedAtLayout = "2006-01-02 15:04:05"

	jobWorkers = 1
)

// Processor handles command execution and maps service failures to API errors
type Processor struct {
	svc   *service.Service
	queue *JobQueue
	log   *zap.Logger
}

// New creates a processor with its own background job queue
func New(svc *service.Service, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		svc:   svc,
		queue: NewJobQueue(jobWorkers, defaultQueueSize, logger),
		log:   logger.Named("processor"),
	}
}

func (p *Processor) Execute(ctx context.Context, cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdReloadSchedule:
		return p.handleReloadSchedule(ctx, cmd)
	case CmdIngestResults:
		return p.handleIngestResults(ctx, cmd)
	case CmdBackfillSeason:
		return p.handleBackfillSeason(ctx, cmd)
	case CmdMatchesByDate:
		return p.handleMatchesByDate(ctx, cmd)
	case CmdMatchDetail:
		return p.handleMatchDetail(ctx, cmd)
	case CmdMatchScoreboard:
		return p.handleMatchScoreboard(ctx, cmd)
	case CmdBoxScore:
		return p.handleBoxScore(ctx, cmd)
	case CmdJobStatus:
		return p.handleJobStatus(cmd)
	case CmdRecentMatches:
		return p.handleRecentMatches(ctx, cmd)
	case CmdMatchesByTeam:
		return p.handleMatchesByTeam(ctx, cmd)
	case CmdMatchesByRange:
		return p.handleMatchesByRange(ctx, cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// handleReloadSchedule replaces one year's schedule
func (p *Processor) handleReloadSchedule(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ScheduleRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	p.log.Info("schedule reload requested", zap.String("run_id", cmd.RunID), zap.Int("year", args.Year))

	report, err := p.svc.ReloadSchedule(ctx, args.Year)
	if err != nil {
		return p.failure(cmd, err)
	}

	message := fmt.Sprintf("%d년도 kbo 경기일정 업로드 완료", report.Year)
	if report.Skipped {
		message = fmt.Sprintf("%d년도 kbo 경기일정 없음, 기존 일정 유지", report.Year)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.ScheduleResponse{
			Status:       core.StatusSuccess,
			Year:         report.Year,
			SavedRecords: report.Saved,
			Message:      message,
			SavedAt:      p.savedAt(),
			RunID:        cmd.RunID,
		},
	}
}

// handleIngestResults ingests yesterday's finished matches
func (p *Processor) handleIngestResults(ctx context.Context, cmd Command) ProcessorResponse {
	p.log.Info("result ingestion requested", zap.String("run_id", cmd.RunID))

	report, err := p.svc.IngestResults(ctx)
	if err != nil {
		return p.failure(cmd, err)
	}

	y, err := time.ParseInLocation(time.DateOnly, report.Date, p.svc.Now().Location())
	if err != nil {
		return p.failure(cmd, core.E(core.KindInternal, "processor.IngestResults", err))
	}

	return ProcessorResponse{
		Success: true,
		Data: core.IngestResponse{
			Status:  core.StatusSuccess,
			Message: fmt.Sprintf("%d년 %d월 %d일 kbo 경기결과 업로드 완료", y.Year(), int(y.Month()), y.Day()),
			SavedAt: p.savedAt(),
			RunID:   cmd.RunID,
			Report:  &report,
		},
	}
}

// handleBackfillSeason ingests a whole season, inline or on the job queue
func (p *Processor) handleBackfillSeason(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.SeasonRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	year := args.Year
	if year == 0 {
		year = p.svc.SeasonYear()
	}
	p.log.Info("season backfill requested", zap.String("run_id", cmd.RunID), zap.Int("year", year), zap.Bool("async", args.Async))

	if args.Async {
		job := Job{
			RunID: cmd.RunID,
			Kind:  cmd.Type.String(),
			Run: func(ctx context.Context) (any, error) {
				return p.svc.BackfillSeason(ctx, year)
			},
		}
		if err := p.queue.Submit(job); err != nil {
			kind := core.KindInternal
			if errors.Is(err, ErrQueueFull) {
				kind = core.KindBusy
			}
			return p.failure(cmd, core.E(kind, "processor.BackfillSeason", err))
		}

		return ProcessorResponse{
			Success: true,
			Pending: true,
			Data: core.IngestResponse{
				Status:  core.StatusAccepted,
				Message: fmt.Sprintf("%d년 kbo 경기데이터 저장 작업 접수", year),
				SavedAt: p.savedAt(),
				RunID:   cmd.RunID,
			},
		}
	}

	info, err := p.svc.BackfillSeason(ctx, year)
	if err != nil {
		return p.failure(cmd, err)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.IngestResponse{
			Status:  core.StatusSuccess,
			Message: fmt.Sprintf("%d년 kbo 경기데이터 저장 완료", year),
			SavedAt: p.savedAt(),
			RunID:   cmd.RunID,
			Season:  &info,
		},
	}
}

// handleMatchesByDate summarizes the matches of a date prefix
func (p *Processor) handleMatchesByDate(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MatchDateRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	matches, err := p.svc.MatchesByDate(ctx, args.Date)
	if err != nil {
		return p.failure(cmd, err)
	}
	if matches == nil {
		matches = []core.MatchSummary{}
	}

	return ProcessorResponse{
		Success: true,
		Data: core.MatchListResponse{
			Status: core.StatusSuccess,
			Data:   matches,
			Count:  len(matches),
			Date:   args.Date,
		},
	}
}

func (p *Processor) handleRecentMatches(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.RecentMatchesRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	page, err := p.svc.RecentMatches(ctx, args.Page, args.Size)
	return p.pageResponse(cmd, page, err)
}

func (p *Processor) handleMatchesByTeam(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.TeamMatchesRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	page, err := p.svc.MatchesByTeam(ctx, args.Team, args.Page, args.Size)
	return p.pageResponse(cmd, page, err)
}

func (p *Processor) handleMatchesByRange(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.DateRangeRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	page, err := p.svc.MatchesByRange(ctx, args.StartDate, args.EndDate, args.Page, args.Size)
	return p.pageResponse(cmd, page, err)
}

func (p *Processor) pageResponse(cmd Command, page core.MatchPage, err error) ProcessorResponse {
	if err != nil {
		return p.failure(cmd, err)
	}
	if page.Data == nil {
		page.Data = []core.MatchSummary{}
	}
	page.Status = core.StatusSuccess
	return ProcessorResponse{Success: true, Data: page}
}

func (p *Processor) handleMatchDetail(ctx context.Context, cmd Command) ProcessorResponse {
	info, err := p.svc.MatchDetail(ctx, cmd.MatchCode)
	if err != nil {
		return p.failure(cmd, err)
	}
	return p.dataResponse(info)
}

func (p *Processor) handleMatchScoreboard(ctx context.Context, cmd Command) ProcessorResponse {
	detail, err := p.svc.MatchScoreboard(ctx, cmd.MatchCode)
	if err != nil {
		return p.failure(cmd, err)
	}
	return p.dataResponse(detail)
}

func (p *Processor) handleBoxScore(ctx context.Context, cmd Command) ProcessorResponse {
	box, err := p.svc.BoxScore(ctx, cmd.MatchCode)
	if err != nil {
		return p.failure(cmd, err)
	}
	return p.dataResponse(box)
}

// handleJobStatus reports the state of a background job
func (p *Processor) handleJobStatus(cmd Command) ProcessorResponse {
	st, ok := p.queue.Status(cmd.RunID)
	if !ok {
		return ProcessorResponse{
			Success: false,
			Error: &core.ErrorResponse{
				Status:  core.StatusError,
				Error:   "job not found",
				Code:    core.ErrJobNotFound,
				Details: fmt.Sprintf("no job with run id %s", cmd.RunID),
			},
		}
	}
	return p.dataResponse(st)
}

func (p *Processor) dataResponse(data any) ProcessorResponse {
	return ProcessorResponse{
		Success: true,
		Data: core.DataResponse{
			Status: core.StatusSuccess,
			Data:   data,
		},
	}
}

// failure converts a classified service error into an error response
func (p *Processor) failure(cmd Command, err error) ProcessorResponse {
	kind := core.KindOf(err)

	fields := []zap.Field{zap.String("command", cmd.Type.String()), zap.String("kind", kind.String()), zap.Error(err)}
	if cmd.RunID != "" {
		fields = append(fields, zap.String("run_id", cmd.RunID))
	}
	if cmd.MatchCode != "" {
		fields = append(fields, zap.String("matchcode", cmd.MatchCode))
	}
	switch kind {
	case core.KindNotFound, core.KindInvalid, core.KindBusy:
		p.log.Warn("command rejected", fields...)
	default:
		p.log.Error("command failed", fields...)
	}

	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Status:  core.StatusError,
			Error:   summary(kind),
			Message: err.Error(),
			Code:    kind.Code(),
			Details: err.Error(),
			RunID:   cmd.RunID,
		},
	}
}

func summary(kind core.Kind) string {
	switch kind {
	case core.KindNotFound:
		return "match not found"
	case core.KindScrape:
		return "scrape failed"
	case core.KindStorage:
		return "storage failure"
	case core.KindInvalid:
		return "invalid request"
	case core.KindBusy:
		return "ingestion already running"
	default:
		return "internal server error"
	}
}

func (p *Processor) savedAt() string {
	return p.svc.Now().Format(savedAtLayout)
}

func (p *Processor) errorResponse(message string, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Status: core.StatusError,
			Error:  message,
			Code:   code,
		},
	}
}

// Close stops the job queue, cancelling any running backfill
func (p *Processor) Close(timeout time.Duration) error {
	return p.queue.Shutdown(timeout)
}
