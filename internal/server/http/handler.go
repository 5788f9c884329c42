package http

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"kbodata/internal/server/core"
	"kbodata/internal/server/processor"
	"kbodata/internal/server/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

const (
	// APIPrefix is the mount point of every route
	APIPrefix = "/api/kbodata"

	rateLimitRate   = 10 // req/sec
	ingestRateLimit = 5  // req/min
)

// Options configures the fiber app
type Options struct {
	DevMode      bool
	AdminKeyHash string
	Logger       *zap.Logger
}

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
	log  *zap.Logger
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service, log *zap.Logger) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc, log: log}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, opts Options) *fiber.App {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("http")

	h := NewHTTPHandler(proc, svc, log)

	// No WriteTimeout: inline season backfills run for minutes
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + AdminKeyHeader,
	}))

	api := app.Group(APIPrefix)

	// Health check (no rate limit)
	api.Get("/health", h.Health)

	maxReq := rateLimitRate
	if opts.DevMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:          maxReq,
		Expiration:   1 * time.Second,
		KeyGenerator: clientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Status:  core.StatusError,
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	// Content-Type validation for POST requests
	api.Use(contentTypeValidator)

	// Ingestion routes: admin guard plus a per-minute limit
	ingestLimit := limiter.New(limiter.Config{
		Max:          ingestRateLimit,
		Expiration:   1 * time.Minute,
		KeyGenerator: clientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Status:  core.StatusError,
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d ingestion runs per minute allowed", ingestRateLimit),
			})
		},
	})
	// Query validation runs behind the guard so rejected callers learn nothing about parameters
	guard := AdminRequired(opts.AdminKeyHash, log)
	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		api.Add(method, "/schedule", guard, ingestLimit, validationMiddleware, h.ReloadSchedule)
		api.Add(method, "/result", guard, ingestLimit, h.IngestResults)
		api.Add(method, "/save", guard, ingestLimit, validationMiddleware, h.BackfillSeason)
	}
	api.Get("/jobs/:runId", guard, h.JobStatus)

	// Query routes
	api.Get("/matches", h.RecentMatches)
	api.Get("/matches/team/:team", h.MatchesByTeam)
	api.Get("/matches/range", h.MatchesByRange)
	api.Get("/matches/date/:match_date", h.MatchesByDate)
	api.Get("/match/:matchcode", h.MatchDetail)
	api.Get("/match/:matchcode/scoreboard", h.MatchScoreboard)
	api.Get("/match/:matchcode/boxscore", h.BoxScore)

	return app
}

// clientIP keys rate limits by the first X-Forwarded-For hop when present
func clientIP(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	return c.IP()
}

// contentTypeValidator rejects POST bodies that are not JSON; ingestion reads only the query
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Status:  core.StatusError,
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Status: core.StatusError,
		Error:  "internal server error",
		Code:   core.ErrInternalError,
	}

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		// Map HTTP status to error codes
		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrRouteNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// Health check endpoint with storage and cache status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"time":    time.Now().Unix(),
		"storage": h.svc.GetStorageHealth(c.UserContext()),
		"cache":   h.svc.GetCacheHealth(c.UserContext()),
	})
}

// ReloadSchedule replaces the stored schedule of ?year
func (h *HTTPHandler) ReloadSchedule(c *fiber.Ctx) error {
	req, ok := validatedQuery[core.ScheduleRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewReloadScheduleCommand(req))
	return ingestionResult(c, resp)
}

// IngestResults ingests yesterday's finished matches
func (h *HTTPHandler) IngestResults(c *fiber.Ctx) error {
	resp := h.proc.Execute(c.UserContext(), processor.NewIngestResultsCommand())
	return ingestionResult(c, resp)
}

// BackfillSeason ingests every match day of ?year, defaulting to the configured season.
// With ?async=true the run is queued and polled through /jobs/{run_id}.
func (h *HTTPHandler) BackfillSeason(c *fiber.Ctx) error {
	req, ok := validatedQuery[core.SeasonRequest](c)
	if !ok {
		return validationBypass(c)
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewBackfillSeasonCommand(req))
	return ingestionResult(c, resp)
}

// JobStatus reports a queued backfill
func (h *HTTPHandler) JobStatus(c *fiber.Ctx) error {
	runID := c.Params("runId")

	if !isValidUUID(runID) {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "invalid run ID format",
			Code:    core.ErrInvalidRequest,
			Details: "run ID must be a valid UUID",
		})
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewJobStatusCommand(runID))
	return queryResult(c, resp)
}

// MatchesByDate lists the matches of a year, month or day
func (h *HTTPHandler) MatchesByDate(c *fiber.Ctx) error {
	req := core.MatchDateRequest{Date: c.Params("match_date")}
	if ok, err := validateParams(c, req); !ok {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewMatchesByDateCommand(req))
	return queryResult(c, resp)
}

// RecentMatches pages through stored matches, newest first
func (h *HTTPHandler) RecentMatches(c *fiber.Ctx) error {
	var req core.RecentMatchesRequest
	if ok, err := bindQuery(c, &req); !ok {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewRecentMatchesCommand(req))
	return queryResult(c, resp)
}

// MatchesByTeam pages through one team's matches; the team is a name or franchise code
func (h *HTTPHandler) MatchesByTeam(c *fiber.Ctx) error {
	var req core.TeamMatchesRequest
	if ok, err := bindQuery(c, &req); !ok {
		return err
	}

	team, err := url.PathUnescape(c.Params("team"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   "invalid path parameter",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	req.Team = team
	if ok, err := validateParams(c, req); !ok {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewMatchesByTeamCommand(req))
	return queryResult(c, resp)
}

// MatchesByRange pages through the matches between ?startDate and ?endDate
func (h *HTTPHandler) MatchesByRange(c *fiber.Ctx) error {
	var req core.DateRangeRequest
	if ok, err := bindQuery(c, &req); !ok {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewMatchesByRangeCommand(req))
	return queryResult(c, resp)
}

// MatchDetail returns the game info of one match
func (h *HTTPHandler) MatchDetail(c *fiber.Ctx) error {
	return h.matchQuery(c, processor.NewMatchDetailCommand)
}

// MatchScoreboard returns the inning-by-inning scoreboard of one match
func (h *HTTPHandler) MatchScoreboard(c *fiber.Ctx) error {
	return h.matchQuery(c, processor.NewMatchScoreboardCommand)
}

// BoxScore returns the batter and pitcher lines of one match
func (h *HTTPHandler) BoxScore(c *fiber.Ctx) error {
	return h.matchQuery(c, processor.NewBoxScoreCommand)
}

func (h *HTTPHandler) matchQuery(c *fiber.Ctx, newCmd func(string) processor.Command) error {
	req := core.MatchCodeRequest{MatchCode: c.Params("matchcode")}
	if ok, err := validateParams(c, req); !ok {
		return err
	}

	resp := h.proc.Execute(c.UserContext(), newCmd(req.MatchCode))
	return queryResult(c, resp)
}

// ingestionResult answers 200 for failures too, with {status, message, code}
func ingestionResult(c *fiber.Ctx, resp processor.ProcessorResponse) error {
	if !resp.Success {
		return c.JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Message: resp.Error.Message,
			Code:    resp.Error.Code,
			RunID:   resp.Error.RunID,
		})
	}

	if resp.Pending {
		return c.Status(fiber.StatusAccepted).JSON(resp.Data)
	}
	return c.JSON(resp.Data)
}

// queryResult maps failures to 404, 400 or 500
func queryResult(c *fiber.Ctx, resp processor.ProcessorResponse) error {
	if !resp.Success {
		statusCode := fiber.StatusInternalServerError
		switch resp.Error.Code {
		case core.ErrMatchNotFound, core.ErrJobNotFound:
			statusCode = fiber.StatusNotFound
		case core.ErrInvalidRequest:
			statusCode = fiber.StatusBadRequest
		}
		return c.Status(statusCode).JSON(core.ErrorResponse{
			Status:  core.StatusError,
			Error:   resp.Error.Error,
			Code:    resp.Error.Code,
			Details: resp.Error.Details,
		})
	}

	return c.JSON(resp.Data)
}

func validationBypass(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Status: core.StatusError,
		Error:  "validation bypass detected",
		Code:   core.ErrInternalError,
	})
}
