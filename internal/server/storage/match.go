package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"kbodata/internal/server/core"
)

// Tables lists every table in display order
var Tables = []string{"match_schedule", "match_result", "scoreboard", "game_info", "batter_info", "pitcher_info"}

// ScoreboardByDate returns the most recent scoreboard row per (matchcode, team)
// whose matchdate starts with prefix
func (s *Store) ScoreboardByDate(ctx context.Context, prefix string) ([]ScoreboardRecord, error) {
	query := fmt.Sprintf(`SELECT id, %s FROM scoreboard
		WHERE id IN (
			SELECT MAX(id) FROM scoreboard WHERE matchdate LIKE ? GROUP BY matchcode, team
		)
		ORDER BY matchcode, idx, id`, strings.Join(scoreboardColumns, ", "))

	return s.queryScoreboard(ctx, query, prefix+"%")
}

// ScoreboardByMatch returns the scoreboard rows of one match in idx order
func (s *Store) ScoreboardByMatch(ctx context.Context, matchCode string) ([]ScoreboardRecord, error) {
	query := fmt.Sprintf(`SELECT id, %s FROM scoreboard WHERE matchcode = ? ORDER BY idx, id`,
		strings.Join(scoreboardColumns, ", "))

	return s.queryScoreboard(ctx, query, matchCode)
}

// MatchFilter narrows a paged match listing; zero values leave a field unfiltered
type MatchFilter struct {
	// Teams matches either side of a game against any of the names
	Teams []string
	// From and To are inclusive YYYY-MM-DD bounds
	From   string
	To     string
	Limit  int
	Offset int
}

func (f MatchFilter) where() (string, []any) {
	clauses := []string{"matchdate IS NOT NULL"}
	var args []any

	if len(f.Teams) > 0 {
		clauses = append(clauses, "team IN ("+strings.TrimSuffix(strings.Repeat("?, ", len(f.Teams)), ", ")+")")
		for _, t := range f.Teams {
			args = append(args, t)
		}
	}
	if f.From != "" {
		clauses = append(clauses, "matchdate >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "matchdate <= ?")
		args = append(args, f.To)
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// MatchCodes returns one page of matchcodes ordered by date, newest first,
// with the number of matches the filter selects
func (s *Store) MatchCodes(ctx context.Context, f MatchFilter) ([]string, int64, error) {
	where, args := f.where()

	var total int64
	countQuery := s.dialect.rebind(`SELECT COUNT(DISTINCT matchcode) FROM scoreboard ` + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}
	if total == 0 || f.Limit <= 0 {
		return nil, total, nil
	}

	pageQuery := s.dialect.rebind(`SELECT matchcode, MAX(matchdate) AS day FROM scoreboard ` + where +
		` GROUP BY matchcode ORDER BY day DESC, matchcode DESC LIMIT ? OFFSET ?`)
	rows, err := s.db.QueryContext(ctx, pageQuery, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to page matches: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		var day sql.NullString
		if err := rows.Scan(&code, &day); err != nil {
			return nil, 0, fmt.Errorf("failed to scan match: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, total, rows.Err()
}

// ScoreboardByMatches returns the scoreboard rows of several matches
func (s *Store) ScoreboardByMatches(ctx context.Context, codes []string) ([]ScoreboardRecord, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	args := make([]any, len(codes))
	for i, c := range codes {
		args[i] = c
	}
	query := fmt.Sprintf(`SELECT id, %s FROM scoreboard WHERE matchcode IN (%s) ORDER BY matchcode, idx, id`,
		strings.Join(scoreboardColumns, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(codes)), ", "))

	return s.queryScoreboard(ctx, query, args...)
}

func (s *Store) queryScoreboard(ctx context.Context, query string, args ...any) ([]ScoreboardRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoreboard: %w", err)
	}
	defer rows.Close()

	var out []ScoreboardRecord
	for rows.Next() {
		var r ScoreboardRecord
		if err := rows.Scan(append([]any{&r.ID}, r.targets()...)...); err != nil {
			return nil, fmt.Errorf("failed to scan scoreboard: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GameInfo returns the game info row of one match, or core.ErrNotFound
func (s *Store) GameInfo(ctx context.Context, matchCode string) (*GameInfoRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM game_info WHERE matchcode = ?`, strings.Join(gameInfoColumns, ", "))

	var r GameInfoRecord
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(query), matchCode).Scan(r.targets()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game info: %w", err)
	}
	return &r, nil
}

// BattersByMatch returns the batter lines of one match in idx order
func (s *Store) BattersByMatch(ctx context.Context, matchCode string) ([]BatterRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM batter_info WHERE matchcode = ? ORDER BY idx`, strings.Join(batterColumns, ", "))

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), matchCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query batters: %w", err)
	}
	defer rows.Close()

	var out []BatterRecord
	for rows.Next() {
		var r BatterRecord
		if err := rows.Scan(r.targets()...); err != nil {
			return nil, fmt.Errorf("failed to scan batter: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PitchersByMatch returns the pitcher lines of one match in idx order
func (s *Store) PitchersByMatch(ctx context.Context, matchCode string) ([]PitcherRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM pitcher_info WHERE matchcode = ? ORDER BY idx`, strings.Join(pitcherColumns, ", "))

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), matchCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query pitchers: %w", err)
	}
	defer rows.Close()

	var out []PitcherRecord
	for rows.Next() {
		var r PitcherRecord
		if err := rows.Scan(r.targets()...); err != nil {
			return nil, fmt.Errorf("failed to scan pitcher: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the row count of every ingestion table
func (s *Store) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
