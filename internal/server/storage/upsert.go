package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// maxParams keeps every statement under SQLite's default host parameter limit
const maxParams = 900

// insertIgnore writes rows in one transaction, skipping any whose conflict key already exists.
// Returns the number of rows actually inserted.
func (s *Store) insertIgnore(ctx context.Context, table string, cols, conflict []string, rows [][]any) (int64, error) {
	rows = s.keyed(table, cols, conflict, rows)
	if len(rows) == 0 {
		return 0, nil
	}

	perChunk := maxParams / len(cols)
	if perChunk < 1 {
		perChunk = 1
	}

	var inserted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(rows); start += perChunk {
			end := min(start+perChunk, len(rows))
			chunk := rows[start:end]

			query := s.dialect.rebind(buildInsert(table, cols, conflict, len(chunk)))
			args := make([]any, 0, len(chunk)*len(cols))
			for _, row := range chunk {
				args = append(args, row...)
			}

			res, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("failed to insert into %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows for %s: %w", table, err)
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Debug("upsert",
		zap.String("table", table),
		zap.Int64("inserted", inserted),
		zap.Int64("skipped", int64(len(rows))-inserted),
	)
	return inserted, nil
}

// keyed drops rows with a NULL conflict column; NULLs never collide, so such rows
// would bypass ON CONFLICT and duplicate on every run
func (s *Store) keyed(table string, cols, conflict []string, rows [][]any) [][]any {
	keyIdx := make([]int, 0, len(conflict))
	for _, k := range conflict {
		for i, c := range cols {
			if c == k {
				keyIdx = append(keyIdx, i)
				break
			}
		}
	}

	out := rows[:0:0]
	for _, row := range rows {
		missing := false
		for _, i := range keyIdx {
			if isNull(row[i]) {
				missing = true
				break
			}
		}
		if missing {
			continue
		}
		out = append(out, row)
	}

	if dropped := len(rows) - len(out); dropped > 0 {
		s.log.Warn("rows without natural key skipped",
			zap.String("table", table),
			zap.Strings("key", conflict),
			zap.Int("dropped", dropped),
		)
	}
	return out
}

func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *string:
		return x == nil
	case *int64:
		return x == nil
	case *float64:
		return x == nil
	case string:
		return x == ""
	}
	return false
}

func buildInsert(table string, cols, conflict []string, n int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", table, strings.Join(cols, ", "))
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(conflict, ", "))
	return b.String()
}

// InsertMatchResult marks matches as ingested
func (s *Store) InsertMatchResult(ctx context.Context, matchCodes []string) (int64, error) {
	rows := make([][]any, 0, len(matchCodes))
	for _, code := range matchCodes {
		rows = append(rows, []any{code})
	}
	return s.insertIgnore(ctx, "match_result", []string{"matchcode"}, []string{"matchcode"}, rows)
}

// InsertScoreboard writes scoreboard lines keyed by (matchcode, team)
func (s *Store) InsertScoreboard(ctx context.Context, records []ScoreboardRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		rows = append(rows, records[i].values())
	}
	return s.insertIgnore(ctx, "scoreboard", scoreboardColumns, []string{"matchcode", "team"}, rows)
}

// InsertGameInfo writes game info rows keyed by matchcode
func (s *Store) InsertGameInfo(ctx context.Context, records []GameInfoRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		rows = append(rows, records[i].values())
	}
	return s.insertIgnore(ctx, "game_info", gameInfoColumns, []string{"matchcode"}, rows)
}

// InsertBatters writes batter lines keyed by (matchcode, idx)
func (s *Store) InsertBatters(ctx context.Context, records []BatterRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		rows = append(rows, records[i].values())
	}
	return s.insertIgnore(ctx, "batter_info", batterColumns, []string{"matchcode", "idx"}, rows)
}

// InsertPitchers writes pitcher lines keyed by (matchcode, idx)
func (s *Store) InsertPitchers(ctx context.Context, records []PitcherRecord) (int64, error) {
	rows := make([][]any, 0, len(records))
	for i := range records {
		rows = append(rows, records[i].values())
	}
	return s.insertIgnore(ctx, "pitcher_info", pitcherColumns, []string{"matchcode", "idx"}, rows)
}
