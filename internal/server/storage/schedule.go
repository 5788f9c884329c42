package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ReplaceSchedule swaps a year's schedule in one transaction: delete the year, compact
// the remaining ids, reset the sequence, insert rows. Returns the inserted count.
func (s *Store) ReplaceSchedule(ctx context.Context, year int, rows []ScheduleRecord) (int64, error) {
	var inserted int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(`DELETE FROM match_schedule WHERE year = ?`), year); err != nil {
			return fmt.Errorf("failed to delete schedule for %d: %w", year, err)
		}

		next, err := s.compactScheduleIDs(ctx, tx)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.resetSequence), next); err != nil {
			return fmt.Errorf("failed to reset schedule sequence: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		perChunk := maxParams / len(scheduleColumns)
		for start := 0; start < len(rows); start += perChunk {
			chunk := rows[start:min(start+perChunk, len(rows))]

			row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(scheduleColumns)), ", ") + ")"
			placeholders := make([]string, len(chunk))
			args := make([]any, 0, len(chunk)*len(scheduleColumns))
			for i, r := range chunk {
				placeholders[i] = row
				args = append(args, r.values()...)
			}

			query := fmt.Sprintf("INSERT INTO match_schedule (%s) VALUES %s",
				strings.Join(scheduleColumns, ", "), strings.Join(placeholders, ", "))
			res, err := tx.ExecContext(ctx, s.dialect.rebind(query), args...)
			if err != nil {
				return fmt.Errorf("failed to insert schedule: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows: %w", err)
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// compactScheduleIDs renumbers the remaining rows 1..n in id order and returns n+1
func (s *Store) compactScheduleIDs(ctx context.Context, tx *sql.Tx) (int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM match_schedule ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("failed to list schedule ids: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan schedule id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	// Ascending order means the target id is always free
	update := s.dialect.rebind(`UPDATE match_schedule SET id = ? WHERE id = ?`)
	for i, id := range ids {
		want := int64(i + 1)
		if id == want {
			continue
		}
		if _, err := tx.ExecContext(ctx, update, want, id); err != nil {
			return 0, fmt.Errorf("failed to renumber schedule id %d: %w", id, err)
		}
	}

	return int64(len(ids)) + 1, nil
}

// ScheduleByYear lists a year's schedule in id order
func (s *Store) ScheduleByYear(ctx context.Context, year int) ([]ScheduleRecord, error) {
	return s.querySchedule(ctx, `WHERE year = ? ORDER BY id`, year)
}

// ScheduleByDate lists scheduled matches whose date starts with prefix
func (s *Store) ScheduleByDate(ctx context.Context, prefix string) ([]ScheduleRecord, error) {
	return s.querySchedule(ctx, `WHERE match_date LIKE ? ORDER BY match_date, id`, prefix+"%")
}

func (s *Store) querySchedule(ctx context.Context, where string, args ...any) ([]ScheduleRecord, error) {
	query := `SELECT id, match_status, match_date, home, away, dbheader, gameid, year FROM match_schedule ` + where

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var out []ScheduleRecord
	for rows.Next() {
		var r ScheduleRecord
		var status, home, away, dbheader, gameID sql.NullString
		if err := rows.Scan(&r.ID, &status, &r.MatchDate, &home, &away, &dbheader, &gameID, &r.Year); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		r.MatchStatus = status.String
		r.Home = home.String
		r.Away = away.String
		r.DBHeader = dbheader.String
		r.GameID = gameID.String
		out = append(out, r)
	}
	return out, rows.Err()
}
