package indexdb

import (
	"context"
	"database/sql"
)

// RoundRow is one finished round as stored in the index.
type RoundRow struct {
	RoundID      string  `json:"round_id"`
	WorldID      string  `json:"world_id"`
	Seed         int64   `json:"seed"`
	Outcome      string  `json:"outcome"`
	Score        int     `json:"score"`
	Completed    int     `json:"completed"`
	Swaps        int     `json:"swaps"`
	Satisfaction int     `json:"satisfaction"`
	Patience     int     `json:"patience"`
	Elapsed      float64 `json:"elapsed"`
	StartTick    uint64  `json:"start_tick"`
	EndTick      uint64  `json:"end_tick"`
	RecordedAt   string  `json:"recorded_at"`
}

type SwapRow struct {
	RoundID      string `json:"round_id"`
	Tick         uint64 `json:"tick"`
	FromRecipeID int    `json:"from_recipe_id"`
	ToRecipeID   int    `json:"to_recipe_id"`
	Kept         int    `json:"kept"`
}

// RecipeStat aggregates completions of one recipe across all rounds.
type RecipeStat struct {
	RecipeID   int     `json:"recipe_id"`
	RecipeName string  `json:"recipe_name"`
	Count      int     `json:"count"`
	AvgPoints  float64 `json:"avg_points"`
	AvgBonus   float64 `json:"avg_bonus"`
}

const roundCols = `round_id,world_id,seed,outcome,score,completed,swaps,satisfaction,patience,elapsed,start_tick,end_tick,recorded_at`

// Leaderboard returns the best rounds by score; ties go to the earlier round.
func (s *SQLiteIndex) Leaderboard(ctx context.Context, limit int) ([]RoundRow, error) {
	return s.queryRounds(ctx, `SELECT `+roundCols+` FROM rounds ORDER BY score DESC, end_tick ASC LIMIT ?`, clampLimit(limit))
}

func (s *SQLiteIndex) RecentRounds(ctx context.Context, limit int) ([]RoundRow, error) {
	return s.queryRounds(ctx, `SELECT `+roundCols+` FROM rounds ORDER BY recorded_at DESC, end_tick DESC LIMIT ?`, clampLimit(limit))
}

func (s *SQLiteIndex) queryRounds(ctx context.Context, q string, args ...any) ([]RoundRow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RoundRow
	for rows.Next() {
		var r RoundRow
		var start, end int64
		if err := rows.Scan(&r.RoundID, &r.WorldID, &r.Seed, &r.Outcome, &r.Score, &r.Completed, &r.Swaps,
			&r.Satisfaction, &r.Patience, &r.Elapsed, &start, &end, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.StartTick, r.EndTick = uint64(start), uint64(end)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Swaps lists recipe swaps, optionally for one round ("" for all).
func (s *SQLiteIndex) Swaps(ctx context.Context, roundID string, limit int) ([]SwapRow, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if roundID == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT round_id,tick,from_recipe_id,to_recipe_id,kept FROM swaps ORDER BY tick DESC LIMIT ?`, clampLimit(limit))
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT round_id,tick,from_recipe_id,to_recipe_id,kept FROM swaps WHERE round_id=? ORDER BY tick ASC LIMIT ?`, roundID, clampLimit(limit))
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SwapRow
	for rows.Next() {
		var r SwapRow
		var tick int64
		if err := rows.Scan(&r.RoundID, &tick, &r.FromRecipeID, &r.ToRecipeID, &r.Kept); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) RecipeStats(ctx context.Context) ([]RecipeStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT recipe_id, MAX(recipe_name), COUNT(*), AVG(points), AVG(bonus)
		FROM completions GROUP BY recipe_id ORDER BY COUNT(*) DESC, recipe_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecipeStat
	for rows.Next() {
		var r RecipeStat
		if err := rows.Scan(&r.RecipeID, &r.RecipeName, &r.Count, &r.AvgPoints, &r.AvgBonus); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func clampLimit(n int) int {
	if n <= 0 {
		return 20
	}
	return min(n, 500)
}
