package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// passingThreshold is the fraction of correct answers that maps to the
// passing grade of 4.0 on the 1.0 to 7.0 scale.
const passingThreshold = 0.6

// ScaleGrade converts a correct/total ratio to the 1.0 to 7.0 grading
// scale, rounded to one decimal. A zero total yields the minimum grade.
func ScaleGrade(correct, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	pct := float64(correct) / float64(total)
	var grade float64
	if pct >= passingThreshold {
		grade = 4.0 + 3.0*(pct-passingThreshold)/(1.0-passingThreshold)
	} else {
		grade = 1.0 + 3.0*pct/passingThreshold
	}
	return math.Round(grade*10) / 10
}

// GradesRecalculator recomputes grades for closed applications.
type GradesRecalculator struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewGradesRecalculator constructs the task handler.
func NewGradesRecalculator(pool *pgxpool.Pool, logger *slog.Logger) *GradesRecalculator {
	return &GradesRecalculator{pool: pool, logger: logger}
}

// HandleGradesRecalc tallies each student's correct answers for the
// application and upserts a grade row per student. Reruns are safe because
// the upsert overwrites previous results.
func (g *GradesRecalculator) HandleGradesRecalc(ctx context.Context, t *asynq.Task) error {
	var payload GradesRecalcPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("jobs: unmarshal %s: %w: %w", TaskGradesRecalc, err, asynq.SkipRetry)
	}

	var total int
	err := g.pool.QueryRow(ctx, `
		SELECT COUNT(q.id)
		FROM questions q
		JOIN applications a ON a.evaluation_id = q.evaluation_id
		WHERE a.id = $1`, payload.ApplicationID).Scan(&total)
	if err != nil {
		return fmt.Errorf("jobs: count questions: %w", err)
	}

	rows, err := g.pool.Query(ctx, `
		SELECT ans.student_id, COUNT(*) FILTER (WHERE o.correct)
		FROM answers ans
		JOIN options o ON o.id = ans.option_id
		WHERE ans.application_id = $1
		GROUP BY ans.student_id`, payload.ApplicationID)
	if err != nil {
		return fmt.Errorf("jobs: tally answers: %w", err)
	}
	defer rows.Close()

	type tally struct {
		studentID int64
		correct   int
	}
	var tallies []tally
	for rows.Next() {
		var tl tally
		if err := rows.Scan(&tl.studentID, &tl.correct); err != nil {
			return fmt.Errorf("jobs: scan tally: %w", err)
		}
		tallies = append(tallies, tl)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("jobs: tally answers: %w", err)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for _, tl := range tallies {
		group.Go(func() error {
			score := ScaleGrade(tl.correct, total)
			_, err := g.pool.Exec(gctx, `
				INSERT INTO grades (application_id, student_id, correct, total, score)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (application_id, student_id)
				DO UPDATE SET correct = EXCLUDED.correct, total = EXCLUDED.total,
					score = EXCLUDED.score, updated_at = NOW()`,
				payload.ApplicationID, tl.studentID, tl.correct, total, score)
			if err != nil {
				return fmt.Errorf("jobs: upsert grade: %w", err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	g.logger.Info("grades recalculated",
		slog.Int64("application_id", payload.ApplicationID),
		slog.Int("students", len(tallies)),
		slog.Int("questions", total))
	return nil
}
