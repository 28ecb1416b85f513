// Package exercise implements the error-question notebook: AI analysis of
// recognized formulas and their persistence in the relational store.
package exercise

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lbj0223/AI/internal/models"
)

// DefaultRecentLimit bounds the history shown in the sidebar.
const DefaultRecentLimit = 5

// Store persists error-question records.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore wraps db opened with the given driver name.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: strings.ToLower(driver)}
}

func (s *Store) isPostgres() bool {
	return s.driver == "postgres" || s.driver == "pgx"
}

// rebind rewrites ? placeholders to $n for the postgres driver.
func (s *Store) rebind(query string) string {
	if !s.isPostgres() {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Insert stores one analyzed formula and returns the persisted record.
func (s *Store) Insert(ctx context.Context, latex string, set *models.ExerciseSet) (*models.ErrorQuestion, error) {
	if strings.TrimSpace(latex) == "" {
		return nil, errors.New("ocr latex is required")
	}
	if set == nil {
		return nil, errors.New("exercise set is required")
	}

	analysis, err := json.Marshal(set.Card)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	variants, err := json.Marshal(set.Exercises)
	if err != nil {
		return nil, fmt.Errorf("encode variants: %w", err)
	}

	now := time.Now().UTC()
	record := &models.ErrorQuestion{
		OCRLatex:  latex,
		Analysis:  analysis,
		Variants:  variants,
		CreatedAt: now,
	}

	if s.isPostgres() {
		err = s.db.QueryRowContext(ctx,
			s.rebind(`INSERT INTO error_questions (ocr_latex, analysis, variants, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
			latex, analysis, variants, now,
		).Scan(&record.ID)
		if err != nil {
			return nil, fmt.Errorf("insert error question: %w", err)
		}
		return record, nil
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO error_questions (ocr_latex, analysis, variants, created_at) VALUES (?, ?, ?, ?)`,
		latex, string(analysis), string(variants), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert error question: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("error question id: %w", err)
	}
	record.ID = id
	return record, nil
}

// Recent returns the newest records, creation time descending.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.ErrorQuestion, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, ocr_latex, analysis, variants, created_at FROM error_questions ORDER BY created_at DESC LIMIT ?`),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list error questions: %w", err)
	}
	defer rows.Close()

	var records []models.ErrorQuestion
	for rows.Next() {
		var (
			rec      models.ErrorQuestion
			analysis []byte
			variants []byte
		)
		if err := rows.Scan(&rec.ID, &rec.OCRLatex, &analysis, &variants, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error question: %w", err)
		}
		rec.Analysis = json.RawMessage(analysis)
		rec.Variants = json.RawMessage(variants)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM error_questions`); err != nil {
		return fmt.Errorf("clear error questions: %w", err)
	}
	return nil
}
