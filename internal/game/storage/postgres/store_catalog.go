package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/perttula/whispden/internal/game/storage"
)

// PutTheme inserts or updates one theme row.
func (s *Store) PutTheme(ctx context.Context, record storage.ThemeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	themeID := strings.TrimSpace(record.ID)
	name := strings.TrimSpace(record.Name)
	if themeID == "" {
		return fmt.Errorf("theme id is required")
	}
	if name == "" {
		return fmt.Errorf("theme name is required")
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO themes (id, name, core, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   core = excluded.core`,
		themeID,
		name,
		record.Core,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("put theme: %w", err)
	}
	return nil
}

// GetTheme returns one theme by ID.
func (s *Store) GetTheme(ctx context.Context, themeID string) (storage.ThemeRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ThemeRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ThemeRecord{}, fmt.Errorf("storage is not configured")
	}
	themeID = strings.TrimSpace(themeID)
	if themeID == "" {
		return storage.ThemeRecord{}, fmt.Errorf("theme id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, core, created_at FROM themes WHERE id = $1`,
		themeID,
	)
	var (
		record    storage.ThemeRecord
		createdAt int64
	)
	if err := row.Scan(&record.ID, &record.Name, &record.Core, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ThemeRecord{}, storage.ErrNotFound
		}
		return storage.ThemeRecord{}, fmt.Errorf("get theme: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// ListThemes returns all themes ordered by name.
func (s *Store) ListThemes(ctx context.Context) ([]storage.ThemeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, core, created_at FROM themes ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	var records []storage.ThemeRecord
	for rows.Next() {
		var (
			record    storage.ThemeRecord
			createdAt int64
		)
		if err := rows.Scan(&record.ID, &record.Name, &record.Core, &createdAt); err != nil {
			return nil, fmt.Errorf("list themes: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return records, nil
}

// PutElement inserts or updates one element row.
func (s *Store) PutElement(ctx context.Context, record storage.ElementRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	elementID := strings.TrimSpace(record.ID)
	themeID := strings.TrimSpace(record.ThemeID)
	name := strings.TrimSpace(record.Name)
	if elementID == "" {
		return fmt.Errorf("element id is required")
	}
	if themeID == "" {
		return fmt.Errorf("theme id is required")
	}
	if name == "" {
		return fmt.Errorf("element name is required")
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO elements (id, theme_id, name, icon_ref, whisp_eligible, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT(id) DO UPDATE SET
		   theme_id = excluded.theme_id,
		   name = excluded.name,
		   icon_ref = excluded.icon_ref,
		   whisp_eligible = excluded.whisp_eligible`,
		elementID,
		themeID,
		name,
		record.IconRef,
		record.WhispEligible,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("put element: %w", err)
	}
	return nil
}

// GetElement returns one element by ID.
func (s *Store) GetElement(ctx context.Context, elementID string) (storage.ElementRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ElementRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ElementRecord{}, fmt.Errorf("storage is not configured")
	}
	elementID = strings.TrimSpace(elementID)
	if elementID == "" {
		return storage.ElementRecord{}, fmt.Errorf("element id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, theme_id, name, icon_ref, whisp_eligible, created_at
		   FROM elements
		  WHERE id = $1`,
		elementID,
	)
	record, err := scanElementRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ElementRecord{}, storage.ErrNotFound
		}
		return storage.ElementRecord{}, fmt.Errorf("get element: %w", err)
	}
	return record, nil
}

// ListElementsByTheme returns all elements of a theme ordered by name.
func (s *Store) ListElementsByTheme(ctx context.Context, themeID string) ([]storage.ElementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	themeID = strings.TrimSpace(themeID)
	if themeID == "" {
		return nil, fmt.Errorf("theme id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, theme_id, name, icon_ref, whisp_eligible, created_at
		   FROM elements
		  WHERE theme_id = $1
		  ORDER BY name ASC`,
		themeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list elements: %w", err)
	}
	defer rows.Close()
	return collectElements(rows)
}

// ListCoreElements returns elements belonging to core themes, excluding one
// theme. The exclusion keeps icon backfill from repeating the selected
// theme's own elements.
func (s *Store) ListCoreElements(ctx context.Context, excludeThemeID string) ([]storage.ElementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT e.id, e.theme_id, e.name, e.icon_ref, e.whisp_eligible, e.created_at
		   FROM elements e
		   JOIN themes t ON t.id = e.theme_id
		  WHERE t.core = TRUE AND e.theme_id != $1
		  ORDER BY e.name ASC`,
		strings.TrimSpace(excludeThemeID),
	)
	if err != nil {
		return nil, fmt.Errorf("list core elements: %w", err)
	}
	defer rows.Close()
	return collectElements(rows)
}

// CountElementsByTheme returns the element count of a theme.
func (s *Store) CountElementsByTheme(ctx context.Context, themeID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	themeID = strings.TrimSpace(themeID)
	if themeID == "" {
		return 0, fmt.Errorf("theme id is required")
	}

	var count int
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM elements WHERE theme_id = $1`,
		themeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count elements: %w", err)
	}
	return count, nil
}

func collectElements(rows *sql.Rows) ([]storage.ElementRecord, error) {
	var records []storage.ElementRecord
	for rows.Next() {
		record, err := scanElementRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elements: %w", err)
	}
	return records, nil
}

func scanElementRow(scan func(dest ...any) error) (storage.ElementRecord, error) {
	var (
		record    storage.ElementRecord
		createdAt int64
	)
	if err := scan(
		&record.ID,
		&record.ThemeID,
		&record.Name,
		&record.IconRef,
		&record.WhispEligible,
		&createdAt,
	); err != nil {
		return storage.ElementRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}
