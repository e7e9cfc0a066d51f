package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNoSelection = errors.New("no palette selection saved")

// Selection is the palette choice the user last quantized with.
type Selection struct {
	PaletteName string   `json:"paletteName"`
	Series      []string `json:"series"`
	GridWidth   int      `json:"gridWidth"`
	UpdatedAt   string   `json:"updatedAt"`
}

type SelectionRepository struct {
	db *sql.DB
}

func NewSelectionRepository(database *sql.DB) *SelectionRepository {
	return &SelectionRepository{db: database}
}

func (r *SelectionRepository) Get(ctx context.Context) (Selection, error) {
	var selection Selection
	var seriesJSON string
	err := r.db.QueryRowContext(
		ctx,
		"SELECT palette_name, series_json, grid_width, updated_at FROM palette_selection WHERE id = 1",
	).Scan(&selection.PaletteName, &seriesJSON, &selection.GridWidth, &selection.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Selection{}, ErrNoSelection
		}
		return Selection{}, fmt.Errorf("get palette selection: %w", err)
	}

	selection.Series = make([]string, 0)
	if strings.TrimSpace(seriesJSON) != "" {
		if err := json.Unmarshal([]byte(seriesJSON), &selection.Series); err != nil {
			return Selection{}, fmt.Errorf("decode selected series: %w", err)
		}
	}

	return selection, nil
}

func (r *SelectionRepository) Save(ctx context.Context, selection Selection) (Selection, error) {
	name := strings.TrimSpace(selection.PaletteName)
	if name == "" {
		return Selection{}, errors.New("palette name is required")
	}
	if selection.GridWidth < 0 {
		return Selection{}, fmt.Errorf("grid width must not be negative, got %d", selection.GridWidth)
	}

	series := make([]string, 0, len(selection.Series))
	for _, value := range selection.Series {
		if trimmed := strings.ToUpper(strings.TrimSpace(value)); trimmed != "" {
			series = append(series, trimmed)
		}
	}
	seriesJSON, err := json.Marshal(series)
	if err != nil {
		return Selection{}, fmt.Errorf("encode selected series: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO palette_selection(id, palette_name, series_json, grid_width, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			palette_name = excluded.palette_name,
			series_json = excluded.series_json,
			grid_width = excluded.grid_width,
			updated_at = excluded.updated_at
	`,
		name,
		string(seriesJSON),
		selection.GridWidth,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return Selection{}, fmt.Errorf("save palette selection: %w", err)
	}

	return r.Get(ctx)
}

func (r *SelectionRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM palette_selection WHERE id = 1"); err != nil {
		return fmt.Errorf("clear palette selection: %w", err)
	}

	return nil
}
