package pattern

import (
	"beadgrid/internal/palette"
	"beadgrid/internal/quantize"
	"beadgrid/internal/task"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const EventStateChanged = "pattern:state"

type Emitter func(eventName string, payload any)

type ChangeListener func(state State)

// Submitter dispatches a quantization request; *task.Runner satisfies it.
type Submitter interface {
	Submit(req task.Request) (task.Ticket, error)
}

// State is the pattern the UI shows. Matrix only ever changes when the most recently dispatched
// request succeeds; failures leave it in place and set LastError.
type State struct {
	RequestID   uint64                `json:"requestId"`
	PendingID   uint64                `json:"pendingId"`
	Processing  bool                  `json:"processing"`
	PaletteName string                `json:"paletteName"`
	GridWidth   int                   `json:"gridWidth"`
	GridHeight  int                   `json:"gridHeight"`
	Matrix      quantize.Matrix       `json:"matrix"`
	Counts      []quantize.ColorCount `json:"counts"`
	LastError   string                `json:"lastError,omitempty"`
	UpdatedAt   string                `json:"updatedAt"`
}

type Store struct {
	mu          sync.Mutex
	db          *sql.DB
	requestID   uint64
	pendingID   uint64
	processing  bool
	pending     map[uint64]palette.Palette
	paletteName string
	matrix      quantize.Matrix
	counts      []quantize.ColorCount
	lastError   string
	updatedAt   time.Time
	emit        Emitter
	onChange    ChangeListener
}

func NewStore(database *sql.DB) *Store {
	store := &Store{
		db:      database,
		pending: make(map[uint64]palette.Palette),
	}

	store.loadSnapshot()
	return store
}

func (s *Store) SetEmitter(emitter Emitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = emitter
}

func (s *Store) SetOnChange(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = listener
}

func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

// Dispatch submits req and marks it as the request whose response the pattern waits for. The lock is
// held across Submit so a fast response cannot be applied before its dispatch is recorded.
func (s *Store) Dispatch(submitter Submitter, req task.Request) (State, uint64, error) {
	s.mu.Lock()
	ticket, err := submitter.Submit(req)
	if err != nil {
		s.lastError = fmt.Sprintf("dispatch quantization: %v", err)
		s.touchLocked()
		state := s.snapshotLocked()
		s.mu.Unlock()

		s.afterMutation(state)
		return state, 0, fmt.Errorf("dispatch quantization: %w", err)
	}

	for id := range s.pending {
		if id < ticket.ID {
			delete(s.pending, id)
		}
	}
	s.pending[ticket.ID] = req.Palette
	s.pendingID = ticket.ID
	s.processing = true
	s.touchLocked()
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.emitState(state)
	return state, ticket.ID, nil
}

// Apply folds a response into the pattern. It returns false when the response answers a request that
// has since been superseded.
func (s *Store) Apply(response task.Response) (State, bool) {
	s.mu.Lock()
	pal, known := s.pending[response.ID]
	delete(s.pending, response.ID)
	if !known || response.ID != s.pendingID {
		state := s.snapshotLocked()
		s.mu.Unlock()
		return state, false
	}

	s.processing = false
	if response.Failed() {
		s.lastError = response.Error
	} else {
		s.requestID = response.ID
		s.paletteName = pal.Name
		s.matrix = response.Matrix.Clone()
		s.counts = quantize.CountColors(s.matrix, pal)
		s.lastError = ""
	}
	s.touchLocked()
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(state)
	return state, true
}

func (s *Store) Clear() State {
	s.mu.Lock()
	s.requestID = 0
	s.paletteName = ""
	s.matrix = nil
	s.counts = nil
	s.lastError = ""
	s.touchLocked()
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(state)
	return state
}

func (s *Store) afterMutation(state State) {
	s.persistSnapshot(state)
	s.emitState(state)
	s.notifyChange(state)
}

func (s *Store) emitState(state State) {
	s.mu.Lock()
	emitter := s.emit
	s.mu.Unlock()

	if emitter != nil {
		emitter(EventStateChanged, state)
	}
}

func (s *Store) notifyChange(state State) {
	s.mu.Lock()
	listener := s.onChange
	s.mu.Unlock()

	if listener != nil {
		listener(state)
	}
}

func (s *Store) snapshotLocked() State {
	counts := make([]quantize.ColorCount, len(s.counts))
	copy(counts, s.counts)

	state := State{
		RequestID:   s.requestID,
		PendingID:   s.pendingID,
		Processing:  s.processing,
		PaletteName: s.paletteName,
		GridWidth:   s.matrix.Width(),
		GridHeight:  s.matrix.Height(),
		Matrix:      s.matrix.Clone(),
		Counts:      counts,
		LastError:   s.lastError,
	}

	if !s.updatedAt.IsZero() {
		state.UpdatedAt = s.updatedAt.UTC().Format(time.RFC3339)
	}

	return state
}

func (s *Store) touchLocked() {
	s.updatedAt = time.Now().UTC()
}

func (s *Store) loadSnapshot() {
	if s.db == nil {
		return
	}

	var (
		requestID   sql.NullInt64
		paletteName sql.NullString
		matrixJSON  sql.NullString
		countsJSON  sql.NullString
		lastError   sql.NullString
		updatedAt   sql.NullString
	)

	err := s.db.QueryRowContext(
		context.Background(),
		"SELECT request_id, palette_name, matrix_json, counts_json, last_error, updated_at FROM pattern_state WHERE id = 1",
	).Scan(&requestID, &paletteName, &matrixJSON, &countsJSON, &lastError, &updatedAt)
	if err != nil {
		return
	}

	var matrix quantize.Matrix
	if matrixJSON.Valid && strings.TrimSpace(matrixJSON.String) != "" {
		if unmarshalErr := json.Unmarshal([]byte(matrixJSON.String), &matrix); unmarshalErr != nil {
			return
		}
	}
	if !rectangular(matrix) {
		return
	}

	var counts []quantize.ColorCount
	if countsJSON.Valid && strings.TrimSpace(countsJSON.String) != "" {
		if unmarshalErr := json.Unmarshal([]byte(countsJSON.String), &counts); unmarshalErr != nil {
			counts = nil
		}
	}

	loadedAt := time.Now().UTC()
	if updatedAt.Valid {
		if parsed, parseErr := time.Parse(time.RFC3339Nano, updatedAt.String); parseErr == nil {
			loadedAt = parsed.UTC()
		}
	}

	s.mu.Lock()
	if requestID.Valid && requestID.Int64 > 0 {
		s.requestID = uint64(requestID.Int64)
	}
	s.paletteName = paletteName.String
	s.matrix = matrix
	s.counts = counts
	s.lastError = lastError.String
	s.updatedAt = loadedAt
	s.mu.Unlock()
}

func (s *Store) persistSnapshot(state State) {
	if s.db == nil {
		return
	}

	matrixJSON, err := json.Marshal(state.Matrix)
	if err != nil {
		return
	}
	countsJSON, err := json.Marshal(state.Counts)
	if err != nil {
		return
	}

	updatedAt := state.UpdatedAt
	if strings.TrimSpace(updatedAt) == "" {
		updatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, _ = s.db.ExecContext(context.Background(), `
		INSERT INTO pattern_state(id, request_id, palette_name, grid_width, grid_height, matrix_json, counts_json, last_error, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			request_id = excluded.request_id,
			palette_name = excluded.palette_name,
			grid_width = excluded.grid_width,
			grid_height = excluded.grid_height,
			matrix_json = excluded.matrix_json,
			counts_json = excluded.counts_json,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at
	`,
		int64(state.RequestID),
		state.PaletteName,
		state.GridWidth,
		state.GridHeight,
		string(matrixJSON),
		string(countsJSON),
		state.LastError,
		updatedAt,
	)
}

func rectangular(matrix quantize.Matrix) bool {
	for _, row := range matrix {
		if len(row) != matrix.Width() {
			return false
		}
	}

	return true
}
