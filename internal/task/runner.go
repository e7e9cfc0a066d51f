package task

import (
	"beadgrid/internal/palette"
	"beadgrid/internal/quantize"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var ErrRunnerClosed = errors.New("quantization runner is closed")

type QuantizeFunc func(samples quantize.Samples, pal palette.Palette, options quantize.Options) (quantize.Matrix, error)

type ResponseListener func(response Response)

// Ticket identifies a dispatched request. Done receives exactly one response and is then closed.
type Ticket struct {
	ID   uint64
	Done <-chan Response
}

// Runner executes each request on its own goroutine. There is no pool and no queue; requests are
// not cancellable. Responses to requests that have been superseded are not passed to the listener.
type Runner struct {
	mu         sync.Mutex
	wg         sync.WaitGroup
	closed     bool
	lastID     uint64
	quantize   QuantizeFunc
	onResponse ResponseListener
	logger     *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{quantize: quantize.Quantize, logger: logger}
}

// SetQuantizeFunc swaps the per-request work function.
func (r *Runner) SetQuantizeFunc(fn QuantizeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		fn = quantize.Quantize
	}
	r.quantize = fn
}

func (r *Runner) SetOnResponse(listener ResponseListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onResponse = listener
}

// Latest returns the id of the most recently dispatched request, or 0 if none.
func (r *Runner) Latest() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastID
}

func (r *Runner) IsLatest(id uint64) bool {
	return id != 0 && id == r.Latest()
}

// Submit assigns req a new id, which also makes every earlier request stale, and starts it.
func (r *Runner) Submit(req Request) (Ticket, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Ticket{}, ErrRunnerClosed
	}
	r.lastID++
	req.ID = r.lastID
	work := r.quantize
	r.wg.Add(1)
	r.mu.Unlock()

	done := make(chan Response, 1)
	go func() {
		defer r.wg.Done()

		response := r.execute(work, req)
		done <- response
		close(done)

		r.deliver(response)
	}()

	return Ticket{ID: req.ID, Done: done}, nil
}

// Run executes req on the calling goroutine. It never touches the listener or the latest id.
func (r *Runner) Run(req Request) Response {
	r.mu.Lock()
	closed := r.closed
	work := r.quantize
	r.mu.Unlock()

	if closed {
		return failure(req.ID, ErrRunnerClosed)
	}

	return r.execute(work, req)
}

// Close rejects further submissions and waits for in-flight requests to respond.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) execute(work QuantizeFunc, req Request) (response Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("quantization panicked", "request", req.ID, "panic", recovered)
			response = failure(req.ID, fmt.Errorf("quantization panicked: %v", recovered))
		}
	}()

	if err := req.Validate(); err != nil {
		r.logger.Warn("rejected quantization request", "request", req.ID, "error", err)
		return failure(req.ID, fmt.Errorf("invalid request: %w", err))
	}

	matrix, err := work(req.samples(), req.Palette, req.Options)
	if err != nil {
		r.logger.Warn("quantization failed", "request", req.ID, "error", err)
		return failure(req.ID, err)
	}
	if matrix.Width() != req.GridWidth || matrix.Height() != req.GridHeight {
		return failure(req.ID, fmt.Errorf("quantizer returned %dx%d matrix for %dx%d grid", matrix.Width(), matrix.Height(), req.GridWidth, req.GridHeight))
	}

	return Response{ID: req.ID, Matrix: matrix}
}

func (r *Runner) deliver(response Response) {
	r.mu.Lock()
	listener := r.onResponse
	stale := response.ID != r.lastID
	r.mu.Unlock()

	if stale {
		r.logger.Debug("discarded stale quantization response", "request", response.ID)
		return
	}
	if listener != nil {
		listener(response)
	}
}
