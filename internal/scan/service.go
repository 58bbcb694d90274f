// internal/scan/service.go
package scan

import (
	"context"
	"sync"

	"github.com/valpere/CommentHarvester/internal/utils"
)

// RunFunc executes one scan to completion, reporting progress through
// sink. Implementations wire the browser, capture, and replay layers.
type RunFunc func(ctx context.Context, postURL string, sink ProgressSink) Result

// Service manages the single-scan lifecycle: one scan runs at a time,
// commands carry the session token, and the last result stays readable
// until the next scan starts.
type Service struct {
	run RunFunc

	mu       sync.Mutex
	running  bool
	token    string
	cancel   context.CancelFunc
	progress Progress
	result   *Result
}

// NewService creates a service running scans with run.
func NewService(run RunFunc) *Service {
	return &Service{run: run}
}

// Start launches a scan for postURL and returns its session token.
// Fails with a busy error while another scan is running.
func (s *Service) Start(postURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return "", utils.NewError(utils.ErrCodeScanBusy, "a scan is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	token := newToken()
	s.running = true
	s.token = token
	s.cancel = cancel
	s.progress = Progress{State: StateInitializing}
	s.result = nil

	go func() {
		result := s.run(ctx, postURL, s.recordProgress)
		cancel()

		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.result = &result
		s.progress.State = result.State
		s.mu.Unlock()
	}()

	return token, nil
}

// Stop cancels the running scan. The scan winds down cooperatively and
// keeps its partial results.
func (s *Service) Stop(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return utils.NewError(utils.ErrCodeScanStopped, "no scan is running")
	}
	if token != s.token {
		return utils.NewError(utils.ErrCodeValidation, "unknown session token")
	}
	s.cancel()
	return nil
}

// ValidateToken checks a session token against the current invocation.
// The token stays valid after the scan finishes so its results remain
// readable until the next scan starts.
func (s *Service) ValidateToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return utils.NewError(utils.ErrCodeScanStopped, "no scan has been started")
	}
	if token != s.token {
		return utils.NewError(utils.ErrCodeValidation, "unknown session token")
	}
	return nil
}

// Progress returns the latest progress event.
func (s *Service) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Result returns the last completed scan's result, if any.
func (s *Service) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// Running reports whether a scan is in flight.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns the current lifecycle phase for health reporting.
func (s *Service) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running && s.result == nil {
		return string(StateIdle)
	}
	return string(s.progress.State)
}

func (s *Service) recordProgress(p Progress) {
	s.mu.Lock()
	// Keep the cumulative record list out of the stored snapshot; the
	// results endpoint serves full records.
	p.NewRecords = nil
	s.progress = p
	s.mu.Unlock()
}
