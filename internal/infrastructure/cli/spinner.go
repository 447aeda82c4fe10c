package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Spinner displays an animated spinner during long operations. It can be
// started again after Stop.
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		writer:   w,
	}
}

// Start begins the spinner animation with an optional label.
func (s *Spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopChan != nil {
		return
	}
	stop := make(chan struct{})
	s.stopChan = stop

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for idx := 0; ; idx++ {
			fmt.Fprintf(s.writer, "\r%s %s", s.frames[idx%len(s.frames)], label)
			select {
			case <-stop:
				fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner animation and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop := s.stopChan
	s.stopChan = nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	s.wg.Wait()
}

// spinningRouter shows the spinner while a routing call is in flight so it
// never overlaps a prompt.
type spinningRouter struct {
	next    ports.Router
	spinner *Spinner
}

func (r spinningRouter) Route(ctx context.Context, rc domain.RoutingContext) (domain.RoutingDecision, domain.ModelResponse, error) {
	r.spinner.Start("thinking")
	defer r.spinner.Stop()
	return r.next.Route(ctx, rc)
}

var _ ports.Router = spinningRouter{}
