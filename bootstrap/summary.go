package bootstrap

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kbukum/gokernel/logger"
	"github.com/kbukum/gokernel/providers"
)

// StepTiming records how one bootstrap step went.
type StepTiming struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	mu              sync.Mutex
	out             io.Writer
	serviceName     string
	version         string
	startupDuration time.Duration
	steps           []StepTiming
}

// NewSummary creates a new bootstrap summary tracker writing to stdout.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		out:         os.Stdout,
		serviceName: serviceName,
		version:     version,
		steps:       make([]StepTiming, 0),
	}
}

// SetOutput redirects the printed summary.
func (s *Summary) SetOutput(w io.Writer) {
	s.mu.Lock()
	s.out = w
	s.mu.Unlock()
}

// SetVersion updates the version shown in the header.
func (s *Summary) SetVersion(v string) {
	s.mu.Lock()
	s.version = v
	s.mu.Unlock()
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.mu.Lock()
	s.startupDuration = d
	s.mu.Unlock()
}

// TrackStep records the outcome of a bootstrap step.
func (s *Summary) TrackStep(name string, d time.Duration, err error) {
	s.mu.Lock()
	s.steps = append(s.steps, StepTiming{Name: name, Duration: d, Err: err})
	s.mu.Unlock()
}

// Steps returns the tracked steps in execution order.
func (s *Summary) Steps() []StepTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepTiming, len(s.steps))
	copy(out, s.steps)
	return out
}

// DisplaySummary prints the bootstrap steps and the provider states.
func (s *Summary) DisplaySummary(statuses []providers.Status, log *logger.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.out

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n\n",
		s.serviceName, s.version, s.startupDuration.Seconds())

	if len(s.steps) > 0 {
		fmt.Fprintf(w, "🧭 Bootstrap\n")
		for i, st := range s.steps {
			prefix := "├──"
			if i == len(s.steps)-1 {
				prefix = "└──"
			}
			icon := "✅"
			if st.Err != nil {
				icon = "❌"
			}
			fmt.Fprintf(w, "   %s %s %s (%s)\n", prefix, icon, st.Name, st.Duration.Round(time.Microsecond))
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "📦 Service Providers\n")
	if len(statuses) == 0 {
		fmt.Fprintf(w, "   └── No service providers registered\n")
		return
	}

	booted := 0
	counts := make(map[providers.State]int)
	for i, st := range statuses {
		prefix := "├──"
		if i == len(statuses)-1 {
			prefix = "└──"
		}
		fmt.Fprintf(w, "   %s %s %s [%s] (%s)\n", prefix, stateIcon(st.State), st.DisplayName, st.Name, st.State)
		counts[st.State]++
		if st.State == providers.StateBooted {
			booted++
		}
	}
	fmt.Fprintf(w, "\n")

	total := len(statuses)
	switch {
	case counts[providers.StateFailed] > 0:
		fmt.Fprintf(w, "⚠️  %d service provider(s) failed (%d/%d booted)\n", counts[providers.StateFailed], booted, total)
	case booted == total:
		fmt.Fprintf(w, "✅ All service providers booted (%d/%d)\n", booted, total)
	default:
		fmt.Fprintf(w, "⏸️  Some service providers are waiting (%d/%d booted)\n", booted, total)
	}

	if log != nil {
		log.Debug("Startup summary displayed", map[string]interface{}{
			"booted":   booted,
			"deferred": counts[providers.StateDeferred],
			"failed":   counts[providers.StateFailed],
		})
	}
}

func stateIcon(s providers.State) string {
	switch s {
	case providers.StateBooted:
		return "✅"
	case providers.StateDeferred:
		return "⏸️"
	case providers.StateDisposed:
		return "💤"
	case providers.StateFailed:
		return "❌"
	default:
		return "⚠️"
	}
}
