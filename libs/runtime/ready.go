package runtime

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// RunChecks runs every check with a short per-check timeout and returns the failures as "name: err".
func RunChecks(ctx context.Context, checks ...ReadyCheck) []string {
	var failures []string
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check.Check(checkCtx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures = append(failures, name+": "+err.Error())
		}
	}
	return failures
}

func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if failures := RunChecks(r.Context(), checks...); len(failures) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(strings.Join(failures, "; ")))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
