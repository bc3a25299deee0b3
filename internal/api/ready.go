package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/talkdb/talkdb/internal/config"
	"github.com/talkdb/talkdb/internal/database"
)

const defaultDependencyTimeout = 2 * time.Second

// ReadinessCheck is one named dependency check reported by /v1/ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func CheckDatabase(handle database.Handle) ReadinessCheck {
	return ReadinessCheck{Name: "database", Check: func(ctx context.Context) error {
		if handle == nil {
			return errors.New("database is not configured")
		}
		return handle.Ping(ctx)
	}}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return ReadinessCheck{Name: "object_store", Check: func(_ context.Context) error {
		if !cfg.Datasets.Enabled {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}}
}

// handleReady runs every check concurrently under the dependency timeout and
// reports each result, so one slow dependency does not hide another's failure.
func handleReady(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = defaultDependencyTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	results := runReadinessChecks(ctx, deps.Readiness)
	failed := false
	for _, result := range results {
		if result != "ok" {
			failed = true
			break
		}
	}
	if failed {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", "one or more dependencies are not ready", true, map[string]any{
			"checks": results,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": results})
}

func runReadinessChecks(ctx context.Context, checks []ReadinessCheck) map[string]string {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)
	for i, key := range readinessKeys(checks) {
		check := checks[i]
		if check.Check == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "ok"
			if err := check.Check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[key] = status
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// readinessKeys names each check uniquely. Empty names become "check" and
// repeats get a numeric suffix so no result is overwritten.
func readinessKeys(checks []ReadinessCheck) []string {
	keys := make([]string, len(checks))
	used := make(map[string]bool, len(checks))
	for i, check := range checks {
		name := check.Name
		if name == "" {
			name = "check"
		}
		key := name
		for n := 2; used[key]; n++ {
			key = fmt.Sprintf("%s_%d", name, n)
		}
		used[key] = true
		keys[i] = key
	}
	return keys
}
