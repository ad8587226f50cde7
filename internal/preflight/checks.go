package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"claimcheck/internal/config"
	"claimcheck/internal/services/oracle"
	"claimcheck/internal/stage"
)

const oracleProbeTimeout = 30 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable and writable.
func CheckDirectoryAccess(name, path string) stage.Health {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return stage.Unhealthy(name, fmt.Sprintf("%s (error: does not exist)", path))
		}
		return stage.Unhealthy(name, fmt.Sprintf("%s (error: stat: %v)", path, err))
	}
	if !info.IsDir() {
		return stage.Unhealthy(name, fmt.Sprintf("%s (error: is not a directory)", path))
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err))
	}
	h := stage.Healthy(name)
	h.Detail = path + " (read/write ok)"
	return h
}

// Directories checks every directory the configuration requires.
func Directories(cfg *config.Config) []stage.Health {
	if cfg == nil {
		return nil
	}
	results := []stage.Health{
		CheckDirectoryAccess("path:data_dir", cfg.Paths.DataDir),
		CheckDirectoryAccess("path:log_dir", cfg.Paths.LogDir),
	}
	if cfg.Storage.Backend == config.StorageFilesystem {
		results = append(results, CheckDirectoryAccess("path:evidence_root", cfg.Storage.Root))
	}
	return results
}

// CheckOracle issues a single health completion against the oracle. Retries
// are disabled so an unreachable endpoint fails within the probe timeout.
func CheckOracle(ctx context.Context, cfg *config.Config) stage.Health {
	const name = "oracle:probe"
	if cfg == nil {
		return stage.Unhealthy(name, "config unavailable")
	}
	if err := cfg.RequireOracle(); err != nil {
		return stage.Unhealthy(name, err.Error())
	}

	checkCtx, cancel := context.WithTimeout(ctx, oracleProbeTimeout)
	defer cancel()

	client := oracle.NewClient(oracle.Config{
		URL:            cfg.Oracle.URL,
		Model:          cfg.Oracle.Model,
		AccessKey:      cfg.Oracle.AccessKey,
		TimeoutSeconds: cfg.Oracle.TimeoutSeconds,
	}, oracle.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return stage.Unhealthy(name, summarizeOracleError(err))
	}
	h := stage.Healthy(name)
	h.Detail = "oracle reachable"
	return h
}

// RunAll executes the directory checks and, when probe is set, the oracle probe.
func RunAll(ctx context.Context, cfg *config.Config, probe bool) []stage.Health {
	results := Directories(cfg)
	if probe {
		results = append(results, CheckOracle(ctx, cfg))
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []stage.Health) []stage.Health {
	var failed []stage.Health
	for _, r := range results {
		if !r.Ready {
			failed = append(failed, r)
		}
	}
	return failed
}

func summarizeOracleError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (oracle unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (oracle unreachable)"
	}
	return err.Error()
}
