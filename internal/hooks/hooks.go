// Package hooks runs user scripts after actions resolve and notifications
// appear.
package hooks

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
)

// Hook points.
const (
	PointPostAction = "post-action"
	PointPostNotify = "post-notify"
)

// Failure modes.
const (
	FailureAbort  = "abort"
	FailureWarn   = "warn"
	FailureIgnore = "ignore"
)

// Runner executes the executable files under Dir/<point>/ in name order.
type Runner struct {
	Dir          string
	Enabled      bool
	FailureMode  string
	Async        bool
	AsyncTimeout time.Duration
	MaxAsync     int
	Stderr       io.Writer
	Logger       logging.Logger

	mu           sync.Mutex
	pending      sync.WaitGroup
	pendingCount int
}

// FromConfig builds a runner from the loaded configuration. Async behavior
// is controlled by URBANMD_HOOKS_ASYNC, URBANMD_HOOKS_ASYNC_TIMEOUT (seconds)
// and URBANMD_MAX_HOOKS.
func FromConfig(logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		Dir:          config.Get("hooks_dir", ""),
		Enabled:      config.GetBool("hooks_enabled", true),
		FailureMode:  config.Get("hooks_failure_mode", FailureWarn),
		Async:        asyncEnabled(),
		AsyncTimeout: asyncTimeout(),
		MaxAsync:     maxAsyncHooks(),
		Stderr:       os.Stderr,
		Logger:       logger,
	}
}

func asyncEnabled() bool {
	switch strings.ToLower(os.Getenv(config.EnvPrefix + "HOOKS_ASYNC")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func asyncTimeout() time.Duration {
	if s := os.Getenv(config.EnvPrefix + "HOOKS_ASYNC_TIMEOUT"); s != "" {
		if seconds, err := time.ParseDuration(s + "s"); err == nil && seconds > 0 {
			return seconds
		}
	}
	return 30 * time.Second
}

func maxAsyncHooks() int {
	if s := os.Getenv(config.EnvPrefix + "MAX_HOOKS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 10
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr == nil {
		return io.Discard
	}
	return r.Stderr
}

func (r *Runner) logger() logging.Logger {
	if r.Logger == nil {
		return logging.Nop()
	}
	return r.Logger
}

type script struct {
	path string
	name string
}

func (r *Runner) scripts(point string) []script {
	if r.Dir == "" {
		return nil
	}
	dir := filepath.Join(r.Dir, point)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []script
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil || info.Mode()&0o111 == 0 {
			continue
		}
		out = append(out, script{path: path, name: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Run executes the hooks for point. envVars are KEY=VALUE pairs added to the
// process environment. Only abort mode returns script failures.
func (r *Runner) Run(point string, envVars ...string) error {
	if !r.Enabled {
		return nil
	}
	scripts := r.scripts(point)
	if len(scripts) == 0 {
		return nil
	}

	env := r.environment(point, envVars)
	r.logger().Debug("running hooks", "point", point, "scripts", len(scripts))

	for _, s := range scripts {
		if r.Async {
			r.mu.Lock()
			if r.pendingCount >= r.MaxAsync {
				r.mu.Unlock()
				fmt.Fprintf(r.stderr(), "warning: too many async hooks pending (max: %d), skipping %s\n", r.MaxAsync, s.name)
				continue
			}
			r.pendingCount++
			r.pending.Add(1)
			r.mu.Unlock()
			go r.runAsync(s, env)
			continue
		}
		if err := r.runSync(s, env); err != nil && r.FailureMode == FailureAbort {
			return err
		}
	}
	return nil
}

func (r *Runner) environment(point string, envVars []string) []string {
	env := os.Environ()
	env = append(env,
		"HOOK_POINT="+point,
		"HOOK_TIMESTAMP="+time.Now().Format(time.RFC3339),
		config.EnvPrefix+"HOOKS_FAILURE_MODE="+r.FailureMode,
	)
	if exe, err := os.Executable(); err == nil {
		env = append(env, config.EnvPrefix+"BINARY="+exe)
	}
	for _, kv := range envVars {
		if strings.Contains(kv, "=") {
			env = append(env, kv)
		}
	}
	return env
}

func (r *Runner) runSync(s script, env []string) error {
	start := time.Now()
	cmd := exec.Command(s.path)
	cmd.Env = env
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		_, _ = r.stderr().Write(output)
	}
	if err == nil {
		r.logger().Debug("hook completed", "hook", s.name, "duration", time.Since(start).String())
		return nil
	}

	r.logger().Warn("hook failed", "hook", s.name, "error", err)
	switch r.FailureMode {
	case FailureAbort:
		return fmt.Errorf("hook %s failed: %v, output: %s", s.name, err, output)
	case FailureIgnore:
	default:
		fmt.Fprintf(r.stderr(), "warning: hook %s failed: %v\n", s.name, err)
	}
	return nil
}

func (r *Runner) runAsync(s script, env []string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.AsyncTimeout)
	defer func() {
		if rec := recover(); rec != nil {
			fmt.Fprintf(r.stderr(), "error: async hook %s panicked: %v\n", s.name, rec)
		}
		cancel()
		r.mu.Lock()
		r.pendingCount--
		r.mu.Unlock()
		r.pending.Done()
	}()

	start := time.Now()
	cmd := exec.CommandContext(ctx, s.path)
	cmd.Env = env
	cmd.Stdout = r.stderr()
	cmd.Stderr = r.stderr()
	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		fmt.Fprintf(r.stderr(), "warning: async hook %s timed out after %.2fs\n", s.name, time.Since(start).Seconds())
	}
	if err != nil && r.FailureMode != FailureIgnore {
		fmt.Fprintf(r.stderr(), "warning: async hook %s failed: %v\n", s.name, err)
	}
}

// Wait blocks until every async hook and detached notification hook is done.
func (r *Runner) Wait() {
	r.pending.Wait()
}

// Pending returns the number of running async hooks.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingCount
}

// Observe runs post-action hooks for a resolved action.
func (r *Runner) Observe(_ context.Context, rec domain.OutcomeRecord) {
	err := r.Run(PointPostAction,
		config.EnvPrefix+"SECTION="+rec.Section,
		config.EnvPrefix+"ACTION="+rec.Action,
		config.EnvPrefix+"TARGET="+rec.TargetID,
		config.EnvPrefix+"METHOD="+rec.Method,
		config.EnvPrefix+"ENDPOINT="+rec.Endpoint,
		config.EnvPrefix+"OUTCOME="+rec.Outcome.String(),
		config.EnvPrefix+"MESSAGE="+rec.Message,
	)
	if err != nil {
		r.logger().Warn("post-action hook aborted", "error", err)
	}
}

// Changed runs post-notify hooks when a notification appears. It does not
// block the caller.
func (r *Runner) Changed(entry domain.NotificationEntry) {
	if entry.Visibility != domain.VisibilityEntering || !r.Enabled {
		return
	}
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		err := r.Run(PointPostNotify,
			config.EnvPrefix+"NOTIFICATION_ID="+entry.ID,
			config.EnvPrefix+"NOTIFICATION_KIND="+entry.Kind.String(),
			config.EnvPrefix+"NOTIFICATION_MESSAGE="+entry.Message,
		)
		if err != nil {
			r.logger().Warn("post-notify hook aborted", "error", err)
		}
	}()
}
