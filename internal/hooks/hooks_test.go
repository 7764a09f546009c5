package hooks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/domain"
)

func writeScript(t *testing.T, dir, point, name, body string) {
	t.Helper()
	hookDir := filepath.Join(dir, point)
	require.NoError(t, os.MkdirAll(hookDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, name), []byte("#!/bin/sh\n"+body), 0o755))
}

func newRunner(t *testing.T, mode string) (*Runner, *bytes.Buffer) {
	t.Helper()
	var stderr bytes.Buffer
	return &Runner{
		Dir:          t.TempDir(),
		Enabled:      true,
		FailureMode:  mode,
		AsyncTimeout: time.Second,
		MaxAsync:     2,
		Stderr:       &stderr,
	}, &stderr
}

func TestRunWithoutScripts(t *testing.T) {
	r, _ := newRunner(t, FailureWarn)
	require.NotPanics(t, func() {
		assert.NoError(t, r.Run(PointPostAction, "FOO=bar"))
	})
	assert.NoError(t, (&Runner{Enabled: true}).Run(PointPostAction))
}

func TestRunPassesEnvironmentInOrder(t *testing.T) {
	r, _ := newRunner(t, FailureWarn)
	out := filepath.Join(t.TempDir(), "out.txt")
	writeScript(t, r.Dir, PointPostAction, "02-second.sh", `echo "second $URBANMD_ACTION" >> "`+out+`"`)
	writeScript(t, r.Dir, PointPostAction, "01-first.sh", `echo "first $HOOK_POINT $URBANMD_OUTCOME" >> "`+out+`"`)

	r.Observe(context.Background(), domain.OutcomeRecord{Action: "cancel", Outcome: domain.OutcomeMutate})

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "first post-action mutate\nsecond cancel\n", string(data))
}

func TestNonExecutableSkipped(t *testing.T) {
	r, _ := newRunner(t, FailureAbort)
	hookDir := filepath.Join(r.Dir, PointPostAction)
	require.NoError(t, os.MkdirAll(hookDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, "x.sh"), []byte("#!/bin/sh\nexit 1\n"), 0o644))

	assert.NoError(t, r.Run(PointPostAction))
}

func TestFailureModes(t *testing.T) {
	t.Run("abort", func(t *testing.T) {
		r, _ := newRunner(t, FailureAbort)
		writeScript(t, r.Dir, PointPostAction, "fail.sh", "exit 1\n")
		err := r.Run(PointPostAction)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hook fail.sh failed")
	})

	t.Run("warn", func(t *testing.T) {
		r, stderr := newRunner(t, FailureWarn)
		writeScript(t, r.Dir, PointPostAction, "fail.sh", "exit 1\n")
		assert.NoError(t, r.Run(PointPostAction))
		assert.Contains(t, stderr.String(), "warning: hook fail.sh failed")
	})

	t.Run("ignore", func(t *testing.T) {
		r, stderr := newRunner(t, FailureIgnore)
		writeScript(t, r.Dir, PointPostAction, "fail.sh", "exit 1\n")
		assert.NoError(t, r.Run(PointPostAction))
		assert.Empty(t, stderr.String())
	})
}

func TestDisabledRunsNothing(t *testing.T) {
	r, _ := newRunner(t, FailureAbort)
	r.Enabled = false
	writeScript(t, r.Dir, PointPostAction, "fail.sh", "exit 1\n")
	assert.NoError(t, r.Run(PointPostAction))
}

func TestAsyncHooksRespectMax(t *testing.T) {
	r, stderr := newRunner(t, FailureIgnore)
	r.Async = true
	for i := 0; i < 3; i++ {
		writeScript(t, r.Dir, PointPostAction, fmt.Sprintf("hook%d.sh", i), "sleep 0.2\n")
	}

	start := time.Now()
	require.NoError(t, r.Run(PointPostAction))
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.LessOrEqual(t, r.Pending(), 2)
	assert.Contains(t, stderr.String(), "skipping hook2.sh")

	r.Wait()
	assert.Equal(t, 0, r.Pending())
}

func TestAsyncTimeout(t *testing.T) {
	r, stderr := newRunner(t, FailureWarn)
	r.Async = true
	r.AsyncTimeout = 100 * time.Millisecond
	writeScript(t, r.Dir, PointPostAction, "slow.sh", "sleep 5\n")

	require.NoError(t, r.Run(PointPostAction))
	r.Wait()
	assert.Contains(t, stderr.String(), "timed out")
}

func TestChangedRunsPostNotifyOnEntering(t *testing.T) {
	r, _ := newRunner(t, FailureWarn)
	out := filepath.Join(t.TempDir(), "notify.txt")
	writeScript(t, r.Dir, PointPostNotify, "log.sh", `echo "$URBANMD_NOTIFICATION_KIND:$URBANMD_NOTIFICATION_MESSAGE" >> "`+out+`"`)

	entry := domain.NotificationEntry{ID: "n1", Kind: domain.KindSuccess, Message: "Stats updated", Visibility: domain.VisibilityEntering}
	r.Changed(entry)
	entry.Visibility = domain.VisibilityVisible
	r.Changed(entry)
	r.Wait()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "success:Stats updated", strings.TrimSpace(string(data)))
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("URBANMD_CONFIG_DIR", dir)
	t.Setenv("URBANMD_STATE_DIR", t.TempDir())
	t.Setenv("URBANMD_HOOKS_DIR", filepath.Join(dir, "custom-hooks"))
	t.Setenv("URBANMD_HOOKS_FAILURE_MODE", "abort")
	t.Setenv("URBANMD_HOOKS_ASYNC", "yes")
	t.Setenv("URBANMD_HOOKS_ASYNC_TIMEOUT", "3")
	t.Setenv("URBANMD_MAX_HOOKS", "4")
	config.Load()

	r := FromConfig(nil)
	assert.Equal(t, filepath.Join(dir, "custom-hooks"), r.Dir)
	assert.Equal(t, FailureAbort, r.FailureMode)
	assert.True(t, r.Enabled)
	assert.True(t, r.Async)
	assert.Equal(t, 3*time.Second, r.AsyncTimeout)
	assert.Equal(t, 4, r.MaxAsync)
}
