// internal/infra/shell/shell_task_executor.go
package shell

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"jobpool/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single command when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// waitDelay bounds how long Run waits for I/O after the command is killed.
const waitDelay = time.Second

// shellTaskExecutor implements domain.TaskExecutor for shell commands.
type shellTaskExecutor struct {
	shell   string
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewShellTaskExecutor creates an executor running commands with "sh -c".
func NewShellTaskExecutor(timeout time.Duration, logger *slog.Logger) domain.TaskExecutor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &shellTaskExecutor{
		shell:   "sh",
		timeout: timeout,
		logger:  logger.With("executor_type", "shell"),
		tracer:  otel.Tracer("jobpool-shell-executor"),
	}
}

// Execute runs the shell command specified in the task and returns its output.
func (e *shellTaskExecutor) Execute(ctx context.Context, task *domain.Task) (string, error) {
	ctx, span := e.tracer.Start(ctx, "executor.shell.Execute",
		trace.WithAttributes(
			attribute.String("task.name", task.Name),
			attribute.String("task.command", task.Executor.Command),
		))
	defer span.End()

	e.logger.Info("executing shell command", "command", task.Executor.Command, "task_name", task.Name)

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.shell, "-c", task.Executor.Command)
	killProcessGroup(cmd)
	// Stop waiting on output pipes still held by stray descendants.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := stdout.String()
	errOutput := stderr.String()

	if errOutput != "" {
		span.SetAttributes(attribute.String("shell.stderr", errOutput))
		if output != "" {
			output = fmt.Sprintf("[STDERR]:\n%s\n[STDOUT]:\n%s", errOutput, output)
		} else {
			output = fmt.Sprintf("[STDERR]:\n%s", errOutput)
		}
	}

	if err != nil {
		span.SetStatus(codes.Error, "shell command failed")
		span.RecordError(err)
		if execCtx.Err() == context.DeadlineExceeded {
			return output, fmt.Errorf("shell command timed out after %s: %w", e.timeout, err)
		}
		return output, fmt.Errorf("shell command failed: %w", err)
	}

	e.logger.Info("shell command executed successfully", "task_name", task.Name)
	return output, nil
}
