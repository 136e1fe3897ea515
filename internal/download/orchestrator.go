// Package download exports session cookies to the external tool's credential
// format and invokes the tool as a bounded subprocess. A failed download is a
// reportable outcome, not a fault: the caller keeps whatever metadata it
// already extracted.
package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/blackvectorops/ytghost/internal/config"
)

// Request describes one download invocation.
type Request struct {
	URL        string
	OutputPath string
	// Format selects the argument template: "mp3" (audio-only) or "mp4"
	// (capped-resolution video).
	Format string
	// Quality is a bitrate for mp3 and a height cap for mp4.
	Quality string
}

// Orchestrator shells out to the external downloader.
type Orchestrator struct {
	cfg    config.DownloaderConfig
	logger *zap.Logger

	// runCommand is swapped in tests to avoid spawning real processes.
	runCommand func(ctx context.Context, name string, args []string) error
}

// NewOrchestrator builds an orchestrator around the configured tool.
func NewOrchestrator(cfg config.DownloaderConfig, logger *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		logger: logger.Named("downloader"),
	}
	o.runCommand = o.execute
	return o
}

// Run exports the cookies to a transient jar file, invokes the external tool
// with the fixed argument template for the requested format, and removes the
// jar on every exit path. The subprocess is bounded by the configured
// wall-clock timeout.
func (o *Orchestrator) Run(ctx context.Context, req Request, cookies []Cookie) error {
	cookieFile, cleanup, err := writeCookieFile(cookies)
	if err != nil {
		return err
	}
	defer cleanup()

	args := o.buildArgs(req, cookieFile)
	o.logger.Info("Invoking external downloader",
		zap.String("binary", o.cfg.Binary),
		zap.String("format", req.Format),
		zap.String("output", req.OutputPath))

	runCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	if err := o.runCommand(runCtx, o.cfg.Binary, args); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("download timed out after %s", o.cfg.Timeout)
		}
		return err
	}
	return nil
}

// buildArgs renders the fixed per-format argument template.
func (o *Orchestrator) buildArgs(req Request, cookieFile string) []string {
	common := []string{
		"--cookies", cookieFile,
		"--user-agent", o.cfg.UserAgent,
		"--referer", o.cfg.Referer,
		"--sleep-interval", strconv.Itoa(o.cfg.SleepMin),
		"--max-sleep-interval", strconv.Itoa(o.cfg.SleepMax),
		"-o", req.OutputPath,
	}

	var args []string
	if req.Format == "mp4" {
		args = append(args,
			"--format", fmt.Sprintf("best[height<=%s]", req.Quality),
		)
	} else {
		args = append(args,
			"--extract-flat", "false",
			"--format", "bestaudio",
			"--audio-format", "mp3",
			"--audio-quality", req.Quality,
			"--embed-metadata",
			"--add-metadata",
		)
	}
	args = append(args, common...)
	args = append(args, req.URL)
	return args
}

// execute runs the tool, capturing stderr so failures carry a diagnostic.
func (o *Orchestrator) execute(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("downloader exited with status %d: %s",
				exitErr.ExitCode(), tail(stderr.String(), 500))
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("downloader %q not found on PATH", name)
		}
		return fmt.Errorf("downloader invocation failed: %w", err)
	}
	return nil
}

// tail keeps the last n bytes of noisy subprocess output.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
