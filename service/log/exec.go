package log

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type execOption struct {
	outl, errl zapcore.Level
	outf, errf Filter
}

// ExecOption is an option that can be passed to Exec()
type ExecOption func(eo *execOption)

// StdoutLevel sets the level at which stdout should be logged
func StdoutLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) {
		eo.outl = l
	}
}

// StderrLevel sets the level at which stderr should be logged
func StderrLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) {
		eo.errl = l
	}
}

// Filter receives a message and the default level and returns a modified
// message with a new level. If the last result is true, the msg is ignored.
type Filter interface {
	Filter(msg string, defaultLevel zapcore.Level) (string, zapcore.Level, bool)
}

// StdoutFilter sets a filter applied to each stdout line
func StdoutFilter(f Filter) ExecOption {
	return func(eo *execOption) {
		eo.outf = f
	}
}

// StderrFilter sets a filter applied to each stderr line
func StderrFilter(f Filter) ExecOption {
	return func(eo *execOption) {
		eo.errf = f
	}
}

// Exec wraps os/exec for logging the command outputs.
// If cmd.Stdout (resp. cmd.Stderr) is not set, the command stdout (resp. stderr)
// is sent line by line to log.Logger(ctx), at Info (resp. Warn) level by default.
// On ctx cancellation, the cmd is killed.
func Exec(ctx context.Context, cmd *exec.Cmd, options ...ExecOption) error {
	opts := execOption{
		outl: zapcore.InfoLevel,
		errl: zapcore.WarnLevel,
	}
	for _, eo := range options {
		eo(&opts)
	}

	logger := Logger(ctx)
	logwg := sync.WaitGroup{}

	if cmd.Stdout == nil {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("get stdout pipe: %w", err)
		}
		logwg.Add(1)
		go func() {
			defer logwg.Done()
			logLines(stdout, &levelledLogger{logger, opts.outl, opts.outf})
		}()
	}
	if cmd.Stderr == nil {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("get stderr pipe: %w", err)
		}
		logwg.Add(1)
		go func() {
			defer logwg.Done()
			logLines(stderr, &levelledLogger{logger, opts.errl, opts.errf})
		}()
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cmd.start: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		// wait for stdout/stderr to be fully logged before reaping
		logwg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if err := cmd.Process.Kill(); err != nil {
			logger.Sugar().Warnf("kill: %v", err)
			return ctx.Err()
		}
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func logLines(sr io.Reader, logger *levelledLogger) {
	scanner := bufio.NewScanner(sr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); len(line) > 0 {
			logger.Print(line)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Print(fmt.Sprintf("read output: %v", err))
	}
}

type levelledLogger struct {
	*zap.Logger
	level  zapcore.Level
	filter Filter
}

func (l levelledLogger) Print(msg string) {
	level := l.level
	if l.filter != nil {
		var ignore bool
		if msg, level, ignore = l.filter.Filter(msg, level); ignore {
			return
		}
	}
	if ce := l.Check(level, msg); ce != nil {
		ce.Write()
	}
}
