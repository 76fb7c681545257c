package host

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/warp-js/ipc-server/internal/config"
)

// Registry issues connect tokens for launched extensions.
type Registry interface {
	Register(extensionID string) string
	Unregister(extensionID string)
	Token() string
}

// Process is a running extension.
type Process struct {
	ID string

	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error once Done is closed.
func (p *Process) Err() error {
	<-p.done

	return p.err
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Launcher starts extension processes and tracks them until they exit.
type Launcher struct {
	log      *slog.Logger
	registry Registry
	port     int

	mu    sync.Mutex
	procs map[string]*Process
}

// NewLauncher creates a launcher whose extensions dial the broker on port.
func NewLauncher(log *slog.Logger, registry Registry, port int) *Launcher {
	return &Launcher{
		log:      log.With("component", "launcher"),
		registry: registry,
		port:     port,
		procs:    make(map[string]*Process, 4),
	}
}

// Start registers ext with the broker and spawns its process. The bootstrap
// record is written to the process's stdin; stdout and stderr lines are
// logged under the extension id.
func (l *Launcher) Start(ctx context.Context, ext ExtensionSpec) (*Process, error) {
	l.mu.Lock()
	_, running := l.procs[ext.ID]
	l.mu.Unlock()

	if running {
		return nil, fmt.Errorf("extension %s already running", ext.ID)
	}

	connectToken := l.registry.Register(ext.ID)

	boot := &config.Bootstrap{
		ConnectToken: connectToken,
		ExtensionID:  ext.ID,
		Port:         l.port,
		Token:        l.registry.Token(),
	}

	bootData, err := boot.Marshal()
	if err != nil {
		l.registry.Unregister(ext.ID)

		return nil, err
	}

	//nolint:gosec // G204: extension commands come from the host manifest
	cmd := exec.CommandContext(ctx, ext.Command, ext.Args...)
	cmd.Dir = ext.Dir
	cmd.Env = buildEnvironment(ext.Env)
	cmd.Stdin = bytes.NewReader(bootData)

	log := l.log.With("extension", ext.ID)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		l.registry.Unregister(ext.ID)

		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		l.registry.Unregister(ext.ID)

		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		l.registry.Unregister(ext.ID)
		log.Error("Failed to start extension", "error", err)

		return nil, fmt.Errorf("start extension %s: %w", ext.ID, err)
	}

	proc := &Process{ID: ext.ID, cmd: cmd, done: make(chan struct{})}

	l.mu.Lock()
	l.procs[ext.ID] = proc
	l.mu.Unlock()

	log.Info("Extension started", "pid", cmd.Process.Pid)

	var streams sync.WaitGroup

	streams.Go(func() { pipeLines(stdout, func(line string) { log.Info(line, "stream", "stdout") }) })
	streams.Go(func() { pipeLines(stderr, func(line string) { log.Warn(line, "stream", "stderr") }) })

	go func() {
		// Pipes must be drained before Wait closes them.
		streams.Wait()

		proc.err = cmd.Wait()

		l.mu.Lock()
		if l.procs[ext.ID] == proc {
			delete(l.procs, ext.ID)
		}
		l.mu.Unlock()

		if proc.err != nil {
			log.Warn("Extension exited", "error", proc.err)
		} else {
			log.Info("Extension exited")
		}

		close(proc.done)
	}()

	return proc, nil
}

// StartAll starts every extension in order. If one fails, the ones already
// started are stopped.
func (l *Launcher) StartAll(ctx context.Context, exts []ExtensionSpec) error {
	for _, ext := range exts {
		if _, err := l.Start(ctx, ext); err != nil {
			if stopErr := l.StopAll(); stopErr != nil {
				return multierror.Append(err, stopErr)
			}

			return err
		}
	}

	return nil
}

// Running returns the ids of running extensions, sorted.
func (l *Launcher) Running() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Sorted(maps.Keys(l.procs))
}

// Stop kills one extension, waits for it to exit and unregisters it.
func (l *Launcher) Stop(extensionID string) error {
	l.mu.Lock()
	proc, ok := l.procs[extensionID]
	l.mu.Unlock()

	defer l.registry.Unregister(extensionID)

	if !ok {
		return nil
	}

	l.log.Debug("Killing extension", "extension", extensionID, "pid", proc.Pid())

	if err := proc.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill extension %s (pid %d): %w", extensionID, proc.Pid(), err)
	}

	<-proc.done

	return nil
}

// StopAll stops every running extension and reports all failures.
func (l *Launcher) StopAll() error {
	var result *multierror.Error

	for _, id := range l.Running() {
		if err := l.Stop(id); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// buildEnvironment appends extra to the host environment in key order.
func buildEnvironment(extra map[string]string) []string {
	environ := os.Environ()

	for _, key := range slices.Sorted(maps.Keys(extra)) {
		environ = append(environ, key+"="+extra[key])
	}

	return environ
}

func pipeLines(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		emit(scanner.Text())
	}
}
