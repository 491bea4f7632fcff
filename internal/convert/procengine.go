package convert

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrEngineBusy is returned when Open is called while a document is already
// open. The renderer is a single-instance desktop resource; callers must
// close the current document and quit before opening another.
var ErrEngineBusy = errors.New("convert: engine already has an open document")

// quitGrace is how long Quit waits for the bridge to exit cleanly before
// killing the process.
const quitGrace = 5 * time.Second

// bridgeRequest is one line of the bridge protocol, written to the
// renderer's stdin as JSON.
type bridgeRequest struct {
	Op            string `json:"op"` // open, export, status, close, quit
	Path          string `json:"path,omitempty"`
	Output        string `json:"output,omitempty"`
	SlideDuration int    `json:"slide_duration,omitempty"`
	Height        int    `json:"height,omitempty"`
	FPS           int    `json:"fps,omitempty"`
	Quality       int    `json:"quality,omitempty"`
}

// bridgeResponse is the renderer's reply line.
type bridgeResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"` // running, failed, done
	Error  string `json:"error,omitempty"`
}

// ProcessEngine drives a renderer bridge subprocess over line-delimited
// JSON on stdin/stdout. The bridge wraps the actual desktop rendering
// application (on Windows, PowerPoint automation) behind the open / export /
// status / close / quit operations.
//
// The process is started lazily on Open and terminated by Quit, so each
// conversion job spawns and tears down one transient process.
type ProcessEngine struct {
	command []string
	logger  *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader
	open   bool
}

// NewProcessEngine creates an engine that will run the given bridge
// command. Arguments may be included, space-separated.
func NewProcessEngine(command string, logger *slog.Logger) *ProcessEngine {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProcessEngine{
		command: strings.Fields(command),
		logger:  logger,
	}
}

// Open starts the bridge process if needed and opens the document.
func (e *ProcessEngine) Open(ctx context.Context, path string) (Document, error) {
	if e.open {
		return nil, ErrEngineBusy
	}

	if e.cmd == nil {
		if err := e.start(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := e.roundTrip(bridgeRequest{Op: "open", Path: path})
	if err != nil {
		return nil, err
	}

	if !resp.OK {
		return nil, fmt.Errorf("convert: engine failed to open %s: %s", path, resp.Error)
	}

	e.open = true

	e.logger.Debug("document opened",
		slog.String("path", path),
	)

	return &processDocument{engine: e, path: path}, nil
}

// Quit terminates the bridge process. Safe to call when the process never
// started. If the bridge ignores the quit request, the process is killed
// after a grace period.
func (e *ProcessEngine) Quit(_ context.Context) error {
	if e.cmd == nil {
		return nil
	}

	cmd := e.cmd
	e.cmd = nil
	e.open = false

	// Best-effort polite shutdown; the bridge exits on "quit".
	_, sendErr := e.transact(bridgeRequest{Op: "quit"})
	_ = e.stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case waitErr := <-done:
		if waitErr != nil && sendErr == nil {
			e.logger.Debug("engine exited with error",
				slog.String("error", waitErr.Error()),
			)
		}
	case <-time.After(quitGrace):
		e.logger.Warn("engine did not exit, killing process")

		if killErr := cmd.Process.Kill(); killErr != nil {
			return fmt.Errorf("convert: killing engine process: %w", killErr)
		}

		<-done
	}

	e.logger.Debug("engine terminated")

	return nil
}

// start launches the bridge process and wires its pipes.
func (e *ProcessEngine) start(ctx context.Context) error {
	if len(e.command) == 0 {
		return errors.New("convert: no engine command configured")
	}

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...) //nolint:gosec // command comes from operator config

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("convert: engine stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("convert: engine stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("convert: starting engine %q: %w", e.command[0], err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.reader = bufio.NewReader(stdout)

	e.logger.Info("engine process started",
		slog.String("command", e.command[0]),
		slog.Int("pid", cmd.Process.Pid),
	)

	return nil
}

// roundTrip sends one request line and reads one response line. The bridge
// protocol is strictly request/response with a single request in flight.
func (e *ProcessEngine) roundTrip(req bridgeRequest) (*bridgeResponse, error) {
	if e.cmd == nil {
		return nil, errors.New("convert: engine not running")
	}

	return e.transact(req)
}

// transact writes one request line and reads one reply line, without
// checking process state. Quit uses it directly during teardown.
func (e *ProcessEngine) transact(req bridgeRequest) (*bridgeResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("convert: encoding %s request: %w", req.Op, err)
	}

	data = append(data, '\n')
	if _, err := e.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("convert: writing %s request: %w", req.Op, err)
	}

	line, err := e.reader.ReadBytes('\n')
	if err != nil {
		// quit legitimately ends the stream without a reply.
		if req.Op == "quit" && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)) {
			return &bridgeResponse{OK: true}, nil
		}

		return nil, fmt.Errorf("convert: reading %s response: %w", req.Op, err)
	}

	var resp bridgeResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("convert: decoding %s response: %w", req.Op, err)
	}

	return &resp, nil
}

// processDocument is one open presentation inside a ProcessEngine.
type processDocument struct {
	engine *ProcessEngine
	path   string
}

func (d *processDocument) ExportVideo(_ context.Context, opts ExportOptions) error {
	resp, err := d.engine.roundTrip(bridgeRequest{
		Op:            "export",
		Output:        opts.OutputPath,
		SlideDuration: opts.SlideDuration,
		Height:        opts.Height,
		FPS:           opts.FPS,
		Quality:       opts.Quality,
	})
	if err != nil {
		return err
	}

	if !resp.OK {
		return fmt.Errorf("convert: engine rejected export of %s: %s", d.path, resp.Error)
	}

	return nil
}

func (d *processDocument) ExportStatus(_ context.Context) (ExportStatus, error) {
	resp, err := d.engine.roundTrip(bridgeRequest{Op: "status"})
	if err != nil {
		return StatusFailed, err
	}

	switch resp.Status {
	case "done":
		return StatusDone, nil
	case "failed":
		return StatusFailed, nil
	case "running":
		return StatusInProgress, nil
	default:
		return StatusFailed, fmt.Errorf("convert: engine reported unknown status %q", resp.Status)
	}
}

func (d *processDocument) Close(_ context.Context) error {
	resp, err := d.engine.roundTrip(bridgeRequest{Op: "close"})
	if err != nil {
		return err
	}

	if !resp.OK {
		return fmt.Errorf("convert: engine failed to close %s: %s", d.path, resp.Error)
	}

	d.engine.open = false

	return nil
}
