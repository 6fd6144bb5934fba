package tagger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/network-lumen/gateway-agent/internal/metrics"
)

// workerState is the supervisor's state machine (spec.md §4.9 / design
// notes "Worker isolation"): idle → starting → running; on error/exit/
// timeout → terminate, reject all pending, set a backoff deadline; a call
// after the deadline re-enters starting.
type workerState int

const (
	stateIdle workerState = iota
	stateStarting
	stateRunning
	stateBackoff
)

const backoffDuration = 30 * time.Second

type wireRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type wireResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// WorkerSupervisor runs a tagger model in a separate process, communicating
// over newline-delimited JSON on stdin/stdout, and multiplexes concurrent
// calls by a UUID request id (design notes "resolve/reject map on the
// controller side").
type WorkerSupervisor struct {
	command  []string
	timeout  time.Duration
	fallback Tagger
	log      zerolog.Logger

	mu           sync.Mutex
	state        workerState
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	backoffUntil time.Time
	pending      map[string]chan wireResponse
}

// NewWorkerSupervisor builds a supervisor for an isolated tagger worker.
// command is the argv to launch it; fallback is used whenever the worker is
// in backoff or fails to start.
func NewWorkerSupervisor(command []string, timeout time.Duration, fallback Tagger, log zerolog.Logger) *WorkerSupervisor {
	return &WorkerSupervisor{
		command:  command,
		timeout:  timeout,
		fallback: fallback,
		log:      log,
		state:    stateIdle,
		pending:  make(map[string]chan wireResponse),
	}
}

func (w *WorkerSupervisor) TagText(ctx context.Context, text string) (*Result, error) {
	if !w.ensureRunning() {
		return w.fallback.TagText(ctx, text)
	}
	return w.call(ctx, "tagText", map[string]any{"text": text})
}

func (w *WorkerSupervisor) TagImage(ctx context.Context, cid string, d DetectionInfo) (*Result, error) {
	if !w.ensureRunning() {
		return w.fallback.TagImage(ctx, cid, d)
	}
	return w.call(ctx, "tagImage", map[string]any{"cid": cid, "detection": d})
}

func (w *WorkerSupervisor) call(ctx context.Context, method string, params any) (*Result, error) {
	buf, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s params: %w", method, err)
	}
	req := wireRequest{ID: uuid.NewString(), Method: method, Params: buf}

	respCh := make(chan wireResponse, 1)
	w.mu.Lock()
	w.pending[req.ID] = respCh
	stdin := w.stdin
	w.mu.Unlock()

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	if _, err := stdin.Write(append(line, '\n')); err != nil {
		w.onFatal(err)
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	select {
	case resp := <-respCh:
		if resp.Error != "" {
			return nil, nil
		}
		var r Result
		if err := json.Unmarshal(resp.Result, &r); err != nil {
			return nil, nil
		}
		return &r, nil
	case <-callCtx.Done():
		w.onFatal(fmt.Errorf("tagger call %s timed out", method))
		return nil, nil
	}
}

func (w *WorkerSupervisor) ensureRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case stateRunning:
		return true
	case stateBackoff:
		if time.Now().Before(w.backoffUntil) {
			return false
		}
		w.state = stateIdle
		fallthrough
	case stateIdle:
		w.state = stateStarting
		if err := w.startLocked(); err != nil {
			w.log.Warn().Err(err).Msg("tagger worker failed to start")
			w.state = stateBackoff
			w.backoffUntil = time.Now().Add(backoffDuration)
			return false
		}
		w.state = stateRunning
		return true
	default:
		return false
	}
}

func (w *WorkerSupervisor) startLocked() error {
	cmd := exec.Command(w.command[0], w.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("opening stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting worker process: %w", err)
	}

	w.cmd = cmd
	w.stdin = stdin
	go w.readLoop(stdout)
	go func() {
		_ = cmd.Wait()
		w.onFatal(fmt.Errorf("tagger worker process exited"))
	}()
	return nil
}

func (w *WorkerSupervisor) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		var resp wireResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		w.mu.Lock()
		ch, ok := w.pending[resp.ID]
		if ok {
			delete(w.pending, resp.ID)
		}
		w.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// onFatal terminates the worker, rejects all pending calls, and enters
// backoff (spec.md §4.9 state machine).
func (w *WorkerSupervisor) onFatal(cause error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	for id, ch := range w.pending {
		ch <- wireResponse{ID: id, Error: cause.Error()}
	}
	w.pending = make(map[string]chan wireResponse)
	w.state = stateBackoff
	w.backoffUntil = time.Now().Add(backoffDuration)
	metrics.TaggerWorkerRestartsTotal.Inc()
	w.log.Warn().Err(cause).Msg("tagger worker reset")
}
