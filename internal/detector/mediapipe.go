package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ScriptName is the perception service looked up when Config.ScriptPath is empty.
const ScriptName = "perception_service.py"

// Request task codes, sent as the first byte of every request.
const (
	taskHands byte = 'H'
	taskFaces byte = 'F'
)

// ErrScriptNotFound is returned when no perception service can be located.
var ErrScriptNotFound = errors.New(ScriptName + " not found")

// MediaPipeDetector implements Detector on top of a Python subprocess running MediaPipe
// hands and a face expression model.
//
// Each request is one task byte, a 4-byte big-endian length and a JPEG frame on stdin.
// The service answers with one JSON line on stdout.
type MediaPipeDetector struct {
	config    Config
	command   func() *exec.Cmd
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.ScriptPath
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("perception service: %w", err)
	}

	python := config.PythonPath
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	args := []string{
		script,
		"--max-hands", strconv.Itoa(config.MaxHands),
		"--max-faces", strconv.Itoa(config.MaxFaces),
		"--min-confidence", strconv.FormatFloat(config.MinConfidence, 'f', -1, 64),
		"--min-tracking", strconv.FormatFloat(config.MinTrackingConf, 'f', -1, 64),
	}

	return &MediaPipeDetector{
		config:  config,
		command: func() *exec.Cmd { return exec.Command(python, args...) },
	}, nil
}

type response struct {
	Hands []jsonHand `json:"hands"`
	Faces []jsonFace `json:"faces"`
	Error string     `json:"error,omitempty"`
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	resp, err := d.request(taskHands, frame)
	if err != nil {
		return nil, err
	}

	result := make([]HandLandmarks, len(resp.Hands))
	for i, h := range resp.Hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// DetectExpressions analyzes a frame and returns expression scores per face.
func (d *MediaPipeDetector) DetectExpressions(frame *gocv.Mat) ([]Expressions, error) {
	resp, err := d.request(taskFaces, frame)
	if err != nil {
		return nil, err
	}

	result := make([]Expressions, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		result = append(result, Expressions(f.Expressions))
	}
	return result, nil
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) request(task byte, frame *gocv.Mat) (*response, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	resp, err := d.roundTrip(task, buf.GetBytes())
	if err != nil {
		// The stream is out of sync after a failed exchange; restart on the next call.
		d.shutdown()
		return nil, err
	}

	d.resetIdleTimer()
	if resp.Error != "" {
		return nil, fmt.Errorf("perception service: %s", resp.Error)
	}
	return resp, nil
}

func (d *MediaPipeDetector) roundTrip(task byte, data []byte) (*response, error) {
	header := make([]byte, 5)
	header[0] = task
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	if _, err := d.stdin.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &resp, nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = d.command()

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start perception service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", ScriptName),
		filepath.Join("..", "scripts", ScriptName),
		filepath.Join(execDir, "scripts", ScriptName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".insideout", ScriptName))
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".insideout", "venv", "bin", "python"))
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

type jsonFace struct {
	Expressions map[string]float64 `json:"expressions"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	copy(lm.Points[:], h.Points)
	return lm
}
