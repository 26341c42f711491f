// Package processtest provides a scripted process.Runner for tests.
//
// Responses are queued per tool base name; the last queued response repeats.
// Tools with no script behave as missing executables.
package processtest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/alnah/go-texsnap/internal/process"
)

// Response scripts the outcome of one invocation.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Timeout  bool

	// Files are written before Run returns. Relative names resolve against Command.Dir.
	Files map[string][]byte

	// Effect runs after Files are written. A non-nil error is returned from Run as is.
	Effect func(cmd process.Command) error
}

// Fail returns a response exiting with code and printing stdout.
func Fail(code int, stdout string) Response {
	return Response{ExitCode: code, Stdout: stdout}
}

// TimedOut returns a response reported as a timeout.
func TimedOut() Response {
	return Response{Timeout: true}
}

// WriteArg returns an Effect writing data to the path in argument i.
func WriteArg(i int, data []byte) func(process.Command) error {
	return func(cmd process.Command) error {
		if i < 0 {
			i = len(cmd.Args) + i
		}
		if i < 0 || i >= len(cmd.Args) {
			return fmt.Errorf("processtest: no argument %d in %s", i, cmd)
		}
		return writeFile(cmd.Dir, cmd.Args[i], data)
	}
}

// WriteArgExt is WriteArg for tools that take an output prefix and add ext.
func WriteArgExt(i int, ext string, data []byte) func(process.Command) error {
	return func(cmd process.Command) error {
		if i < 0 {
			i = len(cmd.Args) + i
		}
		if i < 0 || i >= len(cmd.Args) {
			return fmt.Errorf("processtest: no argument %d in %s", i, cmd)
		}
		return writeFile(cmd.Dir, cmd.Args[i]+ext, data)
	}
}

// PNG encodes a w x h image: a white canvas with a black box inset by border
// pixels on every side (no box when border*2 >= min(w, h)).
func PNG(w, h, border int) []byte {
	img := imaging.New(w, h, color.White)
	if border*2 < w && border*2 < h {
		box := imaging.New(w-2*border, h-2*border, color.Black)
		img = imaging.Paste(img, box, image.Pt(border, border))
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Runner is a scripted process.Runner. Safe for concurrent use.
type Runner struct {
	mu      sync.Mutex
	scripts map[string][]Response
	calls   []process.Command
}

// New returns a Runner with no scripted tools.
func New() *Runner {
	return &Runner{scripts: make(map[string][]Response)}
}

// On queues responses for the tool with the given base name.
func (r *Runner) On(name string, responses ...Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(responses) == 0 {
		responses = []Response{{}}
	}
	r.scripts[name] = append(r.scripts[name], responses...)
	return r
}

// Run implements process.Runner.
func (r *Runner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	name := filepath.Base(cmd.Name)

	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	queue, ok := r.scripts[name]
	var resp Response
	if ok {
		resp = queue[0]
		if len(queue) > 1 {
			r.scripts[name] = queue[1:]
		}
	}
	r.mu.Unlock()

	res := &process.Result{ExitCode: -1}
	if !ok {
		return res, fmt.Errorf("%w: %s", process.ErrNotFound, cmd.Name)
	}

	for rel, data := range resp.Files {
		if err := writeFile(cmd.Dir, rel, data); err != nil {
			return res, err
		}
	}
	if resp.Effect != nil {
		if err := resp.Effect(cmd); err != nil {
			return res, err
		}
	}

	res.Stdout = resp.Stdout
	res.Stderr = resp.Stderr
	if resp.Timeout {
		return res, fmt.Errorf("%w: %s after %s", process.ErrTimeout, cmd.Name, cmd.Timeout)
	}
	res.ExitCode = resp.ExitCode
	if resp.ExitCode != 0 {
		return res, fmt.Errorf("%w: %s exited with status %d", process.ErrExitStatus, cmd.Name, resp.ExitCode)
	}
	return res, nil
}

// LookPath resolves scripted tools under /usr/bin and fails for the rest,
// so a Resolver built on it agrees with Run about which tools exist.
func (r *Runner) LookPath(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scripts[filepath.Base(name)]; ok {
		if filepath.IsAbs(name) {
			return name, nil
		}
		return "/usr/bin/" + name, nil
	}
	return "", fmt.Errorf("%w: %s", process.ErrNotFound, name)
}

// Calls returns every command run so far, in order.
func (r *Runner) Calls() []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]process.Command(nil), r.calls...)
}

// CallsTo returns the commands run for the tool with the given base name.
func (r *Runner) CallsTo(name string) []process.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []process.Command
	for _, c := range r.calls {
		if filepath.Base(c.Name) == name {
			out = append(out, c)
		}
	}
	return out
}

func writeFile(dir, name string, data []byte) error {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, name)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("processtest: %w", err)
	}
	return nil
}
