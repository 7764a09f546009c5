package view

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/page"
)

// Opener hands a URL to an external program.
type Opener func(url string) error

// CommandOpener runs command with the URL as its only argument, without
// waiting for it to exit.
func CommandOpener(command string) Opener {
	return func(url string) error {
		fields := strings.Fields(command)
		if len(fields) == 0 {
			return fmt.Errorf("view: empty browser command")
		}
		cmd := exec.Command(fields[0], append(fields[1:], url)...)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("view: start %s: %w", fields[0], err)
		}
		go func() { _ = cmd.Wait() }()
		return nil
	}
}

// Headless is the console View used by the one-shot commands. Fragments and
// text updates are printed, questions are read from the input stream.
type Headless struct {
	mu       sync.Mutex
	in       *bufio.Reader
	out      io.Writer
	lines    chan string
	readOnce sync.Once
	opener   Opener
	reloaded chan struct{}
	once     sync.Once
	visible  map[string]bool
	lastURL  string
}

// HeadlessOption configures a Headless view.
type HeadlessOption func(*Headless)

// WithInput sets where answers are read from.
func WithInput(r io.Reader) HeadlessOption {
	return func(h *Headless) { h.in = bufio.NewReader(r) }
}

// WithOutput sets where fragments and questions are written.
func WithOutput(w io.Writer) HeadlessOption {
	return func(h *Headless) { h.out = w }
}

// WithOpener opens navigated URLs, e.g. in a browser.
func WithOpener(o Opener) HeadlessOption {
	return func(h *Headless) { h.opener = o }
}

// NewHeadless creates a console view on stdin/stdout.
func NewHeadless(opts ...HeadlessOption) *Headless {
	h := &Headless{
		in:       bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		lines:    make(chan string),
		reloaded: make(chan struct{}),
		visible:  map[string]bool{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Headless) Confirm(ctx context.Context, message string) bool {
	answer, ok := h.ask(ctx, message+" (y/N): ")
	if !ok {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// Prompt returns the answer as typed, without the line ending.
func (h *Headless) Prompt(ctx context.Context, message string) (string, bool) {
	return h.ask(ctx, message+" ")
}

// readLines is the only reader of the input. A line read while nobody is
// asking waits for the next question, so a cancelled question does not
// swallow it.
func (h *Headless) readLines(in *bufio.Reader) {
	defer close(h.lines)
	for {
		text, err := in.ReadString('\n')
		if text != "" || err == nil {
			h.lines <- strings.TrimRight(text, "\r\n")
		}
		if err != nil {
			return
		}
	}
}

func (h *Headless) ask(ctx context.Context, question string) (string, bool) {
	h.mu.Lock()
	fmt.Fprint(h.out, question)
	in := h.in
	h.mu.Unlock()
	h.readOnce.Do(func() { go h.readLines(in) })

	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-h.lines:
		if !ok {
			// Input closed: decline.
			return "", false
		}
		return line, true
	}
}

func (h *Headless) Navigate(url string) {
	h.mu.Lock()
	h.lastURL = url
	opener := h.opener
	h.mu.Unlock()

	colors.Info("Navigate: " + url)
	if opener != nil {
		if err := opener(url); err != nil {
			colors.Warning(err.Error())
		}
	}
}

// LastNavigation returns the most recent navigated URL.
func (h *Headless) LastNavigation() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastURL
}

func (h *Headless) Reload() {
	colors.Info("Page reload requested")
	h.once.Do(func() { close(h.reloaded) })
}

// Reloaded is closed on the first Reload.
func (h *Headless) Reloaded() <-chan struct{} {
	return h.reloaded
}

func (h *Headless) RenderFragment(region, html string) {
	doc, err := page.ParseFragment(html)
	if err != nil {
		colors.Debug("render " + region + ": " + err.Error())
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "── %s ──\n", region)
	for _, line := range doc.Lines() {
		fmt.Fprintln(h.out, "  "+line)
	}
}

func (h *Headless) SetVisible(region string, visible bool) {
	h.mu.Lock()
	h.visible[region] = visible
	h.mu.Unlock()
	colors.Debug(fmt.Sprintf("region %s visible=%t", region, visible))
}

func (h *Headless) SetText(region, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, "%s: %s\n", displayRegion(region), text)
}

func (h *Headless) SetControl(formID string, disabled bool, label string) {
	colors.Debug(fmt.Sprintf("form %s submit disabled=%t label=%q", formID, disabled, label))
}

// displayRegion strips the attribute from stat regions.
func displayRegion(region string) string {
	if _, key, ok := strings.Cut(region, "="); ok {
		return key
	}
	return region
}
