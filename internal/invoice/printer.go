package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/obs"
)

// Printer hands a document to some output device.
type Printer interface {
	Print(ctx context.Context, doc Document) error
	Kind() string
}

// DiscardPrinter drops documents. Used when printing is disabled.
type DiscardPrinter struct{}

func (DiscardPrinter) Print(context.Context, Document) error { return nil }
func (DiscardPrinter) Kind() string { return "none" }

// SpoolPrinter writes each rendered invoice into Dir, where the host print
// facility picks it up. Files appear atomically.
type SpoolPrinter struct {
	Dir      string
	Renderer Renderer
	// Text selects plain-text output instead of HTML.
	Text bool
}

func (p SpoolPrinter) Kind() string { return "spool" }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (p SpoolPrinter) Print(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, ext := p.Renderer.RenderText(doc), ".txt"
	if !p.Text {
		html, err := p.Renderer.RenderHTML(doc)
		if err != nil {
			return err
		}
		body, ext = html, ".html"
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("invoice: spool dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s", unsafeName.ReplaceAllString(doc.Number, "_"), doc.IssuedAt.UTC().Format("20060102T150405"), ext)
	tmp, err := os.CreateTemp(p.Dir, ".spool-*")
	if err != nil {
		return fmt.Errorf("invoice: spool: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("invoice: spool write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("invoice: spool close: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(p.Dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("invoice: spool rename: %w", err)
	}
	return nil
}

// CommandPrinter pipes the text rendering into an external command such as lp.
type CommandPrinter struct {
	Command  string
	Args     []string
	Renderer Renderer
}

func (p CommandPrinter) Kind() string { return "command" }

func (p CommandPrinter) Print(ctx context.Context, doc Document) error {
	if p.Command == "" {
		return errors.New("invoice: print command not configured")
	}
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Stdin = bytes.NewReader(p.Renderer.RenderText(doc))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("invoice: %s: %w: %s", p.Command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// TaskPrint is the asynq task type carrying a Document to the print worker.
const TaskPrint = "invoice:print"

// Enqueuer is the part of asynq.Client used by QueuePrinter.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueuePrinter defers printing to cmd/worker through an asynq queue.
type QueuePrinter struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
}

func (p QueuePrinter) Kind() string { return "queue" }

// NewPrintTask encodes doc as a print task.
func NewPrintTask(doc Document) (*asynq.Task, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("invoice: encode task: %w", err)
	}
	return asynq.NewTask(TaskPrint, payload), nil
}

func (p QueuePrinter) Print(ctx context.Context, doc Document) error {
	task, err := NewPrintTask(doc)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Timeout(time.Minute)}
	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	if p.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(p.MaxRetry))
	}
	if _, err := p.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("invoice: enqueue print: %w", err)
	}
	return nil
}

// PrintHandler consumes print tasks in the worker.
type PrintHandler struct {
	Printer Printer
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h PrintHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var doc Document
	if err := json.Unmarshal(t.Payload(), &doc); err != nil {
		// A payload that does not decode will never succeed.
		return fmt.Errorf("invoice: decode task: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Printer.Print(ctx, doc); err != nil {
		h.Logger.Warn().Err(err).Str("invoice", doc.Number).Msg("invoice_print_failed")
		return err
	}
	h.Logger.Info().Str("invoice", doc.Number).Str("printer", h.Printer.Kind()).Msg("invoice_printed")
	return nil
}

// Instrument wraps p so every print is counted in pos_invoice_prints_total.
func Instrument(p Printer) Printer { return instrumented{p} }

type instrumented struct{ Printer }

func (i instrumented) Print(ctx context.Context, doc Document) error {
	err := i.Printer.Print(ctx, doc)
	result := "ok"
	if err != nil {
		result = "error"
	}
	obs.Inc(obs.InvoicePrints, i.Printer.Kind(), result)
	return err
}
