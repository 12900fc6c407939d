package main

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-terminal/internal/invoice"
)

type recordingPrinter struct{ printed []string }

func (p *recordingPrinter) Kind() string { return "recording" }

func (p *recordingPrinter) Print(_ context.Context, doc invoice.Document) error {
	p.printed = append(p.printed, doc.Number)
	return nil
}

func TestMuxRoutesPrintTasks(t *testing.T) {
	printer := &recordingPrinter{}
	mux := newMux(printer, zerolog.Nop())

	task, err := invoice.NewPrintTask(invoice.Document{Number: "INV-2026-0042"})
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	require.Equal(t, []string{"INV-2026-0042"}, printer.printed)
}

func TestMuxRejectsUnknownTasks(t *testing.T) {
	mux := newMux(&recordingPrinter{}, zerolog.Nop())
	err := mux.ProcessTask(context.Background(), asynq.NewTask("invoice:unknown", nil))
	require.Error(t, err)
}
