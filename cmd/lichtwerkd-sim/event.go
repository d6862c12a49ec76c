package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dev.acmcsuf.com/christmas/lib/xcolor"
	"dev.acmcsuf.com/lichtwerkd/effects"
)

// PreviewEvent is an SSE event sent to the preview page.
type PreviewEvent interface {
	Type() PreviewEventType
}

// PreviewEventType is the SSE event name.
type PreviewEventType string

const (
	PreviewEventTypeInit  PreviewEventType = "init"
	PreviewEventTypeError PreviewEventType = "error"
	PreviewEventTypeFrame PreviewEventType = "frame"
)

// PreviewInit is the first event of every session.
type PreviewInit struct {
	LEDCount     int    `json:"led_count"`
	SessionToken string `json:"session_token"`
}

func (PreviewInit) Type() PreviewEventType {
	return PreviewEventTypeInit
}

// PreviewError is sent right before the server ends a session.
type PreviewError struct {
	Message string `json:"message"`
}

func (PreviewError) Type() PreviewEventType {
	return PreviewEventTypeError
}

// PreviewFrame carries one rendered frame.
type PreviewFrame struct {
	Seq       uint64       `json:"seq"`
	LEDColors []xcolor.RGB `json:"led_colors"`
}

func (PreviewFrame) Type() PreviewEventType {
	return PreviewEventTypeFrame
}

func newPreviewFrame(seq uint64, leds []effects.RGB) PreviewFrame {
	colors := make([]xcolor.RGB, len(leds))
	for i, led := range leds {
		colors[i] = xcolor.RGB(led)
	}
	return PreviewFrame{Seq: seq, LEDColors: colors}
}

type sseEvent struct {
	Type string
	Data any
}

type writeFlusher interface {
	io.Writer
	http.Flusher
}

func writeSSE(w writeFlusher, ev sseEvent) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
	w.Flush()
}

func previewEventToSSE(event PreviewEvent) sseEvent {
	b, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	return sseEvent{
		Type: string(event.Type()),
		Data: b,
	}
}
