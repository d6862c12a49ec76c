package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"dev.acmcsuf.com/lichtwerkd"
	"dev.acmcsuf.com/lichtwerkd/effects"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"gopkg.in/typ.v4/sync2"
)

var errSessionClosed = errors.New("session closed by server")

type sessionsHandler struct {
	controller *lichtwerkd.Controller
	frameRate  int
	logger     *slog.Logger

	sessions sync2.Map[string, context.CancelCauseFunc]
}

func (m *sessionsHandler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	wflush, ok := w.(writeFlusher)
	if !ok {
		http.Error(w, "server does not support flushing", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancelCause(r.Context())
	defer cancel(nil)

	token := m.addSession(cancel)
	defer m.sessions.Delete(token)

	m.logger.Info(
		"new session created",
		"token", token)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	init := previewEventToSSE(PreviewInit{
		LEDCount:     m.controller.Status().LEDCount,
		SessionToken: token,
	})
	writeSSE(wflush, init)

	frameTicker := time.NewTicker(time.Second / time.Duration(m.frameRate))
	defer frameTicker.Stop()

	var frame []effects.RGB
	var lastSeq uint64

frameLoop:
	for {
		select {
		case <-ctx.Done():
			break frameLoop
		case <-frameTicker.C:
			var seq uint64
			frame, seq = m.controller.Frame(frame)
			if seq == lastSeq {
				continue
			}
			lastSeq = seq

			writeSSE(wflush, previewEventToSSE(newPreviewFrame(seq, frame)))

			m.logger.Debug(
				"session frame sent",
				"token", token,
				"seq", seq)
		}
	}

	if cause := context.Cause(ctx); errors.Is(cause, errSessionClosed) {
		writeSSE(wflush, previewEventToSSE(PreviewError{
			Message: cause.Error(),
		}))
	}

	m.logger.Info(
		"session has been closed",
		"token", token)
}

func (m *sessionsHandler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	cancel, ok := m.sessions.Load(token)
	if !ok || cancel == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	cancel(errSessionClosed)
	w.WriteHeader(http.StatusNoContent)
}

func (m *sessionsHandler) addSession(cancel context.CancelCauseFunc) string {
	for {
		uuid, err := uuid.NewV7()
		if err != nil {
			panic(err)
		}

		token := uuid.String()
		if _, collided := m.sessions.LoadOrStore(token, cancel); !collided {
			return token
		}
	}
}
