package lichtwerkd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/sync/errgroup"
)

type closeFrame struct {
	Code   ws.StatusCode
	Reason string
}

func (f closeFrame) encode() []byte {
	return ws.NewCloseFrameBody(f.Code, f.Reason)
}

// websocketServer pushes binary messages to a single client. Anything the
// client sends other than control frames is discarded.
type websocketServer struct {
	// Sending is a channel of messages to send to the client.
	Sending chan []byte

	wsconn io.ReadWriteCloser
	logger *slog.Logger
}

func newWebsocketServer(wsconn io.ReadWriteCloser, logger *slog.Logger) *websocketServer {
	return &websocketServer{
		Sending: make(chan []byte),
		wsconn:  wsconn,
		logger:  logger,
	}
}

// Send sends a message to the client. The message must not be modified
// until the next call to Send returns.
func (s *websocketServer) Send(ctx context.Context, msg []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.Sending <- msg:
		return nil
	}
}

// Start runs the connection until ctx is cancelled or the client goes away.
// If ctx was cancelled with a cause, the cause is sent as the close reason.
func (s *websocketServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		defer cancel()

		var buf bytes.Buffer
		buf.Grow(64)

		for {
			_, err := wsReadData(&buf, s.wsconn, ws.StateServerSide, ws.OpBinary|ws.OpText)
			if err != nil {
				var closedErr wsutil.ClosedError
				if errors.As(err, &closedErr) {
					s.logger.Debug(
						"received close frame from client")

					return nil
				}

				if ctx.Err() != nil {
					return nil
				}

				s.logger.Debug(
					"failed to read from websocket",
					"error", err.Error())

				return fmt.Errorf("failed to read from websocket: %w", err)
			}
		}
	})

	// Only this goroutine writes to the connection.
	errg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return s.close(ctx)

			case msg := <-s.Sending:
				s.setWriteDeadline(time.Now().Add(writeTimeout))
				if err := wsutil.WriteServerBinary(s.wsconn, msg); err != nil {
					s.wsconn.Close()
					return fmt.Errorf("failed to write to websocket: %w", err)
				}
			}
		}
	})

	return errg.Wait()
}

func (s *websocketServer) close(ctx context.Context) error {
	reason := "stream closed"
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		reason = cause.Error()
	}

	frame := closeFrame{
		Code:   ws.StatusGoingAway,
		Reason: reason,
	}

	s.logger.Debug(
		"sending close frame to client",
		"code", frame.Code,
		"reason", frame.Reason)

	s.setWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteFrame(s.wsconn, ws.NewCloseFrame(frame.encode())); err != nil {
		s.logger.Debug(
			"failed to write close frame",
			"error", err.Error())
	}

	if err := s.wsconn.Close(); err != nil {
		s.logger.Warn(
			"failed to close websocket",
			"error", err.Error())

		return fmt.Errorf("failed to close websocket: %w", err)
	}

	return nil
}

func (s *websocketServer) setWriteDeadline(t time.Time) {
	if d, ok := s.wsconn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		d.SetWriteDeadline(t)
	}
}

const writeTimeout = 5 * time.Second

func wsReadData(dst *bytes.Buffer, src io.ReadWriter, s ws.State, want ws.OpCode) (ws.OpCode, error) {
	controlHandler := wsutil.ControlFrameHandler(src, s)
	rd := wsutil.Reader{
		Source:          src,
		State:           s,
		SkipHeaderCheck: false,
		OnIntermediate:  controlHandler,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return 0, err
		}
		if hdr.OpCode.IsControl() {
			if err := controlHandler(hdr, &rd); err != nil {
				return 0, err
			}
			continue
		}
		if hdr.OpCode&want == 0 {
			if err := rd.Discard(); err != nil {
				return 0, err
			}
			continue
		}

		dst.Reset()
		_, err = io.Copy(dst, &rd)
		return hdr.OpCode, err
	}
}
