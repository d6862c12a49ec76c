package lichtwerkd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dev.acmcsuf.com/lichtwerkd/effects"
	"github.com/go-chi/chi/v5"
	"github.com/gobwas/ws"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"
	"gopkg.in/typ.v4/sync2"
	"libdb.so/hrt"
)

// DefaultFrameRate is the rate at which frames are streamed to clients.
const DefaultFrameRate = 20

// ServerOpts are options for a server.
type ServerOpts struct {
	// Controller is the controller that requests are applied to.
	Controller *Controller
	// Logger is the logger to use for the server.
	Logger *slog.Logger
	// HTTPUpgrader is the HTTP-to-Websocket upgrader used for frame streams.
	HTTPUpgrader ws.HTTPUpgrader
	// FrameRate is the maximum number of frames per second sent to each
	// stream. It defaults to DefaultFrameRate.
	FrameRate int
}

// Server handles all HTTP requests for the API.
type Server struct {
	*chi.Mux
	opts    ServerOpts
	streams sync2.Map[string, context.CancelCauseFunc]
}

// NewServer creates a new server.
func NewServer(opts ServerOpts) *Server {
	if opts.FrameRate <= 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		Mux:  chi.NewRouter(),
		opts: opts,
	}

	s.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(hrt.Use(hrt.Opts{
				Encoder: hrt.CombinedEncoder{
					Encoder: hrt.JSONEncoder,
					Decoder: hrt.URLDecoder,
				},
				ErrorWriter: hrt.TextErrorWriter,
			}))

			r.Get("/status", hrt.Wrap(s.getStatus))
			r.Get("/effects", hrt.Wrap(s.listEffects))
		})

		r.Group(func(r chi.Router) {
			r.Use(hrt.Use(hrt.Opts{
				Encoder:     hrt.JSONEncoder,
				ErrorWriter: hrt.TextErrorWriter,
			}))

			r.Post("/power", hrt.Wrap(s.setPower))
			r.Post("/brightness", hrt.Wrap(s.setBrightness))
			r.Post("/speed", hrt.Wrap(s.setSpeed))
			r.Post("/color", hrt.Wrap(s.setColor))
			r.Post("/effect", hrt.Wrap(s.setEffect))
			r.Post("/theater_mode", hrt.Wrap(s.setTheaterMode))
			r.Post("/color_mode", hrt.Wrap(s.setColorMode))
		})

		r.Get("/frames", s.serveFrames)
	})

	return s
}

type okResponse struct {
	Status string `json:"status"`
}

var okStatus = okResponse{Status: "ok"}

func (s *Server) getStatus(ctx context.Context, _ hrt.None) (Status, error) {
	return s.opts.Controller.Status(), nil
}

type effectsResponse struct {
	Effects []string `json:"effects"`
}

func (s *Server) listEffects(ctx context.Context, _ hrt.None) (effectsResponse, error) {
	return effectsResponse{Effects: s.opts.Controller.Effects()}, nil
}

type powerRequest struct {
	Power bool `json:"power"`
}

type powerResponse struct {
	okResponse
	Power bool `json:"power"`
}

func (s *Server) setPower(ctx context.Context, req powerRequest) (powerResponse, error) {
	if err := s.opts.Controller.SetPower(req.Power); err != nil {
		// The state did change; only the hardware write failed.
		s.opts.Logger.WarnContext(ctx,
			"failed to clear strip",
			"error", err)
	}
	return powerResponse{okStatus, req.Power}, nil
}

type brightnessRequest struct {
	Brightness *int `json:"brightness"`
}

type brightnessResponse struct {
	okResponse
	Brightness int `json:"brightness"`
}

func (s *Server) setBrightness(ctx context.Context, req brightnessRequest) (brightnessResponse, error) {
	brightness := s.opts.Controller.SetBrightness(orDefault(req.Brightness, 100))
	return brightnessResponse{okStatus, brightness}, nil
}

type speedRequest struct {
	Speed *int `json:"speed"`
}

type speedResponse struct {
	okResponse
	Speed int `json:"speed"`
}

func (s *Server) setSpeed(ctx context.Context, req speedRequest) (speedResponse, error) {
	speed := s.opts.Controller.SetSpeed(orDefault(req.Speed, 50))
	return speedResponse{okStatus, speed}, nil
}

type colorRequest struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

type colorResponse struct {
	okResponse
	Color effects.RGB `json:"color"`
}

func (s *Server) setColor(ctx context.Context, req colorRequest) (colorResponse, error) {
	color := s.opts.Controller.SetColor(
		orDefault(req.R, 255),
		orDefault(req.G, 255),
		orDefault(req.B, 255))
	return colorResponse{okStatus, color}, nil
}

type effectRequest struct {
	Effect string `json:"effect"`
}

type effectResponse struct {
	okResponse
	Effect string `json:"effect"`
}

func (s *Server) setEffect(ctx context.Context, req effectRequest) (effectResponse, error) {
	if req.Effect == "" {
		req.Effect = "solid"
	}
	if err := s.opts.Controller.SetEffect(req.Effect); err != nil {
		if errors.Is(err, ErrUnknownEffect) {
			return effectResponse{}, hrt.WrapHTTPError(http.StatusBadRequest, err)
		}
		return effectResponse{}, err
	}
	return effectResponse{okStatus, req.Effect}, nil
}

type theaterModeRequest struct {
	Rainbow bool `json:"rainbow"`
}

type theaterModeResponse struct {
	okResponse
	TheaterRainbow bool `json:"theaterRainbow"`
}

func (s *Server) setTheaterMode(ctx context.Context, req theaterModeRequest) (theaterModeResponse, error) {
	s.opts.Controller.SetTheaterMode(req.Rainbow)
	return theaterModeResponse{okStatus, req.Rainbow}, nil
}

type colorModeRequest struct {
	Mode string `json:"mode"`
}

type colorModeResponse struct {
	okResponse
	ColorMode string `json:"colorMode"`
}

func (s *Server) setColorMode(ctx context.Context, req colorModeRequest) (colorModeResponse, error) {
	if req.Mode == "" {
		req.Mode = effects.ColorModeChanging
	}
	if err := s.opts.Controller.SetColorMode(req.Mode); err != nil {
		return colorModeResponse{}, hrt.WrapHTTPError(http.StatusBadRequest, err)
	}
	return colorModeResponse{okStatus, req.Mode}, nil
}

func orDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// KickAllStreams closes all frame streams. Optionally, a reason can be
// provided.
func (s *Server) KickAllStreams(reason string) {
	var err error
	if reason != "" {
		err = fmt.Errorf("kicked: %s", reason)
	} else {
		err = fmt.Errorf("kicked")
	}

	s.streams.Range(func(id string, cancel context.CancelCauseFunc) bool {
		if cancel != nil {
			cancel(err)
		}
		return true
	})
}

// serveFrames upgrades the request to a websocket and streams the rendered
// frames to it.
func (s *Server) serveFrames(w http.ResponseWriter, r *http.Request) {
	wsconn, _, _, err := s.opts.HTTPUpgrader.Upgrade(r, w)
	if err != nil {
		s.opts.Logger.Debug(
			"failed to upgrade frame stream",
			"error", err)
		return
	}

	id := s.addStream()
	logger := s.opts.Logger.With(
		"stream", id,
		"addr", wsconn.RemoteAddr())

	ctx, cancel := context.WithCancelCause(r.Context())
	s.streams.Store(id, cancel)
	defer func() {
		s.streams.Delete(id)
		cancel(nil)
	}()

	logger.Info(
		"frame stream opened")

	if err := s.streamFrames(ctx, newWebsocketServer(wsconn, logger)); err != nil {
		logger.Warn(
			"frame stream ended with error",
			"error", err)
		return
	}

	logger.Info(
		"frame stream closed")
}

func (s *Server) streamFrames(ctx context.Context, conn *websocketServer) error {
	errg, ctx := errgroup.WithContext(ctx)

	// Start returning nil means the client went away; the producer must
	// stop too, which errgroup only does on an error.
	errg.Go(func() error {
		if err := conn.Start(ctx); err != nil {
			return err
		}
		return errStreamEnded
	})

	errg.Go(func() error {
		ticker := time.NewTicker(time.Second / time.Duration(s.opts.FrameRate))
		defer ticker.Stop()

		var frame []effects.RGB
		var lastSeq uint64

		// The writer may still be sending the previous message, so
		// alternate between two buffers.
		var msgs [2][]byte
		var msgIx int

		for first := true; ; first = false {
			var seq uint64
			frame, seq = s.opts.Controller.Frame(frame)
			if first || seq != lastSeq {
				lastSeq = seq
				msgIx ^= 1
				msgs[msgIx] = appendFrame(msgs[msgIx][:0], seq, frame)
				if err := conn.Send(ctx, msgs[msgIx]); err != nil {
					return nil
				}
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if err := errg.Wait(); err != nil && !errors.Is(err, errStreamEnded) {
		return err
	}
	return nil
}

var errStreamEnded = errors.New("frame stream ended")

func (s *Server) addStream() string {
	for {
		id, err := uuid.NewV7()
		if err != nil {
			panic(err)
		}

		token := id.String()
		if _, collided := s.streams.LoadOrStore(token, nil); !collided {
			return token
		}
	}
}
