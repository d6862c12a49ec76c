package main

import (
	"context"

	"dev.acmcsuf.com/lichtwerkd"
	"github.com/go-chi/chi/v5"
	"libdb.so/hrt"
)

type adminHandler struct {
	*chi.Mux
	server     *lichtwerkd.Server
	controller *lichtwerkd.Controller
}

func newAdminHandler(server *lichtwerkd.Server, controller *lichtwerkd.Controller) *adminHandler {
	h := &adminHandler{
		Mux:        chi.NewRouter(),
		server:     server,
		controller: controller,
	}

	h.Use(hrt.Use(hrt.Opts{
		Encoder: hrt.CombinedEncoder{
			Encoder: hrt.JSONEncoder,
			Decoder: hrt.URLDecoder,
		},
		ErrorWriter: hrt.TextErrorWriter,
	}))

	h.Post("/kick-all", hrt.Wrap(h.kickAll))
	h.Post("/blackout", hrt.Wrap(h.blackout))

	return h
}

type kickAllRequest struct {
	Reason string `query:"reason"`
}

func (h *adminHandler) kickAll(ctx context.Context, req kickAllRequest) (hrt.None, error) {
	h.server.KickAllStreams(req.Reason)
	return hrt.Empty, nil
}

// blackout turns the strip off regardless of what the public API last set.
func (h *adminHandler) blackout(ctx context.Context, _ hrt.None) (hrt.None, error) {
	return hrt.Empty, h.controller.SetPower(false)
}
