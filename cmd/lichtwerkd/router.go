package main

import (
	"net/http"

	"dev.acmcsuf.com/lichtwerkd"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
)

func httpRouter(server *lichtwerkd.Server, httpLogger *httplog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httpLogger))
	r.Mount("/", server)
	return r
}
