// Package webui serves developer debug pages. It is only mounted outside
// production.
package webui

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"hesapkit.com/internal/app"
)

type WebUI struct {
	app *app.Application
}

func New(a *app.Application) *WebUI {
	return &WebUI{app: a}
}

func (webUI *WebUI) SetRoutes(router *httprouter.Router) {
	router.Handler(http.MethodGet, "/debug/", http.HandlerFunc(webUI.debugIndexHandler))
}
