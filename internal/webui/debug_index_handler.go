package webui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/davecgh/go-spew/spew"

	"hesapkit.com/internal/i18n"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

var dataTypes = []string{"config", "calculators", "categories", "guides", "routes", "rates", "messages_en", "messages_tr"}

type debugData struct {
	Title     string
	Pre       string
	DataTypes []string
}

const redacted = "[redacted]"

func writeDebugData(w http.ResponseWriter, title string, data any) {
	content := spew.Sdump(data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{Title: title, Pre: content, DataTypes: dataTypes})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	dataType := r.URL.Query().Get("dataType")

	var data any
	var title string

	a := webUI.app
	switch dataType {
	case "config":
		cfg := *a.Config
		if cfg.Indexing.Secret != "" {
			cfg.Indexing.Secret = redacted
		}
		if cfg.Indexing.IndexNowKey != "" {
			cfg.Indexing.IndexNowKey = redacted
		}
		if cfg.Redis.Password != "" {
			cfg.Redis.Password = redacted
		}
		data = cfg
		title = "Configuration"
	case "calculators":
		data = a.Catalog.Calculators
		title = "Catalog - Calculators"
	case "categories":
		data = a.Catalog.Categories
		title = "Catalog - Categories"
	case "guides":
		data = a.Catalog.Guides
		title = "Catalog - Guides"
	case "routes":
		routes := make(map[string]map[string]string)
		for _, e := range a.Catalog.Entries() {
			paths := make(map[string]string, len(i18n.Locales))
			for _, l := range i18n.Locales {
				paths[l] = a.Catalog.URL(e.Key, l)
			}
			routes[e.Key] = paths
		}
		data = routes
		title = "Localized Routes"
	case "rates":
		data = a.Engine.Rates()
		title = "Rate Tables"
	case "messages_en":
		data = a.Messages.Prefix(i18n.English, "")
		title = "Messages - English"
	case "messages_tr":
		data = a.Messages.Prefix(i18n.Turkish, "")
		title = "Messages - Turkish"
	default:
		data = map[string][]string{"choose one of": dataTypes}
		title = "Choose a data type"
	}

	writeDebugData(w, title, data)
}
