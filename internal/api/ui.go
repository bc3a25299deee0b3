package api

import (
	"net/http"

	"github.com/talkdb/talkdb/internal/config"
)

type uiTheme struct {
	PrimaryHue   string `json:"primary_hue"`
	SecondaryHue string `json:"secondary_hue"`
}

var defaultTheme = uiTheme{PrimaryHue: "blue", SecondaryHue: "green"}

func handleUIConfig(cfg config.Config, w http.ResponseWriter, _ *http.Request) {
	examples := cfg.Chat.Examples
	if examples == nil {
		examples = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title":         cfg.Chat.Title,
		"description":   cfg.Chat.Description,
		"examples":      examples,
		"theme":         defaultTheme,
		"include_steps": cfg.Chat.IncludeSteps,
	})
}

func handleUISchema(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Database == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "database dependency is not configured", false, nil)
		return
	}

	names, err := deps.Database.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema context", true, map[string]any{"details": err.Error()})
		return
	}
	tables, err := deps.Database.Describe(r.Context(), names, cfg.Database.SampleRows)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema context", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dialect": deps.Database.Dialect(),
		"tables":  tables,
	})
}
