package api

import (
	"net/http"

	"github.com/tickerql/tickerql/internal/auth"
	"github.com/tickerql/tickerql/internal/schema"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"table":          deps.Descriptor.Table.Qualified(),
		"dialect":        deps.Descriptor.Dialect,
		"schema_version": schema.Version,
		"fields":         deps.Descriptor.Fields,
	})
}
