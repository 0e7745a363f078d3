package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-edge/internal/plugin"
)

// installPluginRequest is the POST /plugins payload.
type installPluginRequest struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`

	// Replace hot-swaps an already registered protocol. Honoured only when
	// plugin replacement is enabled in configuration.
	Replace bool `json:"replace"`
}

// handleListPlugins returns every registered plugin in registration order.
func (s *Server) handleListPlugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

// handleListProtocols returns the names of registered protocols.
func (s *Server) handleListProtocols(w http.ResponseWriter, r *http.Request) {
	metas := s.registry.List()
	names := make([]string, 0, len(metas))
	for _, m := range metas {
		names = append(names, m.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"protocols": names})
}

// handleInstallPlugin loads a driver module from disk and registers it.
//
// The plugin record is persisted so the driver is reloaded on restart.
// Persistence failure after a successful load is reported but does not
// unload the driver; the registry is the runtime source of truth.
func (s *Server) handleInstallPlugin(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeConflict, "plugin loading is disabled")
		return
	}

	var req installPluginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Path == "" {
		writeBadRequest(w, "name and path are required")
		return
	}

	if req.Replace && !s.pluginsCfg.AllowReplace {
		writeError(w, http.StatusForbidden, ErrCodeForbidden, "plugin replacement is disabled")
		return
	}

	var (
		handle *plugin.Handle
		err    error
	)
	if req.Replace {
		handle, err = s.loader.Reload(req.Name, req.Path, req.Description)
	} else {
		handle, err = s.loader.Load(req.Name, req.Path, req.Description)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.pluginRepo != nil {
		if perr := s.persistPlugin(r, handle.Meta(), req.Replace); perr != nil {
			s.logger.Error("persisting plugin record",
				"protocol", req.Name, "error", perr)
		}
	}

	writeJSON(w, http.StatusCreated, handle.Meta())
}

// persistPlugin records an installed plugin so it survives restarts.
func (s *Server) persistPlugin(r *http.Request, meta plugin.Meta, replace bool) error {
	ctx := r.Context()
	if replace {
		if err := s.pluginRepo.DeleteByName(ctx, meta.Name); err != nil &&
			!errors.Is(err, plugin.ErrProtocolNotFound) {
			return err
		}
	}
	rec := plugin.Record{
		Name:        meta.Name,
		Path:        meta.Path,
		Kind:        meta.Kind,
		Description: meta.Description,
	}
	return s.pluginRepo.Create(ctx, &rec)
}
