package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

type listParams struct {
	Trigger *string
	Active  *bool
	Limit   *int
}

func bindListParams(r *http.Request) (listParams, error) {
	var p listParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "trigger", q, &p.Trigger); err != nil {
		return p, fmt.Errorf("invalid trigger: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "active", q, &p.Active); err != nil {
		return p, fmt.Errorf("invalid active: %w", err)
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &p.Limit); err != nil {
		return p, fmt.Errorf("invalid limit: %w", err)
	}
	return p, nil
}

func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", name, err))
		return "", false
	}
	return v, true
}
