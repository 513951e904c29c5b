package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// pathUUID binds the {name} path parameter as a UUID the way generated
// oapi-codegen routers do.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return id, nil
}

// pathUUIDs binds several UUID path parameters, writing a 422 and reporting
// false on the first failure.
func pathUUIDs(w http.ResponseWriter, r *http.Request, names ...string) ([]uuid.UUID, bool) {
	ids := make([]uuid.UUID, len(names))
	for i, name := range names {
		id, err := pathUUID(r, name)
		if err != nil {
			requestError(w, err)
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

// queryParam binds an optional form-style query parameter into dest.
func queryParam(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

// requiredQueryParam is queryParam for a parameter that must be present.
func requiredQueryParam(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, true, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}
