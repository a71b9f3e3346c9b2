package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"zerde.org/internal/audit"
	"zerde.org/internal/grant"
	"zerde.org/internal/obs"
	"zerde.org/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

type introspectRequest struct {
	AccessToken string `json:"access_token"`
}

type introspectionResponse struct {
	Active bool           `json:"active"`
	Grant  string         `json:"grant,omitempty"`
	Access []grant.Access `json:"access,omitempty"`
	Client string         `json:"client,omitempty"`
}

type rotateResponse struct {
	AccessToken rotatedToken `json:"access_token"`
}

type rotatedToken struct {
	Value     string         `json:"value"`
	Manage    string         `json:"manage"`
	ExpiresIn int32          `json:"expires_in"`
	Access    []grant.Access `json:"access,omitempty"`
}

// handleIntrospect answers a resource server's validity query. The response is
// always 200: invalid, expired and never-issued token values are all the same
// inactive body, so the endpoint leaks nothing about which values exist.
func (a *API) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	value := strings.TrimSpace(req.AccessToken)
	if value == "" {
		writeError(w, r, http.StatusBadRequest, "access_token is required")
		return
	}

	res, err := a.tokens.Introspect(r.Context(), value)
	if err != nil {
		obs.TokenOperation("introspect", "error")
		writeError(w, r, http.StatusInternalServerError, "introspection failed")
		return
	}
	if !res.Active {
		obs.TokenOperation("introspect", "inactive")
		writeJSON(w, http.StatusOK, introspectionResponse{Active: false})
		return
	}
	obs.TokenOperation("introspect", "active")
	writeJSON(w, http.StatusOK, introspectionResponse{
		Active: true,
		Grant:  res.GrantID,
		Access: res.Access,
		Client: res.ClientID,
	})
}

// handleTokenRevoke deletes the token addressed by the path id, provided the
// request's bearer value is that token's current secret. Every outcome except
// a malformed request or a store failure is 204: already revoked, expired,
// never issued and mismatched bearer are indistinguishable on purpose.
func (a *API) handleTokenRevoke(w http.ResponseWriter, r *http.Request) {
	managementID := chi.URLParam(r, "id")
	value, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	if err := a.tokens.Authorize(r.Context(), managementID, value); err != nil {
		if errors.Is(err, token.ErrNotFound) {
			obs.TokenOperation("revoke", "noop")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		obs.TokenOperation("revoke", "error")
		writeError(w, r, http.StatusInternalServerError, "revocation failed")
		return
	}

	if err := a.tokens.Revoke(r.Context(), managementID); err != nil {
		obs.TokenOperation("revoke", "error")
		writeError(w, r, http.StatusInternalServerError, "revocation failed")
		return
	}
	obs.TokenOperation("revoke", "ok")
	_ = audit.LogEvent(r.Context(), "token.revoked", map[string]any{
		"management_id": managementID,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleTokenRotate replaces the addressed token with fresh credentials. This
// is the only operation that surfaces 404: its caller needs to know whether to
// retry the rotation or start a fresh grant. A mismatched bearer yields the
// same 404 as a missing token.
func (a *API) handleTokenRotate(w http.ResponseWriter, r *http.Request) {
	managementID := chi.URLParam(r, "id")
	value, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	if err := a.tokens.Authorize(r.Context(), managementID, value); err != nil {
		a.rotateError(w, r, err)
		return
	}
	rot, err := a.tokens.Rotate(r.Context(), managementID)
	if err != nil {
		a.rotateError(w, r, err)
		return
	}

	obs.TokenOperation("rotate", "ok")
	_ = audit.LogEvent(r.Context(), "token.rotated", map[string]any{
		"management_id":     managementID,
		"new_management_id": rot.Token.ManagementID,
		"grant_id":          rot.Token.GrantID,
	})
	writeJSON(w, http.StatusOK, rotateResponse{
		AccessToken: rotatedToken{
			Value:     rot.Token.Value,
			Manage:    a.manageURL(rot.Token.ManagementID),
			ExpiresIn: rot.Token.ExpiresIn,
			Access:    rot.Access,
		},
	})
}

func (a *API) rotateError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, token.ErrNotFound) {
		obs.TokenOperation("rotate", "not_found")
		writeError(w, r, http.StatusNotFound, "token not found")
		return
	}
	obs.TokenOperation("rotate", "error")
	writeError(w, r, http.StatusInternalServerError, "rotation failed")
}

func (a *API) manageURL(managementID string) string {
	return a.baseURL + "/token/" + managementID
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	value := strings.TrimSpace(header[len(bearer):])
	if value == "" {
		return "", errors.New("missing bearer token")
	}
	return value, nil
}
