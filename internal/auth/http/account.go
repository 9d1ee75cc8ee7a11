package http

import (
	"net/http"

	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/pkg/authsdk"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
	"github.com/aussiebroadwan/lectern/pkg/idx"
	"github.com/aussiebroadwan/lectern/pkg/slogx"
)

type AccountHandler struct {
	AuthService *service.AuthService
}

// HandleMe returns the signed in principal.
//
//	@Summary		Current user
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	errx.Body	"NO_TOKEN, INVALID_TOKEN, TOKEN_REVOKED or SESSION_TERMINATED"
//	@Router			/auth/me [get].
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) error {
	p, err := h.AuthService.Me(r.Context(), httpx.PrincipalIDFrom(r.Context()))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{User: toUserView(p)})
	return nil
}

// HandleForceLogout ends every session of another principal.
//
//	@Summary		Force logout
//	@Description	Terminates every session of the principal. Requires the admin role.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Principal ID"
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		403	{object}	errx.Body	"FORBIDDEN"
//	@Failure		404	{object}	errx.Body	"PRINCIPAL_NOT_FOUND"
//	@Router			/auth/admin/principals/{id}/logout [post].
func (h *AccountHandler) HandleForceLogout(w http.ResponseWriter, r *http.Request) error {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		return errx.Validation("principal id is not valid")
	}

	if err := h.AuthService.ForceLogout(r.Context(), id.String()); err != nil {
		return err
	}

	slogx.FromContext(r.Context()).Info("forced logout",
		"principal_id", id.String(),
		"admin_id", httpx.PrincipalIDFrom(r.Context()),
	)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "sessions terminated"})
	return nil
}

// HandleSetStatus suspends or reactivates another principal.
//
//	@Summary		Set principal status
//	@Description	Suspending also terminates the principal's session. Requires the admin role.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Principal ID"
//	@Param			request	body		authsdk.SetStatusRequest	true	"New status"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	errx.Body	"VALIDATION_ERROR"
//	@Failure		403		{object}	errx.Body	"FORBIDDEN"
//	@Failure		404		{object}	errx.Body	"PRINCIPAL_NOT_FOUND"
//	@Router			/auth/admin/principals/{id}/status [post].
func (h *AccountHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		return errx.Validation("principal id is not valid")
	}

	var req authsdk.SetStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	if err := h.AuthService.SetStatus(r.Context(), id.String(), req.Status); err != nil {
		return err
	}

	slogx.FromContext(r.Context()).Info("principal status changed",
		"principal_id", id.String(),
		"status", req.Status,
	)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "status updated"})
	return nil
}
