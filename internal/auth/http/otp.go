package http

import (
	"net/http"

	"github.com/aussiebroadwan/lectern/internal/auth/domain"
	"github.com/aussiebroadwan/lectern/internal/auth/service"
	"github.com/aussiebroadwan/lectern/pkg/authsdk"
	"github.com/aussiebroadwan/lectern/pkg/errx"
	"github.com/aussiebroadwan/lectern/pkg/httpx"
)

type OTPHandler struct {
	AuthService *service.AuthService

	// ReturnCode echoes the issued code as devCode.
	ReturnCode bool
}

// HandleSend issues a one-time code.
//
//	@Summary		Send a one-time code
//	@Description	Issues a 6 digit code valid for OTP_TTL and delivers it by SMS. Registration requires that no account exists; login and password-reset require one.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SendOTPRequest	true	"Identifier and purpose"
//	@Success		200		{object}	authsdk.SendOTPResponse
//	@Failure		400		{object}	errx.Body	"VALIDATION_ERROR"
//	@Failure		404		{object}	errx.Body	"PRINCIPAL_NOT_FOUND"
//	@Failure		409		{object}	errx.Body	"PRINCIPAL_EXISTS"
//	@Failure		429		{object}	errx.Body	"RATE_LIMITED"
//	@Failure		502		{object}	errx.Body	"DELIVERY_FAILED"
//	@Router			/auth/send-otp [post].
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.SendOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	code, expiresAt, err := h.AuthService.SendOTP(r.Context(), req.Identifier, domain.OTPPurpose(req.Purpose))
	if err != nil {
		return err
	}

	resp := authsdk.SendOTPResponse{
		Message:   "verification code sent",
		ExpiresAt: expiresAt,
	}
	if h.ReturnCode {
		resp.DevCode = code
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// HandleVerify checks a code without signing in.
//
//	@Summary		Verify a one-time code
//	@Description	Checks a code and spends one attempt. Phone and email verification codes are consumed and mark the channel verified.
//	@Tags			OTP
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyOTPRequest	true	"Identifier, code and optional purpose"
//	@Success		200		{object}	authsdk.VerifyOTPResponse
//	@Failure		400		{object}	errx.Body	"INVALID_OTP or OTP_EXPIRED"
//	@Failure		429		{object}	errx.Body	"TOO_MANY_ATTEMPTS"
//	@Router			/auth/verify-otp [post].
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) error {
	var req authsdk.VerifyOTPRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.Code == "" {
		return errx.Validation("code is required")
	}
	ok, err := h.AuthService.VerifyOTP(r.Context(), req.Identifier, req.Code, domain.OTPPurpose(req.Purpose))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyOTPResponse{Verified: ok})
	return nil
}
