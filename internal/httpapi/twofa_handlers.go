package httpapi

import (
	"errors"
	"net/http"

	"identra.org/internal/obs"
	"identra.org/internal/twofactor"
)

// handleTwoFactorGenerate provisions a fresh seed for the caller, persists
// the encrypted form and sends the first code out of band. The plaintext
// seed and pairing URL appear once, in this response, and nowhere else.
func (a *API) handleTwoFactorGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	enr, err := a.challenge.Enroll(principal.Username)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	u, err := a.users.SetTwoFactorSecret(r.Context(), principal.Username, enr.Encrypted)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	delivery := "sent"
	code, err := a.challenge.IssueCurrentCode(enr.Encrypted)
	if err == nil {
		err = a.notifier.SendCode(r.Context(), u.Email, "Your verification code", code)
	}
	if err != nil {
		// Enrollment stands even when delivery fails; the client still
		// holds the pairing URL.
		delivery = "failed"
		obs.LogError("two-factor code delivery failed", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"cause":      err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seed":     enr.Seed,
		"url":      enr.URL,
		"delivery": delivery,
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (a *API) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		var req verifyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, "code is required")
			return
		}
		code = req.Code
	}
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	u, err := a.userStore.FindByUsername(r.Context(), principal.Username)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if u.TwoFactorSecret == "" {
		writeError(w, r, http.StatusBadRequest, "two-factor is not enrolled")
		return
	}

	valid, err := a.challenge.Verify(u.TwoFactorSecret, code)
	if err != nil {
		if errors.Is(err, twofactor.ErrDecrypt) {
			obs.LogError("stored two-factor seed is unreadable", map[string]any{
				"request_id": RequestIDFromContext(r.Context()),
				"username":   principal.Username,
			})
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if !valid {
		writeError(w, r, http.StatusForbidden, "invalid verification code")
		return
	}
	if err := a.users.ConfirmTwoFactor(r.Context(), principal.Username); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (a *API) handleTwoFactorReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	if err := a.users.ResetTwoFactor(r.Context(), principal.Username); err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
