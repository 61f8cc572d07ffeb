package httptransport

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookie carries one notice across a redirect.
const FlashCookie = "console_flash"

const maxFlashLength = 512

// Flash kinds map onto alert styles in the layout.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time notice.
type Flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

func (h *Handler) setFlash(w http.ResponseWriter, kind, message string) {
	if len(message) > maxFlashLength {
		message = message[:maxFlashLength]
	}
	raw, err := json.Marshal(Flash{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and expires the notice. Tampered cookies read as none.
func (h *Handler) takeFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	switch f.Kind {
	case FlashSuccess, FlashError, FlashInfo:
	default:
		f.Kind = FlashInfo
	}
	return &f
}
