package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/obralink/backend/internal/domain"
	"github.com/obralink/backend/internal/service"
)

// CaptureHandler is the browser redirect target after the buyer pays
// on the provider's site. It renders HTML, not JSON: the response is a
// confirmation or error page with a link back to the billing screen.
type CaptureHandler struct {
	capture service.CaptureService
	logger  *slog.Logger
}

// NewCaptureHandler creates a CaptureHandler.
func NewCaptureHandler(capture service.CaptureService, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{capture: capture, logger: logger}
}

var capturePage = template.Must(template.New("capture").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 32rem; margin: 4rem auto; padding: 0 1rem; color: #1f2937; }
h1 { font-size: 1.4rem; }
a { color: #2563eb; }
.ok { color: #15803d; }
.err { color: #b91c1c; }
</style>
</head>
<body>
<h1 class="{{.Class}}">{{.Title}}</h1>
<p>{{.Message}}</p>
<p><a href="/billing">Volver a facturación</a></p>
</body>
</html>
`))

type capturePageData struct {
	Title   string
	Class   string
	Message string
}

// Redirect handles GET /payments/{provider}/capture.
//
// The provider appends its own query parameter names, so the token is
// taken from the first one present. Missing tokens and provider
// failures render an error page; the webhook path retries
// independently, so nothing is lost.
func (h *CaptureHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	token := captureToken(r)
	if token == "" {
		h.render(w, http.StatusBadRequest, capturePageData{
			Title:   "Pago incompleto",
			Class:   "err",
			Message: "No recibimos la referencia del pago. Si ya pagaste, se acreditará en unos minutos.",
		})
		return
	}

	outcome, err := h.capture.HandleCapture(r.Context(), provider, token)
	if err != nil {
		h.logger.Error("redirect capture failed",
			"provider", provider,
			"error", err,
		)
		h.render(w, ErrorCodeToHTTPStatus(domain.ErrorCode(err)), capturePageData{
			Title:   "No pudimos confirmar tu pago",
			Class:   "err",
			Message: "El proveedor no confirmó el pago. Si el cargo aparece en tu cuenta, se acreditará automáticamente.",
		})
		return
	}

	switch outcome.Status {
	case service.CaptureFulfilled, service.CaptureAlreadyProcessed:
		h.render(w, http.StatusOK, capturePageData{
			Title:   "¡Pago confirmado!",
			Class:   "ok",
			Message: "Tu compra fue acreditada. Ya podés acceder desde tu cuenta.",
		})
	case service.CaptureNothingToFulfill:
		h.render(w, http.StatusOK, capturePageData{
			Title:   "Pago recibido",
			Class:   "ok",
			Message: "Estamos terminando de procesar tu pago. Se acreditará en unos minutos.",
		})
	case service.CaptureRejected:
		h.render(w, http.StatusOK, capturePageData{
			Title:   "Pago rechazado",
			Class:   "err",
			Message: "El proveedor rechazó el pago. No se realizó ningún cargo definitivo.",
		})
	}
}

func (h *CaptureHandler) render(w http.ResponseWriter, status int, data capturePageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := capturePage.Execute(w, data); err != nil {
		h.logger.Error("rendering capture page", "error", err)
	}
}

// captureToken pulls the provider's reference for the completed order
// out of the redirect query, whatever the provider called it.
func captureToken(r *http.Request) string {
	q := r.URL.Query()
	for _, key := range []string{"token", "payment_id", "collection_id"} {
		if v := q.Get(key); v != "" {
			return v
		}
	}
	return ""
}
