// Package callbackserver serves the page confirmation links land on.
//
// The tokens a confirmation link carries are in the URL fragment, which
// browsers never send to the server. The landing page therefore posts its
// own location back to /verify-email/complete, where the engine handles it.
package callbackserver

import (
	"context"
	"net/http"
	"time"

	authflow "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/internal/logging"
	"github.com/gin-gonic/gin"
)

// Callbacks handles a callback URL. [authflow.Engine] implements it.
type Callbacks interface {
	HandleCallback(ctx context.Context, rawURL string) (authflow.CallbackResult, error)
}

type Handler struct {
	callbacks     Callbacks
	log           *logging.Logger
	redirectDelay time.Duration
}

func NewHandler(callbacks Callbacks, log *logging.Logger, redirectDelay time.Duration) *Handler {
	return &Handler{
		callbacks:     callbacks,
		log:           log,
		redirectDelay: redirectDelay,
	}
}

// Router returns a gin engine with the callback routes mounted.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/verify-email", h.page)
	r.POST("/verify-email/complete", h.complete)
	r.GET("/login", h.login)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

type completeRequest struct {
	URL string `json:"url" binding:"required"`
}

type completeResponse struct {
	State           string `json:"state"`
	Message         string `json:"message"`
	Type            string `json:"type,omitempty"`
	ProfileCreated  bool   `json:"profile_created"`
	RedirectPath    string `json:"redirect_path,omitempty"`
	RedirectAfterMS int64  `json:"redirect_after_ms,omitempty"`
}

func (h *Handler) page(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage))
}

func (h *Handler) login(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
}

func (h *Handler) complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	res, err := h.callbacks.HandleCallback(c.Request.Context(), req.URL)
	out := completeResponse{
		State:          string(res.State),
		Message:        res.Message,
		Type:           res.Type,
		ProfileCreated: res.ProfileCreated,
	}
	if res.RedirectScheduled {
		out.RedirectPath = res.RedirectPath
		out.RedirectAfterMS = h.redirectDelay.Milliseconds()
	}
	if err != nil {
		h.log.Warn("callback failed", "flow_id", res.FlowID, "error", err)
		c.JSON(http.StatusBadGateway, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

const landingPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Verify email</title></head>
<body>
<p id="status">Processing verification...</p>
<script>
fetch("/verify-email/complete", {
  method: "POST",
  headers: {"Content-Type": "application/json"},
  body: JSON.stringify({url: window.location.href})
})
  .then(function (r) { return r.json(); })
  .then(function (res) {
    document.getElementById("status").textContent = res.message || res.error;
    if (res.redirect_path) {
      setTimeout(function () { window.location.assign(res.redirect_path); }, res.redirect_after_ms || 0);
    }
  })
  .catch(function (err) {
    document.getElementById("status").textContent = "Failed to verify email: " + err;
  });
</script>
</body>
</html>
`

const loginPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Sign in</title></head>
<body><p>Your email is verified. Sign in with <code>authflow login</code>.</p></body>
</html>
`
