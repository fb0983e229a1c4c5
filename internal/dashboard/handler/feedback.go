package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/medflow/medflow-dispensary/pkg/errors"
	"github.com/medflow/medflow-dispensary/pkg/httputil"
)

// Values of ?feedback after the feedback form redirects back.
const (
	feedbackSent    = "sent"
	feedbackInvalid = "invalid"
	feedbackFailed  = "failed"
)

const trackTimeout = 5 * time.Second

// FeedbackForm sends the message typed in the layout's feedback box and
// returns to the page it was sent from.
// POST /feedback
func (h *DashboardHandler) FeedbackForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	page := localPath(r.PostForm.Get("page"))

	outcome := feedbackSent
	if _, err := h.svc.SubmitFeedback(r.Context(), r.PostForm.Get("message"), page); err != nil {
		outcome = feedbackFailed
		var appErr *errors.AppError
		if errors.As(err, &appErr) && appErr.StatusCode == http.StatusBadRequest {
			outcome = feedbackInvalid
		}
	}

	http.Redirect(w, r, withQuery(page, "feedback", outcome), http.StatusSeeOther)
}

type feedbackRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	Page    string `json:"page" validate:"omitempty,max=200"`
}

// SubmitFeedback forwards a message about a page to the inventory service.
// POST /api/v1/feedback
func (h *DashboardHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, r, err)
		return
	}

	fb, err := h.svc.SubmitFeedback(r.Context(), req.Message, localPath(req.Page))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, fb)
}

// trackPages reports every page view to the inventory service in the
// background. The page never waits on it and failures are only logged.
func (h *DashboardHandler) trackPages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			page := r.URL.RequestURI()
			ctx := context.WithoutCancel(r.Context())
			go func() {
				ctx, cancel := context.WithTimeout(ctx, trackTimeout)
				defer cancel()
				h.svc.TrackPage(ctx, page)
			}()
		}
		next.ServeHTTP(w, r)
	})
}

// localPath keeps redirects on this site: anything that is not an absolute
// local path becomes the home page.
func localPath(p string) string {
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") ||
		strings.HasPrefix(p, "//") || strings.ContainsRune(p, '\\') {
		return "/"
	}
	return u.Path
}

func withQuery(path, key, value string) string {
	return path + "?" + url.Values{key: {value}}.Encode()
}
