package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/medflow/medflow-dispensary/internal/dashboard/domain"
	"github.com/medflow/medflow-dispensary/pkg/errors"
)

// SubmitFeedback sends a staff message about the page at path.
func (s *DashboardService) SubmitFeedback(ctx context.Context, message, path string) (domain.Feedback, error) {
	message = strings.TrimSpace(message)
	switch {
	case message == "":
		return domain.Feedback{}, errors.Validation(map[string]string{"message": "is required"})
	case utf8.RuneCountInString(message) > domain.MaxFeedbackLength:
		return domain.Feedback{}, errors.Validation(map[string]string{
			"message": "must be at most " + strconv.Itoa(domain.MaxFeedbackLength) + " characters",
		})
	}

	fb := domain.Feedback{Message: message, PageOfOrigin: domain.PageOfOrigin(path)}
	if err := s.upstream.SubmitFeedback(ctx, fb); err != nil {
		return domain.Feedback{}, s.upstreamError(err, "failed to send feedback")
	}

	s.logger.Info().Str("page", fb.PageOfOrigin).Int("length", len(message)).Msg("feedback sent")
	return fb, nil
}

// TrackPage reports a page view. Failures are only logged.
func (s *DashboardService) TrackPage(ctx context.Context, page string) {
	if err := s.upstream.TrackPage(ctx, page); err != nil {
		s.logger.Warn().Err(err).Str("page", page).Msg("failed to track page view")
	}
}
