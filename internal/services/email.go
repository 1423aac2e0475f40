package services

import (
	"context"
	"fmt"
	"log/slog"

	"stepout/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendFriendInvite sends the contact invite email using the "friend_invite" template.
func (s *emailService) SendFriendInvite(ctx context.Context, data *domain.FriendInviteEmailData) error {
	if data == nil {
		return fmt.Errorf("friend invite email data is nil")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("friend_invite", data)
	if err != nil {
		return fmt.Errorf("failed to render friend_invite template: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send friend invite email: %w", err)
	}
	s.logger.InfoContext(ctx, "friend invite email sent", "invite_id", data.InviteID)
	return nil
}
