package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// FriendInviteEmailData holds data for the friend invite email.
type FriendInviteEmailData struct {
	Email      string
	SenderName string
	InviteID   string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendFriendInvite(ctx context.Context, data *FriendInviteEmailData) error
}
