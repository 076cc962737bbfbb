package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/mail"
	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
	"go.uber.org/zap"
)

const (
	maxContactFieldLength   = 320
	maxContactMessageLength = 5000
)

// ContactInput is a contact form submission.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (in ContactInput) validate() error {
	return validation.For("contact message").
		Text("name", in.Name).
		MaxLength("name", in.Name, maxContactFieldLength).
		Email("email", in.Email).
		MaxLength("email", in.Email, maxContactFieldLength).
		Text("message", in.Message).
		MaxLength("message", in.Message, maxContactMessageLength).
		Err()
}

// SubmitContact stores a contact message and notifies the site owner. Notification
// failures are logged; the message stays stored.
func (r *Repository) SubmitContact(ctx context.Context, input ContactInput) (ContactMessage, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Message = strings.TrimSpace(input.Message)
	if err := input.validate(); err != nil {
		return ContactMessage{}, err
	}
	row := ContactMessageRow{
		Name:       input.Name,
		Email:      input.Email,
		Message:    input.Message,
		ReceivedAt: r.clock().UTC(),
	}
	id, err := r.contact.Create(ctx, "", &row)
	if err != nil {
		r.logError(opSubmitContact, "store_failed", err)
		return ContactMessage{}, newServiceError(opSubmitContact, "store_failed", err)
	}
	message := ContactMessage{ID: id, Name: row.Name, Email: row.Email, Message: row.Message, ReceivedAt: row.ReceivedAt}

	if r.mailer != nil && r.ownerEmail != "" {
		notification := mail.Message{
			To:      r.ownerEmail,
			Subject: fmt.Sprintf("Portfolio contact from %s", message.Name),
			Body:    fmt.Sprintf("From: %s <%s>\n\n%s\n", message.Name, message.Email, message.Message),
		}
		if err := r.mailer.Send(ctx, notification); err != nil {
			r.logError(opSubmitContact, "notify_failed", err, zap.String("message_id", id))
		}
	}
	return message, nil
}
