// Package notify delivers the account emails: the verification link sent
// at signup and the welcome message sent once an address is confirmed.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Recipient identifies who a message is addressed to.
type Recipient struct {
	Email string
	Name  string
}

// Notifier sends account emails. Implementations must be safe for
// concurrent use.
type Notifier interface {
	SendVerification(ctx context.Context, to Recipient, link string) error
	SendWelcome(ctx context.Context, to Recipient) error
}

// Message is a rendered plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func greeting(to Recipient) string {
	if name := strings.TrimSpace(to.Name); name != "" {
		return "Hi " + name + ","
	}
	return "Hi,"
}

// VerificationMessage renders the email carrying the verification link.
func VerificationMessage(to Recipient, link string) Message {
	return Message{
		To:      to.Email,
		Subject: "Confirm your email address",
		Body: fmt.Sprintf("%s\n\nPlease confirm your email address by opening the link below:\n\n%s\n\n"+
			"If you did not create an account, you can ignore this message.\n", greeting(to), link),
	}
}

// WelcomeMessage renders the email sent after a successful verification.
func WelcomeMessage(to Recipient) Message {
	return Message{
		To:      to.Email,
		Subject: "Welcome!",
		Body:    fmt.Sprintf("%s\n\nYour email address is confirmed and your account is ready to use.\n", greeting(to)),
	}
}
