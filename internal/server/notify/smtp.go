package notify

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

// DefaultSendTimeout bounds a single delivery from dial to QUIT.
const DefaultSendTimeout = 10 * time.Second

// SMTPNotifier delivers messages through an SMTP relay. STARTTLS is used
// when the relay offers it and PLAIN auth when a user is configured.
type SMTPNotifier struct {
	host     string
	port     int
	user     string
	password string
	from     string
	timeout  time.Duration
}

func NewSMTPNotifier(addr, user, password, from string) (*SMTPNotifier, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("smtp addr %q: invalid port", addr)
	}
	return &SMTPNotifier{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		timeout:  DefaultSendTimeout,
	}, nil
}

func (n *SMTPNotifier) SendVerification(ctx context.Context, to Recipient, link string) error {
	return n.send(ctx, VerificationMessage(to, link))
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, to Recipient) error {
	return n.send(ctx, WelcomeMessage(to))
}

func (n *SMTPNotifier) send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg, err := n.compose(m)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(n.host, n.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.To, err)
	}
	return nil
}

func (n *SMTPNotifier) compose(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("sender %q: %w", n.from, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, m.Body)
	return msg, nil
}

func (n *SMTPNotifier) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(n.port),
		mail.WithTimeout(n.timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(dialWithDeadline),
	}
	if n.user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.user),
			mail.WithPassword(n.password),
		)
	}
	return opts
}

// dialWithDeadline copies the context deadline onto the connection so a
// relay that accepts and then goes silent cannot hold the caller.
func dialWithDeadline(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}
