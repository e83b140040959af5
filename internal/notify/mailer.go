package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type MailerConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	From         string
	ContactInbox string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type mail struct {
	to      string
	replyTo string
	subject string
	body    string
}

// Mailer delivers notifications over SMTP.
type Mailer struct {
	cfg  MailerConfig
	send sendFunc
	now  func() time.Time
}

func NewMailer(cfg MailerConfig) *Mailer {
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.ContactInbox == "" {
		cfg.ContactInbox = cfg.From
	}
	return &Mailer{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

func (m *Mailer) Dispatch(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	mails, err := m.compose(n)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	for _, ml := range mails {
		msg, err := m.encode(ml)
		if err != nil {
			return err
		}
		if err := m.send(addr, auth, m.cfg.From, []string{ml.to}, msg); err != nil {
			return fmt.Errorf("send %s mail: %w", n.Kind, err)
		}
	}

	logger.FromCtx(ctx).Info("notification mailed",
		zap.String("kind", string(n.Kind)),
		zap.String("order_id", n.OrderID),
		zap.Int("mails", len(mails)),
	)
	return nil
}

func (m *Mailer) compose(n Notification) ([]mail, error) {
	data := struct {
		Notification
		Date string
	}{n, m.now().Format("02 Jan 2006 15:04")}

	switch n.Kind {
	case KindContactMessage:
		inbox, err := render(contactTmpl, data)
		if err != nil {
			return nil, err
		}
		reply, err := render(contactReplyTmpl, data)
		if err != nil {
			return nil, err
		}
		return []mail{
			{to: m.cfg.ContactInbox, replyTo: n.Email, subject: "Contact Request from " + n.Name, body: inbox},
			{to: n.Email, subject: "We've received your message", body: reply},
		}, nil
	default:
		body, err := render(orderTmpl, data)
		if err != nil {
			return nil, err
		}
		return []mail{{to: n.To, subject: orderSubjects[n.Kind] + " - " + n.OrderID, body: body}}, nil
	}
}

func (m *Mailer) encode(ml mail) ([]byte, error) {
	for _, v := range []string{m.cfg.From, ml.to, ml.replyTo} {
		if strings.ContainsAny(v, "\r\n") {
			return nil, ErrUnsafeHeader
		}
	}

	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + ml.to + "\r\n")
	if ml.replyTo != "" {
		b.WriteString("Reply-To: " + ml.replyTo + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", ml.subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(ml.body)
	return []byte(b.String()), nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

var orderSubjects = map[Kind]string{
	KindOrderPlaced:    "Order Confirmation",
	KindOrderCancelled: "Order Cancelled",
	KindOrderDelivered: "Order Delivered",
}

var orderTmpl = template.Must(template.New("order").Parse(`
{{- if eq .Kind "order.placed"}}<h2>Thank you for your order!</h2>
{{- else if eq .Kind "order.cancelled"}}<h2>Your order has been cancelled</h2>
{{- else}}<h2>Your order has been delivered successfully!</h2>{{end}}
<p><strong>Order ID:</strong> {{.OrderID}}</p>
{{- if .PaymentType}}
<p><strong>Payment Method:</strong> {{.PaymentType}}</p>{{end}}
<p><strong>Date:</strong> {{.Date}}</p>
<p><strong>Products:</strong></p>
<p>{{range $i, $item := .Items}}{{if $i}}<br>{{end}}{{$item.Quantity}}x {{$item.Name}} - &#8377;{{$item.UnitPrice}}{{end}}</p>
<p><strong>Total Amount:</strong> &#8377;{{.Amount}}</p>
`))

var contactTmpl = template.Must(template.New("contact").Parse(`
<h3>New Message from the Contact Form</h3>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}N/A{{end}}</p>
<p><strong>Message:</strong><br>{{.Message}}</p>
`))

var contactReplyTmpl = template.Must(template.New("contact_reply").Parse(`
<h3>Hi {{.Name}},</h3>
<p>Thank you for contacting us. We've received your message and will get back to you shortly.</p>
<p><strong>Your Message:</strong><br>{{.Message}}</p>
`))
