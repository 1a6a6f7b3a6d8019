package emailsvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/trezcool/tutortrack/core"
)

const mailgunSendTimeout = 30 * time.Second

type mailgunService struct {
	mg         mailgun.Mailgun
	from       string
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*mailgunService)(nil)

func NewMailgunService(conf *core.Config, logger core.Logger) core.EmailService {
	return &mailgunService{
		mg:         mailgun.NewMailgun(conf.Email.MailgunDomain, conf.Email.MailgunAPIKey),
		from:       conf.DefaultFromEmail.String(),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *mailgunService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go func(msg *core.EmailMessage) {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email: %v", err), err)
				return
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				svc.send(*msg)
			}
		}(msg)
	}
}

func (svc *mailgunService) prepare(msg core.EmailMessage) *mailgun.Message {
	m := svc.mg.NewMessage(svc.from, svc.subjPrefix+msg.Subject, msg.TextContent, addresses(msg.To)...)
	for _, cc := range msg.Cc {
		m.AddCC(cc.String())
	}
	for _, bcc := range msg.Bcc {
		m.AddBCC(bcc.String())
	}
	if msg.HTMLContent != "" {
		m.SetHtml(msg.HTMLContent)
	}
	for _, at := range msg.Attachments {
		m.AddBufferAttachment(at.Filename, at.Content)
	}
	return m
}

func (svc *mailgunService) send(msg core.EmailMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), mailgunSendTimeout)
	defer cancel()

	if _, _, err := svc.mg.Send(ctx, svc.prepare(msg)); err != nil {
		svc.logger.Error(fmt.Sprintf("sending email: %v", err), err)
	}
}

func addresses(addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

// New returns the EmailService selected by conf.Email.Backend.
func New(conf *core.Config, logger core.Logger) core.EmailService {
	switch conf.Email.Backend {
	case "sendgrid":
		return NewSendgridService(conf, logger)
	case "mailgun":
		return NewMailgunService(conf, logger)
	default:
		return NewConsoleService(conf, logger)
	}
}
