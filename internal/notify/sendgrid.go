package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridHost = "https://api.sendgrid.com"

type SendgridApiMail struct {
	apiKey   string
	fromName string
	from     string
	host     string
}

func NewSendgridApiMail(apiKey, fromName, from string) *SendgridApiMail {
	return &SendgridApiMail{apiKey: apiKey, fromName: fromName, from: from, host: sendgridHost}
}

func (o *SendgridApiMail) Send(toName, to, subject, content string) error {
	m := mail.NewV3Mail()

	m.SetFrom(mail.NewEmail(o.fromName, o.from))
	m.AddContent(mail.NewContent("text/html", content))

	personalization := mail.NewPersonalization()
	personalization.AddTos(mail.NewEmail(toName, to))
	personalization.Subject = subject
	m.AddPersonalizations(personalization)

	request := sendgrid.GetRequest(o.apiKey, "/v3/mail/send", o.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(m)
	resp, err := sendgrid.API(request)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
