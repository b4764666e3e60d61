package notify

import (
	"errors"
	"strings"
	"testing"
	"time"

	mail "github.com/xhit/go-simple-mail/v2"

	"github.com/reservadesk/reservadesk/internal/model"
)

type sentMail struct {
	toName, to, subject, content string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(toName, to, subject, content string) error {
	f.sent = append(f.sent, sentMail{toName, to, subject, content})
	return f.err
}

func testReservation(status model.Status) model.Reservation {
	return model.Reservation{
		ID:     "r1",
		Name:   "Ana <script>",
		Email:  "ana@example.com",
		People: 4,
		Date:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		Status: status,
	}
}

func TestStatusChanged(t *testing.T) {
	tests := []struct {
		status      model.Status
		wantSubject string
	}{
		{model.StatusConfirmed, "Reserva confirmada"},
		{model.StatusCancelled, "Reserva cancelada"},
		{model.StatusPending, ""},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			sender := &fakeSender{}
			n := NewNotifier(sender)
			if err := n.StatusChanged(testReservation(tt.status)); err != nil {
				t.Fatalf("StatusChanged: %v", err)
			}
			if tt.wantSubject == "" {
				if len(sender.sent) != 0 {
					t.Fatalf("expected no mail, got %d", len(sender.sent))
				}
				return
			}
			if len(sender.sent) != 1 {
				t.Fatalf("expected 1 mail, got %d", len(sender.sent))
			}
			m := sender.sent[0]
			if m.subject != tt.wantSubject {
				t.Errorf("subject: got %q, want %q", m.subject, tt.wantSubject)
			}
			if m.to != "ana@example.com" {
				t.Errorf("to: got %q", m.to)
			}
			if strings.Contains(m.content, "<script>") {
				t.Error("guest name must be HTML escaped")
			}
			if !strings.Contains(m.content, "Personas: 4") {
				t.Errorf("missing party size in body: %s", m.content)
			}
		})
	}
}

func TestStatusChangedSendError(t *testing.T) {
	n := NewNotifier(&fakeSender{err: errors.New("boom")})
	if err := n.StatusChanged(testReservation(model.StatusConfirmed)); err == nil {
		t.Fatal("expected error from sender")
	}
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", opts: Options{}, wantNil: true},
		{name: "none", opts: Options{Provider: "none"}, wantNil: true},
		{name: "smtp", opts: Options{Provider: "smtp", SMTPHost: "localhost", SMTPPort: 25}},
		{name: "smtp without host", opts: Options{Provider: "smtp"}, wantErr: true},
		{name: "sendgrid", opts: Options{Provider: "SendGrid", SendgridAPIKey: "key"}},
		{name: "sendgrid without key", opts: Options{Provider: "sendgrid"}, wantErr: true},
		{name: "unknown", opts: Options{Provider: "pigeon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSender(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (s == nil) != tt.wantNil {
				t.Errorf("sender = %v, wantNil %v", s, tt.wantNil)
			}
		})
	}
}

func TestSMTPOptionMapping(t *testing.T) {
	s := NewSmtpMail("h", 587, "u", "p", false, "login", "Desk", "desk@example.com", "ssltls")
	if s.authType != mail.AuthLogin {
		t.Errorf("auth: got %v, want AuthLogin", s.authType)
	}
	if s.encryption != mail.EncryptionSSLTLS {
		t.Errorf("encryption: got %v, want EncryptionSSLTLS", s.encryption)
	}
	if got := encryptionType(""); got != mail.EncryptionSTARTTLS {
		t.Errorf("default encryption: got %v, want EncryptionSTARTTLS", got)
	}
	if got := authType("bogus"); got != mail.AuthNone {
		t.Errorf("default auth: got %v, want AuthNone", got)
	}
	if got := addressField("a@example.com", "A"); got != "A <a@example.com>" {
		t.Errorf("addressField: got %q", got)
	}
	if got := addressField("a@example.com", ""); got != "a@example.com" {
		t.Errorf("addressField without name: got %q", got)
	}
}
