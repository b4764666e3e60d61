package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/reservadesk/reservadesk/internal/model"
)

var statusTemplate = template.Must(template.New("status").Parse(`<p>Hola {{.Name}},</p>
<p>{{.Headline}}</p>
<ul>
<li>Fecha: {{.Date}}</li>
<li>Personas: {{.People}}</li>
</ul>
<p>Referencia: {{.ID}}</p>`))

var subjects = map[model.Status]string{
	model.StatusConfirmed: "Reserva confirmada",
	model.StatusCancelled: "Reserva cancelada",
}

var headlines = map[model.Status]string{
	model.StatusConfirmed: "Tu reserva ha sido confirmada.",
	model.StatusCancelled: "Tu reserva ha sido cancelada.",
}

// Notifier turns reservation status changes into guest mails.
type Notifier struct {
	sender Sender
}

// NewNotifier returns a Notifier that delivers through sender.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// StatusChanged mails the guest of r about its new status. Only confirmed
// and cancelled reservations produce a mail; other statuses are ignored.
func (n *Notifier) StatusChanged(r model.Reservation) error {
	subject, ok := subjects[r.Status]
	if !ok {
		return nil
	}

	body, err := renderStatus(r)
	if err != nil {
		return err
	}
	if err := n.sender.Send(r.Name, r.Email, subject, body); err != nil {
		return fmt.Errorf("notify %s: %w", r.ID, err)
	}
	return nil
}

func renderStatus(r model.Reservation) (string, error) {
	var buf bytes.Buffer
	err := statusTemplate.Execute(&buf, struct {
		Name     string
		Headline string
		Date     string
		People   int
		ID       string
	}{
		Name:     r.Name,
		Headline: headlines[r.Status],
		Date:     r.Date.UTC().Format(time.RFC1123),
		People:   r.People,
		ID:       r.ID,
	})
	if err != nil {
		return "", fmt.Errorf("render status mail: %w", err)
	}
	return buf.String(), nil
}
