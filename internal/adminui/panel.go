package adminui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reservadesk/reservadesk/internal/model"
)

// Messages shown to the operator. Failures are reported as one generic
// line; details go to the returned error.
const (
	MsgLoadFailed     = "Error al cargar las reservas"
	MsgBadCredentials = "Credenciales inválidas"
	MsgCreateFailed   = "Error al crear la reserva"
	MsgConfirmFailed  = "Error al confirmar la reserva"
	MsgCancelFailed   = "Error al cancelar la reserva"
	MsgDeleteFailed   = "Error al eliminar la reserva"
	MsgSessionExpired = "La sesión ha expirado, inicie sesión de nuevo"
)

// ErrNoSelection is returned by the *Selected actions when nothing is
// selected.
var ErrNoSelection = errors.New("no reservation selected")

// EventDuration is the calendar length of a reservation.
const EventDuration = 2 * time.Hour

// Event is a calendar entry derived from a reservation.
type Event struct {
	Title       string
	Start       time.Time
	End         time.Time
	Reservation model.Reservation
}

// Panel is the admin session: login state, the loaded reservations, the
// current selection and the last error message.
type Panel struct {
	client *Client
	tokens TokenStore

	LoggedIn     bool
	Reservations []model.Reservation
	Selected     *model.Reservation
	Error        string

	token string
}

func NewPanel(client *Client, tokens TokenStore) *Panel {
	return &Panel{client: client, tokens: tokens}
}

// Init restores a stored session and loads the reservations. A stored token
// is trusted until the server rejects it.
func (p *Panel) Init(ctx context.Context) error {
	token, err := p.tokens.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	p.token = token
	p.LoggedIn = true
	return p.Refresh(ctx)
}

// Login authenticates, stores the token and loads the reservations.
func (p *Panel) Login(ctx context.Context, username, password string) error {
	p.Error = ""
	res, err := p.client.Login(ctx, username, password)
	if err != nil {
		p.Error = MsgBadCredentials
		return err
	}
	if err := p.tokens.Save(res.Token); err != nil {
		return err
	}
	p.token = res.Token
	p.LoggedIn = true
	return p.Refresh(ctx)
}

// Logout forgets the token and clears all session state.
func (p *Panel) Logout() error {
	p.reset()
	return p.tokens.Clear()
}

// Refresh reloads the reservation list.
func (p *Panel) Refresh(ctx context.Context) error {
	list, err := p.client.List(ctx, p.token)
	if err != nil {
		return p.fail(err, MsgLoadFailed)
	}
	p.Reservations = list
	return nil
}

// Select marks the reservation with the given ID as selected. It reports
// whether the ID is among the loaded reservations.
func (p *Panel) Select(id string) bool {
	for i := range p.Reservations {
		if p.Reservations[i].ID == id {
			r := p.Reservations[i]
			p.Selected = &r
			return true
		}
	}
	p.Selected = nil
	return false
}

// Create adds a reservation and reloads the list.
func (p *Panel) Create(ctx context.Context, in model.ReservationInput) (*model.Reservation, error) {
	p.Error = ""
	r, err := p.client.Create(ctx, p.token, in)
	if err != nil {
		return nil, p.fail(err, MsgCreateFailed)
	}
	return r, p.Refresh(ctx)
}

// ConfirmSelected sets the selected reservation to confirmed.
func (p *Panel) ConfirmSelected(ctx context.Context) error {
	return p.setSelectedStatus(ctx, model.StatusConfirmed, MsgConfirmFailed)
}

// CancelSelected sets the selected reservation to cancelled.
func (p *Panel) CancelSelected(ctx context.Context) error {
	return p.setSelectedStatus(ctx, model.StatusCancelled, MsgCancelFailed)
}

// DeleteSelected removes the selected reservation.
func (p *Panel) DeleteSelected(ctx context.Context) error {
	if p.Selected == nil {
		return ErrNoSelection
	}
	ref := model.ReservationRef{ID: p.Selected.ID, Version: p.Selected.Version}
	if err := p.client.Delete(ctx, p.token, ref); err != nil {
		return p.fail(err, MsgDeleteFailed)
	}
	return p.afterAction(ctx)
}

func (p *Panel) setSelectedStatus(ctx context.Context, status model.Status, failMsg string) error {
	if p.Selected == nil {
		return ErrNoSelection
	}
	patch := model.ReservationPatch{ID: p.Selected.ID, Version: p.Selected.Version, Status: &status}
	if _, err := p.client.Update(ctx, p.token, patch); err != nil {
		return p.fail(err, failMsg)
	}
	return p.afterAction(ctx)
}

func (p *Panel) afterAction(ctx context.Context) error {
	p.Selected = nil
	return p.Refresh(ctx)
}

// fail records msg, or ends the session when the server rejected the token.
func (p *Panel) fail(err error, msg string) error {
	if errors.Is(err, ErrUnauthorized) {
		p.reset()
		p.Error = MsgSessionExpired
		if cerr := p.tokens.Clear(); cerr != nil {
			return fmt.Errorf("%w (clear token: %v)", err, cerr)
		}
		return err
	}
	p.Error = msg
	return err
}

func (p *Panel) reset() {
	p.token = ""
	p.LoggedIn = false
	p.Reservations = nil
	p.Selected = nil
	p.Error = ""
}

// Events maps the loaded reservations to calendar entries.
func (p *Panel) Events() []Event {
	events := make([]Event, 0, len(p.Reservations))
	for _, r := range p.Reservations {
		events = append(events, Event{
			Title:       fmt.Sprintf("%s (%d)", r.Name, r.People),
			Start:       r.Date,
			End:         r.Date.Add(EventDuration),
			Reservation: r,
		})
	}
	return events
}
