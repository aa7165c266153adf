package geo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/backend"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// AddressBook is the saved-address surface of the PHP backend.
// backend.Client implements it.
type AddressBook interface {
	SavedAddresses(ctx context.Context, token string) ([]backend.SavedAddress, error)
	SaveAddress(ctx context.Context, token string, addr backend.SavedAddress) error
}

// Agent handles address management turns: it runs the extraction
// pipeline over the user's message, consults the saved address book for
// authenticated users, and auto-saves confirmed addresses.
type Agent struct {
	extractor *Extractor
	book      AddressBook
	zones     ZoneService
	log       *slog.Logger

	// background schedules the fire-and-forget address save.
	background func(func())
}

func NewAgent(extractor *Extractor, book AddressBook, zones ZoneService, background func(func())) *Agent {
	if background == nil {
		background = func(f func()) { go f() }
	}
	return &Agent{
		extractor:  extractor,
		book:       book,
		zones:      zones,
		log:        slog.Default().With("component", "address_agent"),
		background: background,
	}
}

var _ agent.Agent = (*Agent)(nil)

func (a *Agent) ID() string { return "address" }

func (a *Agent) Execute(ctx context.Context, ac *agent.Context) (*agent.Result, error) {
	var token string
	if sess := ac.Session; sess != nil {
		token = sess.Data.AuthToken
	}

	var saved []backend.SavedAddress
	if token != "" && a.book != nil {
		var err error
		if saved, err = a.book.SavedAddresses(ctx, token); err != nil {
			a.log.Warn("saved address lookup failed", "error", err)
		}
	}

	res := a.extractor.Extract(ctx, ac.Message, ExtractOptions{SavedAddresses: saved})
	if res.Err != nil {
		a.log.Warn("address extraction failed", "error", res.Err)
	}
	if !res.Success {
		prompt := res.ClarificationPrompt
		if prompt == "" {
			prompt = clarification().ClarificationPrompt
		}
		return &agent.Result{Response: prompt}, nil
	}

	addr := res.Address
	result := &agent.Result{
		Response: fmt.Sprintf("Got it, using this address:\n📍 %s", addr.Address),
		Metadata: map[string]any{
			"address_source":     string(addr.Source),
			"address_confidence": addr.Confidence,
		},
	}

	if addr.Latitude != nil && addr.Longitude != nil {
		lat, lng := *addr.Latitude, *addr.Longitude
		var zone *backend.Zone
		if a.zones != nil {
			if v := ValidateServiceableArea(ctx, a.zones, lat, lng); v.Valid {
				zone = &backend.Zone{ID: v.ZoneID, Name: v.ZoneName}
			} else {
				result.Response += "\n\n⚠️ This location may be outside our delivery area."
				a.log.Warn("address outside serviceable area", "error", v.Err)
			}
		}
		result.SessionPatch = func(d *session.Data) {
			d.Location = &session.Location{Latitude: lat, Longitude: lng, LastUpdate: time.Now().Unix()}
			if zone != nil {
				d.ZoneID = &zone.ID
				d.ZoneName = zone.Name
			}
		}
	}

	a.maybeSave(token, addr)
	return result, nil
}

// maybeSave persists a newly extracted address off the response path.
// Saved-address hits are already in the book; entries without a type
// label, or explicitly skipped, are not stored.
func (a *Agent) maybeSave(token string, addr *ExtractedAddress) {
	if a.book == nil || token == "" {
		return
	}
	if addr.Source == SourceSavedAddress {
		return
	}
	if addr.Metadata.AddressType == "" || addr.Metadata.AddressType == "skip" {
		return
	}
	if addr.Latitude == nil || addr.Longitude == nil {
		return
	}

	entry := backend.SavedAddress{
		Address:      addr.Address,
		AddressType:  addr.Metadata.AddressType,
		Latitude:     *addr.Latitude,
		Longitude:    *addr.Longitude,
		ContactName:  addr.Metadata.ContactName,
		ContactPhone: addr.Metadata.ContactPhone,
		Road:         addr.Metadata.Road,
		House:        addr.Metadata.House,
		Floor:        addr.Metadata.Floor,
	}
	a.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.book.SaveAddress(ctx, token, entry); err != nil {
			a.log.Warn("address auto-save failed", "error", err)
		}
	})
}
