// Package mailing relays bulk questionnaire-access e-mails to the
// automation backend.
package mailing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRecipients is returned when a dispatch has no complete recipient.
var ErrNoRecipients = errors.New("mailing: no recipients")

// Recipient is one addressee of the questionnaire e-mail.
type Recipient struct {
	Email   string `json:"email"`
	Empresa string `json:"empresa"`
	Link    string `json:"link"`
}

func (r Recipient) complete() bool {
	return r.Email != "" && r.Empresa != "" && r.Link != ""
}

// Sender is shown as the author of the e-mails.
type Sender struct {
	Nome  string `json:"nome"`
	Cargo string `json:"cargo"`
}

// Dispatch is the payload posted to the e-mail webhook.
type Dispatch struct {
	Remetente     Sender      `json:"remetente"`
	Destinatarios []Recipient `json:"destinatarios"`
}

// UpstreamError carries a non-2xx answer from the e-mail webhook.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("mailing: upstream status %d", e.Status)
	}
	return fmt.Sprintf("mailing: upstream status %d: %s", e.Status, e.Body)
}

// ParseRecipients reads one "email;empresa;link" entry per line. Fields are
// trimmed and lines missing any of the three are dropped.
func ParseRecipients(text string) []Recipient {
	var out []Recipient
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, ";")
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		r := Recipient{
			Email:   strings.TrimSpace(parts[0]),
			Empresa: strings.TrimSpace(parts[1]),
			Link:    strings.TrimSpace(parts[2]),
		}
		if r.complete() {
			out = append(out, r)
		}
	}
	return out
}

func completeOnly(in []Recipient) []Recipient {
	out := make([]Recipient, 0, len(in))
	for _, r := range in {
		r.Email = strings.TrimSpace(r.Email)
		r.Empresa = strings.TrimSpace(r.Empresa)
		r.Link = strings.TrimSpace(r.Link)
		if r.complete() {
			out = append(out, r)
		}
	}
	return out
}
