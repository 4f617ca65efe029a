package mailing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praiagrande/sst-portal/internal/mailing"
	"github.com/praiagrande/sst-portal/internal/webhook"
)

func newService(t *testing.T, handler http.HandlerFunc) *mailing.Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return mailing.NewService(webhook.NewCaller("internal-secret", time.Second, nil), srv.URL, nil)
}

func TestSendPostsDispatch(t *testing.T) {
	var got mailing.Dispatch
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "internal-secret", r.Header.Get(webhook.InternalTokenHeader))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	err := svc.Send(context.Background(), mailing.Dispatch{
		Remetente: mailing.Sender{Nome: "Ana", Cargo: "Técnica"},
		Destinatarios: []mailing.Recipient{
			{Email: "a@x.com", Empresa: "X", Link: "https://x"},
			{Email: "b@x.com", Empresa: "X"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, mailing.Sender{Nome: "Ana", Cargo: "Técnica"}, got.Remetente)
	assert.Equal(t, []mailing.Recipient{{Email: "a@x.com", Empresa: "X", Link: "https://x"}}, got.Destinatarios)
}

func TestSendWithoutRecipientsSkipsNetwork(t *testing.T) {
	called := false
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := svc.Send(context.Background(), mailing.Dispatch{Destinatarios: []mailing.Recipient{{Email: "a@x.com"}}})

	assert.ErrorIs(t, err, mailing.ErrNoRecipients)
	assert.False(t, called)
}

func TestSendSurfacesUpstreamText(t *testing.T) {
	svc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "smtp indisponível", http.StatusBadGateway)
	})

	err := svc.Send(context.Background(), mailing.Dispatch{Destinatarios: []mailing.Recipient{{Email: "a@x.com", Empresa: "X", Link: "l"}}})

	var upstream *mailing.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
	assert.Equal(t, "smtp indisponível", upstream.Body)
}
