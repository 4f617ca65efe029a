package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UIStateCookieName identifies the browser's UI state record. It is
// unrelated to the identity session cookie and never carries credentials.
const UIStateCookieName = "portal_ui"

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// UIStore keeps short-lived presentation state (CSRF token, flash notices)
// in Redis, keyed by a random id held in a cookie.
type UIStore struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// UIState is the per-request view of a UIStore record.
type UIState struct {
	ID        string
	values    map[string]string
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type uiPayload struct {
	Values  map[string]string `json:"values"`
	Flashes []FlashMessage    `json:"flashes"`
}

// NewUIStore constructs a UIStore.
func NewUIStore(client *redis.Client, ttl time.Duration, secure bool) *UIStore {
	return &UIStore{client: client, ttl: ttl, secure: secure}
}

// Load returns the state for r, starting a fresh one when the cookie is
// missing or its record has expired.
func (s *UIStore) Load(ctx context.Context, r *http.Request) (*UIState, error) {
	cookie, err := r.Cookie(UIStateCookieName)
	if err != nil || cookie.Value == "" {
		return newUIState(), nil
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return newUIState(), nil
	}

	data, err := s.client.Get(ctx, s.key(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return newUIState(), nil
		}
		return nil, err
	}
	var stored uiPayload
	if err := json.Unmarshal(data, &stored); err != nil {
		return newUIState(), nil
	}
	if stored.Values == nil {
		stored.Values = make(map[string]string)
	}
	return &UIState{ID: cookie.Value, values: stored.Values, flashes: stored.Flashes}, nil
}

// Commit persists changed state and refreshes the cookie.
func (s *UIStore) Commit(ctx context.Context, w http.ResponseWriter, st *UIState) error {
	if st == nil {
		return nil
	}
	if st.destroyed {
		if err := s.client.Del(ctx, s.key(st.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, s.cookie("", -1))
		return nil
	}
	if st.dirty || st.isNew {
		data, err := json.Marshal(uiPayload{Values: st.values, Flashes: st.flashes})
		if err != nil {
			return err
		}
		if err := s.client.Set(ctx, s.key(st.ID), data, s.ttl).Err(); err != nil {
			return err
		}
		st.dirty = false
		st.isNew = false
	}
	http.SetCookie(w, s.cookie(st.ID, int(s.ttl.Seconds())))
	return nil
}

func (s *UIStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     UIStateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *UIStore) key(id string) string {
	return "portal:ui:" + id
}

func newUIState() *UIState {
	return &UIState{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

// Set stores a value.
func (st *UIState) Set(key, value string) {
	st.values[key] = value
	st.dirty = true
}

// Get reads a value.
func (st *UIState) Get(key string) string {
	return st.values[key]
}

// AddFlash queues a notice.
func (st *UIState) AddFlash(msg FlashMessage) {
	st.flashes = append(st.flashes, msg)
	st.dirty = true
}

// Destroy drops the record on Commit so the next page starts with a fresh
// CSRF token.
func (st *UIState) Destroy() {
	if st != nil {
		st.destroyed = true
	}
}

// PopFlash returns and removes the oldest notice.
func (st *UIState) PopFlash() *FlashMessage {
	if st == nil || len(st.flashes) == 0 {
		return nil
	}
	msg := st.flashes[0]
	st.flashes = st.flashes[1:]
	st.dirty = true
	return &msg
}
