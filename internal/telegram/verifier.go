package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DefaultAuthMaxAge is how old auth_date may be before a payload is rejected.
const DefaultAuthMaxAge = 5 * time.Minute

// User is the identity extracted from a verified payload.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
}

// WidgetPayload is the flat object the Login Widget hands back to the page.
type WidgetPayload struct {
	ID        int64  `json:"id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date" validate:"required"`
	Hash      string `json:"hash" validate:"required"`
}

// Values renders the payload as the field set Telegram signed. Optional
// fields are only present when non-empty, exactly as the widget sends them.
func (p WidgetPayload) Values() url.Values {
	v := url.Values{}
	v.Set("id", strconv.FormatInt(p.ID, 10))
	v.Set("first_name", p.FirstName)
	v.Set("auth_date", strconv.FormatInt(p.AuthDate, 10))
	v.Set("hash", p.Hash)
	if p.LastName != "" {
		v.Set("last_name", p.LastName)
	}
	if p.Username != "" {
		v.Set("username", p.Username)
	}
	if p.PhotoURL != "" {
		v.Set("photo_url", p.PhotoURL)
	}
	return v
}

// Verifier checks Telegram Web App and Login Widget signatures for one bot.
type Verifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewVerifier creates a Verifier. A non-positive maxAge uses DefaultAuthMaxAge.
func NewVerifier(botToken string, maxAge time.Duration) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultAuthMaxAge
	}
	return &Verifier{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// SetClock replaces the time source. Used in tests.
func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
}

// VerifyInitData validates a Web App initData query string and returns the
// embedded user.
func (v *Verifier) VerifyInitData(initData string) (*User, error) {
	if initData == "" {
		return nil, fmt.Errorf("%w: initData is empty", ErrMalformed)
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := checkHash(webAppSecret(v.botToken), values); err != nil {
		return nil, err
	}
	if _, err := checkFreshness(values, v.maxAge, v.now()); err != nil {
		return nil, err
	}

	raw := values.Get("user")
	if raw == "" {
		return nil, fmt.Errorf("%w: user is missing", ErrMalformed)
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: user: %v", ErrMalformed, err)
	}
	if user.ID <= 0 {
		return nil, fmt.Errorf("%w: user id must be positive", ErrMalformed)
	}
	if user.IsBot {
		return nil, ErrBotAccount
	}
	return &user, nil
}

// VerifyWidget validates Login Widget fields, as delivered on a redirect's
// query string, and returns the signed identity.
func (v *Verifier) VerifyWidget(values url.Values) (*User, error) {
	if err := checkHash(widgetSecret(v.botToken), values); err != nil {
		return nil, err
	}
	if _, err := checkFreshness(values, v.maxAge, v.now()); err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(values.Get("id"), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: id must be a positive integer", ErrMalformed)
	}
	return &User{
		ID:        id,
		FirstName: values.Get("first_name"),
		LastName:  values.Get("last_name"),
		Username:  values.Get("username"),
		PhotoURL:  values.Get("photo_url"),
	}, nil
}

// VerifyWidgetPayload validates a Login Widget callback object.
func (v *Verifier) VerifyWidgetPayload(p WidgetPayload) (*User, error) {
	return v.VerifyWidget(p.Values())
}
