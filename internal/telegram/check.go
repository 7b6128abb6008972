package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// webAppKeySeed is the constant HMAC key Telegram uses to derive the Web App secret.
const webAppKeySeed = "WebAppData"

// webAppSecret derives the Web App secret: HMAC-SHA256(key="WebAppData", data=botToken).
func webAppSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppKeySeed))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// widgetSecret derives the Login Widget secret: SHA256(botToken).
// This differs from webAppSecret and must stay that way.
func widgetSecret(botToken string) []byte {
	sum := sha256.Sum256([]byte(botToken))
	return sum[:]
}

// dataCheckString sorts every field except hash by key and joins key=value pairs with "\n".
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	return strings.Join(pairs, "\n")
}

func sign(secret []byte, values url.Values) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

func checkHash(secret []byte, values url.Values) error {
	received := strings.ToLower(values.Get("hash"))
	if received == "" {
		return ErrMissingHash
	}
	expected := sign(secret, values)
	if !hmac.Equal([]byte(expected), []byte(received)) {
		return ErrHashMismatch
	}
	return nil
}

// checkFreshness rejects auth_date values older than maxAge relative to now.
func checkFreshness(values url.Values, maxAge time.Duration, now time.Time) (time.Time, error) {
	raw := values.Get("auth_date")
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: auth_date is missing", ErrMalformed)
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: auth_date %q is not a unix timestamp", ErrMalformed, raw)
	}
	authDate := time.Unix(unix, 0)
	if now.Sub(authDate) > maxAge {
		return authDate, ErrAuthExpired
	}
	return authDate, nil
}

// SignWebAppData returns the hash Telegram would attach to the given Web App fields.
func SignWebAppData(botToken string, values url.Values) string {
	return sign(webAppSecret(botToken), values)
}

// SignWidgetData returns the hash Telegram would attach to the given Login Widget fields.
func SignWidgetData(botToken string, values url.Values) string {
	return sign(widgetSecret(botToken), values)
}
