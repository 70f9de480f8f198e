package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Identity is a resolved Telegram user. UserID is the decimal Telegram ID;
// guests get synthetic IDs.
type Identity struct {
	UserID    string
	Username  string
	FirstName string
}

// DisplayName picks the name shown at the table.
func (id Identity) DisplayName() string {
	if id.FirstName != "" {
		return id.FirstName
	}
	return "Player"
}

var (
	// ErrMissingInitData is returned when signature checking is requested
	// for an empty init data string.
	ErrMissingInitData = errors.New("missing initData")
	// ErrMissingHash is returned when init data carries no hash field.
	ErrMissingHash = errors.New("missing hash")
	// ErrBadSignature is returned when the HMAC does not match.
	ErrBadSignature = errors.New("bad signature")
)

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// VerifyInitData checks the Telegram Mini App signature and returns the
// embedded user. The data-check string is every field except hash, sorted
// by key and joined with newlines; the key is SHA-256 of the bot token.
func VerifyInitData(initData, botToken string) (Identity, error) {
	if initData == "" {
		return Identity{}, ErrMissingInitData
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return Identity{}, fmt.Errorf("parse initData: %w", err)
	}
	signature := values.Get("hash")
	if signature == "" {
		return Identity{}, ErrMissingHash
	}
	values.Del("hash")

	if !hmac.Equal([]byte(checkHash(values, botToken)), []byte(signature)) {
		return Identity{}, ErrBadSignature
	}
	return identityFromValues(values), nil
}

// ExtractIdentity pulls the user out of init data without checking the
// signature. Lobby endpoints accept this weaker form so the web app works
// outside Telegram; balances are never touched on this path.
func ExtractIdentity(initData string) (Identity, bool) {
	if initData == "" {
		return Identity{}, false
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return Identity{}, false
	}
	id := identityFromValues(values)
	return id, id.UserID != ""
}

func checkHash(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func identityFromValues(values url.Values) Identity {
	raw := values.Get("user")
	if raw == "" {
		return Identity{}
	}
	var user telegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == 0 {
		return Identity{}
	}
	return Identity{
		UserID:    fmt.Sprintf("%d", user.ID),
		Username:  user.Username,
		FirstName: user.FirstName,
	}
}
