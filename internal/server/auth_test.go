package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "110201543:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

// signInitData produces a query string signed the way Telegram signs Mini
// App init data: HMAC-SHA256 over the sorted key=value pairs, keyed with
// SHA-256 of the bot token.
func signInitData(t *testing.T, token string, fields url.Values) string {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields.Get(k))
	}

	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))

	signed := url.Values{}
	for k, vs := range fields {
		signed[k] = vs
	}
	signed.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return signed.Encode()
}

func telegramFields(user string) url.Values {
	return url.Values{
		"auth_date": {"1719999999"},
		"query_id":  {"AAF9tg4rAAAAAH22Dis4"},
		"user":      {user},
	}
}

func TestVerifyInitDataAcceptsSignedPayload(t *testing.T) {
	fields := telegramFields(`{"id":99281932,"first_name":"Ana","username":"ana_plays"}`)
	initData := signInitData(t, testBotToken, fields)

	ident, err := VerifyInitData(initData, testBotToken)
	require.NoError(t, err)
	assert.Equal(t, "99281932", ident.UserID)
	assert.Equal(t, "Ana", ident.FirstName)
	assert.Equal(t, "ana_plays", ident.Username)
}

func TestVerifyInitDataRejectsTampering(t *testing.T) {
	fields := telegramFields(`{"id":99281932,"first_name":"Ana","username":"ana_plays"}`)
	initData := signInitData(t, testBotToken, fields)

	// A different bot token must not verify the same payload.
	_, err := VerifyInitData(initData, "other-token")
	require.ErrorIs(t, err, ErrBadSignature)

	// Changing a signed field after signing breaks the HMAC.
	tampered := strings.Replace(initData, "1719999999", "1720000000", 1)
	_, err = VerifyInitData(tampered, testBotToken)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyInitDataRequiresHash(t *testing.T) {
	fields := telegramFields(`{"id":1,"first_name":"A"}`)
	_, err := VerifyInitData(fields.Encode(), testBotToken)
	require.ErrorIs(t, err, ErrMissingHash)
}

func TestVerifyInitDataRequiresPayload(t *testing.T) {
	_, err := VerifyInitData("", testBotToken)
	require.ErrorIs(t, err, ErrMissingInitData)
}

func TestExtractIdentityReadsUnsignedPayload(t *testing.T) {
	fields := telegramFields(`{"id":777,"first_name":"Bo","username":"bo"}`)

	ident, ok := ExtractIdentity(fields.Encode())
	require.True(t, ok)
	assert.Equal(t, "777", ident.UserID)
	assert.Equal(t, "Bo", ident.FirstName)

	_, ok = ExtractIdentity("")
	assert.False(t, ok)
	_, ok = ExtractIdentity("user=not-json")
	assert.False(t, ok)
	_, ok = ExtractIdentity(url.Values{"user": {`{"id":0,"first_name":"Nobody"}`}}.Encode())
	assert.False(t, ok, "id 0 is not a usable identity")
}

func TestDisplayNameFallsBackToPlayer(t *testing.T) {
	assert.Equal(t, "Ana", Identity{FirstName: "Ana"}.DisplayName())
	assert.Equal(t, "Player", Identity{Username: "ana"}.DisplayName())
}
