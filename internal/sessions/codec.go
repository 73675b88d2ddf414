package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errInvalid = errors.New("sessions: invalid cookie")

type claims struct {
	// Data is the sealed session, base64url; empty for server-side sessions.
	Data string `json:"d,omitempty"`
	jwt.RegisteredClaims
}

// codec signs cookies with HS256 and seals payloads with secretbox. Both
// keys are derived from one configured secret.
type codec struct {
	signKey []byte
	boxKey  [32]byte
	issuer  string
}

func newCodec(secret string) (*codec, error) {
	c := &codec{signKey: make([]byte, 32), issuer: "loanportal"}
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("loanportal session signing")), c.signKey); err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("loanportal session sealing")), c.boxKey[:]); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	return c, nil
}

func (c *codec) seal(v any) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &c.boxKey), nil
}

func (c *codec) open(sealed []byte, v any) error {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return errInvalid
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &c.boxKey)
	if !ok {
		return errInvalid
	}
	return json.Unmarshal(plain, v)
}

func (c *codec) sign(id string, data []byte, expires time.Time) (string, error) {
	cl := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if len(data) > 0 {
		cl.Data = base64.RawURLEncoding.EncodeToString(data)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.signKey)
}

// parse verifies the token and returns the session id and sealed data.
func (c *codec) parse(token string) (string, []byte, error) {
	cl := &claims{}
	tok, err := jwt.ParseWithClaims(token, cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.signKey, nil
	}, jwt.WithIssuer(c.issuer), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", nil, errInvalid
	}
	if cl.Subject == "" {
		return "", nil, errInvalid
	}
	var data []byte
	if cl.Data != "" {
		if data, err = base64.RawURLEncoding.DecodeString(cl.Data); err != nil {
			return "", nil, errInvalid
		}
	}
	return cl.Subject, data, nil
}
