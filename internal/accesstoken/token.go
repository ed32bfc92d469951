package accesstoken

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimestampLayout renders validity bounds as UTC ISO-8601 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrMalformed is returned when a presented token cannot be decoded.
	ErrMalformed = errors.New("accesstoken: malformed token")
	// ErrMissingSecret is returned when a signer is built without a key.
	ErrMissingSecret = errors.New("accesstoken: signing secret is required")
)

// Payload is the signed portion of a token. Field order is part of the wire format.
type Payload struct {
	ReservationID string `json:"reservationId"`
	UserID        string `json:"userId"`
	SpaceID       string `json:"spaceId"`
	ValidFrom     string `json:"validFrom"`
	ValidUntil    string `json:"validUntil"`
	IssuedAt      int64  `json:"iat"`
}

type envelope struct {
	Payload
	Signature string `json:"signature"`
}

// NewPayload builds a payload for a reservation window issued at issuedAt.
func NewPayload(reservationID, userID, spaceID string, validFrom, validUntil, issuedAt time.Time) Payload {
	return Payload{
		ReservationID: reservationID,
		UserID:        userID,
		SpaceID:       spaceID,
		ValidFrom:     FormatTimestamp(validFrom),
		ValidUntil:    FormatTimestamp(validUntil),
		IssuedAt:      issuedAt.UnixMilli(),
	}
}

// FormatTimestamp renders t using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Window parses the validity bounds of the payload.
func (p Payload) Window() (validFrom, validUntil time.Time, err error) {
	validFrom, err = time.Parse(time.RFC3339Nano, p.ValidFrom)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: validFrom: %v", ErrMalformed, err)
	}
	validUntil, err = time.Parse(time.RFC3339Nano, p.ValidUntil)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: validUntil: %v", ErrMalformed, err)
	}
	return validFrom, validUntil, nil
}

// Signer computes and checks HMAC-SHA256 signatures over payloads.
type Signer struct {
	secret []byte
}

// NewSigner builds a signer keyed by secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the hex encoded signature of the canonical payload JSON.
func (s *Signer) Sign(payload Payload) (string, error) {
	canonical, err := marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether signature matches the recomputed signature of payload.
func (s *Signer) Verify(payload Payload, signature string) bool {
	expected, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Encode signs the payload and returns the token string together with its signature.
func (s *Signer) Encode(payload Payload) (token string, signature string, err error) {
	signature, err = s.Sign(payload)
	if err != nil {
		return "", "", err
	}
	raw, err := marshal(envelope{Payload: payload, Signature: signature})
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(raw), signature, nil
}

// Decode splits a token into its payload and presented signature without checking it.
func Decode(token string) (Payload, string, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(token)
		if err != nil {
			return Payload{}, "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Payload{}, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.Payload, env.Signature, nil
}

// marshal encodes v without HTML escaping so signatures match other JSON producers.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
