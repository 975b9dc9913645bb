package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	SignatureHeader    = "X-Traaaction-Signature"
	SignatureTolerance = 5 * time.Minute
)

var (
	errMissingSignature = fiber.NewError(fiber.StatusUnauthorized, "missing signature")
	errBadSignature     = fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
	errStaleSignature   = fiber.NewError(fiber.StatusUnauthorized, "signature timestamp outside tolerance")
)

// WebhookSignature verifies payment processor deliveries signed as
// "t=<unix>,v1=<hex hmac-sha256 of "<unix>.<body>">". An empty secret turns
// verification off; config.Load only permits that in development.
func WebhookSignature(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		if err := VerifySignature(c.Get(SignatureHeader), c.Body(), secret, time.Now()); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Next()
	}
}

func VerifySignature(header string, body []byte, secret string, now time.Time) error {
	if header == "" {
		return errMissingSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return errBadSignature
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errBadSignature
	}
	if age := now.Sub(time.Unix(ts, 0)); age > SignatureTolerance || age < -SignatureTolerance {
		return errStaleSignature
	}

	expected := Sign(secret, timestamp, body)
	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}
	return errBadSignature
}

// Sign returns the hex v1 signature for a timestamp and body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
