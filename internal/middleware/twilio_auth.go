package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	twilioclient "github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature validates that the webhook request is from Twilio
func ValidateTwilioSignature(authToken string) fiber.Handler {
	validator := twilioclient.NewRequestValidator(authToken)

	return func(c *fiber.Ctx) error {
		twilioSignature := c.Get("X-Twilio-Signature")
		if twilioSignature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		if authToken == "" {
			slog.Error("TWILIO_AUTH_TOKEN not set, cannot validate webhook")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		if !validator.Validate(getFullURL(c), formParams, twilioSignature) {
			slog.Warn("Invalid Twilio signature", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// getFullURL rebuilds the URL Twilio signed. Behind a TLS-terminating proxy
// X-Forwarded-Proto decides the scheme. The path comes from the parsed URI
// since the request line may be in absolute form.
func getFullURL(c *fiber.Ctx) string {
	protocol := "https"
	if proto := c.Get(fiber.HeaderXForwardedProto); proto != "" {
		protocol = proto
	} else if c.Protocol() == "http" {
		protocol = "http"
	}
	return protocol + "://" + c.Hostname() + string(c.Request().URI().RequestURI())
}
