package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	paymentdomain "github.com/channelpass/channelpass/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the keyed hash of the notification, shared
// out-of-band with the provider.
const SignatureHeader = "X-Webhook-Signature"

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}
	signature := c.GetHeader(SignatureHeader)

	err = s.webhookSvc.Ingest(c.Request.Context(), provider, payload, signature)
	if err != nil {
		// A validly signed but already applied event is a success for the
		// provider's retry loop.
		if errors.Is(err, paymentdomain.ErrAlreadyCompleted) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
