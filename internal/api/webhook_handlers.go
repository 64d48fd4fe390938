package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// webhookEnvelope is the event payload posted by the messaging gateway
type webhookEnvelope struct {
	Event   string `json:"event"`
	Session string `json:"session"`
	Payload struct {
		From string `json:"from"`
		Body string `json:"body"`
	} `json:"payload"`
}

// HandleWebhook receives inbound messaging events. Only message events with a
// non-empty body are routed; everything else is acknowledged and dropped so
// the gateway never retries.
func (s *RESTServer) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if envelope.Event != "message" || envelope.Payload.Body == "" {
		log.Debug().
			Str("event", envelope.Event).
			Str("session", envelope.Session).
			Msg("Ignoring non-message webhook event")
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"ignored": true,
		})
		return
	}

	log.Debug().
		Str("session", envelope.Session).
		Str("from", envelope.Payload.From).
		Int("size", len(envelope.Payload.Body)).
		Msg("Received inbound message")

	result := s.bot.Route(r.Context(), envelope.Session, envelope.Payload.From, envelope.Payload.Body)

	// Reply delivery is best-effort; the webhook is acknowledged regardless
	if result.Reply != "" {
		if err := s.dispatcher.SendText(r.Context(), envelope.Session, envelope.Payload.From, result.Reply); err != nil {
			log.Error().Err(err).
				Str("session", envelope.Session).
				Str("to", envelope.Payload.From).
				Msg("Failed to send reply")
		}
	}

	s.respondJSON(w, http.StatusOK, result)
}
