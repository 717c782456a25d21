package trigger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/swcolombo/waitlist-api/pkg/httpclient"
	"github.com/swcolombo/waitlist-api/pkg/logger"
)

// Event is posted to the notify hook. It never carries personal data.
type Event struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submission_id"`
	FieldSet     string    `json:"field_set"`
	At           time.Time `json:"at"`
}

// NotifyAsync posts event to hookURL in the background. Failures are logged
// and never reach the caller. The returned channel closes when the call is
// done; it is already closed when hookURL is empty.
func NotifyAsync(hookURL string, event Event, httpClient httpclient.Client) <-chan struct{} {
	done := make(chan struct{})
	if hookURL == "" {
		close(done)
		return done
	}

	go func() {
		defer close(done)

		log := logger.With(zap.String("submission_id", event.SubmissionID), zap.String("event", event.Type))

		body, err := json.Marshal(event)
		if err != nil {
			log.Error("Failed to encode notify event", zap.Error(err))
			return
		}

		resp, err := httpClient.Post(hookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Error("Failed to call notify hook", zap.Error(err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			log.Debug("Notify hook called", zap.Int("status_code", resp.StatusCode))
		} else {
			log.Warn("Notify hook returned non-success status", zap.Int("status_code", resp.StatusCode))
		}
	}()

	return done
}
