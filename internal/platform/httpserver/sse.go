package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	httpadapter "quorum/contexts/election-session/vote-coordinator/adapters/http"
	"quorum/contexts/election-session/vote-coordinator/application/commands"
	"quorum/contexts/election-session/vote-coordinator/domain/entities"
	"quorum/internal/shared/events"

	"github.com/google/uuid"
)

const heartbeatInterval = 25 * time.Second

// handleTallyStream pushes tally.updated envelopes over server-sent events.
// The subscription is opened before the baseline snapshot is read, so an
// update landing between the two shows up on the channel instead of being
// lost; stale buffered events are filtered by total vote count so an observer
// only ever sees totals move forward.
func (s *Server) handleTallyStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}
	if s.broadcast == nil {
		writeError(w, http.StatusServiceUnavailable, "stream_unavailable", "tally stream is not configured")
		return
	}

	updates, cancel := s.broadcast.Subscribe(commands.TallyTopic)
	defer cancel()

	snapshot, err := s.session.Handler.Tally.CurrentTally(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	lastTotal := snapshot.TotalVotes
	s.writeTallyEvent(w, baselineEnvelope(snapshot))
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case envelope, open := <-updates:
			if !open {
				return
			}
			update, ok := envelope.Payload.(entities.TallySnapshot)
			if !ok || update.TotalVotes < lastTotal {
				continue
			}
			lastTotal = update.TotalVotes
			envelope.Payload = httpadapter.TallyPayloadFromSnapshot(update)
			s.writeTallyEvent(w, envelope)
			flusher.Flush()
		}
	}
}

func (s *Server) writeTallyEvent(w http.ResponseWriter, envelope events.Envelope) {
	data, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Error("marshal tally event",
			"event", "tally_stream_marshal_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", envelope.EventType, data)
}

// baselineEnvelope wraps the snapshot an observer receives on connect in the
// same shape as the bus events that follow it.
func baselineEnvelope(snapshot entities.TallySnapshot) events.Envelope {
	return events.Envelope{
		EventID:        uuid.NewString(),
		EventType:      commands.TallyTopic,
		SourceService:  "vote-coordinator",
		OccurredAtUTC:  time.Now().UTC(),
		EntityType:     "tally",
		EntityID:       "current",
		PayloadVersion: 1,
		Payload:        httpadapter.TallyPayloadFromSnapshot(snapshot),
	}
}
