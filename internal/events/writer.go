package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the engine.
const (
	RequestIngested  = "request.ingested"
	RequestAdvanced  = "request.advanced"
	StaffAdded       = "staff.added"
	StaffUpdated     = "staff.updated"
	ResourceAdded    = "resource.added"
	ResourceUpdated  = "resource.updated"
	TaskCreated      = "task.created"
	TaskAssigned     = "task.assigned"
	DecisionCreated  = "decision.created"
	DecisionApproved = "decision.approved"
	DecisionRejected = "decision.rejected"
	DecisionExecuted = "decision.executed"
)

// Writer appends to the event log inside the caller's transaction.
type Writer struct {
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), actorID, string(data))
	if err != nil {
		return fmt.Errorf("append event %s: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
