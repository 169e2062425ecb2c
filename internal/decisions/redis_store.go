package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"opsdesk/internal/domain"
)

// redisStatusCAS flips the status fields of one decision hash atomically.
// KEYS[1] = decision hash
// ARGV[1] = expected status, ARGV[2] = new status
// ARGV[3] = approver, ARGV[4] = timestamp
// Returns -1 when the hash is missing, 0 on status mismatch, 1 on success.
var redisStatusCAS = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "status")
if not cur then
    return -1
end
if cur ~= ARGV[1] then
    return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2], "approved_by", ARGV[3], "approved_at", ARGV[4])
return 1
`)

// redisInsert writes a new decision hash and appends it to the order list in
// one step.
// KEYS[1] = decision hash, KEYS[2] = order list
// ARGV[1] = record JSON, ARGV[2] = status, ARGV[3] = approver, ARGV[4] = timestamp, ARGV[5] = id
// Returns 0 when the hash already exists, 1 on success.
var redisInsert = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1], "record", ARGV[1], "status", ARGV[2], "approved_by", ARGV[3], "approved_at", ARGV[4])
redis.call("RPUSH", KEYS[2], ARGV[5])
return 1
`)

// RedisPersistence stores each decision as a hash and keeps creation order in a list.
type RedisPersistence struct {
	client *redis.Client
	prefix string
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisPersistence namespaces all keys under prefix (default "opsdesk").
func NewRedisPersistence(client *redis.Client, prefix string) *RedisPersistence {
	if prefix == "" {
		prefix = "opsdesk"
	}
	return &RedisPersistence{client: client, prefix: prefix}
}

func (r *RedisPersistence) key(id string) string { return r.prefix + ":decision:" + id }
func (r *RedisPersistence) orderKey() string     { return r.prefix + ":decisions" }

// redisRecord is the immutable part of a decision, stored as one JSON field.
type redisRecord struct {
	ID           string          `json:"id"`
	AgentType    string          `json:"agent_type"`
	DecisionType string          `json:"decision_type"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Confidence   float64         `json:"confidence"`
	Context      json.RawMessage `json:"context"`
	CreatedAt    string          `json:"created_at"`
}

func (r *RedisPersistence) InsertDecision(ctx context.Context, d domain.AIDecision) error {
	ctxJSON, err := json.Marshal(d.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	rec, err := json.Marshal(redisRecord{
		ID: d.ID, AgentType: d.AgentType, DecisionType: d.DecisionType, Title: d.Title,
		Description: d.Description, Confidence: d.Confidence, Context: ctxJSON, CreatedAt: d.CreatedAt,
	})
	if err != nil {
		return err
	}
	n, err := redisInsert.Run(ctx, r.client, []string{r.key(d.ID), r.orderKey()},
		string(rec), d.Status, deref(d.ApprovedBy), deref(d.ApprovedAt), d.ID).Int()
	if err != nil {
		return fmt.Errorf("redis insert: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("decision %s already exists", d.ID)
	}
	return nil
}

func (r *RedisPersistence) GetDecision(ctx context.Context, id string) (domain.AIDecision, error) {
	vals, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return domain.AIDecision{}, err
	}
	if len(vals) == 0 {
		return domain.AIDecision{}, ErrNotFound
	}
	return decodeRedisDecision(vals)
}

func (r *RedisPersistence) ListDecisionsByStatus(ctx context.Context, status string) ([]domain.AIDecision, error) {
	ids, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	res := make([]domain.AIDecision, 0, len(ids))
	for _, id := range ids {
		d, err := r.GetDecision(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status != "" && d.Status != status {
			continue
		}
		res = append(res, d)
	}
	return res, nil
}

func (r *RedisPersistence) UpdateDecisionStatus(ctx context.Context, id, from, to, approver, at string) error {
	n, err := redisStatusCAS.Run(ctx, r.client, []string{r.key(id)}, from, to, approver, at).Int()
	if err != nil {
		return fmt.Errorf("redis status update: %w", err)
	}
	switch n {
	case -1:
		return ErrNotFound
	case 0:
		return ErrStatusConflict
	}
	return nil
}

func decodeRedisDecision(vals map[string]string) (domain.AIDecision, error) {
	var rec redisRecord
	if err := json.Unmarshal([]byte(vals["record"]), &rec); err != nil {
		return domain.AIDecision{}, fmt.Errorf("decode decision: %w", err)
	}
	c, err := domain.ParseDecisionContext(rec.DecisionType, rec.Context)
	if err != nil {
		return domain.AIDecision{}, err
	}
	d := domain.AIDecision{
		ID: rec.ID, AgentType: rec.AgentType, DecisionType: rec.DecisionType, Title: rec.Title,
		Description: rec.Description, Confidence: rec.Confidence, Context: c, Status: vals["status"],
		CreatedAt: rec.CreatedAt,
	}
	if v := vals["approved_by"]; v != "" {
		d.ApprovedBy = &v
	}
	if v := vals["approved_at"]; v != "" {
		d.ApprovedAt = &v
	}
	return d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
