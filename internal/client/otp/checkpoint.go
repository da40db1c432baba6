package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Checkpoint is the persisted part of a flow. StartedAt is stamped on every
// save, so each checkpoint is resumable for a full TTL. The reset token is
// never checkpointed.
type Checkpoint struct {
	Active    bool
	Context   Context
	Identity  models.Identity
	TempToken string
	Message   string
	Verified  bool
	StartedAt time.Time
}

type checkpointJSON struct {
	Active    bool             `json:"active"`
	Context   Context          `json:"context,omitempty"`
	Identity  *models.Identity `json:"identity"`
	TempToken *string          `json:"temp_token"`
	Message   *string          `json:"message"`
	Verified  bool             `json:"verified"`
	StartedAt int64            `json:"started_at"`
}

func checkpointOf(s State) Checkpoint {
	return Checkpoint{
		Active:    s.Active,
		Context:   s.Context,
		Identity:  s.Identity,
		TempToken: s.TempToken,
		Message:   s.Message,
		Verified:  s.Verified,
		StartedAt: s.StartedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (c Checkpoint) MarshalJSON() ([]byte, error) {
	j := checkpointJSON{
		Active:    c.Active,
		Context:   c.Context,
		TempToken: nullable(c.TempToken),
		Message:   nullable(c.Message),
		Verified:  c.Verified,
	}
	if !c.Identity.IsZero() {
		id := c.Identity
		j.Identity = &id
	}
	if !c.StartedAt.IsZero() {
		j.StartedAt = c.StartedAt.UnixMilli()
	}
	return json.Marshal(j)
}

func (c *Checkpoint) UnmarshalJSON(b []byte) error {
	var j checkpointJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*c = Checkpoint{Active: j.Active, Context: j.Context, Verified: j.Verified}
	if j.Identity != nil {
		c.Identity = *j.Identity
	}
	if j.TempToken != nil {
		c.TempToken = *j.TempToken
	}
	if j.Message != nil {
		c.Message = *j.Message
	}
	if j.StartedAt > 0 {
		c.StartedAt = time.UnixMilli(j.StartedAt)
	}
	return nil
}

// CheckpointStore persists a single checkpoint. Load returns (nil, nil)
// when there is none.
type CheckpointStore interface {
	Load(ctx context.Context) (*Checkpoint, error)
	Save(ctx context.Context, cp Checkpoint) error
	Delete(ctx context.Context) error
}

// RepositoryCheckpointStore keeps the checkpoint in the metadata store.
type RepositoryCheckpointStore struct {
	repo metadata.Repository
	key  string
}

func NewRepositoryCheckpointStore(repo metadata.Repository) *RepositoryCheckpointStore {
	return &RepositoryCheckpointStore{repo: repo, key: common.OTPFlowKey}
}

func (s *RepositoryCheckpointStore) Load(ctx context.Context) (*Checkpoint, error) {
	b, err := s.repo.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return nil, fmt.Errorf("%w: otp checkpoint: %v", common.ErrorIncorrectMetadata, err)
	}
	return &cp, nil
}

func (s *RepositoryCheckpointStore) Save(ctx context.Context, cp Checkpoint) error {
	b, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, s.key, b)
}

func (s *RepositoryCheckpointStore) Delete(ctx context.Context) error {
	return s.repo.Delete(ctx, s.key)
}
