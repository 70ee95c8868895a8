package participant

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tauraamui/archbooth/pkg/database/models"
	"github.com/tauraamui/archbooth/pkg/database/repos"
	"github.com/tauraamui/archbooth/pkg/log"
	"github.com/tauraamui/xerror"
)

type Store interface {
	Save(ctx context.Context, p *Participant) error
}

// HTTPStore posts participants as JSON to a save-participant endpoint.
type HTTPStore struct {
	URL    string
	Client *http.Client
}

func NewHTTPStore(url string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPStore) Save(ctx context.Context, p *Participant) error {
	body, err := json.Marshal(p)
	if err != nil {
		return xerror.Errorf("unable to encode participant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return xerror.Errorf("unable to build participant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return xerror.Errorf("unable to save participant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return xerror.Errorf("unable to save participant: endpoint responded %s", resp.Status)
	}
	return nil
}

// LocalStore keeps participants in the kiosk database.
type LocalStore struct {
	Repo repos.ParticipantRepository
}

func (s *LocalStore) Save(ctx context.Context, p *Participant) error {
	record := models.Participant{UUID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone}
	if err := s.Repo.Create(&record); err != nil {
		return xerror.Errorf("unable to store participant: %w", err)
	}
	p.ID = record.UUID
	return nil
}

// Stores saves to every store in order. The local copy is kept even when
// a remote store rejects the participant.
type Stores []Store

func (s Stores) Save(ctx context.Context, p *Participant) error {
	var result error
	for _, store := range s {
		if err := store.Save(ctx, p); err != nil {
			log.Warn("Participant store failed: %v", err)
			result = multierror.Append(result, err)
		}
	}
	return result
}
