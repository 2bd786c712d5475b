// file: internal/database/records.go
// version: 1.0.0
// guid: 404e3315-106f-4249-87d6-3c1138758397

package database

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/DS09AT/Shelvance-sub001/internal/models"
)

// providerRecord is the persisted form of a provider definition. Exactly one
// of Settings and SealedSettings is set.
type providerRecord struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	ImplementationKind string              `json:"implementation"`
	Settings           json.RawMessage     `json:"settings,omitempty"`
	SealedSettings     []byte              `json:"sealed_settings,omitempty"`
	Priority           int                 `json:"priority"`
	Features           models.FeatureFlags `json:"features"`
	Tags               []string            `json:"tags,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// sealSettings returns the plain and sealed column values for settings.
func sealSettings(sealer *Sealer, providerID string, settings []byte) (plain, sealed []byte, err error) {
	if len(settings) == 0 {
		return nil, nil, nil
	}
	if sealer == nil {
		return settings, nil, nil
	}
	sealed, err = sealer.Seal(providerID, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to seal settings for provider %s: %w", providerID, err)
	}
	return nil, sealed, nil
}

// openSettings reverses sealSettings.
func openSettings(sealer *Sealer, providerID string, plain, sealed []byte) (json.RawMessage, error) {
	if len(sealed) == 0 {
		return plain, nil
	}
	if sealer == nil {
		return nil, fmt.Errorf("provider %s has sealed settings but no encryption key is configured", providerID)
	}
	out, err := sealer.Open(providerID, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings for provider %s: %w", providerID, err)
	}
	return out, nil
}

func encodeProvider(sealer *Sealer, def *models.ProviderDefinition) ([]byte, error) {
	plain, sealed, err := sealSettings(sealer, def.ID, def.Settings)
	if err != nil {
		return nil, err
	}
	rec := providerRecord{
		ID:                 def.ID,
		Name:               def.Name,
		ImplementationKind: def.ImplementationKind,
		Settings:           plain,
		SealedSettings:     sealed,
		Priority:           def.Priority,
		Features:           def.Features,
		Tags:               def.Tags,
		CreatedAt:          def.CreatedAt,
		UpdatedAt:          def.UpdatedAt,
	}
	return json.Marshal(rec)
}

func decodeProvider(sealer *Sealer, data []byte) (*models.ProviderDefinition, error) {
	var rec providerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	settings, err := openSettings(sealer, rec.ID, rec.Settings, rec.SealedSettings)
	if err != nil {
		return nil, err
	}
	return &models.ProviderDefinition{
		ID:                 rec.ID,
		Name:               rec.Name,
		ImplementationKind: rec.ImplementationKind,
		Settings:           settings,
		Priority:           rec.Priority,
		Features:           rec.Features,
		Tags:               rec.Tags,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}, nil
}

// prepareCreate fills the id and timestamps of a new definition.
func prepareCreate(def *models.ProviderDefinition) error {
	if def.ID == "" {
		id, err := newULID()
		if err != nil {
			return err
		}
		def.ID = id
	}
	now := time.Now().UTC()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	return nil
}
