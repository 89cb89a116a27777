package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/JustinTDCT/enrichr/internal/models"
)

type ProviderConfigRepository struct {
	db *sql.DB
}

func NewProviderConfigRepository(db *sql.DB) *ProviderConfigRepository {
	return &ProviderConfigRepository{db: db}
}

func (r *ProviderConfigRepository) Get(provider string) (*models.ProviderConfig, error) {
	c := &models.ProviderConfig{}
	var apiKey, personalKey []byte
	var optionsJSON []byte

	err := r.db.QueryRow(`
		SELECT provider, enabled, api_key, personal_api_key, language, region, options, last_test_at, last_test_status
		FROM provider_config WHERE provider = $1
	`, provider).Scan(&c.Provider, &c.Enabled, &apiKey, &personalKey, &c.Language, &c.Region, &optionsJSON, &c.LastTestAt, &c.LastTestStatus)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("provider config %q not found", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("get provider config %q: %w", provider, err)
	}

	c.APIKey = string(apiKey)
	c.PersonalAPIKey = string(personalKey)
	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &c.Options); err != nil {
			return nil, fmt.Errorf("decode options for %q: %w", provider, err)
		}
	}
	return c, nil
}

func (r *ProviderConfigRepository) List() ([]*models.ProviderConfig, error) {
	rows, err := r.db.Query(`SELECT provider, enabled, language, region, last_test_at, last_test_status FROM provider_config ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list provider config: %w", err)
	}
	defer rows.Close()

	var out []*models.ProviderConfig
	for rows.Next() {
		c := &models.ProviderConfig{}
		if err := rows.Scan(&c.Provider, &c.Enabled, &c.Language, &c.Region, &c.LastTestAt, &c.LastTestStatus); err != nil {
			return nil, fmt.Errorf("scan provider config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Upsert stores sealed API keys (already encrypted by the caller via
// providers.SecretCipher) alongside the provider's options map.
func (r *ProviderConfigRepository) Upsert(c *models.ProviderConfig, sealedAPIKey, sealedPersonalKey []byte) error {
	optionsJSON, err := json.Marshal(c.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO provider_config (provider, enabled, api_key, personal_api_key, language, region, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			api_key = EXCLUDED.api_key,
			personal_api_key = EXCLUDED.personal_api_key,
			language = EXCLUDED.language,
			region = EXCLUDED.region,
			options = EXCLUDED.options
	`, c.Provider, c.Enabled, sealedAPIKey, sealedPersonalKey, c.Language, c.Region, optionsJSON)
	if err != nil {
		return fmt.Errorf("upsert provider config %q: %w", c.Provider, err)
	}
	return nil
}

func (r *ProviderConfigRepository) RecordTestResult(provider string, ok bool) error {
	status := models.TestError
	if ok {
		status = models.TestSuccess
	}
	_, err := r.db.Exec(`UPDATE provider_config SET last_test_at = now(), last_test_status = $1 WHERE provider = $2`, status, provider)
	if err != nil {
		return fmt.Errorf("record test result for %q: %w", provider, err)
	}
	return nil
}
