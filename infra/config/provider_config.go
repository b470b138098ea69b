package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// ProviderConfig manages gateway credentials loaded from the environment
// and persisted through the SQLite credential store.
type ProviderConfig struct {
	configs map[string]map[string]string
	storage *SQLiteStorage
	mu      sync.RWMutex
}

// NewProviderConfig creates a new provider configuration manager
func NewProviderConfig() *ProviderConfig {
	pc := &ProviderConfig{
		configs: make(map[string]map[string]string),
	}

	storage, err := NewSQLiteStorage("")
	if err == nil {
		pc.storage = storage
		if stored, err := storage.LoadAll(); err == nil {
			for provider, conf := range stored {
				pc.configs[provider] = conf
			}
		}
	}

	return pc
}

// LoadFromEnv loads gateway credentials from environment variables.
// Expected keys follow the GATEWAY_FIELD convention, e.g.
// ECPAY_MERCHANT_ID, ECPAY_HASH_KEY, LINEPAY_CHANNEL_SECRET.
func (pc *ProviderConfig) LoadFromEnv() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	envMappings := map[string]map[string]string{
		"ecpay": {
			"ECPAY_MERCHANT_ID": "merchantId",
			"ECPAY_HASH_KEY":    "hashKey",
			"ECPAY_HASH_IV":     "hashIV",
			"ECPAY_ENVIRONMENT": "environment",
		},
		"linepay": {
			"LINEPAY_CHANNEL_ID":     "channelId",
			"LINEPAY_CHANNEL_SECRET": "channelSecret",
			"LINEPAY_ENVIRONMENT":    "environment",
		},
	}

	for provider, mapping := range envMappings {
		conf := pc.configs[provider]
		for envKey, confKey := range mapping {
			if value := os.Getenv(envKey); value != "" {
				if conf == nil {
					conf = make(map[string]string)
				}
				conf[confKey] = value
			}
		}
		if conf != nil {
			pc.configs[provider] = conf
		}
	}
}

// SetConfig stores credentials for a provider and persists them
func (pc *ProviderConfig) SetConfig(provider string, conf map[string]string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if len(conf) == 0 {
		return fmt.Errorf("config cannot be empty")
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	stored := make(map[string]string, len(conf))
	for k, v := range conf {
		stored[k] = v
	}
	pc.configs[provider] = stored

	if pc.storage != nil {
		return pc.storage.Save(provider, stored)
	}
	return nil
}

// GetConfig returns the credentials for a provider
func (pc *ProviderConfig) GetConfig(provider string) (map[string]string, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))

	pc.mu.RLock()
	defer pc.mu.RUnlock()

	conf, ok := pc.configs[provider]
	if !ok {
		return nil, fmt.Errorf("no configuration found for provider: %s", provider)
	}

	out := make(map[string]string, len(conf))
	for k, v := range conf {
		out[k] = v
	}
	return out, nil
}

// GetAvailableProviders returns the names of all configured providers
func (pc *ProviderConfig) GetAvailableProviders() []string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	providers := make([]string, 0, len(pc.configs))
	for provider := range pc.configs {
		providers = append(providers, provider)
	}
	return providers
}

// DeleteConfig removes the credentials for a provider
func (pc *ProviderConfig) DeleteConfig(provider string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if _, ok := pc.configs[provider]; !ok {
		return fmt.Errorf("no configuration found for provider: %s", provider)
	}
	delete(pc.configs, provider)

	if pc.storage != nil {
		return pc.storage.Delete(provider)
	}
	return nil
}

// Close releases the underlying credential store
func (pc *ProviderConfig) Close() error {
	if pc.storage != nil {
		return pc.storage.Close()
	}
	return nil
}
