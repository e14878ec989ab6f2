package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yegors/agentdeck/pkg/logger"
)

// Directory caches the provider list for decorating agent selection. The
// cache is replaced wholesale on a successful refresh; a failed refresh
// leaves the previous snapshot untouched. No automatic polling.
type Directory struct {
	client *Client
	logger *logger.Logger

	mu          sync.RWMutex
	providers   []Provider
	refreshedAt time.Time
}

// NewDirectory creates a provider directory backed by the given client
func NewDirectory(client *Client, log *logger.Logger) *Directory {
	return &Directory{
		client: client,
		logger: log.Named("provider-directory"),
	}
}

// Refresh fetches the provider list and replaces the cache on success
func (d *Directory) Refresh(ctx context.Context) error {
	providers, err := d.client.FetchProviders(ctx)
	if err != nil {
		d.logger.Warn("Provider directory refresh failed, keeping cached list", logger.Error(err))
		return err
	}

	d.mu.Lock()
	d.providers = providers
	d.refreshedAt = time.Now()
	d.mu.Unlock()

	d.logger.Debug("Provider directory refreshed", logger.Int("providers", len(providers)))
	return nil
}

// Providers returns a copy of the cached provider list
func (d *Directory) Providers() []Provider {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Provider, len(d.providers))
	copy(out, d.providers)
	return out
}

// Lookup finds a provider by name, case-insensitively
func (d *Directory) Lookup(name string) (Provider, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.providers {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Provider{}, false
}

// LastRefreshed returns when the cache was last replaced, zero if never
func (d *Directory) LastRefreshed() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.refreshedAt
}
