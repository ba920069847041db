// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package arr

import (
	"context"

	"github.com/tomtom215/tagarr/internal/models"
)

const sonarrItemsPath = "/api/v3/series"

// SonarrClient talks to a Sonarr instance (series-oriented API flavor).
type SonarrClient struct {
	t *transport
}

// NewSonarrClient creates a Sonarr client from the given options.
func NewSonarrClient(opts Options) (*SonarrClient, error) {
	t, err := newTransport(ServiceSonarr, opts)
	if err != nil {
		return nil, err
	}
	return &SonarrClient{t: t}, nil
}

func (c *SonarrClient) Service() string { return ServiceSonarr }

func (c *SonarrClient) Ping(ctx context.Context) error {
	return c.t.ping(ctx)
}

func (c *SonarrClient) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	return c.t.systemStatus(ctx)
}

func (c *SonarrClient) ListTags(ctx context.Context) ([]models.Tag, error) {
	return c.t.listTags(ctx)
}

func (c *SonarrClient) CreateTag(ctx context.Context, label string) (models.Tag, error) {
	return c.t.createTag(ctx, label)
}

func (c *SonarrClient) ListItems(ctx context.Context) ([]models.Item, error) {
	return c.t.listItems(ctx, sonarrItemsPath)
}

func (c *SonarrClient) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return c.t.getItem(ctx, sonarrItemsPath, id)
}

func (c *SonarrClient) SetItemTags(ctx context.Context, item *models.Item, tags []int64) error {
	return c.t.setItemTags(ctx, sonarrItemsPath, item, tags)
}
