// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package arr

import (
	"context"

	"github.com/tomtom215/tagarr/internal/models"
)

const radarrItemsPath = "/api/v3/movie"

// RadarrClient talks to a Radarr instance (movie-oriented API flavor).
type RadarrClient struct {
	t *transport
}

// NewRadarrClient creates a Radarr client from the given options.
func NewRadarrClient(opts Options) (*RadarrClient, error) {
	t, err := newTransport(ServiceRadarr, opts)
	if err != nil {
		return nil, err
	}
	return &RadarrClient{t: t}, nil
}

func (c *RadarrClient) Service() string { return ServiceRadarr }

func (c *RadarrClient) Ping(ctx context.Context) error {
	return c.t.ping(ctx)
}

func (c *RadarrClient) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	return c.t.systemStatus(ctx)
}

func (c *RadarrClient) ListTags(ctx context.Context) ([]models.Tag, error) {
	return c.t.listTags(ctx)
}

func (c *RadarrClient) CreateTag(ctx context.Context, label string) (models.Tag, error) {
	return c.t.createTag(ctx, label)
}

func (c *RadarrClient) ListItems(ctx context.Context) ([]models.Item, error) {
	return c.t.listItems(ctx, radarrItemsPath)
}

func (c *RadarrClient) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return c.t.getItem(ctx, radarrItemsPath, id)
}

func (c *RadarrClient) SetItemTags(ctx context.Context, item *models.Item, tags []int64) error {
	return c.t.setItemTags(ctx, radarrItemsPath, item, tags)
}
