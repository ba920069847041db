// Tagarr - HDR/DV/IMAX tag reconciliation for Sonarr and Radarr
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tagarr

package arr

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tagarr/internal/models"
)

// itemFields are the normalized fields extracted from a series or movie
// document. Sonarr and Radarr use the same names for everything Tagarr
// reads; the flavors differ only in resource paths and in fields the
// reconciler never touches.
type itemFields struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Year      int     `json:"year"`
	Path      string  `json:"path"`
	Monitored bool    `json:"monitored"`
	Tags      []int64 `json:"tags"`
	Runtime   int     `json:"runtime"`
}

// itemFromDocument normalizes a raw resource document into a models.Item,
// keeping the document itself for the full-object write path.
func itemFromDocument(raw json.RawMessage) (models.Item, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.Item{}, fmt.Errorf("decode item document: %w", err)
	}

	var fields itemFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Item{}, fmt.Errorf("decode item fields: %w", err)
	}
	if fields.ID == 0 {
		return models.Item{}, fmt.Errorf("item document has no id")
	}
	if fields.Tags == nil {
		fields.Tags = []int64{}
	}

	return models.Item{
		ID:             fields.ID,
		Title:          fields.Title,
		Year:           fields.Year,
		Path:           fields.Path,
		Monitored:      fields.Monitored,
		Tags:           fields.Tags,
		RuntimeMinutes: fields.Runtime,
		Document:       doc,
	}, nil
}

// listItems fetches and normalizes the full item collection at the given
// resource path (/api/v3/series or /api/v3/movie).
func (t *transport) listItems(ctx context.Context, resourcePath string) ([]models.Item, error) {
	data, err := t.doRetry(ctx, "list_items", http.MethodGet, resourcePath, nil)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode item collection: %w", err)
	}

	items := make([]models.Item, 0, len(raws))
	for _, raw := range raws {
		item, err := itemFromDocument(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// getItem fetches one item fresh, including its full document.
func (t *transport) getItem(ctx context.Context, resourcePath string, id int64) (*models.Item, error) {
	data, err := t.doRetry(ctx, "get_item", http.MethodGet, fmt.Sprintf("%s/%d", resourcePath, id), nil)
	if err != nil {
		return nil, err
	}
	item, err := itemFromDocument(data)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// setItemTags PUTs the item's full document back with only the tags field
// replaced. The remote API does not support partial updates, so sending
// back what was read is a correctness requirement, not an optimization.
//
// Without a version token from the remote there is a residual race against
// out-of-process writers between the read and this write; in-process racers
// are excluded by the engine's per-item lock. Accepted risk.
func (t *transport) setItemTags(ctx context.Context, resourcePath string, item *models.Item, tags []int64) error {
	if item == nil || item.Document == nil {
		return fmt.Errorf("set item tags: item must be read before writing")
	}
	if tags == nil {
		tags = []int64{}
	}

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	// Copy the document so a failed write leaves the read snapshot intact.
	doc := make(map[string]json.RawMessage, len(item.Document))
	for k, v := range item.Document {
		doc[k] = v
	}
	doc["tags"] = tagsJSON

	_, err = t.doRetry(ctx, "set_item_tags", http.MethodPut, fmt.Sprintf("%s/%d", resourcePath, item.ID), doc)
	return err
}
