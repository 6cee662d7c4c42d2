package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/usenexus/nexus/plugin/vector"
	"github.com/usenexus/nexus/store"
)

func (d *DB) UpsertItem(ctx context.Context, item *store.Item) (*store.Item, error) {
	tagsJSON, metadataJSON, err := encodeTagsMetadata(item)
	if err != nil {
		return nil, err
	}

	var createdTs sql.NullInt64
	if item.CreatedAt != nil {
		createdTs = sql.NullInt64{Int64: item.CreatedAt.Unix(), Valid: true}
	}

	stmt := `
		INSERT INTO memories (id, source, title, url, content, summary, tags, created_ts, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			url = excluded.url,
			content = excluded.content,
			summary = excluded.summary,
			tags = excluded.tags,
			created_ts = excluded.created_ts,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		item.ID,
		string(item.Source),
		item.Title,
		item.URL,
		item.Content,
		item.Summary,
		tagsJSON,
		createdTs,
		metadataJSON,
		vector.EncodeBlob(item.Embedding),
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert item")
	}
	return item, nil
}

func (d *DB) GetItem(ctx context.Context, id string) (*store.Item, error) {
	rows, err := d.db.QueryContext(ctx, listItemsQuery+` WHERE id = ?`, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query item")
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (d *DB) ListRecentItems(ctx context.Context, limit int) ([]*store.Item, error) {
	// SQLite sorts NULL below every value in DESC order, so items
	// without a timestamp land last, as the oldest.
	rows, err := d.db.QueryContext(ctx, listItemsQuery+` ORDER BY created_ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent items")
	}
	defer rows.Close()
	return scanItems(rows)
}

// VectorSearch loads every embedded row and ranks it in process. Exact,
// exhaustive, O(n·D); no approximate index is involved.
func (d *DB) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]*store.ItemWithScore, error) {
	rows, err := d.db.QueryContext(ctx, listItemsQuery+` WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list embedded items")
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	results := make([]*store.ItemWithScore, 0, len(items))
	for _, item := range items {
		results = append(results, &store.ItemWithScore{
			Item:  item,
			Score: vector.CosineSimilarity(queryVector, item.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (d *DB) ListItemsWithoutEmbedding(ctx context.Context, limit int) ([]*store.Item, error) {
	rows, err := d.db.QueryContext(ctx, listItemsQuery+` WHERE embedding IS NULL LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items without embedding")
	}
	defer rows.Close()
	return scanItems(rows)
}

func (d *DB) DeleteItem(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete item")
	}
	return nil
}

const listItemsQuery = `
	SELECT id, source, title, url, content, summary, tags, created_ts, metadata, embedding
	FROM memories`

func scanItems(rows *sql.Rows) ([]*store.Item, error) {
	items := []*store.Item{}
	for rows.Next() {
		item := &store.Item{}
		var (
			source       string
			title        sql.NullString
			url          sql.NullString
			content      sql.NullString
			summary      sql.NullString
			tagsJSON     sql.NullString
			createdTs    sql.NullInt64
			metadataJSON sql.NullString
			embedding    []byte
		)
		if err := rows.Scan(
			&item.ID,
			&source,
			&title,
			&url,
			&content,
			&summary,
			&tagsJSON,
			&createdTs,
			&metadataJSON,
			&embedding,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}

		item.Source = store.SourceType(source)
		item.Title = title.String
		item.URL = url.String
		item.Content = content.String
		item.Summary = summary.String

		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &item.Tags); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal tags")
			}
		}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &item.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal metadata")
			}
		}
		if createdTs.Valid {
			ts := time.Unix(createdTs.Int64, 0).UTC()
			item.CreatedAt = &ts
		}
		if len(embedding) > 0 {
			v, err := vector.DecodeBlob(embedding)
			if err != nil {
				return nil, err
			}
			item.Embedding = v
		}

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func encodeTagsMetadata(item *store.Item) (string, string, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal tags")
	}

	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal metadata")
	}
	return string(tagsJSON), string(metadataJSON), nil
}
