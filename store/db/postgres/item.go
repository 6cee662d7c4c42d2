package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

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

	var embedding any
	if len(item.Embedding) > 0 {
		embedding = pgvector.NewVector(item.Embedding)
	}

	stmt := `
		INSERT INTO memories (id, source, title, url, content, summary, tags, created_ts, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			tags = EXCLUDED.tags,
			created_ts = EXCLUDED.created_ts,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
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
		embedding,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert item")
	}
	return item, nil
}

func (d *DB) GetItem(ctx context.Context, id string) (*store.Item, error) {
	rows, err := d.db.QueryContext(ctx, listItemsQuery+` WHERE id = $1`, id)
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
	rows, err := d.db.QueryContext(ctx,
		listItemsQuery+` ORDER BY created_ts DESC NULLS LAST LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent items")
	}
	defer rows.Close()
	return scanItems(rows)
}

// VectorSearch ranks by cosine similarity in SQL. The <=> operator is
// cosine distance, so 1 - distance is the similarity the rest of the
// system works with. Without an ANN index this is an exact scan over
// every embedded row.
func (d *DB) VectorSearch(ctx context.Context, queryVector []float32, limit int) ([]*store.ItemWithScore, error) {
	stmt := listItemsScoredQuery + `
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`
	rows, err := d.db.QueryContext(ctx, stmt, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.ItemWithScore{}
	for rows.Next() {
		item, score, err := scanItemWithScore(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, &store.ItemWithScore{Item: item, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *DB) ListItemsWithoutEmbedding(ctx context.Context, limit int) ([]*store.Item, error) {
	rows, err := d.db.QueryContext(ctx, listItemsQuery+` WHERE embedding IS NULL LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list items without embedding")
	}
	defer rows.Close()
	return scanItems(rows)
}

func (d *DB) DeleteItem(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "failed to delete item")
	}
	return nil
}

const listItemsQuery = `
	SELECT id, source, title, url, content, summary, tags, created_ts, metadata, embedding
	FROM memories`

const listItemsScoredQuery = `
	SELECT id, source, title, url, content, summary, tags, created_ts, metadata, embedding,
		1 - (embedding <=> $1) AS score
	FROM memories`

type rowScanner interface {
	Scan(dest ...any) error
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func scanItemInto(scanner rowScanner, extra ...any) (*store.Item, error) {
	item := &store.Item{}
	var (
		source       string
		title        sql.NullString
		url          sql.NullString
		content      sql.NullString
		summary      sql.NullString
		tagsJSON     []byte
		createdTs    sql.NullInt64
		metadataJSON []byte
		embedding    nullVector
	)
	dest := []any{
		&item.ID, &source, &title, &url, &content, &summary,
		&tagsJSON, &createdTs, &metadataJSON, &embedding,
	}
	dest = append(dest, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan item")
	}

	item.Source = store.SourceType(source)
	item.Title = title.String
	item.URL = url.String
	item.Content = content.String
	item.Summary = summary.String

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &item.Tags); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal tags")
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &item.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal metadata")
		}
	}
	if createdTs.Valid {
		ts := time.Unix(createdTs.Int64, 0).UTC()
		item.CreatedAt = &ts
	}
	if embedding.valid {
		item.Embedding = embedding.vec.Slice()
	}
	return item, nil
}

func scanItems(rows *sql.Rows) ([]*store.Item, error) {
	items := []*store.Item{}
	for rows.Next() {
		item, err := scanItemInto(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanItemWithScore(rows *sql.Rows) (*store.Item, float64, error) {
	var score float64
	item, err := scanItemInto(rows, &score)
	if err != nil {
		return nil, 0, err
	}
	return item, sanitizeScore(score), nil
}

// sanitizeScore clamps non-finite scores to 0. The <=> cosine distance
// is NaN when either vector has zero norm; such rows must score 0 like
// the in-process cosine routine instead of poisoning the merged
// ranking and its JSON serialization.
func sanitizeScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

func encodeTagsMetadata(item *store.Item) ([]byte, []byte, error) {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal tags")
	}

	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal metadata")
	}
	return tagsJSON, metadataJSON, nil
}
