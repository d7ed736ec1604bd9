package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// Topic is one label from the upstream topic model with its keyword set.
type Topic struct {
	ID       string
	Label    string
	Keywords []string
}

// ListEntities returns entity names for the given NER types, ordered
// alphabetically.
func (db *DB) ListEntities(ctx context.Context, types ...string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT entity
		  FROM covid19.entities
		 WHERE enttype = ANY($1)
		 ORDER BY entity`, types)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []string

	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}

		entities = append(entities, entity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities rows: %w", err)
	}

	return entities, nil
}

// ListTopics returns all topic labels with their keywords, ordered
// alphabetically by label.
func (db *DB) ListTopics(ctx context.Context) ([]Topic, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, topic, keywords
		  FROM covid19.topics
		 ORDER BY topic`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic

	for rows.Next() {
		var (
			id    pgtype.UUID
			topic Topic
		)

		if err := rows.Scan(&id, &topic.Label, &topic.Keywords); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}

		topic.ID = fromUUID(id)
		topics = append(topics, topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topics rows: %w", err)
	}

	return topics, nil
}
