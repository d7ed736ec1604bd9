package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/benjlis/covid19-search/internal/query"
)

// ErrNotFound is returned when an email id does not exist in the corpus.
var ErrNotFound = errors.New("email not found")

const selectEmails = `SELECT sent, subject, from_email, to_emails, foiarchive_file, file_pg_start,
       email_id, topic, entities, source_email_url, preview_email_url
  FROM covid19.dc19_emails`

// Email is one row of the dc19_emails view: original message metadata plus
// the topic and entity annotations produced by the upstream pipelines.
type Email struct {
	ID         int64
	Sent       time.Time // zero when the source page carried no date
	Subject    string
	From       string
	To         string
	File       string
	PageStart  int
	Topic      string
	Entities   []string
	SourceURL  string
	PreviewURL string
}

// SearchResult holds one page of search hits.
type SearchResult struct {
	Emails []Email
	// Truncated is set when the row count hit the query limit, meaning
	// more emails matched than were returned.
	Truncated bool
}

// searchSQL assembles the final search statement from a composed clause.
// The limit travels as the next bind argument after the clause's own.
func searchSQL(clause query.Clause, limit int) (string, []any) {
	stmt := fmt.Sprintf("%s%s ORDER BY sent NULLS LAST, email_id LIMIT $%d", selectEmails, clause.Where(), clause.NextArg())
	args := append(append([]any{}, clause.Args...), limit)

	return stmt, args
}

// SearchEmails runs the composed filter clause against the corpus view,
// returning at most limit rows.
func (db *DB) SearchEmails(ctx context.Context, clause query.Clause, limit int) (*SearchResult, error) {
	stmt, args := searchSQL(clause, limit)

	rows, err := db.Pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search emails: %w", err)
	}
	defer rows.Close()

	emails, err := scanEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("scan emails: %w", err)
	}

	return &SearchResult{
		Emails:    emails,
		Truncated: len(emails) == limit,
	}, nil
}

// GetEmail fetches a single email by id. Returns ErrNotFound when the id
// does not exist.
func (db *DB) GetEmail(ctx context.Context, id int64) (*Email, error) {
	rows, err := db.Pool.Query(ctx, selectEmails+" WHERE email_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get email: %w", err)
	}
	defer rows.Close()

	emails, err := scanEmails(rows)
	if err != nil {
		return nil, fmt.Errorf("scan email: %w", err)
	}

	if len(emails) == 0 {
		return nil, ErrNotFound
	}

	return &emails[0], nil
}

func scanEmails(rows pgx.Rows) ([]Email, error) {
	var emails []Email

	for rows.Next() {
		var (
			e          Email
			sent       pgtype.Timestamptz
			subject    pgtype.Text
			from       pgtype.Text
			to         pgtype.Text
			file       pgtype.Text
			pageStart  pgtype.Int4
			topic      pgtype.Text
			sourceURL  pgtype.Text
			previewURL pgtype.Text
		)

		if err := rows.Scan(&sent, &subject, &from, &to, &file, &pageStart,
			&e.ID, &topic, &e.Entities, &sourceURL, &previewURL); err != nil {
			return nil, err
		}

		e.Sent = fromTimestamptz(sent)
		e.Subject = fromText(subject)
		e.From = fromText(from)
		e.To = fromText(to)
		e.File = fromText(file)
		e.PageStart = fromInt4(pageStart)
		e.Topic = fromText(topic)
		e.SourceURL = fromText(sourceURL)
		e.PreviewURL = fromText(previewURL)

		emails = append(emails, e)
	}

	return emails, rows.Err()
}

// VolumePoint is one day of the email-volume time series.
type VolumePoint struct {
	Day   time.Time
	Count int64
}

// EmailVolume returns the per-day email counts over the given window,
// ordered by day. Emails without a sent date are not counted.
func (db *DB) EmailVolume(ctx context.Context, from, to time.Time) ([]VolumePoint, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT date(sent) AS day, count(*) AS emails
		  FROM covid19.emails
		 WHERE sent BETWEEN $1 AND $2
		 GROUP BY day
		 ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("email volume: %w", err)
	}
	defer rows.Close()

	var points []VolumePoint

	for rows.Next() {
		var (
			day   pgtype.Date
			count int64
		)

		if err := rows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan volume point: %w", err)
		}

		points = append(points, VolumePoint{Day: day.Time, Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("email volume rows: %w", err)
	}

	return points, nil
}
