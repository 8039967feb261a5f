package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"babysteps/internal/model"

	_ "modernc.org/sqlite"
)

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout helps avoid
	// "database is locked" flakiness when the CLI and server overlap.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS timelines (
			id TEXT PRIMARY KEY,
			baby_name TEXT NOT NULL,
			birth_date TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS milestones (
			id TEXT PRIMARY KEY,
			timeline_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			milestone_date TEXT NOT NULL,
			category TEXT NOT NULL,
			photo TEXT NOT NULL,
			created_at_unixms INTEGER NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_milestones_timeline_date ON milestones(timeline_id, milestone_date);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// GetTimeline fetches the shared timeline and its milestones ordered by
// event date ascending (ties by insertion time). If the row does not
// exist yet it returns the default aggregate without persisting it; the
// caller decides whether to write it back (the serve path does, via
// EnsureTimeline at startup).
func (s Store) GetTimeline(ctx context.Context) (*model.Timeline, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tl := &model.Timeline{ID: PublicTimelineID, Items: []model.Milestone{}}
	var createdMs, updatedMs int64
	err = db.QueryRowContext(ctx,
		`SELECT baby_name, birth_date, created_at_unixms, updated_at_unixms FROM timelines WHERE id = ?`,
		PublicTimelineID,
	).Scan(&tl.BabyName, &tl.BirthDate, &createdMs, &updatedMs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		tl.BabyName = DefaultBabyName
		tl.BirthDate = DefaultBirthDate
		return tl, nil
	case err != nil:
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	tl.CreatedAt = time.UnixMilli(createdMs).UTC()
	tl.UpdatedAt = time.UnixMilli(updatedMs).UTC()

	rows, err := db.QueryContext(ctx,
		`SELECT id, title, description, milestone_date, category, photo, created_at_unixms, updated_at_unixms
		 FROM milestones WHERE timeline_id = ?
		 ORDER BY milestone_date ASC, created_at_unixms ASC, id ASC`,
		PublicTimelineID,
	)
	if err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Milestone
		var category string
		var cMs, uMs int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Date, &category, &m.Photo, &cMs, &uMs); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		m.TimelineID = PublicTimelineID
		// Coerce whatever is stored into the closed enum; unrecognized
		// values surface as uncategorized rather than arbitrary strings.
		m.Category = model.ParseCategory(category)
		m.CreatedAt = time.UnixMilli(cMs).UTC()
		m.UpdatedAt = time.UnixMilli(uMs).UTC()
		tl.Items = append(tl.Items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load milestones: %w", err)
	}
	return tl, nil
}

// SaveTimeline upserts the display fields of the shared timeline keyed
// by the fixed id. Last write wins; there is no version check.
func (s Store) SaveTimeline(ctx context.Context, babyName, birthDate string) error {
	babyName = strings.TrimSpace(babyName)
	birthDate = strings.TrimSpace(birthDate)
	if babyName == "" {
		return errors.New("save timeline: name is empty")
	}
	if birthDate == "" {
		return errors.New("save timeline: birth date is empty")
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	nowMs := time.Now().UTC().UnixMilli()
	_, err = db.ExecContext(ctx,
		`INSERT INTO timelines(id, baby_name, birth_date, created_at_unixms, updated_at_unixms)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET baby_name = excluded.baby_name,
			birth_date = excluded.birth_date,
			updated_at_unixms = excluded.updated_at_unixms`,
		PublicTimelineID, babyName, birthDate, nowMs, nowMs,
	)
	if err != nil {
		return fmt.Errorf("save timeline: %w", err)
	}
	return nil
}

// EnsureTimeline creates the shared timeline row with defaults if it is
// absent. Idempotent.
func (s Store) EnsureTimeline(ctx context.Context) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	return ensureTimelineTx(ctx, db)
}

func ensureTimelineTx(ctx context.Context, db *sql.DB) error {
	nowMs := time.Now().UTC().UnixMilli()
	_, err := db.ExecContext(ctx,
		`INSERT INTO timelines(id, baby_name, birth_date, created_at_unixms, updated_at_unixms)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		PublicTimelineID, DefaultBabyName, DefaultBirthDate, nowMs, nowMs,
	)
	if err != nil {
		return fmt.Errorf("ensure timeline: %w", err)
	}
	return nil
}

// AddMilestone validates the new item, makes sure the timeline row
// exists and inserts the milestone. The store assigns the id and
// timestamps; the stored milestone is returned.
func (s Store) AddMilestone(ctx context.Context, m model.Milestone) (model.Milestone, error) {
	m.Title = strings.TrimSpace(m.Title)
	m.Description = strings.TrimSpace(m.Description)
	m.Date = strings.TrimSpace(m.Date)
	m.Photo = strings.TrimSpace(m.Photo)
	if m.Title == "" {
		return model.Milestone{}, errors.New("add milestone: title is empty")
	}
	if m.Date == "" {
		return model.Milestone{}, errors.New("add milestone: date is empty")
	}
	if _, err := time.Parse("2006-01-02", m.Date); err != nil {
		return model.Milestone{}, fmt.Errorf("add milestone: invalid date %q (want YYYY-MM-DD)", m.Date)
	}
	if m.Description == "" {
		return model.Milestone{}, errors.New("add milestone: description is empty")
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Milestone{}, err
	}
	defer db.Close()

	if err := ensureTimelineTx(ctx, db); err != nil {
		return model.Milestone{}, err
	}

	id, err := newRandomID("mst")
	if err != nil {
		return model.Milestone{}, err
	}
	now := time.Now().UTC()
	m.ID = id
	m.TimelineID = PublicTimelineID
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err = db.ExecContext(ctx,
		`INSERT INTO milestones(id, timeline_id, title, description, milestone_date, category, photo, created_at_unixms, updated_at_unixms)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TimelineID, m.Title, m.Description, m.Date, string(m.Category), m.Photo,
		now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return model.Milestone{}, fmt.Errorf("add milestone: %w", err)
	}
	return m, nil
}

// SetMilestonePhoto attaches (or clears) the photo reference on an
// existing milestone.
func (s Store) SetMilestonePhoto(ctx context.Context, id, photo string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("set photo: missing id")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.ExecContext(ctx,
		`UPDATE milestones SET photo = ?, updated_at_unixms = ? WHERE id = ?`,
		strings.TrimSpace(photo), time.Now().UTC().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("set photo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set photo: no milestone %s", id)
	}
	return nil
}

// DeleteMilestone removes the row by id. Deleting an id that does not
// exist is treated as success.
func (s Store) DeleteMilestone(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("delete milestone: missing id")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, `DELETE FROM milestones WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	return nil
}
