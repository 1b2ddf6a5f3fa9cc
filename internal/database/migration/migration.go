package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_meetings",
		SQL: `CREATE TABLE IF NOT EXISTS meetings (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id    TEXT        NOT NULL,
  title      TEXT        NOT NULL,
  audio_url  TEXT        NOT NULL DEFAULT '',
  duration   INTEGER     NOT NULL DEFAULT 0 CHECK (duration >= 0),
  file_size  BIGINT      NOT NULL CHECK (file_size > 0),
  date       TIMESTAMPTZ NOT NULL,
  status     TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_summaries",
		SQL: `CREATE TABLE IF NOT EXISTS summaries (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  meeting_id   UUID        NOT NULL UNIQUE REFERENCES meetings (id) ON DELETE CASCADE,
  transcript   TEXT        NOT NULL CHECK (transcript <> ''),
  key_points   JSONB       NOT NULL DEFAULT '[]',
  decisions    JSONB       NOT NULL DEFAULT '[]',
  action_items JSONB       NOT NULL DEFAULT '[]',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_tags",
		SQL: `CREATE TABLE IF NOT EXISTS tags (
  id   UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  name TEXT NOT NULL UNIQUE
);`,
	},
	{
		Name: "create_table_participants",
		SQL: `CREATE TABLE IF NOT EXISTS participants (
  id   UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
  name TEXT NOT NULL UNIQUE
);`,
	},
	{
		Name: "create_table_meeting_tags",
		SQL: `CREATE TABLE IF NOT EXISTS meeting_tags (
  meeting_id UUID NOT NULL REFERENCES meetings (id) ON DELETE CASCADE,
  tag_id     UUID NOT NULL REFERENCES tags (id),
  PRIMARY KEY (meeting_id, tag_id)
);`,
	},
	{
		Name: "create_table_meeting_participants",
		SQL: `CREATE TABLE IF NOT EXISTS meeting_participants (
  meeting_id     UUID NOT NULL REFERENCES meetings (id) ON DELETE CASCADE,
  participant_id UUID NOT NULL REFERENCES participants (id),
  PRIMARY KEY (meeting_id, participant_id)
);`,
	},
	{
		Name: "create_index_meetings_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_meetings_user_id ON meetings (user_id);`,
	},
	{
		Name: "create_index_meetings_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_meetings_status ON meetings (status);`,
	},
	{
		Name: "create_index_meetings_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_meetings_created_at ON meetings (created_at);`,
	},
}

// EnsureMigrated checks if the 'meetings' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.meetings') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
