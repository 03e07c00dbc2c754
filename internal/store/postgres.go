// Package store holds the DataSource/ResultSink collaborator interfaces
// (spec §6) and a PostgreSQL implementation of each, adapted from the
// teacher's connect/tx/batch-insert idiom.
package store

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthrisk/cardagg-engine/pkg/models"
)

// DataSource yields the visit table for a window (spec §6.1).
type DataSource interface {
	Fetch(ctx context.Context, startDate, endDate, admdvs string) ([]models.Visit, error)
}

// ResultSink accepts a window's risk groups (spec §6.2). Implementations
// are responsible for idempotence per model_no.
type ResultSink interface {
	PersistGroups(ctx context.Context, meta models.WindowMetadata, rows []models.RiskGroup) error
}

// PostgresStore wraps a pgx connection pool and implements both
// DataSource and ResultSink against one schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect opens and pings a connection pool to PostgreSQL.
func Connect(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}
	log.Println("cardagg: connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}
	log.Println("cardagg: schema initialized")
	return nil
}

// GetPool exposes the pool for subsystems that need direct access (the
// API's group listing, for instance).
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

// Fetch reads every visit in [startDate, endDate] for admdvs (empty
// admdvs fetches every jurisdiction). The table is assumed to fit in
// memory for one window, per spec §5.
func (s *PostgresStore) Fetch(ctx context.Context, startDate, endDate, admdvs string) ([]models.Visit, error) {
	sql := `
		SELECT admdvs, med_clinic_id, person_id, med_type, flx_med_org_id, adm_time, adm_date
		FROM visit_settlement
		WHERE adm_date >= $1 AND adm_date <= $2 AND ($3 = '' OR admdvs = $3)
		  AND med_type IN ('11', '41')
	`
	rows, err := s.pool.Query(ctx, sql, startDate, endDate, admdvs)
	if err != nil {
		return nil, fmt.Errorf("fetch visits: %w", err)
	}
	defer rows.Close()

	var out []models.Visit
	for rows.Next() {
		var v models.Visit
		if err := rows.Scan(&v.Admdvs, &v.MedClinicID, &v.PersonID, &v.MedType, &v.FlxMedOrgID, &v.AdmTime, &v.AdmDate); err != nil {
			return nil, fmt.Errorf("scan visit row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PersistGroups writes a window's risk groups inside one transaction,
// first deleting any prior rows for the same model_no (idempotence),
// then batch-inserting the new set — the same transaction-then-batch-
// insert shape as the teacher's SaveAnalysisResult.
func (s *PostgresStore) PersistGroups(ctx context.Context, meta models.WindowMetadata, rows []models.RiskGroup) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrSinkFailure, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM risk_group WHERE model_no = $1`, meta.ModelNo); err != nil {
		return fmt.Errorf("%w: delete prior rows: %v", models.ErrSinkFailure, err)
	}

	insertSQL := `
		INSERT INTO risk_group
		(model_no, admdvs, input_begn_date, input_end_date, group_id, subgroup_id,
		 risk_clinic_ratio, person_id, med_clinic_id, flx_med_org_id, med_type, adm_date, adm_time)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`
	for _, r := range rows {
		_, err := tx.Exec(ctx, insertSQL,
			meta.ModelNo, meta.Admdvs, meta.InputBegnDate, meta.InputEndDate,
			r.GroupID, r.SubgroupID, r.RiskClinicRatio,
			r.PersonID, r.MedClinicID, r.FlxMedOrgID, r.MedType, r.AdmDate, r.AdmTime,
		)
		if err != nil {
			return fmt.Errorf("%w: insert risk_group row: %v", models.ErrSinkFailure, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", models.ErrSinkFailure, err)
	}
	return nil
}
