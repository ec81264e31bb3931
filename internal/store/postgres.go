package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/procuroid/procurement-engine/internal/db"
	"github.com/procuroid/procurement-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_supplier":          `SELECT id, name, phone, email, capabilities, created_at, updated_at FROM suppliers WHERE id = $1`,
	"get_workflow":          `SELECT id, request, phase, outcomes, approved_quotation_id, failure_reason, order_info, created_at, updated_at FROM workflow_runs WHERE id = $1`,
	"get_quotation_by_call": `SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at FROM quotation_records WHERE call_id = $1`,
	"record_call_event":     `INSERT INTO call_events (call_id, source, received_at) VALUES ($1, $2, $3) ON CONFLICT (call_id, source) DO NOTHING`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS suppliers (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	capabilities JSONB NOT NULL DEFAULT '[]',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS workflow_runs (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	request               JSONB NOT NULL,
	phase                 TEXT NOT NULL DEFAULT 'scouting',
	outcomes              JSONB,
	approved_quotation_id TEXT,
	failure_reason        TEXT,
	order_info            JSONB,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS quotation_records (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workflow_id       TEXT,
	supplier_id       TEXT NOT NULL DEFAULT '',
	supplier_name     TEXT NOT NULL DEFAULT '',
	call_id           TEXT NOT NULL UNIQUE,
	response_type     TEXT NOT NULL,
	quotation         JSONB,
	meeting           JSONB,
	sentiment         INTEGER NOT NULL DEFAULT 5,
	confidence        INTEGER NOT NULL DEFAULT 0,
	key_points        JSONB,
	reason            TEXT,
	extraction_method TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS call_events (
	call_id     TEXT NOT NULL,
	source      TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (call_id, source)
);

CREATE TABLE IF NOT EXISTS meetings (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	quotation_id TEXT NOT NULL,
	supplier_id  TEXT,
	meeting_time TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_workflow_runs_phase ON workflow_runs(phase);
CREATE INDEX IF NOT EXISTS idx_quotation_records_workflow ON quotation_records(workflow_id);
CREATE INDEX IF NOT EXISTS idx_quotation_records_call_id ON quotation_records(call_id);
CREATE INDEX IF NOT EXISTS idx_quotation_records_supplier ON quotation_records(supplier_id);
CREATE INDEX IF NOT EXISTS idx_meetings_quotation ON meetings(quotation_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertSupplier(ctx context.Context, supplier model.Supplier) (*model.Supplier, error) {
	if supplier.ID == "" {
		supplier.ID = uuid.New().String()
		supplier.CreatedAt = time.Now().UTC()
	}
	supplier.UpdatedAt = time.Now().UTC()
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = supplier.UpdatedAt
	}

	capsJSON, err := json.Marshal(supplier.Capabilities)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal capabilities")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO suppliers (id, name, phone, email, capabilities, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET name = $2, phone = $3, email = $4, capabilities = $5, updated_at = $7`,
		supplier.ID, supplier.Name, supplier.Phone, supplier.Email, capsJSON,
		supplier.CreatedAt, supplier.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert supplier")
	}
	return &supplier, nil
}

// ImportSuppliers bulk-upserts a supplier batch through a temp table COPY.
func (s *PostgresStore) ImportSuppliers(ctx context.Context, suppliers []model.Supplier) (int64, error) {
	if len(suppliers) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(suppliers))
	for _, sp := range suppliers {
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		capsJSON, err := json.Marshal(sp.Capabilities)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal capabilities")
		}
		rows = append(rows, []any{sp.ID, sp.Name, sp.Phone, sp.Email, capsJSON, now, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "suppliers",
		Columns:      []string{"id", "name", "phone", "email", "capabilities", "created_at", "updated_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"name", "phone", "email", "capabilities", "updated_at"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import suppliers")
}

func (s *PostgresStore) GetSupplier(ctx context.Context, supplierID string) (*model.Supplier, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, phone, email, capabilities, created_at, updated_at FROM suppliers WHERE id = $1`,
		supplierID,
	)
	supplier, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get supplier %s", supplierID)
	}
	return supplier, nil
}

func (s *PostgresStore) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, phone, email, capabilities, created_at, updated_at FROM suppliers ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list suppliers")
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan supplier")
		}
		suppliers = append(suppliers, *supplier)
	}
	return suppliers, eris.Wrap(rows.Err(), "postgres: list suppliers iterate")
}

func (s *PostgresStore) DeleteSupplier(ctx context.Context, supplierID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, supplierID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete supplier %s", supplierID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("supplier not found: %s", supplierID)
	}
	return nil
}

func (s *PostgresStore) CreateWorkflow(ctx context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflow_runs (id, request, phase, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, reqJSON, string(model.PhaseScouting), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert workflow")
	}

	return &model.WorkflowRun{
		ID:        id,
		Request:   req,
		Phase:     model.PhaseScouting,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetWorkflow(ctx context.Context, workflowID string) (*model.WorkflowRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, request, phase, outcomes, approved_quotation_id, failure_reason, order_info, created_at, updated_at
		 FROM workflow_runs WHERE id = $1`,
		workflowID,
	)
	run, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get workflow %s", workflowID)
	}
	return run, nil
}

func (s *PostgresStore) UpdateWorkflow(ctx context.Context, run *model.WorkflowRun) error {
	run.UpdatedAt = time.Now().UTC()

	outcomesJSON, err := json.Marshal(run.Outcomes)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal outcomes")
	}
	var orderJSON []byte
	if run.Order != nil {
		orderJSON, err = json.Marshal(run.Order)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal order")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE workflow_runs
		 SET phase = $1, outcomes = $2, approved_quotation_id = $3, failure_reason = $4, order_info = $5, updated_at = $6
		 WHERE id = $7`,
		string(run.Phase), outcomesJSON, nullIfEmpty(run.ApprovedQuotationID),
		nullIfEmpty(run.FailureReason), orderJSON, run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update workflow %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("workflow not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]model.WorkflowRun, error) {
	query := `SELECT id, request, phase, outcomes, approved_quotation_id, failure_reason, order_info, created_at, updated_at
	          FROM workflow_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Phase != "" {
		query += fmt.Sprintf(` AND phase = $%d`, argIdx)
		args = append(args, string(filter.Phase))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list workflows")
	}
	defer rows.Close()

	var runs []model.WorkflowRun
	for rows.Next() {
		run, err := scanWorkflow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan workflow")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list workflows iterate")
}

// UpsertQuotation inserts the record, or updates the existing row when a
// record for the same call_id already exists. The original created_at and id
// are preserved on update so repeated reconciliation of one call never
// produces a second record.
func (s *PostgresStore) UpsertQuotation(ctx context.Context, record *model.QuotationRecord) (*model.QuotationRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	quotationJSON, err := marshalNullable(record.Quotation)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal quotation")
	}
	meetingJSON, err := marshalNullable(record.Meeting)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal meeting")
	}
	keyPointsJSON, err := json.Marshal(record.KeyPoints)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal key points")
	}

	var id string
	var createdAt time.Time
	err = s.pool.QueryRow(ctx,
		`INSERT INTO quotation_records
		 (id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (call_id) DO UPDATE SET
		   workflow_id = $2, supplier_id = $3, supplier_name = $4, response_type = $6,
		   quotation = $7, meeting = $8, sentiment = $9, confidence = $10,
		   key_points = $11, reason = $12, extraction_method = $13, updated_at = $15
		 RETURNING id, created_at`,
		record.ID, nullIfEmpty(record.WorkflowID), record.SupplierID, record.SupplierName,
		record.CallID, string(record.ResponseType), quotationJSON, meetingJSON,
		record.Sentiment, record.Confidence, keyPointsJSON, nullIfEmpty(record.Reason),
		record.ExtractionMethod, record.CreatedAt, record.UpdatedAt,
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert quotation for call %s", record.CallID)
	}

	record.ID = id
	record.CreatedAt = createdAt
	return record, nil
}

func (s *PostgresStore) GetQuotation(ctx context.Context, quotationID string) (*model.QuotationRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at
		 FROM quotation_records WHERE id = $1`,
		quotationID,
	)
	record, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get quotation %s", quotationID)
	}
	return record, nil
}

func (s *PostgresStore) GetQuotationByCallID(ctx context.Context, callID string) (*model.QuotationRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at
		 FROM quotation_records WHERE call_id = $1`,
		callID,
	)
	record, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get quotation by call %s", callID)
	}
	return record, nil
}

func (s *PostgresStore) ListQuotationsByWorkflow(ctx context.Context, workflowID string) ([]model.QuotationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at
		 FROM quotation_records WHERE workflow_id = $1 ORDER BY created_at`,
		workflowID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list quotations")
	}
	defer rows.Close()

	var records []model.QuotationRecord
	for rows.Next() {
		record, err := scanQuotation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan quotation")
		}
		records = append(records, *record)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list quotations iterate")
}

func (s *PostgresStore) RecordCallEvent(ctx context.Context, callID, source string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_events (call_id, source, received_at) VALUES ($1, $2, $3)
		 ON CONFLICT (call_id, source) DO NOTHING`,
		callID, source, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: record call event")
}

func (s *PostgresStore) SaveMeeting(ctx context.Context, meeting model.ScheduledMeeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.New().String()
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO meetings (id, quotation_id, supplier_id, meeting_time, created_at) VALUES ($1, $2, $3, $4, $5)`,
		meeting.ID, meeting.QuotationID, nullIfEmpty(meeting.SupplierID), meeting.Time, meeting.CreatedAt,
	)
	return eris.Wrap(err, "postgres: save meeting")
}

func (s *PostgresStore) ListMeetings(ctx context.Context) ([]model.ScheduledMeeting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quotation_id, supplier_id, meeting_time, created_at FROM meetings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list meetings")
	}
	defer rows.Close()

	var meetings []model.ScheduledMeeting
	for rows.Next() {
		var m model.ScheduledMeeting
		var supplierID *string
		if err := rows.Scan(&m.ID, &m.QuotationID, &supplierID, &m.Time, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan meeting")
		}
		if supplierID != nil {
			m.SupplierID = *supplierID
		}
		meetings = append(meetings, m)
	}
	return meetings, eris.Wrap(rows.Err(), "postgres: list meetings iterate")
}

// row is the shared scan surface of pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanSupplier(r row) (*model.Supplier, error) {
	var s model.Supplier
	var capsJSON []byte
	if err := r.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &capsJSON, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if len(capsJSON) > 0 {
		if err := json.Unmarshal(capsJSON, &s.Capabilities); err != nil {
			return nil, eris.Wrap(err, "unmarshal capabilities")
		}
	}
	return &s, nil
}

func scanWorkflow(r row) (*model.WorkflowRun, error) {
	var run model.WorkflowRun
	var reqJSON []byte
	var outcomesJSON, orderJSON *[]byte
	var approvedID, failureReason *string

	if err := r.Scan(&run.ID, &reqJSON, &run.Phase, &outcomesJSON, &approvedID,
		&failureReason, &orderJSON, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reqJSON, &run.Request); err != nil {
		return nil, eris.Wrap(err, "unmarshal request")
	}
	if outcomesJSON != nil && len(*outcomesJSON) > 0 {
		if err := json.Unmarshal(*outcomesJSON, &run.Outcomes); err != nil {
			return nil, eris.Wrap(err, "unmarshal outcomes")
		}
	}
	if orderJSON != nil && len(*orderJSON) > 0 {
		run.Order = &model.OrderConfirmation{}
		if err := json.Unmarshal(*orderJSON, run.Order); err != nil {
			return nil, eris.Wrap(err, "unmarshal order")
		}
	}
	if approvedID != nil {
		run.ApprovedQuotationID = *approvedID
	}
	if failureReason != nil {
		run.FailureReason = *failureReason
	}
	return &run, nil
}

func scanQuotation(r row) (*model.QuotationRecord, error) {
	var rec model.QuotationRecord
	var workflowID, reason *string
	var quotationJSON, meetingJSON, keyPointsJSON *[]byte

	if err := r.Scan(&rec.ID, &workflowID, &rec.SupplierID, &rec.SupplierName,
		&rec.CallID, &rec.ResponseType, &quotationJSON, &meetingJSON,
		&rec.Sentiment, &rec.Confidence, &keyPointsJSON, &reason,
		&rec.ExtractionMethod, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if workflowID != nil {
		rec.WorkflowID = *workflowID
	}
	if reason != nil {
		rec.Reason = *reason
	}
	if quotationJSON != nil && len(*quotationJSON) > 0 {
		rec.Quotation = &model.QuotationFields{}
		if err := json.Unmarshal(*quotationJSON, rec.Quotation); err != nil {
			return nil, eris.Wrap(err, "unmarshal quotation")
		}
	}
	if meetingJSON != nil && len(*meetingJSON) > 0 {
		rec.Meeting = &model.MeetingInfo{}
		if err := json.Unmarshal(*meetingJSON, rec.Meeting); err != nil {
			return nil, eris.Wrap(err, "unmarshal meeting")
		}
	}
	if keyPointsJSON != nil && len(*keyPointsJSON) > 0 {
		if err := json.Unmarshal(*keyPointsJSON, &rec.KeyPoints); err != nil {
			return nil, eris.Wrap(err, "unmarshal key points")
		}
	}
	return &rec, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch val := v.(type) {
	case *model.QuotationFields:
		if val == nil {
			return nil, nil
		}
	case *model.MeetingInfo:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
