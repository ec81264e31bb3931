package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/procuroid/procurement-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local
// development and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS suppliers (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	capabilities TEXT NOT NULL DEFAULT '[]',
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS workflow_runs (
	id                    TEXT PRIMARY KEY,
	request               TEXT NOT NULL,
	phase                 TEXT NOT NULL DEFAULT 'scouting',
	outcomes              TEXT,
	approved_quotation_id TEXT,
	failure_reason        TEXT,
	order_info            TEXT,
	created_at            DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS quotation_records (
	id                TEXT PRIMARY KEY,
	workflow_id       TEXT,
	supplier_id       TEXT NOT NULL DEFAULT '',
	supplier_name     TEXT NOT NULL DEFAULT '',
	call_id           TEXT NOT NULL UNIQUE,
	response_type     TEXT NOT NULL,
	quotation         TEXT,
	meeting           TEXT,
	sentiment         INTEGER NOT NULL DEFAULT 5,
	confidence        INTEGER NOT NULL DEFAULT 0,
	key_points        TEXT,
	reason            TEXT,
	extraction_method TEXT NOT NULL DEFAULT '',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS call_events (
	call_id     TEXT NOT NULL,
	source      TEXT NOT NULL,
	received_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (call_id, source)
);

CREATE TABLE IF NOT EXISTS meetings (
	id           TEXT PRIMARY KEY,
	quotation_id TEXT NOT NULL,
	supplier_id  TEXT,
	meeting_time TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_workflow_runs_phase ON workflow_runs(phase);
CREATE INDEX IF NOT EXISTS idx_quotation_records_workflow ON quotation_records(workflow_id);
CREATE INDEX IF NOT EXISTS idx_quotation_records_supplier ON quotation_records(supplier_id);
CREATE INDEX IF NOT EXISTS idx_meetings_quotation ON meetings(quotation_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertSupplier(ctx context.Context, supplier model.Supplier) (*model.Supplier, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal capabilities")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO suppliers (id, name, phone, email, capabilities, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, phone = excluded.phone,
		   email = excluded.email, capabilities = excluded.capabilities, updated_at = excluded.updated_at`,
		supplier.ID, supplier.Name, supplier.Phone, supplier.Email, string(capsJSON),
		supplier.CreatedAt, supplier.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert supplier")
	}
	return &supplier, nil
}

func (s *SQLiteStore) ImportSuppliers(ctx context.Context, suppliers []model.Supplier) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import suppliers begin")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var count int64
	for _, sp := range suppliers {
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		capsJSON, err := json.Marshal(sp.Capabilities)
		if err != nil {
			return count, eris.Wrap(err, "sqlite: marshal capabilities")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO suppliers (id, name, phone, email, capabilities, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, phone = excluded.phone,
			   email = excluded.email, capabilities = excluded.capabilities, updated_at = excluded.updated_at`,
			sp.ID, sp.Name, sp.Phone, sp.Email, string(capsJSON), now, now,
		)
		if err != nil {
			return count, eris.Wrapf(err, "sqlite: import supplier %s", sp.Name)
		}
		count++
	}
	return count, eris.Wrap(tx.Commit(), "sqlite: import suppliers commit")
}

func (s *SQLiteStore) GetSupplier(ctx context.Context, supplierID string) (*model.Supplier, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, phone, email, capabilities, created_at, updated_at FROM suppliers WHERE id = ?`,
		supplierID,
	)
	supplier, err := scanSupplier(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get supplier %s", supplierID)
	}
	return supplier, nil
}

func (s *SQLiteStore) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, email, capabilities, created_at, updated_at FROM suppliers ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list suppliers")
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan supplier")
		}
		suppliers = append(suppliers, *supplier)
	}
	return suppliers, eris.Wrap(rows.Err(), "sqlite: list suppliers iterate")
}

func (s *SQLiteStore) DeleteSupplier(ctx context.Context, supplierID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, supplierID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete supplier %s", supplierID)
	}
	return checkRowsAffected(res, "supplier", supplierID)
}

func (s *SQLiteStore) CreateWorkflow(ctx context.Context, req model.ProcurementRequest) (*model.WorkflowRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_runs (id, request, phase, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(reqJSON), string(model.PhaseScouting), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert workflow")
	}

	return &model.WorkflowRun{
		ID:        id,
		Request:   req,
		Phase:     model.PhaseScouting,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetWorkflow(ctx context.Context, workflowID string) (*model.WorkflowRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request, phase, outcomes, approved_quotation_id, failure_reason, order_info, created_at, updated_at
		 FROM workflow_runs WHERE id = ?`,
		workflowID,
	)
	run, err := scanWorkflow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get workflow %s", workflowID)
	}
	return run, nil
}

func (s *SQLiteStore) UpdateWorkflow(ctx context.Context, run *model.WorkflowRun) error {
	run.UpdatedAt = time.Now().UTC()

	outcomesJSON, err := json.Marshal(run.Outcomes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal outcomes")
	}
	var orderJSON []byte
	if run.Order != nil {
		orderJSON, err = json.Marshal(run.Order)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal order")
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE workflow_runs
		 SET phase = ?, outcomes = ?, approved_quotation_id = ?, failure_reason = ?, order_info = ?, updated_at = ?
		 WHERE id = ?`,
		string(run.Phase), string(outcomesJSON), nullIfEmpty(run.ApprovedQuotationID),
		nullIfEmpty(run.FailureReason), nullBytes(orderJSON), run.UpdatedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update workflow %s", run.ID)
	}
	return checkRowsAffected(res, "workflow", run.ID)
}

func (s *SQLiteStore) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]model.WorkflowRun, error) {
	query := `SELECT id, request, phase, outcomes, approved_quotation_id, failure_reason, order_info, created_at, updated_at
	          FROM workflow_runs WHERE 1=1`
	var args []any

	if filter.Phase != "" {
		query += ` AND phase = ?`
		args = append(args, string(filter.Phase))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list workflows")
	}
	defer rows.Close()

	var runs []model.WorkflowRun
	for rows.Next() {
		run, err := scanWorkflow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan workflow")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list workflows iterate")
}

func (s *SQLiteStore) UpsertQuotation(ctx context.Context, record *model.QuotationRecord) (*model.QuotationRecord, error) {
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
		return nil, eris.Wrap(err, "sqlite: marshal quotation")
	}
	meetingJSON, err := marshalNullable(record.Meeting)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal meeting")
	}
	keyPointsJSON, err := json.Marshal(record.KeyPoints)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal key points")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quotation_records
		 (id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (call_id) DO UPDATE SET
		   workflow_id = excluded.workflow_id, supplier_id = excluded.supplier_id,
		   supplier_name = excluded.supplier_name, response_type = excluded.response_type,
		   quotation = excluded.quotation, meeting = excluded.meeting,
		   sentiment = excluded.sentiment, confidence = excluded.confidence,
		   key_points = excluded.key_points, reason = excluded.reason,
		   extraction_method = excluded.extraction_method, updated_at = excluded.updated_at`,
		record.ID, nullIfEmpty(record.WorkflowID), record.SupplierID, record.SupplierName,
		record.CallID, string(record.ResponseType), nullBytes(quotationJSON), nullBytes(meetingJSON),
		record.Sentiment, record.Confidence, string(keyPointsJSON), nullIfEmpty(record.Reason),
		record.ExtractionMethod, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert quotation for call %s", record.CallID)
	}

	// Re-read to pick up the preserved id and created_at on conflict.
	return s.GetQuotationByCallID(ctx, record.CallID)
}

func (s *SQLiteStore) GetQuotation(ctx context.Context, quotationID string) (*model.QuotationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at
		 FROM quotation_records WHERE id = ?`,
		quotationID,
	)
	record, err := scanQuotation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get quotation %s", quotationID)
	}
	return record, nil
}

func (s *SQLiteStore) GetQuotationByCallID(ctx context.Context, callID string) (*model.QuotationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at
		 FROM quotation_records WHERE call_id = ?`,
		callID,
	)
	record, err := scanQuotation(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get quotation by call %s", callID)
	}
	return record, nil
}

func (s *SQLiteStore) ListQuotationsByWorkflow(ctx context.Context, workflowID string) ([]model.QuotationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, supplier_id, supplier_name, call_id, response_type, quotation, meeting, sentiment, confidence, key_points, reason, extraction_method, created_at, updated_at
		 FROM quotation_records WHERE workflow_id = ? ORDER BY created_at`,
		workflowID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list quotations")
	}
	defer rows.Close()

	var records []model.QuotationRecord
	for rows.Next() {
		record, err := scanQuotation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan quotation")
		}
		records = append(records, *record)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list quotations iterate")
}

func (s *SQLiteStore) RecordCallEvent(ctx context.Context, callID, source string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_events (call_id, source, received_at) VALUES (?, ?, ?)
		 ON CONFLICT (call_id, source) DO NOTHING`,
		callID, source, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: record call event")
}

func (s *SQLiteStore) SaveMeeting(ctx context.Context, meeting model.ScheduledMeeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.New().String()
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (id, quotation_id, supplier_id, meeting_time, created_at) VALUES (?, ?, ?, ?, ?)`,
		meeting.ID, meeting.QuotationID, nullIfEmpty(meeting.SupplierID), meeting.Time, meeting.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: save meeting")
}

func (s *SQLiteStore) ListMeetings(ctx context.Context) ([]model.ScheduledMeeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quotation_id, supplier_id, meeting_time, created_at FROM meetings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list meetings")
	}
	defer rows.Close()

	var meetings []model.ScheduledMeeting
	for rows.Next() {
		var m model.ScheduledMeeting
		var supplierID *string
		if err := rows.Scan(&m.ID, &m.QuotationID, &supplierID, &m.Time, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan meeting")
		}
		if supplierID != nil {
			m.SupplierID = *supplierID
		}
		meetings = append(meetings, m)
	}
	return meetings, eris.Wrap(rows.Err(), "sqlite: list meetings iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
