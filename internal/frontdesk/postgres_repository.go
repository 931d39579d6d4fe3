package frontdesk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/meditrack/internal/records"
)

// Postgres error codes we translate.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// db is the subset of pgxpool.Pool used by the repository.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores front-desk records in Postgres.
type PostgresRepository struct {
	db db
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("frontdesk: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateDoctor(ctx context.Context, req *CreateDoctorRequest) (*Doctor, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d := Doctor{Name: strings.TrimSpace(req.Name), Specialization: req.Specialization, Position: req.Position}
	err := r.db.QueryRow(ctx,
		`INSERT INTO doctors (name, specialization, position) VALUES ($1, $2, $3) RETURNING id`,
		d.Name, d.Specialization, d.Position,
	).Scan(&d.ID)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: insert doctor: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return r.queryDoctors(ctx, `SELECT id, name, specialization, position FROM doctors ORDER BY id`)
}

func (r *PostgresRepository) FindDoctors(ctx context.Context, name string) ([]Doctor, error) {
	return r.queryDoctors(ctx,
		`SELECT id, name, specialization, position FROM doctors WHERE name ILIKE $1 ORDER BY id`,
		likePattern(name))
}

func (r *PostgresRepository) queryDoctors(ctx context.Context, query string, args ...any) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: query doctors: %w", err)
	}
	defer rows.Close()

	out := []Doctor{}
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.Position); err != nil {
			return nil, fmt.Errorf("frontdesk: scan doctor: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("frontdesk: iterate doctors: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CreatePatient(ctx context.Context, req *CreatePatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := Patient{Name: strings.TrimSpace(req.Name), DOB: req.DOB, Contact: req.Contact}
	err := r.db.QueryRow(ctx,
		`INSERT INTO patients (name, dob, contact) VALUES ($1, $2, $3) RETURNING id`,
		p.Name, p.DOB, p.Contact,
	).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: insert patient: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	return r.queryPatients(ctx, `SELECT id, name, dob, contact FROM patients ORDER BY id DESC`)
}

func (r *PostgresRepository) FindPatients(ctx context.Context, name string) ([]Patient, error) {
	return r.queryPatients(ctx,
		`SELECT id, name, dob, contact FROM patients WHERE name ILIKE $1 ORDER BY id DESC`,
		likePattern(name))
}

func (r *PostgresRepository) queryPatients(ctx context.Context, query string, args ...any) ([]Patient, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: query patients: %w", err)
	}
	defer rows.Close()

	out := []Patient{}
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.DOB, &p.Contact); err != nil {
			return nil, fmt.Errorf("frontdesk: scan patient: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("frontdesk: iterate patients: %w", err)
	}
	return out, nil
}

// DeletePatient removes the patient; appointments go with it via ON DELETE CASCADE.
func (r *PostgresRepository) DeletePatient(ctx context.Context, id int) error {
	return r.deleteByID(ctx, `DELETE FROM patients WHERE id = $1`, id, "patient")
}

func (r *PostgresRepository) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	at, err := req.Validate()
	if err != nil {
		return nil, err
	}

	a := Appointment{PatientID: req.PatientID, DoctorID: req.DoctorID, ScheduledAt: at, Status: StatusScheduled}
	err = r.db.QueryRow(ctx,
		`INSERT INTO appointments (patient_id, doctor_id, scheduled_at, status) VALUES ($1, $2, $3, $4) RETURNING id`,
		a.PatientID, a.DoctorID, a.ScheduledAt, a.Status,
	).Scan(&a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgForeignKeyViolation:
				return nil, fmt.Errorf("frontdesk: %s: %w", pgErr.ConstraintName, ErrNotFound)
			case pgUniqueViolation:
				return nil, ErrSlotTaken
			}
		}
		return nil, fmt.Errorf("frontdesk: insert appointment: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]AppointmentDetail, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.DoctorIDs) > 0 {
		args = append(args, filter.DoctorIDs)
		where = append(where, fmt.Sprintf("a.doctor_id = ANY($%d)", len(args)))
	}
	if filter.Day != nil {
		start := records.StartOfDay(wallClock(*filter.Day))
		args = append(args, start, start.AddDate(0, 0, 1))
		where = append(where, fmt.Sprintf("a.scheduled_at >= $%d AND a.scheduled_at < $%d", len(args)-1, len(args)))
	}

	query := `SELECT a.id, a.patient_id, a.doctor_id, a.scheduled_at, a.status,
		COALESCE(p.name, ''), COALESCE(d.name, '')
		FROM appointments a
		LEFT JOIN patients p ON p.id = a.patient_id
		LEFT JOIN doctors d ON d.id = a.doctor_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: query appointments: %w", err)
	}
	defer rows.Close()

	out := []AppointmentDetail{}
	for rows.Next() {
		var d AppointmentDetail
		if err := rows.Scan(&d.ID, &d.PatientID, &d.DoctorID, &d.ScheduledAt, &d.Status, &d.PatientName, &d.DoctorName); err != nil {
			return nil, fmt.Errorf("frontdesk: scan appointment: %w", err)
		}
		d.ScheduledAt = wallClock(d.ScheduledAt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("frontdesk: iterate appointments: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteAppointment(ctx context.Context, id int) error {
	return r.deleteByID(ctx, `DELETE FROM appointments WHERE id = $1`, id, "appointment")
}

const inventoryColumns = `id, name, category, quantity, unit, low_stock_threshold, critical_threshold, last_restocked, notes`

func scanInventory(row pgx.Row) (*InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Quantity,
		&item.Unit,
		&item.LowStockThreshold,
		&item.CriticalThreshold,
		&item.LastRestocked,
		&item.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *PostgresRepository) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+inventoryColumns+` FROM inventory_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("frontdesk: query inventory: %w", err)
	}
	defer rows.Close()

	out := []InventoryItem{}
	for rows.Next() {
		item, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("frontdesk: scan inventory: %w", err)
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("frontdesk: iterate inventory: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetInventoryItem(ctx context.Context, id int64) (*InventoryItem, error) {
	item, err := scanInventory(r.db.QueryRow(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("frontdesk: select inventory item: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) CreateInventoryItem(ctx context.Context, req *CreateInventoryRequest) (*InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	item, err := scanInventory(r.db.QueryRow(ctx,
		`INSERT INTO inventory_items (name, category, quantity, unit, low_stock_threshold, critical_threshold, last_restocked, notes)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)
		RETURNING `+inventoryColumns,
		req.Name, req.Category, req.Quantity, req.Unit, req.LowStockThreshold, req.CriticalThreshold, req.Notes,
	))
	if err != nil {
		return nil, fmt.Errorf("frontdesk: insert inventory item: %w", err)
	}
	return item, nil
}

// UpdateInventoryItem patches the set fields. Raising the quantity stamps
// last_restocked.
func (r *PostgresRepository) UpdateInventoryItem(ctx context.Context, id int64, req *UpdateInventoryRequest) (*InventoryItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var name *string
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		name = &trimmed
	}
	item, err := scanInventory(r.db.QueryRow(ctx,
		`UPDATE inventory_items SET
			name = COALESCE($2, name),
			category = COALESCE($3, category),
			quantity = COALESCE($4, quantity),
			low_stock_threshold = COALESCE($5, low_stock_threshold),
			critical_threshold = COALESCE($6, critical_threshold),
			last_restocked = CASE WHEN $4::int > quantity THEN now() ELSE last_restocked END
		WHERE id = $1
		RETURNING `+inventoryColumns,
		id, name, req.Category, req.Quantity, req.LowStockThreshold, req.CriticalThreshold,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("frontdesk: update inventory item: %w", err)
	}
	return item, nil
}

func (r *PostgresRepository) DeleteInventoryItem(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, `DELETE FROM inventory_items WHERE id = $1`, id, "inventory item")
}

func (r *PostgresRepository) deleteByID(ctx context.Context, query string, id any, what string) error {
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("frontdesk: delete %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// likePattern builds an ILIKE substring pattern with wildcards escaped.
func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

var _ Repository = (*PostgresRepository)(nil)
