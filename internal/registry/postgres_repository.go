package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	computerColumns         = "id, brand, model, owner_id, owner_name, photo_url, updated_at, checkin_at, checkout_at"
	medicalDeviceColumns    = computerColumns + ", serial"
	frequentComputerColumns = computerColumns + ", checkin_url, checkout_url"
)

// pgUniqueViolation is the PostgreSQL error code for a unique constraint
// violation; registration relies on the primary key to reject duplicates.
const pgUniqueViolation = "23505"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool, log zerolog.Logger) *PostgresRepository {
	return &PostgresRepository{pool: pool, log: log}
}

// listQuery translates criteria into a parameterized SELECT. Filter and
// sort fields are validated against the collection's column set before they
// reach the SQL text.
func listQuery(table, columns string, allowed map[string]bool, criteria Criteria) (string, []any, error) {
	if err := criteria.validate(allowed); err != nil {
		return "", nil, err
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	if criteria.FilterBy != nil {
		args = append(args, criteria.FilterBy.Value)
		sb.WriteString(" WHERE ")
		sb.WriteString(criteria.FilterBy.Field)
		sb.WriteString(" = $")
		sb.WriteString(strconv.Itoa(len(args)))
	}

	if criteria.SortBy != nil {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(criteria.SortBy.Field)
		if criteria.SortBy.Descending {
			sb.WriteString(" DESC")
		}
	}

	limit, offset := criteria.Window()
	if limit > 0 {
		args = append(args, limit)
		sb.WriteString(" LIMIT $")
		sb.WriteString(strconv.Itoa(len(args)))
	}
	if offset > 0 {
		args = append(args, offset)
		sb.WriteString(" OFFSET $")
		sb.WriteString(strconv.Itoa(len(args)))
	}

	return sb.String(), args, nil
}

func scanComputer(row pgx.Row) (*Computer, error) {
	var c Computer
	err := row.Scan(
		&c.ID,
		&c.Brand,
		&c.Model,
		&c.Owner.ID,
		&c.Owner.Name,
		&c.PhotoURL,
		&c.UpdatedAt,
		&c.CheckinAt,
		&c.CheckoutAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanMedicalDevice(row pgx.Row) (*MedicalDevice, error) {
	var d MedicalDevice
	err := row.Scan(
		&d.ID,
		&d.Brand,
		&d.Model,
		&d.Owner.ID,
		&d.Owner.Name,
		&d.PhotoURL,
		&d.UpdatedAt,
		&d.CheckinAt,
		&d.CheckoutAt,
		&d.Serial,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanFrequentComputer(row pgx.Row) (*FrequentComputer, error) {
	var fc FrequentComputer
	err := row.Scan(
		&fc.Device.ID,
		&fc.Device.Brand,
		&fc.Device.Model,
		&fc.Device.Owner.ID,
		&fc.Device.Owner.Name,
		&fc.Device.PhotoURL,
		&fc.Device.UpdatedAt,
		&fc.Device.CheckinAt,
		&fc.Device.CheckoutAt,
		&fc.CheckinURL,
		&fc.CheckoutURL,
	)
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

// RegisterFrequentComputer inserts a new frequent computer.
func (r *PostgresRepository) RegisterFrequentComputer(ctx context.Context, fc *FrequentComputer) (*FrequentComputer, error) {
	query := `
		INSERT INTO frequent_computers (id, brand, model, owner_id, owner_name, photo_url, updated_at, checkin_at, checkout_at, checkin_url, checkout_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + frequentComputerColumns

	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx, query,
		fc.Device.ID,
		fc.Device.Brand,
		fc.Device.Model,
		fc.Device.Owner.ID,
		fc.Device.Owner.Name,
		fc.Device.PhotoURL,
		now,
		fc.Device.CheckinAt,
		fc.Device.CheckoutAt,
		fc.CheckinURL,
		fc.CheckoutURL,
	)

	stored, err := scanFrequentComputer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateDevice
		}
		return nil, fmt.Errorf("register frequent computer: %w", err)
	}

	return stored, nil
}

// GetFrequentComputers lists frequent computers matching the criteria.
func (r *PostgresRepository) GetFrequentComputers(ctx context.Context, criteria Criteria) ([]*FrequentComputer, error) {
	query, args, err := listQuery("frequent_computers", frequentComputerColumns, frequentComputerFields, criteria)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list frequent computers: %w", err)
	}
	defer rows.Close()

	var items []*FrequentComputer
	for rows.Next() {
		fc, err := scanFrequentComputer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CheckinFrequentComputer stamps the entry time on a registered frequent
// computer. Zero-row updates are reported as ErrDeviceNotFound; the store's
// tolerance for them is never exposed to callers.
func (r *PostgresRepository) CheckinFrequentComputer(ctx context.Context, id string, at time.Time) (*FrequentComputer, error) {
	query := `
		UPDATE frequent_computers SET
			checkin_at = $2,
			updated_at = $3
		WHERE id = $1
		RETURNING ` + frequentComputerColumns

	row := r.pool.QueryRow(ctx, query, id, at, time.Now().UTC())

	fc, err := scanFrequentComputer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("checkin frequent computer: %w", err)
	}

	return fc, nil
}

// IsFrequentComputerRegistered reports whether the id is registered.
func (r *PostgresRepository) IsFrequentComputerRegistered(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM frequent_computers WHERE id = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("frequent computer registered: %w", err)
	}
	return exists, nil
}

// CheckinComputer inserts a new computer record, stamping the current time
// as the entry time.
func (r *PostgresRepository) CheckinComputer(ctx context.Context, c *Computer) (*Computer, error) {
	query := `
		INSERT INTO computers (id, brand, model, owner_id, owner_name, photo_url, updated_at, checkin_at, checkout_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
		RETURNING ` + computerColumns

	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx, query,
		c.ID,
		c.Brand,
		c.Model,
		c.Owner.ID,
		c.Owner.Name,
		c.PhotoURL,
		now,
		now,
	)

	stored, err := scanComputer(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateDevice
		}
		return nil, fmt.Errorf("checkin computer: %w", err)
	}

	return stored, nil
}

// CheckinMedicalDevice inserts a new medical device record, stamping the
// current time as the entry time.
func (r *PostgresRepository) CheckinMedicalDevice(ctx context.Context, d *MedicalDevice) (*MedicalDevice, error) {
	query := `
		INSERT INTO medical_devices (id, brand, model, owner_id, owner_name, photo_url, updated_at, checkin_at, checkout_at, serial)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9)
		RETURNING ` + medicalDeviceColumns

	now := time.Now().UTC()

	row := r.pool.QueryRow(ctx, query,
		d.ID,
		d.Brand,
		d.Model,
		d.Owner.ID,
		d.Owner.Name,
		d.PhotoURL,
		now,
		now,
		d.Serial,
	)

	stored, err := scanMedicalDevice(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateDevice
		}
		return nil, fmt.Errorf("checkin medical device: %w", err)
	}

	return stored, nil
}

// GetComputers lists computers matching the criteria.
func (r *PostgresRepository) GetComputers(ctx context.Context, criteria Criteria) ([]*Computer, error) {
	query, args, err := listQuery("computers", computerColumns, computerFields, criteria)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list computers: %w", err)
	}
	defer rows.Close()

	var items []*Computer
	for rows.Next() {
		c, err := scanComputer(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetMedicalDevices lists medical devices matching the criteria.
func (r *PostgresRepository) GetMedicalDevices(ctx context.Context, criteria Criteria) ([]*MedicalDevice, error) {
	query, args, err := listQuery("medical_devices", medicalDeviceColumns, medicalDeviceFields, criteria)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list medical devices: %w", err)
	}
	defer rows.Close()

	var items []*MedicalDevice
	for rows.Next() {
		d, err := scanMedicalDevice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// GetEnteredDevices lists devices currently on-site across all categories.
func (r *PostgresRepository) GetEnteredDevices(ctx context.Context, criteria Criteria) ([]EnteredDevice, error) {
	return enteredDevices(ctx, r, criteria)
}

// checkoutUpdate stamps the exit time in one table, only while the device
// is entered: checked in, with no check-out newer than the latest check-in.
func (r *PostgresRepository) checkoutUpdate(ctx context.Context, table, id string, at time.Time) (bool, error) {
	query := `
		UPDATE ` + table + ` SET
			checkout_at = $2,
			updated_at = $3
		WHERE id = $1
			AND checkin_at IS NOT NULL
			AND (checkout_at IS NULL OR checkout_at < checkin_at)
	`

	result, err := r.pool.Exec(ctx, query, id, at, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// CheckoutDevice stamps the exit time on whichever category holds an
// entered device with the given id. All three tables are attempted; a
// storage failure in the computers or medical devices update is fatal,
// while the frequent computers update is best-effort and only logged.
func (r *PostgresRepository) CheckoutDevice(ctx context.Context, id string, at time.Time) error {
	matched, err := r.checkoutUpdate(ctx, "computers", id, at)
	if err != nil {
		return fmt.Errorf("checkout computer: %w", err)
	}

	m, err := r.checkoutUpdate(ctx, "medical_devices", id, at)
	if err != nil {
		return fmt.Errorf("checkout medical device: %w", err)
	}
	matched = matched || m

	m, err = r.checkoutUpdate(ctx, "frequent_computers", id, at)
	if err != nil {
		r.log.Warn().
			Err(err).
			Str("device_id", id).
			Msg("best-effort frequent computer checkout failed")
	}
	matched = matched || m

	if !matched {
		return ErrDeviceNotFound
	}
	return nil
}

// IsDeviceEntered reports whether any category holds an entered device with
// the given id, short-circuiting on the first match.
func (r *PostgresRepository) IsDeviceEntered(ctx context.Context, id string) (bool, error) {
	for _, table := range []string{"computers", "medical_devices", "frequent_computers"} {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM ` + table + `
				WHERE id = $1
					AND checkin_at IS NOT NULL
					AND (checkout_at IS NULL OR checkout_at < checkin_at)
			)
		`

		var entered bool
		if err := r.pool.QueryRow(ctx, query, id).Scan(&entered); err != nil {
			return false, fmt.Errorf("device entered in %s: %w", table, err)
		}
		if entered {
			return true, nil
		}
	}
	return false, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
