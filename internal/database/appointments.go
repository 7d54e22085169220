package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bigman/internal/models"

	"github.com/mattn/go-sqlite3"
)

const appointmentColumns = `id, client_name, phone, email, service_id, barber_id,
                 location_id, date, time, status, created_at, updated_at`

// ClaimSlot inserts an appointment if its slot holds no active
// appointment. The check and the insert run in one transaction; the
// partial unique index backstops writers racing through separate
// connections. Returns ErrSlotTaken when the slot is occupied.
func (db *DB) ClaimSlot(ctx context.Context, appt *models.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var count int
	queryCount := `SELECT COUNT(*) FROM appointments
                   WHERE barber_id = ? AND location_id = ? AND date = ? AND time = ? AND status != ?`
	err = tx.QueryRowContext(ctx, queryCount,
		appt.BarberID, appt.LocationID, appt.Date.Format("2006-01-02"), appt.Time,
		models.StatusCancelled).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	queryInsert := `INSERT INTO appointments (
                client_name, phone, email, service_id, barber_id, location_id,
                date, time, status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		appt.ClientName,
		appt.Phone,
		appt.Email,
		appt.ServiceID,
		appt.BarberID,
		appt.LocationID,
		appt.Date.Format("2006-01-02"),
		appt.Time,
		appt.Status,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert appointment in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	appt.ID = id
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to commit appointment: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	appt, err := scanAppointment(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// UpdateAppointmentStatusIf moves an appointment from one status to
// another only if it still holds the expected status. Returns
// ErrConcurrentModification when no row matched.
func (db *DB) UpdateAppointmentStatusIf(ctx context.Context, id int64, from, to string) error {
	query := `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// RescheduleAppointment moves an active appointment to a new slot. The
// old slot frees and the new one claims inside one transaction.
func (db *DB) RescheduleAppointment(ctx context.Context, id int64, date time.Time, slot string) (*models.Appointment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	appt, err := scanAppointment(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment in tx: %w", err)
	}

	// The row read inside the transaction is authoritative; a cancel
	// racing this call must not see its appointment moved.
	if models.IsTerminal(appt.Status) {
		return nil, ErrTerminalStatus
	}

	var count int
	queryCount := `SELECT COUNT(*) FROM appointments
                   WHERE barber_id = ? AND location_id = ? AND date = ? AND time = ?
                   AND status != ? AND id != ?`
	err = tx.QueryRowContext(ctx, queryCount,
		appt.BarberID, appt.LocationID, date.Format("2006-01-02"), slot,
		models.StatusCancelled, id).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if count > 0 {
		return nil, ErrSlotTaken
	}

	now := time.Now()
	queryUpdate := `UPDATE appointments SET date = ?, time = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, queryUpdate, date.Format("2006-01-02"), slot, now, id); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reschedule: %w", err)
	}

	appt.Date = date
	appt.Time = slot
	appt.UpdatedAt = now
	return appt, nil
}

func (db *DB) ListAppointments(ctx context.Context) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY date ASC, time ASC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (db *DB) ListAppointmentsByStatus(ctx context.Context, status string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
              WHERE status = ? ORDER BY date ASC, time ASC`
	rows, err := db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments by status: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (db *DB) ListAppointmentsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
              WHERE date >= ? AND date <= ? ORDER BY date ASC, time ASC`
	rows, err := db.QueryContext(ctx, query,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments by date range: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ClaimedTimes returns the active slot times of a barber at a location
// on one day.
func (db *DB) ClaimedTimes(ctx context.Context, barberID, locationID int64, date time.Time) (map[string]bool, error) {
	query := `SELECT time FROM appointments
              WHERE barber_id = ? AND location_id = ? AND date = ? AND status != ?`
	rows, err := db.QueryContext(ctx, query,
		barberID, locationID, date.Format("2006-01-02"), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get claimed times: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("failed to scan claimed time: %w", err)
		}
		taken[slot] = true
	}
	return taken, rows.Err()
}

// ClaimedCountsForPeriod returns active appointment counts per day,
// keyed by YYYY-MM-DD.
func (db *DB) ClaimedCountsForPeriod(ctx context.Context, barberID, locationID int64, startDate time.Time, days int) (map[string]int, error) {
	endDate := startDate.AddDate(0, 0, days-1)
	query := `SELECT date, COUNT(*) FROM appointments
              WHERE barber_id = ? AND location_id = ? AND date BETWEEN ? AND ? AND status != ?
              GROUP BY date`
	rows, err := db.QueryContext(ctx, query, barberID, locationID,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"),
		models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get claimed counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var dateStr string
		var count int
		if err := rows.Scan(&dateStr, &count); err != nil {
			return nil, err
		}
		counts[dateStr] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	appt := &models.Appointment{}
	var dateStr string
	err := row.Scan(
		&appt.ID, &appt.ClientName, &appt.Phone, &appt.Email,
		&appt.ServiceID, &appt.BarberID, &appt.LocationID,
		&dateStr, &appt.Time, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.Date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse appointment date %s: %w", dateStr, err)
	}
	return appt, nil
}

func collectAppointments(rows *sql.Rows) ([]*models.Appointment, error) {
	var appts []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}
