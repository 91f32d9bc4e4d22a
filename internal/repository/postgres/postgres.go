package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/levywanke/Tracking-System/internal/domain"
	"github.com/levywanke/Tracking-System/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository      = (*Repository)(nil)
	_ repository.ChallengeRepository = (*Repository)(nil)
	_ repository.PersonnelRepository = (*Repository)(nil)
	_ repository.EquipmentRepository = (*Repository)(nil)
	_ repository.CheckInRepository   = (*Repository)(nil)
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateUser inserts a user, mapping email collisions to ErrDuplicateEmail.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, password_hash, name, role, two_factor_enabled, two_factor_secret, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.Name, user.Role,
		user.TwoFactorEnabled, user.TwoFactorSecret, user.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateEmail
	}
	return err
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, name, role, two_factor_enabled, two_factor_secret, created_at
		FROM users WHERE email = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, password_hash, name, role, two_factor_enabled, two_factor_secret, created_at
		FROM users WHERE id = $1`
	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&u.TwoFactorEnabled, &u.TwoFactorSecret, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateTwoFactor stores the enrollment secret and enabled flag.
func (r *Repository) UpdateTwoFactor(ctx context.Context, userID, secret string, enabled bool) error {
	const query = `UPDATE users SET two_factor_secret = $2, two_factor_enabled = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, userID, secret, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateChallenge inserts a two-factor challenge.
func (r *Repository) CreateChallenge(ctx context.Context, challenge *domain.TwoFactorChallenge) error {
	const query = `INSERT INTO two_factor_challenges (id, user_id, status, attempts, return_to, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, challenge.ID, challenge.UserID, challenge.Status,
		challenge.Attempts, challenge.ReturnTo, challenge.CreatedAt, challenge.ExpiresAt)
	return err
}

// GetChallenge retrieves a challenge by identifier.
func (r *Repository) GetChallenge(ctx context.Context, id string) (*domain.TwoFactorChallenge, error) {
	const query = `SELECT id, user_id, status, attempts, return_to, created_at, expires_at, verified_at
		FROM two_factor_challenges WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var c domain.TwoFactorChallenge
	if err := row.Scan(&c.ID, &c.UserID, &c.Status, &c.Attempts, &c.ReturnTo,
		&c.CreatedAt, &c.ExpiresAt, &c.VerifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// MarkChallengeVerified finalizes a pending challenge exactly once.
func (r *Repository) MarkChallengeVerified(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE two_factor_challenges SET status = $2, verified_at = $3
		WHERE id = $1 AND status = $4`
	tag, err := r.pool.Exec(ctx, query, id, domain.ChallengeVerified, at, domain.ChallengePending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkChallengeExpired transitions a challenge to the expired state.
func (r *Repository) MarkChallengeExpired(ctx context.Context, id string) error {
	const query = `UPDATE two_factor_challenges SET status = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, domain.ChallengeExpired)
	return err
}

// IncrementChallengeAttempts bumps the failed-attempt counter and returns it.
func (r *Repository) IncrementChallengeAttempts(ctx context.Context, id string) (int, error) {
	const query = `UPDATE two_factor_challenges SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`
	row := r.pool.QueryRow(ctx, query, id)
	var attempts int
	if err := row.Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

// CreatePersonnel inserts a roster record.
func (r *Repository) CreatePersonnel(ctx context.Context, person *domain.Personnel) error {
	const query = `INSERT INTO personnel (id, name, role, department, status, email, phone, joined_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query, person.ID, person.Name, person.Role, person.Department,
		person.Status, person.Email, person.Phone, person.JoinedAt, person.CreatedAt)
	return err
}

// GetPersonnelByID retrieves a roster record.
func (r *Repository) GetPersonnelByID(ctx context.Context, id string) (*domain.Personnel, error) {
	const query = `SELECT id, name, role, department, status, email, phone, joined_at, created_at
		FROM personnel WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var p domain.Personnel
	if err := row.Scan(&p.ID, &p.Name, &p.Role, &p.Department, &p.Status,
		&p.Email, &p.Phone, &p.JoinedAt, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPersonnel returns roster records matching the search term across
// name, id, department and role.
func (r *Repository) ListPersonnel(ctx context.Context, search string, limit, offset int) ([]domain.Personnel, error) {
	const query = `SELECT id, name, role, department, status, email, phone, joined_at, created_at
		FROM personnel
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR id ILIKE '%' || $1 || '%'
			OR department ILIKE '%' || $1 || '%' OR role ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := make([]domain.Personnel, 0)
	for rows.Next() {
		var p domain.Personnel
		if err := rows.Scan(&p.ID, &p.Name, &p.Role, &p.Department, &p.Status,
			&p.Email, &p.Phone, &p.JoinedAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// CreateEquipment inserts an asset.
func (r *Repository) CreateEquipment(ctx context.Context, item *domain.Equipment) error {
	const query = `INSERT INTO equipment (id, name, type, status, assigned_to, condition, serial_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, item.ID, item.Name, item.Type, item.Status,
		item.AssignedTo, item.Condition, item.SerialNumber, item.CreatedAt)
	return err
}

// GetEquipmentByID retrieves an asset.
func (r *Repository) GetEquipmentByID(ctx context.Context, id string) (*domain.Equipment, error) {
	const query = `SELECT id, name, type, status, assigned_to, condition, serial_number, created_at
		FROM equipment WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var e domain.Equipment
	if err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Status, &e.AssignedTo,
		&e.Condition, &e.SerialNumber, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListEquipment returns assets matching the search term across name, id,
// type and assignee.
func (r *Repository) ListEquipment(ctx context.Context, search string, limit, offset int) ([]domain.Equipment, error) {
	const query = `SELECT e.id, e.name, e.type, e.status, e.assigned_to, e.condition, e.serial_number, e.created_at
		FROM equipment e
		LEFT JOIN personnel p ON p.id = e.assigned_to
		WHERE $1 = '' OR e.name ILIKE '%' || $1 || '%' OR e.id ILIKE '%' || $1 || '%'
			OR e.type ILIKE '%' || $1 || '%' OR p.name ILIKE '%' || $1 || '%'
		ORDER BY e.name
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Equipment, 0)
	for rows.Next() {
		var e domain.Equipment
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Status, &e.AssignedTo,
			&e.Condition, &e.SerialNumber, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// UpdateEquipmentAssignment reassigns an asset and adjusts its status.
func (r *Repository) UpdateEquipmentAssignment(ctx context.Context, id string, assignedTo *string, status string) error {
	const query = `UPDATE equipment SET assigned_to = $2, status = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, assignedTo, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateCheckIn inserts a check-in record.
func (r *Repository) CreateCheckIn(ctx context.Context, checkIn *domain.CheckIn) error {
	const query = `INSERT INTO check_ins (id, personnel_id, location, latitude, longitude, status, checked_in_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, checkIn.ID, checkIn.PersonnelID, checkIn.Location,
		checkIn.Latitude, checkIn.Longitude, checkIn.Status, checkIn.CheckedInAt)
	return err
}

// GetActiveCheckIn returns the open check-in for the personnel, if any.
func (r *Repository) GetActiveCheckIn(ctx context.Context, personnelID string) (*domain.CheckIn, error) {
	const query = `SELECT id, personnel_id, location, latitude, longitude, status, checked_in_at, checked_out_at
		FROM check_ins WHERE personnel_id = $1 AND status = $2`
	row := r.pool.QueryRow(ctx, query, personnelID, domain.CheckedIn)
	return scanCheckIn(row)
}

// CloseCheckIn marks an open check-in as checked out.
func (r *Repository) CloseCheckIn(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE check_ins SET status = $2, checked_out_at = $3
		WHERE id = $1 AND status = $4`
	tag, err := r.pool.Exec(ctx, query, id, domain.CheckedOut, at, domain.CheckedIn)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListCheckIns returns check-in history matching the search term across
// personnel name, location and status.
func (r *Repository) ListCheckIns(ctx context.Context, search string, limit, offset int) ([]domain.CheckIn, error) {
	const query = `SELECT c.id, c.personnel_id, c.location, c.latitude, c.longitude, c.status, c.checked_in_at, c.checked_out_at
		FROM check_ins c
		INNER JOIN personnel p ON p.id = c.personnel_id
		WHERE $1 = '' OR p.name ILIKE '%' || $1 || '%' OR c.location ILIKE '%' || $1 || '%'
			OR c.status ILIKE '%' || $1 || '%'
		ORDER BY c.checked_in_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

// ListActiveCheckIns returns all open check-ins for the live map view.
func (r *Repository) ListActiveCheckIns(ctx context.Context) ([]domain.CheckIn, error) {
	const query = `SELECT id, personnel_id, location, latitude, longitude, status, checked_in_at, checked_out_at
		FROM check_ins WHERE status = $1 ORDER BY checked_in_at DESC`
	rows, err := r.pool.Query(ctx, query, domain.CheckedIn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCheckIns(rows)
}

func scanCheckIn(row pgx.Row) (*domain.CheckIn, error) {
	var c domain.CheckIn
	if err := row.Scan(&c.ID, &c.PersonnelID, &c.Location, &c.Latitude, &c.Longitude,
		&c.Status, &c.CheckedInAt, &c.CheckedOutAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectCheckIns(rows pgx.Rows) ([]domain.CheckIn, error) {
	checkIns := make([]domain.CheckIn, 0)
	for rows.Next() {
		var c domain.CheckIn
		if err := rows.Scan(&c.ID, &c.PersonnelID, &c.Location, &c.Latitude, &c.Longitude,
			&c.Status, &c.CheckedInAt, &c.CheckedOutAt); err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}
