package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/ride-accounts/internal/model"
)

// MySQLAccountRepo stores one partition as a table named after it.
type MySQLAccountRepo struct {
	DB    *sql.DB
	table string
	role  model.Role
}

var _ AccountStore = (*MySQLAccountRepo)(nil)

// NewMySQLAccountRepo returns a repository bound to the descriptor's table.
// Only the partitions declared in model are accepted, since the table name
// is interpolated into the SQL text.
func NewMySQLAccountRepo(db *sql.DB, desc model.RoleDescriptor) (*MySQLAccountRepo, error) {
	if _, ok := model.DescriptorFor(desc.Role); !ok || (desc.Partition != "users" && desc.Partition != "captains") {
		return nil, fmt.Errorf("unknown partition %q", desc.Partition)
	}
	return &MySQLAccountRepo{DB: db, table: desc.Partition, role: desc.Role}, nil
}

// EnsureSchema creates the partition table if it does not exist yet.
func (r *MySQLAccountRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id                 CHAR(36)     NOT NULL PRIMARY KEY,
	email              VARCHAR(255) NOT NULL,
	username           VARCHAR(64)  NULL,
	password_hash      VARCHAR(255) NOT NULL,
	first_name         VARCHAR(100) NOT NULL,
	last_name          VARCHAR(100) NOT NULL,
	vehicle_color      VARCHAR(50)  NULL,
	vehicle_plate      VARCHAR(50)  NULL,
	vehicle_capacity   INT          NULL,
	vehicle_type       VARCHAR(10)  NULL,
	status             VARCHAR(10)  NULL,
	socket_id          VARCHAR(100) NULL,
	refresh_token_hash CHAR(64)     NULL,
	created_at         DATETIME     NOT NULL,
	updated_at         DATETIME     NOT NULL,
	UNIQUE KEY uq_%[1]s_email (email),
	UNIQUE KEY uq_%[1]s_username (username)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, r.table))
	return err
}

const accountColumns = "id,email,username,password_hash,first_name,last_name," +
	"vehicle_color,vehicle_plate,vehicle_capacity,vehicle_type,status,socket_id,refresh_token_hash,created_at,updated_at"

// Create inserts the account; duplicates map to the shared sentinels.
func (r *MySQLAccountRepo) Create(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	a.Email = NormalizeEmail(a.Email)
	a.Username = NormalizeUsername(a.Username)
	a.Role = r.role
	a.CreatedAt, a.UpdatedAt = now, now

	color, plate, capacity, vtype := vehicleArgs(a.Vehicle)
	_, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)", r.table, accountColumns),
		a.ID, a.Email, nullString(a.Username), a.PasswordHash, a.FullName.FirstName, a.FullName.LastName,
		color, plate, capacity, vtype, nullString(string(a.Status)), a.SocketID, a.RefreshToken, now, now)
	return mapMySQLWriteErr(err)
}

// GetByEmail fetches an account by normalized email.
func (r *MySQLAccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE email=? LIMIT 1", accountColumns, r.table),
		NormalizeEmail(email))
	return r.scan(row)
}

// GetByID fetches an account by id.
func (r *MySQLAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := r.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id=? LIMIT 1", accountColumns, r.table), id)
	return r.scan(row)
}

// FindProfile fetches an account by id and drops the secrets before
// returning it.
func (r *MySQLAccountRepo) FindProfile(ctx context.Context, id string) (*model.Account, error) {
	a, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Sanitized(), nil
}

// SetRefreshToken overwrites or clears the refresh token digest.
func (r *MySQLAccountRepo) SetRefreshToken(ctx context.Context, id string, digest *string) error {
	return r.exec(ctx,
		fmt.Sprintf("UPDATE %s SET refresh_token_hash=?, updated_at=? WHERE id=?", r.table),
		digest, time.Now().UTC(), id)
}

// UpdatePassword replaces the password hash.
func (r *MySQLAccountRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx,
		fmt.Sprintf("UPDATE %s SET password_hash=?, updated_at=? WHERE id=?", r.table),
		hash, time.Now().UTC(), id)
}

// UpdateProfile writes name, email, username and vehicle.
func (r *MySQLAccountRepo) UpdateProfile(ctx context.Context, a *model.Account) error {
	color, plate, capacity, vtype := vehicleArgs(a.Vehicle)
	return r.exec(ctx,
		fmt.Sprintf(`UPDATE %s SET first_name=?, last_name=?, email=?, username=COALESCE(?, username),
			vehicle_color=COALESCE(?, vehicle_color), vehicle_plate=COALESCE(?, vehicle_plate),
			vehicle_capacity=COALESCE(?, vehicle_capacity), vehicle_type=COALESCE(?, vehicle_type),
			updated_at=? WHERE id=?`, r.table),
		a.FullName.FirstName, a.FullName.LastName, NormalizeEmail(a.Email), nullString(NormalizeUsername(a.Username)),
		color, plate, capacity, vtype, time.Now().UTC(), a.ID)
}

func (r *MySQLAccountRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return mapMySQLWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MySQLAccountRepo) scan(row *sql.Row) (*model.Account, error) {
	var (
		a                             model.Account
		username, color, plate, vtype sql.NullString
		status, socketID, refresh     sql.NullString
		capacity                      sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.Email, &username, &a.PasswordHash, &a.FullName.FirstName, &a.FullName.LastName,
		&color, &plate, &capacity, &vtype, &status, &socketID, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Role = r.role
	a.Username = username.String
	a.Status = model.Status(status.String)
	if vtype.Valid {
		a.Vehicle = &model.Vehicle{
			Color:       color.String,
			Plate:       plate.String,
			Capacity:    int(capacity.Int64),
			VehicleType: model.VehicleType(vtype.String),
		}
	}
	if socketID.Valid {
		a.SocketID = &socketID.String
	}
	if refresh.Valid {
		a.RefreshToken = &refresh.String
	}
	return &a, nil
}

func vehicleArgs(v *model.Vehicle) (color, plate, capacity, vtype any) {
	if v == nil {
		return nil, nil, nil, nil
	}
	return v.Color, v.Plate, v.Capacity, string(v.VehicleType)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// mapMySQLWriteErr turns error 1062 (duplicate entry) into the shared
// sentinels.  Only the key name after "for key" is inspected, since the
// duplicated value itself may contain anything.
func mapMySQLWriteErr(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return err
	}
	key := me.Message
	if i := strings.LastIndex(key, "for key "); i >= 0 {
		key = key[i:]
	}
	if strings.HasSuffix(strings.TrimRight(key, "'"), "_username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}
