// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ticware/opscore/internal/app/domain/entry"
	"github.com/ticware/opscore/internal/app/domain/form"
	"github.com/ticware/opscore/internal/app/domain/license"
	"github.com/ticware/opscore/internal/app/domain/role"
	"github.com/ticware/opscore/internal/app/domain/user"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
)

// Store implements the storage interfaces over a database handle.
type Store struct {
	db *sql.DB
}

var _ storage.SubmoduleStore = (*Store)(nil)
var _ storage.FieldStore = (*Store)(nil)
var _ storage.EntryStore = (*Store)(nil)
var _ storage.RoleStore = (*Store)(nil)
var _ storage.UserStore = (*Store)(nil)
var _ storage.LicenseStore = (*Store)(nil)
var _ storage.CounterStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS app_submodules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			main_module TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS form_fields (
			id TEXT PRIMARY KEY,
			submodule_id TEXT NOT NULL,
			key TEXT NOT NULL,
			label TEXT NOT NULL,
			type TEXT NOT NULL,
			section TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			required BOOLEAN NOT NULL DEFAULT FALSE,
			placeholder TEXT NOT NULL DEFAULT '',
			options JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transaction_entries (
			id TEXT PRIMARY KEY,
			submodule TEXT NOT NULL,
			status TEXT NOT NULL,
			creator TEXT NOT NULL,
			doc_no TEXT NOT NULL DEFAULT '',
			doc_no_sequential BIGINT NOT NULL DEFAULT 0,
			custom_fields JSONB,
			line_items JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			permissions JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			roles JSONB,
			status TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS licenses (
			license_key TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			user_email TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			activation_date TIMESTAMPTZ,
			expiry_date TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS doc_counters (
			key TEXT PRIMARY KEY,
			value BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.Persistence("apply schema", err)
		}
	}
	return nil
}

// --- SubmoduleStore ----------------------------------------------------------

func (s *Store) CreateSubmodule(ctx context.Context, sub form.Submodule) (form.Submodule, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_submodules (id, name, main_module, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sub.ID, sub.Name, sub.MainModule, sub.Position, sub.CreatedAt)
	if err != nil {
		return form.Submodule{}, apperrors.Persistence("create submodule", err)
	}
	return sub, nil
}

func (s *Store) GetSubmodule(ctx context.Context, id string) (form.Submodule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, main_module, position, created_at
		FROM app_submodules
		WHERE id = $1
	`, id)

	var sub form.Submodule
	if err := row.Scan(&sub.ID, &sub.Name, &sub.MainModule, &sub.Position, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return form.Submodule{}, apperrors.NotFound("submodule", id)
		}
		return form.Submodule{}, apperrors.Persistence("get submodule", err)
	}
	return sub, nil
}

func (s *Store) ListSubmodules(ctx context.Context) ([]form.Submodule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, main_module, position, created_at
		FROM app_submodules
		ORDER BY position, created_at
	`)
	if err != nil {
		return nil, apperrors.Persistence("list submodules", err)
	}
	defer rows.Close()

	var result []form.Submodule
	for rows.Next() {
		var sub form.Submodule
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.MainModule, &sub.Position, &sub.CreatedAt); err != nil {
			return nil, apperrors.Persistence("scan submodule", err)
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (s *Store) DeleteSubmodule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM app_submodules WHERE id = $1`, id)
	if err != nil {
		return apperrors.Persistence("delete submodule", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("submodule", id)
	}
	return nil
}

// --- FieldStore --------------------------------------------------------------

func (s *Store) CreateField(ctx context.Context, f form.Field) (form.Field, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	optionsJSON, err := json.Marshal(f.Options)
	if err != nil {
		return form.Field{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_fields (id, submodule_id, key, label, type, section, position, required, placeholder, options, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, f.ID, f.SubmoduleID, f.Key, f.Label, string(f.Type), string(f.Section), f.Position, f.Required, f.Placeholder, optionsJSON, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return form.Field{}, apperrors.Persistence("create field", err)
	}
	return f, nil
}

func (s *Store) UpdateField(ctx context.Context, f form.Field) (form.Field, error) {
	existing, err := s.GetField(ctx, f.ID)
	if err != nil {
		return form.Field{}, err
	}
	f.CreatedAt = existing.CreatedAt
	f.UpdatedAt = time.Now().UTC()

	optionsJSON, err := json.Marshal(f.Options)
	if err != nil {
		return form.Field{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE form_fields
		SET key = $2, label = $3, type = $4, section = $5, position = $6, required = $7, placeholder = $8, options = $9, updated_at = $10
		WHERE id = $1
	`, f.ID, f.Key, f.Label, string(f.Type), string(f.Section), f.Position, f.Required, f.Placeholder, optionsJSON, f.UpdatedAt)
	if err != nil {
		return form.Field{}, apperrors.Persistence("update field", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return form.Field{}, apperrors.NotFound("field", f.ID)
	}
	return f, nil
}

func (s *Store) GetField(ctx context.Context, id string) (form.Field, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, submodule_id, key, label, type, section, position, required, placeholder, options, created_at, updated_at
		FROM form_fields
		WHERE id = $1
	`, id)
	f, err := scanField(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return form.Field{}, apperrors.NotFound("field", id)
		}
		return form.Field{}, apperrors.Persistence("get field", err)
	}
	return f, nil
}

func (s *Store) ListFields(ctx context.Context, submoduleID string, section form.Section) ([]form.Field, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, submodule_id, key, label, type, section, position, required, placeholder, options, created_at, updated_at
		FROM form_fields
		WHERE submodule_id = $1 AND section = $2
		ORDER BY created_at
	`, submoduleID, string(section))
	if err != nil {
		return nil, apperrors.Persistence("list fields", err)
	}
	defer rows.Close()

	var result []form.Field
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, apperrors.Persistence("scan field", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (s *Store) DeleteField(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM form_fields WHERE id = $1`, id)
	if err != nil {
		return apperrors.Persistence("delete field", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("field", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanField(row rowScanner) (form.Field, error) {
	var (
		f          form.Field
		typeRaw    string
		sectionRaw string
		optionsRaw []byte
	)
	if err := row.Scan(&f.ID, &f.SubmoduleID, &f.Key, &f.Label, &typeRaw, &sectionRaw, &f.Position, &f.Required, &f.Placeholder, &optionsRaw, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return form.Field{}, err
	}
	f.Type = form.FieldType(typeRaw)
	f.Section = form.Section(sectionRaw)
	if len(optionsRaw) > 0 {
		_ = json.Unmarshal(optionsRaw, &f.Options)
	}
	return f, nil
}

// --- EntryStore --------------------------------------------------------------

func (s *Store) CreateEntry(ctx context.Context, e entry.Entry) (entry.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	customJSON, lineJSON, err := marshalEntryData(e)
	if err != nil {
		return entry.Entry{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transaction_entries (id, submodule, status, creator, doc_no, doc_no_sequential, custom_fields, line_items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.Submodule, string(e.Status), e.User, e.DocNo, e.DocNoSequential, customJSON, lineJSON, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return entry.Entry{}, apperrors.Persistence("create entry", err)
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e entry.Entry) (entry.Entry, error) {
	existing, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		return entry.Entry{}, err
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	customJSON, lineJSON, err := marshalEntryData(e)
	if err != nil {
		return entry.Entry{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transaction_entries
		SET submodule = $2, status = $3, creator = $4, doc_no = $5, doc_no_sequential = $6, custom_fields = $7, line_items = $8, updated_at = $9
		WHERE id = $1
	`, e.ID, e.Submodule, string(e.Status), e.User, e.DocNo, e.DocNoSequential, customJSON, lineJSON, e.UpdatedAt)
	if err != nil {
		return entry.Entry{}, apperrors.Persistence("update entry", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return entry.Entry{}, apperrors.NotFound("entry", e.ID)
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (entry.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, submodule, status, creator, doc_no, doc_no_sequential, custom_fields, line_items, created_at, updated_at
		FROM transaction_entries
		WHERE id = $1
	`, id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry.Entry{}, apperrors.NotFound("entry", id)
		}
		return entry.Entry{}, apperrors.Persistence("get entry", err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, submodule string) ([]entry.Entry, error) {
	query := `
		SELECT id, submodule, status, creator, doc_no, doc_no_sequential, custom_fields, line_items, created_at, updated_at
		FROM transaction_entries
	`
	var (
		rows *sql.Rows
		err  error
	)
	if submodule == "" {
		rows, err = s.db.QueryContext(ctx, query+` ORDER BY created_at`)
	} else {
		rows, err = s.db.QueryContext(ctx, query+` WHERE submodule = $1 ORDER BY created_at`, submodule)
	}
	if err != nil {
		return nil, apperrors.Persistence("list entries", err)
	}
	defer rows.Close()

	var result []entry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.Persistence("scan entry", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transaction_entries WHERE id = $1`, id)
	if err != nil {
		return apperrors.Persistence("delete entry", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("entry", id)
	}
	return nil
}

func marshalEntryData(e entry.Entry) ([]byte, []byte, error) {
	customJSON, err := json.Marshal(e.CustomFields)
	if err != nil {
		return nil, nil, err
	}
	lineJSON, err := json.Marshal(e.LineItems)
	if err != nil {
		return nil, nil, err
	}
	return customJSON, lineJSON, nil
}

func scanEntry(row rowScanner) (entry.Entry, error) {
	var (
		e         entry.Entry
		statusRaw string
		customRaw []byte
		lineRaw   []byte
	)
	if err := row.Scan(&e.ID, &e.Submodule, &statusRaw, &e.User, &e.DocNo, &e.DocNoSequential, &customRaw, &lineRaw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return entry.Entry{}, err
	}
	e.Status = entry.Status(statusRaw)
	if len(customRaw) > 0 {
		if err := json.Unmarshal(customRaw, &e.CustomFields); err != nil {
			return entry.Entry{}, err
		}
	}
	if len(lineRaw) > 0 {
		if err := json.Unmarshal(lineRaw, &e.LineItems); err != nil {
			return entry.Entry{}, err
		}
	}
	return e, nil
}

// --- RoleStore ---------------------------------------------------------------

func (s *Store) CreateRole(ctx context.Context, r role.Role) (role.Role, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	permsJSON, err := json.Marshal(r.Permissions)
	if err != nil {
		return role.Role{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.Name, r.Description, permsJSON, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return role.Role{}, apperrors.Persistence("create role", err)
	}
	return r, nil
}

func (s *Store) UpdateRole(ctx context.Context, r role.Role) (role.Role, error) {
	existing, err := s.GetRole(ctx, r.ID)
	if err != nil {
		return role.Role{}, err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now().UTC()

	permsJSON, err := json.Marshal(r.Permissions)
	if err != nil {
		return role.Role{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE roles
		SET name = $2, description = $3, permissions = $4, updated_at = $5
		WHERE id = $1
	`, r.ID, r.Name, r.Description, permsJSON, r.UpdatedAt)
	if err != nil {
		return role.Role{}, apperrors.Persistence("update role", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return role.Role{}, apperrors.NotFound("role", r.ID)
	}
	return r, nil
}

func (s *Store) GetRole(ctx context.Context, id string) (role.Role, error) {
	return s.getRoleBy(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (role.Role, error) {
	return s.getRoleBy(ctx, `WHERE LOWER(name) = LOWER($1)`, name)
}

func (s *Store) getRoleBy(ctx context.Context, where, arg string) (role.Role, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, permissions, created_at, updated_at
		FROM roles `+where, arg)
	r, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return role.Role{}, apperrors.NotFound("role", arg)
		}
		return role.Role{}, apperrors.Persistence("get role", err)
	}
	return r, nil
}

func (s *Store) ListRoles(ctx context.Context) ([]role.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, permissions, created_at, updated_at
		FROM roles
		ORDER BY created_at
	`)
	if err != nil {
		return nil, apperrors.Persistence("list roles", err)
	}
	defer rows.Close()

	var result []role.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, apperrors.Persistence("scan role", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) DeleteRole(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return apperrors.Persistence("delete role", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperrors.NotFound("role", id)
	}
	return nil
}

func scanRole(row rowScanner) (role.Role, error) {
	var (
		r        role.Role
		permsRaw []byte
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &permsRaw, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return role.Role{}, err
	}
	if len(permsRaw) > 0 {
		if err := json.Unmarshal(permsRaw, &r.Permissions); err != nil {
			return role.Role{}, err
		}
	}
	return r, nil
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	rolesJSON, err := json.Marshal(u.Roles)
	if err != nil {
		return user.User{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, roles, status, session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Username, u.Email, rolesJSON, string(u.Status), u.SessionID, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, apperrors.Persistence("create user", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	rolesJSON, err := json.Marshal(u.Roles)
	if err != nil {
		return user.User{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, roles = $4, status = $5, session_id = $6, updated_at = $7
		WHERE id = $1
	`, u.ID, u.Username, u.Email, rolesJSON, string(u.Status), u.SessionID, u.UpdatedAt)
	if err != nil {
		return user.User{}, apperrors.Persistence("update user", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, apperrors.NotFound("user", u.ID)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUserBy(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUserBy(ctx, `WHERE LOWER(email) = LOWER($1)`, email)
}

func (s *Store) getUserBy(ctx context.Context, where, arg string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, roles, status, session_id, created_at, updated_at
		FROM users `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, apperrors.NotFound("user", arg)
		}
		return user.User{}, apperrors.Persistence("get user", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, roles, status, session_id, created_at, updated_at
		FROM users
		ORDER BY created_at
	`)
	if err != nil {
		return nil, apperrors.Persistence("list users", err)
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperrors.Persistence("scan user", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u         user.User
		statusRaw string
		rolesRaw  []byte
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &rolesRaw, &statusRaw, &u.SessionID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	u.Status = user.Status(statusRaw)
	if len(rolesRaw) > 0 {
		_ = json.Unmarshal(rolesRaw, &u.Roles)
	}
	return u, nil
}

// --- LicenseStore ------------------------------------------------------------

func (s *Store) CreateLicense(ctx context.Context, l license.License) (license.License, error) {
	l.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO licenses (license_key, status, user_email, created_at, activation_date, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.LicenseKey, string(l.Status), l.UserEmail, l.CreatedAt, nullableTime(l.ActivationDate), nullableTime(l.ExpiryDate))
	if err != nil {
		return license.License{}, apperrors.Persistence("create license", err)
	}
	return l, nil
}

func (s *Store) UpdateLicense(ctx context.Context, l license.License) (license.License, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE licenses
		SET status = $2, user_email = $3, activation_date = $4, expiry_date = $5
		WHERE license_key = $1
	`, l.LicenseKey, string(l.Status), l.UserEmail, nullableTime(l.ActivationDate), nullableTime(l.ExpiryDate))
	if err != nil {
		return license.License{}, apperrors.Persistence("update license", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return license.License{}, apperrors.NotFound("license", l.LicenseKey)
	}
	return l, nil
}

func (s *Store) GetLicense(ctx context.Context, key string) (license.License, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT license_key, status, user_email, created_at, activation_date, expiry_date
		FROM licenses
		WHERE license_key = $1
	`, key)
	l, err := scanLicense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return license.License{}, apperrors.NotFound("license", key)
		}
		return license.License{}, apperrors.Persistence("get license", err)
	}
	return l, nil
}

func (s *Store) ListLicenses(ctx context.Context) ([]license.License, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT license_key, status, user_email, created_at, activation_date, expiry_date
		FROM licenses
		ORDER BY created_at
	`)
	if err != nil {
		return nil, apperrors.Persistence("list licenses", err)
	}
	defer rows.Close()

	var result []license.License
	for rows.Next() {
		l, err := scanLicense(rows)
		if err != nil {
			return nil, apperrors.Persistence("scan license", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanLicense(row rowScanner) (license.License, error) {
	var (
		l          license.License
		statusRaw  string
		activation sql.NullTime
		expiry     sql.NullTime
	)
	if err := row.Scan(&l.LicenseKey, &statusRaw, &l.UserEmail, &l.CreatedAt, &activation, &expiry); err != nil {
		return license.License{}, err
	}
	l.Status = license.Status(statusRaw)
	if activation.Valid {
		l.ActivationDate = activation.Time
	}
	if expiry.Valid {
		l.ExpiryDate = expiry.Time
	}
	return l, nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// --- CounterStore ------------------------------------------------------------

func (s *Store) GetCounter(ctx context.Context, key string) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM doc_counters WHERE key = $1`, key)
	var value int64
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, apperrors.Persistence("read counter", err)
	}
	return value, nil
}

// CompareAndSwapCounter advances a counter only when its stored value still
// equals old. An absent counter counts as zero, so the first allocation is an
// insert guarded by the primary key.
func (s *Store) CompareAndSwapCounter(ctx context.Context, key string, old, next int64) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE doc_counters SET value = $3, updated_at = $4
		WHERE key = $1 AND value = $2
	`, key, old, next, now)
	if err != nil {
		return apperrors.Persistence("advance counter", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}
	if old == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO doc_counters (key, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (key) DO NOTHING
		`, key, next, now)
		if err != nil {
			return apperrors.Persistence("initialize counter", err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			return nil
		}
	}
	return apperrors.Conflict("counter " + key + " moved concurrently")
}
