package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/buscaaqui/internal/models"
)

const userColumns = `uid, email, name, password_hash, phone, role, account_type, business_name,
	business_description, document, city, COALESCE(gateway_customer_id, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.UID, &u.Email, &u.Name, &u.PasswordHash, &u.Phone, &u.Role, &u.AccountType,
		&u.BusinessName, &u.BusinessDescription, &u.Document, &u.City, &u.GatewayCustomerID,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя. Занятый email даёт ErrAlreadyExists.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, email, name, password_hash, phone, role, account_type,
			      business_name, business_description, document, city)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			  RETURNING ` + userColumns
	created, err := scanUser(s.DB.QueryRowContext(ctx, query,
		u.UID, u.Email, u.Name, u.PasswordHash, u.Phone, u.Role, u.AccountType,
		u.BusinessName, u.BusinessDescription, u.Document, u.City))
	if err != nil {
		return nil, wrap(op, err)
	}
	return created, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по UID.
func (s *Storage) GetUser(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUser"
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// GetUserByCustomerID возвращает пользователя по идентификатору клиента в шлюзе.
func (s *Storage) GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	const op = "storage.GetUserByCustomerID"
	if customerID == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE gateway_customer_id = $1`, customerID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// UpdateProfile меняет только переданные (не nil) поля профиля.
func (s *Storage) UpdateProfile(ctx context.Context, uid string, upd models.ProfileUpdate) (*models.User, error) {
	const op = "storage.UpdateProfile"

	query := `UPDATE users SET
			      name = COALESCE($2, name),
			      phone = COALESCE($3, phone),
			      account_type = COALESCE($4, account_type),
			      business_name = COALESCE($5, business_name),
			      business_description = COALESCE($6, business_description),
			      document = COALESCE($7, document),
			      city = COALESCE($8, city),
			      updated_at = now()
			  WHERE uid = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, uid,
		upd.Name, upd.Phone, upd.AccountType, upd.BusinessName, upd.BusinessDescription, upd.Document, upd.City))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// SetGatewayCustomerID привязывает клиента шлюза к пользователю.
func (s *Storage) SetGatewayCustomerID(ctx context.Context, uid, customerID string) error {
	const op = "storage.SetGatewayCustomerID"
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET gateway_customer_id = $2, updated_at = now() WHERE uid = $1`, uid, nullString(customerID))
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

// ListUsers возвращает пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context, page models.Page) ([]models.User, error) {
	const op = "storage.ListUsers"
	page = page.Normalize()
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, uid LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, wrap(op, err)
	}
	return collectUsers(op, rows)
}

// ListUsersWithCustomer возвращает пользователей, у которых есть клиент в шлюзе.
func (s *Storage) ListUsersWithCustomer(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsersWithCustomer"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE gateway_customer_id IS NOT NULL ORDER BY created_at`)
	if err != nil {
		return nil, wrap(op, err)
	}
	return collectUsers(op, rows)
}

// DeleteUser удаляет пользователя вместе с его объявлениями и подписками.
func (s *Storage) DeleteUser(ctx context.Context, uid string) error {
	const op = "storage.DeleteUser"
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return wrap(op, err)
	}
	return expectRows(op, res)
}

func collectUsers(op string, rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()
	result := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
