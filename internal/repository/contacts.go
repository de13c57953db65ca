package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mmeshcher/bakeshop-system/internal/model"
)

// CreateContact сохраняет обращение покупателя.
func (r *PostgresRepository) CreateContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (name, email, phone, message)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, status, created_at`,
		c.Name, c.Email, c.Phone, c.Message,
	).Scan(&c.ID, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// ListContacts возвращает все обращения, свежие сверху.
func (r *PostgresRepository) ListContacts(ctx context.Context) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, phone, message, reply_message, replied_by, status, created_at
		 FROM contacts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select contacts: %w", err)
	}
	defer rows.Close()

	var res []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message,
			&c.ReplyMessage, &c.RepliedBy, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeleteContact удаляет обращение.
func (r *PostgresRepository) DeleteContact(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrContactNotFound
	}
	return nil
}

// ReplyContact сохраняет ответ администратора и помечает обращение прочитанным.
func (r *PostgresRepository) ReplyContact(ctx context.Context, id, adminID int64, reply string) (*model.Contact, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE contacts
		 SET reply_message = $2, replied_by = $3, status = 'read'
		 WHERE id = $1
		 RETURNING id, name, email, phone, message, reply_message, replied_by, status, created_at`,
		id, reply, adminID,
	)

	var c model.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message,
		&c.ReplyMessage, &c.RepliedBy, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("reply contact: %w", err)
	}
	return &c, nil
}
