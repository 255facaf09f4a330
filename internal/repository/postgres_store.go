package repository

import "github.com/jackc/pgx/v5/pgxpool"

// NewPostgresStore wires every Postgres repository on one pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return Store{
		Tickets:  NewTicketRepository(pool),
		Comments: NewCommentRepository(pool),
		History:  NewTicketHistoryRepository(pool),
		Users:    NewUserRepository(pool),
	}
}
