package sqliteDB

type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    int64
	UpdatedAt    int64
}

type Session struct {
	ID        string
	AccountID string
	ExpiresAt int64
	CreatedAt int64
	IpAddress *string
	UserAgent *string
}
