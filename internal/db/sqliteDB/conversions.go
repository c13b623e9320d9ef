package sqliteDB

import (
	"errors"
	"time"

	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/pkg/models/passwd"
	"github.com/google/uuid"
)

func (a *Account) ToAccountModel() (models.Account, error) {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return models.Account{}, err
	}
	return models.Account{
		ID:           id,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    time.Unix(a.CreatedAt, 0),
		UpdatedAt:    time.Unix(a.UpdatedAt, 0),
	}, nil
}

// CreateAccountParamsFromModel assigns a fresh uuid; sqlite has no generator.
func CreateAccountParamsFromModel(args models.CreateAccountParams) (CreateAccountParams, error) {
	if args.Email == "" {
		return CreateAccountParams{}, errors.New("email is empty")
	}
	if !passwd.IsHashed(args.PasswordHash) {
		return CreateAccountParams{}, errors.New("provided password is not yet hashed")
	}
	return CreateAccountParams{
		ID:           uuid.NewString(),
		Email:        args.Email,
		PasswordHash: args.PasswordHash,
	}, nil
}

func CreateSessionParamsFromModel(args models.Session) CreateSessionParams {
	return CreateSessionParams{
		ID:        args.ID,
		AccountID: args.AccountID.String(),
		ExpiresAt: args.ExpiresAt.Unix(),
		IpAddress: args.IpAddress,
		UserAgent: args.UserAgent,
	}
}

func (s *Session) ToSessionModel() (models.Session, error) {
	accountID, err := uuid.Parse(s.AccountID)
	if err != nil {
		return models.Session{}, err
	}
	return models.Session{
		ID:        s.ID,
		AccountID: accountID,
		ExpiresAt: time.Unix(s.ExpiresAt, 0),
		CreatedAt: time.Unix(s.CreatedAt, 0),
		IpAddress: s.IpAddress,
		UserAgent: s.UserAgent,
	}, nil
}
