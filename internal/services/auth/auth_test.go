package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/beatstore/internal/lib/jwt"
	"github.com/magabrotheeeer/beatstore/internal/lib/password"
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/services/auth"
	"github.com/magabrotheeeer/beatstore/internal/storage"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock)
		wantID     string
		wantErr    error
		anyErr     bool
	}{
		{
			name: "successful registration",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
					return user.Email == "test@example.com" &&
						user.Username == "testuser" &&
						user.PasswordHash != "" &&
						user.PasswordHash != "password123" &&
						user.Role == models.RoleUser
				})).Return("some-uuid-string", nil).Once()
			},
			wantID: "some-uuid-string",
		},
		{
			name: "duplicate user",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("storage.CreateUser: %w", storage.ErrConflict)).Once()
			},
			wantErr: auth.ErrUserExists,
		},
		{
			name: "repository error",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return("", errors.New("db error")).Once()
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			svc := auth.New(repo, jwt.NewJWTMaker("secret", time.Hour))
			tt.setupMocks(repo)

			got, err := svc.Register(context.Background(), "test@example.com", "testuser", "password123")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, auth.ErrUserExists)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, err := password.GetHash("correctpassword")
	require.NoError(t, err)
	user := &models.User{ID: "u-1", Username: "testuser", PasswordHash: hash, Role: models.RoleAdmin}

	maker := jwt.NewJWTMaker("secret", time.Hour)

	tests := []struct {
		name       string
		username   string
		password   string
		setupMocks func(r *UserRepoMock)
		wantErr    error
		anyErr     bool
	}{
		{
			name:     "successful login",
			username: "testuser",
			password: "correctpassword",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(user, nil).Once()
			},
		},
		{
			name:     "wrong password",
			username: "testuser",
			password: "wrong",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(user, nil).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "ghost",
			password: "whatever",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "ghost").
					Return(nil, fmt.Errorf("storage.GetUserByUsername: %w", storage.ErrNotFound)).Once()
			},
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:     "storage failure",
			username: "testuser",
			password: "correctpassword",
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "testuser").Return(nil, errors.New("db down")).Once()
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			svc := auth.New(repo, maker)
			tt.setupMocks(repo)

			token, err := svc.Login(context.Background(), tt.username, tt.password)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			case tt.anyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
			default:
				require.NoError(t, err)
				claims, err := svc.ValidateToken(token)
				require.NoError(t, err)
				assert.Equal(t, "u-1", claims.UserID)
				assert.Equal(t, "testuser", claims.Username)
				assert.Equal(t, models.RoleAdmin, claims.Role)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_ValidateToken_Invalid(t *testing.T) {
	svc := auth.New(new(UserRepoMock), jwt.NewJWTMaker("secret", time.Hour))
	_, err := svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
