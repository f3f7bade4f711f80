package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/libcatalog/internal/database"
	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/storage"
)

func TestAccountService_Register(t *testing.T) {
	tests := []struct {
		name    string
		request models.RegisterAccountRequest
		wantErr error
	}{
		{
			name: "valid registration",
			request: models.RegisterAccountRequest{
				UserID:        " carol ",
				Password:      "secret",
				Email:         "carol@example.com",
				ContactNumber: "+254 700 000 001",
				FirstName:     "Carol",
				LastName:      "Njeri",
			},
		},
		{
			name:    "short password",
			request: models.RegisterAccountRequest{UserID: "carol", Password: "abc"},
			wantErr: models.ErrValidation,
		},
		{
			name:    "bad user id",
			request: models.RegisterAccountRequest{UserID: "c d", Password: "secret"},
			wantErr: models.ErrValidation,
		},
		{
			name:    "bad email",
			request: models.RegisterAccountRequest{UserID: "carol", Password: "secret", Email: "not-an-email"},
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			resp, err := f.members.Register(context.Background(), tt.request)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				assert.Zero(t, f.members.Count(context.Background()))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "carol", resp.UserID)
			assert.Equal(t, "Carol Njeri", resp.Name)
			assert.True(t, resp.IsActive)
		})
	}
}

func TestAccountService_RegisterDuplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	_, err := f.members.Register(context.Background(), models.RegisterAccountRequest{UserID: "alice", Password: "other"})
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.Equal(t, 1, f.members.Count(context.Background()))
}

func TestAccountService_Login(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	resp, err := f.members.Login(ctx, models.LoginRequest{UserID: "alice", Password: "pw-alice"})
	require.NoError(t, err)
	require.NotNil(t, resp.LastLogin)
	assert.True(t, resp.LastLogin.Equal(f.clock.Now()))

	_, err = f.members.Login(ctx, models.LoginRequest{UserID: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.members.Login(ctx, models.LoginRequest{UserID: "nobody", Password: "pw-nobody"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	profile := models.ProfileRequestFrom(mustAccount(t, f, "alice"))
	profile.IsActive = false
	_, err = f.members.UpdateProfile(ctx, profile)
	require.NoError(t, err)

	_, err = f.members.Login(ctx, models.LoginRequest{UserID: "alice", Password: "pw-alice"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestAccountService_UpdateProfileKeepsCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	resp, err := f.members.UpdateProfile(ctx, models.UpdateProfileRequest{
		UserID:    "alice",
		Email:     "alice@library.test",
		FirstName: "Alice",
		LastName:  "Wanjiru",
		IsActive:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Wanjiru", resp.Name)
	assert.Equal(t, "alice@library.test", resp.Email)

	_, err = f.members.Login(ctx, models.LoginRequest{UserID: "alice", Password: "pw-alice"})
	assert.NoError(t, err)

	_, err = f.members.UpdateProfile(ctx, models.UpdateProfileRequest{UserID: "ghost", IsActive: true})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountService_ChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	err := f.members.ChangePassword(ctx, models.ChangePasswordRequest{UserID: "alice", OldPassword: "wrong", NewPassword: "fresh-one"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.members.ChangePassword(ctx, models.ChangePasswordRequest{UserID: "alice", OldPassword: "pw-alice", NewPassword: "no"})
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, f.members.ChangePassword(ctx, models.ChangePasswordRequest{UserID: "alice", OldPassword: "pw-alice", NewPassword: "fresh-one"}))

	_, err = f.members.Login(ctx, models.LoginRequest{UserID: "alice", Password: "pw-alice"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.members.Login(ctx, models.LoginRequest{UserID: "alice", Password: "fresh-one"})
	assert.NoError(t, err)
}

func TestAccountService_DeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addBook(t, "1234567890", "Dune", 2)
	f.register(t, "alice")
	f.issue(t, "1234567890", "alice", 1)

	deleted, err := f.members.DeleteAccount(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.False(t, deleted)
	assert.True(t, f.members.Exists(ctx, "alice"))

	_, err = f.circulation.ReturnAll(ctx, "1234567890", "alice")
	require.NoError(t, err)

	deleted, err = f.members.DeleteAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.members.DeleteAccount(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, deleted, "second delete finds nothing")

	_, err = f.members.GetAccount(ctx, "alice")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountService_DeleteAccountCancelled(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	deleted, err := f.members.DeleteAccount(ctx, "alice")
	assert.False(t, deleted)
	assert.ErrorIs(t, err, models.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, models.KindCancelled, models.KindOf(err))
	assert.True(t, f.members.Exists(context.Background(), "alice"))
}

func TestAccountService_ClearAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addBook(t, "1234567890", "Dune", 2)
	f.register(t, "alice")
	f.register(t, "bob")
	f.issue(t, "1234567890", "bob", 1)

	_, err := f.members.ClearAccounts(ctx, "yes")
	assert.ErrorIs(t, err, models.ErrConflict, "borrowers block the clear before the confirmation is read")

	_, err = f.circulation.ReturnAll(ctx, "1234567890", "bob")
	require.NoError(t, err)

	_, err = f.members.ClearAccounts(ctx, "yes")
	assert.ErrorIs(t, err, models.ErrValidation)

	n, err := f.members.ClearAccounts(ctx, database.ClearAccountsConfirmation)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, f.members.ListAccounts(ctx))
}

func TestAccountService_ListAccountsSorted(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"zed", "amy", "max"} {
		f.register(t, id)
	}

	var ids []string
	for _, a := range f.members.ListAccounts(context.Background()) {
		ids = append(ids, a.UserID)
	}
	assert.Equal(t, []string{"amy", "max", "zed"}, ids)
}

func TestAccountService_Argon2Credentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hasher := NewPasswordHasher(testArgon2Config(), quietLogger())
	accounts := database.OpenAccounts(storage.NewStore(quietLogger()), t.TempDir(), quietLogger(),
		database.WithCredentialMatcher(hasher),
		database.WithAccountAutoSave(false),
	)
	members := NewAccountService(accounts, f.catalog, hasher, nil, quietLogger())

	_, err := members.Register(ctx, models.RegisterAccountRequest{UserID: "dora", Password: "hunter22"})
	require.NoError(t, err)

	stored, err := accounts.Get("dora")
	require.NoError(t, err)
	assert.Contains(t, stored.Credential, "$argon2id$")
	assert.NotContains(t, stored.Credential, "hunter22")

	_, err = members.Login(ctx, models.LoginRequest{UserID: "dora", Password: "hunter22"})
	assert.NoError(t, err)
	_, err = members.Login(ctx, models.LoginRequest{UserID: "dora", Password: "hunter23"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func mustAccount(t *testing.T, f *fixture, userID string) models.Account {
	t.Helper()
	account, err := f.accounts.Get(userID)
	require.NoError(t, err)
	return account
}
