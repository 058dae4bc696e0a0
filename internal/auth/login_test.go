package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/catalog-browser/internal/auth"
	"github.com/stacklok/catalog-browser/internal/catalogtest"
	"github.com/stacklok/catalog-browser/internal/httpclient"
	clientmocks "github.com/stacklok/catalog-browser/internal/httpclient/mocks"
)

func TestLogin(t *testing.T) {
	t.Parallel()

	server := catalogtest.NewServer(catalogtest.SampleArtifacts(), catalogtest.WithAccount(catalogtest.Account{
		ID:       3,
		Username: "curator",
		Email:    "curator@example.org",
		Password: "obsidian",
		FullName: "Ana Curator",
		Token:    "tok-3",
	}))
	t.Cleanup(server.Close)
	client := httpclient.NewDefaultClient(0)

	tests := []struct {
		name      string
		creds     auth.Credentials
		wantUser  auth.User
		wantToken string
		wantErr   string
	}{
		{
			name:      "valid credentials store the token",
			creds:     auth.Credentials{Email: "curator@example.org", Password: "obsidian"},
			wantUser:  auth.User{ID: 3, Username: "curator", Email: "curator@example.org", FullName: "Ana Curator"},
			wantToken: "tok-3",
		},
		{
			name:      "wrong password keeps the old token",
			creds:     auth.Credentials{Email: "curator@example.org", Password: "basalt"},
			wantToken: "old",
			wantErr:   "login failed: Wrong password",
		},
		{
			name:      "unknown user",
			creds:     auth.Credentials{Email: "visitor@example.org", Password: "obsidian"},
			wantToken: "old",
			wantErr:   "login failed: User not found",
		},
		{
			name:      "missing password is not sent",
			creds:     auth.Credentials{Email: "curator@example.org"},
			wantToken: "old",
			wantErr:   "email and password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := auth.NewMemoryStore("old")
			user, err := auth.Login(context.Background(), client, server.AuthURL(), tt.creds, store)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantUser, user)
			}
			assert.Equal(t, tt.wantToken, store.CurrentToken())
		})
	}
}

func TestLogin_ResponseWithoutToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := clientmocks.NewMockClient(ctrl)
	client.EXPECT().
		Post(gomock.Any(), "http://catalog.test/api/auth/", gomock.Any()).
		Return([]byte(`{"user": {"id": 1}}`), nil)

	store := auth.NewMemoryStore("")
	_, err := auth.Login(context.Background(), client, "http://catalog.test/api/auth/",
		auth.Credentials{Email: "a@example.org", Password: "b"}, store)
	require.ErrorIs(t, err, auth.ErrNoToken)
	assert.Empty(t, store.CurrentToken())
}

func TestLogin_NetworkError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := clientmocks.NewMockClient(ctrl)
	sentinel := errors.New("connection refused")
	client.EXPECT().Post(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, sentinel)

	_, err := auth.Login(context.Background(), client, "http://catalog.test/api/auth/",
		auth.Credentials{Email: "a@example.org", Password: "b"}, auth.NewMemoryStore(""))
	require.ErrorIs(t, err, sentinel)
}
