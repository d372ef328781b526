package api_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/escolas/api"
	"github.com/zalepa/escolas/apitest"
	"github.com/zalepa/escolas/school"
	"github.com/zalepa/escolas/session"
)

var fixture = []school.School{
	{ID: 1, Name: "A", Municipality: "X", Dependency: "Estadual"},
	{ID: 2, Name: "B", Municipality: "X", Dependency: "Municipal", Address: "Rua 1"},
}

func TestLogin(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()
	srv.AddUser("ana@example.com", "s3cret")

	c := api.New(srv.URL, session.NewMemory(""))
	tok, err := c.Login(context.Background(), api.Credentials{Email: "ana@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Empty(t, srv.LastAuthorization(), "no token yet, so no header")
}

func TestLoginRejected(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()
	srv.AddUser("ana@example.com", "s3cret")

	c := api.New(srv.URL, nil)
	_, err := c.Login(context.Background(), api.Credentials{Email: "ana@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func TestInvalidCredentialsNeverHitNetwork(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()
	c := api.New(srv.URL, nil)

	tests := []struct {
		name  string
		creds api.Credentials
	}{
		{"empty", api.Credentials{}},
		{"bad email", api.Credentials{Email: "not-an-email", Password: "x"}},
		{"no password", api.Credentials{Email: "ana@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Login(context.Background(), tt.creds)
			assert.Error(t, err)
			assert.Error(t, c.Register(context.Background(), tt.creds))
		})
	}
	assert.Zero(t, srv.Requests())
}

func TestRegister(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()
	c := api.New(srv.URL, nil)

	creds := api.Credentials{Email: "bia@example.com", Password: "pw"}
	require.NoError(t, c.Register(context.Background(), creds))
	assert.True(t, srv.HasUser("bia@example.com"))

	err := c.Register(context.Background(), creds)
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Code)
}

func TestSchoolsAttachesBearer(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()

	store := session.NewMemory(srv.Token("ana@example.com"))
	c := api.New(srv.URL+"/", store)

	got, err := c.Schools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixture, got)

	tok, _ := store.Token()
	assert.Equal(t, "Bearer "+tok, srv.LastAuthorization())
}

func TestSchoolsWithoutTokenSendsNoHeader(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()

	c := api.New(srv.URL, session.NewMemory(""))
	_, err := c.Schools(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Empty(t, srv.LastAuthorization())
}

func TestWithTokensReadsNewProvider(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()

	base := api.New(srv.URL, nil)
	c := base.WithTokens(session.NewMemory(srv.Token("ana@example.com")))
	_, err := c.Schools(context.Background())
	require.NoError(t, err)

	_, err = base.Schools(context.Background())
	assert.True(t, api.IsUnauthorized(err), "original client is unchanged")
}

func TestSchoolsMalformedBody(t *testing.T) {
	srv := apitest.New(nil)
	defer srv.Close()
	srv.SetSchoolsBody(`{"not":"an array"}`)

	c := api.New(srv.URL, session.NewMemory(srv.Token("ana@example.com")))
	_, err := c.Schools(context.Background())
	assert.Error(t, err)
	assert.False(t, api.IsUnauthorized(err))
}

func TestSchoolsNullBodyIsEmpty(t *testing.T) {
	srv := apitest.New(nil)
	defer srv.Close()
	srv.SetSchoolsBody("null")

	c := api.New(srv.URL, session.NewMemory(srv.Token("ana@example.com")))
	got, err := c.Schools(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSchoolsServerError(t *testing.T) {
	srv := apitest.New(fixture)
	defer srv.Close()
	srv.SetSchoolsStatus(http.StatusInternalServerError)

	c := api.New(srv.URL, session.NewMemory(srv.Token("ana@example.com")))
	_, err := c.Schools(context.Background())
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.Code)
	assert.Equal(t, "/schools", se.Path)
}
