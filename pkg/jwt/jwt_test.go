package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/docledger/pkg/jwt"
)

func TestGenerateParse(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cret", "u-1", "org-1", "admin", "docledger", 5)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse("s3cret", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "org-1", claims.OrganizationID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "docledger", claims.Issuer)
}

func TestParse_Rechazos(t *testing.T) {
	tok, err := pkgjwt.Generate("s3cret", "u-1", "org-1", "admin", "docledger", 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro", tok)
	assert.Error(t, err, "firma con otro secreto")

	expired, err := pkgjwt.Generate("s3cret", "u-1", "org-1", "admin", "docledger", -1)
	require.NoError(t, err)
	_, err = pkgjwt.Parse("s3cret", expired)
	assert.Error(t, err, "token expirado")

	noOrg, err := pkgjwt.Generate("s3cret", "u-1", "", "admin", "docledger", 5)
	require.NoError(t, err)
	_, err = pkgjwt.Parse("s3cret", noOrg)
	assert.Error(t, err, "sin organización")

	_, err = pkgjwt.Parse("", tok)
	assert.Error(t, err)
}
