package jwt_test

import (
	"testing"

	jwtutil "github.com/Japan-Automation-Technology/Lifecast-sub000/util/jwt"

	"github.com/stretchr/testify/require"
)

func TestIssueParseRoundTrip(t *testing.T) {
	token, err := jwtutil.Issue("secret", 42, "operator", 1)
	require.NoError(t, err)

	claims, err := jwtutil.ParseAuth("Bearer "+token, "secret")
	require.NoError(t, err)
	require.Equal(t, "operator", claims["role"])

	uid, err := jwtutil.SubjectID(claims)
	require.NoError(t, err)
	require.Equal(t, int64(42), uid)
}

func TestParseAuthRejectsWrongSecret(t *testing.T) {
	token, err := jwtutil.Issue("secret", 42, "supporter", 1)
	require.NoError(t, err)

	_, err = jwtutil.ParseAuth("Bearer "+token, "other-secret")
	require.Error(t, err)
}

func TestParseAuthRejectsMissingHeader(t *testing.T) {
	_, err := jwtutil.ParseAuth("", "secret")
	require.Error(t, err)

	_, err = jwtutil.ParseAuth("Bearer ", "secret")
	require.Error(t, err)
}

func TestParseAuthRejectsExpiredToken(t *testing.T) {
	token, err := jwtutil.Issue("secret", 42, "operator", -1)
	require.NoError(t, err)

	_, err = jwtutil.ParseAuth("Bearer "+token, "secret")
	require.Error(t, err)
}
