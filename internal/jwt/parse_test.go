package jwt

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	f := newFixture(t)

	// HS256 con la clave pública serializada como secreto: el clásico confusion attack
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.RegisteredClaims{
		Issuer:   "TEAM01",
		IssuedAt: jwtv5.NewNumericDate(time.Unix(1700000000, 0)),
	})
	tk.Header["kid"] = "ABC123"
	signed, err := tk.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = Verify(signed, f.key.Public())
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RequiresKidAndIat(t *testing.T) {
	f := newFixture(t)

	noKid := jwtv5.NewWithClaims(jwtv5.SigningMethodES256, jwtv5.RegisteredClaims{
		Issuer:   "TEAM01",
		IssuedAt: jwtv5.NewNumericDate(time.Unix(1700000000, 0)),
	})
	input, err := noKid.SigningString()
	require.NoError(t, err)
	sig, err := f.key.SignES256(input)
	require.NoError(t, err)
	_, err = Verify(input+"."+noKid.EncodeSegment(sig), f.key.Public())
	require.ErrorIs(t, err, ErrInvalidToken)

	noIat := jwtv5.NewWithClaims(jwtv5.SigningMethodES256, jwtv5.RegisteredClaims{Issuer: "TEAM01"})
	noIat.Header["kid"] = "ABC123"
	input, err = noIat.SigningString()
	require.NoError(t, err)
	sig, err = f.key.SignES256(input)
	require.NoError(t, err)
	_, err = Verify(input+"."+noIat.EncodeSegment(sig), f.key.Public())
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsFresh(t *testing.T) {
	iat := time.Unix(1700000000, 0)
	c := Claims{KeyID: "ABC123", TeamID: "TEAM01", IssuedAt: iat}

	require.True(t, c.Fresh(iat))
	require.True(t, c.Fresh(iat.Add(59*time.Minute)))
	require.False(t, c.Fresh(iat.Add(GatewayTokenLifetime)))
	require.False(t, c.Fresh(iat.Add(-2*time.Minute)))
}
