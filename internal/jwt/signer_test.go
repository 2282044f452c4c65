package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopush/internal/credential"
	"github.com/dropDatabas3/hellopush/internal/cryptort"
)

type fixture struct {
	rt     *cryptort.Runtime
	signer *Signer
	key    *credential.SigningKey
	ident  *credential.TrustIdentity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rt := cryptort.New()
	require.NoError(t, rt.Initialize())
	t.Cleanup(func() { _ = rt.Shutdown() })

	store := credential.NewStore(rt)
	key, err := store.LoadSigningKeyFile(filepath.Join("testdata", "AuthKey_ABC123.p8"))
	require.NoError(t, err)
	p12, err := os.ReadFile(filepath.Join("testdata", "identity.p12"))
	require.NoError(t, err)
	ident, err := store.LoadTrustIdentity(p12, "s3cret")
	require.NoError(t, err)

	return fixture{rt: rt, signer: NewSigner(rt), key: key, ident: ident}
}

func decodeSegment(t *testing.T, seg string) []byte {
	t.Helper()
	require.NotContains(t, seg, "=")
	b, err := base64.RawURLEncoding.DecodeString(seg)
	require.NoError(t, err)
	return b
}

func TestSign_KnownScenario(t *testing.T) {
	f := newFixture(t)

	tok, err := f.signer.Sign(f.key, "ABC123", "TEAM01", time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(tok.String(), "."))

	h, c, sig := tok.Segments()
	require.Equal(t, `{"alg":"ES256","kid":"ABC123"}`, string(decodeSegment(t, h)))
	require.Equal(t, `{"iss":"TEAM01","iat":1700000000}`, string(decodeSegment(t, c)))
	require.Len(t, decodeSegment(t, sig), 64)
}

func TestSign_RoundTripDecode(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		kid, team string
		now       time.Time
	}{
		{"ABC123", "TEAM01", time.Unix(1700000000, 0)},
		{"K/+=?&", "équipe-ünïcode", time.Unix(1, 0)},
		{"ZZZZZZZZZZ", "T", time.Unix(4102444800, 0)},
	}
	for _, tc := range cases {
		tok, err := f.signer.Sign(f.key, tc.kid, tc.team, tc.now)
		require.NoError(t, err)

		h, c, _ := tok.Segments()
		var header map[string]any
		require.NoError(t, json.Unmarshal(decodeSegment(t, h), &header))
		require.Equal(t, map[string]any{"alg": "ES256", "kid": tc.kid}, header)

		var claims map[string]any
		require.NoError(t, json.Unmarshal(decodeSegment(t, c), &claims))
		require.Equal(t, map[string]any{"iss": tc.team, "iat": float64(tc.now.Unix())}, claims)

		got, err := Verify(tok.String(), f.key.Public())
		require.NoError(t, err)
		require.Equal(t, tc.kid, got.KeyID)
		require.Equal(t, tc.team, got.TeamID)
		require.Equal(t, tc.now.Unix(), got.IssuedAt.Unix())
	}
}

func TestSign_IssuedAtIsFloored(t *testing.T) {
	f := newFixture(t)

	tok, err := f.signer.Sign(f.key, "ABC123", "TEAM01", time.Unix(1700000000, 999_999_999))
	require.NoError(t, err)
	_, c, _ := tok.Segments()
	require.Equal(t, `{"iss":"TEAM01","iat":1700000000}`, string(decodeSegment(t, c)))
}

func TestSign_SignatureOverExactSigningInput(t *testing.T) {
	f := newFixture(t)

	tok, err := f.signer.Sign(f.key, "ABC123", "TEAM01", time.Unix(1700000000, 0))
	require.NoError(t, err)
	h, c, s := tok.Segments()
	sig := decodeSegment(t, s)

	digest := sha256.Sum256([]byte(h + "." + c))
	r, ss := new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:])
	require.True(t, ecdsa.Verify(f.key.Public(), digest[:], r, ss))
}

func TestSign_TamperDetection(t *testing.T) {
	f := newFixture(t)

	tok, err := f.signer.Sign(f.key, "ABC123", "TEAM01", time.Unix(1700000000, 0))
	require.NoError(t, err)
	h, c, s := tok.Segments()

	enc := base64.RawURLEncoding.EncodeToString
	tampered := []string{
		enc([]byte(`{"alg":"ES256","kid":"ABC124"}`)) + "." + c + "." + s,
		h + "." + enc([]byte(`{"iss":"TEAM02","iat":1700000000}`)) + "." + s,
		h + "." + enc([]byte(`{"iss":"TEAM01","iat":1700000001}`)) + "." + s,
	}
	for _, bad := range tampered {
		_, err := Verify(bad, f.key.Public())
		require.ErrorIs(t, err, ErrInvalidToken)
	}

	// la firma también falla si se altera un byte de la propia firma
	raw := decodeSegment(t, s)
	raw[10] ^= 0x01
	_, err = Verify(h+"."+c+"."+enc(raw), f.key.Public())
	require.ErrorIs(t, err, ErrInvalidToken)

	// clave pública equivocada
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	_, err = Verify(tok.String(), &other.PublicKey)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = Verify(tok.String(), nil)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSign_FreshTokenEachCall(t *testing.T) {
	f := newFixture(t)
	now := time.Unix(1700000000, 0)

	a, err := f.signer.Sign(f.key, "ABC123", "TEAM01", now)
	require.NoError(t, err)
	b, err := f.signer.Sign(f.key, "ABC123", "TEAM01", now)
	require.NoError(t, err)

	ha, ca, sa := a.Segments()
	hb, cb, sb := b.Segments()
	require.Equal(t, ha, hb)
	require.Equal(t, ca, cb)
	// ECDSA con nonce aleatorio: dos firmas válidas distintas
	require.NotEqual(t, sa, sb)
}

func TestSign_Concurrent(t *testing.T) {
	f := newFixture(t)

	const workers = 16
	const perWorker = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				now := time.Unix(1700000000+int64(w*perWorker+i), 0)
				tok, err := f.signer.Sign(f.key, "ABC123", "TEAM01", now)
				if err != nil {
					errs <- err
					continue
				}
				got, err := Verify(tok.String(), f.key.Public())
				if err != nil {
					errs <- err
					continue
				}
				if got.IssuedAt.Unix() != now.Unix() {
					errs <- ErrInvalidToken
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestSign_CapabilityError(t *testing.T) {
	f := newFixture(t)

	tok, err := f.signer.Sign(f.ident, "ABC123", "TEAM01", time.Now())
	require.ErrorIs(t, err, credential.ErrCapability)
	require.Empty(t, tok)

	tok, err = f.signer.Sign(nil, "ABC123", "TEAM01", time.Now())
	require.ErrorIs(t, err, credential.ErrCapability)
	require.Empty(t, tok)

	var typedNil *credential.SigningKey
	_, err = f.signer.Sign(typedNil, "ABC123", "TEAM01", time.Now())
	require.ErrorIs(t, err, credential.ErrCapability)
}

func TestSign_InvalidClaims(t *testing.T) {
	f := newFixture(t)

	_, err := f.signer.Sign(f.key, "", "TEAM01", time.Now())
	require.ErrorIs(t, err, ErrInvalidClaims)
	_, err = f.signer.Sign(f.key, "ABC123", "  ", time.Now())
	require.ErrorIs(t, err, ErrInvalidClaims)
}

func TestSign_RequiresRuntime(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.rt.Shutdown())

	tok, err := f.signer.Sign(f.key, "ABC123", "TEAM01", time.Now())
	require.ErrorIs(t, err, cryptort.ErrRuntimeNotInitialized)
	require.Empty(t, tok)

	uninit := NewSigner(cryptort.New())
	_, err = uninit.Sign(f.key, "ABC123", "TEAM01", time.Now())
	require.ErrorIs(t, err, cryptort.ErrRuntimeNotInitialized)
}

func TestAuthorizationHeader(t *testing.T) {
	require.Equal(t, "bearer a.b.c", AuthorizationHeader(Token("a.b.c")))
}

func TestSegments_Short(t *testing.T) {
	h, c, s := Token("only").Segments()
	require.Equal(t, "only", h)
	require.Empty(t, c)
	require.Empty(t, s)
}
