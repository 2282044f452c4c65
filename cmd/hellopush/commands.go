package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopush/internal/credential"
	ophttp "github.com/dropDatabas3/hellopush/internal/http"
	"github.com/dropDatabas3/hellopush/internal/jwt"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
	"github.com/dropDatabas3/hellopush/internal/util/atomicwrite"
)

// token: emite un bearer token para probar a mano contra el gateway.
func (a *app) tokenCmd() *cobra.Command {
	var keyPath, keyID, teamID, outPath string
	var iat int64
	var raw bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un bearer token ES256 firmado con la clave .p8",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstNonEmpty(keyPath, a.cfg.Gateway.SigningKeyFile)
			if path == "" {
				return errors.New("--key es requerido (o PUSH_SIGNING_KEY_FILE)")
			}
			key, err := a.cache.SigningKey(path)
			if err != nil {
				return err
			}

			now := time.Now()
			if iat > 0 {
				now = time.Unix(iat, 0)
			}
			tok, err := jwt.NewSigner(a.rt).Sign(key,
				firstNonEmpty(keyID, a.cfg.Gateway.KeyID),
				firstNonEmpty(teamID, a.cfg.Gateway.TeamID),
				now,
			)
			if err != nil {
				return err
			}

			if outPath != "" {
				// para sidecars que leen el token de disco
				return atomicwrite.WriteFile(outPath, []byte(tok.String()+"\n"), 0o600)
			}
			if raw {
				fmt.Fprintln(a.out, tok)
				return nil
			}
			fmt.Fprintf(a.out, "authorization: %s\n", jwt.AuthorizationHeader(tok))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "ruta a la clave .p8 (env PUSH_SIGNING_KEY_FILE)")
	cmd.Flags().StringVar(&keyID, "key-id", "", "kid del header (env PUSH_KEY_ID)")
	cmd.Flags().StringVar(&teamID, "team-id", "", "claim iss (env PUSH_TEAM_ID)")
	cmd.Flags().Int64Var(&iat, "iat", 0, "issued-at en segundos unix (default: ahora)")
	cmd.Flags().BoolVar(&raw, "raw", false, "imprimir sólo el token")
	cmd.Flags().StringVar(&outPath, "out", "", "escribir el token (sin prefijo) en este archivo en vez de stdout")
	return cmd
}

// verify: valida firma y claims de un token con la clave pública de la .p8.
func (a *app) verifyCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Verifica un bearer token contra la clave .p8",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstNonEmpty(keyPath, a.cfg.Gateway.SigningKeyFile)
			if path == "" {
				return errors.New("--key es requerido (o PUSH_SIGNING_KEY_FILE)")
			}
			key, err := a.cache.SigningKey(path)
			if err != nil {
				return err
			}

			tok := strings.TrimSpace(args[0])
			tok = strings.TrimPrefix(tok, "authorization: ")
			tok = strings.TrimPrefix(tok, "bearer ")

			claims, err := jwt.Verify(tok, key.Public())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "kid:   %s\n", claims.KeyID)
			fmt.Fprintf(a.out, "iss:   %s\n", claims.TeamID)
			fmt.Fprintf(a.out, "iat:   %d (%s)\n", claims.IssuedAt.Unix(), claims.IssuedAt.UTC().Format(time.RFC3339))
			fmt.Fprintf(a.out, "fresh: %t\n", claims.Fresh(time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "ruta a la clave .p8 (env PUSH_SIGNING_KEY_FILE)")
	return cmd
}

// inspect: muestra la hoja de una identidad .p12 (sin material privado).
func (a *app) inspectCmd() *cobra.Command {
	var idPath, passphrase string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Muestra el certificado de una identidad .p12",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := firstNonEmpty(idPath, a.cfg.Gateway.IdentityFile)
			if path == "" {
				return errors.New("--identity es requerido (o PUSH_IDENTITY_FILE)")
			}
			// passphrase vacía es válida: sólo se toma de config si no vino el flag
			pass := a.cfg.Gateway.IdentityPassphrase
			if cmd.Flags().Changed("passphrase") {
				pass = passphrase
			}
			id, err := a.cache.TrustIdentity(path, pass)
			if err != nil {
				return err
			}

			leaf := id.Leaf()
			fmt.Fprintf(a.out, "subject:    %s\n", leaf.Subject)
			fmt.Fprintf(a.out, "issuer:     %s\n", leaf.Issuer)
			fmt.Fprintf(a.out, "serial:     %s\n", leaf.SerialNumber)
			fmt.Fprintf(a.out, "not_before: %s\n", leaf.NotBefore.UTC().Format(time.RFC3339))
			fmt.Fprintf(a.out, "not_after:  %s\n", leaf.NotAfter.UTC().Format(time.RFC3339))
			fmt.Fprintf(a.out, "chain:      %d\n", leaf.ChainLength)
			fmt.Fprintf(a.out, "gateway:    %s\n", a.cfg.Gateway.Host())
			return nil
		},
	}
	cmd.Flags().StringVar(&idPath, "identity", "", "ruta al archivo .p12 (env PUSH_IDENTITY_FILE)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "passphrase del .p12 (env PUSH_IDENTITY_PASSPHRASE)")
	return cmd
}

// serve: servidor de operación hasta SIGINT/SIGTERM.
func (a *app) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta /healthz, /readyz y /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mh, err := ophttp.RegisterMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
			if err != nil {
				return err
			}
			h := &ophttp.Health{
				Runtime:     a.rt,
				Credential:  a.credentialSource(),
				GatewayHost: a.cfg.Gateway.Host(),
				Version:     version,
			}

			logger.Named("serve").Info("starting ops server",
				logger.Host(a.cfg.Gateway.Host()),
				logger.Bool("token_auth", a.cfg.Gateway.UsesToken()),
				logger.Bool("certificate_auth", a.cfg.Gateway.UsesIdentity()),
			)
			return ophttp.Start(ctx, firstNonEmpty(addr, a.cfg.Ops.Addr), ophttp.NewRouter(h, mh))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "dirección de escucha (env OPS_ADDR)")
	return cmd
}

// credentialSource resuelve la credencial configurada vía FileCache, o nil si
// no hay ninguna.
func (a *app) credentialSource() ophttp.CredentialSource {
	g := a.cfg.Gateway
	switch {
	case g.UsesToken():
		return func() (credential.Credential, error) { return a.cache.SigningKey(g.SigningKeyFile) }
	case g.UsesIdentity():
		return func() (credential.Credential, error) {
			return a.cache.TrustIdentity(g.IdentityFile, g.IdentityPassphrase)
		}
	default:
		return nil
	}
}
