// Command hellopush maneja las credenciales del gateway de push: emite y
// verifica bearer tokens ES256, inspecciona identidades PKCS#12 y levanta el
// servidor de operación (/healthz, /readyz, /metrics).
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellopush/internal/config"
	"github.com/dropDatabas3/hellopush/internal/credential"
	"github.com/dropDatabas3/hellopush/internal/cryptort"
	"github.com/dropDatabas3/hellopush/internal/metrics"
	"github.com/dropDatabas3/hellopush/internal/observability/logger"
)

// seteado con -ldflags "-X main.version=..."
var version = "dev"

type app struct {
	out        io.Writer
	configPath string
	envFile    string

	cfg   *config.Config
	rt    *cryptort.Runtime
	cache *credential.FileCache
}

func main() {
	if err := newApp(os.Stdout).execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newApp(out io.Writer) *app {
	return &app{out: out}
}

// execute corre el comando y hace el teardown también cuando falla: cobra no
// llama PersistentPostRunE si RunE devuelve error.
func (a *app) execute(args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	cmd, err := root.ExecuteC()
	if err != nil && cmd != nil && a.cfg != nil {
		logger.With(logger.Component("cli"), logger.Op(cmd.Name())).Debug("command failed", logger.Err(err))
	}
	if terr := a.teardown(); err == nil {
		err = terr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hellopush",
		Short:         "Credenciales y tokens para el gateway de push",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "ruta a config.yaml (si no se pasa, sólo env)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "ruta a .env (vacío para no cargarlo)")

	root.AddCommand(
		a.tokenCmd(),
		a.verifyCmd(),
		a.inspectCmd(),
		a.serveCmd(),
	)
	return root
}

func (a *app) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cargar %s: %w", a.envFile, err)
		}
	}

	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.FromEnv()
	}
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         a.cfg.App.Env,
		Level:       a.cfg.Log.Level,
		ServiceName: "hellopush",
		Version:     version,
	})
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	a.rt = cryptort.New()
	if err := a.rt.Initialize(); err != nil {
		return err
	}
	a.cache = credential.NewFileCache(credential.NewStore(a.rt), a.cfg.CredentialCacheTTL())
	return nil
}

func (a *app) teardown() error {
	if a.rt == nil {
		return nil
	}
	err := a.rt.Shutdown()
	_ = logger.Sync()
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
