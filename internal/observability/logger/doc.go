// Package logger provee un logger Zap singleton con scoping por contexto.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: el adapter TLS y el servidor de ops propagan un logger "scoped"
//     (host, componente) sin crear un nuevo core.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Material de claves: nunca se loguea. Los helpers de campos solo aceptan
//     metadatos (kid, team, tipo de credencial, ruta).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,   // "dev" o "prod"
//	    Level: cfg.Log.Level, // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En componentes:
//
//	log := logger.Named("credential")
//	log.Info("signing key loaded", logger.CredentialKind("signing_key"), logger.Path(p))
package logger
