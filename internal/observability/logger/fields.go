package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - CREDENCIALES / TOKENS
// =================================================================================

// KeyID crea un campo para el kid del header del token.
func KeyID(v string) zap.Field {
	return zap.String("key_id", v)
}

// TeamID crea un campo para el team (claim iss).
func TeamID(v string) zap.Field {
	return zap.String("team_id", v)
}

// CredentialKind crea un campo para el tipo de credencial (signing_key | trust_identity).
func CredentialKind(v string) zap.Field {
	return zap.String("credential_kind", v)
}

// Subject crea un campo para el subject del certificado hoja.
func Subject(v string) zap.Field {
	return zap.String("subject", v)
}

// NotAfter crea un campo para el vencimiento de un certificado.
func NotAfter(v time.Time) zap.Field {
	return zap.Time("not_after", v)
}

// Challenge crea un campo para el tipo de challenge TLS.
func Challenge(v string) zap.Field {
	return zap.String("challenge", v)
}

// Host crea un campo para el host remoto de un handshake.
func Host(v string) zap.Field {
	return zap.String("host", v)
}

// Path crea un campo para una ruta de archivo.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP (ops)
// =================================================================================

// RequestID crea un campo para el request ID.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración de una operación.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
