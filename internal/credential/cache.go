package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellopush/internal/metrics"
)

// FileCache comparte credenciales ya parseadas entre clientes configurados con
// el mismo archivo. La clave incluye mtime y tamaño, así un archivo reemplazado
// en disco se vuelve a cargar sin esperar al TTL.
type FileCache struct {
	store *Store
	items *gocache.Cache
	sf    singleflight.Group
}

// NewFileCache crea el cache. ttl <= 0 usa 10 minutos.
func NewFileCache(store *Store, ttl time.Duration) *FileCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FileCache{
		store: store,
		items: gocache.New(ttl, ttl/2+time.Second),
	}
}

// SigningKey devuelve la clave del .p8 en path, cargándola si hace falta.
func (c *FileCache) SigningKey(path string) (*SigningKey, error) {
	key, err := fileKey(KindSigningKey, path, "")
	if err != nil {
		return nil, err
	}
	v, err := c.load(key, func() (Credential, error) {
		return c.store.LoadSigningKeyFile(path)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SigningKey), nil
}

// TrustIdentity devuelve la identidad del .p12 en path, cargándola si hace falta.
func (c *FileCache) TrustIdentity(path, passphrase string) (*TrustIdentity, error) {
	key, err := fileKey(KindTrustIdentity, path, passphrase)
	if err != nil {
		return nil, err
	}
	v, err := c.load(key, func() (Credential, error) {
		return c.store.LoadTrustIdentityFile(path, passphrase)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TrustIdentity), nil
}

// Len devuelve la cantidad de credenciales cacheadas (no expiradas).
func (c *FileCache) Len() int { return c.items.ItemCount() }

// Flush descarta todas las credenciales cacheadas.
func (c *FileCache) Flush() { c.items.Flush() }

func (c *FileCache) load(key string, fn func() (Credential, error)) (Credential, error) {
	if err := c.store.rt.Check(); err != nil {
		return nil, err
	}
	if v, ok := c.items.Get(key); ok {
		metrics.CredentialCache.WithLabelValues(metrics.ResultHit).Inc()
		return v.(Credential), nil
	}
	metrics.CredentialCache.WithLabelValues(metrics.ResultMiss).Inc()

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if v, ok := c.items.Get(key); ok {
			return v, nil
		}
		cred, err := fn()
		if err != nil {
			return nil, err
		}
		c.items.SetDefault(key, cred)
		return cred, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Credential), nil
}

func fileKey(kind Kind, path, passphrase string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolve path: %w", ErrCredentialLoad, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: stat: %w", ErrCredentialLoad, err)
	}
	k := kind.String() + "|" + abs + "|" + strconv.FormatInt(st.ModTime().UnixNano(), 10) + "|" + strconv.FormatInt(st.Size(), 10)
	if passphrase != "" {
		sum := sha256.Sum256([]byte(passphrase))
		k += "|" + hex.EncodeToString(sum[:8])
	}
	return k, nil
}
