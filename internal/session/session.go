// Package session implements the identity.Provider contract on top of the
// session file the auth flow maintains.
package session

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/identity"
)

// FileProvider reads the shopper session persisted by the auth flow. The
// stored file is treated as untrusted input: a missing or corrupt session
// resolves to the guest identity instead of failing.
type FileProvider struct {
	path string
	lg   *zap.Logger
}

// NewFileProvider creates a FileProvider reading the session at path.
func NewFileProvider(path string, lg *zap.Logger) *FileProvider {
	return &FileProvider{path: path, lg: lg}
}

// sessionDoc mirrors the fragment of the session file this subsystem reads.
// Only user.name is consumed.
type sessionDoc struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
}

// Current returns the identity stored in the session file, or the guest
// identity when the file is absent, unreadable, or malformed.
func (p *FileProvider) Current() identity.Identity {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return identity.Guest()
	}

	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		p.lg.Warn("Corrupt session file, using guest identity",
			zap.String("path", p.path),
			zap.Error(err),
		)
		return identity.Guest()
	}
	if doc.User.Name == "" {
		return identity.Guest()
	}
	return identity.Identity{Name: doc.User.Name}
}
