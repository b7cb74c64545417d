package secret

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider resolves references against the process environment, with an
// optional variable name prefix.
//
//	secretref:env:TOKEN   -> $TOKEN (or $<Prefix>TOKEN)
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider is the ProviderFactory for "env". It accepts an optional
// "prefix" string in cfg.
func NewEnvProvider(cfg map[string]any) (Provider, error) {
	p := &EnvProvider{}
	if v, ok := cfg["prefix"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: env prefix must be a string", ErrInvalidProvider)
		}
		p.Prefix = s
	}
	return p, nil
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	name := p.Prefix + strings.TrimSpace(ref)
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, name)
	}
	return v, nil
}

func (p *EnvProvider) Close() error { return nil }

var _ Provider = (*EnvProvider)(nil)
