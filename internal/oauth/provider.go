// Package oauth implementa el flujo authorization-code contra
// proveedores de identidad externos. El núcleo de autenticación solo
// consume la identidad verificada que sale de aquí.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"indichess/internal/config"
	"indichess/internal/service"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Provider envuelve la configuración OAuth2 de un proveedor y su
// endpoint de userinfo.
type Provider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

// Registry resuelve proveedores por nombre.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry construye el registro a partir de la configuración.
// Proveedores sin credenciales quedan fuera del registro.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{providers: make(map[string]*Provider)}
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		r.providers["google"] = &Provider{
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				RedirectURL:  cfg.PublicBaseURL + "/oauth2/callback/google",
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}
	return r
}

// Register agrega o reemplaza un proveedor en el registro.
func (r *Registry) Register(p *Provider) {
	r.providers[p.Name] = p
}

// Lookup devuelve el proveedor registrado bajo ese nombre.
func (r *Registry) Lookup(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// AuthCodeURL arma la URL de autorización del proveedor con el state
// dado.
func (p *Provider) AuthCodeURL(state string) string {
	return p.Config.AuthCodeURL(state)
}

// Exchange canjea el authorization code por un access token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.Config.Exchange(ctx, code)
}

// FetchIdentity consulta el endpoint de userinfo y devuelve la
// identidad verificada por el proveedor.
func (p *Provider) FetchIdentity(ctx context.Context, token *oauth2.Token) (service.ExternalIdentity, error) {
	client := p.Config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return service.ExternalIdentity{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return service.ExternalIdentity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.ExternalIdentity{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return service.ExternalIdentity{}, err
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return service.ExternalIdentity{}, err
	}

	return service.ExternalIdentity{
		Provider: p.Name,
		Subject:  info.Sub,
		Email:    info.Email,
		Name:     info.Name,
	}, nil
}
