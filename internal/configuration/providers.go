package configuration

import (
	"context"
	"fmt"
	"sort"

	"easemyday/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type Provider struct {
	Name               string
	Type               models.ProviderType
	Order              int
	Domains            []string
	FirebaseProviderID string
	Provider           *oidc.Provider
	Verifier           *oidc.IDTokenVerifier
	OauthConfig        *oauth2.Config
}

type Providers map[string]Provider

// LoadProviders performs OIDC discovery for every configured federated provider.
// Providers whose issuer cannot be reached are skipped so the rest of the API stays up.
func LoadProviders(
	ctx context.Context,
	apiURL string,
	providersCfg map[string]models.ProviderConfiguration,
) Providers {
	keys := make([]string, 0, len(providersCfg))
	for key := range providersCfg {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	providers := Providers{}
	for _, key := range keys {
		cfg := providersCfg[key]

		provider, err := oidc.NewProvider(ctx, cfg.OIDC.Issuer)
		if err != nil {
			zap.L().Error("Failed to load OIDC provider",
				zap.String("provider", key),
				zap.String("issuer", cfg.OIDC.Issuer),
				zap.Error(err))
			continue
		}

		oauthConfig := &oauth2.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/providers/%s/callback", apiURL, key),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		}

		providers[key] = Provider{
			Name:               cfg.Name,
			Type:               models.OIDCProviderType,
			Order:              len(providers),
			Domains:            cfg.Domains,
			FirebaseProviderID: cfg.FirebaseProviderID,
			Provider:           provider,
			Verifier:           provider.Verifier(&oidc.Config{ClientID: cfg.OIDC.ClientID}),
			OauthConfig:        oauthConfig,
		}

		zap.L().Info("Loaded OIDC provider", zap.String("provider", key))
	}

	return providers
}
