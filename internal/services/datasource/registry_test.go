package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincept/terminal/internal/common"
	"github.com/fincept/terminal/internal/models"
)

func newRealRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(common.NewDefaultConfig(), common.NewSilentLogger())
}

func TestRegistryList(t *testing.T) {
	reg := newRealRegistry(t)

	infos := reg.List()
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	assert.ElementsMatch(t, []string{
		"yfinance", "alpha_vantage", "newsapi", "dbnomics", "fincept_api", "static",
	}, names)
}

func TestRegistryInfo(t *testing.T) {
	reg := newRealRegistry(t)

	info, ok := reg.Info("yfinance")
	require.True(t, ok)
	assert.Equal(t, "Yahoo Finance", info.DisplayName)
	assert.True(t, info.SupportsType(models.DataTypeStocks))
	assert.False(t, info.SupportsType(models.DataTypeNews))

	_, ok = reg.Info("bloomberg")
	assert.False(t, ok)
}

func TestRegistryNewNoAuthProviders(t *testing.T) {
	reg := newRealRegistry(t)

	for _, name := range []string{"yfinance", "dbnomics", "static", "fincept_api"} {
		p, err := reg.New(name, models.SourceConfig{})
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
	}
}

func TestRegistryNewUnknownProvider(t *testing.T) {
	reg := newRealRegistry(t)

	_, err := reg.New("bloomberg", models.SourceConfig{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryNewAuthProviderRequiresKey(t *testing.T) {
	t.Setenv("NEWSAPI_API_KEY", "")
	t.Setenv("FINCEPT_NEWSAPI_API_KEY", "")

	reg := newRealRegistry(t)

	_, err := reg.New("newsapi", models.SourceConfig{})
	assert.Error(t, err)

	p, err := reg.New("newsapi", models.SourceConfig{APIKey: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "newsapi", p.Name())
}

func TestRegistryNewAuthProviderKeyFromEnv(t *testing.T) {
	t.Setenv("ALPHA_VANTAGE_API_KEY", "env-key")

	reg := newRealRegistry(t)

	p, err := reg.New("alpha_vantage", models.SourceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "alpha_vantage", p.Name())
}
