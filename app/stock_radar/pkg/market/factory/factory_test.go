package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/stock_radar/app/stock_radar/pkg/config"
)

func TestNewProvider(t *testing.T) {
	cfg := config.Default()

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", p.Name())

	cfg.Market.Provider = "mock"
	agg, err := NewAggregator(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", agg.Name())

	cfg.Market.Provider = "bloomberg"
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}
