package adapter

import (
	"testing"

	"DanmakuAnalysis/internal/config"
	"DanmakuAnalysis/internal/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nilFactory(*config.InferenceConfig, *logrus.Logger) interfaces.ModelBackend { return nil }

func TestRegistry_RegisterLookupNames(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", nilFactory)
	r.Register("alpha", nilFactory)
	r.Register("alpha", nilFactory)

	_, ok := r.Lookup("alpha")
	assert.True(t, ok)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())

	assert.Panics(t, func() { r.Register("broken", nil) })
}

func TestNewBackend_NoneAndUnknown(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	b, err := NewBackend(&config.InferenceConfig{Provider: "none"}, logger)
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = NewBackend(&config.InferenceConfig{Provider: "no-such-backend"}, logger)
	assert.Error(t, err)
}
