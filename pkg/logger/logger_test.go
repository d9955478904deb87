package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { _ = Setup("info", "text") })

	require.NoError(t, Setup("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, Log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, Log.Formatter)

	require.NoError(t, Setup("warn", ""))
	assert.Equal(t, logrus.WarnLevel, Log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, Log.Formatter)
}

func TestSetup_Invalid(t *testing.T) {
	t.Cleanup(func() { _ = Setup("info", "text") })

	assert.Error(t, Setup("loud", "text"))
	assert.Error(t, Setup("info", "xml"))
}
