package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pythgo/lib/pyth"
)

func TestNew(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", false).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud", false).GetLevel())
}

func TestWithFeedJson(t *testing.T) {
	var out bytes.Buffer
	log := NewWithOutput(&out, "info", true)
	WithFeed(log, pyth.FeedBtcUsd, "BTC/USD").Info("read")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	assert.Equal(t, "read", line["msg"])
	assert.Equal(t, "BTC/USD", line["feed"])
	assert.Equal(t, pyth.FeedBtcUsd.String(), line["feed_id"])

	out.Reset()
	WithFeed(log, pyth.FeedBtcUsd, pyth.FeedBtcUsd.String()).Info("read")
	line = nil
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	_, hasSymbol := line["feed"]
	assert.False(t, hasSymbol)
}
