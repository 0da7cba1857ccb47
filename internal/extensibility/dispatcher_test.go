package extensibility

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/testutil"
)

type dispatchFunc func(trafficlight.Message) error

func (f dispatchFunc) Dispatch(msg trafficlight.Message) error { return f(msg) }

func TestLoggingDispatcher(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	m, _ := testutil.NewMachine(t, testutil.Config(trafficlight.Red, time.Second, time.Second, time.Second))
	d := NewLoggingDispatcher(m, zap.New(obsCore).Sugar())

	req, reply := trafficlight.NewGetColor()
	require.NoError(t, d.Dispatch(req))
	assert.Equal(t, trafficlight.Red, (<-reply).Color)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "dispatching", entries[0].Message)
	assert.Equal(t, "GetColor", entries[0].ContextMap()["message"])
	assert.Equal(t, "dispatch completed", entries[1].Message)
}

func TestLoggingDispatcher_PassesErrorThrough(t *testing.T) {
	boom := errors.New("boom")
	d := NewLoggingDispatcher(dispatchFunc(func(trafficlight.Message) error { return boom }), nil)

	err := d.Dispatch(trafficlight.GetColorResponse{})
	assert.True(t, errors.Is(err, boom))
}
