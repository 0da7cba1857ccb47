package production

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/trafficlight"
	"github.com/comalice/trafficlight/internal/core"
	"github.com/comalice/trafficlight/testutil"
)

func TestLightEdges(t *testing.T) {
	edges := LightEdges()
	require.Len(t, edges, 9)
	assert.Contains(t, edges, Edge{From: "Red", To: "Green", Label: "expired"})
	assert.Contains(t, edges, Edge{From: "Green", To: "Yellow", Label: "expired"})
	assert.Contains(t, edges, Edge{From: "Yellow", To: "Red", Label: "expired"})
	assert.Contains(t, edges, Edge{From: "Initial", To: "Yellow", Label: "start"})
}

func TestVisualizer_ExportDOT(t *testing.T) {
	m, _ := testutil.NewMachine(t, testutil.Config(trafficlight.Green, time.Second, time.Second, time.Second))
	testutil.Color(t, testutil.MachineDriver{M: m})

	v := &Visualizer{}
	dot := v.ExportDOT(m.Snapshot(), LightEdges())

	assert.True(t, strings.HasPrefix(dot, "digraph HSM {"))
	assert.Contains(t, dot, `subgraph "cluster_Base" {`)
	assert.Contains(t, dot, `"Green" [label="Green" style=filled fillcolor=lightgreen];`)
	assert.Contains(t, dot, `"Red" [label="Red"];`)
	assert.Contains(t, dot, `"Base" [label="Base" shape=ellipse style=filled fillcolor=lightgreen];`)
	assert.Contains(t, dot, `"Green" -> "Yellow" [label="expired"];`)
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestVisualizer_ExportJSON(t *testing.T) {
	m, _ := testutil.NewMachine(t, testutil.Config(trafficlight.Red, time.Second, time.Second, time.Second))

	data, err := (&Visualizer{}).ExportJSON(m.Snapshot(), LightEdges())
	require.NoError(t, err)

	var out struct {
		States []core.StateView `json:"states"`
		Edges  []Edge           `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Len(t, out.States, 5)
	assert.Equal(t, "Initial", out.States[trafficlight.StateInitial].Name)
	assert.True(t, out.States[trafficlight.StateInitial].Active)
	assert.Len(t, out.Edges, 9)
}
