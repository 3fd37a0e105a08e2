package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wesleyorama2/tickscope/perf/metrics"
)

const sampleDoc = `{
  "version": "1",
  "bottlenecks": {"top_bottlenecks": [{"name": "PHYSICS", "priority": 90}]},
  "spikes": {"worst_label": null},
  "facts": {"ai_agent_count": 300}
}`

func TestToGjsonPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$", "@this"},
		{"$.", "@this"},
		{"version", "version"},
		{"$.version", "version"},
		{"$.bottlenecks.top_bottlenecks[0].name", "bottlenecks.top_bottlenecks.0.name"},
		{"$['facts']['ai_agent_count']", "facts.ai_agent_count"},
		{`$["facts"]`, "facts"},
		{"$[0]", "0"},
		{"points.#.point", "points.#.point"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, toGjsonPath(tt.in))
		})
	}
}

func TestSelect(t *testing.T) {
	data := []byte(sampleDoc)

	res, err := Select(data, "$.bottlenecks.top_bottlenecks[0].priority")
	require.NoError(t, err)
	assert.Equal(t, int64(90), res.Int())

	s, err := SelectString(data, "bottlenecks.top_bottlenecks.0.name")
	require.NoError(t, err)
	assert.Equal(t, "PHYSICS", s)

	s, err = SelectString(data, "$.spikes.worst_label")
	require.NoError(t, err)
	assert.Equal(t, "null", s)

	res, err = Select(data, "$")
	require.NoError(t, err)
	assert.True(t, res.IsObject())
}

func TestSelect_Errors(t *testing.T) {
	_, err := Select(nil, "version")
	assert.Error(t, err)

	_, err = Select([]byte(sampleDoc), "")
	assert.Error(t, err)

	_, err = Select([]byte(sampleDoc), "$.missing.path")
	assert.ErrorContains(t, err, "path not found")
}

func TestDocument_Select(t *testing.T) {
	f := newFixture(t)
	f.record(metrics.PointTick, 10, 5, "")
	f.record(metrics.PointEntityAI, 4, 5, "zombie")

	doc, err := Build(f.inputs(nil))
	require.NoError(t, err)

	res, err := doc.Select("points.#.point")
	require.NoError(t, err)
	var names []string
	for _, r := range res.Array() {
		names = append(names, r.String())
	}
	assert.Equal(t, []string{"TICK", "ENTITY_AI"}, names)

	res, err = doc.Select("$.points[1].labels.by_total[0].label")
	require.NoError(t, err)
	assert.Equal(t, "zombie", res.String())
	assert.Equal(t, gjson.String, res.Type)
}
