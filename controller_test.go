package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pulse.report/internal/rppg/pipeline"
	"github.com/banshee-data/pulse.report/internal/source"
)

func TestGuardedPipelineHandleFrame(t *testing.T) {
	g := newGuardedPipeline(pipeline.New(pipeline.DefaultConfig()))

	require.NoError(t, g.HandleFrame(source.Frame{Samples: map[int]float64{0: 128.5}}))

	report := g.LatestReport()
	require.Len(t, report.Subjects, 1)
	assert.Equal(t, 1, report.Subjects[0].BufferFill)

	// a negative subject index surfaces the pipeline error
	err := g.HandleFrame(source.Frame{Samples: map[int]float64{-1: 128.5}})
	assert.Error(t, err)

	g.Reset()
	report = g.LatestReport()
	assert.Empty(t, report.Subjects)
}

func TestFrameUDPPort(t *testing.T) {
	assert.Equal(t, 9200, frameUDPPort(":9200"))
	assert.Equal(t, 7777, frameUDPPort("127.0.0.1:7777"))
	assert.Equal(t, 9200, frameUDPPort("not-an-address"))
}
