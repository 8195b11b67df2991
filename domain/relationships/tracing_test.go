package relationships

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// withSpanRecorder installs a recording TracerProvider for the duration
// of the test and restores the previous global afterwards.
func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func endedSpanNames(sr *tracetest.SpanRecorder) []string {
	spans := sr.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	return names
}

func TestTraverser_EmitsSpan(t *testing.T) {
	sr := withSpanRecorder(t)
	g := newGraphFixture(t)
	ctx := context.Background()

	a := g.addShard(t, "account", "a")
	b := g.addShard(t, "contact", "b")
	g.link(t, a, b, TypeRelatesTo)

	_, err := g.tr.Traverse(ctx, g.tenantID, a, &TraverseRequest{})
	require.NoError(t, err)

	assert.Contains(t, endedSpanNames(sr), "relationships.traverse")
}

func TestPathfinder_EmitsSpan(t *testing.T) {
	sr := withSpanRecorder(t)
	g, pf := newPathFixture(t)
	ctx := context.Background()

	a := g.addShard(t, "account", "a")
	b := g.addShard(t, "contact", "b")
	g.link(t, a, b, TypeRelatesTo)

	_, err := pf.FindPath(ctx, g.tenantID, &FindPathRequest{
		SourceShardID: a,
		TargetShardID: b,
	})
	require.NoError(t, err)

	assert.Contains(t, endedSpanNames(sr), "relationships.find_path")
}
