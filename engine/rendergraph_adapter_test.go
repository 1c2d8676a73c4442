package engine

import (
	"testing"

	"github.com/oxy-go/ren-core/rendergraph"
	"github.com/stretchr/testify/require"
)

func TestGraphResourcesReportsMissingBinding(t *testing.T) {
	res := NewGraphResources()
	_, ok := res.Buffer(rendergraph.BufferID{})
	require.False(t, ok)
}

func TestRecorderFromRejectsForeignType(t *testing.T) {
	_, err := RecorderFrom("not a recorder")
	require.Error(t, err)
}
