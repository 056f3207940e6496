package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocRendersBatchRoutes(t *testing.T) {
	var doc struct {
		BasePath    string                                `json:"basePath"`
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc))

	assert.Equal(t, "/api/v1", doc.BasePath)
	for _, method := range []string{"get", "patch", "delete"} {
		assert.Contains(t, doc.Paths["/batches/{jobId}"], method)
	}
	assert.Contains(t, doc.Paths["/batches"], "get")
	assert.Contains(t, doc.Definitions["batch.Batch"].Properties, "isArchived")
	assert.Contains(t, doc.Definitions["handlers.updateBatchRequest"].Properties, "isArchived")
}
