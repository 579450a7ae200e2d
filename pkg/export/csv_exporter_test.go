package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	data := Dataset{
		Headers: []string{"ID", "Status"},
		Rows: []map[string]string{
			{"ID": "enr-1", "Status": "APPROVED"},
			{"ID": "enr-2", "Status": "PENDING"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "ID,Status\nenr-1,APPROVED\nenr-2,PENDING\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
