package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"session_id", "location", "query"},
		Widths:  []float64{1, 1, 3},
		Rows: []map[string]string{
			{"session_id": "abc123", "location": "Zurich", "query": "NDVI in Zurich 2020-2024"},
			{"session_id": "def456", "location": "Bern, CH", "query": "NDVI around Bern"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.Equal(t, "session_id,location,query\nabc123,Zurich,NDVI in Zurich 2020-2024\ndef456,\"Bern, CH\",NDVI around Bern\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "NDVI gallery")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
}
