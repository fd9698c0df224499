package systemprompt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

func TestRenderInstructions(t *testing.T) {
	data := InstructionData{
		Now:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Model: "gpt-4-turbo",
		Tools: []tools.ToolDescriptor{
			{BackendName: "fs", ToolName: "read_file"},
			{BackendName: "fs", ToolName: "list_dir"},
		},
	}

	out, err := RenderInstructions(`
Today is {{ .Now.Format "2006-01-02" }}. You run on {{ .Model | upper }}.
{{- if .Tools }} You have {{ len .Tools }} tools.{{ end }}
`, data)
	require.NoError(t, err)
	require.Equal(t, "Today is 2024-03-01. You run on GPT-4-TURBO. You have 2 tools.", out)

	out, err = RenderInstructions("  \n", data)
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = RenderInstructions("{{ .Nope", data)
	require.Error(t, err)

	_, err = RenderInstructions("{{ .Missing }}", data)
	require.Error(t, err)
}
