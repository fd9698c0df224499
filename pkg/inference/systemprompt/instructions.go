package systemprompt

import (
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/go-go-golems/trustagent/pkg/inference/tools"
)

// InstructionData is what an instructions template can refer to.
type InstructionData struct {
	Now          time.Time
	Model        string
	SessionTitle string
	Tools        []tools.ToolDescriptor
}

// RenderInstructions executes the user supplied instructions template, with
// the sprig functions available. An empty template renders to "".
func RenderInstructions(tmpl string, data InstructionData) (string, error) {
	if strings.TrimSpace(tmpl) == "" {
		return "", nil
	}
	t, err := template.New("instructions").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "could not parse instructions template")
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "could not render instructions template")
	}
	return strings.TrimSpace(b.String()), nil
}
