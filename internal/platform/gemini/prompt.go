package gemini

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strconv"
	"text/template"

	"github.com/phrazzld/tahfidz-api/internal/analysis"
	"github.com/phrazzld/tahfidz-api/internal/domain"
)

//go:embed prompts/recitation.tmpl
var promptFS embed.FS

const defaultPromptPath = "prompts/recitation.tmpl"

// promptData is the data passed to the prompt template.
type promptData struct {
	FamilyLabel  string
	IsQuran      bool
	Reference    string
	UnitName     string
	Start        int
	End          int
	ExpectedText string
	Transcript   string
	HasAudio     bool
}

// loadTemplate parses the template at path, or the embedded default when
// path is empty.
func loadTemplate(path string) (*template.Template, error) {
	var (
		raw []byte
		err error
	)
	if path == "" {
		raw, err = promptFS.ReadFile(defaultPromptPath)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template: %v", analysis.ErrInvalidConfig, err)
	}

	tmpl, err := template.New("recitation").Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", analysis.ErrInvalidConfig, err)
	}
	return tmpl, nil
}

func newPromptData(req analysis.Request) promptData {
	r := req.Range
	key := r.Key()
	family := key.Family

	reference := r.Collection.Title
	if reference == "" {
		reference = key.CollectionID
	}
	if family == domain.FamilyQuran {
		if _, err := strconv.Atoi(key.CollectionID); err == nil {
			reference = fmt.Sprintf("Surah %s (%s)", reference, key.CollectionID)
		}
	}

	return promptData{
		FamilyLabel:  family.Label(),
		IsQuran:      family == domain.FamilyQuran,
		Reference:    reference,
		UnitName:     family.UnitName(),
		Start:        key.Start,
		End:          key.End,
		ExpectedText: r.Text,
		Transcript:   req.Recitation.Transcript,
		HasAudio:     len(req.Recitation.Audio) > 0,
	}
}

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
