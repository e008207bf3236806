package etl

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/baratimohammad/2026-DSThesis/internal/model"
)

//go:embed prompts/*.txt
var promptFS embed.FS

const rolesPlaceholder = "{{ROLES}}"

// Prompt is a versioned enrichment prompt template. The version string is
// part of every attempt's identity, so editing a template without bumping
// the version silently re-keys nothing; bump it.
type Prompt struct {
	Version  string
	template string
}

// LoadPrompt reads the template for the given version from path, or from
// the embedded defaults when path is empty.
func LoadPrompt(path, version string) (*Prompt, error) {
	var (
		raw []byte
		err error
	)
	if path != "" {
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: read %s", path)
		}
	} else {
		raw, err = promptFS.ReadFile(fmt.Sprintf("prompts/%s.txt", version))
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: no embedded template for version %s", version)
		}
	}
	tpl := string(raw)
	if !strings.Contains(tpl, rolesPlaceholder) {
		return nil, eris.Errorf("prompt: template %s is missing the %s placeholder", version, rolesPlaceholder)
	}
	return &Prompt{Version: version, template: tpl}, nil
}

// Render substitutes the role table into the template. Rendering is
// deterministic: the same roles in the same order always produce the same
// text, and therefore the same input fingerprint.
func (p *Prompt) Render(roles []model.RoleRecord) string {
	return strings.ReplaceAll(p.template, rolesPlaceholder, RenderRoles(roles))
}

// RenderRoles formats parsed roles one per line for the prompt body.
func RenderRoles(roles []model.RoleRecord) string {
	lines := make([]string, 0, len(roles))
	for _, r := range roles {
		lines = append(lines, fmt.Sprintf("- %s | %s | %s | %s",
			orDash(r.Title), orDash(r.Company), orDash(r.Dates), orDash(r.Location)))
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
