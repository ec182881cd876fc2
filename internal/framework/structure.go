package framework

import (
	"bytes"
	"encoding/json"
	"strings"

	"grc-backoffice/internal/apperr"
	"grc-backoffice/internal/models"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromName picks the document format from a file name or content type.
func FormatFromName(name string) Format {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") || strings.Contains(lower, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

// ParseStructure decodes an import document. Unknown fields are rejected so that a
// misspelled key does not silently drop requirements.
func ParseStructure(data []byte, format Format) (*models.FrameworkStructure, error) {
	var st models.FrameworkStructure

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&st); err != nil {
			return nil, apperr.BadRequest("invalid framework structure: %v", err)
		}
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&st); err != nil {
			return nil, apperr.BadRequest("invalid framework structure: %v", err)
		}
	default:
		return nil, apperr.BadRequest("unsupported structure format %q", format)
	}

	if len(st.Domains) == 0 {
		return nil, apperr.BadRequest("framework structure has no domains")
	}
	return &st, nil
}

// Flatten turns the nested document into requirement rows, numbered in document order.
func Flatten(frameworkID uuid.UUID, st *models.FrameworkStructure) ([]models.FrameworkRequirement, error) {
	var out []models.FrameworkRequirement
	seen := map[string]struct{}{}

	for _, d := range st.Domains {
		for _, c := range d.Categories {
			for _, r := range c.Requirements {
				ident := strings.TrimSpace(r.Identifier)
				if ident == "" {
					return nil, apperr.BadRequest("requirement in %s / %s has no identifier", d.Name, c.Name)
				}
				if _, dup := seen[ident]; dup {
					return nil, apperr.BadRequest("duplicate requirement identifier %s", ident)
				}
				seen[ident] = struct{}{}

				out = append(out, models.FrameworkRequirement{
					FrameworkID:           frameworkID,
					RequirementIdentifier: ident,
					Title:                 r.Title,
					Description:           r.Description,
					Domain:                d.Name,
					Category:              c.Name,
					Subcategory:           c.Subcategory,
					DisplayOrder:          len(out),
				})
			}
		}
	}
	return out, nil
}
