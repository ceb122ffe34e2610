package prompt

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"docsmith/internal/models"
)

//go:embed templates.yaml
var templatesData []byte

type templateSet struct {
	Common    string            `yaml:"common"`
	Documents map[string]string `yaml:"documents"`
	Reviewer  string            `yaml:"reviewer"`
}

var loadTemplates = sync.OnceValues(func() (*templateSet, error) {
	var set templateSet
	if err := yaml.Unmarshal(templatesData, &set); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	for _, dt := range models.DocumentTypes {
		if strings.TrimSpace(set.Documents[string(dt)]) == "" {
			return nil, fmt.Errorf("prompt template for %s is missing", dt)
		}
	}
	if strings.TrimSpace(set.Reviewer) == "" {
		return nil, fmt.Errorf("reviewer prompt template is missing")
	}
	return &set, nil
})

// SystemPrompt returns the static system prompt for docType.
func SystemPrompt(docType models.DocumentType) (string, error) {
	set, err := loadTemplates()
	if err != nil {
		return "", err
	}
	body, ok := set.Documents[string(docType)]
	if !ok {
		return "", fmt.Errorf("no prompt template for document type %q", docType)
	}
	return strings.TrimSpace(body) + "\n\n" + strings.TrimSpace(set.Common), nil
}

// ReviewerPrompt returns the system prompt used for documentation review.
func ReviewerPrompt() (string, error) {
	set, err := loadTemplates()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(set.Reviewer), nil
}
