package models

import (
	"fmt"
	"strings"
)

// DocumentType selects the prompt template and the default publish path.
type DocumentType string

const (
	DocReadme       DocumentType = "readme"
	DocAPI          DocumentType = "api"
	DocGuide        DocumentType = "guide"
	DocContributing DocumentType = "contributing"
	DocArchitecture DocumentType = "architecture"
)

// DocumentTypes lists every supported type in presentation order.
var DocumentTypes = []DocumentType{DocReadme, DocAPI, DocGuide, DocContributing, DocArchitecture}

func (d DocumentType) Valid() bool {
	for _, known := range DocumentTypes {
		if d == known {
			return true
		}
	}
	return false
}

// Label is the human readable name used inside prompts.
func (d DocumentType) Label() string {
	switch d {
	case DocReadme:
		return "README"
	case DocAPI:
		return "API reference"
	case DocGuide:
		return "user guide"
	case DocContributing:
		return "contributing guide"
	case DocArchitecture:
		return "architecture overview"
	default:
		return string(d)
	}
}

// DefaultPath is where the document is published when the caller gives no path.
func (d DocumentType) DefaultPath() string {
	switch d {
	case DocReadme:
		return "README.md"
	case DocAPI:
		return "docs/API.md"
	case DocGuide:
		return "docs/GUIDE.md"
	case DocContributing:
		return "CONTRIBUTING.md"
	case DocArchitecture:
		return "docs/ARCHITECTURE.md"
	default:
		return ""
	}
}

// ParseDocumentType trims and lowercases raw before matching.
func ParseDocumentType(raw string) (DocumentType, error) {
	d := DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid document type %q", raw)
	}
	return d, nil
}
