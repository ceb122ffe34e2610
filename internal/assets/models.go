package assets

import _ "embed"

// ModelsData holds the model catalog, grouped by provider.
//
//go:embed models.json
var ModelsData []byte
