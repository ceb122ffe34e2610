package unit_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsmith/internal/apperr"
	"docsmith/internal/services"
)

func TestModelCatalog_ListModelGroups(t *testing.T) {
	svc, err := services.NewModelCatalogService(nil)
	require.NoError(t, err)

	groups, err := svc.ListModelGroups()
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "openai", groups[0].ProviderID)
	assert.Equal(t, "OpenAI", groups[0].ProviderName)
	assert.Equal(t, "gpt-4o", groups[0].Models[0].APIName)
	for _, g := range groups {
		assert.NotEmpty(t, g.Models)
		for _, m := range g.Models {
			assert.True(t, m.Enabled)
			assert.Equal(t, g.ProviderID+"|"+m.APIName, m.Key)
		}
	}
}

func TestModelCatalog_AvailabilityDrivesEnabled(t *testing.T) {
	svc, err := services.NewModelCatalogService(func(provider string) bool { return provider == "anthropic" })
	require.NoError(t, err)

	m, err := svc.GetModel("anthropic|claude-3-5-haiku-latest")
	require.NoError(t, err)
	assert.True(t, m.Enabled)

	m, err = svc.GetModel("openai|gpt-4o")
	require.NoError(t, err)
	assert.False(t, m.Enabled)
}

func TestModelCatalog_GetModelErrors(t *testing.T) {
	svc, err := services.NewModelCatalogService(nil)
	require.NoError(t, err)

	_, err = svc.GetModel(" ")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = svc.GetModel("openai|gpt-2")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestModelCatalog_DefaultForProvider(t *testing.T) {
	svc, err := services.NewModelCatalogService(nil)
	require.NoError(t, err)

	m, err := svc.DefaultForProvider("Gemini")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", m.APIName)
	assert.True(t, m.Default)

	_, err = svc.DefaultForProvider("mistral")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
