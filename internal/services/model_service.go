package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"docsmith/internal/apperr"
	"docsmith/internal/assets"
	"docsmith/internal/models"
)

type ModelCatalogService interface {
	ListModelGroups() ([]models.LLMModelGroup, error)
	GetModel(modelKey string) (*models.LLMModel, error)
	DefaultForProvider(providerID string) (*models.LLMModel, error)
}

// ProviderAvailability reports whether a provider can be used, usually
// because an API key is configured for it.
type ProviderAvailability func(providerID string) bool

type modelCatalogService struct {
	available ProviderAvailability

	mu            sync.RWMutex
	providerOrder []string
	providerNames map[string]string
	models        map[string]*catalogModel
}

type catalogModel struct {
	Key         string
	ProviderID  string
	Provider    string
	DisplayName string
	APIName     string
	Default     bool
	order       int
}

type rawModelFile struct {
	Providers []rawProvider `json:"providers"`
}

type rawProvider struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	Models      []rawModel `json:"models"`
}

type rawModel struct {
	DisplayName string `json:"displayName"`
	APIName     string `json:"apiName"`
	Default     bool   `json:"default,omitempty"`
}

// NewModelCatalogService parses the embedded catalog. A nil availability
// func marks every model enabled.
func NewModelCatalogService(available ProviderAvailability) (ModelCatalogService, error) {
	return newModelCatalogService(assets.ModelsData, available)
}

func newModelCatalogService(data []byte, available ProviderAvailability) (*modelCatalogService, error) {
	var parsed rawModelFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse models asset: %w", err)
	}

	s := &modelCatalogService{
		available:     available,
		models:        make(map[string]*catalogModel),
		providerNames: make(map[string]string),
	}
	s.providerOrder = make([]string, 0, len(parsed.Providers))
	for _, provider := range parsed.Providers {
		providerID := strings.TrimSpace(provider.ID)
		if providerID == "" {
			continue
		}
		providerName := strings.TrimSpace(provider.DisplayName)
		s.providerNames[providerID] = providerName
		s.providerOrder = append(s.providerOrder, providerID)
		for i, mdl := range provider.Models {
			apiName := strings.TrimSpace(mdl.APIName)
			if apiName == "" {
				continue
			}
			key := computeModelKey(providerID, apiName)
			s.models[key] = &catalogModel{
				Key:         key,
				ProviderID:  providerID,
				Provider:    providerName,
				DisplayName: strings.TrimSpace(mdl.DisplayName),
				APIName:     apiName,
				Default:     mdl.Default,
				order:       i,
			}
		}
	}
	return s, nil
}

func (s *modelCatalogService) ListModelGroups() ([]models.LLMModelGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]models.LLMModelGroup, 0, len(s.providerOrder))
	for _, providerID := range s.providerOrder {
		group := models.LLMModelGroup{
			ProviderID:   providerID,
			ProviderName: s.providerName(providerID),
		}
		modelsForProvider := make([]models.LLMModel, 0)
		for _, mdl := range s.providerModels(providerID) {
			modelsForProvider = append(modelsForProvider, s.toLLMModel(mdl))
		}
		group.Models = modelsForProvider
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *modelCatalogService) GetModel(modelKey string) (*models.LLMModel, error) {
	const op = "models.GetModel"
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return nil, apperr.Validation(op, "model key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	catalog, ok := s.models[modelKey]
	if !ok {
		return nil, apperr.NotFound(op, "model %s not found", modelKey)
	}
	model := s.toLLMModel(catalog)
	return &model, nil
}

// DefaultForProvider returns the model flagged default, else the first
// model listed for the provider.
func (s *modelCatalogService) DefaultForProvider(providerID string) (*models.LLMModel, error) {
	const op = "models.DefaultForProvider"
	providerID = strings.ToLower(strings.TrimSpace(providerID))

	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.providerModels(providerID)
	if len(list) == 0 {
		return nil, apperr.NotFound(op, "no models for provider %s", providerID)
	}
	chosen := list[0]
	for _, mdl := range list {
		if mdl.Default {
			chosen = mdl
			break
		}
	}
	model := s.toLLMModel(chosen)
	return &model, nil
}

// providerModels returns models in catalog order. Caller holds the lock.
func (s *modelCatalogService) providerModels(providerID string) []*catalogModel {
	var out []*catalogModel
	for _, mdl := range s.models {
		if mdl.ProviderID == providerID {
			out = append(out, mdl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func (s *modelCatalogService) providerName(providerID string) string {
	if name, ok := s.providerNames[providerID]; ok && strings.TrimSpace(name) != "" {
		return name
	}
	return providerID
}

func (s *modelCatalogService) toLLMModel(mdl *catalogModel) models.LLMModel {
	enabled := true
	if s.available != nil {
		enabled = s.available(mdl.ProviderID)
	}
	return models.LLMModel{
		Key:          mdl.Key,
		DisplayName:  mdl.DisplayName,
		APIName:      mdl.APIName,
		ProviderID:   mdl.ProviderID,
		ProviderName: mdl.Provider,
		Default:      mdl.Default,
		Enabled:      enabled,
	}
}

func computeModelKey(providerID, apiName string) string {
	return strings.TrimSpace(providerID) + "|" + apiName
}
