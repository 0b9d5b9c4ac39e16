package content

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Bundle is everything the public pages render.
type Bundle struct {
	Services          []Service        `json:"services" yaml:"services"`
	Projects          []Project        `json:"projects" yaml:"projects"`
	Team              []TeamMember     `json:"team" yaml:"team"`
	TechStack         []TechCategory   `json:"techStack" yaml:"techStack"`
	TrustLogos        []TrustLogo      `json:"trustLogos" yaml:"trustLogos"`
	UniqueApproach    []ApproachItem   `json:"uniqueApproach" yaml:"uniqueApproach"`
	AISolutionPillars []SolutionPillar `json:"aiSolutionPillars" yaml:"aiSolutionPillars"`
	AIServices        []AIService      `json:"aiServices" yaml:"aiServices"`
	Courses           []Course         `json:"courses" yaml:"courses"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

var loadDefaults = sync.OnceValues(func() (Bundle, error) {
	return ParseBundle(defaultsYAML)
})

// ParseBundle decodes and validates a YAML content bundle.
func ParseBundle(raw []byte) (Bundle, error) {
	var bundle Bundle
	if err := yaml.Unmarshal(raw, &bundle); err != nil {
		return Bundle{}, fmt.Errorf("parse content bundle: %w", err)
	}
	if err := ValidateBundle(bundle); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

// Defaults returns a private copy of the bundled content.
func Defaults() Bundle {
	bundle, err := loadDefaults()
	if err != nil {
		panic(fmt.Sprintf("bundled content is invalid: %v", err))
	}
	return bundle.Clone()
}

// Clone deep copies every collection.
func (b Bundle) Clone() Bundle {
	return Bundle{
		Services:          cloneEach(b.Services, Service.clone),
		Projects:          cloneEach(b.Projects, Project.clone),
		Team:              slices.Clone(b.Team),
		TechStack:         cloneEach(b.TechStack, TechCategory.clone),
		TrustLogos:        slices.Clone(b.TrustLogos),
		UniqueApproach:    slices.Clone(b.UniqueApproach),
		AISolutionPillars: slices.Clone(b.AISolutionPillars),
		AIServices:        cloneEach(b.AIServices, AIService.clone),
		Courses:           slices.Clone(b.Courses),
	}
}

// Count returns the number of records in an editable collection.
func (b Bundle) Count(kind Kind) int {
	switch kind {
	case KindServices:
		return len(b.Services)
	case KindProjects:
		return len(b.Projects)
	case KindTeam:
		return len(b.Team)
	case KindTechStack:
		return len(b.TechStack)
	}
	return 0
}

func (s Service) clone() Service {
	s.Capabilities = slices.Clone(s.Capabilities)
	return s
}

func (p Project) clone() Project {
	p.Stats = slices.Clone(p.Stats)
	return p
}

func (t TechCategory) clone() TechCategory {
	t.Items = slices.Clone(t.Items)
	return t
}

func (a AIService) clone() AIService {
	a.Outcomes = slices.Clone(a.Outcomes)
	return a
}

func cloneEach[T any](items []T, fn func(T) T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}
