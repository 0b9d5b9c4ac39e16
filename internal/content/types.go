// Package content defines the site's content records, their validation rules
// and the bundled defaults shipped with the binary.
package content

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names one of the four editable collections.
type Kind string

const (
	KindServices  Kind = "services"
	KindProjects  Kind = "projects"
	KindTeam      Kind = "team"
	KindTechStack Kind = "techStack"
)

var ErrUnknownKind = errors.New("unknown content kind")

func Kinds() []Kind {
	return []Kind{KindServices, KindProjects, KindTeam, KindTechStack}
}

// ParseKind accepts collection names and the admin tab aliases.
func ParseKind(value string) (Kind, error) {
	switch strings.TrimSpace(value) {
	case "services", "service":
		return KindServices, nil
	case "projects", "project":
		return KindProjects, nil
	case "team", "members":
		return KindTeam, nil
	case "techStack", "techstack", "tech":
		return KindTechStack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
}

// Noun is the singular used in operator-facing messages.
func (k Kind) Noun() string {
	switch k {
	case KindServices:
		return "service"
	case KindProjects:
		return "project"
	case KindTeam:
		return "team member"
	case KindTechStack:
		return "tech category"
	}
	return string(k)
}

// Entity is a stored record of one of the editable kinds.
type Entity interface {
	EntityID() string
	Kind() Kind
	Validate() error
}

// Draft is a create payload. It never carries an id.
type Draft interface {
	Kind() Kind
	Validate() error
}

// Patch carries only the fields an update supplies.
type Patch interface {
	Kind() Kind
	Validate() error
}

type Stat struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

type Service struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	Tagline      string   `json:"tagline" yaml:"tagline"`
	Description  string   `json:"description" yaml:"description"`
	Capabilities TextList `json:"capabilities" yaml:"capabilities"`
	IconName     IconName `json:"iconName" yaml:"iconName"`
}

type ServiceDraft struct {
	Title        string   `json:"title"`
	Tagline      string   `json:"tagline"`
	Description  string   `json:"description"`
	Capabilities TextList `json:"capabilities"`
	IconName     IconName `json:"iconName"`
}

type ServicePatch struct {
	Title        *string   `json:"title,omitempty"`
	Tagline      *string   `json:"tagline,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Capabilities *TextList `json:"capabilities,omitempty"`
	IconName     *IconName `json:"iconName,omitempty"`
}

type Project struct {
	ID           string   `json:"id" yaml:"id"`
	Title        string   `json:"title" yaml:"title"`
	ClientSector string   `json:"clientSector" yaml:"clientSector"`
	Challenge    string   `json:"challenge" yaml:"challenge"`
	Solution     string   `json:"solution" yaml:"solution"`
	Stats        StatList `json:"stats" yaml:"stats"`
}

type ProjectDraft struct {
	Title        string   `json:"title"`
	ClientSector string   `json:"clientSector"`
	Challenge    string   `json:"challenge"`
	Solution     string   `json:"solution"`
	Stats        StatList `json:"stats"`
}

type ProjectPatch struct {
	Title        *string   `json:"title,omitempty"`
	ClientSector *string   `json:"clientSector,omitempty"`
	Challenge    *string   `json:"challenge,omitempty"`
	Solution     *string   `json:"solution,omitempty"`
	Stats        *StatList `json:"stats,omitempty"`
}

type TeamMember struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Role  string   `json:"role" yaml:"role"`
	Bio   string   `json:"bio" yaml:"bio"`
	Image ImageRef `json:"image" yaml:"image"`
}

type TeamMemberDraft struct {
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Bio   string   `json:"bio"`
	Image ImageRef `json:"image"`
}

type TeamMemberPatch struct {
	Name  *string   `json:"name,omitempty"`
	Role  *string   `json:"role,omitempty"`
	Bio   *string   `json:"bio,omitempty"`
	Image *ImageRef `json:"image,omitempty"`
}

type TechCategory struct {
	ID    string   `json:"id" yaml:"id"`
	Title string   `json:"title" yaml:"title"`
	Items TextList `json:"items" yaml:"items"`
}

type TechCategoryDraft struct {
	Title string   `json:"title"`
	Items TextList `json:"items"`
}

type TechCategoryPatch struct {
	Title *string   `json:"title,omitempty"`
	Items *TextList `json:"items,omitempty"`
}

// Static-only collections. They are never edited through the admin panel.

type TrustLogo struct {
	Name     string   `json:"name" yaml:"name"`
	IconName IconName `json:"iconName" yaml:"iconName"`
}

type ApproachItem struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type SolutionPillar struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type AIService struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Outcomes    TextList `json:"outcomes" yaml:"outcomes"`
}

type Course struct {
	ID          string `json:"id" yaml:"id"`
	Badge       string `json:"badge" yaml:"badge"`
	Title       string `json:"title" yaml:"title"`
	Subtitle    string `json:"subtitle" yaml:"subtitle"`
	Description string `json:"description" yaml:"description"`
}

func (Service) Kind() Kind           { return KindServices }
func (ServiceDraft) Kind() Kind      { return KindServices }
func (ServicePatch) Kind() Kind      { return KindServices }
func (Project) Kind() Kind           { return KindProjects }
func (ProjectDraft) Kind() Kind      { return KindProjects }
func (ProjectPatch) Kind() Kind      { return KindProjects }
func (TeamMember) Kind() Kind        { return KindTeam }
func (TeamMemberDraft) Kind() Kind   { return KindTeam }
func (TeamMemberPatch) Kind() Kind   { return KindTeam }
func (TechCategory) Kind() Kind      { return KindTechStack }
func (TechCategoryDraft) Kind() Kind { return KindTechStack }
func (TechCategoryPatch) Kind() Kind { return KindTechStack }

func (s Service) EntityID() string      { return s.ID }
func (p Project) EntityID() string      { return p.ID }
func (m TeamMember) EntityID() string   { return m.ID }
func (c TechCategory) EntityID() string { return c.ID }

// Icon resolves the stored icon name against the registry.
func (s Service) Icon() IconName { return ResolveIcon(string(s.IconName)) }

// Draft copies the editable fields, used to pre-populate an edit form.
func (s Service) Draft() ServiceDraft {
	return ServiceDraft{
		Title:        s.Title,
		Tagline:      s.Tagline,
		Description:  s.Description,
		Capabilities: s.Capabilities.clone(),
		IconName:     s.IconName,
	}
}

func (p Project) Draft() ProjectDraft {
	return ProjectDraft{
		Title:        p.Title,
		ClientSector: p.ClientSector,
		Challenge:    p.Challenge,
		Solution:     p.Solution,
		Stats:        p.Stats.clone(),
	}
}

func (m TeamMember) Draft() TeamMemberDraft {
	return TeamMemberDraft{Name: m.Name, Role: m.Role, Bio: m.Bio, Image: m.Image}
}

func (c TechCategory) Draft() TechCategoryDraft {
	return TechCategoryDraft{Title: c.Title, Items: c.Items.clone()}
}

// Patch returns an update that supplies every field of the draft.
func (d ServiceDraft) Patch() ServicePatch {
	capabilities := d.Capabilities.clone()
	icon := d.IconName
	return ServicePatch{
		Title:        &d.Title,
		Tagline:      &d.Tagline,
		Description:  &d.Description,
		Capabilities: &capabilities,
		IconName:     &icon,
	}
}

func (d ProjectDraft) Patch() ProjectPatch {
	stats := d.Stats.clone()
	return ProjectPatch{
		Title:        &d.Title,
		ClientSector: &d.ClientSector,
		Challenge:    &d.Challenge,
		Solution:     &d.Solution,
		Stats:        &stats,
	}
}

func (d TeamMemberDraft) Patch() TeamMemberPatch {
	image := d.Image
	return TeamMemberPatch{Name: &d.Name, Role: &d.Role, Bio: &d.Bio, Image: &image}
}

func (d TechCategoryDraft) Patch() TechCategoryPatch {
	items := d.Items.clone()
	return TechCategoryPatch{Title: &d.Title, Items: &items}
}

// NewServiceDraft returns the empty create form.
func NewServiceDraft() ServiceDraft {
	return ServiceDraft{Capabilities: TextList{}, IconName: DefaultIcon}
}

func NewProjectDraft() ProjectDraft {
	return ProjectDraft{Stats: StatList{}}
}

func NewTeamMemberDraft() TeamMemberDraft {
	return TeamMemberDraft{}
}

func NewTechCategoryDraft() TechCategoryDraft {
	return TechCategoryDraft{Items: TextList{}}
}
