package content

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Minimum lengths enforced on admin input. Stored records only need
// non-empty values.
const (
	minShortText = 2
	minLongText  = 10
	minListItem  = 1
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed. A record with any field
// error is rejected as a whole.
type ValidationError struct {
	Kind   Kind         `json:"kind"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "invalid content"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+" "+field.Message)
	}
	subject := "content"
	if e.Kind != "" {
		subject = e.Kind.Noun()
	}
	return fmt.Sprintf("invalid %s: %s", subject, strings.Join(parts, "; "))
}

// Has reports whether field failed validation.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type checker struct {
	kind   Kind
	fields []FieldError
}

func newChecker(kind Kind) *checker {
	return &checker{kind: kind}
}

func (c *checker) fail(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

func (c *checker) text(field, value string, min int) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		c.fail(field, "is required")
		return
	}
	if utf8.RuneCountInString(trimmed) < min {
		c.fail(field, fmt.Sprintf("must be at least %d characters", min))
	}
}

func (c *checker) optionalText(field string, value *string, min int) {
	if value != nil {
		c.text(field, *value, min)
	}
}

func (c *checker) list(field string, items []string, min int) {
	for i, item := range items {
		c.text(fmt.Sprintf("%s[%d]", field, i), item, min)
	}
}

func (c *checker) stats(field string, stats []Stat, min int) {
	for i, stat := range stats {
		c.text(fmt.Sprintf("%s[%d].label", field, i), stat.Label, min)
		c.text(fmt.Sprintf("%s[%d].value", field, i), stat.Value, min)
	}
}

func (c *checker) icon(field string, name IconName) {
	if strings.TrimSpace(string(name)) == "" {
		c.fail(field, "is required")
		return
	}
	if !name.Known() {
		c.fail(field, fmt.Sprintf("must be one of %v", iconRegistry))
	}
}

func (c *checker) image(field string, ref ImageRef) {
	if message := ref.validate(); message != "" {
		c.fail(field, message)
	}
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Kind: c.kind, Fields: c.fields}
}

// Validate checks a stored record. Unknown icon names are accepted here and
// resolved to the fallback icon when rendered.
func (s Service) Validate() error {
	c := newChecker(KindServices)
	c.text("id", s.ID, 1)
	c.text("title", s.Title, 1)
	c.text("tagline", s.Tagline, 1)
	c.text("description", s.Description, 1)
	c.list("capabilities", s.Capabilities, 1)
	c.text("iconName", string(s.IconName), 1)
	return c.err()
}

func (d ServiceDraft) Validate() error {
	c := newChecker(KindServices)
	c.text("title", d.Title, minShortText)
	c.text("tagline", d.Tagline, minShortText)
	c.text("description", d.Description, minLongText)
	c.list("capabilities", d.Capabilities, minShortText)
	c.icon("iconName", d.IconName)
	return c.err()
}

func (p ServicePatch) Validate() error {
	c := newChecker(KindServices)
	c.optionalText("title", p.Title, minShortText)
	c.optionalText("tagline", p.Tagline, minShortText)
	c.optionalText("description", p.Description, minLongText)
	if p.Capabilities != nil {
		c.list("capabilities", *p.Capabilities, minShortText)
	}
	if p.IconName != nil {
		c.icon("iconName", *p.IconName)
	}
	return c.err()
}

func (p Project) Validate() error {
	c := newChecker(KindProjects)
	c.text("id", p.ID, 1)
	c.text("title", p.Title, 1)
	c.text("clientSector", p.ClientSector, 1)
	c.text("challenge", p.Challenge, 1)
	c.text("solution", p.Solution, 1)
	c.stats("stats", p.Stats, 1)
	return c.err()
}

func (d ProjectDraft) Validate() error {
	c := newChecker(KindProjects)
	c.text("title", d.Title, minShortText)
	c.text("clientSector", d.ClientSector, minShortText)
	c.text("challenge", d.Challenge, minLongText)
	c.text("solution", d.Solution, minLongText)
	c.stats("stats", d.Stats, minListItem)
	return c.err()
}

func (p ProjectPatch) Validate() error {
	c := newChecker(KindProjects)
	c.optionalText("title", p.Title, minShortText)
	c.optionalText("clientSector", p.ClientSector, minShortText)
	c.optionalText("challenge", p.Challenge, minLongText)
	c.optionalText("solution", p.Solution, minLongText)
	if p.Stats != nil {
		c.stats("stats", *p.Stats, minListItem)
	}
	return c.err()
}

func (m TeamMember) Validate() error {
	c := newChecker(KindTeam)
	c.text("id", m.ID, 1)
	c.text("name", m.Name, 1)
	c.text("role", m.Role, 1)
	c.text("bio", m.Bio, 1)
	c.image("image", m.Image)
	return c.err()
}

func (d TeamMemberDraft) Validate() error {
	c := newChecker(KindTeam)
	c.text("name", d.Name, minShortText)
	c.text("role", d.Role, minShortText)
	c.text("bio", d.Bio, minLongText)
	c.image("image", d.Image)
	return c.err()
}

func (p TeamMemberPatch) Validate() error {
	c := newChecker(KindTeam)
	c.optionalText("name", p.Name, minShortText)
	c.optionalText("role", p.Role, minShortText)
	c.optionalText("bio", p.Bio, minLongText)
	if p.Image != nil {
		c.image("image", *p.Image)
	}
	return c.err()
}

func (t TechCategory) Validate() error {
	c := newChecker(KindTechStack)
	c.text("id", t.ID, 1)
	c.text("title", t.Title, 1)
	c.list("items", t.Items, 1)
	return c.err()
}

func (d TechCategoryDraft) Validate() error {
	c := newChecker(KindTechStack)
	c.text("title", d.Title, minShortText)
	c.list("items", d.Items, minListItem)
	return c.err()
}

func (p TechCategoryPatch) Validate() error {
	c := newChecker(KindTechStack)
	c.optionalText("title", p.Title, minShortText)
	if p.Items != nil {
		c.list("items", *p.Items, minListItem)
	}
	return c.err()
}

// ValidateList checks a whole collection. Field names carry the record index.
func ValidateList[E Entity](kind Kind, records []E) error {
	c := newChecker(kind)
	for i, record := range records {
		err := record.Validate()
		if err == nil {
			continue
		}
		verr, ok := err.(*ValidationError)
		if !ok {
			c.fail(fmt.Sprintf("[%d]", i), err.Error())
			continue
		}
		for _, field := range verr.Fields {
			c.fail(fmt.Sprintf("[%d].%s", i, field.Field), field.Message)
		}
	}
	return c.err()
}

// ValidateBundle checks the four editable collections of a bundle.
func ValidateBundle(b Bundle) error {
	var fields []FieldError
	collect := func(kind Kind, err error) {
		if verr, ok := err.(*ValidationError); ok {
			for _, field := range verr.Fields {
				fields = append(fields, FieldError{Field: string(kind) + field.Field, Message: field.Message})
			}
		}
	}
	collect(KindServices, ValidateList(KindServices, b.Services))
	collect(KindProjects, ValidateList(KindProjects, b.Projects))
	collect(KindTeam, ValidateList(KindTeam, b.Team))
	collect(KindTechStack, ValidateList(KindTechStack, b.TechStack))
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
