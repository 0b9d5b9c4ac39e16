package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cognetex/api/internal/content"
	"cognetex/api/internal/util"
)

// Workbench is the admin panel of one session: an independent form per
// collection.
type Workbench struct {
	Services  *Form[content.Service, content.ServiceDraft]
	Projects  *Form[content.Project, content.ProjectDraft]
	Team      *Form[content.TeamMember, content.TeamMemberDraft]
	TechStack *Form[content.TechCategory, content.TechCategoryDraft]
}

func NewWorkbench(repo Repository) *Workbench {
	return &Workbench{
		Services: newForm(repo, formDef[content.Service, content.ServiceDraft]{
			kind:        content.KindServices,
			invalid:     "Please fill in all service fields correctly.",
			saveFailed:  "Failed to save service.",
			delFailed:   "Failed to delete service.",
			createLabel: "Add Service",
			updateLabel: "Update Service",
			empty:       content.NewServiceDraft,
			fromEntity:  content.Service.Draft,
			patch:       func(d content.ServiceDraft) content.Patch { return d.Patch() },
		}),
		Projects: newForm(repo, formDef[content.Project, content.ProjectDraft]{
			kind:        content.KindProjects,
			invalid:     "Please fill in all project fields correctly.",
			saveFailed:  "Failed to save project.",
			delFailed:   "Failed to delete project.",
			createLabel: "Add Project",
			updateLabel: "Update Project",
			empty:       content.NewProjectDraft,
			fromEntity:  content.Project.Draft,
			patch:       func(d content.ProjectDraft) content.Patch { return d.Patch() },
		}),
		Team: newForm(repo, formDef[content.TeamMember, content.TeamMemberDraft]{
			kind:        content.KindTeam,
			invalid:     "Please fill in all team fields correctly.",
			saveFailed:  "Failed to save team member.",
			delFailed:   "Failed to delete team member.",
			createLabel: "Add Member",
			updateLabel: "Update Member",
			empty:       content.NewTeamMemberDraft,
			fromEntity:  content.TeamMember.Draft,
			patch:       func(d content.TeamMemberDraft) content.Patch { return d.Patch() },
		}),
		TechStack: newForm(repo, formDef[content.TechCategory, content.TechCategoryDraft]{
			kind:        content.KindTechStack,
			invalid:     "Please fill in all tech stack fields correctly.",
			saveFailed:  "Failed to save tech stack category.",
			delFailed:   "Failed to delete tech stack category.",
			createLabel: "Add Category",
			updateLabel: "Update Category",
			empty:       content.NewTechCategoryDraft,
			fromEntity:  content.TechCategory.Draft,
			patch:       func(d content.TechCategoryDraft) content.Patch { return d.Patch() },
		}),
	}
}

// Form returns the controller for kind.
func (w *Workbench) Form(kind content.Kind) (Controller, error) {
	switch kind {
	case content.KindServices:
		return w.Services, nil
	case content.KindProjects:
		return w.Projects, nil
	case content.KindTeam:
		return w.Team, nil
	case content.KindTechStack:
		return w.TechStack, nil
	}
	return nil, fmt.Errorf("%w: %q", content.ErrUnknownKind, kind)
}

// AttachImage fills the team form's image with an uploaded reference. It does
// not submit the form.
func (w *Workbench) AttachImage(ref content.ImageRef) {
	w.Team.update(func(d *content.TeamMemberDraft) {
		d.Image = ref
	})
}

// RefreshAll reloads every list.
func (w *Workbench) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, kind := range content.Kinds() {
		form, _ := w.Form(kind)
		if err := form.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WorkbenchRegistry hands each admin session its own workbench and forgets
// it after ttl without access.
type WorkbenchRegistry struct {
	repo        Repository
	workbenches *util.Registry[*Workbench]
}

func NewWorkbenchRegistry(repo Repository, ttl time.Duration) *WorkbenchRegistry {
	return &WorkbenchRegistry{repo: repo, workbenches: util.NewRegistry[*Workbench](ttl)}
}

func (r *WorkbenchRegistry) For(sessionID string) *Workbench {
	return r.workbenches.GetOrCreate(sessionID, func() *Workbench {
		return NewWorkbench(r.repo)
	})
}

func (r *WorkbenchRegistry) Drop(sessionID string) {
	r.workbenches.Delete(sessionID)
}
