package service

import (
	"context"

	"github.com/northstarhq/northstar/internal/conversation/classifier"
	domainservice "github.com/northstarhq/northstar/internal/domain/service"
)

// maxContextItems bounds how much recent activity the classifier prompt sees.
const maxContextItems = 5

// DomainHydrator builds classifier context snapshots from the goal-management
// service.
type DomainHydrator struct {
	domain *domainservice.Service
}

// NewDomainHydrator creates a hydrator over the goal-management service.
func NewDomainHydrator(domain *domainservice.Service) *DomainHydrator {
	return &DomainHydrator{domain: domain}
}

// Hydrate loads the user's recent goals, tasks, life areas and language.
// Partial failures degrade to a thinner snapshot rather than erroring the
// turn.
func (h *DomainHydrator) Hydrate(ctx context.Context, userID string) (classifier.Context, error) {
	var snapshot classifier.Context
	areas := map[string]bool{}

	if goals, err := h.domain.ListGoals(ctx, userID); err == nil {
		for _, g := range goals {
			if len(snapshot.RecentGoals) < maxContextItems {
				snapshot.RecentGoals = append(snapshot.RecentGoals, g.Title)
			}
			if g.LifeArea != "" {
				areas[g.LifeArea] = true
			}
		}
	}
	if tasks, err := h.domain.ListTasks(ctx, userID); err == nil {
		for _, t := range tasks {
			if len(snapshot.RecentTasks) >= maxContextItems {
				break
			}
			snapshot.RecentTasks = append(snapshot.RecentTasks, t.Title)
		}
	}
	if ratings, err := h.domain.ListLifeRatings(ctx, userID, ""); err == nil {
		for _, r := range ratings {
			areas[r.LifeArea] = true
		}
	}
	for area := range areas {
		snapshot.LifeAreas = append(snapshot.LifeAreas, area)
	}
	if prefs, err := h.domain.GetPreferences(ctx, userID); err == nil {
		snapshot.Language = prefs.Language
	}
	return snapshot, nil
}
