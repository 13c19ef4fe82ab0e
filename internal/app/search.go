package app

import (
	"fmt"
	"strings"

	"bytehub/internal/domain"
	"bytehub/internal/store"
)

const defaultSearchLimit = 20

// SearchResults groups hub and user matches for a query.
type SearchResults struct {
	Hubs  []domain.Hub  `json:"hubs"`
	Users []domain.User `json:"users"`
}

// Search runs a substring match over public hubs and user profiles. Each
// result list is capped at limit.
func (a *App) Search(q, searchType string, limit int) (SearchResults, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return SearchResults{}, fmt.Errorf("%w: q is required", ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	searchType = strings.TrimSpace(strings.ToLower(searchType))
	if searchType == "" {
		searchType = "all"
	}
	if searchType != "all" && searchType != "hubs" && searchType != "users" {
		return SearchResults{}, fmt.Errorf("%w: type must be all, hubs or users", ErrInvalidArgument)
	}
	results := SearchResults{Hubs: []domain.Hub{}, Users: []domain.User{}}

	if searchType == "all" || searchType == "hubs" {
		hubs, err := a.store.ListHubs(store.HubFilter{
			Visibility: domain.VisibilityPublic,
			Limit:      limit * 5,
		})
		if err != nil {
			return SearchResults{}, fmt.Errorf("list hubs: %w", err)
		}
		for _, h := range hubs {
			if len(results.Hubs) >= limit {
				break
			}
			if hubMatches(h, q) {
				results.Hubs = append(results.Hubs, h)
			}
		}
	}

	if searchType == "all" || searchType == "users" {
		users, err := a.store.ListUsers()
		if err != nil {
			return SearchResults{}, fmt.Errorf("list users: %w", err)
		}
		for _, u := range users {
			if len(results.Users) >= limit {
				break
			}
			if u.Settings.ProfileVisibility == domain.VisibilityPrivate {
				continue
			}
			if userMatches(u, q) {
				results.Users = append(results.Users, publicProfile(u))
			}
		}
	}

	return results, nil
}

func hubMatches(h domain.Hub, q string) bool {
	if strings.Contains(strings.ToLower(h.Title), q) ||
		strings.Contains(strings.ToLower(h.Description), q) {
		return true
	}
	for _, tag := range h.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func userMatches(u domain.User, q string) bool {
	return strings.Contains(strings.ToLower(u.Name), q) ||
		strings.Contains(strings.ToLower(u.Institution), q) ||
		strings.Contains(strings.ToLower(u.Bio), q)
}
