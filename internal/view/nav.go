package view

import (
	"strings"

	"github.com/erazemk/findit/internal/model"
)

// Link is a navigation bar entry.
type Link struct {
	Path  string
	Label string
}

// Redirect returns where a user with role asking for path must be sent, or
// "" when the path may be served. Admins live on the admin panel; everyone
// else is kept out of it.
func Redirect(role, path string) string {
	admin := path == "/admin" || strings.HasPrefix(path, "/admin/")
	if role == model.RoleAdmin {
		if admin || path == "/logout" || strings.HasPrefix(path, "/static/") {
			return ""
		}
		return "/admin"
	}
	if admin {
		return "/"
	}
	return ""
}

// NavLinks returns the navigation entries for role.
func NavLinks(role string) []Link {
	if role == model.RoleAdmin {
		return []Link{{Path: "/admin", Label: "Users"}}
	}
	links := []Link{
		{Path: "/", Label: "Home"},
		{Path: "/requests", Label: "Requests"},
		{Path: "/reports", Label: "My Reports"},
	}
	if role == model.RoleSecurityGuard {
		links = append(links, Link{Path: "/search", Label: "Search Token"})
	}
	return links
}
