package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
	RouteAnonymousOnly
)

type GateRule struct {
	Prefix string
	Class  RouteClass
}

// RouteGate classifies inbound paths and redirects before any handler
// runs. It checks cookie presence only, never the database or the token
// signature, so it stays cheap on every request. Deeper validation
// happens inside handlers via the session verifier.
type RouteGate struct {
	rules     []GateRule
	loginPath string
	homePath  string
}

func NewRouteGate(rules []GateRule) *RouteGate {
	return &RouteGate{
		rules:     rules,
		loginPath: "/login",
		homePath:  "/",
	}
}

func (g *RouteGate) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		class := g.classify(path)
		hasSession := hasSessionCookies(c)

		switch {
		case class == RouteProtected && !hasSession:
			return c.Redirect(http.StatusFound, g.loginPath+"?redirect="+url.QueryEscape(path))
		case class == RouteAnonymousOnly && hasSession:
			return c.Redirect(http.StatusFound, g.homePath)
		default:
			return next(c)
		}
	}
}

// classify picks the longest matching prefix rule; unmatched paths are
// public.
func (g *RouteGate) classify(path string) RouteClass {
	class := RoutePublic
	longest := -1
	for _, rule := range g.rules {
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		if len(rule.Prefix) > longest {
			longest = len(rule.Prefix)
			class = rule.Class
		}
	}
	return class
}

func matchesPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

func hasSessionCookies(c echo.Context) bool {
	token, err := c.Cookie(SessionCookieName)
	if err != nil || token.Value == "" {
		return false
	}
	email, err := c.Cookie(EmailCookieName)
	if err != nil || email.Value == "" {
		return false
	}
	return true
}
