// Package router holds the named route table of the viewer and the guard
// that runs before every navigation.
package router

import (
	"errors"
	"net/url"
	"strings"
)

const (
	RouteHome            = "home"
	RouteConfig          = "config"
	RouteMonitor         = "monitor"
	RouteResult          = "result"
	RouteDemo            = "demo"
	RouteUser            = "user"
	RouteHelp            = "help"
	RouteComponentDetail = "component-detail"
	RouteAnalysis        = "analysis"
	RouteAdmin           = "admin"

	// ProjectQuery is the query parameter carrying the project id.
	ProjectQuery = "projectId"
)

var ErrUnknownRoute = errors.New("router: no route matches")

type Route struct {
	Name string
	Path string
	// Mode is passed to the config view; "demo" shares it with RouteConfig.
	Mode string
}

// Location is a navigation target.
type Location struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params,omitempty"`
	Query  map[string]string `json:"query,omitempty"`
}

var routes = []Route{
	{Name: RouteHome, Path: "/"},
	{Name: RouteConfig, Path: "/config", Mode: "normal"},
	{Name: RouteMonitor, Path: "/monitor"},
	{Name: RouteResult, Path: "/result"},
	{Name: RouteDemo, Path: "/demo", Mode: "demo"},
	{Name: RouteUser, Path: "/user"},
	{Name: RouteHelp, Path: "/help"},
	{Name: RouteComponentDetail, Path: "/component/:id"},
	{Name: RouteAnalysis, Path: "/analysis"},
	{Name: RouteAdmin, Path: "/admin"},
}

// legacy paths kept working after renames
var redirects = map[string]string{
	"/vis": "/config",
}

var (
	publicRoutes  = map[string]bool{RouteUser: true, RouteHome: true, RouteHelp: true}
	projectRoutes = map[string]bool{RouteConfig: true, RouteMonitor: true, RouteResult: true, RouteComponentDetail: true}
)

func Routes() []Route {
	return append([]Route(nil), routes...)
}

func Lookup(name string) (Route, bool) {
	for _, r := range routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// RequiresAuth is true for every route outside the public allow-list.
func RequiresAuth(name string) bool {
	return !publicRoutes[name]
}

// ProjectScoped routes need a projectId query parameter.
func ProjectScoped(name string) bool {
	return projectRoutes[name]
}

// Resolve maps a path such as "/component/pump?projectId=7" to a Location,
// following legacy redirects.
func Resolve(rawPath string) (Location, error) {
	u, err := url.Parse(rawPath)
	if err != nil {
		return Location{}, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if target, ok := redirects[path]; ok {
		path = target
	}

	var query map[string]string
	if values := u.Query(); len(values) > 0 {
		query = make(map[string]string, len(values))
		for k := range values {
			query[k] = values.Get(k)
		}
	}

	for _, r := range routes {
		if params, ok := match(r.Path, path); ok {
			return Location{Name: r.Name, Params: params, Query: query}, nil
		}
	}
	return Location{}, ErrUnknownRoute
}

// Path renders loc back to a URL path with its query.
func Path(loc Location) (string, error) {
	r, ok := Lookup(loc.Name)
	if !ok {
		return "", ErrUnknownRoute
	}
	segs := strings.Split(r.Path, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			segs[i] = url.PathEscape(loc.Params[s[1:]])
		}
	}
	p := strings.Join(segs, "/")
	if len(loc.Query) > 0 {
		q := url.Values{}
		for k, v := range loc.Query {
			q.Set(k, v)
		}
		p += "?" + q.Encode()
	}
	return p, nil
}

func match(pattern, path string) (map[string]string, bool) {
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return nil, false
	}
	var params map[string]string
	for i, p := range ps {
		if strings.HasPrefix(p, ":") {
			v, err := url.PathUnescape(xs[i])
			if err != nil || v == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = v
			continue
		}
		if p != xs[i] {
			return nil, false
		}
	}
	return params, true
}
