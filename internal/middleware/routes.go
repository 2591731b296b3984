package middleware

import (
	"path"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Access is the authentication level of a route. The zero value is
// Protected.
type Access int

const (
	Protected Access = iota
	Public
	Admin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Admin:
		return "admin"
	default:
		return "protected"
	}
}

// RouteTable maps "METHOD /route/:template" to an access level. Routes
// missing from the table are Protected.
type RouteTable struct {
	mu     sync.RWMutex
	routes map[string]Access
}

func NewRouteTable() *RouteTable {
	return &RouteTable{routes: map[string]Access{}}
}

func (t *RouteTable) Set(method, path string, access Access) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[routeKey(method, path)] = access
}

func (t *RouteTable) Lookup(method, path string) Access {
	if path == "" {
		return Protected
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.routes[routeKey(method, path)]
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// Router registers gin routes and records their access level in a
// RouteTable. A group's level applies to its routes unless a route passes
// its own.
type Router struct {
	group  *gin.RouterGroup
	table  *RouteTable
	access Access
}

// NewRouter wraps the engine's root group. Its default level is Protected.
func NewRouter(group *gin.RouterGroup, table *RouteTable) *Router {
	return &Router{group: group, table: table, access: Protected}
}

// Group creates a sub-router. Without an explicit level it inherits the
// parent's.
func (r *Router) Group(path string, access ...Access) *Router {
	level := r.access
	if len(access) > 0 {
		level = access[0]
	}
	return &Router{group: r.group.Group(path), table: r.table, access: level}
}

// Use adds middleware to the routes registered on r afterwards.
func (r *Router) Use(middleware ...gin.HandlerFunc) {
	r.group.Use(middleware...)
}

func (r *Router) Handle(method, path string, handler gin.HandlerFunc, access ...Access) {
	level := r.access
	if len(access) > 0 {
		level = access[0]
	}
	r.group.Handle(method, path, handler)
	r.table.Set(method, joinPaths(r.group.BasePath(), path), level)
}

func (r *Router) GET(path string, handler gin.HandlerFunc, access ...Access) {
	r.Handle("GET", path, handler, access...)
}

func (r *Router) POST(path string, handler gin.HandlerFunc, access ...Access) {
	r.Handle("POST", path, handler, access...)
}

func (r *Router) PUT(path string, handler gin.HandlerFunc, access ...Access) {
	r.Handle("PUT", path, handler, access...)
}

func (r *Router) PATCH(path string, handler gin.HandlerFunc, access ...Access) {
	r.Handle("PATCH", path, handler, access...)
}

func (r *Router) DELETE(path string, handler gin.HandlerFunc, access ...Access) {
	r.Handle("DELETE", path, handler, access...)
}

// joinPaths mirrors how gin builds a route's full path.
func joinPaths(base, relative string) string {
	if relative == "" {
		return base
	}
	joined := path.Join(base, relative)
	if strings.HasSuffix(relative, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return joined
}
