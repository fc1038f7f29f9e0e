package configuration

// AccessRule marks a path prefix as protected by the access gate.
// RequireVerified only applies when app.require_verified_email is on.
type AccessRule struct {
	Path            string
	RequireVerified bool
}

var AccessRulePrefixMatchPath = []AccessRule{
	{Path: "/api/v1/activity", RequireVerified: false},
	{Path: "/api/v1/courses", RequireVerified: true},
	{Path: "/api/v1/assignments", RequireVerified: true},
	{Path: "/api/v1/tasks", RequireVerified: true},
	{Path: "/api/v1/study-plans", RequireVerified: true},
	{Path: "/api/v1/notifications", RequireVerified: true},
	{Path: "/api/v1/progress-logs", RequireVerified: true},
	{Path: "/api/v1/stress-indicators", RequireVerified: true},
	{Path: "/api/v1/groups", RequireVerified: true},
	{Path: "/api/v1/dashboard", RequireVerified: true},
}

// MatchAccessRule returns the rule guarding path, if any.
func MatchAccessRule(path string) (AccessRule, bool) {
	for _, rule := range AccessRulePrefixMatchPath {
		if path == rule.Path || len(path) > len(rule.Path) &&
			path[:len(rule.Path)] == rule.Path && path[len(rule.Path)] == '/' {
			return rule, true
		}
	}
	return AccessRule{}, false
}
