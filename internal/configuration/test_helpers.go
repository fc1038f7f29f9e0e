package configuration

// SetAccessRulesForTesting allows tests to modify AccessRulePrefixMatchPath.
// This function should only be used in test code.
func SetAccessRulesForTesting(rules []AccessRule) {
	AccessRulePrefixMatchPath = rules
}
