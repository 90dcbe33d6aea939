package component

// intPtr builds the *int optional schema fields want in test fixtures.
func intPtr(i int) *int {
	return &i
}
