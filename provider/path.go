package provider

// normalizeForEnumerate rewrites "." to the empty string, but only for the
// enumerate-directory callback; every other callback receives the raw
// relative path unchanged (spec.md §4.4.1).
func normalizeForEnumerate(path string) string {
	if path == "." {
		return ""
	}
	return path
}
