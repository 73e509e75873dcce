package industries

import "strings"

// Slugify derives the URL-safe identifier for an industry name. It is a
// pure function: create and update call it explicitly before the
// uniqueness check.
func Slugify(name string) string {
	accentMap := map[rune]rune{
		'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a',
		'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e',
		'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
		'ó': 'o', 'ò': 'o', 'õ': 'o', 'ô': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
		'ú': 'u', 'ù': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
		'ç': 'c', 'ć': 'c', 'č': 'c',
		'ñ': 'n', 'ń': 'n',
		'ý': 'y', 'ÿ': 'y',
		'ß': 's',
	}

	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		if replacement, exists := accentMap[r]; exists {
			return replacement
		}
		return r
	}, slug)

	slug = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		if r == ' ' {
			return '-'
		}
		return -1
	}, slug)

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return slug
}
