package repository

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// normalizeLimit maps non-positive limits to the default and caps large ones.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
