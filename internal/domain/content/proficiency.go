package content

const (
	ProficiencyBeginner     = "beginner"
	ProficiencyIntermediate = "intermediate"
	ProficiencyAdvanced     = "advanced"
)

// TierPrefixes are the proficiency code prefixes the migration recognizes.
var TierPrefixes = []string{"A", "B", "C"}

// Classify maps a proficiency code to its coarse category by first character.
// Only uppercase A, B and C are recognized; any other code is returned unchanged.
func Classify(code string) string {
	if code == "" {
		return ""
	}
	switch code[0] {
	case 'A':
		return ProficiencyBeginner
	case 'B':
		return ProficiencyIntermediate
	case 'C':
		return ProficiencyAdvanced
	default:
		return code
	}
}
