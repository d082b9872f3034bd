package extract

import (
	"strings"

	"stmigrate/internal/engine/stparse"
)

// ExtractVariables flattens the declared variables of the given POUs and
// derives the safety-critical flag: a variable is safety-critical when its
// name matches an interlock or bypass naming pattern, or when its I/O
// address sits on a configured safety channel. Input POUs are not mutated.
func ExtractVariables(pous []stparse.POU, opts SafetyOptions) []stparse.Variable {
	out := []stparse.Variable{}
	for _, pou := range pous {
		for _, v := range pou.Variables {
			v.IsSafetyCritical = isSafetyCritical(v, opts)
			out = append(out, v)
		}
	}
	return out
}

// AnnotateSafetyCritical returns copies of the POUs with the derived
// safety flag set on their variables, for attachment into the pass result.
func AnnotateSafetyCritical(pous []stparse.POU, opts SafetyOptions) []stparse.POU {
	out := make([]stparse.POU, len(pous))
	for i, pou := range pous {
		vars := make([]stparse.Variable, len(pou.Variables))
		for j, v := range pou.Variables {
			v.IsSafetyCritical = isSafetyCritical(v, opts)
			vars[j] = v
		}
		pou.Variables = vars
		out[i] = pou
	}
	return out
}

func isSafetyCritical(v stparse.Variable, opts SafetyOptions) bool {
	for _, pattern := range opts.interlockTable() {
		if pattern.re.MatchString(v.Name) {
			return true
		}
	}
	for _, pattern := range opts.bypassTable() {
		if pattern.re.MatchString(v.Name) {
			return true
		}
	}
	if v.IOAddress != "" {
		for _, prefix := range opts.IOChannelPrefixes {
			if prefix != "" && strings.HasPrefix(strings.ToUpper(v.IOAddress), strings.ToUpper(prefix)) {
				return true
			}
		}
	}
	return false
}
