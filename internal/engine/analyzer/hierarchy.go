package analyzer

import (
	"strings"

	"stmigrate/internal/shared/util"
)

// Hierarchy is the result of resolving EXTENDS and IMPLEMENTS name
// references against the full project POU set. Resolution is a separate
// pass because single-file parsing only records the names; matching is
// case-insensitive per IEC identifier rules.
type Hierarchy struct {
	// Parents maps a POU ID to the ID of the POU it extends.
	Parents map[string]string `json:"parents"`
	// Interfaces maps a POU ID to the IDs of resolved interface POUs.
	Interfaces map[string][]string `json:"interfaces,omitempty"`
	// Unresolved lists referenced names with no match in the project,
	// sorted and deduplicated. External libraries land here.
	Unresolved []string `json:"unresolved,omitempty"`
}

// ResolveHierarchy links extends/implements references across all files
// of a project result.
func ResolveHierarchy(result ProjectResult) Hierarchy {
	byName := map[string]string{}
	for _, fr := range result.Files {
		for _, pou := range fr.POUs {
			key := strings.ToLower(pou.Name)
			if _, exists := byName[key]; !exists {
				byName[key] = pou.ID
			}
		}
	}

	h := Hierarchy{Parents: map[string]string{}, Interfaces: map[string][]string{}}
	var unresolved []string
	for _, fr := range result.Files {
		for _, pou := range fr.POUs {
			if pou.Extends != "" {
				if id, ok := byName[strings.ToLower(pou.Extends)]; ok {
					h.Parents[pou.ID] = id
				} else {
					unresolved = append(unresolved, pou.Extends)
				}
			}
			for _, iface := range pou.Implements {
				if id, ok := byName[strings.ToLower(iface)]; ok {
					h.Interfaces[pou.ID] = append(h.Interfaces[pou.ID], id)
				} else {
					unresolved = append(unresolved, iface)
				}
			}
		}
	}
	h.Unresolved = util.UniqueSorted(unresolved)
	return h
}
