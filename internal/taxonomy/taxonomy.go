package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bazokhan/arabic-itsm-dataset/pkg/util"
)

// Node groups one L1/L2 pair with its allowed L3 leaves and optional
// per-node metadata such as a default tag pool.
type Node struct {
	L1       string   `json:"l1"`
	L2       string   `json:"l2"`
	L3       []string `json:"l3"`
	TagsPool []string `json:"tags_pool,omitempty"`
}

// Triple is one fully qualified category assignment.
type Triple struct {
	L1 string
	L2 string
	L3 string
}

// document is the on-disk taxonomy shape.
type document struct {
	Taxonomy []Node `json:"taxonomy"`
}

// Index answers membership queries over the closed category vocabulary.
// Immutable after Load; matching is exact, no normalization.
type Index struct {
	allowed map[string]struct{}
	meta    map[Triple]*Node
	paths   []string
}

// PathOf renders the canonical "L1 > L2 > L3" form of a triple.
func PathOf(l1, l2, l3 string) string {
	return l1 + " > " + l2 + " > " + l3
}

// Load reads and indexes a taxonomy definition file.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, util.NewTaxonomyLoadError(path, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, util.NewTaxonomyLoadError(path, err)
	}
	if doc.Taxonomy == nil {
		return nil, util.NewTaxonomyLoadError(path, fmt.Errorf("missing top-level taxonomy key"))
	}

	idx := &Index{
		allowed: map[string]struct{}{},
		meta:    map[Triple]*Node{},
	}

	for i := range doc.Taxonomy {
		node := &doc.Taxonomy[i]
		if node.L1 == "" || node.L2 == "" || len(node.L3) == 0 {
			return nil, util.NewTaxonomyLoadError(path, fmt.Errorf("node %d lacks l1/l2/l3", i))
		}
		for _, l3 := range node.L3 {
			p := PathOf(node.L1, node.L2, l3)
			if _, seen := idx.allowed[p]; !seen {
				idx.allowed[p] = struct{}{}
				idx.paths = append(idx.paths, p)
			}
			idx.meta[Triple{node.L1, node.L2, l3}] = node
		}
	}

	sort.Strings(idx.paths)
	return idx, nil
}

// Allows reports whether a canonical category path is in the taxonomy.
func (idx *Index) Allows(path string) bool {
	_, ok := idx.allowed[path]
	return ok
}

// NodeFor returns the node owning a triple, for collaborators that need
// per-node metadata. The validator only uses Allows.
func (idx *Index) NodeFor(l1, l2, l3 string) (*Node, bool) {
	node, ok := idx.meta[Triple{l1, l2, l3}]
	return node, ok
}

// AllowedPaths returns all canonical paths in sorted order.
func (idx *Index) AllowedPaths() []string {
	out := make([]string, len(idx.paths))
	copy(out, idx.paths)
	return out
}

// Len reports the number of allowed paths.
func (idx *Index) Len() int {
	return len(idx.paths)
}
