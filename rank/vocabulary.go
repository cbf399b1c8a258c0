package rank

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/locatehq/locate/snapshot"
)

// Vocabulary implements the product disambiguation rule of spec.md §4.3:
// a closed, data-driven set of product/entity tokens. Any element whose
// own attribute values or text reference a different token from the
// query's token, both drawn from the same vocabulary group, is hard
// down-ranked; attributes of ancestor elements are not consulted.
// This is intentionally data, not code, per the spec's design note.
type Vocabulary struct {
	// Groups maps a group name (e.g. "product") to its member tokens
	// (e.g. "phone", "laptop", "tablet"). Membership in the same group is
	// what makes two tokens "different entities of the same kind".
	Groups map[string][]string `yaml:"groups"`

	tokenToGroup map[string]string
}

// LoadVocabularyFile reads a YAML vocabulary file shaped as:
//
//	groups:
//	  product: [phone, laptop, tablet]
func LoadVocabularyFile(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseVocabulary(data)
}

// ParseVocabulary parses vocabulary YAML from bytes.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	v.index()
	return &v, nil
}

func (v *Vocabulary) index() {
	v.tokenToGroup = make(map[string]string)
	for group, tokens := range v.Groups {
		for _, t := range tokens {
			v.tokenToGroup[strings.ToLower(t)] = group
		}
	}
}

// ConflictsWithQuery reports whether d's attributes reference a
// vocabulary token from the same group as (but different from) a token
// present in query, triggering the -1.0 hard down-rank.
func (v *Vocabulary) ConflictsWithQuery(query string, d snapshot.ElementDescriptor) bool {
	if v == nil || len(v.tokenToGroup) == 0 {
		return false
	}

	queryTokens := tokenSet(query)
	queryEntities := make(map[string]string) // group -> token found in query
	for qt := range queryTokens {
		if group, ok := v.tokenToGroup[qt]; ok {
			queryEntities[group] = qt
		}
	}
	if len(queryEntities) == 0 {
		return false
	}

	haystack := strings.Join(attrValues(d), " ")
	haystackTokens := tokenSet(haystack)

	for ht := range haystackTokens {
		group, ok := v.tokenToGroup[ht]
		if !ok {
			continue
		}
		if queryToken, ok := queryEntities[group]; ok && queryToken != ht {
			return true
		}
	}
	return false
}

func attrValues(d snapshot.ElementDescriptor) []string {
	vals := make([]string, 0, len(d.Attributes)+1)
	for _, v := range d.Attributes {
		vals = append(vals, v)
	}
	vals = append(vals, d.Text)
	return vals
}
