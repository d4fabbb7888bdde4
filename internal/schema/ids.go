package schema

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EnsureIDs gives every experience, education and certification entry an id
// unique within its list. Generated ids derive from the entry content and its
// position so repeated calls on the same document yield the same ids.
func EnsureIDs(r *ParsedResume) {
	if r == nil {
		return
	}
	seen := map[string]bool{}
	for i := range r.Experience {
		e := &r.Experience[i]
		e.ID = uniqueID(seen, e.ID, "exp", i, e.Title, e.Company, e.Duration)
	}
	seen = map[string]bool{}
	for i := range r.Education {
		e := &r.Education[i]
		e.ID = uniqueID(seen, e.ID, "edu", i, e.Degree, e.Institution, e.Duration)
	}
	seen = map[string]bool{}
	for i := range r.Certifications {
		c := &r.Certifications[i]
		c.ID = uniqueID(seen, c.ID, "cert", i, c.Name, c.Issuer, c.Date)
	}
}

func uniqueID(seen map[string]bool, current, kind string, index int, parts ...string) string {
	id := strings.TrimSpace(current)
	if id == "" {
		seed := fmt.Sprintf("%s|%d|%s", kind, index, strings.Join(parts, "|"))
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
	}
	base := id
	for n := 2; seen[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	seen[id] = true
	return id
}
