// Package schema scores CSV headers against a fixed set of semantic roles
// and produces a best-effort header-to-role mapping. The engine is pure:
// given identical headers and sample rows it always produces the identical
// mapping and confidence.
package schema

const (
	// nameWeight/valueWeight combine name similarity with observed value
	// plausibility. Values outweigh names: exporters rename columns freely
	// but the data itself rarely lies.
	nameWeight  = 0.4
	valueWeight = 0.6

	// minAssignScore is the floor below which a role stays unmapped.
	minAssignScore = 0.15

	// maxValueSample bounds how many sampled values feed each validator.
	maxValueSample = 20
)

// Row is one decoded tabular record keyed by header name.
type Row map[string]string

// Mapping is the inference result: the chosen header per role (roles with no
// qualifying header are absent), the full per-header/per-role score matrix,
// and an overall confidence.
type Mapping struct {
	Roles      map[Role]string
	Scores     map[string]map[Role]float64
	Confidence float64
}

// Header returns the header mapped to role, or "" when the role is unmapped.
func (m *Mapping) Header(role Role) string {
	return m.Roles[role]
}

// Infer scores every (header, role) pair on the sample and greedily assigns
// the best unconsumed header to each role in AllRoles order. Ties resolve by
// header order; stability of both orders keeps results reproducible.
// candidates restricts the roles considered (nil means all).
func Infer(headers []string, sample []Row, candidates []Role) Mapping {
	roles := candidates
	if roles == nil {
		roles = AllRoles
	}

	// Column values, capped per header.
	colValues := make(map[string][]string, len(headers))
	for _, r := range sample {
		for _, h := range headers {
			if len(colValues[h]) >= maxValueSample {
				continue
			}
			if v, ok := r[h]; ok {
				colValues[h] = append(colValues[h], v)
			}
		}
	}

	scores := make(map[string]map[Role]float64, len(headers))
	for _, h := range headers {
		scores[h] = make(map[Role]float64, len(roles))
		for _, role := range roles {
			s := nameScore(h, role) * nameWeight
			if vals := colValues[h]; len(vals) > 0 {
				if check := validators[role]; check != nil {
					acc := 0.0
					for _, v := range vals {
						acc += check(v)
					}
					s += (acc / float64(len(vals))) * valueWeight
				}
			}
			if s > 1 {
				s = 1
			}
			scores[h][role] = s
		}
	}

	mapping := Mapping{
		Roles:  make(map[Role]string),
		Scores: scores,
	}
	consumed := make(map[string]bool, len(headers))

	var sum float64
	var assigned int
	for _, role := range roles {
		bestHeader := ""
		bestScore := 0.0
		for _, h := range headers {
			if consumed[h] {
				continue
			}
			if sc := scores[h][role]; sc > bestScore {
				bestScore, bestHeader = sc, h
			}
		}
		if bestHeader == "" || bestScore <= minAssignScore {
			continue
		}
		mapping.Roles[role] = bestHeader
		consumed[bestHeader] = true
		sum += bestScore
		assigned++
	}

	if assigned > 0 {
		mapping.Confidence = sum / float64(assigned)
	}
	return mapping
}
