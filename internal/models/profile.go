package models

import (
	"fmt"
	"strings"
)

// Seniority is an ordered career level. The zero value is SeniorityUnknown.
type Seniority int

const (
	SeniorityUnknown Seniority = iota
	SeniorityJunior
	SeniorityMid
	SenioritySenior
	SeniorityLead
	SeniorityPrincipal
)

var seniorityNames = map[Seniority]string{
	SeniorityJunior:    "junior",
	SeniorityMid:       "mid",
	SenioritySenior:    "senior",
	SeniorityLead:      "lead",
	SeniorityPrincipal: "principal",
}

var seniorityAliases = map[string]Seniority{
	"junior":       SeniorityJunior,
	"jr":           SeniorityJunior,
	"entry":        SeniorityJunior,
	"entry-level":  SeniorityJunior,
	"intern":       SeniorityJunior,
	"graduate":     SeniorityJunior,
	"mid":          SeniorityMid,
	"mid-level":    SeniorityMid,
	"middle":       SeniorityMid,
	"intermediate": SeniorityMid,
	"senior":       SenioritySenior,
	"sr":           SenioritySenior,
	"lead":         SeniorityLead,
	"staff":        SeniorityLead,
	"tech lead":    SeniorityLead,
	"principal":    SeniorityPrincipal,
	"architect":    SeniorityPrincipal,
}

// ParseSeniority maps a free-form level to the ordered scale.
func ParseSeniority(s string) (Seniority, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, " level")
	if level, ok := seniorityAliases[key]; ok {
		return level, nil
	}
	return SeniorityUnknown, fmt.Errorf("unknown seniority level %q", s)
}

func (s Seniority) String() string {
	if name, ok := seniorityNames[s]; ok {
		return name
	}
	return "unknown"
}

// Steps returns the absolute distance between two levels on the ordered scale.
// ok is false if either level is unknown.
func (s Seniority) Steps(other Seniority) (steps int, ok bool) {
	if !s.Known() || !other.Known() {
		return 0, false
	}
	if s > other {
		return int(s - other), true
	}
	return int(other - s), true
}

func (s Seniority) Known() bool {
	return s >= SeniorityJunior && s <= SeniorityPrincipal
}

func (s Seniority) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Seniority) UnmarshalText(text []byte) error {
	level, err := ParseSeniority(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}

// SkillSet is an ordered set of skill or tool names. Membership is
// case-insensitive; the first spelling seen is kept.
type SkillSet []string

func NormalizeSkill(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func NewSkillSet(items ...string) SkillSet {
	set := make(SkillSet, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := NormalizeSkill(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, item)
	}
	return set
}

func (s SkillSet) index() map[string]struct{} {
	idx := make(map[string]struct{}, len(s))
	for _, item := range s {
		idx[NormalizeSkill(item)] = struct{}{}
	}
	return idx
}

func (s SkillSet) Contains(item string) bool {
	_, ok := s.index()[NormalizeSkill(item)]
	return ok
}

// Partition splits s into the members present in other and those absent,
// preserving the order of s.
func (s SkillSet) Partition(other SkillSet) (present, absent SkillSet) {
	idx := other.index()
	present = SkillSet{}
	absent = SkillSet{}
	for _, item := range s {
		if _, ok := idx[NormalizeSkill(item)]; ok {
			present = append(present, item)
		} else {
			absent = append(absent, item)
		}
	}
	return present, absent
}

// Profile is the structured shape shared by job descriptions and résumés.
// For a job it holds requirements; for a candidate it holds what the
// résumé shows.
type Profile struct {
	Skills           SkillSet  `json:"skills"`
	Tools            SkillSet  `json:"tools"`
	YearsExperience  float64   `json:"years_experience"`
	Seniority        Seniority `json:"seniority_level"`
	Responsibilities []string  `json:"responsibilities"`
}

// JobProfile is derived once per ranking request from the JD text.
// YearsExperience is the minimum required.
type JobProfile struct {
	Profile
}

// CandidateProfile is extracted once per uploaded résumé.
type CandidateProfile struct {
	Profile
	CandidateName    string `json:"candidate_name"`
	SourceDocumentID string `json:"source_document_id"`
}
