package specialist

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies one of the fixed specialist roles.
type Kind string

const (
	Sentiment   Kind = "sentiment"
	Technical   Kind = "technical"
	Fundamental Kind = "fundamental"
	Regulatory  Kind = "regulatory"
	Innovation  Kind = "innovation"
	Risk        Kind = "risk"
	Opportunity Kind = "opportunity"
)

// Kinds lists every known kind in default registry order.
var Kinds = []Kind{Sentiment, Technical, Fundamental, Regulatory, Innovation, Risk, Opportunity}

var ErrUnknownKind = errors.New("specialist: unknown kind")

// ParseKind validates s against the known kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Profile is the static description of one specialist.
type Profile struct {
	Kind        Kind   `yaml:"kind"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

var defaultProfiles = map[Kind]Profile{
	Sentiment:   {Kind: Sentiment, Name: "Sentiment Analyst", Description: "Analyzes market sentiment, social media trends, and fear/greed indices."},
	Technical:   {Kind: Technical, Name: "Technical Analyst", Description: "Analyzes price action, chart patterns, support/resistance levels, and volume."},
	Fundamental: {Kind: Fundamental, Name: "Fundamental Analyst", Description: "Analyzes on-chain metrics, network activity, TVL, and staking data."},
	Regulatory:  {Kind: Regulatory, Name: "Regulatory Analyst", Description: "Tracks regulatory news, institutional adoption, and ETF flows."},
	Innovation:  {Kind: Innovation, Name: "Innovation Analyst", Description: "Covers DeFi trends, L2 adoption, and emerging protocols."},
	Risk:        {Kind: Risk, Name: "Risk Analyst", Description: "Identifies market vulnerabilities, technical risks, and regulatory threats."},
	Opportunity: {Kind: Opportunity, Name: "Investment Strategist", Description: "Synthesizes all data to find actionable investment opportunities."},
}

// Registry is the ordered set of specialists taking part in a run.
type Registry struct {
	profiles []Profile
}

// DefaultRegistry returns all seven specialists in canonical order.
func DefaultRegistry() *Registry {
	out := make([]Profile, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, defaultProfiles[k])
	}
	return &Registry{profiles: out}
}

// NewRegistry builds a registry from explicit profiles. Display names default
// to the built-in ones; kinds and names must be unique.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, errors.New("specialist: registry is empty")
	}
	seenKind := map[Kind]bool{}
	seenName := map[string]bool{}
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		k, err := ParseKind(string(p.Kind))
		if err != nil {
			return nil, err
		}
		def := defaultProfiles[k]
		p.Kind = k
		if strings.TrimSpace(p.Name) == "" {
			p.Name = def.Name
		}
		if strings.TrimSpace(p.Description) == "" {
			p.Description = def.Description
		}
		p.Name = strings.TrimSpace(p.Name)
		if seenKind[k] {
			return nil, fmt.Errorf("specialist: duplicate kind %q", k)
		}
		if seenName[p.Name] {
			return nil, fmt.Errorf("specialist: duplicate name %q", p.Name)
		}
		seenKind[k] = true
		seenName[p.Name] = true
		out = append(out, p)
	}
	return &Registry{profiles: out}, nil
}

type registryFile struct {
	Specialists []Profile `yaml:"specialists"`
}

// LoadRegistry reads a YAML registry file:
//
//	specialists:
//	  - kind: technical
//	  - kind: risk
//	    name: Risk Desk
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return NewRegistry(f.Specialists...)
}

// Profiles returns the registry entries in order.
func (r *Registry) Profiles() []Profile {
	return append([]Profile(nil), r.profiles...)
}

// Len returns the number of specialists.
func (r *Registry) Len() int { return len(r.profiles) }

// ByKind looks up a profile by kind.
func (r *Registry) ByKind(k Kind) (Profile, bool) {
	for _, p := range r.profiles {
		if p.Kind == k {
			return p, true
		}
	}
	return Profile{}, false
}

// ByName looks up a profile by display name.
func (r *Registry) ByName(name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}
