// Package dosage estimates how long a dispensed supply lasts and when the
// patient should return, flagging quantities above the controlled-substance
// dispensing limits.
package dosage

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Schedule is the controlled-substance list a medication belongs to.
type Schedule string

const (
	ScheduleB1           Schedule = "B1"
	ScheduleC1           Schedule = "C1"
	ScheduleUnrestricted Schedule = "unrestricted"
)

// DoseUnit is what the daily dose is measured in.
type DoseUnit string

const (
	DoseUnitDrops DoseUnit = "drops"
	DoseUnitML    DoseUnit = "ml"
)

// Profile describes one medication the calculator knows about.
type Profile struct {
	Name              string   `yaml:"name" json:"name"`
	DosesPerContainer float64  `yaml:"doses_per_container" json:"doses_per_container"`
	DoseUnit          DoseUnit `yaml:"dose_unit" json:"dose_unit"`
	Schedule          Schedule `yaml:"schedule" json:"schedule"`
}

// MeasuredInML reports whether the daily dose is given in millilitres
// rather than drops.
func (p Profile) MeasuredInML() bool {
	return p.DoseUnit == DoseUnitML
}

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Medications []Profile `yaml:"medications"`
}

// Catalog is the read-only list of medication profiles.
type Catalog struct {
	profiles []Profile
	byName   map[string]int
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("dosage: embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from path, or returns the default catalog
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog. A missing dose unit
// defaults to drops and a missing schedule to unrestricted.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(f.Medications) == 0 {
		return nil, fmt.Errorf("catalog has no medications")
	}

	c := &Catalog{
		profiles: make([]Profile, 0, len(f.Medications)),
		byName:   make(map[string]int, len(f.Medications)),
	}
	for i, p := range f.Medications {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("medication %d: name is required", i)
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("medication %q: duplicate name", p.Name)
		}
		if !(p.DosesPerContainer > 0) {
			return nil, fmt.Errorf("medication %q: doses_per_container must be positive", p.Name)
		}

		switch p.DoseUnit {
		case "":
			p.DoseUnit = DoseUnitDrops
		case DoseUnitDrops, DoseUnitML:
		default:
			return nil, fmt.Errorf("medication %q: unknown dose_unit %q", p.Name, p.DoseUnit)
		}

		switch p.Schedule {
		case "":
			p.Schedule = ScheduleUnrestricted
		case ScheduleB1, ScheduleC1, ScheduleUnrestricted:
		default:
			return nil, fmt.Errorf("medication %q: unknown schedule %q", p.Name, p.Schedule)
		}

		c.byName[p.Name] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}
	return c, nil
}

// Profiles returns the profiles in catalog order.
func (c *Catalog) Profiles() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Lookup finds a profile by exact name, falling back to a case- and
// accent-insensitive match so "acido valproico 250mg/5ml" still resolves.
func (c *Catalog) Lookup(name string) (Profile, bool) {
	name = strings.TrimSpace(name)
	if i, ok := c.byName[name]; ok {
		return c.profiles[i], true
	}
	coll := collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics)
	for _, p := range c.profiles {
		if coll.CompareString(p.Name, name) == 0 {
			return p, true
		}
	}
	return Profile{}, false
}
