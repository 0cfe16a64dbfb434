// Package catalog holds the read-only educational content served by the
// demo: Flutter code samples, the SKAN overview, per-network campaign limits
// and the protected browser script.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

//go:embed protected.js
var protectedJS string

// CodeSample is one copyable Flutter snippet.
type CodeSample struct {
	Type  string `yaml:"type" json:"type"`
	Title string `yaml:"title" json:"title"`
	Code  string `yaml:"code" json:"code"`
}

// Limits describes how many campaigns and ad groups a network supports for
// SKAN. Each value is either a number or free text such as "Unlimited".
type Limits struct {
	Campaigns any `yaml:"campaigns" json:"campaigns"`
	AdGroups  any `yaml:"ad_groups" json:"ad_groups"`
}

// Overview is the introductory SKAN block.
type Overview struct {
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	KeyFeatures []string `yaml:"key_features" json:"key_features"`
}

// Features lists the vendor solution highlights.
type Features struct {
	Title    string   `yaml:"title" json:"title"`
	Features []string `yaml:"features" json:"features"`
}

type network struct {
	Name   string `yaml:"name"`
	Limits `yaml:",inline"`
}

type document struct {
	Overview Overview     `yaml:"overview"`
	Features Features     `yaml:"features"`
	Networks []network    `yaml:"networks"`
	Samples  []CodeSample `yaml:"samples"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	overview Overview
	features Features
	samples  map[string]CodeSample
	types    []string
	networks []string
	limits   map[string]Limits
	folded   map[string]string // folded name -> canonical name
	script   string
}

// Load parses the embedded content.
func Load() (*Catalog, error) {
	return Parse(contentYAML)
}

// Parse builds a Catalog from a YAML document shaped like content.yaml.
// The protected script is always the embedded one.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}

	c := &Catalog{
		overview: doc.Overview,
		features: doc.Features,
		samples:  make(map[string]CodeSample, len(doc.Samples)),
		limits:   make(map[string]Limits, len(doc.Networks)),
		folded:   make(map[string]string, len(doc.Networks)),
		script:   protectedJS,
	}

	for _, s := range doc.Samples {
		if s.Type == "" {
			return nil, fmt.Errorf("%w: sample without type", ErrInvalidContent)
		}
		if _, dup := c.samples[s.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate sample %q", ErrInvalidContent, s.Type)
		}
		c.samples[s.Type] = s
		c.types = append(c.types, s.Type)
	}

	fold := cases.Fold()
	for _, n := range doc.Networks {
		if n.Name == "" {
			return nil, fmt.Errorf("%w: network without name", ErrInvalidContent)
		}
		if _, dup := c.limits[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate network %q", ErrInvalidContent, n.Name)
		}
		c.limits[n.Name] = n.Limits
		c.folded[fold.String(n.Name)] = n.Name
		c.networks = append(c.networks, n.Name)
	}

	if len(c.samples) == 0 {
		return nil, fmt.Errorf("%w: no code samples", ErrInvalidContent)
	}
	if len(c.limits) == 0 {
		return nil, fmt.Errorf("%w: no networks", ErrInvalidContent)
	}
	sort.Strings(c.types)
	return c, nil
}

// Sample returns the code sample registered under typ.
func (c *Catalog) Sample(typ string) (CodeSample, bool) {
	s, ok := c.samples[typ]
	return s, ok
}

// SampleTypes returns the sample keys in lexical order.
func (c *Catalog) SampleTypes() []string {
	return append([]string(nil), c.types...)
}

// CampaignLimits looks up a network by exact name, falling back to a
// case-insensitive match. The canonical network name is returned.
func (c *Catalog) CampaignLimits(name string) (string, Limits, bool) {
	if l, ok := c.limits[name]; ok {
		return name, l, true
	}
	// Caser values are stateful, so one per call.
	canonical, ok := c.folded[cases.Fold().String(strings.TrimSpace(name))]
	if !ok {
		return "", Limits{}, false
	}
	return canonical, c.limits[canonical], true
}

// Networks returns network names in content order.
func (c *Catalog) Networks() []string {
	return append([]string(nil), c.networks...)
}

// Overview returns the introductory block shown at the top of the page.
func (c *Catalog) Overview() Overview {
	o := c.overview
	o.KeyFeatures = append([]string(nil), o.KeyFeatures...)
	return o
}

// Features returns the solution highlights listed under the overview.
func (c *Catalog) Features() Features {
	f := c.features
	f.Features = append([]string(nil), f.Features...)
	return f
}

// ProtectedScript returns the plain browser script; callers obfuscate it
// before it leaves the process.
func (c *Catalog) ProtectedScript() string {
	return c.script
}
