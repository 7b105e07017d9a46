package radar

import (
	_ "embed"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-radar/internal/model"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

// LabeledPattern pairs a pattern with the label reported when it matches.
type LabeledPattern struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`

	re *regexp.Regexp
}

// RegionProfile holds per-region search preferences.
type RegionProfile struct {
	Lang          string   `yaml:"lang"`
	LocalDomains  []string `yaml:"local_domains"`
	HiringDomains []string `yaml:"hiring_domains"`
}

// QueryTerms are the quoted OR-clauses the planner combines with aliases.
type QueryTerms struct {
	SignalEN        []string `yaml:"signal_en"`
	SignalZH        []string `yaml:"signal_zh"`
	HiringEN        []string `yaml:"hiring_en"`
	HiringZH        []string `yaml:"hiring_zh"`
	Hiring104       []string `yaml:"hiring_104"`
	KeywordFallback []string `yaml:"keyword_fallback"`
}

// ClassifierTerms are the substring sets checked by the classifier rules.
type ClassifierTerms struct {
	HiringURLMarkers []string `yaml:"hiring_url_markers"`
	Capex            []string `yaml:"capex"`
	NPI              []string `yaml:"npi"`
	Hiring           []string `yaml:"hiring"`
	SupplyChain      []string `yaml:"supply_chain"`
}

// StrengthTable holds base weights per signal type.
type StrengthTable struct {
	Weights       map[model.SignalType]int `yaml:"weights"`
	DefaultWeight int                      `yaml:"default_weight"`
}

// HiringBonus holds the pre-sort bonus awarded to likely hiring pages.
// Hosts get the Host bonus only on an exact match after "www." is dropped.
type HiringBonus struct {
	Host                int      `yaml:"host"`
	Hosts               []string `yaml:"hosts"`
	Page104             int      `yaml:"104_page"`
	LinkedInCompanyJobs int      `yaml:"linkedin_company_jobs"`
	Tokens              int      `yaml:"tokens"`
	TokenList           []string `yaml:"token_list"`
}

// HiringTerms drive the hiring detail gate and openings extraction.
type HiringTerms struct {
	OpeningsPatterns   []string `yaml:"openings_patterns"`
	ActiveTerms        []string `yaml:"active_terms"`
	NoOpeningsPatterns []string `yaml:"no_openings_patterns"`
	DetailTerms        []string `yaml:"detail_terms"`
	RoleTerms          []string `yaml:"role_terms"`
	CompanyPageTerms   []string `yaml:"company_page_terms"`
	JobListingPattern  string   `yaml:"job_listing_pattern"`
}

// SummaryRules configure the cleaner.
type SummaryRules struct {
	MaxLen             int      `yaml:"max_len"`
	HiringMaxLen       int      `yaml:"hiring_max_len"`
	SidebarCutoff      string   `yaml:"sidebar_cutoff"`
	NoisePatterns      []string `yaml:"noise_patterns"`
	BoilerplatePhrases []string `yaml:"boilerplate_phrases"`
	TickerPattern      string   `yaml:"ticker_pattern"`
}

// Templates are the fixed hiring summary renderings.
type Templates struct {
	JDSummary        string `yaml:"jd_summary"`
	JobListing       string `yaml:"job_listing"`
	Openings104      string `yaml:"openings_104"`
	OpeningsLinkedIn string `yaml:"openings_linkedin"`
	OpeningsGeneric  string `yaml:"openings_generic"`
	NoOpenings       string `yaml:"no_openings"`
	ActiveHiring     string `yaml:"active_hiring"`
	EmptyMarker      string `yaml:"empty_marker"`
	ListSeparator    string `yaml:"list_separator"`
}

// Lexicon is the immutable set of keyword tables, patterns, and templates
// the radar reads. Build one with ParseLexicon or DefaultLexicon and share it
// freely; nothing mutates it after parsing.
type Lexicon struct {
	SegmentKeywords      map[string][]string      `yaml:"segment_keywords"`
	DefaultKeywords      []string                 `yaml:"default_keywords"`
	FullNames            map[string]string        `yaml:"full_names"`
	RegionAliases        map[string]string        `yaml:"region_aliases"`
	Regions              map[string]RegionProfile `yaml:"regions"`
	DefaultHiringDomains []string                 `yaml:"default_hiring_domains"`
	TrustedHiringHosts   []string                 `yaml:"trusted_hiring_hosts"`
	QueryTerms           QueryTerms               `yaml:"query_terms"`
	Classifier           ClassifierTerms          `yaml:"classifier"`
	Strength             StrengthTable            `yaml:"strength"`
	JunkPathSegments     []string                 `yaml:"junk_path_segments"`
	LatinStopwords       []string                 `yaml:"latin_stopwords"`
	HighValuePatterns    []string                 `yaml:"high_value_patterns"`
	SourceBoost          map[string]int           `yaml:"source_boost"`
	HiringBonus          HiringBonus              `yaml:"hiring_bonus"`
	LowValueText         []string                 `yaml:"low_value_text_patterns"`
	LowValueURL          []string                 `yaml:"low_value_url_patterns"`
	Hiring               HiringTerms              `yaml:"hiring"`
	Summary              SummaryRules             `yaml:"summary"`
	Templates            Templates                `yaml:"templates"`
	TranslatePrompt      string                   `yaml:"translate_prompt"`
	TranslatePrompts     map[string]string        `yaml:"translate_prompts"`
	PainPoints           []LabeledPattern         `yaml:"pain_points"`
	ExpansionSignals     []LabeledPattern         `yaml:"expansion_signals"`

	fullNames      map[string]string
	stopwords      map[string]bool
	highValue      []*regexp.Regexp
	lowValueText   []*regexp.Regexp
	lowValueURL    []*regexp.Regexp
	openings       []*regexp.Regexp
	noOpenings     []*regexp.Regexp
	jobListing     *regexp.Regexp
	sidebarCutoff  *regexp.Regexp
	noise          []*regexp.Regexp
	ticker         *regexp.Regexp
	boilerplate    map[string]bool
	trustedHosts   []string
	bonusHosts     map[string]bool
	regionsByAlias map[string]string
}

// ParseLexicon decodes YAML lexicon data and compiles every pattern.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, eris.Wrap(err, "radar: decode lexicon")
	}
	if err := lex.compile(); err != nil {
		return nil, err
	}
	return &lex, nil
}

var defaultLexicon = sync.OnceValues(func() (*Lexicon, error) {
	return ParseLexicon(lexiconYAML)
})

// DefaultLexicon returns the embedded lexicon, parsed on first use.
func DefaultLexicon() *Lexicon {
	lex, err := defaultLexicon()
	if err != nil {
		panic(err)
	}
	return lex
}

func (l *Lexicon) compile() error {
	var err error

	l.fullNames = make(map[string]string, len(l.FullNames))
	for abbr, full := range l.FullNames {
		l.fullNames[strings.ToUpper(strings.TrimSpace(abbr))] = full
	}
	l.stopwords = toSet(l.LatinStopwords)
	l.boilerplate = toSet(l.Summary.BoilerplatePhrases)
	for _, h := range l.TrustedHiringHosts {
		l.trustedHosts = append(l.trustedHosts, strings.ToLower(strings.TrimSpace(h)))
	}
	l.bonusHosts = make(map[string]bool, len(l.HiringBonus.Hosts))
	for _, h := range l.HiringBonus.Hosts {
		l.bonusHosts[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h)), "www.")] = true
	}
	l.regionsByAlias = make(map[string]string, len(l.RegionAliases))
	for alias, region := range l.RegionAliases {
		l.regionsByAlias[strings.ToLower(alias)] = region
	}

	if l.highValue, err = compileAll("high_value_patterns", l.HighValuePatterns); err != nil {
		return err
	}
	if l.lowValueText, err = compileAll("low_value_text_patterns", l.LowValueText); err != nil {
		return err
	}
	if l.lowValueURL, err = compileAll("low_value_url_patterns", l.LowValueURL); err != nil {
		return err
	}
	if l.openings, err = compileAll("hiring.openings_patterns", l.Hiring.OpeningsPatterns); err != nil {
		return err
	}
	if l.noOpenings, err = compileAll("hiring.no_openings_patterns", l.Hiring.NoOpeningsPatterns); err != nil {
		return err
	}
	if l.noise, err = compileAll("summary.noise_patterns", l.Summary.NoisePatterns); err != nil {
		return err
	}
	if l.jobListing, err = compileOne("hiring.job_listing_pattern", l.Hiring.JobListingPattern); err != nil {
		return err
	}
	if l.sidebarCutoff, err = compileOne("summary.sidebar_cutoff", l.Summary.SidebarCutoff); err != nil {
		return err
	}
	if l.ticker, err = compileOne("summary.ticker_pattern", l.Summary.TickerPattern); err != nil {
		return err
	}
	for i := range l.PainPoints {
		if l.PainPoints[i].re, err = compileOne("pain_points", l.PainPoints[i].Pattern); err != nil {
			return err
		}
	}
	for i := range l.ExpansionSignals {
		if l.ExpansionSignals[i].re, err = compileOne("expansion_signals", l.ExpansionSignals[i].Pattern); err != nil {
			return err
		}
	}

	if l.Summary.MaxLen <= 0 {
		return eris.New("radar: lexicon summary.max_len must be > 0")
	}
	return nil
}

// FullName returns the expanded trade name for an abbreviation.
func (l *Lexicon) FullName(abbr string) (string, bool) {
	full, ok := l.fullNames[strings.ToUpper(strings.TrimSpace(abbr))]
	return full, ok
}

// Keywords returns the segment keyword set, or the generic fallback.
func (l *Lexicon) Keywords(segment model.Segment) []string {
	if kw, ok := l.SegmentKeywords[string(segment)]; ok && len(kw) > 0 {
		return kw
	}
	return l.DefaultKeywords
}

// NormalizeRegion maps free-form region input to its canonical name.
// Unknown regions are returned trimmed but otherwise unchanged.
func (l *Lexicon) NormalizeRegion(region string) string {
	key := strings.TrimSpace(region)
	if key == "" {
		return ""
	}
	if canonical, ok := l.regionsByAlias[strings.ToLower(key)]; ok {
		return canonical
	}
	return key
}

// Region returns the profile for a canonical region name.
func (l *Lexicon) Region(name string) RegionProfile {
	return l.Regions[name]
}

// IsTrustedHiringHost reports whether host is, or is a subdomain of, a
// trusted hiring source.
func (l *Lexicon) IsTrustedHiringHost(host string) bool {
	return hostMatchesAny(host, l.trustedHosts)
}

// TranslationPrompt returns the system instruction for translating into
// locale, falling back to the default prompt.
func (l *Lexicon) TranslationPrompt(locale string) string {
	if p := strings.TrimSpace(l.TranslatePrompts[locale]); p != "" {
		return p
	}
	return l.TranslatePrompt
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compileOne(field, p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func compileOne(field, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "radar: compile %s pattern %q", field, pattern)
	}
	return re, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(strings.TrimSpace(item))] = true
	}
	return set
}
