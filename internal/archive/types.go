// Package archive holds the in-memory model of one architecture's archive:
// binary and source package records, the Provides index and reverse
// dependency edges.
package archive

// RecordKind identifies which index a control paragraph came from.
type RecordKind int

const (
	KindPackage RecordKind = iota + 1
	KindSource
	KindInstallerPackage
)

func (k RecordKind) String() string {
	switch k {
	case KindPackage:
		return "Package"
	case KindSource:
		return "Source"
	case KindInstallerPackage:
		return "InstallerPackage"
	default:
		return "Unknown"
	}
}

// Record is one control paragraph tagged with its kind.
type Record struct {
	Kind   RecordKind
	Fields map[string]string
}

// PackageType distinguishes ordinary binaries from installer (udeb) packages.
type PackageType string

const (
	TypeDeb  PackageType = "deb"
	TypeUdeb PackageType = "udeb"
)

// Possibility is a single alternative inside an OR-group.
// Operator and Version are empty for unversioned relations.
type Possibility struct {
	Name     string
	Operator string
	Version  string
}

// Versioned reports whether the alternative carries a version constraint.
func (p Possibility) Versioned() bool {
	return p.Operator != ""
}

func (p Possibility) String() string {
	if p.Operator == "" {
		return p.Name
	}
	return p.Name + " (" + p.Operator + " " + p.Version + ")"
}

// OrGroup is one dependency line: any alternative satisfies it.
type OrGroup []Possibility

// Names returns the alternative names in declaration order.
func (g OrGroup) Names() []string {
	names := make([]string, len(g))
	for i, p := range g {
		names[i] = p.Name
	}
	return names
}

// Dependency field names as they appear in control files.
const (
	FieldPreDepends        = "Pre-Depends"
	FieldDepends           = "Depends"
	FieldRecommends        = "Recommends"
	FieldSuggests          = "Suggests"
	FieldBuildDepends      = "Build-Depends"
	FieldBuildDependsIndep = "Build-Depends-Indep"
)

// PackageRecord is a parsed binary package.
type PackageRecord struct {
	Name          string
	Version       string
	Section       string
	Essential     bool
	Maintainer    string
	Size          int64
	InstalledSize int64
	Type          PackageType
	Source        string
	KernelVersion string

	PreDepends []OrGroup
	Depends    []OrGroup
	Recommends []OrGroup
	Suggests   []OrGroup
	Provides   []string

	// ReverseDepends maps a forward field name to the packages that
	// reference this one through it. Filled after growth.
	ReverseDepends map[string][]string
}

// Relations returns the OR-groups stored under a binary dependency field.
func (p *PackageRecord) Relations(field string) []OrGroup {
	switch field {
	case FieldPreDepends:
		return p.PreDepends
	case FieldDepends:
		return p.Depends
	case FieldRecommends:
		return p.Recommends
	case FieldSuggests:
		return p.Suggests
	}
	return nil
}

// SourceRecord is a parsed source package.
type SourceRecord struct {
	Name              string
	Version           string
	Maintainer        string
	BuildDepends      []OrGroup
	BuildDependsIndep []OrGroup
	Binaries          []string
}

// Relations returns the OR-groups stored under a build dependency field.
func (s *SourceRecord) Relations(field string) []OrGroup {
	switch field {
	case FieldBuildDepends:
		return s.BuildDepends
	case FieldBuildDependsIndep:
		return s.BuildDependsIndep
	}
	return nil
}
