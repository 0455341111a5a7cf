package archive

import (
	"slices"
	"strconv"
	"strings"

	"github.com/dbsmedya/germinate/internal/logger"
)

// Model is the archive view for one architecture. It is filled by Ingest and
// read-only during germination, apart from the reverse-dependency edges
// appended once growth has finished.
type Model struct {
	arch      string
	installer bool
	log       *logger.Logger

	packages map[string]*PackageRecord
	sources  map[string]*SourceRecord
	provides map[string][]string
}

// NewModel creates an empty model. When installer is false every
// InstallerPackage record is ignored.
func NewModel(arch string, installer bool, log *logger.Logger) *Model {
	if log == nil {
		log = logger.NewNop()
	}
	return &Model{
		arch:      arch,
		installer: installer,
		log:       log,
		packages:  make(map[string]*PackageRecord),
		sources:   make(map[string]*SourceRecord),
		provides:  make(map[string][]string),
	}
}

// Arch returns the architecture the model was built for.
func (m *Model) Arch() string {
	return m.arch
}

// Ingest adds every record in order.
func (m *Model) Ingest(records []Record) {
	for _, rec := range records {
		m.IngestRecord(rec)
	}
}

// IngestRecord adds a single record. A record whose name already exists at
// an equal or higher version is discarded.
func (m *Model) IngestRecord(rec Record) {
	switch rec.Kind {
	case KindPackage:
		m.ingestPackage(rec.Fields, TypeDeb)
	case KindInstallerPackage:
		if m.installer {
			m.ingestPackage(rec.Fields, TypeUdeb)
		}
	case KindSource:
		m.ingestSource(rec.Fields)
	default:
		m.log.Errorw("Unknown archive record kind", "kind", int(rec.Kind), "package", rec.Fields["Package"])
	}
}

func (m *Model) ingestPackage(fields map[string]string, pkgType PackageType) {
	name := fields["Package"]
	if name == "" {
		return
	}
	ver := fields["Version"]

	if old, ok := m.packages[name]; ok && CompareVersions(old.Version, ver) >= 0 {
		return
	}

	rec := &PackageRecord{
		Name:          name,
		Version:       ver,
		Section:       lastPathComponent(fields["Section"]),
		Essential:     strings.EqualFold(fields["Essential"], "yes"),
		Maintainer:    strings.ToValidUTF8(fields["Maintainer"], "�"),
		Size:          parseSize(fields["Size"]),
		InstalledSize: parseSize(fields["Installed-Size"]),
		Type:          pkgType,
		Source:        sourceName(fields["Source"], name),
		KernelVersion: fields["Kernel-Version"],
		Provides:      parseNameList(fields["Provides"]),
	}
	rec.PreDepends = m.binaryRelations(name, FieldPreDepends, fields[FieldPreDepends])
	rec.Depends = m.binaryRelations(name, FieldDepends, fields[FieldDepends])
	rec.Recommends = m.binaryRelations(name, FieldRecommends, fields[FieldRecommends])
	rec.Suggests = m.binaryRelations(name, FieldSuggests, fields[FieldSuggests])

	m.packages[name] = rec

	for _, prov := range rec.Provides {
		if _, ok := m.provides[prov]; !ok {
			m.provides[prov] = nil
			if _, real := m.packages[prov]; real {
				m.provides[prov] = append(m.provides[prov], prov)
			}
		}
		m.addProvider(prov, name)
	}
	if _, ok := m.provides[name]; ok {
		m.addProvider(name, name)
	}
}

func (m *Model) addProvider(virtual, pkg string) {
	if !slices.Contains(m.provides[virtual], pkg) {
		m.provides[virtual] = append(m.provides[virtual], pkg)
	}
}

func (m *Model) ingestSource(fields map[string]string) {
	name := fields["Package"]
	if name == "" {
		return
	}
	ver := fields["Version"]

	if old, ok := m.sources[name]; ok && CompareVersions(old.Version, ver) >= 0 {
		return
	}

	rec := &SourceRecord{
		Name:       name,
		Version:    ver,
		Maintainer: strings.ToValidUTF8(fields["Maintainer"], "�"),
		Binaries:   parseNameList(fields["Binary"]),
	}
	if len(rec.Binaries) == 0 {
		rec.Binaries = []string{name}
	}
	rec.BuildDepends = m.sourceRelations(name, FieldBuildDepends, fields[FieldBuildDepends])
	rec.BuildDependsIndep = m.sourceRelations(name, FieldBuildDependsIndep, fields[FieldBuildDependsIndep])

	m.sources[name] = rec
}

func (m *Model) binaryRelations(pkg, field, value string) []OrGroup {
	groups, err := ParseDepends(value)
	if err != nil {
		m.log.Warnw("Cannot parse relation field", "package", pkg, "field", field, "error", err)
	}
	return groups
}

func (m *Model) sourceRelations(src, field, value string) []OrGroup {
	groups, err := ParseSourceDepends(value, m.arch)
	if err != nil {
		m.log.Warnw("Cannot parse relation field", "source", src, "field", field, "error", err)
	}
	return groups
}

// Package returns the binary record for name.
func (m *Model) Package(name string) (*PackageRecord, bool) {
	p, ok := m.packages[name]
	return p, ok
}

// HasPackage reports whether name is a real binary package.
func (m *Model) HasPackage(name string) bool {
	_, ok := m.packages[name]
	return ok
}

// Binaries returns the binaries a source declares, or false if the source
// is unknown.
func (m *Model) Binaries(src string) ([]string, bool) {
	s, ok := m.sources[src]
	if !ok {
		return nil, false
	}
	return s.Binaries, true
}

// Source returns the source record for name.
func (m *Model) Source(name string) (*SourceRecord, bool) {
	s, ok := m.sources[name]
	return s, ok
}

// HasSource reports whether name is a known source package.
func (m *Model) HasSource(name string) bool {
	_, ok := m.sources[name]
	return ok
}

// Providers lists the real packages offering virtual, in ingest order.
// The returned slice must not be modified.
func (m *Model) Providers(virtual string) []string {
	return m.provides[virtual]
}

// IsVirtual reports whether any package provides name.
func (m *Model) IsVirtual(name string) bool {
	_, ok := m.provides[name]
	return ok
}

// PackageNames returns all binary package names, sorted.
func (m *Model) PackageNames() []string {
	return sortedKeys(m.packages)
}

// SourceNames returns all source package names, sorted.
func (m *Model) SourceNames() []string {
	return sortedKeys(m.sources)
}

// VirtualNames returns every name present in the Provides index, sorted.
func (m *Model) VirtualNames() []string {
	return sortedKeys(m.provides)
}

// AddReverse records that rdep (a package, or a source for build
// dependency fields) references pkg through field.
func (m *Model) AddReverse(pkg, field, rdep string) {
	p, ok := m.packages[pkg]
	if !ok {
		return
	}
	if p.ReverseDepends == nil {
		p.ReverseDepends = make(map[string][]string)
	}
	p.ReverseDepends[field] = append(p.ReverseDepends[field], rdep)
}

// ClearReverse drops every reverse edge so the pass can be recomputed.
func (m *Model) ClearReverse() {
	for _, p := range m.packages {
		p.ReverseDepends = nil
	}
}

// SortReverse sorts every reverse-edge list by name.
func (m *Model) SortReverse() {
	for _, p := range m.packages {
		for _, rdeps := range p.ReverseDepends {
			slices.Sort(rdeps)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// sourceName strips a trailing "(version)" annotation from a Source field.
func sourceName(field, fallback string) string {
	if i := strings.IndexByte(field, '('); i >= 0 {
		field = field[:i]
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return fallback
	}
	return field
}

func lastPathComponent(section string) string {
	if i := strings.LastIndexByte(section, '/'); i >= 0 {
		return section[i+1:]
	}
	return section
}

func parseSize(field string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
