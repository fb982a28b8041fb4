package domain

// Materials is a bundle of generated artifacts holding at most one artifact
// per kind. The zero value is not usable; call NewMaterials.
type Materials struct {
	artifacts map[ArtifactKind]Artifact
}

// NewMaterials creates a bundle from the given artifacts. A later artifact of
// the same kind replaces an earlier one.
func NewMaterials(artifacts ...Artifact) *Materials {
	m := &Materials{artifacts: make(map[ArtifactKind]Artifact, len(artifacts))}
	for _, a := range artifacts {
		m.Set(a)
	}
	return m
}

// Set stores a, replacing any artifact of the same kind. Nil is ignored.
func (m *Materials) Set(a Artifact) {
	if a == nil {
		return
	}
	m.artifacts[a.Kind()] = a
}

// Get returns the artifact of the given kind.
func (m *Materials) Get(kind ArtifactKind) (Artifact, bool) {
	if m == nil {
		return nil, false
	}
	a, ok := m.artifacts[kind]
	return a, ok
}

// Has reports whether the bundle holds an artifact of the given kind.
func (m *Materials) Has(kind ArtifactKind) bool {
	_, ok := m.Get(kind)
	return ok
}

// Remove drops the artifact of the given kind, if any.
func (m *Materials) Remove(kind ArtifactKind) {
	delete(m.artifacts, kind)
}

// Len returns the number of kinds in the bundle.
func (m *Materials) Len() int {
	if m == nil {
		return 0
	}
	return len(m.artifacts)
}

// Kinds returns the kinds present, in AllArtifactKinds order.
func (m *Materials) Kinds() []ArtifactKind {
	if m == nil {
		return nil
	}
	kinds := make([]ArtifactKind, 0, len(m.artifacts))
	for _, k := range AllArtifactKinds {
		if _, ok := m.artifacts[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Missing returns the kinds from want that the bundle does not hold.
func (m *Materials) Missing(want []ArtifactKind) []ArtifactKind {
	var missing []ArtifactKind
	for _, k := range want {
		if !m.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Metadata returns the metadata artifact, or nil.
func (m *Materials) Metadata() *Metadata {
	a, ok := m.Get(ArtifactMetadata)
	if !ok {
		return nil
	}
	meta, _ := a.(*Metadata)
	return meta
}

// Merge copies every artifact of other into m, replacing same-kind entries.
func (m *Materials) Merge(other *Materials) {
	if other == nil {
		return
	}
	for k, a := range other.artifacts {
		m.artifacts[k] = a
	}
}

// NormalizeKinds drops unknown kinds and duplicates, returning the remainder
// in AllArtifactKinds order. An empty input yields every kind.
func NormalizeKinds(kinds []ArtifactKind) []ArtifactKind {
	if len(kinds) == 0 {
		return append([]ArtifactKind(nil), AllArtifactKinds...)
	}
	seen := make(map[ArtifactKind]bool, len(kinds))
	for _, k := range kinds {
		seen[k] = true
	}
	out := make([]ArtifactKind, 0, len(seen))
	for _, k := range AllArtifactKinds {
		if seen[k] {
			out = append(out, k)
		}
	}
	return out
}
