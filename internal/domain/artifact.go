package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ArtifactKind names one category of generated learning material.
type ArtifactKind string

// Artifact kinds, using their persisted names.
const (
	ArtifactMetadata      ArtifactKind = "metadata"
	ArtifactFlashcards    ArtifactKind = "flashcards"
	ArtifactQuizzes       ArtifactKind = "quizzes"
	ArtifactPrerequisites ArtifactKind = "prerequisites"
	ArtifactCaseStudy     ArtifactKind = "case_study"
	ArtifactConceptMap    ArtifactKind = "concept_map"
)

// AllArtifactKinds lists every kind in generation order.
var AllArtifactKinds = []ArtifactKind{
	ArtifactMetadata,
	ArtifactFlashcards,
	ArtifactQuizzes,
	ArtifactPrerequisites,
	ArtifactCaseStudy,
	ArtifactConceptMap,
}

// StoredArtifactKinds lists the kinds persisted in their own collection.
// Metadata lives on the video record itself.
var StoredArtifactKinds = []ArtifactKind{
	ArtifactFlashcards,
	ArtifactQuizzes,
	ArtifactPrerequisites,
	ArtifactCaseStudy,
	ArtifactConceptMap,
}

// ParseArtifactKind converts a persisted name into an ArtifactKind.
// Camel-case names written by older ingestion flows are accepted.
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch strings.TrimSpace(s) {
	case "metadata":
		return ArtifactMetadata, nil
	case "flashcards":
		return ArtifactFlashcards, nil
	case "quizzes":
		return ArtifactQuizzes, nil
	case "prerequisites":
		return ArtifactPrerequisites, nil
	case "case_study", "caseStudy", "caseStudies":
		return ArtifactCaseStudy, nil
	case "concept_map", "conceptMap":
		return ArtifactConceptMap, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidArtifactKind, s)
	}
}

// IsValid reports whether k is one of the known kinds.
func (k ArtifactKind) IsValid() bool {
	switch k {
	case ArtifactMetadata, ArtifactFlashcards, ArtifactQuizzes,
		ArtifactPrerequisites, ArtifactCaseStudy, ArtifactConceptMap:
		return true
	default:
		return false
	}
}

func (k ArtifactKind) String() string {
	return string(k)
}

// Artifact is the closed set of generated material types. Only types in
// this package implement it.
type Artifact interface {
	// Kind identifies which collection the artifact belongs to.
	Kind() ArtifactKind

	// Len is the number of stored items the artifact expands to.
	Len() int

	// Validate checks the artifact against its schema.
	Validate() error

	sealed()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// marshalList encodes a nil slice as [] rather than null.
func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func validateArtifact(a Artifact) error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrValidation, a.Kind(), err)
	}
	return nil
}

// Chapter is a titled section of the source video.
type Chapter struct {
	Title        string  `json:"title" validate:"required"`
	StartSeconds float64 `json:"startSeconds" validate:"gte=0"`
	Summary      string  `json:"summary,omitempty"`
}

// Metadata describes the video as a whole. It is stored on the video record
// rather than in its own collection.
type Metadata struct {
	Title    string    `json:"title" validate:"required"`
	Category string    `json:"category" validate:"required"`
	Tags     []string  `json:"tags" validate:"dive,required"`
	Summary  string    `json:"summary" validate:"required"`
	Chapters []Chapter `json:"chapters" validate:"dive"`
}

func (*Metadata) Kind() ArtifactKind { return ArtifactMetadata }
func (*Metadata) Len() int           { return 1 }
func (m *Metadata) Validate() error  { return validateArtifact(m) }
func (*Metadata) sealed()            {}

// Flashcard is a single question/answer card.
type Flashcard struct {
	Front      string `json:"front" validate:"required"`
	Back       string `json:"back" validate:"required"`
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
}

// FlashcardSet is the flashcards artifact. It encodes as a plain JSON array.
type FlashcardSet struct {
	Cards []Flashcard `validate:"min=1,dive"`
}

func (*FlashcardSet) Kind() ArtifactKind { return ArtifactFlashcards }
func (s *FlashcardSet) Len() int         { return len(s.Cards) }
func (s *FlashcardSet) Validate() error  { return validateArtifact(s) }
func (*FlashcardSet) sealed()            {}

func (s FlashcardSet) MarshalJSON() ([]byte, error) { return marshalList(s.Cards) }
func (s *FlashcardSet) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &s.Cards) }

// QuizQuestion is a multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question" validate:"required"`
	Options      []string `json:"options" validate:"min=2,dive,required"`
	CorrectIndex int      `json:"correctIndex" validate:"gte=0"`
	Explanation  string   `json:"explanation,omitempty"`
}

// QuizSet is the quizzes artifact. It encodes as a plain JSON array.
type QuizSet struct {
	Questions []QuizQuestion `validate:"min=1,dive"`
}

func (*QuizSet) Kind() ArtifactKind { return ArtifactQuizzes }
func (s *QuizSet) Len() int         { return len(s.Questions) }
func (*QuizSet) sealed()            {}

func (s QuizSet) MarshalJSON() ([]byte, error) { return marshalList(s.Questions) }
func (s *QuizSet) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &s.Questions) }

func (s *QuizSet) Validate() error {
	if err := validateArtifact(s); err != nil {
		return err
	}
	for i, q := range s.Questions {
		if q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("%w: quizzes: question %d: correct index %d out of range", ErrValidation, i, q.CorrectIndex)
		}
	}
	return nil
}

// Prerequisite is a topic the viewer should know beforehand.
type Prerequisite struct {
	Topic       string `json:"topic" validate:"required"`
	Description string `json:"description,omitempty"`
	Level       string `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// PrerequisiteSet is the prerequisites artifact. It encodes as a plain JSON array.
type PrerequisiteSet struct {
	Items []Prerequisite `validate:"dive"`
}

func (*PrerequisiteSet) Kind() ArtifactKind { return ArtifactPrerequisites }
func (s *PrerequisiteSet) Len() int         { return len(s.Items) }
func (s *PrerequisiteSet) Validate() error  { return validateArtifact(s) }
func (*PrerequisiteSet) sealed()            {}

func (s PrerequisiteSet) MarshalJSON() ([]byte, error) { return marshalList(s.Items) }
func (s *PrerequisiteSet) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &s.Items) }

// CaseStudy applies the video's ideas to a concrete scenario. A video has at
// most one.
type CaseStudy struct {
	Title     string   `json:"title" validate:"required"`
	Scenario  string   `json:"scenario" validate:"required"`
	Questions []string `json:"questions" validate:"dive,required"`
	Insights  []string `json:"insights,omitempty"`
}

func (*CaseStudy) Kind() ArtifactKind { return ArtifactCaseStudy }
func (*CaseStudy) Len() int           { return 1 }
func (c *CaseStudy) Validate() error  { return validateArtifact(c) }
func (*CaseStudy) sealed()            {}

// ConceptNode is one concept in a ConceptMap.
type ConceptNode struct {
	ID          string `json:"id" validate:"required"`
	Label       string `json:"label" validate:"required"`
	Description string `json:"description,omitempty"`
}

// ConceptEdge links two nodes of a ConceptMap.
type ConceptEdge struct {
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	Relation string `json:"relation" validate:"required"`
}

// ConceptMap is the concept graph artifact.
type ConceptMap struct {
	Nodes []ConceptNode `json:"nodes" validate:"min=1,dive"`
	Edges []ConceptEdge `json:"edges" validate:"dive"`
}

func (*ConceptMap) Kind() ArtifactKind { return ArtifactConceptMap }
func (*ConceptMap) Len() int           { return 1 }
func (*ConceptMap) sealed()            {}

// Validate also checks that every edge refers to known nodes.
func (m *ConceptMap) Validate() error {
	if err := validateArtifact(m); err != nil {
		return err
	}
	ids := make(map[string]struct{}, len(m.Nodes))
	for _, n := range m.Nodes {
		ids[n.ID] = struct{}{}
	}
	for _, e := range m.Edges {
		if _, ok := ids[e.From]; !ok {
			return fmt.Errorf("%w: concept_map: edge references unknown node %q", ErrValidation, e.From)
		}
		if _, ok := ids[e.To]; !ok {
			return fmt.Errorf("%w: concept_map: edge references unknown node %q", ErrValidation, e.To)
		}
	}
	return nil
}

// NewArtifact returns an empty artifact of the given kind, ready to be
// decoded into.
func NewArtifact(kind ArtifactKind) (Artifact, error) {
	switch kind {
	case ArtifactMetadata:
		return &Metadata{}, nil
	case ArtifactFlashcards:
		return &FlashcardSet{}, nil
	case ArtifactQuizzes:
		return &QuizSet{}, nil
	case ArtifactPrerequisites:
		return &PrerequisiteSet{}, nil
	case ArtifactCaseStudy:
		return &CaseStudy{}, nil
	case ArtifactConceptMap:
		return &ConceptMap{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidArtifactKind, kind)
	}
}
