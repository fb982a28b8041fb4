// Package mocks provides hand-written test doubles for the pipeline's
// collaborator interfaces.
//
// Each mock exposes function fields that a test can set to control
// behaviour, falls back to a sensible default when a field is nil, and
// records its calls so assertions can check what was (or was not) invoked:
//
//	gen := mocks.NewMockGeneratorWithMaterials(mocks.SampleMaterials())
//	gen.GenerateFn = func(ctx context.Context, t domain.Transcript, kinds []domain.ArtifactKind) (*generation.Result, error) {
//	    return nil, errors.New("503 Service Unavailable")
//	}
//	// ... run the code under test ...
//	assert.Equal(t, 1, gen.CallCount())
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Assert interface satisfaction with a blank var declaration
package mocks
