package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitProfile = `mode: atomic
github.com/phrazzld/scry-materials/internal/store/errors.go:10.2,12.3 2 1
github.com/phrazzld/scry-materials/internal/store/errors.go:14.2,15.10 1 0
`

const integrationProfile = `mode: atomic
github.com/phrazzld/scry-materials/internal/store/errors.go:10.2,12.3 2 3
github.com/phrazzld/scry-materials/internal/platform/postgres/db.go:20.5,22.2 1 4
`

func TestProfile_MergesCounts(t *testing.T) {
	p := newProfile()
	require.NoError(t, p.add(strings.NewReader(unitProfile)))
	require.NoError(t, p.add(strings.NewReader(integrationProfile)))

	var out strings.Builder
	require.NoError(t, p.write(&out))

	assert.Equal(t, `mode: atomic
github.com/phrazzld/scry-materials/internal/platform/postgres/db.go:20.5,22.2 1 4
github.com/phrazzld/scry-materials/internal/store/errors.go:10.2,12.3 2 4
github.com/phrazzld/scry-materials/internal/store/errors.go:14.2,15.10 1 0
`, out.String())
}

func TestProfile_SetMode(t *testing.T) {
	p := newProfile()
	require.NoError(t, p.add(strings.NewReader("mode: set\na.go:1.1,2.2 1 0\n")))
	require.NoError(t, p.add(strings.NewReader("mode: set\na.go:1.1,2.2 1 1\nb.go:1.1,2.2 1 0\n")))

	var out strings.Builder
	require.NoError(t, p.write(&out))
	assert.Equal(t, "mode: set\na.go:1.1,2.2 1 1\nb.go:1.1,2.2 1 0\n", out.String())
}

func TestProfile_Errors(t *testing.T) {
	t.Run("mixed modes", func(t *testing.T) {
		p := newProfile()
		require.NoError(t, p.add(strings.NewReader("mode: set\n")))
		assert.ErrorContains(t, p.add(strings.NewReader("mode: count\n")), "does not match")
	})

	t.Run("malformed block", func(t *testing.T) {
		p := newProfile()
		assert.ErrorContains(t, p.add(strings.NewReader("mode: count\nnonsense\n")), "malformed")
	})

	t.Run("bad count", func(t *testing.T) {
		p := newProfile()
		assert.ErrorContains(t, p.add(strings.NewReader("mode: count\na.go:1.1,2.2 1 x\n")), "bad count")
	})
}
