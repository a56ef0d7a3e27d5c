package bridge_test

import (
	"strings"
	"testing"

	"github.com/feather-lang/bridge"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	src := `
types:
  - name: Object
  - name: Actor
    bases: [Object]
  - name: Pawn
    bases: [Actor]
    aliases: [APawn]
`
	m, err := bridge.LoadManifest(strings.NewReader(src))
	require.NoError(t, err)

	want := &bridge.Manifest{Types: []bridge.TypeSpec{
		{Name: "Object"},
		{Name: "Actor", Bases: []string{"Object"}},
		{Name: "Pawn", Bases: []string{"Actor"}, Aliases: []string{"APawn"}},
	}}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	r := newBridge(t).Types()
	require.NoError(t, r.Apply(m))
	assert.Equal(t, []string{"Pawn", "Actor", "Object"}, r.Ancestors("APawn"))

	// applying again is idempotent
	require.NoError(t, r.Apply(m))
}

func TestLoadManifestErrors(t *testing.T) {
	_, err := bridge.LoadManifest(strings.NewReader("types:\n  - name: A\n    parents: [B]\n"))
	assert.Error(t, err)

	m, err := bridge.LoadManifest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, m.Types)

	r := newBridge(t).Types()
	require.NoError(t, r.RegisterType("Actor", "Object"))
	conflict := &bridge.Manifest{Types: []bridge.TypeSpec{{Name: "Actor", Bases: []string{"Component"}}}}
	err = r.Apply(conflict)
	assert.ErrorIs(t, err, bridge.ErrTypeConflict)
	assert.Contains(t, err.Error(), `manifest type 0 ("Actor")`)
}
