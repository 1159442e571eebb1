package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/milk9111/cuedispatch/cue"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestBuildAssignsIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, CategoriesName), "sfx:\n  priority: 40\n  bus: effects\n")
	writeFile(t, filepath.Join(dir, "a_step.yaml"), "id: "+idA+"\ncategory: sfx\nclips:\n  - file: step.wav\n")
	// a duplicated file keeps the first id it was copied from
	writeFile(t, filepath.Join(dir, "b_step_copy.yaml"), "id: "+idA+"\n# keep me\ncategory: sfx\nclips:\n  - file: step.wav\n")
	writeFile(t, filepath.Join(dir, "ui", "click.yml"), "type: ui\nclips:\n  - file: click.wav\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	res, err := Build(dir, BuildOptions{Logger: quiet()})
	require.NoError(t, err)
	require.Equal(t, 3, res.Cues)
	require.True(t, res.Written)
	require.ElementsMatch(t, []string{"b_step_copy.yaml", filepath.Join("ui", "click.yml")}, res.Regenerated)

	copySpec, err := LoadSpec[cue.Spec](filepath.Join(dir, "b_step_copy.yaml"))
	require.NoError(t, err)
	require.False(t, copySpec.ID.IsZero())
	require.NotEqual(t, idA, copySpec.ID.String())

	raw, err := os.ReadFile(filepath.Join(dir, "b_step_copy.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "# keep me")

	listing, err := LoadListing(res.Listing)
	require.NoError(t, err)
	require.Len(t, listing.Cues, 3)
	require.Equal(t, "a_step", listing.Cues[0].Name)
	require.Equal(t, "a_step.yaml", listing.Cues[0].Source)
	require.Equal(t, "ui/click.yml", listing.Cues[2].Source)
	require.Contains(t, listing.Categories, "sfx")

	reg := New(listing, WithLogger(quiet()))
	require.Equal(t, 3, reg.Len())
	step, ok := reg.ResolveName("a_step")
	require.True(t, ok)
	require.Equal(t, 40, step.Priority())

	again, err := Build(dir, BuildOptions{Logger: quiet()})
	require.NoError(t, err)
	require.False(t, again.Written)
	require.Empty(t, again.Regenerated)
}

func TestBuildBadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "id: [not, a, scalar]\n")
	_, err := Build(dir, BuildOptions{Logger: quiet()})
	require.Error(t, err)
}

func TestBuildRepairsBadIDsAndSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "door.yaml"), "id: "+idA+"\nclips:\n  - file: door.wav\n")
	writeFile(t, filepath.Join(dir, "squeak.yaml"), "id: not-a-uuid\n# hinge\nclips:\n  - file: squeak.wav\n")
	writeFile(t, filepath.Join(dir, "hum.yaml"), "id: "+idB+"\nmodulators:\n  - control: speed\n    target: loudness\n")

	res, err := Build(dir, BuildOptions{Logger: quiet()})
	require.NoError(t, err)
	require.Equal(t, 2, res.Cues)
	require.Equal(t, []string{"squeak.yaml"}, res.Regenerated)
	require.Equal(t, []string{"hum.yaml"}, res.Skipped)

	squeak, err := LoadSpec[cue.Spec](filepath.Join(dir, "squeak.yaml"))
	require.NoError(t, err)
	require.False(t, squeak.ID.IsZero())

	raw, err := os.ReadFile(filepath.Join(dir, "squeak.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "# hinge")
	require.NotContains(t, string(raw), "not-a-uuid")

	listing, err := LoadListing(res.Listing)
	require.NoError(t, err)
	require.Empty(t, listing.Malformed)
	require.Len(t, listing.Cues, 2)
	require.Equal(t, []string{"door", "squeak"}, []string{listing.Cues[0].Name, listing.Cues[1].Name})
}
