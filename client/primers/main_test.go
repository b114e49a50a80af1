package primers

import (
	"path/filepath"
	"testing"
	"time"

	"primerid/api/models/constants/genome"
	"primerid/api/models/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRegion(t *testing.T, d *Designer, region string) {
	require.NoError(t, d.Set("region", region))
	require.NoError(t, d.Set("forward", "GCCTCCCTCGCGCCATCAGAGATGTGTTTAGTGCCTGTGTCA"))
	require.NoError(t, d.Set("cdna", "gtgactggagttcagacgtgtgctcttccgatctNNNNNNNNNNNCAGTCACTATAGGTAC"))
}

func TestDesignerTraversal(t *testing.T) {
	t.Run("should refuse to leave an invalid page", func(t *testing.T) {
		d := NewDesigner()
		d.Add()

		assert.False(t, d.Next())
		assert.Equal(t, PageRegion, d.Page().ID)
		assert.Equal(t, jobs.MsgRequired, d.Errors["region"])

		// editing a field clears its error
		require.NoError(t, d.Set("region", "V1V3"))
		assert.NotContains(t, d.Errors, "region")
	})

	t.Run("should skip disabled sections both ways", func(t *testing.T) {
		d := NewDesigner()
		d.Add()
		fillRegion(t, d, "RT")

		require.True(t, d.Next())
		assert.Equal(t, PageEndJoin, d.Page().ID)

		require.True(t, d.Next())
		assert.Equal(t, PageSummary, d.Page().ID)

		d.Back()
		assert.Equal(t, PageEndJoin, d.Page().ID)
		d.Back()
		d.Back()
		assert.Equal(t, PageRegion, d.Page().ID)
	})

	t.Run("should visit qc and trim once enabled", func(t *testing.T) {
		d := NewDesigner()
		d.Add()
		fillRegion(t, d, "RT")
		require.True(t, d.Next())

		require.NoError(t, d.Set("endJoin", "true"))
		require.NoError(t, d.Set("endJoinOption", "1"))
		require.True(t, d.Next())
		assert.Equal(t, PageQc, d.Page().ID)

		require.NoError(t, d.Set("qc", true))
		assert.False(t, d.Next())
		assert.Equal(t, jobs.MsgChooseGenome, d.Errors["refGenome"])

		require.NoError(t, d.Set("refGenome", string(genome.HXB2)))
		require.NoError(t, d.Set("refStart", "0"))
		require.NoError(t, d.Set("refEnd", "010"))
		require.True(t, d.Next())
		assert.Equal(t, PageTrim, d.Page().ID)
		assert.Equal(t, 10, *d.Draft.RefEnd)

		require.True(t, d.Next())
		assert.Equal(t, PageSummary, d.Page().ID)
		assert.False(t, d.Next())
	})

	t.Run("should reset to the first page on add", func(t *testing.T) {
		d := NewDesigner()
		d.Add()
		fillRegion(t, d, "RT")
		require.True(t, d.Next())

		d.Add()
		assert.Equal(t, PageRegion, d.Page().ID)
		assert.Equal(t, jobs.NewPrimer(), d.Draft)
	})
}

func TestDesignerSet(t *testing.T) {
	d := NewDesigner()
	d.Add()

	require.NoError(t, d.Set("supermajority", "0.7"))
	assert.Equal(t, 0.7, d.Draft.Supermajority)

	require.NoError(t, d.Set("refStart", ""))
	assert.Nil(t, d.Draft.RefStart)

	require.NoError(t, d.Set("refStart", "abc"))
	assert.Nil(t, d.Draft.RefStart)

	require.NoError(t, d.Set("trimEnd", 42))
	assert.Equal(t, 42, *d.Draft.TrimEnd)

	require.NoError(t, d.Set("endJoinOverlap", "000"))
	assert.Equal(t, 0, *d.Draft.EndJoinOverlap)

	assert.Error(t, d.Set("colour", "blue"))
}

func TestDesignerList(t *testing.T) {
	t.Run("should save new and edited primers", func(t *testing.T) {
		d := NewDesigner()
		d.Add()
		assert.Error(t, d.Save())
		assert.NotEmpty(t, d.Errors)

		fillRegion(t, d, " RT ")
		require.NoError(t, d.Save())
		require.Len(t, d.Primers, 1)
		assert.Equal(t, "RT", d.Primers[0].Region)
		assert.False(t, d.Editing)

		require.NoError(t, d.Edit(0))
		require.NoError(t, d.Set("region", "PR"))
		require.NoError(t, d.Save())
		require.Len(t, d.Primers, 1)
		assert.Equal(t, "PR", d.Primers[0].Region)

		assert.Error(t, d.Edit(3))
		require.NoError(t, d.Delete(0))
		assert.Empty(t, d.Primers)
	})

	t.Run("should toggle presets by region", func(t *testing.T) {
		d := NewDesigner()
		preset := jobs.NewPrimer()
		preset.Region = "V1V3"

		d.TogglePreset(preset)
		assert.True(t, d.HasRegion("V1V3"))

		d.TogglePreset(preset)
		assert.False(t, d.HasRegion("V1V3"))
	})
}

func primer(region string) jobs.Primer {
	p := jobs.NewPrimer()
	p.Region = region
	return p
}

func testSaved(t *testing.T, store Store) {
	s := NewSaved(store)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	// nothing is remembered before opting in
	require.NoError(t, s.Remember([]jobs.Primer{primer("RT")}))
	saved, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, saved)

	require.NoError(t, s.SetEnabled(true))
	on, err := s.Enabled()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, s.Remember([]jobs.Primer{primer("RT"), primer("PR")}))
	require.NoError(t, s.Remember([]jobs.Primer{primer("RT"), primer("V1V3")}))
	saved, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"RT", "PR", "V1V3"}, regions(saved))

	// first press arms, second inside the window deletes
	deleted, err := s.DeleteSelected([]string{"PR"})
	require.NoError(t, err)
	assert.False(t, deleted)

	now = now.Add(5 * time.Second)
	deleted, _ = s.DeleteSelected([]string{"PR"})
	assert.False(t, deleted, "window expired, re-armed")

	now = now.Add(time.Second)
	deleted, err = s.DeleteSelected([]string{"PR"})
	require.NoError(t, err)
	assert.True(t, deleted)

	saved, _ = s.List()
	assert.Equal(t, []string{"RT", "V1V3"}, regions(saved))

	require.NoError(t, s.SetEnabled(false))
	on, _ = s.Enabled()
	assert.False(t, on)
	saved, _ = s.List()
	assert.Empty(t, saved)
}

func regions(ps []jobs.Primer) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.Region)
	}
	return out
}

func TestSavedPrimers(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		testSaved(t, NewMemoryStore())
	})
	t.Run("file", func(t *testing.T) {
		testSaved(t, NewFileStore(filepath.Join(t.TempDir(), "nested", "primers.yml")))
	})
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "primers.yml")
	p := primer("RT")
	p.RefStart = new(int)
	p.RefGenome = genome.NL43

	require.NoError(t, NewFileStore(path).Put(SavedKey, []jobs.Primer{p}))

	got, ok, err := NewFileStore(path).Get(SavedKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []jobs.Primer{p}, got)

	_, ok, err = NewFileStore(path).Get(UseSavedKey)
	require.NoError(t, err)
	assert.False(t, ok)
}
