package chain_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/registry"
	"github.com/vk/cmorize/internal/testutil"
	"github.com/vk/cmorize/internal/timeslice"
	"github.com/vk/cmorize/stages/downsample"
	"github.com/vk/cmorize/stages/merge"
)

func newMeta(outDir string) *chain.Metadata {
	return &chain.Metadata{
		OutputDir: outDir,
		Variable:  "tas",
		Frequency: "day",
		Table:     "Amon",
	}
}

func newRegistry(t *testing.T, mods ...registry.Module) *registry.Registry {
	t.Helper()
	r := registry.New()
	for _, m := range mods {
		m.Register(r)
	}
	return r
}

// writeSources creates one source file per year set and returns the ordered
// artifacts.
func writeSources(t *testing.T, dir string, yearSets ...timeslice.YearSet) []chain.Artifact {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	artifacts := make([]chain.Artifact, len(yearSets))
	for i, years := range yearSets {
		path := filepath.Join(dir, "tas_day_"+years.Label()+".nc")
		require.NoError(t, os.WriteFile(path, []byte("data:"+years.Label()+"\n"), 0o644))
		artifacts[i] = chain.Artifact{Path: path, Years: years}
	}
	return artifacts
}

func TestChain_IndividualStepFiresPerInput(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	reg := newRegistry(t,
		testutil.StageModule{Token: "prep", Variant: testutil.StageVariant{
			Token: "prep",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "prep", Log: log}},
		}},
		testutil.StageModule{Token: "merge", Variant: testutil.StageVariant{
			Token: "merge",
			Merge: true,
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "combine", Log: log}},
		}},
	)

	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1850, 1859), timeslice.Range(1860, 1869))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"prep", "merge"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))

	entries := log.Entries()
	var preps, combines int
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e, "prep("):
			preps++
		case strings.HasPrefix(e, "combine("):
			combines++
		}
	}
	require.Equal(t, 2, preps, "individual step fires once per input")
	require.Equal(t, 1, combines, "merge step fires exactly once")

	// Every firing lands on its own path, keyed by the firing's years.
	require.Contains(t, entries[0], "tas_day_Amon_1850-1859_prep")
	require.Contains(t, entries[1], "tas_day_Amon_1860-1869_prep")

	// The final artifact carries both inputs' data, in year order.
	data, err := os.ReadFile(c.FinalPath())
	require.NoError(t, err)
	require.Equal(t, "data:1850-1859\n[prep]data:1860-1869\n[prep][combine]", string(data))
}

func TestChain_MergeStepSortsAccumulatedInputsByYear(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	reg := newRegistry(t, testutil.StageModule{Token: "merge", Variant: testutil.StageVariant{
		Token: "merge",
		Merge: true,
		Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "combine", Log: log}},
	}})

	// Deliver the later slice first; the firing must still see ascending order.
	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1860, 1869), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"merge"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))

	entries := log.Entries()
	require.Len(t, entries, 1)
	require.Less(t,
		strings.Index(entries[0], "1850-1859"),
		strings.Index(entries[0], "1860-1869"),
		"inputs must be sorted by year ascending at firing time")
}

func TestChain_Idempotence(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	mods := []registry.Module{
		testutil.StageModule{Token: "prep", Variant: testutil.StageVariant{
			Token: "prep",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "prep", Log: log}},
		}},
		testutil.StageModule{Token: "merge", Variant: testutil.StageVariant{
			Token: "merge",
			Merge: true,
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "combine", Log: log}},
		}},
	}
	reg := newRegistry(t, mods...)

	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1850, 1859), timeslice.Range(1860, 1869))
	meta := newMeta(filepath.Join(tmp, "out"))

	first, err := chain.Build("tas", []string{"prep", "merge"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, first.Run(context.Background(), inputs))
	ranBefore := log.Count()
	require.NotZero(t, ranBefore)

	// Fresh step instances per invocation; identical declarative inputs.
	second, err := chain.Build("tas", []string{"prep", "merge"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, second.Run(context.Background(), inputs))

	require.Equal(t, ranBefore, log.Count(), "second run must execute zero sub-commands")
	require.Equal(t, first.FinalPath(), second.FinalPath())
	require.FileExists(t, second.FinalPath())
}

func TestChain_ResumesAfterLastMaterializedStep(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	mods := []registry.Module{
		testutil.StageModule{Token: "a", Variant: testutil.StageVariant{
			Token: "a",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "a", Log: log}},
		}},
		testutil.StageModule{Token: "b", Variant: testutil.StageVariant{
			Token: "b",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "b", Log: log}},
		}},
	}
	reg := newRegistry(t, mods...)

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	// Complete one run to learn the deterministic paths.
	ref, err := chain.Build("tas", []string{"a", "b"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, ref.Run(context.Background(), inputs))
	intermediate := ref.Steps()[0].ResultPath()
	final := ref.FinalPath()

	// Simulate a crash between the two steps: intermediate present, final
	// missing.
	require.NoError(t, os.Remove(final))
	require.NoError(t, os.WriteFile(intermediate, []byte("materialized\n"), 0o644))
	before := log.Count()

	resumed, err := chain.Build("tas", []string{"a", "b"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, resumed.Run(context.Background(), inputs))

	entries := log.Entries()[before:]
	require.Len(t, entries, 1, "only the unmaterialized step may execute")
	require.True(t, strings.HasPrefix(entries[0], "b("))
	require.FileExists(t, final)
}

func TestChain_CleanupRemovesIntermediatesOnSuccess(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	mods := []registry.Module{
		testutil.StageModule{Token: "a", Variant: testutil.StageVariant{
			Token: "a",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "a", Log: log}},
		}},
		testutil.StageModule{Token: "b", Variant: testutil.StageVariant{
			Token: "b",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "b", Log: log}},
		}},
	}
	reg := newRegistry(t, mods...)

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"a", "b"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))

	require.FileExists(t, c.FinalPath())
	for _, s := range c.Steps()[:len(c.Steps())-1] {
		require.NoFileExists(t, s.ResultPath(), "intermediate %s must be cleaned up", s.Name())
	}
}

func TestChain_AbortKeepsProducedArtifacts(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	boom := errors.New("operator exploded")
	mods := []registry.Module{
		testutil.StageModule{Token: "a", Variant: testutil.StageVariant{
			Token: "a",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "a", Log: log}},
		}},
		testutil.StageModule{Token: "b", Variant: testutil.StageVariant{
			Token: "b",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "b", FailWith: boom}},
		}},
	}
	reg := newRegistry(t, mods...)

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"a", "b"}, reg, meta)
	require.NoError(t, err)

	err = c.Run(context.Background(), inputs)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	var cmdErr *chain.CommandError
	require.ErrorAs(t, err, &cmdErr)
	require.Equal(t, "b", cmdErr.Command)

	require.FileExists(t, c.Steps()[0].ResultPath(),
		"artifacts produced before the failure must remain for diagnosis")
}

func TestChain_FirstStepPathsAreUniquePerRequest(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t, testutil.StageModule{Token: "prep", Variant: testutil.StageVariant{
		Token: "prep",
		Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "prep"}},
	}})

	outDir := filepath.Join(tmp, "out")
	years := timeslice.Range(1850, 1859)

	// Byte-identical source filenames, distinct requests.
	inA := writeSources(t, filepath.Join(tmp, "a"), years)
	inB := writeSources(t, filepath.Join(tmp, "b"), years)
	require.Equal(t, filepath.Base(inA[0].Path), filepath.Base(inB[0].Path))

	metaA := newMeta(outDir)
	metaB := newMeta(outDir)
	metaB.Table = "day"

	chainA, err := chain.Build("a", []string{"prep"}, reg, metaA)
	require.NoError(t, err)
	chainB, err := chain.Build("b", []string{"prep"}, reg, metaB)
	require.NoError(t, err)

	require.NoError(t, chainA.Run(context.Background(), inA))
	require.NoError(t, chainB.Run(context.Background(), inB))
	require.NotEqual(t, chainA.Steps()[0].ResultPath(), chainB.Steps()[0].ResultPath())
}

func TestChain_UnknownStageFailsAtBuildTime(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, testutil.StageModule{Token: "merge", Variant: testutil.StageVariant{Token: "merge"}})
	meta := newMeta(t.TempDir())

	_, err := chain.Build("tas", []string{"merge", "polish"}, reg, meta)
	require.Error(t, err)

	var unknown *chain.UnknownStageError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "polish", unknown.Token)
	require.Contains(t, unknown.Known, "merge")
}

func TestChain_ForbidInPlaceGuardOnFirstStep(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	reg := newRegistry(t, testutil.StageModule{Token: "stamp", Variant: testutil.StageVariant{
		Token: "stamp",
		Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "stamp", Mutates: true, Log: log}},
	}})

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	original, err := os.ReadFile(inputs[0].Path)
	require.NoError(t, err)
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"stamp"}, reg, meta)
	require.NoError(t, err)

	err = c.Run(context.Background(), inputs)
	var policyErr *chain.StructuralPolicyError
	require.ErrorAs(t, err, &policyErr)

	require.Zero(t, log.Count(), "guard must fire before any I/O")
	after, err := os.ReadFile(inputs[0].Path)
	require.NoError(t, err)
	require.Equal(t, original, after, "caller-owned original must be untouched")
}

func TestChain_ForbidInPlaceGuardOnEmptyCommandList(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t, testutil.StageModule{Token: "noop", Variant: testutil.StageVariant{Token: "noop"}})

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"noop"}, reg, meta)
	require.NoError(t, err)

	err = c.Run(context.Background(), inputs)
	var policyErr *chain.StructuralPolicyError
	require.ErrorAs(t, err, &policyErr)
	require.FileExists(t, inputs[0].Path, "caller-owned original must not be relocated")
}

func TestChain_EmptyCommandListRelocatesSoleInputOnLaterStep(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	reg := newRegistry(t,
		testutil.StageModule{Token: "prep", Variant: testutil.StageVariant{
			Token: "prep",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "prep", Log: log}},
		}},
		testutil.StageModule{Token: "rename", Variant: testutil.StageVariant{Token: "rename"}},
	)

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"prep", "rename"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))

	require.FileExists(t, c.FinalPath())
	require.NoFileExists(t, c.Steps()[0].ResultPath(),
		"relocation consumes the upstream intermediate")
}

func TestChain_MultipleInputsWithoutCombinerFail(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t,
		testutil.StageModule{Token: "prep", Variant: testutil.StageVariant{
			Token: "prep",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "prep"}},
		}},
		testutil.StageModule{Token: "gather", Variant: testutil.StageVariant{Token: "gather", Merge: true}},
	)

	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1850, 1859), timeslice.Range(1860, 1869))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"prep", "gather"}, reg, meta)
	require.NoError(t, err)

	err = c.Run(context.Background(), inputs)
	var policyErr *chain.StructuralPolicyError
	require.ErrorAs(t, err, &policyErr)
	require.Contains(t, policyErr.Reason, "no sub-command combines them")
}

func TestChain_FixedNameStepUsesMandatedFilename(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t,
		testutil.StageModule{Token: "prep", Variant: testutil.StageVariant{
			Token: "prep",
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "prep"}},
		}},
		testutil.StageModule{Token: "deliver", Variant: testutil.FixedNameVariant{
			StageVariant: testutil.StageVariant{Token: "deliver"},
			Name:         "tas_Amon_1850-1859.nc",
		}},
	)

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	outDir := filepath.Join(tmp, "out")
	meta := newMeta(outDir)

	c, err := chain.Build("tas", []string{"prep", "deliver"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))
	require.Equal(t, filepath.Join(outDir, "tas_Amon_1850-1859.nc"), c.FinalPath())
	require.FileExists(t, c.FinalPath())
}

func TestChain_FixedNameStepRejectsMultipleInputGroups(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t, testutil.StageModule{Token: "deliver", Variant: testutil.FixedNameVariant{
		StageVariant: testutil.StageVariant{Token: "deliver", Merge: true},
		Name:         "tas_Amon_1850-1869.nc",
	}})

	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1850, 1859), timeslice.Range(1860, 1869))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"deliver"}, reg, meta)
	require.NoError(t, err)

	err = c.Run(context.Background(), inputs)
	var policyErr *chain.StructuralPolicyError
	require.ErrorAs(t, err, &policyErr)
	require.Contains(t, policyErr.Reason, "fixed result name")
}

func TestChain_LongStepTagsAreTruncatedInResultNames(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	longToken := strings.Repeat("downsample_with_a_very_long_tag_", 3)
	reg := newRegistry(t, testutil.StageModule{Token: longToken, Variant: testutil.StageVariant{
		Token: longToken,
		Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "x"}},
	}})

	inputs := writeSources(t, filepath.Join(tmp, "in"), timeslice.Range(1850, 1859))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{longToken}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))

	base := filepath.Base(c.FinalPath())
	suffix := strings.TrimPrefix(base, chain.Prefix(meta)+"_"+timeslice.Range(1850, 1859).Label()+"_")
	require.Len(t, suffix, 32)
	require.True(t, strings.HasPrefix(longToken, suffix))
}

func TestChain_OverlappingYearSetsAreRejected(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t, testutil.StageModule{Token: "merge", Variant: testutil.StageVariant{
		Token: "merge",
		Merge: true,
		Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "combine"}},
	}})

	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1850, 1859), timeslice.Range(1855, 1864))
	meta := newMeta(filepath.Join(tmp, "out"))

	c, err := chain.Build("tas", []string{"merge"}, reg, meta)
	require.NoError(t, err)

	err = c.Run(context.Background(), inputs)
	var infeasible *chain.InfeasibleRequestError
	require.ErrorAs(t, err, &infeasible)
	require.Contains(t, infeasible.Reason, "overlaps")
}

func TestChain_MergeShrinksSuccessorExpectation(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	log := &testutil.CommandLog{}
	reg := newRegistry(t,
		testutil.StageModule{Token: "gather", Variant: testutil.StageVariant{
			Token: "gather",
			Merge: true,
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "gather", Log: log}},
		}},
		testutil.StageModule{Token: "refine", Variant: testutil.StageVariant{
			Token: "refine",
			Merge: true,
			Cmds:  []cdo.Command{&testutil.FakeCommand{CommandName: "refine", Log: log}},
		}},
	)

	inputs := writeSources(t, filepath.Join(tmp, "in"),
		timeslice.Range(1850, 1859), timeslice.Range(1860, 1869))
	meta := newMeta(filepath.Join(tmp, "out"))

	// The first merge collapses both groups into one artifact; the second
	// merge must see an expectation of one and fire on it instead of
	// waiting for a second group that can never arrive.
	c, err := chain.Build("tas", []string{"gather", "refine"}, reg, meta)
	require.NoError(t, err)
	require.NoError(t, c.Run(context.Background(), inputs))

	entries := log.Entries()
	require.Len(t, entries, 2)
	require.True(t, strings.HasPrefix(entries[0], "gather("))
	require.True(t, strings.HasPrefix(entries[1], "refine("))
	require.FileExists(t, c.FinalPath())
}

func TestChain_PartialDecadeBehindMergeFailsBeforeExecution(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	reg := newRegistry(t, merge.Module{}, downsample.Module{})

	yearSets := make([]timeslice.YearSet, 8)
	for i := range yearSets {
		yearSets[i] = timeslice.New(1850 + i)
	}
	inputs := writeSources(t, filepath.Join(tmp, "in"), yearSets...)

	outDir := filepath.Join(tmp, "out")
	meta := newMeta(outDir)
	meta.Frequency = "yr"
	meta.TargetFrequency = "dec"

	c, err := chain.Build("tas", []string{"merge", "downsample"}, reg, meta)
	require.NoError(t, err)

	// Eight years can never become a decade; the request must die during
	// the dry pass, before any sub-command or even the output directory
	// comes into being.
	err = c.Run(context.Background(), inputs)
	var infeasible *chain.InfeasibleRequestError
	require.ErrorAs(t, err, &infeasible)
	require.Contains(t, infeasible.Reason, "8")
	require.NoDirExists(t, outDir)
}
