package changes

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jamesainslie/kbsense/pkg/kbsense/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func fp(path, hash string, size int64, mtime time.Time) types.Fingerprint {
	return types.Fingerprint{Path: path, ContentHash: hash, Size: size, ModTime: mtime}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "", want: ModeMetadata},
		{input: "metadata", want: ModeMetadata},
		{input: "Content", want: ModeContent},
		{input: "fuzzy", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "metadata", ModeMetadata.String())
	assert.Equal(t, "content", ModeContent.String())
}

func TestCompute(t *testing.T) {
	t.Parallel()

	h1 := "1111111111111111111111111111111111111111111111111111111111111111"
	h2 := "2222222222222222222222222222222222222222222222222222222222222222"
	later := epoch.Add(time.Minute)

	tests := []struct {
		name     string
		baseline types.Snapshot
		current  types.Snapshot
		mode     Mode
		want     types.ChangeSet
	}{
		{
			name:     "first run adds everything",
			baseline: types.Snapshot{},
			current: types.Snapshot{
				"facts/fact2.txt": fp("facts/fact2.txt", h1, 10, epoch),
				"facts/fact1.txt": fp("facts/fact1.txt", h1, 10, epoch),
			},
			want: types.ChangeSet{
				Added:    []string{"facts/fact1.txt", "facts/fact2.txt"},
				Removed:  []string{},
				Modified: []types.ModifiedFile{},
			},
		},
		{
			name:     "content and size change",
			baseline: types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 100, epoch)},
			current:  types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h2, 120, later)},
			want: types.ChangeSet{
				Added:   []string{},
				Removed: []string{},
				Modified: []types.ModifiedFile{
					{Path: "facts/fact1.txt", OldHash: "11111111", NewHash: "22222222", SizeChange: 20},
				},
			},
		},
		{
			name:     "removed file",
			baseline: types.Snapshot{"rules/rule1.txt": fp("rules/rule1.txt", h1, 5, epoch)},
			current:  types.Snapshot{},
			want: types.ChangeSet{
				Added:    []string{},
				Removed:  []string{"rules/rule1.txt"},
				Modified: []types.ModifiedFile{},
			},
		},
		{
			name:     "touch counts in metadata mode",
			baseline: types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 5, epoch)},
			current:  types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 5, later)},
			mode:     ModeMetadata,
			want: types.ChangeSet{
				Added:   []string{},
				Removed: []string{},
				Modified: []types.ModifiedFile{
					{Path: "facts/fact1.txt", OldHash: "11111111", NewHash: "11111111", SizeChange: 0},
				},
			},
		},
		{
			name:     "touch ignored in content mode",
			baseline: types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 5, epoch)},
			current:  types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 5, later)},
			mode:     ModeContent,
			want: types.ChangeSet{
				Added:    []string{},
				Removed:  []string{},
				Modified: []types.ModifiedFile{},
			},
		},
		{
			name:     "unchanged",
			baseline: types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 5, epoch)},
			current:  types.Snapshot{"facts/fact1.txt": fp("facts/fact1.txt", h1, 5, epoch.In(time.FixedZone("X", 3600)))},
			want: types.ChangeSet{
				Added:    []string{},
				Removed:  []string{},
				Modified: []types.ModifiedFile{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Compute(tt.baseline, tt.current, tt.mode)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Compute() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompute_IdentitySnapshots(t *testing.T) {
	t.Parallel()

	s := types.Snapshot{
		"facts/fact1.txt": fp("facts/fact1.txt", "a", 1, epoch),
		"rules/rule1.txt": fp("rules/rule1.txt", "b", 2, epoch),
	}

	for _, mode := range []Mode{ModeMetadata, ModeContent} {
		cs := Compute(s, s.Clone(), mode)
		m := Metrics(cs, len(s))
		assert.Zero(t, m.TotalChanges)
		assert.Zero(t, m.ChangeRate)
	}
}

func TestCompute_PartitionProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	snapshot := func() types.Snapshot {
		s := types.Snapshot{}
		for i := 0; i < 30; i++ {
			if rng.Intn(3) == 0 {
				continue
			}
			path := "facts/fact" + strconv.Itoa(i) + ".txt"
			s[path] = fp(path, strconv.Itoa(rng.Intn(3)), int64(rng.Intn(3)), epoch)
		}
		return s
	}

	for round := 0; round < 20; round++ {
		baseline, current := snapshot(), snapshot()
		cs := Compute(baseline, current, ModeMetadata)

		seen := map[string]int{}
		for _, p := range cs.Added {
			seen[p]++
			assert.Contains(t, current, p)
			assert.NotContains(t, baseline, p)
		}
		for _, p := range cs.Removed {
			seen[p]++
			assert.Contains(t, baseline, p)
			assert.NotContains(t, current, p)
		}
		for _, p := range cs.ModifiedPaths() {
			seen[p]++
			assert.Contains(t, baseline, p)
			assert.Contains(t, current, p)
		}
		for p, n := range seen {
			assert.Equal(t, 1, n, "%s appears in more than one list", p)
		}

		m := Metrics(cs, len(current))
		assert.Equal(t, len(cs.Added)+len(cs.Removed)+len(cs.Modified), m.TotalChanges)
		assert.GreaterOrEqual(t, m.ChangeRate, 0.0)
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	t.Run("no files yields zero rate", func(t *testing.T) {
		t.Parallel()
		cs := types.ChangeSet{Removed: []string{"a", "b"}}
		m := Metrics(cs, 0)
		assert.Equal(t, 2, m.TotalChanges)
		assert.Zero(t, m.ChangeRate)
	})

	t.Run("rate above one when removals dominate", func(t *testing.T) {
		t.Parallel()
		cs := types.ChangeSet{Added: []string{"c"}, Removed: []string{"a", "b"}}
		m := Metrics(cs, 1)
		assert.Equal(t, 3, m.TotalChanges)
		assert.InDelta(t, 3.0, m.ChangeRate, 1e-9)
	})

	t.Run("counts per list", func(t *testing.T) {
		t.Parallel()
		cs := types.ChangeSet{
			Added:    []string{"a"},
			Modified: []types.ModifiedFile{{Path: "b"}, {Path: "c"}},
		}
		want := types.Metrics{
			TotalFiles: 4, TotalChanges: 3, ChangeRate: 0.75,
			FilesAdded: 1, FilesModified: 2,
		}
		assert.Equal(t, want, Metrics(cs, 4))
	})
}

func TestWithUnreadable(t *testing.T) {
	t.Parallel()

	cs := WithUnreadable(types.ChangeSet{}, []string{"facts/fact2.txt", "facts/fact1.txt"})
	assert.Equal(t, []string{"facts/fact1.txt", "facts/fact2.txt"}, cs.Unreadable)

	assert.Nil(t, WithUnreadable(types.ChangeSet{}, nil).Unreadable)
}
