package irritation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/vex/internal/source"
)

func loc(sr, sc, er, ec int) source.Location {
	return source.Location{StartRow: sr, StartColumn: sc, EndRow: er, EndColumn: ec}
}

func TestCompare_OrdersByPathThenLocationThenMessage(t *testing.T) {
	t.Parallel()

	ordered := []Irritation{
		New("init warning"),
		NewAt("b", "a.rs", loc(0, 0, 0, 1), "", ""),
		NewAt("a", "a.rs", loc(0, 4, 0, 5), "", ""),
		NewAt("z", "a.rs", loc(2, 0, 2, 1), "", ""),
		NewAt("a", "b.rs", loc(0, 0, 0, 1), "", ""),
	}

	for i := range ordered {
		for j := range ordered {
			got := ordered[i].Compare(ordered[j])
			switch {
			case i < j:
				assert.Negative(t, got, "%d vs %d", i, j)
			case i > j:
				assert.Positive(t, got, "%d vs %d", i, j)
			default:
				assert.Zero(t, got)
			}
		}
	}
}

func TestString(t *testing.T) {
	t.Parallel()
	irr := NewAt("oh no a number!", "src/main.rs", loc(1, 12, 1, 13), "num", "    let x = 1 + 2;")
	assert.Equal(t, "src/main.rs:2:13: oh no a number!", irr.String())
	assert.Equal(t, "init only", New("init only").String())
}

func TestRender(t *testing.T) {
	t.Parallel()
	irr := NewAt("oh no a number!", "src/main.rs", loc(1, 12, 1, 13), "num", "    let x = 1 + 2;")

	want := "warning: oh no a number!\n" +
		" --> src/main.rs:2:13\n" +
		"  |\n" +
		"2 |     let x = 1 + 2;\n" +
		"  |             ^ num\n"
	assert.Equal(t, want, irr.Render())
	assert.Equal(t, "warning: bare\n", New("bare").Render())
}

func TestParseMaxProblems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"unlimited", "unlimited", false},
		{"", "unlimited", false},
		{"47", "47", false},
		{"0", "", true},
		{"-3", "", true},
		{"lots", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMaxProblems(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCollector_FinishSortsAndCapsSmallest(t *testing.T) {
	t.Parallel()

	var all []Irritation
	for row := 0; row < 10; row++ {
		for col := 0; col < 9; col++ {
			all = append(all, NewAt("number", "src/main.rs", loc(row, col*4, row, col*4+1), "num", ""))
		}
	}

	shuffled := append([]Irritation(nil), all...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	c := NewCollector()
	c.Add(shuffled...)
	require.Equal(t, 90, c.Len())

	got := c.Finish(Limited(47))
	require.Len(t, got, 47)
	assert.Equal(t, all[:47], got)

	assert.Len(t, c.Finish(Unlimited()), 90)
	assert.Len(t, c.Finish(Limited(500)), 90)
}

func TestCollector_FinishIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewCollector()
	a.Add(NewAt("x", "b.rs", loc(0, 0, 0, 1), "", ""), New("init"), NewAt("y", "a.rs", loc(3, 0, 3, 1), "", ""))
	b := NewCollector()
	b.Add(NewAt("y", "a.rs", loc(3, 0, 3, 1), "", ""), NewAt("x", "b.rs", loc(0, 0, 0, 1), "", ""), New("init"))

	assert.Equal(t, a.Finish(Unlimited()), b.Finish(Unlimited()))
}
