package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/gasket/pkg/exact"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/pipeline"
	"github.com/matzehuels/gasket/pkg/store"
)

func seedCircles(t *testing.T) []*gasket.Circle {
	t.Helper()
	seq, err := gasket.Generate([]exact.Number{exact.Int(-1), exact.Int(2), exact.Int(2), exact.Int(3)}, 1, gasket.Batch)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return gasket.Collect(seq)
}

func TestExpectedCount(t *testing.T) {
	tests := []struct {
		seeds, gen, want int
	}{
		{4, 0, 4},
		{4, 1, 4},
		{4, 2, 12},
		{4, 3, 36},
		{3, 0, 3},
		{3, 1, 2},
		{3, 2, 6},
	}
	for _, tt := range tests {
		if got := expectedCount(tt.seeds, tt.gen); got != tt.want {
			t.Errorf("expectedCount(%d, %d) = %d, want %d", tt.seeds, tt.gen, got, tt.want)
		}
	}
}

func TestWatchModelBatches(t *testing.T) {
	circles := seedCircles(t)
	m := NewWatchModel([]string{"-1", "2", "2", "3"}, 1, nil)

	next, _ := m.Update(batchMsg(pipeline.Progress{Generation: 0, Total: 4, Circles: circles[:4]}))
	next, _ = next.Update(batchMsg(pipeline.Progress{Generation: 1, Total: 8, Circles: circles[4:]}))
	got := next.(WatchModel)

	if got.Total != 8 {
		t.Errorf("Total = %d, want 8", got.Total)
	}
	if got.Counts[0] != 4 || got.Counts[1] != 4 {
		t.Errorf("Counts = %v, want [4 4]", got.Counts)
	}
	if len(got.Recent) != recentShown {
		t.Errorf("Recent holds %d circles, want %d", len(got.Recent), recentShown)
	}

	view := got.View()
	for _, want := range []string{"Gen  0", "Gen  1", "8 circles"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q:\n%s", want, view)
		}
	}
}

func TestWatchModelGrowsPastDepth(t *testing.T) {
	circles := seedCircles(t)
	m := NewWatchModel([]string{"1", "1", "1"}, 0, nil)
	next, _ := m.Update(batchMsg(pipeline.Progress{Generation: 2, Total: 1, Circles: circles[:1]}))
	if got := next.(WatchModel); len(got.Counts) != 3 || got.Counts[2] != 1 {
		t.Errorf("Counts = %v", got.Counts)
	}
}

func TestWatchModelDone(t *testing.T) {
	m := NewWatchModel([]string{"1", "1", "1"}, 2, nil)
	res := &pipeline.Result{Gasket: &store.Gasket{Curvatures: []string{"int:1", "int:1", "int:1"}}}

	next, cmd := m.Update(doneMsg{res: res})
	got := next.(WatchModel)
	if !got.Done || got.Result != res {
		t.Error("done message should record the result")
	}
	if cmd == nil {
		t.Fatal("done message should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done command should be tea.Quit")
	}

	// Ticks stop once done.
	if _, cmd := got.Update(tickMsg{}); cmd != nil {
		t.Error("tick after done should not schedule another tick")
	}
}

func TestWatchModelQuitCancels(t *testing.T) {
	cancelled := false
	m := NewWatchModel([]string{"1", "1", "1"}, 2, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	got := next.(WatchModel)
	if !cancelled || !got.Cancelled {
		t.Error("q should cancel a running generation")
	}
	if cmd == nil {
		t.Error("q should quit")
	}
}

func TestWatchModelErrorView(t *testing.T) {
	m := NewWatchModel([]string{"1", "1", "1"}, 2, nil)
	next, _ := m.Update(doneMsg{err: errTest("no tangent placement")})
	if view := next.View(); !strings.Contains(view, "no tangent placement") {
		t.Errorf("view should show the error:\n%s", view)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
