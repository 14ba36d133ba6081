package xwindow_test

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/windowcast/pkg/xwindow"
)

type node struct {
	legacy, wmName string
	hint           *xwindow.ClassHint
	children       []xwindow.Window
	unreadable     bool
	treeErr        error
}

type fakeTree struct {
	nodes   map[xwindow.Window]node
	visited []xwindow.Window
}

func (f *fakeTree) Root() xwindow.Window { return 1 }

func (f *fakeTree) Readable(w xwindow.Window) bool {
	f.visited = append(f.visited, w)
	return !f.nodes[w].unreadable
}

func (f *fakeTree) LegacyName(w xwindow.Window) (string, bool) {
	n := f.nodes[w]
	return n.legacy, n.legacy != ""
}

func (f *fakeTree) WMName(w xwindow.Window) (string, bool) {
	n := f.nodes[w]
	return n.wmName, n.wmName != ""
}

func (f *fakeTree) ClassHint(w xwindow.Window) (xwindow.ClassHint, bool) {
	n := f.nodes[w]
	if n.hint == nil {
		return xwindow.ClassHint{}, false
	}
	return *n.hint, true
}

func (f *fakeTree) Children(w xwindow.Window) ([]xwindow.Window, error) {
	n := f.nodes[w]
	return n.children, n.treeErr
}

func TestLocateFindsFirstMatchInPreOrder(t *testing.T) {
	is := is.New(t)

	// 1 -> [2 -> [4 "Game"], 3 "Game"]
	tree := &fakeTree{nodes: map[xwindow.Window]node{
		1: {children: []xwindow.Window{2, 3}},
		2: {children: []xwindow.Window{4}},
		3: {legacy: "Game"},
		4: {legacy: "Game"},
	}}

	h, err := xwindow.Locate(tree, "Game")
	is.NoErr(err)
	is.Equal(h.Window, xwindow.Window(4))
	is.Equal(tree.visited, []xwindow.Window{1, 2, 4})
	is.True(h.Display() == nil)
}

func TestLocateStopsAtTheFirstMatch(t *testing.T) {
	is := is.New(t)

	tree := &fakeTree{nodes: map[xwindow.Window]node{
		1: {children: []xwindow.Window{2, 3}},
		2: {wmName: "Terminal - Game of Life", children: []xwindow.Window{5}},
		3: {legacy: "Game"},
		5: {legacy: "Game"},
	}}

	h, err := xwindow.Locate(tree, "Game")
	is.NoErr(err)
	is.Equal(h.Window, xwindow.Window(2))
	is.Equal(tree.visited, []xwindow.Window{1, 2})
}

func TestLocateMatchesClassHint(t *testing.T) {
	is := is.New(t)

	tree := &fakeTree{nodes: map[xwindow.Window]node{
		1: {children: []xwindow.Window{2, 3}},
		2: {hint: &xwindow.ClassHint{Instance: "xterm", Class: "XTerm"}},
		3: {hint: &xwindow.ClassHint{Instance: "steam_app", Class: "SuperGame"}},
	}}

	h, err := xwindow.Locate(tree, "Super")
	is.NoErr(err)
	is.Equal(h.Window, xwindow.Window(3))

	h, err = xwindow.Locate(tree, "steam")
	is.NoErr(err)
	is.Equal(h.Window, xwindow.Window(3))
}

func TestLocateIsCaseSensitive(t *testing.T) {
	is := is.New(t)

	tree := &fakeTree{nodes: map[xwindow.Window]node{
		1: {legacy: "Game"},
	}}

	_, err := xwindow.Locate(tree, "game")
	is.True(errors.Is(err, xwindow.ErrNotFound))
}

func TestLocateSkipsUnreadableSubtrees(t *testing.T) {
	is := is.New(t)

	tree := &fakeTree{nodes: map[xwindow.Window]node{
		1: {children: []xwindow.Window{2, 3}},
		2: {unreadable: true, children: []xwindow.Window{4}},
		3: {legacy: "other"},
		4: {legacy: "hidden"},
	}}

	_, err := xwindow.Locate(tree, "hidden")
	is.True(errors.Is(err, xwindow.ErrNotFound))
	is.Equal(tree.visited, []xwindow.Window{1, 2, 3})
}

func TestLocateTreatsFailedQueryAsChildless(t *testing.T) {
	is := is.New(t)

	tree := &fakeTree{nodes: map[xwindow.Window]node{
		1: {children: []xwindow.Window{2, 3}},
		2: {treeErr: errors.New("BadWindow"), children: []xwindow.Window{4}},
		3: {legacy: "target"},
		4: {legacy: "target"},
	}}

	h, err := xwindow.Locate(tree, "target")
	is.NoErr(err)
	is.Equal(h.Window, xwindow.Window(3))
}

func TestLocateRejectsEmptyQuery(t *testing.T) {
	is := is.New(t)

	_, err := xwindow.Locate(&fakeTree{}, "")
	is.Equal(err, xwindow.ErrEmptyQuery)
}

func TestLocateHandlesDeepChains(t *testing.T) {
	is := is.New(t)

	nodes := map[xwindow.Window]node{}
	const depth = 100000
	for i := xwindow.Window(1); i < depth; i++ {
		nodes[i] = node{children: []xwindow.Window{i + 1}}
	}
	nodes[depth] = node{legacy: "bottom"}

	h, err := xwindow.Locate(&fakeTree{nodes: nodes}, "bottom")
	is.NoErr(err)
	is.Equal(h.Window, xwindow.Window(depth))
}
