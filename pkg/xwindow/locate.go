package xwindow

import (
	"strings"

	"github.com/tauraamui/windowcast/pkg/log"
	"github.com/tauraamui/xerror"
)

const NotFoundKind = xerror.Kind("not_found")

var (
	ErrNotFound   = xerror.NewWithKind(NotFoundKind, "no window matched")
	ErrEmptyQuery = xerror.New("window name query must not be empty")
)

type Window uint32

const None Window = 0

type ClassHint struct {
	Instance, Class string
}

// Tree is the read only view of a window hierarchy the locator walks.
type Tree interface {
	Root() Window
	// Readable reports whether the window's attributes can be fetched.
	// Unreadable windows are skipped together with their subtree.
	Readable(Window) bool
	LegacyName(Window) (string, bool)
	WMName(Window) (string, bool)
	ClassHint(Window) (ClassHint, bool)
	Children(Window) ([]Window, error)
}

// Handle identifies a located window. When located through a Display it
// is only valid until that display is closed.
type Handle struct {
	Window  Window
	display *Display
}

func (h Handle) Display() *Display {
	return h.display
}

// Locate walks the tree depth first in pre-order and returns the first
// window whose legacy name, WM name or class hint contains substring.
// The walk stops at the first match anywhere in the tree.
func Locate(tree Tree, substring string) (Handle, error) {
	if len(substring) == 0 {
		return Handle{}, ErrEmptyQuery
	}

	stack := []Window{tree.Root()}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !tree.Readable(w) {
			continue
		}

		if matches(tree, w, substring) {
			h := Handle{Window: w}
			if d, ok := tree.(*Display); ok {
				h.display = d
			}
			return h, nil
		}

		children, err := tree.Children(w)
		if err != nil {
			log.Debug("Unable to query children of window 0x%x: %v", uint32(w), err)
			continue
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return Handle{}, xerror.Errorf("%w: %s", ErrNotFound, substring)
}

func matches(tree Tree, w Window, substring string) bool {
	if name, ok := tree.LegacyName(w); ok && strings.Contains(name, substring) {
		return true
	}

	if name, ok := tree.WMName(w); ok && strings.Contains(name, substring) {
		return true
	}

	if hint, ok := tree.ClassHint(w); ok {
		return strings.Contains(hint.Instance, substring) || strings.Contains(hint.Class, substring)
	}

	return false
}

func (d *Display) Locate(substring string) (Handle, error) {
	return Locate(d, substring)
}
