package ivf

import "github.com/spf13/afero"

func OverloadFS(f afero.Fs) func() {
	ref := fs
	fs = f
	return func() { fs = ref }
}
