package data

import (
	"github.com/spf13/afero"
	"github.com/tauraamui/windowcast/pkg/database/dbconn"
)

func OverloadUC(overload func() (string, error)) func() {
	ucRef := uc
	uc = overload
	return func() { uc = ucRef }
}

func OverloadFS(overload afero.Fs) func() {
	fsRef := fs
	fs = overload
	return func() { fs = fsRef }
}

func OverloadOpenDBConnection(overload func(string) (dbconn.GormWrapper, error)) func() {
	ref := openDBConnection
	openDBConnection = overload
	return func() { openDBConnection = ref }
}
