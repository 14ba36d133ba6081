package xwindow

import "github.com/BurntSushi/xgb"

func overrideConnect(f func(string) (*xgb.Conn, error)) func() {
	conn := connect
	connect = f
	return func() { connect = conn }
}
