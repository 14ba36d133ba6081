package config

import (
	"github.com/tauraamui/windowcast/internal/config"
	"github.com/tauraamui/windowcast/pkg/configdef"
)

type Creator interface {
	configdef.Creator
}

func DefaultCreator() Creator {
	return config.DefaultCreator()
}
