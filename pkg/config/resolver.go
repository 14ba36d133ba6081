package config

import (
	"github.com/tauraamui/windowcast/internal/config"
	"github.com/tauraamui/windowcast/pkg/configdef"
)

type Resolver interface {
	configdef.Resolver
}

func DefaultResolver() Resolver {
	return config.DefaultResolver()
}
